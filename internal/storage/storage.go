package storage

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/drstein77/cartview/internal/cart"
	"go.uber.org/zap"
)

// ErrConflict indicates a page id collision in the store.
var (
	ErrConflict = errors.New("page already exists")
	ErrNotFound = errors.New("not found")
)

type Log interface {
	Info(string, ...zap.Field)
}

type page struct {
	view       *cart.View
	lastAccess time.Time
}

// MemoryStorage keeps loaded cart pages in memory until they go idle.
type MemoryStorage struct {
	mx    sync.RWMutex
	pages map[string]*page
	ttl   time.Duration
	now   func() time.Time

	log Log
}

// NewMemoryStorage creates a new MemoryStorage instance
func NewMemoryStorage(ttl time.Duration, log Log) *MemoryStorage {
	return &MemoryStorage{
		pages: make(map[string]*page),
		ttl:   ttl,
		now:   time.Now,
		log:   log,
	}
}

// Put stores a freshly loaded view under its page id.
func (s *MemoryStorage) Put(view *cart.View) error {
	s.mx.Lock()
	defer s.mx.Unlock()

	if _, ok := s.pages[view.ID()]; ok {
		return ErrConflict
	}
	s.pages[view.ID()] = &page{view: view, lastAccess: s.now()}
	return nil
}

// Get returns the view for id and marks it as recently used.
func (s *MemoryStorage) Get(id string) (*cart.View, error) {
	s.mx.Lock()
	defer s.mx.Unlock()

	p, ok := s.pages[id]
	if !ok {
		return nil, ErrNotFound
	}
	p.lastAccess = s.now()
	return p.view, nil
}

func (s *MemoryStorage) Len() int {
	s.mx.RLock()
	defer s.mx.RUnlock()
	return len(s.pages)
}

// Sweep drops pages idle for longer than the ttl and returns how many were removed.
func (s *MemoryStorage) Sweep() int {
	s.mx.Lock()
	defer s.mx.Unlock()

	cutoff := s.now().Add(-s.ttl)
	removed := 0
	for id, p := range s.pages {
		if p.lastAccess.Before(cutoff) {
			delete(s.pages, id)
			removed++
		}
	}
	return removed
}

// Run sweeps every interval until ctx is done.
func (s *MemoryStorage) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				s.log.Info("Expired cart pages removed", zap.Int("count", n), zap.Int("remaining", s.Len()))
			}
		}
	}
}
