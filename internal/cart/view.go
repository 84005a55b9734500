package cart

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/drstein77/cartview/internal/models"
	"github.com/drstein77/cartview/internal/money"
	"go.uber.org/zap"
)

// CheckoutMessage is the acknowledgement returned by Checkout.
const CheckoutMessage = "Proceeding to checkout!"

var (
	ErrAlreadyLoaded   = errors.New("cart already loaded")
	ErrNotPopulated    = errors.New("cart has no items to edit")
	ErrItemNotFound    = errors.New("item not found")
	ErrInvalidQuantity = errors.New("quantity must be a whole number of at least 1")
)

// Status is the state of a cart page.
type Status int

const (
	StatusLoading Status = iota
	StatusEmpty
	StatusPopulated
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusEmpty:
		return "empty"
	case StatusPopulated:
		return "populated"
	default:
		return "unknown"
	}
}

// Fetcher supplies the cart items for a page load.
type Fetcher interface {
	Fetch(ctx context.Context) ([]models.CartItem, error)
}

// Log interface for logging
type Log interface {
	Info(string, ...zap.Field)
	Error(string, ...zap.Field)
}

// Snapshot is a consistent copy of a view, ready for rendering.
type Snapshot struct {
	PageID string
	Status Status
	Lines  []models.Line
	Total  int64
}

// View owns the state of one loaded cart page.
type View struct {
	mx sync.Mutex

	id      string
	fetcher Fetcher
	log     Log

	status   Status
	state    State
	loadedAt time.Time
}

// NewView creates a view in the Loading state. Nothing is fetched until Load.
func NewView(id string, fetcher Fetcher, log Log) *View {
	return &View{
		id:      id,
		fetcher: fetcher,
		log:     log,
		status:  StatusLoading,
	}
}

// ID returns the page id.
func (v *View) ID() string {
	return v.id
}

// Status returns the current state of the view.
func (v *View) Status() Status {
	v.mx.Lock()
	defer v.mx.Unlock()
	return v.status
}

// Load issues the single fetch for this page. On failure the view stays in
// Loading and the error is logged and returned.
func (v *View) Load(ctx context.Context) error {
	v.mx.Lock()
	if v.status != StatusLoading || !v.loadedAt.IsZero() {
		v.mx.Unlock()
		return ErrAlreadyLoaded
	}
	// Mark the attempt so a concurrent or repeated Load cannot fetch twice.
	v.loadedAt = time.Now()
	v.mx.Unlock()

	items, err := v.fetcher.Fetch(ctx)
	if err != nil {
		v.log.Error("Error fetching cart data", zap.String("page_id", v.id), zap.Error(err))
		return fmt.Errorf("failed to load cart: %w", err)
	}

	if _, err := Sum(items); err != nil {
		v.log.Error("Cart totals out of range", zap.String("page_id", v.id), zap.Error(err))
		return fmt.Errorf("failed to load cart: %w", err)
	}

	v.mx.Lock()
	defer v.mx.Unlock()

	v.state = NewState(items)
	if v.state.Len() == 0 {
		v.status = StatusEmpty
	} else {
		v.status = StatusPopulated
	}

	v.log.Info("Cart loaded",
		zap.String("page_id", v.id),
		zap.String("status", v.status.String()),
		zap.Int("items", v.state.Len()),
	)
	return nil
}

// SetQuantity changes the quantity of one item. Quantities below 1 are rejected
// and the previous quantity is kept.
func (v *View) SetQuantity(itemID string, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}

	v.mx.Lock()
	defer v.mx.Unlock()

	if v.status != StatusPopulated {
		return ErrNotPopulated
	}
	if err := v.state.SetQuantity(itemID, quantity); err != nil {
		if errors.Is(err, money.ErrOverflow) {
			return fmt.Errorf("%w: %v", ErrInvalidQuantity, err)
		}
		return fmt.Errorf("set quantity of %q: %w", itemID, err)
	}
	return nil
}

// Remove drops one item. Removing the last item empties the cart.
func (v *View) Remove(itemID string) error {
	v.mx.Lock()
	defer v.mx.Unlock()

	if v.status != StatusPopulated {
		return ErrNotPopulated
	}
	if !v.state.Remove(itemID) {
		return fmt.Errorf("remove %q: %w", itemID, ErrItemNotFound)
	}
	if v.state.Len() == 0 {
		v.status = StatusEmpty
	}
	return nil
}

// Checkout acknowledges the request without touching the cart.
func (v *View) Checkout() string {
	return CheckoutMessage
}

// Snapshot returns a copy of the current lines and totals.
func (v *View) Snapshot() Snapshot {
	v.mx.Lock()
	defer v.mx.Unlock()

	return Snapshot{
		PageID: v.id,
		Status: v.status,
		Lines:  v.state.Lines(),
		Total:  v.state.Total(),
	}
}

// ParseQuantity reads a quantity as typed by the user.
func ParseQuantity(raw string) (int, error) {
	q, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || q < 1 {
		return 0, ErrInvalidQuantity
	}
	return q, nil
}

// Response converts a snapshot to its JSON shape.
func (s Snapshot) Response(symbol string) models.CartResponse {
	items := make([]models.LineResponse, 0, len(s.Lines))
	for _, l := range s.Lines {
		items = append(items, models.LineResponse{
			ID:           l.Item.ID.String(),
			Title:        l.Item.Title,
			Image:        l.Item.Image,
			Price:        l.Item.Price,
			Quantity:     l.Item.Quantity,
			Subtotal:     l.Subtotal,
			PriceText:    money.Format(l.Item.Price, symbol),
			SubtotalText: money.Format(l.Subtotal, symbol),
		})
	}

	return models.CartResponse{
		PageID:       s.PageID,
		Status:       s.Status.String(),
		Items:        items,
		Subtotal:     s.Total,
		Total:        s.Total,
		SubtotalText: money.Format(s.Total, symbol),
		TotalText:    money.Format(s.Total, symbol),
	}
}
