package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/drstein77/cartview/internal/models"
	"github.com/drstein77/cartview/internal/money"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// DefaultURL serves the demo cart payload.
const DefaultURL = "https://cdn.shopify.com/s/files/1/0883/2188/4479/files/apiCartData.json?v=1728384889"

const maxPayloadSize = 1 << 20

var (
	ErrUnexpectedStatus = errors.New("unexpected response status")
	ErrMalformedPayload = errors.New("malformed cart payload")
)

type Log interface {
	Info(string, ...zap.Field)
	Warn(string, ...zap.Field)
}

// HTTPSource fetches the cart payload with a single GET to a fixed URL.
type HTTPSource struct {
	url     string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[[]models.CartItem]
	log     Log
}

// NewHTTPSource creates a source bounded by timeout per request.
func NewHTTPSource(url string, timeout time.Duration, log Log) *HTTPSource {
	client := &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	return newHTTPSource(url, client, log)
}

func newHTTPSource(url string, client *http.Client, log Log) *HTTPSource {
	settings := gobreaker.Settings{
		Name:    "cart-source",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// Only transport and status failures count towards tripping.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrMalformedPayload)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Warn("Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return &HTTPSource{
		url:     url,
		client:  client,
		breaker: gobreaker.NewCircuitBreaker[[]models.CartItem](settings),
		log:     log,
	}
}

// Fetch issues one request and returns the validated items. No retries.
func (s *HTTPSource) Fetch(ctx context.Context) ([]models.CartItem, error) {
	items, err := s.breaker.Execute(func() ([]models.CartItem, error) {
		return s.fetch(ctx)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("Cart payload fetched", zap.Int("items", len(items)))
	return items, nil
}

func (s *HTTPSource) fetch(ctx context.Context) ([]models.CartItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch cart: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read cart payload: %w", err)
	}

	return Decode(body)
}

// Decode parses and validates a cart payload.
func Decode(body []byte) ([]models.CartItem, error) {
	var payload models.CartPayload
	if err := sonic.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if payload.Items == nil {
		return nil, fmt.Errorf("%w: missing items", ErrMalformedPayload)
	}

	items := *payload.Items
	if err := validate(items); err != nil {
		return nil, err
	}
	return items, nil
}

func validate(items []models.CartItem) error {
	seen := make(map[models.ItemID]struct{}, len(items))
	var total int64
	for i, item := range items {
		if item.ID == "" {
			return fmt.Errorf("%w: item %d has no id", ErrMalformedPayload, i)
		}
		if _, ok := seen[item.ID]; ok {
			return fmt.Errorf("%w: duplicate item id %q", ErrMalformedPayload, item.ID)
		}
		seen[item.ID] = struct{}{}

		if item.Price < 0 {
			return fmt.Errorf("%w: item %q has negative price", ErrMalformedPayload, item.ID)
		}
		if item.Quantity < 1 {
			return fmt.Errorf("%w: item %q has quantity %d", ErrMalformedPayload, item.ID, item.Quantity)
		}

		sub, err := money.Subtotal(item.Price, item.Quantity)
		if err == nil {
			total, err = money.Add(total, sub)
		}
		if err != nil {
			return fmt.Errorf("%w: item %q: %v", ErrMalformedPayload, item.ID, err)
		}
	}
	return nil
}
