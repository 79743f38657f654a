package orders

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fjod/sillage/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

const maxResponseBody = 1 << 20

type Config struct {
	BaseURL string
	Timeout time.Duration
	// ConsecutiveFailures opens the breaker; OpenTimeout is how long it stays open.
	ConsecutiveFailures uint32
	OpenTimeout         time.Duration
}

// Client talks to the order backend that owns order truth.
type Client struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[*response]
	logger  *zap.Logger
}

type response struct {
	status int
	body   []byte
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

func WithLogger(l *zap.Logger) Option {
	return func(cl *Client) { cl.logger = l }
}

func NewClient(cfg Config, opts ...Option) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.ConsecutiveFailures == 0 {
		cfg.ConsecutiveFailures = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}

	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.breaker = gobreaker.NewCircuitBreaker[*response](gobreaker.Settings{
		Name:        "orders-backend",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		IsSuccessful: func(err error) bool {
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				return apiErr.Status < http.StatusInternalServerError
			}
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return c
}

type Tracking struct {
	TrackingCode string `json:"trackingCode"`
}

type OrderSummary struct {
	ID           string             `json:"_id"`
	TrackingCode string             `json:"trackingCode"`
	Status       domain.OrderStatus `json:"status"`
	TotalPrice   decimal.Decimal    `json:"totalPrice"`
}

// OrderResponse is the backend reply to order creation. Older backends put the
// tracking code under data, newer ones under tracking.
type OrderResponse struct {
	Success  bool          `json:"success"`
	Message  string        `json:"message,omitempty"`
	Tracking *Tracking     `json:"tracking,omitempty"`
	Data     *OrderSummary `json:"data,omitempty"`
}

func (r *OrderResponse) TrackingCode() string {
	if r.Tracking != nil && r.Tracking.TrackingCode != "" {
		return r.Tracking.TrackingCode
	}
	if r.Data != nil {
		return r.Data.TrackingCode
	}
	return ""
}

// CreateOrder submits the order. idempotencyKey is forwarded so that a retried
// submission does not create a second order.
func (c *Client) CreateOrder(ctx context.Context, payload domain.OrderRequest, idempotencyKey string) (*OrderResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal order: %w", err)
	}

	headers := http.Header{}
	if idempotencyKey != "" {
		headers.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.do(ctx, http.MethodPost, "/orders", nil, body, headers)
	if err != nil {
		return nil, err
	}

	var out OrderResponse
	if err := json.Unmarshal(resp.body, &out); err != nil {
		return nil, fmt.Errorf("decode order response: %w", err)
	}
	return &out, nil
}

// NormalizeTrackingCode trims and upper-cases a user-entered tracking code.
func NormalizeTrackingCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (c *Client) TrackOrder(ctx context.Context, trackingCode, phoneLastDigits string) (*domain.TrackedOrder, error) {
	q := url.Values{}
	q.Set("trackingCode", NormalizeTrackingCode(trackingCode))
	q.Set("phoneLastDigits", strings.TrimSpace(phoneLastDigits))

	resp, err := c.do(ctx, http.MethodGet, "/orders/track", q, nil, nil)
	if err != nil {
		return nil, err
	}

	var envelope struct {
		Data *domain.TrackedOrder `json:"data"`
	}
	if err := json.Unmarshal(resp.body, &envelope); err != nil {
		return nil, fmt.Errorf("decode tracked order: %w", err)
	}
	if envelope.Data == nil {
		return nil, &APIError{Status: http.StatusNotFound, Message: "Order not found"}
	}
	return envelope.Data, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body []byte, headers http.Header) (*response, error) {
	return c.breaker.Execute(func() (*response, error) {
		u := c.baseURL + path
		if len(query) > 0 {
			u += "?" + query.Encode()
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, u, reader)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		for k, vs := range headers {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}

		res, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", method, path, err)
		}
		defer res.Body.Close()

		raw, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBody))
		if err != nil {
			return nil, fmt.Errorf("read %s response: %w", path, err)
		}
		if res.StatusCode < 200 || res.StatusCode >= 300 {
			return nil, newAPIError(res.StatusCode, raw)
		}
		return &response{status: res.StatusCode, body: raw}, nil
	})
}
