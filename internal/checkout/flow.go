package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/fjod/sillage/internal/cart"
	"github.com/fjod/sillage/internal/domain"
	"github.com/fjod/sillage/internal/events"
	"github.com/fjod/sillage/internal/orders"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrSubmissionInFlight = errors.New("checkout: submission already in flight")
	ErrValidation         = errors.New("checkout: form is invalid")
	ErrEmptyCart          = errors.New("checkout: cart is empty")
	ErrNotEditable        = errors.New("checkout: form is not editable")
	ErrUnknownField       = errors.New("checkout: unknown field")
)

const (
	msgFixForm     = "Please fill in all required fields correctly"
	msgOrderPlaced = "Order placed successfully!"
	msgOrderFailed = "Failed to place order"
	msgCartIsEmpty = "Your cart is empty"
)

type State int

const (
	StateEditing State = iota
	StateValidating
	StateSubmitting
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateEditing:
		return "editing"
	case StateValidating:
		return "validating"
	case StateSubmitting:
		return "submitting"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	for c := StateEditing; c <= StateFailed; c++ {
		if c.String() == string(text) {
			*s = c
			return nil
		}
	}
	return fmt.Errorf("unknown checkout state %q", text)
}

// OrderCreator is the order backend capability checkout depends on.
type OrderCreator interface {
	CreateOrder(ctx context.Context, payload domain.OrderRequest, idempotencyKey string) (*orders.OrderResponse, error)
}

type CartSource interface {
	Items() []domain.LineItem
	Clear(ctx context.Context) cart.Result
}

type Notifier interface {
	Success(message string) int64
	Error(message string) int64
}

// View is a read-only copy of the flow for rendering.
type View struct {
	State        State             `json:"state"`
	Form         Form              `json:"form"`
	Errors       map[string]string `json:"errors,omitempty"`
	TrackingCode string            `json:"trackingCode,omitempty"`
	LastError    string            `json:"lastError,omitempty"`
	Governorates []string          `json:"governorates"`
}

// Flow drives one checkout form. At most one submission is outstanding.
type Flow struct {
	mu           sync.Mutex
	state        State
	form         Form
	errors       map[string]string
	trackingCode string
	lastError    string
	// idempotencyKey survives failed attempts so a retry cannot double-order.
	// It is bound to the payload it was minted for.
	idempotencyKey string
	keyPayload     uint64

	creator            OrderCreator
	cart               CartSource
	notifier           Notifier
	publisher          events.Publisher
	logger             *zap.Logger
	validate           func(Form) map[string]string
	clearCartOnSuccess bool
	newKey             func() string
}

type Option func(*Flow)

// WithClearCartOnSuccess controls whether a placed order empties the cart. Default true.
func WithClearCartOnSuccess(clear bool) Option {
	return func(f *Flow) { f.clearCartOnSuccess = clear }
}

func WithPublisher(p events.Publisher) Option {
	return func(f *Flow) { f.publisher = p }
}

func WithLogger(l *zap.Logger) Option {
	return func(f *Flow) { f.logger = l }
}

func New(creator OrderCreator, cartSource CartSource, notifier Notifier, opts ...Option) *Flow {
	v := newValidator()
	f := &Flow{
		state:              StateEditing,
		errors:             make(map[string]string),
		creator:            creator,
		cart:               cartSource,
		notifier:           notifier,
		publisher:          events.NopPublisher{},
		logger:             zap.NewNop(),
		validate:           func(form Form) map[string]string { return validate(v, form) },
		clearCartOnSuccess: true,
		newKey:             uuid.NewString,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// transition must be called with f.mu held.
func (f *Flow) transition(to State) {
	f.logger.Debug("checkout state change",
		zap.Stringer("from", f.state),
		zap.Stringer("to", to))
	f.state = to
}

// SetField edits one field and clears only that field's error.
func (f *Flow) SetField(name, value string) error {
	return f.SetFields(map[string]string{name: value})
}

// SetFields edits several fields at once. Either every field is applied or,
// when one name is unknown, none is.
func (f *Flow) SetFields(fields map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != StateEditing {
		return fmt.Errorf("%w: %s", ErrNotEditable, f.state)
	}
	names := slices.Sorted(maps.Keys(fields))
	next := f.form
	for _, name := range names {
		if !next.set(name, fields[name]) {
			return fmt.Errorf("%w: %q", ErrUnknownField, name)
		}
	}

	f.form = next
	for _, name := range names {
		delete(f.errors, name)
	}
	return nil
}

// Submit validates the form and, when valid, places the order from the
// current cart. Validation failures return ErrValidation without calling
// the backend. Backend failures keep the form for a retry.
func (f *Flow) Submit(ctx context.Context) (string, error) {
	f.mu.Lock()
	switch f.state {
	case StateSubmitting, StateValidating:
		f.mu.Unlock()
		return "", ErrSubmissionInFlight
	case StateSucceeded:
		f.mu.Unlock()
		return "", fmt.Errorf("%w: %s", ErrNotEditable, f.state)
	}

	f.transition(StateValidating)
	if errs := f.validate(f.form); len(errs) > 0 {
		f.errors = errs
		f.transition(StateEditing)
		f.mu.Unlock()
		f.notifier.Error(msgFixForm)
		return "", ErrValidation
	}
	clear(f.errors)

	items := f.cart.Items()
	if len(items) == 0 {
		f.transition(StateEditing)
		f.mu.Unlock()
		f.notifier.Error(msgCartIsEmpty)
		return "", ErrEmptyCart
	}

	payload := f.form.Payload(items)
	sum, ok := payloadSum(payload)
	if f.idempotencyKey == "" || !ok || sum != f.keyPayload {
		f.idempotencyKey = f.newKey()
		f.keyPayload = sum
	}
	key := f.idempotencyKey
	f.lastError = ""
	f.transition(StateSubmitting)
	f.mu.Unlock()

	resp, err := f.creator.CreateOrder(ctx, payload, key)
	if err != nil {
		msg := orders.Message(err, msgOrderFailed)
		f.mu.Lock()
		f.transition(StateFailed)
		f.lastError = msg
		f.transition(StateEditing)
		f.mu.Unlock()

		f.logger.Warn("order submission failed", zap.Error(err))
		f.notifier.Error(msg)
		return "", fmt.Errorf("create order: %w", err)
	}

	code := resp.TrackingCode()
	f.mu.Lock()
	f.trackingCode = code
	f.idempotencyKey, f.keyPayload = "", 0
	f.transition(StateSucceeded)
	f.mu.Unlock()

	f.notifier.Success(msgOrderPlaced)
	if f.clearCartOnSuccess {
		f.cart.Clear(ctx)
	}
	if err := f.publisher.Publish(ctx, events.Event{
		Type: events.TypeOrderPlaced,
		Payload: map[string]any{
			"tracking_code": code,
			"items":         payload.Items,
		},
	}); err != nil {
		f.logger.Warn("order event publish failed", zap.Error(err))
	}
	return code, nil
}

// payloadSum fingerprints an order payload. ok is false when it cannot be
// encoded, in which case no earlier key may be reused.
func payloadSum(payload domain.OrderRequest) (uint64, bool) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return 0, false
	}
	return xxhash.Sum64(raw), true
}

// ContinueShopping resets the form to empty Editing after a placed order.
func (f *Flow) ContinueShopping() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state == StateSubmitting {
		return
	}
	f.form = Form{}
	f.errors = make(map[string]string)
	f.trackingCode = ""
	f.lastError = ""
	f.idempotencyKey, f.keyPayload = "", 0
	f.transition(StateEditing)
}

func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *Flow) View() View {
	f.mu.Lock()
	defer f.mu.Unlock()

	return View{
		State:        f.state,
		Form:         f.form,
		Errors:       maps.Clone(f.errors),
		TrackingCode: f.trackingCode,
		LastError:    f.lastError,
		Governorates: Governorates,
	}
}
