package cart

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/fjod/sillage/internal/domain"
	"github.com/fjod/sillage/internal/events"
	"github.com/fjod/sillage/internal/storage"
	"go.uber.org/zap"
)

// StorageKey is the fixed key the cart is persisted under.
const StorageKey = "perfume-cart"

// Store owns the cart line items. Every command runs under the store mutex,
// persists the whole collection and then emits a domain event.
type Store struct {
	mu        sync.RWMutex
	items     []domain.LineItem
	pricing   domain.Pricing
	storage   storage.Store
	publisher events.Publisher
	logger    *zap.Logger
}

type Option func(*Store)

func WithPricing(p domain.Pricing) Option {
	return func(s *Store) { s.pricing = p }
}

func WithPublisher(p events.Publisher) Option {
	return func(s *Store) { s.publisher = p }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New builds a cart and rehydrates it from st. Unreadable state yields an empty cart.
func New(ctx context.Context, st storage.Store, opts ...Option) *Store {
	s := &Store{
		pricing:   domain.DefaultPricing(),
		storage:   st,
		publisher: events.NopPublisher{},
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.items = s.load(ctx)
	return s
}

func (s *Store) load(ctx context.Context) []domain.LineItem {
	raw, err := s.storage.Get(ctx, StorageKey)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("cart load failed, starting empty", zap.Error(err))
		}
		return nil
	}

	var stored []domain.LineItem
	if err := json.Unmarshal(raw, &stored); err != nil {
		s.logger.Warn("cart state unparseable, starting empty", zap.Error(err))
		return nil
	}

	items := make([]domain.LineItem, 0, len(stored))
	seen := make(map[string]struct{}, len(stored))
	for _, item := range stored {
		if item.Quantity > item.Size.Stock {
			s.logger.Warn("cart line above stock, clamping",
				zap.String("line_item_id", item.ID),
				zap.Int("quantity", item.Quantity),
				zap.Int("stock", item.Size.Stock))
			item.Quantity = item.Size.Stock
		}
		if item.Quantity < 1 || item.ID == "" {
			continue
		}
		if _, dup := seen[item.ID]; dup {
			continue
		}
		seen[item.ID] = struct{}{}
		items = append(items, item)
	}
	return items
}

// persist must be called with s.mu held.
func (s *Store) persist(ctx context.Context) {
	var err error
	if len(s.items) == 0 {
		err = s.storage.Delete(ctx, StorageKey)
	} else {
		var raw []byte
		raw, err = json.Marshal(s.items)
		if err == nil {
			err = s.storage.Set(ctx, StorageKey, raw)
		}
	}
	if err == nil {
		return
	}

	var perr *storage.PersistenceError
	if !errors.As(err, &perr) {
		err = &storage.PersistenceError{Op: "save", Key: StorageKey, Err: err}
	}
	s.logger.Error("cart persist failed", zap.Error(err))
}

func (s *Store) publish(ctx context.Context, eventType string, payload map[string]any) {
	if err := s.publisher.Publish(ctx, events.Event{Type: eventType, Payload: payload}); err != nil {
		s.logger.Warn("cart event publish failed", zap.String("event", eventType), zap.Error(err))
	}
}

func (s *Store) indexOf(id string) int {
	for i, item := range s.items {
		if item.ID == id {
			return i
		}
	}
	return -1
}

// AddItem puts quantity units of size into the cart, merging with an existing
// line for the same product and size. A merge past stock is rejected whole.
func (s *Store) AddItem(ctx context.Context, product domain.Product, size *domain.Size, quantity int) Result {
	if size == nil {
		return Result{Outcome: OutcomeSizeRequired, Message: msgSelectSize}
	}
	if quantity < 1 {
		return Result{Outcome: OutcomeInvalidQuantity, Message: msgInvalidQuantity}
	}
	if !size.IsAvailable || size.Stock < quantity {
		return Result{Outcome: OutcomeOutOfStock, Message: msgOutOfStock}
	}

	s.mu.Lock()
	id := domain.LineItemID(product.ID, size.ID)
	var (
		res     Result
		event   string
		lineQty int
	)
	if i := s.indexOf(id); i >= 0 {
		newQty := s.items[i].Quantity + quantity
		if newQty > size.Stock {
			s.mu.Unlock()
			return Result{Outcome: OutcomeStockLimit, Message: stockLimitInStock(size.Stock)}
		}
		// the merge was checked against the fresh size, so it becomes the line's bound
		s.items[i].Size = domain.NewLineItem(product, *size, newQty).Size
		s.items[i].Quantity = newQty
		res = Result{Outcome: OutcomeMerged, Message: msgMerged}
		event, lineQty = events.TypeCartItemUpdated, newQty
	} else {
		s.items = append(s.items, domain.NewLineItem(product, *size, quantity))
		res = Result{Outcome: OutcomeAdded, Message: msgAdded}
		event, lineQty = events.TypeCartItemAdded, quantity
	}
	s.persist(ctx)
	s.mu.Unlock()

	s.publish(ctx, event, map[string]any{
		"line_item_id": id,
		"product_id":   product.ID,
		"size_id":      size.ID,
		"quantity":     lineQty,
	})
	return res
}

// RemoveItem deletes the line. Removing an absent id still succeeds.
func (s *Store) RemoveItem(ctx context.Context, id string) Result {
	s.mu.Lock()
	removed := false
	if i := s.indexOf(id); i >= 0 {
		s.items = append(s.items[:i], s.items[i+1:]...)
		removed = true
	}
	s.persist(ctx)
	s.mu.Unlock()

	if removed {
		s.publish(ctx, events.TypeCartItemRemoved, map[string]any{"line_item_id": id})
	}
	return Result{Outcome: OutcomeRemoved, Message: msgRemoved}
}

// UpdateQuantity adjusts a line by delta. The quantity never drops below 1
// nor rises above the stock captured in the size snapshot.
func (s *Store) UpdateQuantity(ctx context.Context, id string, delta int) Result {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return Result{Outcome: OutcomeItemNotFound, Message: msgItemNotFound}
	}

	item := s.items[i]
	newQty := item.Quantity + delta
	if newQty < 1 || delta == 0 {
		s.mu.Unlock()
		return Result{Outcome: OutcomeUnchanged}
	}
	if newQty > item.Size.Stock {
		s.mu.Unlock()
		return Result{Outcome: OutcomeStockLimit, Message: stockLimit(item.Size.Stock)}
	}

	s.items[i].Quantity = newQty
	s.persist(ctx)
	s.mu.Unlock()

	s.publish(ctx, events.TypeCartItemUpdated, map[string]any{
		"line_item_id": id,
		"product_id":   item.Product.ID,
		"size_id":      item.Size.ID,
		"quantity":     newQty,
	})
	return Result{Outcome: OutcomeQuantityUpdated, Message: msgQuantityUpdated}
}

// Clear empties the cart and drops the persisted key.
func (s *Store) Clear(ctx context.Context) Result {
	s.mu.Lock()
	s.items = nil
	s.persist(ctx)
	s.mu.Unlock()

	s.publish(ctx, events.TypeCartCleared, nil)
	return Result{Outcome: OutcomeCleared, Message: msgCleared}
}

func (s *Store) IsInCart(productID, sizeID string) bool {
	_, ok := s.GetItem(productID, sizeID)
	return ok
}

func (s *Store) GetItem(productID, sizeID string) (domain.LineItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexOf(domain.LineItemID(productID, sizeID)); i >= 0 {
		return s.items[i], true
	}
	return domain.LineItem{}, false
}

// Items returns a copy of the line items in insertion order.
func (s *Store) Items() []domain.LineItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.LineItem, len(s.items))
	copy(out, s.items)
	return out
}

// Totals is recomputed from the current items on every call.
func (s *Store) Totals() domain.Totals {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pricing.Compute(s.items)
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Snapshot returns the items and the totals derived from them under one lock.
func (s *Store) Snapshot() ([]domain.LineItem, domain.Totals) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.LineItem, len(s.items))
	copy(out, s.items)
	return out, s.pricing.Compute(s.items)
}
