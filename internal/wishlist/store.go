package wishlist

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

const StorageKey = "perfume-wishlist"

const (
	msgAdded   = "Added to wishlist!"
	msgRemoved = "Removed from wishlist"
	msgCleared = "Wishlist cleared"
)

// Result reports a wishlist mutation. Added tells whether the product is a
// member afterwards.
type Result struct {
	Success bool   `json:"success"`
	Added   bool   `json:"added"`
	Message string `json:"message"`
}

// Store is the set of liked products in insertion order, keyed by product id.
type Store struct {
	mu        sync.RWMutex
	entries   []domain.WishlistEntry
	storage   storage.Store
	publisher events.Publisher
	logger    *zap.Logger
}

type Option func(*Store)

func WithPublisher(p events.Publisher) Option {
	return func(s *Store) { s.publisher = p }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = l }
}

func New(ctx context.Context, st storage.Store, opts ...Option) *Store {
	s := &Store{
		storage:   st,
		publisher: events.NopPublisher{},
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.entries = s.load(ctx)
	return s
}

func (s *Store) load(ctx context.Context) []domain.WishlistEntry {
	raw, err := s.storage.Get(ctx, StorageKey)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("wishlist load failed, starting empty", zap.Error(err))
		}
		return nil
	}

	var stored []domain.WishlistEntry
	if err := json.Unmarshal(raw, &stored); err != nil {
		s.logger.Warn("wishlist state unparseable, starting empty", zap.Error(err))
		return nil
	}

	entries := make([]domain.WishlistEntry, 0, len(stored))
	seen := make(map[string]struct{}, len(stored))
	for _, e := range stored {
		if _, dup := seen[e.ID]; dup || e.ID == "" {
			continue
		}
		seen[e.ID] = struct{}{}
		entries = append(entries, e)
	}
	return entries
}

// persist must be called with s.mu held.
func (s *Store) persist(ctx context.Context) {
	var err error
	if len(s.entries) == 0 {
		err = s.storage.Delete(ctx, StorageKey)
	} else {
		var raw []byte
		if raw, err = json.Marshal(s.entries); err == nil {
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
	s.logger.Error("wishlist persist failed", zap.Error(err))
}

func (s *Store) publish(ctx context.Context, eventType, productID string) {
	e := events.Event{Type: eventType, Payload: map[string]any{"product_id": productID}}
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.logger.Warn("wishlist event publish failed", zap.String("event", eventType), zap.Error(err))
	}
}

func (s *Store) indexOf(productID string) int {
	for i, e := range s.entries {
		if e.ID == productID {
			return i
		}
	}
	return -1
}

// Add is idempotent: adding a member again changes nothing and still succeeds.
func (s *Store) Add(ctx context.Context, product domain.Product) Result {
	s.mu.Lock()
	if s.indexOf(product.ID) >= 0 {
		s.mu.Unlock()
		return Result{Success: true, Added: true, Message: msgAdded}
	}
	s.entries = append(s.entries, domain.NewWishlistEntry(product))
	s.persist(ctx)
	s.mu.Unlock()

	s.publish(ctx, events.TypeWishlistItemAdded, product.ID)
	return Result{Success: true, Added: true, Message: msgAdded}
}

func (s *Store) Remove(ctx context.Context, productID string) Result {
	s.mu.Lock()
	i := s.indexOf(productID)
	if i < 0 {
		s.mu.Unlock()
		return Result{Success: true, Message: msgRemoved}
	}
	s.entries = append(s.entries[:i], s.entries[i+1:]...)
	s.persist(ctx)
	s.mu.Unlock()

	s.publish(ctx, events.TypeWishlistItemRemoved, productID)
	return Result{Success: true, Message: msgRemoved}
}

// Toggle removes a member or adds a non-member.
func (s *Store) Toggle(ctx context.Context, product domain.Product) Result {
	if s.IsMember(product.ID) {
		return s.Remove(ctx, product.ID)
	}
	return s.Add(ctx, product)
}

func (s *Store) Clear(ctx context.Context) Result {
	s.mu.Lock()
	s.entries = nil
	s.persist(ctx)
	s.mu.Unlock()
	return Result{Success: true, Message: msgCleared}
}

func (s *Store) IsMember(productID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexOf(productID) >= 0
}

func (s *Store) Items() []domain.WishlistEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.WishlistEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
