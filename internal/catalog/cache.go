package catalog

import (
	"context"
	"sync"
	"time"

	"github.com/fjod/sillage/internal/domain"
	"golang.org/x/sync/singleflight"
)

type cacheEntry struct {
	product   *domain.Product
	expiresAt time.Time
}

// CachedRepository memoizes product lookups per id. Concurrent misses for the
// same id share one database read.
type CachedRepository struct {
	repo RepoInterface
	ttl  time.Duration
	now  func() time.Time

	mu      sync.RWMutex
	entries map[string]cacheEntry
	sfg     singleflight.Group
}

func NewCachedRepository(repo RepoInterface, ttl time.Duration) *CachedRepository {
	return &CachedRepository{
		repo:    repo,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
	}
}

func (c *CachedRepository) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	c.mu.RLock()
	e, ok := c.entries[id]
	c.mu.RUnlock()
	if ok && c.now().Before(e.expiresAt) {
		return e.product, nil
	}

	v, err, _ := c.sfg.Do(id, func() (interface{}, error) {
		p, err := c.repo.GetProduct(ctx, id)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[id] = cacheEntry{product: p, expiresAt: c.now().Add(c.ttl)}
		c.mu.Unlock()
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Product), nil
}

func (c *CachedRepository) ListProducts(ctx context.Context) ([]*domain.Product, error) {
	return c.repo.ListProducts(ctx)
}

func (c *CachedRepository) UpsertProduct(ctx context.Context, p *domain.Product) error {
	if err := c.repo.UpsertProduct(ctx, p); err != nil {
		return err
	}
	c.Invalidate(p.ID)
	return nil
}

func (c *CachedRepository) Invalidate(id string) {
	c.mu.Lock()
	delete(c.entries, id)
	c.mu.Unlock()
}

var _ RepoInterface = (*CachedRepository)(nil)
