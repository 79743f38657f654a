package storefront

import (
	"context"
	"sync"
	"time"

	"github.com/fjod/sillage/internal/storage"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type session struct {
	sf       *Storefront
	lastSeen time.Time
}

// Registry maps session ids to storefronts, hydrating each lazily from storage.
type Registry struct {
	deps Deps
	now  func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
	sfg      singleflight.Group
}

func NewRegistry(deps Deps) *Registry {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Storage == nil {
		deps.Storage = storage.NewMemoryStore()
	}
	return &Registry{
		deps:     deps,
		now:      time.Now,
		sessions: make(map[string]*session),
	}
}

// Get returns the storefront for sessionID. Concurrent first requests for the
// same session share one hydration.
func (r *Registry) Get(ctx context.Context, sessionID string) *Storefront {
	r.mu.Lock()
	if s, ok := r.sessions[sessionID]; ok {
		s.lastSeen = r.now()
		r.mu.Unlock()
		return s.sf
	}
	r.mu.Unlock()

	// hydration outlives the request that triggered it
	hydrateCtx := context.WithoutCancel(ctx)
	v, _, _ := r.sfg.Do(sessionID, func() (interface{}, error) {
		r.mu.Lock()
		if s, ok := r.sessions[sessionID]; ok {
			r.mu.Unlock()
			return s.sf, nil
		}
		r.mu.Unlock()

		sf := New(hydrateCtx, sessionID, r.deps)

		r.mu.Lock()
		r.sessions[sessionID] = &session{sf: sf, lastSeen: r.now()}
		r.mu.Unlock()
		r.deps.Logger.Debug("session hydrated", zap.String("session_id", sessionID))
		return sf, nil
	})
	return v.(*Storefront)
}

// EvictIdle drops sessions not seen for maxIdle. Their cart and wishlist stay
// in storage and are rehydrated on the next request.
func (r *Registry) EvictIdle(maxIdle time.Duration) int {
	cutoff := r.now().Add(-maxIdle)

	r.mu.Lock()
	var evicted []*Storefront
	for id, s := range r.sessions {
		if s.lastSeen.Before(cutoff) {
			evicted = append(evicted, s.sf)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, sf := range evicted {
		sf.Close()
	}
	return len(evicted)
}

// RunEvictor calls EvictIdle every interval until ctx is done.
func (r *Registry) RunEvictor(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.EvictIdle(maxIdle); n > 0 {
				r.deps.Logger.Info("evicted idle sessions", zap.Int("count", n))
			}
		}
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.sessions {
		s.sf.Close()
		delete(r.sessions, id)
	}
}
