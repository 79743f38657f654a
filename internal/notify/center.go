// Package notify holds transient user-facing messages, each with its own
// auto-dismiss timer.
package notify

import (
	"sync"
	"time"

	"github.com/fjod/sillage/internal/domain"
)

const (
	DefaultDuration = 3 * time.Second
	ErrorDuration   = 4 * time.Second
)

type Center struct {
	mu     sync.Mutex
	nextID int64
	items  []domain.Notification
	timers map[int64]*time.Timer
	closed bool
	now    func() time.Time
}

func New() *Center {
	return &Center{
		timers: make(map[int64]*time.Timer),
		now:    time.Now,
	}
}

// Notify queues a message and returns its id. A non-positive duration keeps
// the message until Dismiss is called. Unknown kinds are shown as info.
func (c *Center) Notify(message string, kind domain.NotificationKind, duration time.Duration) int64 {
	if !kind.Valid() {
		kind = domain.KindInfo
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	id := c.nextID
	c.items = append(c.items, domain.Notification{
		ID:        id,
		Message:   message,
		Kind:      kind,
		CreatedAt: c.now(),
	})

	if duration > 0 && !c.closed {
		c.timers[id] = time.AfterFunc(duration, func() { c.Dismiss(id) })
	}
	return id
}

func (c *Center) Success(message string) int64 {
	return c.Notify(message, domain.KindSuccess, DefaultDuration)
}

func (c *Center) Error(message string) int64 {
	return c.Notify(message, domain.KindError, ErrorDuration)
}

func (c *Center) Info(message string) int64 {
	return c.Notify(message, domain.KindInfo, DefaultDuration)
}

func (c *Center) Warning(message string) int64 {
	return c.Notify(message, domain.KindWarning, DefaultDuration)
}

// Dismiss removes one notification and stops its timer. Others are untouched.
func (c *Center) Dismiss(id int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if t, ok := c.timers[id]; ok {
		t.Stop()
		delete(c.timers, id)
	}
	for i, n := range c.items {
		if n.ID == id {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return true
		}
	}
	return false
}

// List returns the active notifications in insertion order.
func (c *Center) List() []domain.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]domain.Notification, len(c.items))
	copy(out, c.items)
	return out
}

// Close stops every pending timer. Notifications already queued stay listed.
func (c *Center) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for id, t := range c.timers {
		t.Stop()
		delete(c.timers, id)
	}
	c.closed = true
}
