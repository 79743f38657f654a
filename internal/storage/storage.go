package storage

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get when nothing is stored under the key.
var ErrNotFound = errors.New("key not found")

// Store is a synchronous key/value persistence capability. Values are
// serialized text; every Set overwrites the whole value.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// PersistenceError wraps a backend failure. Stores log it and degrade; it is
// never shown to a user.
type PersistenceError struct {
	Op  string
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func persistenceErr(op, key string, err error) error {
	return &PersistenceError{Op: op, Key: key, Err: err}
}

type namespaced struct {
	store  Store
	prefix string
}

// Namespace scopes every key of s under prefix, e.g. one browsing session.
func Namespace(s Store, prefix string) Store {
	if prefix == "" {
		return s
	}
	return &namespaced{store: s, prefix: prefix}
}

func (n *namespaced) key(k string) string {
	return n.prefix + ":" + k
}

func (n *namespaced) Get(ctx context.Context, key string) ([]byte, error) {
	return n.store.Get(ctx, n.key(key))
}

func (n *namespaced) Set(ctx context.Context, key string, value []byte) error {
	return n.store.Set(ctx, n.key(key), value)
}

func (n *namespaced) Delete(ctx context.Context, key string) error {
	return n.store.Delete(ctx, n.key(key))
}
