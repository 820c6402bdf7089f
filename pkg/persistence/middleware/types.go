// Package middleware wraps a ports.TreeStore to add behavior around persistence.
package middleware

import (
	"context"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
)

// Middleware allows wrapping a TreeStore to add behavior.
type Middleware func(ports.TreeStore) ports.TreeStore

// Chain applies mws to store. The first middleware is the outermost.
func Chain(store ports.TreeStore, mws ...Middleware) ports.TreeStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}

// Unwrapper is implemented by stores that wrap another store.
// Optional capabilities of the inner store (watching, closing) are reached through it.
type Unwrapper interface {
	Unwrap() ports.TreeStore
}

// As walks the Unwrap chain of store and returns the first store implementing T.
func As[T any](store ports.TreeStore) (T, bool) {
	for store != nil {
		if t, ok := store.(T); ok {
			return t, true
		}
		u, ok := store.(Unwrapper)
		if !ok {
			break
		}
		store = u.Unwrap()
	}
	var zero T
	return zero, false
}

// passthrough forwards every call to next. Middlewares embed it and override Save.
type passthrough struct {
	next ports.TreeStore
}

func (p passthrough) Unwrap() ports.TreeStore {
	return p.next
}

func (p passthrough) Load(ctx context.Context, key string) (*domain.Node, error) {
	return p.next.Load(ctx, key)
}

func (p passthrough) Delete(ctx context.Context, key string) error {
	return p.next.Delete(ctx, key)
}

func (p passthrough) List(ctx context.Context) ([]string, error) {
	return p.next.List(ctx)
}
