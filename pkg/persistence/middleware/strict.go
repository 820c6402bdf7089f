package middleware

import (
	"context"

	"github.com/aretw0/arbor/internal/validator"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
)

type strictMiddleware struct {
	passthrough
}

// NewStrictMiddleware rejects saves of trees with structural issues
// (duplicate or missing ids, dangling internal links) with domain.ErrInvalidTree.
func NewStrictMiddleware() Middleware {
	return func(next ports.TreeStore) ports.TreeStore {
		return &strictMiddleware{passthrough: passthrough{next: next}}
	}
}

func (m *strictMiddleware) Save(ctx context.Context, key string, root *domain.Node) error {
	if err := validator.ValidateTree(root); err != nil {
		return err
	}
	return m.next.Save(ctx, key, root)
}
