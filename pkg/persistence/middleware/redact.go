package middleware

import (
	"context"
	"fmt"
	"regexp"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
)

// Mask replaces every redacted match.
const Mask = "***"

type redactionMiddleware struct {
	passthrough
	patterns []*regexp.Regexp
}

// NewRedactionMiddleware creates a middleware that masks text matching any of the
// patterns in titles, questions, links and images before they reach the store.
// The tree passed to Save is left untouched.
func NewRedactionMiddleware(patternStrings []string) (Middleware, error) {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid redaction pattern %q: %w", p, err)
		}
		patterns[i] = re
	}
	return func(next ports.TreeStore) ports.TreeStore {
		return &redactionMiddleware{passthrough: passthrough{next: next}, patterns: patterns}
	}, nil
}

func (m *redactionMiddleware) Save(ctx context.Context, key string, root *domain.Node) error {
	cloned := root.Clone()
	cloned.Walk(func(n *domain.Node, _ int) bool {
		for _, field := range []*string{&n.Title, &n.Image, &n.Question, &n.Link} {
			*field = m.mask(*field)
		}
		return true
	})
	return m.next.Save(ctx, key, cloned)
}

func (m *redactionMiddleware) mask(s string) string {
	for _, re := range m.patterns {
		s = re.ReplaceAllString(s, Mask)
	}
	return s
}
