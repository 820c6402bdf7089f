package graph

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/domain"
)

// Format selects the diagram grammar.
type Format string

const (
	FormatMermaid  Format = "mermaid"
	FormatGraphviz Format = "graphviz"
)

// ParseFormat resolves a user supplied diagram format ("dot" is accepted for Graphviz).
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "mermaid", "mmd":
		return FormatMermaid, nil
	case "graphviz", "dot", "gv":
		return FormatGraphviz, nil
	default:
		return "", fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, s)
	}
}

// Direction is the Mermaid flowchart orientation.
type Direction string

const (
	DirectionTD Direction = "TD"
	DirectionTB Direction = "TB"
	DirectionBT Direction = "BT"
	DirectionLR Direction = "LR"
	DirectionRL Direction = "RL"
)

// ParseDirection validates a flowchart direction token. Empty means DirectionTD.
func ParseDirection(s string) (Direction, error) {
	d := Direction(strings.ToUpper(strings.TrimSpace(s)))
	switch d {
	case "":
		return DirectionTD, nil
	case DirectionTD, DirectionTB, DirectionBT, DirectionLR, DirectionRL:
		return d, nil
	default:
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidDirection, s)
	}
}

// Option configures diagram generation.
type Option func(*config)

type config struct {
	direction Direction
	highlight map[int]bool
	logger    *slog.Logger
}

func newConfig(opts []Option) *config {
	c := &config{
		direction: DirectionTD,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithDirection sets the Mermaid flowchart direction. Graphviz output is always TB.
func WithDirection(d Direction) Option {
	return func(c *config) {
		if d != "" {
			c.direction = d
		}
	}
}

// WithHighlight marks the elements of the given node ids with an extra Mermaid class.
func WithHighlight(ids ...int) Option {
	return func(c *config) {
		if len(ids) == 0 {
			return
		}
		if c.highlight == nil {
			c.highlight = make(map[int]bool, len(ids))
		}
		for _, id := range ids {
			c.highlight[id] = true
		}
	}
}

// WithLogger receives diagnostics such as unresolved internal links.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Warning describes a non-fatal omission in the generated diagram.
type Warning struct {
	NodeID   int    `json:"node_id"`
	TargetID string `json:"target_id"`
	Message  string `json:"message"`
}

// Result is the outcome of a diagram compilation.
type Result struct {
	Format   Format    `json:"format"`
	Text     string    `json:"text"`
	Elements int       `json:"elements"`
	Edges    int       `json:"edges"`
	Warnings []Warning `json:"warnings,omitempty"`
}

// Generate dispatches to the emitter for format.
func Generate(root *domain.Node, format Format, opts ...Option) (Result, error) {
	switch format {
	case FormatMermaid:
		return GenerateMermaid(root, opts...), nil
	case FormatGraphviz:
		return GenerateGraphviz(root, opts...), nil
	default:
		return Result{}, fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, format)
	}
}
