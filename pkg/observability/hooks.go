package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/arbor/pkg/domain"
)

// LogHooks returns lifecycle hooks that write each event to logger.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnSave: func(ctx context.Context, e *domain.TreeEvent) {
			attrs := []any{"key", e.Key}
			if e.Diff != nil {
				attrs = append(attrs,
					"added", len(e.Diff.Added),
					"removed", len(e.Diff.Removed),
					"changed", len(e.Diff.Changed),
				)
			}
			logger.InfoContext(ctx, "tree_saved", attrs...)
		},
		OnDelete: func(ctx context.Context, e *domain.TreeEvent) {
			logger.InfoContext(ctx, "tree_deleted", "key", e.Key)
		},
		OnCompile: func(ctx context.Context, e *domain.CompileEvent) {
			logger.DebugContext(ctx, "diagram_compiled",
				"key", e.Key,
				"format", e.Format,
				"elements", e.Elements,
				"unresolved", e.Unresolved,
				"duration", e.Duration,
			)
		},
	}
}

// Combine fans each event out to every set of hooks, in order.
func Combine(hooks ...domain.LifecycleHooks) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnSave: func(ctx context.Context, e *domain.TreeEvent) {
			for _, h := range hooks {
				if h.OnSave != nil {
					h.OnSave(ctx, e)
				}
			}
		},
		OnDelete: func(ctx context.Context, e *domain.TreeEvent) {
			for _, h := range hooks {
				if h.OnDelete != nil {
					h.OnDelete(ctx, e)
				}
			}
		},
		OnCompile: func(ctx context.Context, e *domain.CompileEvent) {
			for _, h := range hooks {
				if h.OnCompile != nil {
					h.OnCompile(ctx, e)
				}
			}
		},
	}
}
