package observability_test

import (
	"bytes"
	"context"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Hooks(t *testing.T) {
	m := observability.NewMetrics("")
	hooks := m.Hooks()
	ctx := context.Background()

	hooks.OnSave(ctx, &domain.TreeEvent{Diff: &domain.TreeDiff{Added: []int{2, 3}, Removed: []int{4}}})
	hooks.OnSave(ctx, &domain.TreeEvent{})
	hooks.OnDelete(ctx, &domain.TreeEvent{})
	hooks.OnCompile(ctx, &domain.CompileEvent{Format: "mermaid", Unresolved: 2, Duration: time.Millisecond})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.TreesSaved))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TreesDeleted))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.NodesAdded))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NodesRemoved))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Compilations.WithLabelValues("mermaid")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.UnresolvedLinks.WithLabelValues("mermaid")))
}

func TestMetrics_IndependentRegistries(t *testing.T) {
	a := observability.NewMetrics("")
	b := observability.NewMetrics("")
	a.TreesSaved.Inc()

	assert.Equal(t, 0.0, testutil.ToFloat64(b.TreesSaved))
}

func TestMetrics_Handler(t *testing.T) {
	m := observability.NewMetrics("test")
	m.ObserveHTTP("GET", "/trees", 200, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), `test_http_requests_total{method="GET",route="/trees",status="200"} 1`)
}

func TestCombine_LogHooks(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	m := observability.NewMetrics("")

	hooks := observability.Combine(m.Hooks(), observability.LogHooks(logger), domain.LifecycleHooks{})
	hooks.OnSave(context.Background(), &domain.TreeEvent{EventBase: domain.EventBase{Key: "k"}})
	hooks.OnCompile(context.Background(), &domain.CompileEvent{Format: "graphviz"})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.TreesSaved))
	assert.Contains(t, buf.String(), "tree_saved")
	assert.Contains(t, buf.String(), "key=k")
	assert.Contains(t, buf.String(), "diagram_compiled")
}
