package observability

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/arbor/pkg/domain"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "arbor"

// Metrics holds the Prometheus collectors of a workspace.
// Each instance owns its registry, so several workspaces (or tests) never collide
// on registration.
type Metrics struct {
	registry *prometheus.Registry

	TreesSaved   prometheus.Counter
	TreesDeleted prometheus.Counter
	NodesAdded   prometheus.Counter
	NodesRemoved prometheus.Counter

	Compilations    *prometheus.CounterVec
	CompileDuration *prometheus.HistogramVec
	UnresolvedLinks *prometheus.CounterVec

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// NewMetrics creates the collectors under namespace (DefaultNamespace when empty).
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	m := &Metrics{
		registry: prometheus.NewRegistry(),

		TreesSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trees_saved_total",
			Help:      "Total number of tree saves",
		}),
		TreesDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trees_deleted_total",
			Help:      "Total number of tree deletions",
		}),
		NodesAdded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nodes_added_total",
			Help:      "Total number of nodes added across saves",
		}),
		NodesRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nodes_removed_total",
			Help:      "Total number of nodes removed across saves",
		}),
		Compilations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "diagram_compilations_total",
			Help:      "Total number of generated diagrams",
		}, []string{"format"}),
		CompileDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "diagram_compile_duration_seconds",
			Help:      "Diagram generation duration in seconds",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
		}, []string{"format"}),
		UnresolvedLinks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "diagram_unresolved_links_total",
			Help:      "Internal links left out of diagrams because their target was not found",
		}, []string{"format"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	m.registry.MustRegister(
		m.TreesSaved,
		m.TreesDeleted,
		m.NodesAdded,
		m.NodesRemoved,
		m.Compilations,
		m.CompileDuration,
		m.UnresolvedLinks,
		m.HTTPRequests,
		m.HTTPDuration,
	)
	return m
}

// Registry exposes the underlying registry, e.g. for gathering in tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Hooks returns lifecycle hooks that feed the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnSave: func(_ context.Context, e *domain.TreeEvent) {
			m.TreesSaved.Inc()
			if e.Diff != nil {
				m.NodesAdded.Add(float64(len(e.Diff.Added)))
				m.NodesRemoved.Add(float64(len(e.Diff.Removed)))
			}
		},
		OnDelete: func(_ context.Context, _ *domain.TreeEvent) {
			m.TreesDeleted.Inc()
		},
		OnCompile: func(_ context.Context, e *domain.CompileEvent) {
			m.Compilations.WithLabelValues(e.Format).Inc()
			m.CompileDuration.WithLabelValues(e.Format).Observe(e.Duration.Seconds())
			if e.Unresolved > 0 {
				m.UnresolvedLinks.WithLabelValues(e.Format).Add(float64(e.Unresolved))
			}
		},
	}
}
