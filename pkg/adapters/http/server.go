package http

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/pkg/codec"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/editor"
	"github.com/aretw0/arbor/pkg/identity"
	"github.com/aretw0/arbor/pkg/observability"
)

//go:embed openapi.yaml
var rawSpec []byte

// Workspace defines what the HTTP API needs from the arbor core.
type Workspace interface {
	List(ctx context.Context) ([]string, error)
	Create(ctx context.Context, key string) (*domain.Node, bool, error)
	Load(ctx context.Context, key string) (*domain.Node, error)
	Save(ctx context.Context, key string, root *domain.Node) (*domain.Node, error)
	Import(r io.Reader, format codec.Format) (*domain.Node, error)
	Delete(ctx context.Context, key string) error
	Edit(ctx context.Context, key string, fn func(*editor.Editor) error) (*domain.Node, error)
	Nodes(ctx context.Context, key string) ([]identity.Ref, error)
	Diagram(ctx context.Context, key string, format arbor.Format, opts arbor.DiagramOptions) (arbor.Diagram, error)
	Subscribe(key string) (<-chan *domain.TreeEvent, func())
}

var _ Workspace = (*arbor.Workspace)(nil)

// Server serves the tree API on top of a Workspace.
type Server struct {
	Workspace Workspace
	metrics   *observability.Metrics
	logger    *slog.Logger
	newKey    func() string
}

// Option configures the Server.
type Option func(*Server)

// WithMetrics exposes m on /metrics and records every request in it.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithLogger sets the logger for request failures. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithKeyGenerator replaces the generator of keys for trees created via POST /trees.
func WithKeyGenerator(fn func() string) Option {
	return func(s *Server) {
		s.newKey = fn
	}
}

// NewHandler creates a new HTTP handler for the workspace.
func NewHandler(ws Workspace, opts ...Option) http.Handler {
	s := &Server{
		Workspace: ws,
		logger:    slog.Default(),
		newKey:    newTreeKey,
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	if s.metrics != nil {
		r.Use(s.observe)
	}

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/openapi.yaml", s.GetSpec)
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(swaggerHTML))
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}
	r.Get("/events", s.SubscribeAllEvents)

	r.Route("/trees", func(r chi.Router) {
		r.Get("/", s.ListTrees)
		r.Post("/", s.CreateTree)
		r.Route("/{key}", func(r chi.Router) {
			r.Get("/", s.GetTree)
			r.Put("/", s.PutTree)
			r.Delete("/", s.DeleteTree)
			r.Get("/diagram", s.GetDiagram)
			r.Get("/diagram.svg", s.GetDiagramSVG)
			r.Get("/nodes", s.ListNodes)
			r.Get("/issues", s.ListIssues)
			r.Post("/nodes/{path}/children", s.AddChild)
			r.Patch("/nodes/{path}", s.UpdateNode)
			r.Delete("/nodes/{path}", s.RemoveNode)
			r.Get("/events", s.SubscribeTreeEvents)
		})
	})

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// observe records the request in the metrics under its route pattern, so that
// keys and paths do not explode label cardinality.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.metrics.ObserveHTTP(r.Method, route, status, time.Since(start))
	})
}

const swaggerHTML = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>Arbor API Documentation</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui.css" />
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui-bundle.js" crossorigin></script>
<script>
    window.onload = () => {
    window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui',
    });
    };
</script>
</body>
</html>
`

// GetSwagger returns the parsed and validated API description.
var GetSwagger = sync.OnceValues(func() (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(rawSpec)
	if err != nil {
		return nil, fmt.Errorf("failed to parse openapi document: %w", err)
	}
	if err := doc.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("invalid openapi document: %w", err)
	}
	return doc, nil
})

// GetSpec handles the GET /openapi.yaml request.
func (s *Server) GetSpec(w http.ResponseWriter, r *http.Request) {
	if _, err := GetSwagger(); err != nil {
		http.Error(w, "Failed to load spec", http.StatusInternalServerError)
		s.logger.Error("Failed to load OpenAPI spec", "err", err)
		return
	}
	w.Header().Set("Content-Type", "text/yaml")
	_, _ = w.Write(rawSpec)
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if swagger, err := GetSwagger(); err == nil && swagger.Info != nil {
		apiVersion = swagger.Info.Version
	}

	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":         "arbor-http",
		"version":     arbor.Version,
		"api_version": apiVersion,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Response encode failed", "err", err)
	}
}

// fail maps domain errors onto status codes. Server-side failures are logged as
// errors, client mistakes as warnings.
func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(op+" failed", "err", err)
	} else {
		s.logger.Warn(op+" rejected", "err", err, "status", status)
	}
	http.Error(w, fmt.Sprintf("%s error: %v", op, err), status)
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrTreeNotFound), errors.Is(err, domain.ErrNodeNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidPath),
		errors.Is(err, domain.ErrNotDecision),
		errors.Is(err, domain.ErrUnsupportedFormat),
		errors.Is(err, domain.ErrInvalidDirection),
		errors.Is(err, domain.ErrInvalidKey),
		errors.Is(err, domain.ErrTooDeep),
		errors.Is(err, domain.ErrInvalidTree):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
