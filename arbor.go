package arbor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/internal/presentation/graph"
	"github.com/aretw0/arbor/internal/stream"
	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/codec"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/editor"
	"github.com/aretw0/arbor/pkg/identity"
	"github.com/aretw0/arbor/pkg/observability"
	"github.com/aretw0/arbor/pkg/persistence/middleware"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/aretw0/arbor/pkg/session"
)

// ErrWatchUnsupported is returned by Watch when the store has no change feed.
var ErrWatchUnsupported = errors.New("store does not support change notifications")

// Diagram is the outcome of compiling a tree.
type Diagram = graph.Result

// Format selects the diagram language.
type Format = graph.Format

const (
	FormatMermaid  = graph.FormatMermaid
	FormatGraphviz = graph.FormatGraphviz
)

// DiagramOptions tune a single compilation.
type DiagramOptions struct {
	// Direction overrides the workspace's Mermaid direction when set.
	Direction string
	// Highlight marks the nodes with these ids (Mermaid only).
	Highlight []int
}

// Workspace is the high-level entry point for the arbor library.
// It stores decision trees by key, edits them under per-key locks, compiles them to
// diagrams and notifies subscribers about every change.
type Workspace struct {
	sessions  *session.Manager
	store     ports.TreeStore
	locker    ports.DistributedLocker
	lockTTL   time.Duration
	metrics   *observability.Metrics
	hooks     domain.LifecycleHooks
	logger    *slog.Logger
	stream    *stream.Manager
	direction string
	dir       graph.Direction
	maxDepth  int

	mu   sync.Mutex
	last map[string][]byte
}

// Option defines a functional option for configuring the Workspace.
type Option func(*Workspace)

// WithStore sets the persistence backend. Defaults to an in-memory store.
func WithStore(store ports.TreeStore) Option {
	return func(w *Workspace) {
		w.store = store
	}
}

// WithLocker adds a distributed lock around every read-modify-write cycle.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(w *Workspace) {
		w.locker = locker
	}
}

// WithLockTTL bounds how long a distributed lock is held if its owner dies.
func WithLockTTL(ttl time.Duration) Option {
	return func(w *Workspace) {
		w.lockTTL = ttl
	}
}

// WithLogger sets a custom logger for the workspace.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Workspace) {
		w.logger = logger
	}
}

// WithMetrics feeds workspace events into the given collectors.
func WithMetrics(m *observability.Metrics) Option {
	return func(w *Workspace) {
		w.metrics = m
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(w *Workspace) {
		w.hooks = hooks
	}
}

// WithDirection sets the default Mermaid flowchart direction (TD, TB, BT, LR, RL).
func WithDirection(direction string) Option {
	return func(w *Workspace) {
		w.direction = direction
	}
}

// WithMaxDepth bounds the nesting accepted by Import.
func WithMaxDepth(depth int) Option {
	return func(w *Workspace) {
		w.maxDepth = depth
	}
}

// New creates a Workspace.
func New(opts ...Option) (*Workspace, error) {
	w := &Workspace{
		maxDepth: codec.DefaultMaxDepth,
		last:     make(map[string][]byte),
	}
	for _, opt := range opts {
		opt(w)
	}

	dir, err := graph.ParseDirection(w.direction)
	if err != nil {
		return nil, err
	}
	w.dir = dir

	if w.logger == nil {
		w.logger = logging.NewNop()
	}
	if w.store == nil {
		w.store = memory.NewStore()
	}

	hooks := []domain.LifecycleHooks{observability.LogHooks(w.logger), w.hooks}
	if w.metrics != nil {
		hooks = append(hooks, w.metrics.Hooks())
	}
	w.hooks = observability.Combine(hooks...)

	sessionOpts := []session.Option{session.WithLogger(w.logger)}
	if w.locker != nil {
		sessionOpts = append(sessionOpts, session.WithLocker(w.locker))
	}
	if w.lockTTL > 0 {
		sessionOpts = append(sessionOpts, session.WithLockTTL(w.lockTTL))
	}
	w.sessions = session.NewManager(w.store, sessionOpts...)
	w.stream = stream.NewManager(w.logger)

	return w, nil
}

// Logger returns the workspace logger.
func (w *Workspace) Logger() *slog.Logger {
	return w.logger
}

// Metrics returns the collectors given with WithMetrics, or nil.
func (w *Workspace) Metrics() *observability.Metrics {
	return w.metrics
}

// Store returns the persistence backend.
func (w *Workspace) Store() ports.TreeStore {
	return w.store
}

// Import decodes a document and assigns ids to the nodes that lack one.
func (w *Workspace) Import(r io.Reader, format codec.Format) (*domain.Node, error) {
	root, err := codec.Decode(r, format, codec.WithMaxDepth(w.maxDepth))
	if err != nil {
		return nil, err
	}
	root, _ = identity.EnsureIDs(root)
	return root, nil
}

// Export writes root as a document.
func (w *Workspace) Export(out io.Writer, root *domain.Node, format codec.Format) error {
	return codec.Encode(out, root, format)
}

// Load returns the tree stored under key. An empty key means domain.DefaultStorageKey.
func (w *Workspace) Load(ctx context.Context, key string) (*domain.Node, error) {
	return w.sessions.Load(ctx, keyOrDefault(key))
}

// Create loads the tree stored under key, persisting an empty one if there is none.
func (w *Workspace) Create(ctx context.Context, key string) (*domain.Node, bool, error) {
	key = keyOrDefault(key)
	root, created, err := w.sessions.LoadOrCreate(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if created {
		w.saved(ctx, key, nil, root)
	}
	return root, created, nil
}

// Save assigns missing ids and persists root under key, replacing any previous tree.
// It returns the tree as stored.
func (w *Workspace) Save(ctx context.Context, key string, root *domain.Node) (*domain.Node, error) {
	if root == nil {
		return nil, fmt.Errorf("save %q: %w", key, domain.ErrNodeNotFound)
	}
	if root.Height() >= codec.DefaultMaxDepth {
		return nil, fmt.Errorf("save %q: %w (%d)", key, domain.ErrTooDeep, codec.DefaultMaxDepth)
	}
	key = keyOrDefault(key)
	root, _ = identity.EnsureIDs(root)

	var previous *domain.Node
	err := w.sessions.WithLock(ctx, key, func(ctx context.Context) error {
		prev, err := w.store.Load(ctx, key)
		switch {
		case err == nil:
			previous = prev
		case !errors.Is(err, domain.ErrTreeNotFound):
			return err
		}
		return w.store.Save(ctx, key, root)
	})
	if err != nil {
		return nil, err
	}

	w.saved(ctx, key, previous, root)
	return root, nil
}

// Edit runs fn against an editor opened on the stored tree and persists the result.
// Nothing is saved when fn fails. The tree must exist.
func (w *Workspace) Edit(ctx context.Context, key string, fn func(*editor.Editor) error) (*domain.Node, error) {
	key = keyOrDefault(key)

	var previous *domain.Node
	saved, err := w.sessions.Update(ctx, key, func(current *domain.Node) (*domain.Node, error) {
		previous = current
		ed := editor.Open(current)
		if err := fn(ed); err != nil {
			return nil, err
		}
		return ed.Tree(), nil
	})
	if err != nil {
		return nil, err
	}

	w.saved(ctx, key, previous, saved)
	return saved, nil
}

// Delete removes the tree stored under key.
func (w *Workspace) Delete(ctx context.Context, key string) error {
	key = keyOrDefault(key)
	if err := w.sessions.Delete(ctx, key); err != nil {
		return err
	}

	e := &domain.TreeEvent{EventBase: w.base(domain.EventTreeDeleted, key)}
	w.forget(key)
	if w.hooks.OnDelete != nil {
		w.hooks.OnDelete(ctx, e)
	}
	w.stream.Broadcast(e)
	return nil
}

// List returns the stored keys in order.
func (w *Workspace) List(ctx context.Context) ([]string, error) {
	return w.sessions.List(ctx)
}

// Nodes lists the nodes of the stored tree that internal links can target.
func (w *Workspace) Nodes(ctx context.Context, key string) ([]identity.Ref, error) {
	root, err := w.Load(ctx, key)
	if err != nil {
		return nil, err
	}
	return identity.CollectNodes(root), nil
}

// Mermaid compiles the stored tree to a Mermaid flowchart.
func (w *Workspace) Mermaid(ctx context.Context, key string) (Diagram, error) {
	return w.Diagram(ctx, key, FormatMermaid, DiagramOptions{})
}

// Graphviz compiles the stored tree to a DOT digraph.
func (w *Workspace) Graphviz(ctx context.Context, key string) (Diagram, error) {
	return w.Diagram(ctx, key, FormatGraphviz, DiagramOptions{})
}

// Diagram compiles the stored tree to format.
func (w *Workspace) Diagram(ctx context.Context, key string, format Format, opts DiagramOptions) (Diagram, error) {
	key = keyOrDefault(key)
	root, err := w.sessions.Load(ctx, key)
	if err != nil {
		return Diagram{}, err
	}
	return w.compile(ctx, key, root, format, opts)
}

// Compile turns a tree that is not necessarily stored into a diagram.
func (w *Workspace) Compile(ctx context.Context, root *domain.Node, format Format, opts DiagramOptions) (Diagram, error) {
	return w.compile(ctx, "", root, format, opts)
}

func (w *Workspace) compile(ctx context.Context, key string, root *domain.Node, format Format, opts DiagramOptions) (Diagram, error) {
	dir := w.dir
	if opts.Direction != "" {
		d, err := graph.ParseDirection(opts.Direction)
		if err != nil {
			return Diagram{}, err
		}
		dir = d
	}

	start := time.Now()
	res, err := graph.Generate(root, format,
		graph.WithDirection(dir),
		graph.WithHighlight(opts.Highlight...),
		graph.WithLogger(w.logger),
	)
	if err != nil {
		return Diagram{}, err
	}

	if w.hooks.OnCompile != nil {
		w.hooks.OnCompile(ctx, &domain.CompileEvent{
			EventBase:  w.base(domain.EventDiagramCompiled, key),
			Format:     string(res.Format),
			Elements:   res.Elements,
			Unresolved: len(res.Warnings),
			Duration:   time.Since(start),
		})
	}
	return res, nil
}

// Subscribe registers for the change events of key, or of every key with "*".
// The returned function cancels the subscription.
func (w *Workspace) Subscribe(key string) (<-chan *domain.TreeEvent, func()) {
	if key != stream.AllKeys {
		key = keyOrDefault(key)
	}
	return w.stream.Subscribe(key)
}

// Watch relays changes made to the store by other processes to subscribers until
// ctx is done. It fails with ErrWatchUnsupported for stores without a change feed.
func (w *Workspace) Watch(ctx context.Context) error {
	watcher, ok := middleware.As[ports.TreeWatcher](w.store)
	if !ok {
		return ErrWatchUnsupported
	}
	changes, err := watcher.Watch(ctx)
	if err != nil {
		return fmt.Errorf("failed to watch store: %w", err)
	}

	go func() {
		for key := range changes {
			w.relay(ctx, key)
		}
	}()
	return nil
}

func (w *Workspace) relay(ctx context.Context, key string) {
	root, err := w.store.Load(ctx, key)
	if errors.Is(err, domain.ErrTreeNotFound) {
		if w.forget(key) {
			w.stream.Broadcast(&domain.TreeEvent{EventBase: w.base(domain.EventTreeDeleted, key)})
		}
		return
	}
	if err != nil {
		w.logger.Warn("Watch: failed to reload tree", "key", key, "err", err)
		return
	}

	data, err := codec.Marshal(root)
	if err != nil {
		w.logger.Warn("Watch: failed to encode tree", "key", key, "err", err)
		return
	}
	if !w.remember(key, data) {
		return
	}
	w.logger.Debug("Watch: external change", "key", key)
	w.stream.Broadcast(&domain.TreeEvent{EventBase: w.base(domain.EventTreeSaved, key), Tree: data})
}

// Close ends every subscription and releases the store when it holds resources.
func (w *Workspace) Close() error {
	w.stream.Close()
	if c, ok := middleware.As[io.Closer](w.store); ok {
		return c.Close()
	}
	return nil
}

func (w *Workspace) saved(ctx context.Context, key string, previous, current *domain.Node) {
	e := &domain.TreeEvent{
		EventBase: w.base(domain.EventTreeSaved, key),
		Diff:      domain.Diff(previous, current),
	}
	data, err := codec.Marshal(current)
	if err != nil {
		w.logger.Warn("Failed to encode tree for subscribers", "key", key, "err", err)
	} else {
		e.Tree = data
		w.remember(key, data)
	}

	if w.hooks.OnSave != nil {
		w.hooks.OnSave(ctx, e)
	}
	w.stream.Broadcast(e)
}

// remember records the last document sent for key and reports whether it differs
// from the previous one.
func (w *Workspace) remember(key string, data []byte) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if prev, ok := w.last[key]; ok && bytes.Equal(prev, data) {
		return false
	}
	w.last[key] = data
	return true
}

func (w *Workspace) forget(key string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.last[key]
	delete(w.last, key)
	return ok
}

func (w *Workspace) base(t domain.EventType, key string) domain.EventBase {
	return domain.EventBase{Timestamp: time.Now(), Type: t, Key: key}
}

func keyOrDefault(key string) string {
	if key == "" {
		return domain.DefaultStorageKey
	}
	return key
}
