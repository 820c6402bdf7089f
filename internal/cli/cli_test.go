package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/config"
	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/codec"
	"github.com/aretw0/arbor/pkg/domain"
)

const doc = `{"title":"Root","question_for_options":"Go?","options":[{"title":"Yes","link":"/y"},{"title":"Lost","type":"internal_link","target_node_id":"99"}]}`

// syncBuffer guards a buffer written by a background goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func settings(t *testing.T, store string) Settings {
	t.Helper()
	cfg := config.Default()
	cfg.Store = store
	cfg.DataDir = t.TempDir()
	return Settings{Config: cfg, Logger: logging.NewNop()}
}

func TestLoadSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arbor.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store: memory\ndirection: LR\n"), 0644))
	t.Setenv("ARBOR_KEY", "from-env")

	s, err := LoadSettings(path, true)
	require.NoError(t, err)
	assert.Equal(t, config.StoreMemory, s.Config.Store)
	assert.Equal(t, "from-env", s.Config.Key)
	assert.Equal(t, "debug", s.Config.LogLevel)
	assert.NotNil(t, s.Logger)

	t.Setenv("ARBOR_STORE", "tape")
	_, err = LoadSettings(path, false)
	assert.Error(t, err)
}

func TestOpenWorkspace(t *testing.T) {
	for _, store := range []string{config.StoreMemory, config.StoreFile} {
		t.Run(store, func(t *testing.T) {
			ws, err := OpenWorkspace(settings(t, store), nil)
			require.NoError(t, err)
			defer ws.Close()

			ctx := context.Background()
			_, created, err := ws.Create(ctx, "k")
			require.NoError(t, err)
			assert.True(t, created)
		})
	}

	s := settings(t, config.StoreFile)
	s.Config.Direction = "diagonal"
	_, err := OpenWorkspace(s, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidDirection)
}

func TestOpenWorkspace_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	s := settings(t, config.StoreRedis)
	s.Config.Redis.Addr = mr.Addr()
	s.Config.Redis.Lock = true
	s.Config.Redis.LockTTL = "2s"

	ws, err := OpenWorkspace(s, nil)
	require.NoError(t, err)
	defer ws.Close()

	ctx := context.Background()
	_, err = ws.Save(ctx, "k", domain.NewDecision(1, "Root", ""))
	require.NoError(t, err)
	keys, err := ws.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"k"}, keys)
}

func TestOpenWorkspace_Middleware(t *testing.T) {
	s := settings(t, config.StoreMemory)
	s.Config.Strict = true
	s.Config.Redact = []string{`secret-\w+`}

	ws, err := OpenWorkspace(s, nil)
	require.NoError(t, err)
	defer ws.Close()
	ctx := context.Background()

	_, err = ws.Save(ctx, "k", domain.NewDecision(1, "Root", "",
		domain.NewInternalLink(2, "Ghost", "40"),
	))
	assert.ErrorIs(t, err, domain.ErrInvalidTree)

	_, err = ws.Save(ctx, "k", domain.NewDecision(1, "Root", "",
		domain.NewTerminal(2, "Vault", "https://vault/secret-abc"),
	))
	require.NoError(t, err)
	root, err := ws.Load(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "https://vault/***", root.Options[0].Link)
}

func TestReadWriteTree(t *testing.T) {
	ws, err := arbor.New()
	require.NoError(t, err)

	root, err := ReadTree(ws, Stdio, "", strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, 3, root.Count())

	dir := t.TempDir()
	out := filepath.Join(dir, "tree.yaml")
	require.NoError(t, WriteTree(ws, out, "", root, nil))

	back, err := ReadTree(ws, out, "", nil)
	require.NoError(t, err)
	assert.Equal(t, root, back)

	var stdout bytes.Buffer
	require.NoError(t, WriteTree(ws, "", codec.FormatJSON, root, &stdout))
	assert.Contains(t, stdout.String(), `"title": "Root"`)

	_, err = ReadTree(ws, filepath.Join(dir, "absent.json"), "", nil)
	assert.Error(t, err)
}

func TestRunDiagram_File(t *testing.T) {
	ws, err := arbor.New()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "tree.json")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	var stdout, stderr bytes.Buffer
	err = RunDiagram(context.Background(), ws, DiagramOptions{
		Source:  path,
		Format:  arbor.FormatMermaid,
		Diagram: arbor.DiagramOptions{Direction: "LR"},
	}, nil, &stdout, &stderr)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(stdout.String(), "flowchart LR\n"))
	assert.Contains(t, stderr.String(), `warning: node 3: internal link target not found (target "99")`)
}

func TestRunDiagram_Store(t *testing.T) {
	ws, err := arbor.New()
	require.NoError(t, err)
	ctx := context.Background()
	_, err = ws.Save(ctx, "k", domain.NewDecision(1, "Stored", ""))
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "out.dot")
	err = RunDiagram(ctx, ws, DiagramOptions{Key: "k", Format: arbor.FormatGraphviz, Output: out}, nil, nil, &bytes.Buffer{})
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `q_root [label="Stored"`)

	err = RunDiagram(ctx, ws, DiagramOptions{Key: "missing", Format: arbor.FormatMermaid}, nil, &bytes.Buffer{}, &bytes.Buffer{})
	assert.ErrorIs(t, err, domain.ErrTreeNotFound)

	err = RunDiagram(ctx, ws, DiagramOptions{Source: Stdio, Watch: true}, strings.NewReader(doc), &bytes.Buffer{}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestRunDiagram_WatchFile(t *testing.T) {
	ws, err := arbor.New()
	require.NoError(t, err)

	dir := t.TempDir()
	path := filepath.Join(dir, "tree.json")
	out := filepath.Join(dir, "tree.mmd")
	require.NoError(t, os.WriteFile(path, []byte(`{"title":"First","options":[]}`), 0644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stderr := &syncBuffer{}
	done := make(chan error, 1)
	go func() {
		done <- RunDiagram(ctx, ws, DiagramOptions{Source: path, Format: arbor.FormatMermaid, Output: out, Watch: true}, nil, nil, stderr)
	}()

	read := func() string {
		data, _ := os.ReadFile(out)
		return string(data)
	}
	require.Eventually(t, func() bool { return strings.Contains(read(), "First") }, 5*time.Second, 20*time.Millisecond)
	require.Eventually(t, func() bool { return strings.Contains(stderr.String(), "Watching") }, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte(`{"title":"Second","options":[]}`), 0644))
	require.Eventually(t, func() bool { return strings.Contains(read(), "Second") }, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
