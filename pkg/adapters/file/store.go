package file

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/codec"
	"github.com/aretw0/arbor/pkg/domain"
)

// Store implements ports.TreeStore using the local filesystem.
// Each tree is a document named after its key in a configured directory.
type Store struct {
	BasePath string

	format codec.Format
	logger *slog.Logger
}

// Option configures the Store.
type Option func(*Store)

// WithFormat selects the document format written by Save. Defaults to JSON.
func WithFormat(format codec.Format) Option {
	return func(s *Store) {
		s.format = format
	}
}

// WithLogger configures a logger for watcher diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New creates a new Store with the given base path.
// If basePath is empty, it defaults to ".arbor/trees".
func New(basePath string, opts ...Option) *Store {
	if basePath == "" {
		basePath = filepath.Join(".arbor", "trees")
	}
	s := &Store{
		BasePath: basePath,
		format:   codec.FormatJSON,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) ext() string {
	return "." + string(s.format)
}

func (s *Store) path(key string) (string, error) {
	if key == "" || key == "." || key == ".." || strings.HasPrefix(key, ".") ||
		strings.ContainsAny(key, `/\`) {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidKey, key)
	}
	return filepath.Join(s.BasePath, key+s.ext()), nil
}

// Save persists the tree atomically.
// It writes to a temporary file first, syncs via fsync, and then renames it to the destination.
func (s *Store) Save(ctx context.Context, key string, root *domain.Node) error {
	destPath, err := s.path(key)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(s.BasePath, 0755); err != nil {
		return fmt.Errorf("failed to ensure tree directory: %w", err)
	}

	var buf bytes.Buffer
	if err := codec.Encode(&buf, root, s.format); err != nil {
		return fmt.Errorf("failed to encode tree: %w", err)
	}

	// Same directory as the destination: rename is only atomic within a filesystem.
	// The leading dot keeps the temp file out of List and Watch.
	tmpFile, err := os.CreateTemp(s.BasePath, ".tmp-"+key+"-*"+s.ext())
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath) // no-op once renamed
	}()

	if _, err := tmpFile.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	// Cannot rename an open file on Windows.
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// os.Rename does not replace an existing file on Windows.
	if runtime.GOOS == "windows" {
		if err := os.Remove(destPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove existing tree file for overwrite: %w", err)
		}
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file to tree file: %w", err)
	}
	return nil
}

// Load reads and decodes the tree file.
func (s *Store) Load(ctx context.Context, key string) (*domain.Node, error) {
	filePath, err := s.path(key)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrTreeNotFound
		}
		return nil, fmt.Errorf("failed to read tree file: %w", err)
	}

	root, err := codec.DecodeBytes(data, s.format)
	if err != nil {
		return nil, fmt.Errorf("failed to decode tree %q: %w", key, err)
	}
	return root, nil
}

// Delete removes the tree file.
func (s *Store) Delete(ctx context.Context, key string) error {
	filePath, err := s.path(key)
	if err != nil {
		return err
	}

	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete tree file: %w", err)
	}
	return nil
}

// List returns the keys of all tree files in the directory.
func (s *Store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list trees: %w", err)
	}

	keys := []string{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if key, ok := s.keyOf(entry.Name()); ok {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)
	return keys, nil
}

// keyOf maps a file name in BasePath back to its storage key.
func (s *Store) keyOf(name string) (string, bool) {
	if strings.HasPrefix(name, ".") || filepath.Ext(name) != s.ext() {
		return "", false
	}
	return strings.TrimSuffix(name, s.ext()), true
}
