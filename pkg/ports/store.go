package ports

import (
	"context"

	"github.com/aretw0/arbor/pkg/domain"
)

// TreeStore persists decision trees under storage keys.
// Implementations must be safe for concurrent use and must not share node memory
// with callers: Save keeps its own copy and Load hands out a fresh one.
type TreeStore interface {
	// Save persists the tree under key, replacing any previous tree.
	Save(ctx context.Context, key string, root *domain.Node) error

	// Load retrieves the tree stored under key.
	// Returns domain.ErrTreeNotFound if the key does not exist.
	Load(ctx context.Context, key string) (*domain.Node, error)

	// Delete removes the tree stored under key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// List returns the stored keys in ascending order.
	List(ctx context.Context) ([]string, error)
}

// TreeWatcher is implemented by stores that can observe changes made outside the
// current process (another replica, an editor touching the file).
type TreeWatcher interface {
	// Watch reports the key of every changed tree until ctx is done, then closes
	// the channel.
	Watch(ctx context.Context) (<-chan string, error)
}
