package session

import (
	"context"
	"fmt"
	"testing"

	"github.com/aretw0/arbor/pkg/domain"
)

type nopStore struct{}

func (nopStore) Save(ctx context.Context, key string, root *domain.Node) error { return nil }
func (nopStore) Load(ctx context.Context, key string) (*domain.Node, error) {
	return nil, domain.ErrTreeNotFound
}
func (nopStore) Delete(ctx context.Context, key string) error { return nil }
func (nopStore) List(ctx context.Context) ([]string, error)   { return nil, nil }

func TestManager_LockLifecycle(t *testing.T) {
	mgr := NewManager(nopStore{})
	ctx := context.Background()
	count := 10000

	for i := 0; i < count; i++ {
		key := fmt.Sprintf("tree-%d", i)
		_ = mgr.Save(ctx, key, domain.NewDecision(1, "", ""))
		_ = mgr.Delete(ctx, key)
	}

	if lockCount := len(mgr.locks); lockCount != 0 {
		t.Errorf("Memory Leak Detected: %d locks remaining in memory after Delete", lockCount)
	}
}
