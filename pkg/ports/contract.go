package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contractTree() *domain.Node {
	return domain.NewDecision(1, "Finder", "What are you looking for?",
		domain.NewDecision(2, "Shoes", "",
			domain.NewTerminal(4, "Sneakers", "/c/sneakers"),
		),
		domain.NewInternalLink(3, "Start over", "1"),
		&domain.Node{Kind: domain.KindTerminal, ID: 5, Title: "Sale", Image: "sale.png", Link: "/sale"},
	)
}

// RunTreeStoreContract runs a suite of tests to verify that a TreeStore implementation
// adheres to the defined interface contract.
func RunTreeStoreContract(t *testing.T, store TreeStore) {
	ctx := context.Background()
	key := "contract-test-tree-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		tree := contractTree()
		require.NoError(t, store.Save(ctx, key, tree), "Save should not return error")

		loaded, err := store.Load(ctx, key)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, tree, loaded)
	})

	t.Run("Save Copies", func(t *testing.T) {
		tree := contractTree()
		require.NoError(t, store.Save(ctx, key, tree))
		tree.Title = "mutated after save"

		loaded, err := store.Load(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "Finder", loaded.Title)

		loaded.Options[0].Title = "mutated after load"
		again, err := store.Load(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "Shoes", again.Options[0].Title)
	})

	t.Run("Overwrite", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, key, contractTree()))
		require.NoError(t, store.Save(ctx, key, domain.NewDecision(1, "Replaced", "")))

		loaded, err := store.Load(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "Replaced", loaded.Title)
		assert.Empty(t, loaded.Options)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+key)
		assert.ErrorIs(t, err, domain.ErrTreeNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, key, contractTree()))

		require.NoError(t, store.Delete(ctx, key), "Delete should not return error")

		_, err := store.Load(ctx, key)
		assert.ErrorIs(t, err, domain.ErrTreeNotFound, "Load after Delete should return ErrTreeNotFound")

		assert.NoError(t, store.Delete(ctx, key), "Deleting twice is not an error")
	})

	t.Run("List", func(t *testing.T) {
		k1 := key + "-1"
		k2 := key + "-2"
		require.NoError(t, store.Save(ctx, k2, contractTree()))
		require.NoError(t, store.Save(ctx, k1, contractTree()))

		defer func() {
			_ = store.Delete(ctx, k1)
			_ = store.Delete(ctx, k2)
		}()

		keys, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, keys, k1)
		assert.Contains(t, keys, k2)
		assert.IsNonDecreasing(t, keys)
	})
}
