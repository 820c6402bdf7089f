package identity_test

import (
	"testing"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(root *domain.Node) []int {
	var out []int
	root.Walk(func(n *domain.Node, _ int) bool {
		out = append(out, n.ID)
		return true
	})
	return out
}

func TestEnsureIDs_Backfill(t *testing.T) {
	tree := domain.NewDecision(0, "root", "",
		domain.NewDecision(0, "a", "", domain.NewTerminal(0, "a1", "")),
		domain.NewTerminal(0, "b", ""),
	)

	got, next := identity.EnsureIDs(tree)

	assert.Equal(t, []int{1, 2, 3, 4}, ids(got))
	assert.Equal(t, 5, next)
	assert.Equal(t, []int{0, 0, 0, 0}, ids(tree), "input must not be mutated")
}

func TestEnsureIDs_KeepsExisting(t *testing.T) {
	tree := domain.NewDecision(7, "root", "",
		domain.NewTerminal(0, "a", ""),
		domain.NewTerminal(3, "b", ""),
		domain.NewTerminal(-2, "c", ""),
	)

	got, next := identity.EnsureIDs(tree)

	assert.Equal(t, []int{7, 8, 3, 9}, ids(got))
	assert.Equal(t, 10, next)
}

func TestEnsureIDs_LaterExplicitIDDoesNotCollide(t *testing.T) {
	// The missing id on the root must not be handed the id of a node visited later.
	tree := domain.NewDecision(0, "root", "", domain.NewTerminal(1, "a", ""))

	got, next := identity.EnsureIDs(tree)

	assert.Equal(t, []int{2, 1}, ids(got))
	assert.Equal(t, 3, next)
}

func TestEnsureIDs_Idempotent(t *testing.T) {
	tree := domain.NewDecision(0, "root", "Q?",
		domain.NewDecision(5, "a", "", domain.NewInternalLink(0, "l", "5")),
		domain.NewTerminal(0, "b", ""),
	)

	once, next1 := identity.EnsureIDs(tree)
	twice, next2 := identity.EnsureIDs(once)

	assert.Equal(t, ids(once), ids(twice))
	assert.Equal(t, next1, next2)
}

func TestEnsureIDs_CounterExceedsEveryID(t *testing.T) {
	tree := domain.NewDecision(0, "root", "",
		domain.NewTerminal(40, "a", ""),
		domain.NewDecision(0, "b", "", domain.NewTerminal(12, "b1", ""), domain.NewTerminal(0, "b2", "")),
	)

	got, next := identity.EnsureIDs(tree)

	for _, id := range ids(got) {
		assert.Positive(t, id)
		assert.Less(t, id, next)
	}
}

func TestEnsureIDs_CollisionsNotRepaired(t *testing.T) {
	tree := domain.NewDecision(2, "root", "", domain.NewTerminal(2, "dup", ""))

	got, next := identity.EnsureIDs(tree)

	assert.Equal(t, []int{2, 2}, ids(got))
	assert.Equal(t, 3, next)
}

func TestEnsureIDs_Nil(t *testing.T) {
	got, next := identity.EnsureIDs(nil)
	assert.Nil(t, got)
	assert.Equal(t, identity.FirstID, next)
}

func TestAllocator(t *testing.T) {
	a := identity.NewAllocator(0)
	require.Equal(t, 1, a.Peek())
	assert.Equal(t, 1, a.Next())
	assert.Equal(t, 2, a.Next())

	a.Observe(10)
	assert.Equal(t, 11, a.Next())

	a.Observe(3)
	assert.Equal(t, 12, a.Next(), "Observe must never move the counter backwards")
}

func TestCollectNodes(t *testing.T) {
	tree := domain.NewDecision(1, "Root", "",
		domain.NewDecision(0, "unassigned", ""),
		domain.NewTerminal(2, "Shoes", "/shoes"),
		domain.NewInternalLink(3, "Back", "1"),
	)

	refs := identity.CollectNodes(tree)

	assert.Equal(t, []identity.Ref{
		{ID: 1, Title: "Root", Kind: "decision"},
		{ID: 2, Title: "Shoes", Kind: "terminal"},
		{ID: 3, Title: "Back", Kind: "internal_link"},
	}, refs)
}
