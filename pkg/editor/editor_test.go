package editor_test

import (
	"bytes"
	"testing"

	"github.com/aretw0/arbor/pkg/codec"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/editor"
	"github.com/aretw0/arbor/pkg/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePath(t *testing.T) {
	tests := []struct {
		in      string
		want    editor.Path
		wantErr bool
	}{
		{in: "root", want: editor.Path{}},
		{in: "", want: editor.Path{}},
		{in: "0", want: editor.Path{0}},
		{in: "0.2.1", want: editor.Path{0, 2, 1}},
		{in: "root.3", want: editor.Path{3}},
		{in: "a.b", wantErr: true},
		{in: "0.-1", wantErr: true},
		{in: "0..1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := editor.ParsePath(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidPath)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	assert.Equal(t, "root", editor.Path{}.String())
	assert.Equal(t, "0.2.1", editor.Path{0, 2, 1}.String())
}

func TestNewTree(t *testing.T) {
	e := editor.NewTree()
	root := e.Tree()

	assert.Equal(t, domain.KindDecision, root.Kind)
	assert.Equal(t, 1, root.ID)
	assert.Empty(t, root.Options)
	assert.Equal(t, 2, e.NextID())
}

func TestEditor_AddAssignsFreshIDs(t *testing.T) {
	e := editor.NewTree()

	p, err := e.AddDecision("root", "Shoes", "Which size?")
	require.NoError(t, err)
	assert.Equal(t, "0", p.String())

	p, err = e.AddTerminal("0", "Small", "/shoes/s")
	require.NoError(t, err)
	assert.Equal(t, "0.0", p.String())

	p, err = e.AddInternalLink("0", "Back", 1)
	require.NoError(t, err)
	assert.Equal(t, "0.1", p.String())

	root := e.Tree()
	assert.Equal(t, 2, root.Options[0].ID)
	assert.Equal(t, 3, root.Options[0].Options[0].ID)
	link := root.Options[0].Options[1]
	assert.Equal(t, 4, link.ID)
	assert.Equal(t, "1", link.TargetID)
	assert.Equal(t, 5, e.NextID())
}

func TestEditor_AddSubtreeRenumbers(t *testing.T) {
	e := editor.Open(domain.NewDecision(7, "Root", ""))
	sub := domain.NewDecision(7, "Copy", "",
		domain.NewTerminal(7, "Leaf", ""),
	)

	_, err := e.Add("root", sub)
	require.NoError(t, err)

	root := e.Tree()
	assert.Equal(t, 8, root.Options[0].ID)
	assert.Equal(t, 9, root.Options[0].Options[0].ID)
	assert.Equal(t, 7, sub.ID, "the argument is copied, not adopted")
}

func TestEditor_AddToLeaf(t *testing.T) {
	e := editor.NewTree()
	_, err := e.AddTerminal("root", "Leaf", "")
	require.NoError(t, err)

	_, err = e.AddTerminal("0", "Nope", "")
	assert.ErrorIs(t, err, domain.ErrNotDecision)

	_, err = e.AddTerminal("4", "Nope", "")
	assert.ErrorIs(t, err, domain.ErrNodeNotFound)
}

func TestEditor_AddSubtreeKeepsInnerLinks(t *testing.T) {
	e := editor.NewTree()
	sub := domain.NewDecision(10, "Copy", "Again?",
		domain.NewTerminal(11, "Leaf", ""),
		domain.NewInternalLink(12, "Loop", "10"),
		domain.NewInternalLink(13, "Out", "1"),
	)

	_, err := e.Add("root", sub)
	require.NoError(t, err)

	copied := e.Tree().Options[0]
	assert.Equal(t, 2, copied.ID)
	assert.Equal(t, "2", copied.Options[1].TargetID, "link into the copy follows the renumbering")
	assert.Equal(t, "1", copied.Options[2].TargetID, "link out of the copy is kept")
	assert.Equal(t, "10", sub.Options[1].TargetID)
}

// chain returns n decisions nested one inside the other.
func chain(n int) *domain.Node {
	node := domain.NewDecision(0, "Level", "")
	for i := 1; i < n; i++ {
		node = domain.NewDecision(0, "Level", "", node)
	}
	return node
}

func TestEditor_AddTooDeep(t *testing.T) {
	e := editor.NewTree()

	_, err := e.Add("root", chain(codec.DefaultMaxDepth-1))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, codec.Encode(&buf, e.Tree(), codec.FormatJSON))
	_, err = codec.Decode(&buf, codec.FormatJSON)
	require.NoError(t, err, "the deepest accepted tree must load back")

	_, err = e.Add("root", chain(codec.DefaultMaxDepth))
	assert.ErrorIs(t, err, domain.ErrTooDeep)
	assert.Len(t, e.Tree().Options, 1)
}

func TestEditor_Open(t *testing.T) {
	imported := domain.NewDecision(0, "Root", "",
		domain.NewTerminal(10, "Known", ""),
		domain.NewTerminal(0, "New", ""),
	)
	e := editor.Open(imported)
	root := e.Tree()

	assert.Equal(t, 11, root.ID)
	assert.Equal(t, 10, root.Options[0].ID)
	assert.Equal(t, 12, root.Options[1].ID)
	assert.Equal(t, 13, e.NextID())
	assert.Equal(t, 0, imported.ID, "input untouched")

	assert.Equal(t, 1, editor.Open(nil).Tree().ID)
}

func TestEditor_Remove(t *testing.T) {
	e := editor.NewTree()
	_, _ = e.AddDecision("root", "A", "")
	_, _ = e.AddTerminal("0", "A1", "")
	_, _ = e.AddTerminal("root", "B", "")

	removed, err := e.Remove("0")
	require.NoError(t, err)
	assert.Equal(t, "A", removed.Title)
	assert.Equal(t, 2, removed.Count(), "the whole subtree is detached")

	root := e.Tree()
	require.Len(t, root.Options, 1)
	assert.Equal(t, "B", root.Options[0].Title)

	_, err = e.Remove("root")
	assert.ErrorIs(t, err, domain.ErrInvalidPath)

	_, err = e.Remove("5")
	assert.ErrorIs(t, err, domain.ErrNodeNotFound)

	assert.Equal(t, 5, e.NextID(), "removal never recycles ids")
}

func TestEditor_Update(t *testing.T) {
	e := editor.NewTree()
	_, _ = e.AddTerminal("root", "Leaf", "/old")

	title, link, question := "Renamed", "/new", "ignored"
	require.NoError(t, e.Update("0", editor.Patch{Title: &title, Link: &link, Question: &question}))

	n, err := e.Find("0")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", n.Title)
	assert.Equal(t, "/new", n.Link)
	assert.Equal(t, "", n.Question)

	q := "Pick one"
	require.NoError(t, e.Update("root", editor.Patch{Question: &q}))
	root, err := e.Find("root")
	require.NoError(t, err)
	assert.Equal(t, "Pick one", root.Question)

	assert.ErrorIs(t, e.Update("x", editor.Patch{}), domain.ErrInvalidPath)
}

func TestEditor_FindReturnsCopy(t *testing.T) {
	e := editor.NewTree()
	n, err := e.Find("root")
	require.NoError(t, err)
	n.Title = "mutated"

	assert.Equal(t, "", e.Tree().Title)
}

func TestEditor_PathOf(t *testing.T) {
	e := editor.NewTree()
	_, _ = e.AddDecision("root", "A", "")
	_, _ = e.AddTerminal("0", "A1", "")

	p, err := e.PathOf(3)
	require.NoError(t, err)
	assert.Equal(t, "0.0", p.String())

	_, err = e.PathOf(42)
	assert.ErrorIs(t, err, domain.ErrNodeNotFound)
}

func TestEditor_IDsStayUnique(t *testing.T) {
	e := editor.Open(domain.NewDecision(0, "", "",
		domain.NewTerminal(5, "", ""),
		domain.NewTerminal(0, "", ""),
	))
	for range 5 {
		_, err := e.AddTerminal("root", "", "")
		require.NoError(t, err)
	}

	seen := map[int]bool{}
	for _, ref := range identity.CollectNodes(e.Tree()) {
		assert.False(t, seen[ref.ID], "duplicate id %d", ref.ID)
		seen[ref.ID] = true
	}
	assert.Len(t, seen, 8)
}
