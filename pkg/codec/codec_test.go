package codec_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/aretw0/arbor/pkg/codec"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `{
  "id": 1,
  "title": "Root",
  "image": "",
  "question_for_options": "What are you looking for?",
  "options": [
    {"id": 2, "title": "A", "options": []},
    {"id": 3, "title": "B", "type": "internal_link", "target_node_id": "2"},
    {"title": "Shoes", "image": "s.png", "link": "/c/shoes"}
  ]
}`

func TestDecode_KindsByShape(t *testing.T) {
	root, err := codec.DecodeBytes([]byte(sample), codec.FormatJSON)
	require.NoError(t, err)

	assert.Equal(t, domain.KindDecision, root.Kind)
	assert.Equal(t, 1, root.ID)
	assert.Equal(t, "What are you looking for?", root.Question)
	require.Len(t, root.Options, 3)

	a := root.Options[0]
	assert.Equal(t, domain.KindDecision, a.Kind)
	assert.Empty(t, a.Options)
	assert.NotNil(t, a.Options, "an empty options field still makes a decision")

	link := root.Options[1]
	assert.Equal(t, domain.KindInternalLink, link.Kind)
	assert.Equal(t, "2", link.TargetID)

	term := root.Options[2]
	assert.Equal(t, domain.KindTerminal, term.Kind)
	assert.Equal(t, 0, term.ID, "missing id stays unassigned")
	assert.Equal(t, "/c/shoes", term.Link)
	assert.Equal(t, "s.png", term.Image)
}

func TestDecode_TolerantFields(t *testing.T) {
	tests := []struct {
		name  string
		input string
		check func(t *testing.T, n *domain.Node)
	}{
		{
			name:  "String ID Is Unassigned",
			input: `{"id": "7", "title": "x", "options": []}`,
			check: func(t *testing.T, n *domain.Node) { assert.Equal(t, 0, n.ID) },
		},
		{
			name:  "Negative ID Is Unassigned",
			input: `{"id": -3, "options": []}`,
			check: func(t *testing.T, n *domain.Node) { assert.Equal(t, 0, n.ID) },
		},
		{
			name:  "Fractional ID Is Unassigned",
			input: `{"id": 2.5, "options": []}`,
			check: func(t *testing.T, n *domain.Node) { assert.Equal(t, 0, n.ID) },
		},
		{
			name:  "Whole Float ID Is Kept",
			input: `{"id": 4.0, "options": []}`,
			check: func(t *testing.T, n *domain.Node) { assert.Equal(t, 4, n.ID) },
		},
		{
			name:  "Numeric Target",
			input: `{"type": "internal_link", "target_node_id": 12}`,
			check: func(t *testing.T, n *domain.Node) {
				assert.Equal(t, domain.KindInternalLink, n.Kind)
				assert.Equal(t, "12", n.TargetID)
			},
		},
		{
			name:  "Missing Text Fields",
			input: `{"options": [{}]}`,
			check: func(t *testing.T, n *domain.Node) {
				assert.Equal(t, "", n.Title)
				assert.Equal(t, "", n.Question)
				require.Len(t, n.Options, 1)
				assert.Equal(t, domain.KindTerminal, n.Options[0].Kind, "shapeless nodes are terminals")
			},
		},
		{
			name:  "Object Title Becomes Empty",
			input: `{"title": {"he": "x"}, "options": []}`,
			check: func(t *testing.T, n *domain.Node) { assert.Equal(t, "", n.Title) },
		},
		{
			name:  "Numeric Title Is Stringified",
			input: `{"title": 42, "link": ""}`,
			check: func(t *testing.T, n *domain.Node) { assert.Equal(t, "42", n.Title) },
		},
		{
			name:  "Null Options Is Terminal",
			input: `{"title": "x", "options": null}`,
			check: func(t *testing.T, n *domain.Node) { assert.Equal(t, domain.KindTerminal, n.Kind) },
		},
		{
			name:  "Non Object Children Skipped",
			input: `{"options": [1, null, "x", {"link": "/a"}]}`,
			check: func(t *testing.T, n *domain.Node) { assert.Len(t, n.Options, 1) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := codec.DecodeBytes([]byte(tt.input), codec.FormatJSON)
			require.NoError(t, err)
			tt.check(t, n)
		})
	}
}

func TestDecode_Errors(t *testing.T) {
	_, err := codec.DecodeBytes([]byte(`[1,2]`), codec.FormatJSON)
	assert.Error(t, err)

	_, err = codec.DecodeBytes([]byte(`{`), codec.FormatJSON)
	assert.Error(t, err)

	_, err = codec.DecodeBytes([]byte(`{}`), codec.Format("xml"))
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
}

func TestDecode_MaxDepth(t *testing.T) {
	deep := strings.Repeat(`{"options":[`, 5) + `{}` + strings.Repeat(`]}`, 5)

	_, err := codec.DecodeBytes([]byte(deep), codec.FormatJSON, codec.WithMaxDepth(3))
	assert.ErrorIs(t, err, domain.ErrTooDeep)

	root, err := codec.DecodeBytes([]byte(deep), codec.FormatJSON, codec.WithMaxDepth(10))
	require.NoError(t, err)
	assert.Equal(t, 6, root.Count())
}

func TestDecode_YAML(t *testing.T) {
	input := `
id: 1
title: Root
question_for_options: Pick
options:
  - id: 2
    title: Leaf
    link: /leaf
  - title: Back
    type: internal_link
    target_node_id: 1
`
	root, err := codec.DecodeBytes([]byte(input), codec.FormatYAML)
	require.NoError(t, err)

	assert.Equal(t, 1, root.ID)
	require.Len(t, root.Options, 2)
	assert.Equal(t, domain.KindTerminal, root.Options[0].Kind)
	assert.Equal(t, 2, root.Options[0].ID)
	assert.Equal(t, "1", root.Options[1].TargetID)
}

func TestEncode_JSONShape(t *testing.T) {
	root := domain.NewDecision(1, "Root", "Q",
		domain.NewTerminal(2, "T", "/t"),
		domain.NewInternalLink(3, "L", "1"),
	)

	out, err := codec.Marshal(root)
	require.NoError(t, err)

	want := `{
  "id": 1,
  "title": "Root",
  "image": "",
  "question_for_options": "Q",
  "options": [
    {
      "id": 2,
      "title": "T",
      "image": "",
      "link": "/t"
    },
    {
      "id": 3,
      "title": "L",
      "type": "internal_link",
      "target_node_id": "1"
    }
  ]
}
`
	assert.Equal(t, want, string(out))
}

func TestEncode_RoundTripPreservesKinds(t *testing.T) {
	for _, format := range []codec.Format{codec.FormatJSON, codec.FormatYAML} {
		t.Run(string(format), func(t *testing.T) {
			orig, err := codec.DecodeBytes([]byte(sample), codec.FormatJSON)
			require.NoError(t, err)

			var buf bytes.Buffer
			require.NoError(t, codec.Encode(&buf, orig, format))

			back, err := codec.Decode(&buf, format)
			require.NoError(t, err)
			assert.Equal(t, orig, back)
		})
	}
}

func TestParseFormat(t *testing.T) {
	f, err := codec.ParseFormat("YML")
	require.NoError(t, err)
	assert.Equal(t, codec.FormatYAML, f)

	_, err = codec.ParseFormat("toml")
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)

	assert.Equal(t, codec.FormatYAML, codec.FormatFromPath("tree.yaml"))
	assert.Equal(t, codec.FormatJSON, codec.FormatFromPath("tree.json"))
	assert.Equal(t, codec.FormatJSON, codec.FormatFromPath("tree"))
}
