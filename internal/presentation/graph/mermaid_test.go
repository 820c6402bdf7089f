package graph_test

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/aretw0/arbor/internal/presentation/graph"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleTree() *domain.Node {
	return domain.NewDecision(1, "Root", "Pick?",
		domain.NewDecision(2, "A", "",
			domain.NewTerminal(4, "T", "/t"),
		),
		domain.NewInternalLink(3, "B", "2"),
	)
}

func TestGenerateMermaid_Golden(t *testing.T) {
	res := graph.GenerateMermaid(sampleTree())

	want := `flowchart TD
    node0["Root"]
    node1{"Pick?"}
    node2["A"]
    node3(("T"))
    node4{{"B"}}

    node0 --> node1
    node1 --> node2
    node2 --> node3
    node1 --> node4
    node4 -.-> node2

    classDef terminal fill:#e3f2fd,stroke:#1565c0,stroke-width:2px,color:#000;
    classDef option fill:#fff3e0,stroke:#ef6c00,stroke-width:2px,color:#000;
    classDef question fill:#f3e5f5,stroke:#6a1b9a,stroke-width:2px,color:#000;
    classDef internalLink fill:#e8f5e9,stroke:#2e7d32,stroke-width:2px,color:#000;
    class node3 terminal;
    class node0,node2 option;
    class node1 question;
    class node4 internalLink;
`
	assert.Equal(t, want, res.Text)
	assert.Equal(t, 5, res.Elements)
	assert.Equal(t, 5, res.Edges)
	assert.Empty(t, res.Warnings)
}

func TestGenerateMermaid_Shapes(t *testing.T) {
	tests := []struct {
		name     string
		root     *domain.Node
		contains []string
		excludes []string
	}{
		{
			name:     "Decision Without Question Is A Single Box",
			root:     domain.NewDecision(1, "Solo", "   ", domain.NewTerminal(2, "Leaf", "")),
			contains: []string{`node0["Solo"]`, `node1(("Leaf"))`, "node0 --> node1"},
			excludes: []string{"{\""},
		},
		{
			name:     "Question Chains After Option Box",
			root:     domain.NewDecision(1, "Root", "Why?"),
			contains: []string{`node0["Root"]`, `node1{"Why?"}`, "node0 --> node1"},
		},
		{
			name:     "Internal Link Hexagon",
			root:     domain.NewDecision(1, "", "", domain.NewInternalLink(2, "Go back", "1")),
			contains: []string{`node1{{"Go back"}}`, "node1 -.-> node0"},
		},
		{
			name:     "Quote Escaping",
			root:     domain.NewTerminal(1, `He said "hi"`, ""),
			contains: []string{`node0(("He said #quot;hi#quot;"))`},
		},
		{
			name:     "Newlines Collapse To Spaces",
			root:     domain.NewDecision(1, "a\r\nb\nc\rd", ""),
			contains: []string{`node0["a b c d"]`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := graph.GenerateMermaid(tt.root).Text
			for _, c := range tt.contains {
				assert.Contains(t, out, c)
			}
			for _, e := range tt.excludes {
				assert.NotContains(t, out, e)
			}
		})
	}
}

func TestGenerateMermaid_Direction(t *testing.T) {
	out := graph.GenerateMermaid(sampleTree(), graph.WithDirection(graph.DirectionLR)).Text
	assert.True(t, strings.HasPrefix(out, "flowchart LR\n"))

	d, err := graph.ParseDirection("rl")
	require.NoError(t, err)
	assert.Equal(t, graph.DirectionRL, d)

	d, err = graph.ParseDirection("")
	require.NoError(t, err)
	assert.Equal(t, graph.DirectionTD, d)

	_, err = graph.ParseDirection("up")
	assert.ErrorIs(t, err, domain.ErrInvalidDirection)
}

func TestGenerateMermaid_UnresolvedLinks(t *testing.T) {
	root := domain.NewDecision(1, "Root", "Q",
		domain.NewInternalLink(2, "Missing", "99"),
		domain.NewInternalLink(3, "Blank", "  "),
		domain.NewInternalLink(4, "Junk", "abc"),
	)

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	res := graph.GenerateMermaid(root, graph.WithLogger(logger))

	assert.NotContains(t, res.Text, "-.->")
	require.Len(t, res.Warnings, 3)
	assert.Equal(t, 2, res.Warnings[0].NodeID)
	assert.Equal(t, "99", res.Warnings[0].TargetID)
	assert.Equal(t, "internal link has no target", res.Warnings[1].Message)
	assert.Contains(t, logs.String(), "internal link omitted")
}

func TestGenerateMermaid_CollisionFirstVisitWins(t *testing.T) {
	root := domain.NewDecision(1, "Root", "",
		domain.NewTerminal(5, "First", ""),
		domain.NewTerminal(5, "Second", ""),
		domain.NewInternalLink(6, "Link", "5"),
	)
	out := graph.GenerateMermaid(root).Text
	assert.Contains(t, out, "node3 -.-> node1")
}

func TestGenerateMermaid_LinkResolvesLaterNode(t *testing.T) {
	root := domain.NewDecision(1, "Root", "",
		domain.NewInternalLink(2, "Forward", "3"),
		domain.NewTerminal(3, "Later", ""),
	)
	out := graph.GenerateMermaid(root).Text
	assert.Contains(t, out, "node1 -.-> node2")
}

func TestGenerateMermaid_Highlight(t *testing.T) {
	out := graph.GenerateMermaid(sampleTree(), graph.WithHighlight(2, 4)).Text
	assert.Contains(t, out, "classDef highlight")
	assert.Contains(t, out, "class node2,node3 highlight;")

	plain := graph.GenerateMermaid(sampleTree()).Text
	assert.NotContains(t, plain, "highlight")
}

func TestGenerateMermaid_EmptyRoot(t *testing.T) {
	res := graph.GenerateMermaid(domain.NewDecision(1, "", ""))
	assert.Equal(t, 1, res.Elements)
	assert.Equal(t, 0, res.Edges)
	assert.Contains(t, res.Text, `node0[""]`)
	assert.NotContains(t, res.Text, "-->")
}

func TestGenerateMermaid_StructuralCoverage(t *testing.T) {
	root := sampleTree()
	res := graph.GenerateMermaid(root)

	questions := 0
	root.Walk(func(n *domain.Node, _ int) bool {
		if n.HasQuestion() {
			questions++
		}
		return true
	})
	assert.Equal(t, root.Count()+questions, res.Elements)
}

func TestGenerate_Deterministic(t *testing.T) {
	for _, format := range []graph.Format{graph.FormatMermaid, graph.FormatGraphviz} {
		t.Run(string(format), func(t *testing.T) {
			a, err := graph.Generate(sampleTree(), format)
			require.NoError(t, err)
			b, err := graph.Generate(sampleTree(), format)
			require.NoError(t, err)
			assert.Equal(t, a.Text, b.Text)
		})
	}

	_, err := graph.Generate(sampleTree(), graph.Format("svg"))
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
}

func TestParseFormat(t *testing.T) {
	f, err := graph.ParseFormat("DOT")
	require.NoError(t, err)
	assert.Equal(t, graph.FormatGraphviz, f)

	f, err = graph.ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, graph.FormatMermaid, f)

	_, err = graph.ParseFormat("plantuml")
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
}
