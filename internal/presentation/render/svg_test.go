package render

import (
	"context"
	"testing"

	"github.com/aretw0/arbor/internal/presentation/graph"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeViewBox(t *testing.T) {
	in := []byte(`<svg width="62pt" height="44pt" viewBox="0.00 0.00 62.00 44.00" xmlns="http://www.w3.org/2000/svg"><g/></svg>`)
	out := string(normalizeViewBox(in))

	assert.Contains(t, out, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 62.00 44.00" width="62" height="44">`)
	assert.Contains(t, out, "<g/></svg>")
}

func TestNormalizeViewBox_Untouched(t *testing.T) {
	in := []byte(`<svg><g/></svg>`)
	assert.Equal(t, in, normalizeViewBox(in))

	zero := []byte(`<svg viewBox="0 0 0 10"></svg>`)
	assert.Equal(t, zero, normalizeViewBox(zero))
}

func TestSVG_RendersDecisionTree(t *testing.T) {
	root := domain.NewDecision(1, "Root", "Which?",
		domain.NewTerminal(2, "Yes", "/yes"),
		domain.NewTerminal(3, "No", "/no"),
	)
	dot := graph.GenerateGraphviz(root).Text

	svg, err := SVG(context.Background(), dot)
	require.NoError(t, err)

	out := string(svg)
	assert.Contains(t, out, `viewBox="0 0 `)
	assert.Contains(t, out, "Which?")
	assert.Contains(t, out, "</svg>")
}
