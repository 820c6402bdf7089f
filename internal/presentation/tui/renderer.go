package tui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"

	"github.com/aretw0/arbor/pkg/domain"
)

// NewRenderer returns a function that renders markdown using glamour.
func NewRenderer() func(string) (string, error) {
	r, _ := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Automatically detect light/dark background
	)

	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}
}

// IsTerminal reports whether f is attached to an interactive terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// Outline describes the tree as a nested markdown list, one item per node.
func Outline(root *domain.Node) string {
	if root == nil {
		return ""
	}

	var sb strings.Builder
	title := root.Title
	if strings.TrimSpace(title) == "" {
		title = "Untitled"
	}
	fmt.Fprintf(&sb, "# %s\n\n", title)
	if root.HasQuestion() {
		fmt.Fprintf(&sb, "> %s\n\n", root.Question)
	}

	for _, child := range root.Options {
		if child != nil {
			writeItem(&sb, child, 0)
		}
	}
	return sb.String()
}

func writeItem(sb *strings.Builder, n *domain.Node, depth int) {
	indent := strings.Repeat("  ", depth)
	title := n.Title
	if strings.TrimSpace(title) == "" {
		title = "_untitled_"
	} else {
		title = "**" + title + "**"
	}

	switch n.Kind {
	case domain.KindTerminal:
		fmt.Fprintf(sb, "%s- %s `#%d`", indent, title, n.ID)
		if n.Link != "" {
			fmt.Fprintf(sb, " [%s](%s)", n.Link, n.Link)
		}
		sb.WriteString("\n")
	case domain.KindInternalLink:
		fmt.Fprintf(sb, "%s- %s `#%d` jumps to `#%s`\n", indent, title, n.ID, n.TargetID)
	default:
		fmt.Fprintf(sb, "%s- %s `#%d`", indent, title, n.ID)
		if n.HasQuestion() {
			fmt.Fprintf(sb, ": _%s_", n.Question)
		}
		sb.WriteString("\n")
		for _, child := range n.Options {
			if child != nil {
				writeItem(sb, child, depth+1)
			}
		}
	}
}

// RenderOutline writes the outline to w, styled with glamour when styled is true.
func RenderOutline(w io.Writer, root *domain.Node, styled bool) error {
	md := Outline(root)
	if styled {
		out, err := NewRenderer()(md)
		if err != nil {
			return fmt.Errorf("render outline: %w", err)
		}
		md = out
	}
	_, err := io.WriteString(w, md)
	return err
}
