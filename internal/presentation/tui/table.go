package tui

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/aretw0/arbor/pkg/identity"
)

var (
	colorCyan  = lipgloss.Color("36")
	colorGreen = lipgloss.Color("35")
	colorBlue  = lipgloss.Color("75")
	colorGray  = lipgloss.Color("245")

	styleHeader = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	styleID     = lipgloss.NewStyle().Foreground(colorCyan).Width(6).Align(lipgloss.Right)
	styleKind   = lipgloss.NewStyle().Foreground(colorGray).Width(14)
	styleTitle  = lipgloss.NewStyle()

	kindStyles = map[string]lipgloss.Style{
		"decision":      lipgloss.NewStyle().Foreground(colorCyan),
		"terminal":      lipgloss.NewStyle().Foreground(colorBlue),
		"internal_link": lipgloss.NewStyle().Foreground(colorGreen),
	}
)

// NodeTable lays out node references as aligned rows: id, kind, title.
func NodeTable(refs []identity.Ref) string {
	var sb strings.Builder
	sb.WriteString(styleHeader.Render(styleID.Render("ID") + "  " + styleKind.Render("KIND") + "TITLE"))
	sb.WriteString("\n")

	for _, r := range refs {
		kind := styleKind.Render(r.Kind)
		if s, ok := kindStyles[r.Kind]; ok {
			kind = s.Width(14).Render(r.Kind)
		}
		title := r.Title
		if strings.TrimSpace(title) == "" {
			title = "-"
		}
		sb.WriteString(styleID.Render(strconv.Itoa(r.ID)) + "  " + kind + styleTitle.Render(title))
		sb.WriteString("\n")
	}
	return sb.String()
}
