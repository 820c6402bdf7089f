package graph

import "strings"

const (
	// maxDotLabel is the number of runes kept before a Graphviz label is truncated.
	maxDotLabel = 30
	// dotPlaceholder replaces blank Graphviz labels.
	dotPlaceholder = "Untitled"
)

var newlines = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// mermaidLabel prepares text for a quoted Mermaid label.
func mermaidLabel(s string) string {
	s = strings.ReplaceAll(s, `"`, "#quot;")
	return newlines.Replace(s)
}

var dotEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\r\n", `\n`,
	"\n", `\n`,
	"\r", `\n`,
)

// dotLabel truncates and escapes text for a quoted DOT label.
func dotLabel(s string) string {
	if strings.TrimSpace(s) == "" {
		return dotPlaceholder
	}
	if r := []rune(s); len(r) > maxDotLabel {
		s = string(r[:maxDotLabel]) + "..."
	}
	return dotEscaper.Replace(s)
}
