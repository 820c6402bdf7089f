package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner outputs the arbor ASCII art banner.
func PrintBanner(w io.Writer) {
	p := termenv.ColorProfile()
	// Greens, from canopy to trunk
	lines := []struct {
		text  string
		color string
	}{
		{"             _                 ", "#4ade80"},
		{"   __ _ _ __| |__   ___  _ __ ", "#22c55e"},
		{"  / _` | '__| '_ \\ / _ \\| '__|", "#16a34a"},
		{" | (_| | |  | |_) | (_) | |   ", "#15803d"},
		{"  \\__,_|_|  |_.__/ \\___/|_|   ", "#a16207"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}
