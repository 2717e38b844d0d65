package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the ASCII art banner and the version to w.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	lines := []struct{ text, color string }{
		{"  __  __           _ _", "#818cf8"},
		{" |  \\/  | ___ _ __(_) |_ ___", "#a78bfa"},
		{" | |\\/| |/ _ \\ '__| | __/ __|", "#c084fc"},
		{" | |  | |  __/ |  | | |_\\__ \\", "#e879f9"},
		{" |_|  |_|\\___|_|  |_|\\__|___/", "#f472b6"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintln(w, out.String("  timetable messages <-> CSV  "+version).Faint())
	fmt.Fprintln(w)
}
