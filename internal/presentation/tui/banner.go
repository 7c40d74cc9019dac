package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the service banner to w, coloured when w supports it.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	lines := []struct {
		text  string
		color string
	}{
		{"  ___ ___  ___ ___  ___ ", "#818cf8"},
		{" | _ \\ _ \\/ __|   \\| _ )", "#a78bfa"},
		{" |  _/   /\\__ \\ |) | _ \\", "#c084fc"},
		{" |_| |_|_\\|___/___/|___/", "#e879f9"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintln(w, out.String(" private rented sector database · "+version).Faint())
	fmt.Fprintln(w)
}
