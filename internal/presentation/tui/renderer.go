package tui

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/pkg/journey"
	"golang.org/x/term"
)

const defaultWidth = 100

// NewRenderer returns a function that renders markdown using glamour.
// Output is plain when f is not a terminal, and wrapped to the terminal width otherwise.
func NewRenderer(f *os.File) (func(string) (string, error), error) {
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(defaultWidth)}
	if IsTerminal(f) {
		opts = append(opts, glamour.WithAutoStyle())
		if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > 0 {
			opts = append(opts, glamour.WithWordWrap(width))
		}
	} else {
		opts = append(opts, glamour.WithStandardStyle("notty"))
	}

	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return nil, fmt.Errorf("create markdown renderer: %w", err)
	}
	return r.Render, nil
}

// IsTerminal reports whether f is an interactive terminal.
func IsTerminal(f *os.File) bool {
	return f != nil && term.IsTerminal(int(f.Fd()))
}

// DescribeJourney renders a journey's steps as a markdown document.
func DescribeJourney(name string, steps []journey.StepDescriptor) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", name)

	visitable := 0
	for _, s := range steps {
		if !s.Notional {
			visitable++
		}
	}
	fmt.Fprintf(&sb, "%d steps, %d of them visitable.\n\n", len(steps), visitable)

	sb.WriteString("| Step | Route | Task | Depends on |\n")
	sb.WriteString("|---|---|---|---|\n")
	for _, s := range steps {
		route := "`" + s.Segment + "`"
		if s.Notional {
			route = "_notional_"
		}
		task := s.Task
		if task == "" {
			task = "-"
		}
		deps := "-"
		if len(s.Dependencies) > 0 {
			deps = strings.Join(s.Dependencies, ", ")
		}
		fmt.Fprintf(&sb, "| %s | %s | %s | %s |\n", s.Name, route, task, deps)
	}
	return sb.String()
}
