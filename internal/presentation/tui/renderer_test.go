package tui_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/internal/presentation/tui"
	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/pkg/journey"
)

var steps = []journey.StepDescriptor{
	{Name: "task-list", Segment: "task-list"},
	{Name: "occupancy", Segment: "occupancy", Task: "occupancy"},
	{Name: "occupancy-exit", Notional: true, Task: "occupancy", Dependencies: []string{"occupancy"}},
}

func TestDescribeJourney(t *testing.T) {
	got := tui.DescribeJourney("property-registration", steps)

	assert.Contains(t, got, "# property-registration\n")
	assert.Contains(t, got, "3 steps, 2 of them visitable.")
	assert.Contains(t, got, "| task-list | `task-list` | - | - |")
	assert.Contains(t, got, "| occupancy-exit | _notional_ | occupancy | occupancy |")
}

func TestNewRenderer_NotATerminal(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "out.txt"))
	require.NoError(t, err)
	defer f.Close()

	assert.False(t, tui.IsTerminal(f))

	render, err := tui.NewRenderer(f)
	require.NoError(t, err)
	out, err := render(tui.DescribeJourney("property-registration", steps))
	require.NoError(t, err)
	assert.Contains(t, out, "property-registration")
	assert.Contains(t, out, "occupancy-exit")
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	tui.PrintBanner(&buf, "v1.2.3")
	assert.Contains(t, buf.String(), "v1.2.3")
}
