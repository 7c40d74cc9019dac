package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})
	require.NoError(t, rootCmd.ExecuteContext(context.Background()))
	return out.String()
}

func TestVersionCommand(t *testing.T) {
	assert.Equal(t, "prsdb version dev\n", run(t, "version"))
}

func TestGraphCommand(t *testing.T) {
	out := run(t, "graph")
	assert.Contains(t, out, "graph TD")
	assert.Contains(t, out, "task-list")
}

func TestDescribeCommand_Raw(t *testing.T) {
	out := run(t, "describe", "--raw")
	assert.Contains(t, out, "| Step | Route | Task | Depends on |")
}
