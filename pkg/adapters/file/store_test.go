package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/pkg/adapters/file"
	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/pkg/domain"
	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/pkg/ports"
)

// Ensure Store implements SessionStore
var _ ports.SessionStore = (*file.Store)(nil)

func TestFileStore_Contract(t *testing.T) {
	store := file.New(t.TempDir())
	ports.RunAnswerStoreContract(t, store)
}

func TestFileStore_WritesOneFilePerSession(t *testing.T) {
	dir := t.TempDir()
	store := file.New(dir)
	ctx := context.Background()

	answers := store.Session("session-1")
	require.NoError(t, answers.SetMetadata(ctx, "journey", domain.JourneyMetadata{DataKey: "bag"}))
	require.NoError(t, answers.Set(ctx, "bag", "foo", "bar"))

	data, err := os.ReadFile(filepath.Join(dir, "session-1.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"foo": "bar"`)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files are left behind")

	// A reopened store sees the same data.
	value, ok, err := file.New(dir).Session("session-1").Get(ctx, "bag", "foo")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "bar", value)
}

func TestFileStore_RemovesEmptySessions(t *testing.T) {
	dir := t.TempDir()
	store := file.New(dir)
	ctx := context.Background()

	answers := store.Session("session-1")
	require.NoError(t, answers.SetMetadata(ctx, "journey", domain.JourneyMetadata{DataKey: "bag"}))
	require.NoError(t, answers.RemoveMetadata(ctx, "journey"))

	_, err := os.Stat(filepath.Join(dir, "session-1.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFileStore_RejectsPathsAsSessionIDs(t *testing.T) {
	store := file.New(t.TempDir())
	err := store.Session("../escape").Set(context.Background(), "bag", "k", "v")
	assert.ErrorContains(t, err, "invalid sessionID")
}
