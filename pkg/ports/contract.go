package ports

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/pkg/domain"
)

// RunAnswerStoreContract runs a suite of tests to verify that a SessionStore implementation
// and the AnswerStores it hands out adhere to the defined interface contract.
//
// Values are compared after a round trip through the backend, so the suite
// only stores strings and string maps.
func RunAnswerStoreContract(t *testing.T, store SessionStore) {
	ctx := context.Background()
	sessionID := fmt.Sprintf("contract-test-session-%d", time.Now().UnixNano())

	t.Run("Set and Get", func(t *testing.T) {
		answers := store.Session(sessionID)
		require.NoError(t, answers.Set(ctx, "bag-1", "foo", "bar"))

		got, ok, err := answers.Get(ctx, "bag-1", "foo")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "bar", got)
	})

	t.Run("Set merges keys", func(t *testing.T) {
		answers := store.Session(sessionID)
		require.NoError(t, answers.Set(ctx, "bag-2", "first", "1"))
		require.NoError(t, answers.Set(ctx, "bag-2", "second", map[string]any{"nested": "2"}))
		require.NoError(t, answers.Set(ctx, "bag-2", "first", "updated"))

		first, ok, err := answers.Get(ctx, "bag-2", "first")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "updated", first)

		second, ok, err := answers.Get(ctx, "bag-2", "second")
		require.NoError(t, err)
		require.True(t, ok)
		page, ok := domain.AsPageData(second)
		require.True(t, ok, "nested maps must come back as maps, got %T", second)
		assert.Equal(t, "2", page["nested"])
	})

	t.Run("Get Missing", func(t *testing.T) {
		answers := store.Session(sessionID)
		_, ok, err := answers.Get(ctx, "no-such-bag", "foo")
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, answers.Set(ctx, "bag-3", "foo", "bar"))
		_, ok, err = answers.Get(ctx, "bag-3", "missing")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Remove", func(t *testing.T) {
		answers := store.Session(sessionID)
		require.NoError(t, answers.Set(ctx, "bag-4", "foo", "bar"))
		require.NoError(t, answers.Remove(ctx, "bag-4"))

		_, ok, err := answers.Get(ctx, "bag-4", "foo")
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, answers.Remove(ctx, "never-written"), "removing a missing bag is not an error")
	})

	t.Run("Metadata", func(t *testing.T) {
		answers := store.Session(sessionID)
		_, err := answers.GetMetadata(ctx, "unknown-journey")
		assert.ErrorIs(t, err, domain.ErrJourneyNotFound)

		base := domain.JourneyMetadata{DataKey: "data-key"}
		sub := domain.JourneyMetadata{DataKey: "data-key", BaseJourneyID: "base", SubJourneyName: "CHANGE_ANSWER"}
		require.NoError(t, answers.SetMetadata(ctx, "base", base))
		require.NoError(t, answers.SetMetadata(ctx, "sub", sub))

		got, err := answers.GetMetadata(ctx, "base")
		require.NoError(t, err)
		assert.Equal(t, base, got)
		got, err = answers.GetMetadata(ctx, "sub")
		require.NoError(t, err)
		assert.Equal(t, sub, got)

		require.NoError(t, answers.RemoveMetadata(ctx, "base"))
		_, err = answers.GetMetadata(ctx, "base")
		assert.ErrorIs(t, err, domain.ErrJourneyNotFound)
		_, err = answers.GetMetadata(ctx, "sub")
		assert.NoError(t, err, "removing one identifier leaves the others in place")
	})

	t.Run("Sessions are isolated", func(t *testing.T) {
		other := store.Session(sessionID + "-other")
		_, ok, err := other.Get(ctx, "bag-1", "foo")
		require.NoError(t, err)
		assert.False(t, ok)
		_, err = other.GetMetadata(ctx, "sub")
		assert.ErrorIs(t, err, domain.ErrJourneyNotFound)
	})

	t.Run("Snapshot", func(t *testing.T) {
		snap, err := store.Snapshot(ctx, sessionID)
		require.NoError(t, err)
		assert.Contains(t, snap.Metadata, "sub")
		require.Contains(t, snap.Bags, "bag-1")
		assert.Equal(t, "bar", snap.Bags["bag-1"]["foo"])

		_, err = store.Snapshot(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		require.NoError(t, store.Session(id1).Set(ctx, "bag", "k", "v"))
		require.NoError(t, store.Session(id2).SetMetadata(ctx, "j", domain.JourneyMetadata{DataKey: "bag"}))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, sessionID))

		answers := store.Session(sessionID)
		_, ok, err := answers.Get(ctx, "bag-1", "foo")
		require.NoError(t, err)
		assert.False(t, ok)
		_, err = answers.GetMetadata(ctx, "sub")
		assert.ErrorIs(t, err, domain.ErrJourneyNotFound)

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.NotContains(t, sessions, sessionID)
	})
}
