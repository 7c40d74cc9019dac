package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/pkg/adapters/memory"
	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/pkg/ports"
)

func TestMemoryStore_Contract(t *testing.T) {
	store := memory.NewStore()
	ports.RunAnswerStoreContract(t, store)
}

func TestMemoryStore_CopiesValues(t *testing.T) {
	ctx := context.Background()
	answers := memory.NewStore().Session("s1")

	page := map[string]any{"field": "before"}
	require.NoError(t, answers.Set(ctx, "bag", "page", page))
	page["field"] = "mutated by caller"

	got, ok, err := answers.Get(ctx, "bag", "page")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "before", got.(map[string]any)["field"])

	got.(map[string]any)["field"] = "mutated by reader"
	again, _, _ := answers.Get(ctx, "bag", "page")
	assert.Equal(t, "before", again.(map[string]any)["field"])
}
