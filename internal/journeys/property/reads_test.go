package property_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/internal/journeys/property"
	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/pkg/domain"
	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/pkg/journey"
	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/pkg/ports"
)

type countingStore struct {
	ports.AnswerStore
	gets, metadata int
}

func (c *countingStore) Get(ctx context.Context, dataKey, key string) (any, bool, error) {
	c.gets++
	return c.AnswerStore.Get(ctx, dataKey, key)
}

func (c *countingStore) GetMetadata(ctx context.Context, journeyID string) (domain.JourneyMetadata, error) {
	c.metadata++
	return c.AnswerStore.GetMetadata(ctx, journeyID)
}

type countingRegistrar struct {
	*fakeRegistrar
	checks int
}

func (c *countingRegistrar) IsRegistered(ctx context.Context, uprn int64) (bool, error) {
	c.checks++
	return c.fakeRegistrar.IsRegistered(ctx, uprn)
}

func TestJourney_SummaryPagesReadStateOnce(t *testing.T) {
	h := newHarness(t)
	h.answerEverything()

	for _, segment := range []string{property.TaskListSegment, property.CheckAnswersSegment} {
		t.Run(segment, func(t *testing.T) {
			store := &countingStore{AnswerStore: h.store.Session(sessionID)}
			registrar := &countingRegistrar{fakeRegistrar: h.registrar}
			deps := h.deps
			deps.Registrar = registrar

			j, err := property.New(journey.NewStateService(store, journeyID), deps)
			require.NoError(t, err)
			o, ok := j.Graph().Orchestrator(segment)
			require.True(t, ok)

			res, err := o.Get(context.Background())
			require.NoError(t, err)
			require.NotNil(t, res.View)

			assert.LessOrEqual(t, registrar.checks, 1)
			assert.LessOrEqual(t, store.gets, 2)
			assert.Equal(t, 1, store.metadata)
		})
	}
}
