package journey_test

import (
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/pkg/adapters/memory"
	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/pkg/domain"
	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/pkg/journey"
	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/pkg/ports"
)

func newAnswers() ports.AnswerStore {
	return memory.NewStore().Session("test-session")
}

func TestStateService_UnresolvedJourney(t *testing.T) {
	ctx := context.Background()

	_, _, err := journey.NewStateService(newAnswers(), "").GetValue(ctx, "foo")
	assert.ErrorIs(t, err, domain.ErrJourneyNotFound)

	_, err = journey.NewStateService(newAnswers(), "unknown").Metadata(ctx)
	assert.ErrorIs(t, err, domain.ErrJourneyNotFound)
}

func TestStateService_InitializeJourneyWithID_RunsInitializerOnce(t *testing.T) {
	ctx := context.Background()
	answers := newAnswers()
	svc := journey.NewStateService(answers, "")

	calls := 0
	initializer := func(ctx context.Context, state *journey.StateService) error {
		calls++
		assert.Equal(t, "journey-1", state.JourneyID())
		return state.SetValue(ctx, "propertyId", "42")
	}

	require.NoError(t, svc.InitializeJourneyWithID(ctx, "journey-1", initializer))
	first, err := svc.ForJourney("journey-1").Metadata(ctx)
	require.NoError(t, err)

	require.NoError(t, svc.InitializeJourneyWithID(ctx, "journey-1", initializer))
	second, err := svc.ForJourney("journey-1").Metadata(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, first.DataKey, second.DataKey)

	value, ok, err := svc.ForJourney("journey-1").GetValue(ctx, "propertyId")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "42", value)
}

func TestStateService_SubJourneySharesAnswers(t *testing.T) {
	ctx := context.Background()
	answers := newAnswers()
	root := journey.NewStateService(answers, "")
	require.NoError(t, root.InitializeJourneyWithID(ctx, "base", nil))

	base := root.ForJourney("base")
	require.NoError(t, base.InitializeSubJourney(ctx, "1base", "CHANGE_ANSWER"))
	sub := base.ForJourney("1base")

	require.NoError(t, base.SetValue(ctx, "fromBase", "a"))
	require.NoError(t, sub.SetValue(ctx, "fromSub", "b"))

	got, ok, err := sub.GetValue(ctx, "fromBase")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "a", got)

	got, ok, err = base.GetValue(ctx, "fromSub")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "b", got)

	baseMD, err := base.Metadata(ctx)
	require.NoError(t, err)
	subMD, err := sub.Metadata(ctx)
	require.NoError(t, err)
	assert.Equal(t, baseMD.DataKey, subMD.DataKey)
	assert.Equal(t, "base", subMD.BaseJourneyID)

	name, err := sub.SubJourneyName(ctx)
	require.NoError(t, err)
	assert.Equal(t, "CHANGE_ANSWER", name)

	name, err = base.SubJourneyName(ctx)
	require.NoError(t, err)
	assert.Empty(t, name)
}

func TestStateService_InitializeSubJourney_Idempotent(t *testing.T) {
	ctx := context.Background()
	root := journey.NewStateService(newAnswers(), "")
	require.NoError(t, root.InitializeJourneyWithID(ctx, "base", nil))
	require.NoError(t, root.InitializeJourneyWithID(ctx, "other", nil))

	require.NoError(t, root.ForJourney("base").InitializeSubJourney(ctx, "sub", "FIRST"))
	require.NoError(t, root.ForJourney("other").InitializeSubJourney(ctx, "sub", "SECOND"))

	md, err := root.ForJourney("sub").Metadata(ctx)
	require.NoError(t, err)
	assert.Equal(t, "base", md.BaseJourneyID)
	assert.Equal(t, "FIRST", md.SubJourneyName)
}

func TestStateService_InitializeSubJourney_RequiresResolvedBase(t *testing.T) {
	err := journey.NewStateService(newAnswers(), "missing").InitializeSubJourney(context.Background(), "sub", "X")
	assert.ErrorIs(t, err, domain.ErrJourneyNotFound)
}

func TestStateService_DeleteState(t *testing.T) {
	ctx := context.Background()
	root := journey.NewStateService(newAnswers(), "")
	require.NoError(t, root.InitializeJourneyWithID(ctx, "base", nil))
	base := root.ForJourney("base")
	require.NoError(t, base.InitializeSubJourney(ctx, "sub", "CHANGE_ANSWER"))
	require.NoError(t, base.SetValue(ctx, "foo", "bar"))

	require.NoError(t, base.DeleteState(ctx))

	_, _, err := base.GetValue(ctx, "foo")
	assert.ErrorIs(t, err, domain.ErrJourneyNotFound)

	// Sibling identifiers keep their metadata but the shared bag is gone.
	_, ok, err := base.ForJourney("sub").GetValue(ctx, "foo")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStateService_AddSingleStepData_Merges(t *testing.T) {
	ctx := context.Background()
	root := journey.NewStateService(newAnswers(), "")
	require.NoError(t, root.InitializeJourneyWithID(ctx, "j", nil))
	svc := root.ForJourney("j")

	require.NoError(t, svc.AddSingleStepData(ctx, "first", domain.PageData{"a": "1"}))
	require.NoError(t, svc.AddSingleStepData(ctx, "second", domain.PageData{"b": "2"}))
	require.NoError(t, svc.AddSingleStepData(ctx, "first", domain.PageData{"a": "3"}))

	all, err := svc.SubmittedStepData(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]domain.PageData{
		"first":  {"a": "3"},
		"second": {"b": "2"},
	}, all)

	_, ok, err := svc.StepData(ctx, "third")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGenerateJourneyID(t *testing.T) {
	id := journey.GenerateJourneyID("Property registration for session abc")
	assert.Equal(t, id, journey.GenerateJourneyID("Property registration for session abc"))
	assert.NotEqual(t, id, journey.GenerateJourneyID("Property registration for session abd"))
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-z]+$`), id)
}

func TestURLWithJourneyState(t *testing.T) {
	assert.Equal(t, "occupancy?journeyId=abc", journey.URLWithJourneyState("occupancy", "abc"))
	assert.Equal(t, "occupancy?x=1&journeyId=a+b", journey.URLWithJourneyState("occupancy?x=1", "a b"))
}

// countingAnswers counts the reads that reach the underlying store.
type countingAnswers struct {
	ports.AnswerStore
	gets, metadata int
}

func (c *countingAnswers) Get(ctx context.Context, dataKey, key string) (any, bool, error) {
	c.gets++
	return c.AnswerStore.Get(ctx, dataKey, key)
}

func (c *countingAnswers) GetMetadata(ctx context.Context, journeyID string) (domain.JourneyMetadata, error) {
	c.metadata++
	return c.AnswerStore.GetMetadata(ctx, journeyID)
}

func TestStateService_ReadsStoreOncePerRequest(t *testing.T) {
	ctx := context.Background()
	answers := newAnswers()
	root := journey.NewStateService(answers, "")
	require.NoError(t, root.InitializeJourneyWithID(ctx, "journey-1", nil))
	setup := root.ForJourney("journey-1")
	require.NoError(t, setup.AddSingleStepData(ctx, "a", domain.PageData{"name": "first"}))
	require.NoError(t, setup.AddSingleStepData(ctx, "b", domain.PageData{"name": "second"}))

	counting := &countingAnswers{AnswerStore: answers}
	state := journey.NewStateService(counting, "journey-1")
	res, err := orchestrator(t, buildABC(t, state), "c").Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, res.View)
	assert.Equal(t, 1, counting.gets)
	assert.Equal(t, 1, counting.metadata)
}

func TestStateService_WritesRefreshCachedReads(t *testing.T) {
	ctx := context.Background()
	counting := &countingAnswers{AnswerStore: newAnswers()}
	root := journey.NewStateService(counting, "")
	require.NoError(t, root.InitializeJourneyWithID(ctx, "journey-1", nil))
	state := root.ForJourney("journey-1")

	_, ok, err := state.StepData(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, state.AddSingleStepData(ctx, "a", domain.PageData{"name": "first"}))
	data, ok, err := root.ForJourney("journey-1").StepData(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "first", data["name"])

	j := newABC(state)
	_, err = journey.Journey(state, j.declare)
	require.NoError(t, err)
	reachable, err := j.c.Reachable(ctx)
	require.NoError(t, err)
	assert.False(t, reachable)

	require.NoError(t, state.AddSingleStepData(ctx, "b", domain.PageData{"name": "second"}))
	reachable, err = j.c.Reachable(ctx)
	require.NoError(t, err)
	assert.True(t, reachable)

	require.NoError(t, state.DeleteState(ctx))
	_, err = state.Metadata(ctx)
	assert.ErrorIs(t, err, domain.ErrJourneyNotFound)
}
