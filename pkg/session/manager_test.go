package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/pkg/adapters/memory"
	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/pkg/domain"
	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/pkg/journey"
	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/pkg/ports"
	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/pkg/session"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// slowAnswers simulates IO latency to provoke lost updates if locking is missing.
type slowAnswers struct {
	ports.AnswerStore
}

func (s slowAnswers) Get(ctx context.Context, dataKey, key string) (any, bool, error) {
	time.Sleep(2 * time.Millisecond)
	return s.AnswerStore.Get(ctx, dataKey, key)
}

type slowStore struct {
	*memory.Store
}

func (s slowStore) Session(sessionID string) ports.AnswerStore {
	return slowAnswers{s.Store.Session(sessionID)}
}

func TestManager_SerialisesReadMergeWrite(t *testing.T) {
	ctx := context.Background()
	manager := session.NewManager(slowStore{memory.NewStore()})
	id := "race-test"

	root := journey.NewStateService(manager.Answers(id), "")
	require.NoError(t, root.InitializeJourneyWithID(ctx, "journey", nil))
	require.NoError(t, root.ForJourney("journey").InitializeSubJourney(ctx, "sub", "CHANGE_ANSWER"))

	var wg sync.WaitGroup
	concurrentWrites := 20

	for i := 0; i < concurrentWrites; i++ {
		wg.Add(1)
		go func(val int) {
			defer wg.Done()

			// Alternate between the base journey and a sub-journey sharing its bag.
			journeyID := "journey"
			if val%2 == 1 {
				journeyID = "sub"
			}
			err := manager.WithLock(ctx, id, func(ctx context.Context) error {
				state := journey.NewStateService(manager.Answers(id), journeyID)
				return state.AddSingleStepData(ctx, stepName(val), domain.PageData{"v": val})
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	all, err := journey.NewStateService(manager.Answers(id), "journey").SubmittedStepData(ctx)
	require.NoError(t, err)
	assert.Len(t, all, concurrentWrites, "no submission may be lost")
}

func stepName(i int) string {
	return "step-" + string(rune('a'+i))
}

func TestManager_Inspect(t *testing.T) {
	ctx := context.Background()
	manager := session.NewManager(memory.NewStore())

	_, err := manager.Inspect(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	require.NoError(t, manager.Answers("s1").SetMetadata(ctx, "j", domain.JourneyMetadata{DataKey: "k"}))
	snap, err := manager.Inspect(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "k", snap.Metadata["j"].DataKey)

	sessions, err := manager.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, sessions)

	require.NoError(t, manager.Delete(ctx, "s1"))
	sessions, err = manager.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

type fakeLocker struct {
	mu       sync.Mutex
	locked   []string
	released int
	ttl      time.Duration
	err      error
}

func (f *fakeLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.locked = append(f.locked, key)
	f.ttl = ttl
	return func(context.Context) error {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.released++
		return nil
	}, nil
}

func TestManager_DistributedLock(t *testing.T) {
	ctx := context.Background()
	locker := &fakeLocker{}
	manager := session.NewManager(memory.NewStore(), session.WithLocker(locker), session.WithLockTTL(5*time.Second))

	ran := false
	require.NoError(t, manager.WithLock(ctx, "s1", func(context.Context) error {
		ran = true
		return nil
	}))

	assert.True(t, ran)
	assert.Equal(t, []string{"s1"}, locker.locked)
	assert.Equal(t, 1, locker.released)
	assert.Equal(t, 5*time.Second, locker.ttl)
}

func TestManager_DistributedLockFailure(t *testing.T) {
	locker := &fakeLocker{err: errors.New("redis down")}
	manager := session.NewManager(memory.NewStore(), session.WithLocker(locker))

	err := manager.WithLock(context.Background(), "s1", func(context.Context) error {
		t.Fatal("fn must not run without the lock")
		return nil
	})
	assert.ErrorContains(t, err, "failed to acquire distributed lock")
}
