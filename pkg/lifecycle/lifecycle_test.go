package lifecycle

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kjfrm085feather/vps-bot/pkg/models"
	"github.com/kjfrm085feather/vps-bot/pkg/registry"
	"github.com/kjfrm085feather/vps-bot/pkg/scheduler"
	"github.com/kjfrm085feather/vps-bot/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMessenger struct {
	mu          sync.Mutex
	reactors    []string
	reactorsErr error
	block       chan struct{}
	notified    []string
	summaries   []GiveawaySummary
	announced   map[string][]string
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{announced: make(map[string][]string)}
}

func (m *fakeMessenger) Notify(_ context.Context, accountID, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notified = append(m.notified, accountID)
	return errors.New("dms closed")
}

func (m *fakeMessenger) Reactors(ctx context.Context, _, _, _ string) ([]string, error) {
	if m.block != nil {
		<-m.block
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.reactors...), m.reactorsErr
}

func (m *fakeMessenger) EditSummary(_ context.Context, _, _ string, s GiveawaySummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.summaries = append(m.summaries, s)
	return nil
}

func (m *fakeMessenger) Announce(_ context.Context, channelID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.announced[channelID] = append(m.announced[channelID], text)
	return nil
}

type recorder struct {
	mu    sync.Mutex
	kinds []string
}

func (r *recorder) Publish(kind string, _ interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds = append(r.kinds, kind)
}

type env struct {
	reg    *registry.Registry
	sched  *scheduler.Scheduler
	msg    *fakeMessenger
	events *recorder
	engine *Engine
	now    time.Time
}

func newEnv(t *testing.T, backend *store.MemoryBackend, pick func(int) int) *env {
	t.Helper()
	e := &env{msg: newFakeMessenger(), events: &recorder{}, now: time.Unix(1_700_000_000, 0)}
	clock := func() time.Time { return e.now }
	e.sched = scheduler.New(scheduler.Options{Now: clock})
	t.Cleanup(e.sched.Stop)

	opts := registry.DefaultOptions()
	opts.Now = clock
	e.reg = registry.New(store.Open(backend), e.sched, opts)
	e.engine = New(e.reg, e.msg, Options{Pick: pick, Events: e.events})
	e.engine.Register(e.sched)
	return e
}

func TestExpireTrialNotifiesOnce(t *testing.T) {
	e := newEnv(t, store.NewMemoryBackend(), nil)
	e.sched.Stop()

	id, _, err := e.reg.StartTrial("u1")
	require.NoError(t, err)
	e.now = e.now.Add(72 * time.Hour)

	e.engine.ExpireTrial(context.Background(), id)
	e.engine.ExpireTrial(context.Background(), id)

	_, ok := e.reg.Resource(id)
	assert.False(t, ok)
	acc, _ := e.reg.Account("u1")
	assert.False(t, acc.TrialActive)
	assert.Equal(t, []string{"u1"}, e.msg.notified)
	assert.Equal(t, []string{EventTrialExpired}, e.events.kinds)
}

func TestRecoveryExpiresPastTrial(t *testing.T) {
	backend := store.NewMemoryBackend()
	backend.Put(store.KindAccounts, `{"users":{"u1":{"credits":10,"trial_claimed":true,"trial_active":true,"is_admin":false}}}`)
	backend.Put(store.KindResources, `{"vps":{"1":{"id":"1","owner":"u1","cpu":1,"ram":2,"storage":20,"status":"trial","shared_with":[],"created_at":"2023-11-11T00:00:00Z","trial_expires":1699999000}},"purge":{"active":false,"protected_vps":[],"protected_users":[]},"maintenance":false}`)

	e := newEnv(t, backend, nil)
	assert.Equal(t, 1, e.sched.Recover(e.reg.ListPending()))

	assert.Eventually(t, func() bool {
		_, ok := e.reg.Resource("1")
		return !ok
	}, time.Second, 5*time.Millisecond)
	acc, _ := e.reg.Account("u1")
	assert.False(t, acc.TrialActive)
}

func TestFinalizeGiveawayWithoutReactors(t *testing.T) {
	e := newEnv(t, store.NewMemoryBackend(), nil)
	e.sched.Stop()
	require.NoError(t, e.reg.CreateGiveaway(models.Giveaway{MessageID: "m1", ChannelID: "c1", EndTS: 1, Amount: 100}))
	e.reg.EnsureAccount("a")

	e.engine.FinalizeGiveaway(context.Background(), "m1")

	_, ok := e.reg.Giveaway("m1")
	assert.False(t, ok)
	acc, _ := e.reg.Account("a")
	assert.Zero(t, acc.Credits)
	require.Len(t, e.msg.summaries, 1)
	assert.Equal(t, GiveawaySummary{Participants: 0, Amount: 100}, e.msg.summaries[0])
}

func TestFinalizeGiveawayCreditsExactlyOneWinner(t *testing.T) {
	e := newEnv(t, store.NewMemoryBackend(), func(n int) int { return n - 1 })
	e.sched.Stop()
	e.msg.reactors = []string{"A", "B", "C"}
	require.NoError(t, e.reg.CreateGiveaway(models.Giveaway{MessageID: "m1", ChannelID: "c1", EndTS: 1, Amount: 100}))

	e.engine.FinalizeGiveaway(context.Background(), "m1")
	e.engine.FinalizeGiveaway(context.Background(), "m1")

	credits := map[string]int64{}
	for _, id := range []string{"A", "B", "C"} {
		acc, _ := e.reg.Account(id)
		credits[id] = acc.Credits
	}
	assert.Equal(t, map[string]int64{"A": 0, "B": 0, "C": 100}, credits)
	require.Len(t, e.msg.summaries, 1)
	assert.Equal(t, GiveawaySummary{Participants: 3, WinnerID: "C", Amount: 100}, e.msg.summaries[0])
	assert.Equal(t, []string{EventGiveawayFinalized}, e.events.kinds)
}

func TestFinalizeGiveawayUnreachableMessage(t *testing.T) {
	e := newEnv(t, store.NewMemoryBackend(), nil)
	e.sched.Stop()
	e.msg.reactors = []string{"A"}
	e.msg.reactorsErr = errors.New("unknown message")
	require.NoError(t, e.reg.CreateGiveaway(models.Giveaway{MessageID: "m1", ChannelID: "c1", EndTS: 1, Amount: 100}))

	e.engine.FinalizeGiveaway(context.Background(), "m1")

	_, ok := e.reg.Giveaway("m1")
	assert.False(t, ok)
	_, ok = e.reg.Account("A")
	assert.False(t, ok)
	assert.Empty(t, e.msg.summaries)
}

func TestConcurrentFinalizationPaysOnce(t *testing.T) {
	e := newEnv(t, store.NewMemoryBackend(), func(int) int { return 0 })
	e.sched.Stop()
	e.msg.reactors = []string{"A"}
	e.msg.block = make(chan struct{})
	require.NoError(t, e.reg.CreateGiveaway(models.Giveaway{MessageID: "m1", ChannelID: "c1", EndTS: 1, Amount: 100}))

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.engine.FinalizeGiveaway(context.Background(), "m1")
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(e.msg.block)
	wg.Wait()

	acc, _ := e.reg.Account("A")
	assert.Equal(t, int64(100), acc.Credits)
}

func TestStartPurgeAnnouncesAndArmsDeferredSweep(t *testing.T) {
	e := newEnv(t, store.NewMemoryBackend(), nil)
	_, err := e.reg.CreateResource("keep", 1, 1, 1)
	require.NoError(t, err)
	_, err = e.reg.CreateResource("drop", 1, 1, 1)
	require.NoError(t, err)
	e.reg.ProtectAccount("keep")

	window, result, err := e.engine.StartPurge(context.Background(), "c1", "pm")
	require.NoError(t, err)
	assert.Equal(t, []string{"2"}, result.Removed)
	assert.Len(t, e.msg.announced["c1"], 1)

	pending := e.sched.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, models.Deadline{Kind: models.DeadlinePurge, ID: models.PurgeDeadlineID, At: window.EndTS}, pending[0])

	_, _, err = e.engine.StartPurge(context.Background(), "c1", "pm2")
	assert.ErrorIs(t, err, registry.ErrPurgePending)
}

func TestDeferredPurgeAfterStopIsSkipped(t *testing.T) {
	e := newEnv(t, store.NewMemoryBackend(), nil)
	e.sched.Stop()
	_, err := e.reg.CreateResource("u", 1, 1, 1)
	require.NoError(t, err)
	_, err = e.reg.OpenPurgeWindow("c1", "pm")
	require.NoError(t, err)
	e.reg.StopPurge()

	result := e.engine.ExecutePurge(context.Background(), registry.PurgeDeferred)
	assert.True(t, result.Skipped)
	assert.Len(t, e.reg.Resources(), 1)
	assert.Empty(t, e.msg.announced)
}

func TestDeferredPurgeFromStoppedWindowIsSkipped(t *testing.T) {
	e := newEnv(t, store.NewMemoryBackend(), nil)
	e.sched.Stop()
	_, err := e.reg.CreateResource("u", 1, 1, 1)
	require.NoError(t, err)

	first, err := e.reg.OpenPurgeWindow("c1", "pm")
	require.NoError(t, err)
	e.reg.StopPurge()
	e.now = e.now.Add(24 * time.Hour)
	second, err := e.reg.OpenPurgeWindow("c1", "pm2")
	require.NoError(t, err)

	e.now = time.Unix(first.EndTS, 0)
	result := e.engine.ExecuteDeferredPurge(context.Background(), first.EndTS)
	assert.True(t, result.Skipped)
	assert.Len(t, e.reg.Resources(), 1)
	assert.Empty(t, e.msg.announced)

	e.now = time.Unix(second.EndTS, 0)
	result = e.engine.ExecuteDeferredPurge(context.Background(), second.EndTS)
	assert.False(t, result.Skipped)
	assert.Empty(t, e.reg.Resources())
	assert.Len(t, e.msg.announced["c1"], 1)
	assert.Equal(t, []string{EventPurgeCompleted}, e.events.kinds)
}

func TestRecoverSnapshotDoesNotRearmNewTrials(t *testing.T) {
	backend := store.NewMemoryBackend()
	backend.Put(store.KindResources, `{"vps":{"1":{"id":"1","owner":"old","cpu":1,"ram":2,"storage":20,"status":"trial","shared_with":[],"created_at":"2023-11-14T00:00:00Z","trial_expires":1700100000}},"purge":{"active":false,"protected_vps":[],"protected_users":[]},"maintenance":false}`)
	e := newEnv(t, backend, nil)

	pending := e.reg.ListPending()
	id, _, err := e.reg.StartTrial("new")
	require.NoError(t, err)
	assert.Equal(t, 1, e.sched.Recover(pending))

	perID := make(map[string]int)
	for _, d := range e.sched.Pending() {
		perID[d.ID]++
	}
	assert.Equal(t, map[string]int{"1": 1, id: 1}, perID)
}

func TestResourceCreatedPublishes(t *testing.T) {
	e := newEnv(t, store.NewMemoryBackend(), nil)
	e.engine.ResourceCreated("7", "u1", false)
	assert.Equal(t, []string{EventResourceCreated}, e.events.kinds)

	// No bus configured.
	New(e.reg, e.msg, Options{}).ResourceCreated("8", "u1", true)
}
