package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/kjfrm085feather/vps-bot/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const deadline int64 = 1_700_000_000

// fixedClock returns a clock pinned offset before the shared deadline.
func fixedClock(offset time.Duration) func() time.Time {
	at := time.Unix(deadline, 0).Add(-offset)
	return func() time.Time { return at }
}

type calls struct {
	mu  sync.Mutex
	ids []string
	ch  chan string
}

func newCalls() *calls {
	return &calls{ch: make(chan string, 16)}
}

func (c *calls) resolver(_ context.Context, id string) {
	c.mu.Lock()
	c.ids = append(c.ids, id)
	c.mu.Unlock()
	c.ch <- id
}

func (c *calls) wait(t *testing.T, timeout time.Duration) string {
	t.Helper()
	select {
	case id := <-c.ch:
		return id
	case <-time.After(timeout):
		t.Fatal("resolver was not called")
	}
	return ""
}

func TestPastDeadlineFiresImmediately(t *testing.T) {
	s := New(Options{Now: fixedClock(-time.Hour)})
	defer s.Stop()
	c := newCalls()
	s.Handle(models.DeadlineTrial, c.resolver)

	start := time.Now()
	s.Schedule(models.DeadlineTrial, "7", deadline)
	assert.Equal(t, "7", c.wait(t, time.Second))
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestResolverSeesArmedDeadline(t *testing.T) {
	s := New(Options{Now: fixedClock(-time.Hour)})
	defer s.Stop()
	got := make(chan models.Deadline, 1)
	s.Handle(models.DeadlinePurge, func(ctx context.Context, _ string) {
		d, ok := Armed(ctx)
		assert.True(t, ok)
		got <- d
	})

	s.Schedule(models.DeadlinePurge, models.PurgeDeadlineID, deadline)
	select {
	case d := <-got:
		assert.Equal(t, models.Deadline{Kind: models.DeadlinePurge, ID: models.PurgeDeadlineID, At: deadline}, d)
	case <-time.After(time.Second):
		t.Fatal("resolver was not called")
	}

	_, ok := Armed(context.Background())
	assert.False(t, ok)
}

func TestFutureDeadlineWaits(t *testing.T) {
	s := New(Options{Now: fixedClock(150 * time.Millisecond)})
	defer s.Stop()
	c := newCalls()

	start := time.Now()
	s.Arm("g1", deadline, c.resolver)

	require.Len(t, s.Pending(), 1)
	assert.Equal(t, "g1", c.wait(t, 2*time.Second))
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)

	assert.Eventually(t, func() bool { return len(s.Pending()) == 0 }, time.Second, 10*time.Millisecond)
}

func TestRecoverArmsEveryKnownKind(t *testing.T) {
	s := New(Options{Now: fixedClock(-time.Minute)})
	defer s.Stop()
	trials, giveaways := newCalls(), newCalls()
	s.Handle(models.DeadlineTrial, trials.resolver)
	s.Handle(models.DeadlineGiveaway, giveaways.resolver)

	n := s.Recover([]models.Deadline{
		{Kind: models.DeadlineTrial, ID: "1", At: deadline},
		{Kind: models.DeadlineGiveaway, ID: "m1", At: deadline},
		{Kind: models.DeadlinePurge, ID: models.PurgeDeadlineID, At: deadline},
	})
	assert.Equal(t, 2, n)
	assert.Equal(t, "1", trials.wait(t, time.Second))
	assert.Equal(t, "m1", giveaways.wait(t, time.Second))
}

func TestDoubleArmRunsTwice(t *testing.T) {
	s := New(Options{Now: fixedClock(0)})
	defer s.Stop()
	c := newCalls()
	s.Handle(models.DeadlineTrial, c.resolver)

	s.Schedule(models.DeadlineTrial, "1", deadline)
	s.Schedule(models.DeadlineTrial, "1", deadline)
	c.wait(t, time.Second)
	c.wait(t, time.Second)

	c.mu.Lock()
	defer c.mu.Unlock()
	assert.Equal(t, []string{"1", "1"}, c.ids)
}

func TestStopDropsArmedDeadlines(t *testing.T) {
	s := New(Options{Now: fixedClock(time.Hour)})
	c := newCalls()
	s.Handle(models.DeadlineTrial, c.resolver)
	s.Schedule(models.DeadlineTrial, "1", deadline)
	require.Len(t, s.Pending(), 1)

	s.Stop()
	assert.Empty(t, s.Pending())

	s.Schedule(models.DeadlineTrial, "2", deadline)
	assert.Empty(t, s.Pending())
	select {
	case id := <-c.ch:
		t.Fatalf("resolver ran for %s after Stop", id)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestResolverPanicIsContained(t *testing.T) {
	s := New(Options{Now: fixedClock(0)})
	defer s.Stop()
	c := newCalls()

	s.Arm("boom", deadline, func(context.Context, string) { panic("resolver failed") })
	s.Arm("ok", deadline, c.resolver)

	assert.Equal(t, "ok", c.wait(t, time.Second))
	assert.Eventually(t, func() bool { return len(s.Pending()) == 0 }, time.Second, 10*time.Millisecond)
}
