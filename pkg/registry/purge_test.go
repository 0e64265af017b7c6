package registry

import (
	"math/rand"
	"strconv"
	"testing"
	"time"

	"github.com/kjfrm085feather/vps-bot/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenPurgeWindow(t *testing.T) {
	f := newFixture(t)

	w, err := f.reg.OpenPurgeWindow("c1", "m1")
	require.NoError(t, err)
	assert.True(t, w.Active)
	assert.True(t, w.SweepPending)
	assert.Equal(t, w.StartTS+models.ProtectionWindow, w.EndTS)
	assert.Contains(t, f.armed.got, models.Deadline{Kind: models.DeadlinePurge, ID: models.PurgeDeadlineID, At: w.EndTS})

	_, err = f.reg.OpenPurgeWindow("c1", "m2")
	assert.ErrorIs(t, err, ErrPurgePending)

	assert.True(t, f.reg.StopPurge())
	assert.False(t, f.reg.StopPurge())
	_, err = f.reg.OpenPurgeWindow("c1", "m3")
	assert.NoError(t, err)
}

func TestSweepDeletesOnlyUnprotected(t *testing.T) {
	f := newFixture(t)
	for _, owner := range []string{"listed", "granted", "plain", "plain", "expired"} {
		_, err := f.reg.CreateResource(owner, 1, 1, 1)
		require.NoError(t, err)
	}
	f.reg.GrantProtection("expired", "🔴")
	f.clock.Advance(73 * time.Hour)
	f.reg.GrantProtection("granted", "🟢")
	assert.True(t, f.reg.ProtectAccount("listed"))
	assert.False(t, f.reg.ProtectAccount("listed"))
	assert.True(t, f.reg.ProtectResource("4"))

	_, err := f.reg.OpenPurgeWindow("c1", "m1")
	require.NoError(t, err)
	writes := f.backend.Writes()

	result := f.reg.Sweep(PurgeImmediate)
	assert.Equal(t, []string{"3", "5"}, result.Removed)
	assert.Equal(t, 3, result.Kept)
	assert.Equal(t, models.Snowflake("c1"), result.ChannelID)
	assert.Equal(t, writes+1, f.backend.Writes(), "sweep persists the resource document once")

	info := f.reg.PurgeInfo()
	assert.False(t, info.Window.Active)
	assert.True(t, info.Window.SweepPending)
	assert.Equal(t, 1, info.ActiveProtections)
}

func TestDeferredSweep(t *testing.T) {
	f := newFixture(t)
	_, err := f.reg.CreateResource("early", 1, 1, 1)
	require.NoError(t, err)
	_, err = f.reg.CreateResource("late", 1, 1, 1)
	require.NoError(t, err)
	f.reg.GrantProtection("early", "🔵")

	_, err = f.reg.OpenPurgeWindow("c1", "m1")
	require.NoError(t, err)
	first := f.reg.Sweep(PurgeImmediate)
	assert.Equal(t, []string{"2"}, first.Removed)

	_, err = f.reg.CreateResource("late", 1, 1, 1)
	require.NoError(t, err)
	f.clock.Advance(72 * time.Hour)

	second := f.reg.Sweep(PurgeDeferred)
	assert.False(t, second.Skipped)
	assert.Equal(t, []string{"2"}, second.Removed)
	assert.Equal(t, 1, second.Kept, "protection expiring exactly now still counts")

	third := f.reg.Sweep(PurgeDeferred)
	assert.True(t, third.Skipped)
	assert.Empty(t, third.Removed)
}

func TestStoppedPurgeSkipsDeferredSweep(t *testing.T) {
	f := newFixture(t)
	_, err := f.reg.CreateResource("u", 1, 1, 1)
	require.NoError(t, err)
	_, err = f.reg.OpenPurgeWindow("c1", "m1")
	require.NoError(t, err)
	f.reg.StopPurge()

	result := f.reg.Sweep(PurgeDeferred)
	assert.True(t, result.Skipped)
	assert.Len(t, f.reg.Resources(), 1)
}

func TestStaleDeferredSweepAfterReopen(t *testing.T) {
	f := newFixture(t)
	_, err := f.reg.CreateResource("u", 1, 1, 1)
	require.NoError(t, err)

	first, err := f.reg.OpenPurgeWindow("c1", "m1")
	require.NoError(t, err)
	require.True(t, f.reg.StopPurge())
	f.clock.Advance(24 * time.Hour)
	second, err := f.reg.OpenPurgeWindow("c1", "m2")
	require.NoError(t, err)
	require.Greater(t, second.EndTS, first.EndTS)

	f.clock.Advance(48 * time.Hour)
	stale := f.reg.SweepDeferred(first.EndTS)
	assert.True(t, stale.Skipped)
	assert.Empty(t, stale.Removed)
	assert.True(t, f.reg.Sweep(PurgeDeferred).Skipped, "window has not ended yet")
	assert.Len(t, f.reg.Resources(), 1)
	assert.True(t, f.reg.PurgeInfo().Window.SweepPending)

	f.clock.Advance(24 * time.Hour)
	due := f.reg.SweepDeferred(second.EndTS)
	assert.False(t, due.Skipped)
	assert.Equal(t, []string{"1"}, due.Removed)
	assert.False(t, f.reg.PurgeInfo().Window.SweepPending)
}

func TestSweepClearsTrialFlag(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.reg.StartTrial("u1")
	require.NoError(t, err)
	_, err = f.reg.OpenPurgeWindow("c1", "m1")
	require.NoError(t, err)

	f.reg.Sweep(PurgeImmediate)
	acc, _ := f.reg.Account("u1")
	assert.False(t, acc.TrialActive)
}

func TestGrantProtectionForReaction(t *testing.T) {
	f := newFixture(t)

	_, ok := f.reg.GrantProtectionForReaction("m1", "u1", "🔵")
	assert.False(t, ok, "no purge window yet")

	_, err := f.reg.OpenPurgeWindow("c1", "m1")
	require.NoError(t, err)
	_, ok = f.reg.GrantProtectionForReaction("other", "u1", "🔵")
	assert.False(t, ok)

	rec, ok := f.reg.GrantProtectionForReaction("m1", "u1", "🔵")
	require.True(t, ok)
	assert.Equal(t, f.reg.Now()+models.ProtectionWindow, rec.ExpiresAt)

	f.clock.Advance(time.Hour)
	rec, ok = f.reg.GrantProtectionForReaction("m1", "u1", "🟢")
	require.True(t, ok)
	assert.Equal(t, "🟢", rec.Emoji)
	assert.Equal(t, 1, f.reg.PurgeInfo().ActiveProtections)
	assert.True(t, f.reg.IsProtected("9", "u1"))

	f.clock.Advance(72*time.Hour + time.Second)
	assert.False(t, f.reg.IsProtected("9", "u1"))
}

func TestPurgeInfoListsProtectedAccounts(t *testing.T) {
	f := newFixture(t)
	assert.Empty(t, f.reg.PurgeInfo().ProtectedAccounts)

	f.reg.ProtectAccount("listed")
	f.reg.GrantProtection("granted", "🟢")
	f.reg.GrantProtection("listed", "🔵")
	assert.Equal(t, []string{"granted", "listed"}, f.reg.PurgeInfo().ProtectedAccounts)

	f.clock.Advance(72*time.Hour + time.Second)
	info := f.reg.PurgeInfo()
	assert.Equal(t, []string{"listed"}, info.ProtectedAccounts)
	assert.Equal(t, 0, info.ActiveProtections)
}

func TestUnprotect(t *testing.T) {
	f := newFixture(t)
	f.reg.ProtectResource("1")
	f.reg.ProtectAccount("u1")
	assert.True(t, f.reg.IsProtected("1", "x"))
	assert.True(t, f.reg.IsProtected("2", "u1"))

	assert.True(t, f.reg.UnprotectResource("1"))
	assert.False(t, f.reg.UnprotectResource("1"))
	assert.True(t, f.reg.UnprotectAccount("u1"))
	assert.False(t, f.reg.IsProtected("1", "x"))
	assert.False(t, f.reg.IsProtected("2", "u1"))
}

// Random stores: a sweep removes exactly the resources that are unprotected
// at sweep time.
func TestSweepMatchesIsProtected(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	owners := []string{"a", "b", "c", "d", "e"}

	for round := 0; round < 25; round++ {
		f := newFixture(t)
		for i := 0; i < 12; i++ {
			_, err := f.reg.CreateResource(owners[rng.Intn(len(owners))], 1, 1, 1)
			require.NoError(t, err)
		}
		for _, o := range owners {
			switch rng.Intn(4) {
			case 0:
				f.reg.ProtectAccount(o)
			case 1:
				f.reg.GrantProtection(o, "🔵")
			}
		}
		for i := 0; i < 3; i++ {
			f.reg.ProtectResource(strconv.Itoa(1 + rng.Intn(12)))
		}
		f.clock.Advance(time.Duration(rng.Intn(100)) * time.Hour)

		var want []string
		for _, res := range f.reg.Resources() {
			if !f.reg.IsProtected(res.ID, res.Owner) {
				want = append(want, res.ID)
			}
		}
		before := len(f.reg.Resources())

		result := f.reg.Sweep(PurgeImmediate)
		if want == nil {
			want = []string{}
		}
		assert.Equal(t, want, result.Removed, "round %d", round)
		assert.Equal(t, before-len(want), len(f.reg.Resources()))
		for _, res := range f.reg.Resources() {
			assert.True(t, f.reg.IsProtected(res.ID, res.Owner))
		}
	}
}
