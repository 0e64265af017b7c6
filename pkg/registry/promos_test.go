package registry

import (
	"testing"
	"time"

	"github.com/kjfrm085feather/vps-bot/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedeemPromoConsumesUses(t *testing.T) {
	f := newFixture(t)
	_, err := f.reg.CreatePromo("SPRING", 25, 2, 0)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		amount, err := f.reg.RedeemPromo("u1", "SPRING")
		require.NoError(t, err)
		assert.Equal(t, int64(25), amount)
	}
	_, err = f.reg.RedeemPromo("u2", "SPRING")
	assert.ErrorIs(t, err, ErrPromoExpired)

	acc, _ := f.reg.Account("u1")
	assert.Equal(t, int64(50), acc.Credits)
	_, ok := f.reg.Account("u2")
	assert.False(t, ok, "rejected redemption creates no account")

	p, ok := f.reg.Promo("SPRING")
	require.True(t, ok)
	assert.Equal(t, 0, p.Uses)
}

func TestRedeemPromoRejections(t *testing.T) {
	f := newFixture(t)
	_, err := f.reg.RedeemPromo("u1", "NOPE")
	assert.ErrorIs(t, err, ErrPromoNotFound)

	_, err = f.reg.CreatePromo("SHORT", 10, 5, f.reg.Now()+3600)
	require.NoError(t, err)
	_, err = f.reg.RedeemPromo("u1", "SHORT")
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	_, err = f.reg.RedeemPromo("u1", "SHORT")
	assert.ErrorIs(t, err, ErrPromoExpired)

	_, err = f.reg.CreatePromo("ZERO", 0, 1, 0)
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = f.reg.CreatePromo(" ", 10, 1, 0)
	assert.ErrorIs(t, err, ErrInvalidPromo)
	_, err = f.reg.CreatePromo("NOUSES", 10, 0, 0)
	assert.ErrorIs(t, err, ErrInvalidPromo)
}

func TestPromosListAndRemove(t *testing.T) {
	f := newFixture(t)
	_, err := f.reg.CreatePromo("B", 10, 1, 0)
	require.NoError(t, err)
	_, err = f.reg.CreatePromo("A", 20, 3, 0)
	require.NoError(t, err)

	list := f.reg.Promos()
	require.Len(t, list, 2)
	assert.Equal(t, "A", list[0].Code)
	assert.Equal(t, 3, list[0].Uses)

	assert.True(t, f.reg.RemovePromo("A"))
	assert.False(t, f.reg.RemovePromo("A"))
	assert.Len(t, f.reg.Promos(), 1)
}

func TestPromosSurviveReload(t *testing.T) {
	f := newFixture(t)
	_, err := f.reg.CreatePromo("KEEP", 15, 4, 0)
	require.NoError(t, err)
	_, err = f.reg.RedeemPromo("u1", "KEEP")
	require.NoError(t, err)

	reopened := New(store.Open(f.backend), nil, DefaultOptions())
	p, ok := reopened.Promo("KEEP")
	require.True(t, ok)
	assert.Equal(t, int64(15), p.Amount)
	assert.Equal(t, 3, p.Uses)
	acc, _ := reopened.Account("u1")
	assert.Equal(t, int64(15), acc.Credits)
}
