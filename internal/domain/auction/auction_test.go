package auction

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nathangreen1632/MineralCache-sub000/internal/domain/errors"
)

func TestAuction_LifecycleTransitions(t *testing.T) {
	now := time.Now().UTC()

	t.Run("publish then begin then end", func(t *testing.T) {
		a := New(uuid.New(), uuid.New(), "Amethyst geode", 1000)
		require.Equal(t, StatusDraft, a.Status)

		require.NoError(t, a.Publish(now.Add(time.Hour), now.Add(25*time.Hour)))
		assert.Equal(t, StatusScheduled, a.Status)
		require.NotNil(t, a.InitialEndAt)

		require.NoError(t, a.Begin())
		assert.Equal(t, StatusLive, a.Status)

		require.NoError(t, a.End(EndReasonExpired))
		assert.Equal(t, StatusEnded, a.Status)
		assert.Equal(t, EndReasonExpired, a.EndReason)
	})

	t.Run("no backward transitions", func(t *testing.T) {
		a := New(uuid.New(), uuid.New(), "Fluorite", 500)
		require.NoError(t, a.Publish(now, now.Add(time.Hour)))
		require.NoError(t, a.Begin())
		require.NoError(t, a.End(EndReasonClosed))

		err := a.Begin()
		require.Error(t, err)
		assert.True(t, errors.IsCode(err, "ALREADY_TERMINAL"))

		err = a.End(EndReasonClosed)
		assert.True(t, errors.IsCode(err, "ALREADY_TERMINAL"))
	})

	t.Run("cancel from draft scheduled and live", func(t *testing.T) {
		for _, setup := range []func(*Auction){
			func(a *Auction) {},
			func(a *Auction) { _ = a.Publish(now, now.Add(time.Hour)) },
			func(a *Auction) { _ = a.Publish(now, now.Add(time.Hour)); _ = a.Begin() },
		} {
			a := New(uuid.New(), uuid.New(), "Quartz", 100)
			setup(a)
			require.NoError(t, a.Cancel())
			assert.Equal(t, StatusCanceled, a.Status)

			err := a.Cancel()
			assert.True(t, errors.IsCode(err, "ALREADY_TERMINAL"))
		}
	})

	t.Run("publish rejects inverted window", func(t *testing.T) {
		a := New(uuid.New(), uuid.New(), "Calcite", 100)
		err := a.Publish(now.Add(time.Hour), now)
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
	})
}

func TestAuction_IncrementFor(t *testing.T) {
	a := New(uuid.New(), uuid.New(), "Tourmaline", 1000)
	a.Ladder = []LadderTier{
		{ThresholdCents: 0, IncrementCents: 100},
		{ThresholdCents: 10000, IncrementCents: 500},
		{ThresholdCents: 100000, IncrementCents: 2500},
	}

	tests := []struct {
		price int64
		want  int64
	}{
		{price: 0, want: 100},
		{price: 9999, want: 100},
		{price: 10000, want: 500},
		{price: 99999, want: 500},
		{price: 100000, want: 2500},
		{price: 500000, want: 2500},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, a.IncrementFor(tt.price, 100), "price %d", tt.price)
	}

	// No ladder configured falls back to the default increment
	bare := New(uuid.New(), uuid.New(), "Pyrite", 1000)
	assert.Equal(t, int64(250), bare.IncrementFor(5000, 250))
}

func TestAuction_NextMinCents(t *testing.T) {
	a := New(uuid.New(), uuid.New(), "Topaz", 1000)
	a.Ladder = []LadderTier{{ThresholdCents: 0, IncrementCents: 100}}

	// No bids yet: the starting bid is the minimum
	assert.Equal(t, int64(1000), a.NextMinCents(100))

	high := int64(3000)
	bidder := uuid.New()
	a.HighBidCents = &high
	a.HighBidderID = &bidder
	assert.Equal(t, int64(3100), a.NextMinCents(100))
}

func TestAuction_ApplyLeader_Monotonic(t *testing.T) {
	a := New(uuid.New(), uuid.New(), "Garnet", 1000)
	bidder := uuid.New()

	require.NoError(t, a.ApplyLeader(bidder, 1000))
	require.NoError(t, a.ApplyLeader(bidder, 1500))

	err := a.ApplyLeader(bidder, 1200)
	require.Error(t, err)
	assert.Equal(t, int64(1500), *a.HighBidCents)

	err = a.ApplyLeader(bidder, 500)
	require.Error(t, err)
}

func TestAuction_ExtendEnd(t *testing.T) {
	now := time.Now().UTC()
	a := New(uuid.New(), uuid.New(), "Opal", 1000)
	require.NoError(t, a.Publish(now, now.Add(time.Hour)))
	require.NoError(t, a.Begin())

	end := *a.EndAt

	// Forward extension applies
	require.NoError(t, a.ExtendEnd(end.Add(2*time.Minute)))
	assert.Equal(t, end.Add(2*time.Minute), *a.EndAt)
	assert.Equal(t, 2*time.Minute, a.TotalExtension())

	// A stale earlier deadline is a no-op, never a decrease
	require.NoError(t, a.ExtendEnd(end.Add(time.Minute)))
	assert.Equal(t, end.Add(2*time.Minute), *a.EndAt)
}

func TestAuction_ReserveMet(t *testing.T) {
	a := New(uuid.New(), uuid.New(), "Malachite", 1000)
	assert.True(t, a.ReserveMet(), "no reserve configured counts as met")

	reserve := int64(5000)
	a.ReserveCents = &reserve
	assert.False(t, a.ReserveMet())

	high := int64(4999)
	bidder := uuid.New()
	a.HighBidCents = &high
	a.HighBidderID = &bidder
	assert.False(t, a.ReserveMet())

	high = 5000
	a.HighBidCents = &high
	assert.True(t, a.ReserveMet())
}

func TestAuction_NextTransitionAt(t *testing.T) {
	now := time.Now().UTC()
	a := New(uuid.New(), uuid.New(), "Azurite", 1000)
	assert.Nil(t, a.NextTransitionAt())

	require.NoError(t, a.Publish(now.Add(time.Hour), now.Add(2*time.Hour)))
	require.Equal(t, a.StartAt, a.NextTransitionAt())

	require.NoError(t, a.Begin())
	require.Equal(t, a.EndAt, a.NextTransitionAt())

	require.NoError(t, a.End(EndReasonClosed))
	assert.Nil(t, a.NextTransitionAt())
}
