package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nathangreen1632/MineralCache-sub000/internal/domain/auction"
	"github.com/nathangreen1632/MineralCache-sub000/internal/domain/errors"
	"github.com/nathangreen1632/MineralCache-sub000/internal/service/bidding"
)

func TestMemStore_CreateAuctionRejectsDuplicate(t *testing.T) {
	store := NewMemStore()
	a := auction.New(uuid.New(), uuid.New(), "Malachite stalactite", 1000)

	require.NoError(t, store.CreateAuction(context.Background(), a))

	err := store.CreateAuction(context.Background(), a)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, "ALREADY_EXISTS"))
}

func TestMemStore_MutateDiscardsStagedWritesOnError(t *testing.T) {
	store := NewMemStore()
	a := auction.New(uuid.New(), uuid.New(), "Wulfenite blade", 1000)
	a.Status = auction.StatusLive
	store.Seed(a)

	sentinel := errors.NewInternalError("boom")
	err := store.Mutate(context.Background(), a.ID, func(tx bidding.Tx) error {
		b := auction.NewBid(a.ID, uuid.New(), 5000, 1000, 1)
		require.NoError(t, tx.InsertBid(b))
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)

	bids, err := store.ListBids(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Empty(t, bids)
}
