package bidding

import (
	"github.com/google/uuid"

	"github.com/nathangreen1632/MineralCache-sub000/internal/domain/auction"
	"github.com/nathangreen1632/MineralCache-sub000/internal/domain/errors"
)

// ResolveInput carries the state the resolver needs for one challenger bid.
// It is assembled inside the auction actor's transaction so the resolver
// itself performs no I/O.
type ResolveInput struct {
	Auction               *auction.Auction
	LeaderMaxProxyCents   *int64
	DefaultIncrementCents int64
	BidderID              uuid.UUID
	MaxProxyCents         int64
}

// Resolution is the derived outcome of proxy arithmetic. It exposes only
// the visible price, leader identity, and next-minimum hint; no bidder's
// proxy ceiling ever leaves the resolver.
type Resolution struct {
	LeaderID          uuid.UUID
	VisiblePriceCents int64
	NextMinCents      int64
	LeaderChanged     bool
	PriceChanged      bool
	OutbidBidderID    *uuid.UUID
	ReserveMet        bool
}

// Resolve runs English-auction-with-proxy arithmetic for one challenger.
//
// With L = current leader's proxy ceiling and C = the challenger's:
//   - no leader: challenger leads at the starting bid
//   - C > L: challenger leads at min(C, L+incrementFor(L))
//   - C == L: the earlier bid keeps the lead, price unchanged
//   - C < L: leader keeps the lead at min(L, C+incrementFor(C))
//
// A challenger below the minimum next bid is rejected with BID_TOO_LOW
// carrying next_min_cents. The current leader may raise their own ceiling;
// that changes nothing visible.
func Resolve(in ResolveInput) (*Resolution, error) {
	a := in.Auction
	nextMin := a.NextMinCents(in.DefaultIncrementCents)

	if a.HighBidCents == nil {
		if in.MaxProxyCents < nextMin {
			return nil, errors.NewBidTooLowError(nextMin)
		}
		visible := a.StartingBidCents
		return &Resolution{
			LeaderID:          in.BidderID,
			VisiblePriceCents: visible,
			NextMinCents:      visible + a.IncrementFor(visible, in.DefaultIncrementCents),
			LeaderChanged:     true,
			PriceChanged:      true,
			ReserveMet:        reserveMetAt(a, visible),
		}, nil
	}

	leaderID := *a.HighBidderID
	visible := *a.HighBidCents

	// The leader raising their own ceiling is not a competing bid. The new
	// proxy is stored but nothing visible moves.
	if in.BidderID == leaderID {
		if in.MaxProxyCents < nextMin {
			return nil, errors.NewBidTooLowError(nextMin)
		}
		return &Resolution{
			LeaderID:          leaderID,
			VisiblePriceCents: visible,
			NextMinCents:      nextMin,
			ReserveMet:        reserveMetAt(a, visible),
		}, nil
	}

	if in.MaxProxyCents < nextMin {
		return nil, errors.NewBidTooLowError(nextMin)
	}

	leaderMax := visible
	if in.LeaderMaxProxyCents != nil {
		leaderMax = *in.LeaderMaxProxyCents
	}

	switch {
	case in.MaxProxyCents > leaderMax:
		// Challenger takes the lead just above the old ceiling, capped at
		// their own proxy.
		newVisible := leaderMax + a.IncrementFor(leaderMax, in.DefaultIncrementCents)
		if newVisible > in.MaxProxyCents {
			newVisible = in.MaxProxyCents
		}
		if newVisible < visible {
			newVisible = visible
		}
		return &Resolution{
			LeaderID:          in.BidderID,
			VisiblePriceCents: newVisible,
			NextMinCents:      newVisible + a.IncrementFor(newVisible, in.DefaultIncrementCents),
			LeaderChanged:     true,
			PriceChanged:      newVisible != visible,
			OutbidBidderID:    &leaderID,
			ReserveMet:        reserveMetAt(a, newVisible),
		}, nil

	case in.MaxProxyCents == leaderMax:
		// Tie: first-mover priority, visible price unchanged.
		return &Resolution{
			LeaderID:          leaderID,
			VisiblePriceCents: visible,
			NextMinCents:      nextMin,
			OutbidBidderID:    &in.BidderID,
			ReserveMet:        reserveMetAt(a, visible),
		}, nil

	default:
		// Leader holds; the price rises to just outbid the challenger
		// without revealing the leader's ceiling beyond necessity.
		newVisible := in.MaxProxyCents + a.IncrementFor(in.MaxProxyCents, in.DefaultIncrementCents)
		if newVisible > leaderMax {
			newVisible = leaderMax
		}
		if newVisible < visible {
			newVisible = visible
		}
		return &Resolution{
			LeaderID:          leaderID,
			VisiblePriceCents: newVisible,
			NextMinCents:      newVisible + a.IncrementFor(newVisible, in.DefaultIncrementCents),
			PriceChanged:      newVisible != visible,
			OutbidBidderID:    &in.BidderID,
			ReserveMet:        reserveMetAt(a, newVisible),
		}, nil
	}
}

func reserveMetAt(a *auction.Auction, priceCents int64) bool {
	if a.ReserveCents == nil {
		return true
	}
	return priceCents >= *a.ReserveCents
}
