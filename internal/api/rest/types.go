package rest

import (
	"time"

	"github.com/google/uuid"

	"github.com/nathangreen1632/MineralCache-sub000/internal/domain/auction"
	"github.com/nathangreen1632/MineralCache-sub000/internal/domain/values"
	"github.com/nathangreen1632/MineralCache-sub000/internal/service/bidding"
)

// The storefront prices everything in USD
func displayPrice(cents int64) string {
	m, err := values.NewMoneyFromCents(cents, values.USD)
	if err != nil {
		return ""
	}
	return m.String()
}

// Request payloads

type createAuctionRequest struct {
	ListingID        uuid.UUID         `json:"listing_id" validate:"required"`
	Title            string            `json:"title" validate:"required,max=200"`
	StartingBidCents int64             `json:"starting_bid_cents" validate:"gte=0"`
	ReserveCents     *int64            `json:"reserve_cents,omitempty" validate:"omitempty,gt=0"`
	BuyNowCents      *int64            `json:"buy_now_cents,omitempty" validate:"omitempty,gt=0"`
	Ladder           []ladderTierInput `json:"increment_ladder,omitempty" validate:"omitempty,dive"`
}

type ladderTierInput struct {
	ThresholdCents int64 `json:"threshold_cents" validate:"gte=0"`
	IncrementCents int64 `json:"increment_cents" validate:"gt=0"`
}

type editAuctionRequest struct {
	Title            *string           `json:"title,omitempty" validate:"omitempty,max=200"`
	StartingBidCents *int64            `json:"starting_bid_cents,omitempty" validate:"omitempty,gte=0"`
	ReserveCents     *int64            `json:"reserve_cents,omitempty" validate:"omitempty,gt=0"`
	ClearReserve     bool              `json:"clear_reserve,omitempty"`
	BuyNowCents      *int64            `json:"buy_now_cents,omitempty" validate:"omitempty,gt=0"`
	ClearBuyNow      bool              `json:"clear_buy_now,omitempty"`
	Ladder           []ladderTierInput `json:"increment_ladder,omitempty" validate:"omitempty,dive"`
}

type publishAuctionRequest struct {
	StartAt time.Time `json:"start_at" validate:"required"`
	EndAt   time.Time `json:"end_at" validate:"required,gtfield=StartAt"`
}

type placeBidRequest struct {
	MaxProxyCents int64 `json:"max_proxy_cents" validate:"required,gt=0"`
}

// Response payloads

type auctionView struct {
	ID                uuid.UUID            `json:"id"`
	ListingID         uuid.UUID            `json:"listing_id"`
	SellerID          uuid.UUID            `json:"seller_id"`
	Title             string               `json:"title"`
	Status            string               `json:"status"`
	StartAt           *time.Time           `json:"start_at,omitempty"`
	EndAt             *time.Time           `json:"end_at,omitempty"`
	StartingBidCents  int64                `json:"starting_bid_cents"`
	BuyNowCents       *int64               `json:"buy_now_cents,omitempty"`
	HighBidCents      *int64               `json:"high_bid_cents,omitempty"`
	HighBidderID      *uuid.UUID           `json:"high_bidder_id,omitempty"`
	NextMinCents      int64                `json:"next_min_cents"`
	PriceDisplay      string               `json:"price_display"`
	ReserveMet        bool                 `json:"reserve_met"`
	HasReserve        bool                 `json:"has_reserve"`
	EndReason         string               `json:"end_reason,omitempty"`
	IncrementLadder   []auction.LadderTier `json:"increment_ladder,omitempty"`
	RemainingMillis   *int64               `json:"remaining_ms,omitempty"`
}

type bidResultView struct {
	AuctionID         uuid.UUID  `json:"auction_id"`
	VisiblePriceCents int64      `json:"visible_price_cents"`
	LeaderID          uuid.UUID  `json:"leader_id"`
	NextMinCents      int64      `json:"next_min_cents"`
	YouLead           bool       `json:"you_lead"`
	ReserveMet        bool       `json:"reserve_met"`
	EndAt             *time.Time `json:"end_at,omitempty"`
}

type bidView struct {
	ID                uuid.UUID `json:"id"`
	BidderID          uuid.UUID `json:"bidder_id"`
	VisiblePriceCents int64     `json:"visible_price_cents"`
	Sequence          int64     `json:"sequence"`
	Winning           bool      `json:"winning"`
	PlacedAt          time.Time `json:"placed_at"`
}

type watchlistView struct {
	AuctionIDs []uuid.UUID `json:"auction_ids"`
}

type nextMinView struct {
	AuctionID    uuid.UUID `json:"auction_id"`
	NextMinCents int64     `json:"next_min_cents"`
}

// toAuctionView builds the public projection. Reserve amounts and proxy
// ceilings never appear; only whether a reserve exists and is met.
func toAuctionView(a *auction.Auction, defaultIncrement int64, now time.Time) *auctionView {
	v := &auctionView{
		ID:               a.ID,
		ListingID:        a.ListingID,
		SellerID:         a.SellerID,
		Title:            a.Title,
		Status:           a.Status.String(),
		StartAt:          a.StartAt,
		EndAt:            a.EndAt,
		StartingBidCents: a.StartingBidCents,
		BuyNowCents:      a.BuyNowCents,
		HighBidCents:     a.HighBidCents,
		HighBidderID:     a.HighBidderID,
		NextMinCents:     a.NextMinCents(defaultIncrement),
		PriceDisplay:     displayPrice(currentPriceCents(a)),
		ReserveMet:       a.ReserveMet(),
		HasReserve:       a.ReserveCents != nil,
		EndReason:        string(a.EndReason),
		IncrementLadder:  a.Ladder,
	}
	if a.Status == auction.StatusLive && a.EndAt != nil {
		remaining := a.EndAt.Sub(now).Milliseconds()
		if remaining < 0 {
			remaining = 0
		}
		v.RemainingMillis = &remaining
	}
	return v
}

func toBidResultView(r *bidding.BidResult) *bidResultView {
	return &bidResultView{
		AuctionID:         r.AuctionID,
		VisiblePriceCents: r.VisiblePriceCents,
		LeaderID:          r.LeaderID,
		NextMinCents:      r.NextMinCents,
		YouLead:           r.YouLead,
		ReserveMet:        r.ReserveMet,
		EndAt:             r.EndAt,
	}
}

func currentPriceCents(a *auction.Auction) int64 {
	if a.HighBidCents != nil {
		return *a.HighBidCents
	}
	return a.StartingBidCents
}

// toBidViews projects the ledger without proxy ceilings
func toBidViews(bids []*auction.Bid) []bidView {
	out := make([]bidView, 0, len(bids))
	for _, b := range bids {
		out = append(out, bidView{
			ID:                b.ID,
			BidderID:          b.BidderID,
			VisiblePriceCents: b.VisiblePriceCents,
			Sequence:          b.Sequence,
			Winning:           b.Winning,
			PlacedAt:          b.PlacedAt,
		})
	}
	return out
}
