package auction

import (
	"time"

	"github.com/google/uuid"
)

// Bid is one bidder submission. MaxProxyCents is the bidder's private
// ceiling and is immutable once stored; raising a proxy creates a new Bid
// row. Sequence is assigned per auction in commit order and breaks ties in
// favor of the earlier bid.
type Bid struct {
	ID                uuid.UUID `json:"id"`
	AuctionID         uuid.UUID `json:"auction_id"`
	BidderID          uuid.UUID `json:"bidder_id"`
	MaxProxyCents     int64     `json:"-"`
	VisiblePriceCents int64     `json:"visible_price_cents"`
	Sequence          int64     `json:"sequence"`
	Winning           bool      `json:"winning"`
	PlacedAt          time.Time `json:"placed_at"`
}

// NewBid creates a bid record at placement time. The proxy ceiling stays
// out of JSON output so it is never revealed to other bidders.
func NewBid(auctionID, bidderID uuid.UUID, maxProxyCents, visiblePriceCents, sequence int64) *Bid {
	return &Bid{
		ID:                uuid.New(),
		AuctionID:         auctionID,
		BidderID:          bidderID,
		MaxProxyCents:     maxProxyCents,
		VisiblePriceCents: visiblePriceCents,
		Sequence:          sequence,
		PlacedAt:          time.Now().UTC(),
	}
}

// Watch is a (user, auction) pair with no payload. Create and delete are
// idempotent.
type Watch struct {
	UserID    uuid.UUID `json:"user_id"`
	AuctionID uuid.UUID `json:"auction_id"`
	CreatedAt time.Time `json:"created_at"`
}
