package bidding

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nathangreen1632/MineralCache-sub000/internal/domain/auction"
	"github.com/nathangreen1632/MineralCache-sub000/internal/service/lifecycle"
)

// Store is the durable auction state. Mutate runs fn inside a transaction
// holding an exclusive lock on the auction row, so together with the actor
// no two bid evaluations can observe the same high bid and both win.
type Store interface {
	// GetAuction reads current auction state without locking
	GetAuction(ctx context.Context, id uuid.UUID) (*auction.Auction, error)
	// CreateAuction persists a new draft auction
	CreateAuction(ctx context.Context, a *auction.Auction) error
	// UpdateAuction persists seller edits on a non-locked row
	UpdateAuction(ctx context.Context, a *auction.Auction) error
	// ListBids returns the append-only bid ledger in sequence order
	ListBids(ctx context.Context, auctionID uuid.UUID) ([]*auction.Bid, error)
	// ListLive returns all currently live auctions (countdown ticks)
	ListLive(ctx context.Context) ([]*auction.Auction, error)
	// Mutate executes fn within a transaction that locks the auction row
	Mutate(ctx context.Context, id uuid.UUID, fn func(tx Tx) error) error
}

// Tx exposes the transactional primitives available while the auction row
// lock is held. All writes commit or roll back together.
type Tx interface {
	// Auction returns the locked, current auction row
	Auction() *auction.Auction
	// LeadingBid returns the active leader's bid record, or nil
	LeadingBid() (*auction.Bid, error)
	// NextSequence allocates the next per-auction bid sequence number
	NextSequence() (int64, error)
	// InsertBid appends to the bid ledger
	InsertBid(b *auction.Bid) error
	// SetWinning flips the leader flag to the given bid
	SetWinning(bidID uuid.UUID) error
	// UpdateAuction persists the derived fields of the locked row
	UpdateAuction(a *auction.Auction) error
}

// EventKind identifies a broadcast event type
type EventKind string

const (
	EventPriceChanged EventKind = "auction.price_changed"
	EventOutbid       EventKind = "auction.outbid"
	EventTimeExtended EventKind = "auction.time_extended"
	EventEnded        EventKind = "auction.ended"
	EventCanceled     EventKind = "auction.canceled"
	EventTick         EventKind = "auction.tick"
)

// Event is one authoritative post-commit state change. Events for a single
// auction are published in commit order.
type Event struct {
	Kind              EventKind  `json:"kind"`
	AuctionID         uuid.UUID  `json:"auction_id"`
	VisiblePriceCents *int64     `json:"visible_price_cents,omitempty"`
	LeaderID          *uuid.UUID `json:"leader_id,omitempty"`
	NextMinCents      *int64     `json:"next_min_cents,omitempty"`
	EndAt             *time.Time `json:"end_at,omitempty"`
	Remaining         *int64     `json:"remaining_ms,omitempty"`
	FinalPriceCents   *int64     `json:"final_price_cents,omitempty"`
	ReserveMet        *bool      `json:"reserve_met,omitempty"`
	EndReason         string     `json:"end_reason,omitempty"`
	// TargetUserID restricts delivery to one subscriber (outbid notices)
	TargetUserID *uuid.UUID `json:"-"`
	Timestamp    time.Time  `json:"timestamp"`
}

// EventSink receives authoritative events after commit. Implementations
// must not block the caller on slow subscribers.
type EventSink interface {
	Publish(event *Event)
}

// EligibilityChecker is the external auth collaborator: is this user signed
// in and age-eligible to bid.
type EligibilityChecker interface {
	CanBid(ctx context.Context, userID uuid.UUID) (bool, error)
}

// SaleHandoff receives the "ready for checkout" signal when an auction
// reaches a terminal state with its reserve met. Payment capture is outside
// the engine.
type SaleHandoff interface {
	SaleEligible(ctx context.Context, a *auction.Auction)
}

// LoggedHandoff is the default SaleHandoff until checkout integration picks
// up the signal: it records sale-eligible auctions in the log.
type LoggedHandoff struct {
	Logger *zap.Logger
}

func (h LoggedHandoff) SaleEligible(_ context.Context, a *auction.Auction) {
	fields := []zap.Field{
		zap.String("auction_id", a.ID.String()),
		zap.String("listing_id", a.ListingID.String()),
		zap.String("end_reason", string(a.EndReason)),
	}
	if a.HighBidderID != nil {
		fields = append(fields, zap.String("winner_id", a.HighBidderID.String()))
	}
	if a.HighBidCents != nil {
		fields = append(fields, zap.Int64("final_price_cents", *a.HighBidCents))
	}
	h.Logger.Info("auction ready for checkout", fields...)
}

// TransitionPlanner lets the engine adjust the lifecycle scheduler's queue
// without waiting for its next store resync. Terminal operations purge an
// auction's pending entries; publish and anti-snipe extensions queue the
// new deadlines directly.
type TransitionPlanner interface {
	Schedule(t lifecycle.Transition)
	Purge(auctionID uuid.UUID)
}

// Role gates the privileged close and cancel operations
type Role string

const (
	RoleBidder Role = "bidder"
	RoleSeller Role = "seller"
	RoleAdmin  Role = "admin"
)
