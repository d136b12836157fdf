package auction

import (
	"time"

	"github.com/google/uuid"

	"github.com/nathangreen1632/MineralCache-sub000/internal/domain/errors"
)

// Status is the lifecycle state of an auction. Transitions are monotonic:
// draft -> scheduled -> live -> {ended|canceled}, never backward.
type Status int

const (
	StatusDraft Status = iota
	StatusScheduled
	StatusLive
	StatusEnded
	StatusCanceled
)

func (s Status) String() string {
	switch s {
	case StatusDraft:
		return "draft"
	case StatusScheduled:
		return "scheduled"
	case StatusLive:
		return "live"
	case StatusEnded:
		return "ended"
	case StatusCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// ParseStatus converts a stored status string back to a Status
func ParseStatus(s string) Status {
	switch s {
	case "draft":
		return StatusDraft
	case "scheduled":
		return StatusScheduled
	case "live":
		return StatusLive
	case "ended":
		return StatusEnded
	case "canceled":
		return StatusCanceled
	default:
		return StatusDraft
	}
}

// EndReason records why an auction reached the ended state
type EndReason string

const (
	EndReasonExpired   EndReason = "expired"
	EndReasonClosed    EndReason = "closed"
	EndReasonBoughtNow EndReason = "bought_now"
)

// LadderTier defines the minimum raise at a price tier. The ladder is kept
// sorted ascending by threshold; IncrementFor picks the highest tier whose
// threshold is at or below the current price.
type LadderTier struct {
	ThresholdCents int64 `json:"threshold_cents"`
	IncrementCents int64 `json:"increment_cents"`
}

// Auction is a single-item English auction with proxy bidding.
//
// HighBidCents and HighBidderID are derived bidding state and are mutated
// only by the auction actor; HighBidCents is monotonically non-decreasing
// and HighBidderID is non-nil iff HighBidCents is non-nil. EndAt may only
// move forward while the auction is live (anti-snipe extension).
type Auction struct {
	ID        uuid.UUID `json:"id"`
	ListingID uuid.UUID `json:"listing_id"`
	SellerID  uuid.UUID `json:"seller_id"`
	Title     string    `json:"title"`
	Status    Status    `json:"status"`

	StartAt      *time.Time `json:"start_at,omitempty"`
	EndAt        *time.Time `json:"end_at,omitempty"`
	InitialEndAt *time.Time `json:"initial_end_at,omitempty"`

	StartingBidCents int64  `json:"starting_bid_cents"`
	ReserveCents     *int64 `json:"reserve_cents,omitempty"`
	BuyNowCents      *int64 `json:"buy_now_cents,omitempty"`

	HighBidCents *int64       `json:"high_bid_cents,omitempty"`
	HighBidderID *uuid.UUID   `json:"high_bidder_id,omitempty"`
	Ladder       []LadderTier `json:"increment_ladder,omitempty"`

	EndReason EndReason `json:"end_reason,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New creates a draft auction for a listing
func New(listingID, sellerID uuid.UUID, title string, startingBidCents int64) *Auction {
	now := time.Now().UTC()
	return &Auction{
		ID:               uuid.New(),
		ListingID:        listingID,
		SellerID:         sellerID,
		Title:            title,
		Status:           StatusDraft,
		StartingBidCents: startingBidCents,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// IsTerminal reports whether the auction reached a final state
func (a *Auction) IsTerminal() bool {
	return a.Status == StatusEnded || a.Status == StatusCanceled
}

// IsLive reports whether bids are currently accepted
func (a *Auction) IsLive() bool {
	return a.Status == StatusLive
}

// ReserveMet reports whether the sale is eligible for checkout at the
// current high bid. No configured reserve counts as met.
func (a *Auction) ReserveMet() bool {
	if a.ReserveCents == nil {
		return true
	}
	return a.HighBidCents != nil && *a.HighBidCents >= *a.ReserveCents
}

// IncrementFor returns the minimum raise at the given price: the increment
// of the highest ladder tier whose threshold <= price, or the default when
// no tier applies.
func (a *Auction) IncrementFor(priceCents, defaultIncrementCents int64) int64 {
	increment := defaultIncrementCents
	for _, tier := range a.Ladder {
		if tier.ThresholdCents > priceCents {
			break
		}
		increment = tier.IncrementCents
	}
	return increment
}

// NextMinCents returns the minimum amount the next bid must reach
func (a *Auction) NextMinCents(defaultIncrementCents int64) int64 {
	if a.HighBidCents == nil {
		return a.StartingBidCents
	}
	return *a.HighBidCents + a.IncrementFor(*a.HighBidCents, defaultIncrementCents)
}

// Publish finalizes timing and pricing, moving draft -> scheduled
func (a *Auction) Publish(startAt, endAt time.Time) error {
	if a.Status != StatusDraft {
		return errors.NewBusinessError("INVALID_TRANSITION",
			"only draft auctions can be published")
	}
	if !endAt.After(startAt) {
		return errors.NewValidationError("INVALID_WINDOW", "end time must be after start time")
	}
	a.Status = StatusScheduled
	a.StartAt = &startAt
	a.EndAt = &endAt
	a.InitialEndAt = &endAt
	a.UpdatedAt = time.Now().UTC()
	return nil
}

// Begin moves scheduled -> live at StartAt
func (a *Auction) Begin() error {
	if a.Status != StatusScheduled {
		if a.IsTerminal() {
			return errors.NewAlreadyTerminalError(a.Status.String())
		}
		return errors.NewBusinessError("INVALID_TRANSITION",
			"only scheduled auctions can go live")
	}
	a.Status = StatusLive
	a.UpdatedAt = time.Now().UTC()
	return nil
}

// End moves scheduled or live -> ended
func (a *Auction) End(reason EndReason) error {
	if a.IsTerminal() {
		return errors.NewAlreadyTerminalError(a.Status.String())
	}
	if a.Status != StatusScheduled && a.Status != StatusLive {
		return errors.NewBusinessError("INVALID_TRANSITION",
			"only scheduled or live auctions can be ended")
	}
	a.Status = StatusEnded
	a.EndReason = reason
	a.UpdatedAt = time.Now().UTC()
	return nil
}

// Cancel moves draft, scheduled or live -> canceled
func (a *Auction) Cancel() error {
	if a.IsTerminal() {
		return errors.NewAlreadyTerminalError(a.Status.String())
	}
	a.Status = StatusCanceled
	a.UpdatedAt = time.Now().UTC()
	return nil
}

// ApplyLeader updates derived bidding state. The visible price never
// decreases once set, and the starting bid is a floor.
func (a *Auction) ApplyLeader(bidderID uuid.UUID, visibleCents int64) error {
	if visibleCents < a.StartingBidCents {
		return errors.NewBusinessError("PRICE_BELOW_START",
			"visible price cannot fall below the starting bid")
	}
	if a.HighBidCents != nil && visibleCents < *a.HighBidCents {
		return errors.NewBusinessError("PRICE_DECREASED",
			"visible price cannot decrease")
	}
	a.HighBidCents = &visibleCents
	a.HighBidderID = &bidderID
	a.UpdatedAt = time.Now().UTC()
	return nil
}

// ExtendEnd moves EndAt forward while live. EndAt never decreases.
func (a *Auction) ExtendEnd(newEnd time.Time) error {
	if a.Status != StatusLive {
		return errors.NewBusinessError("INVALID_TRANSITION",
			"only live auctions can be extended")
	}
	if a.EndAt != nil && !newEnd.After(*a.EndAt) {
		return nil
	}
	a.EndAt = &newEnd
	a.UpdatedAt = time.Now().UTC()
	return nil
}

// TotalExtension returns how far EndAt has moved past the originally
// scheduled end.
func (a *Auction) TotalExtension() time.Duration {
	if a.EndAt == nil || a.InitialEndAt == nil {
		return 0
	}
	return a.EndAt.Sub(*a.InitialEndAt)
}

// NextTransitionAt returns the next time-driven transition for the
// lifecycle scheduler, or nil when none is pending.
func (a *Auction) NextTransitionAt() *time.Time {
	switch a.Status {
	case StatusScheduled:
		return a.StartAt
	case StatusLive:
		return a.EndAt
	default:
		return nil
	}
}
