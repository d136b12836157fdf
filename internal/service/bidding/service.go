package bidding

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/nathangreen1632/MineralCache-sub000/internal/domain/auction"
	"github.com/nathangreen1632/MineralCache-sub000/internal/domain/errors"
	"github.com/nathangreen1632/MineralCache-sub000/internal/metrics"
	"github.com/nathangreen1632/MineralCache-sub000/internal/service/lifecycle"
)

// Policy carries the tunable auction rules
type Policy struct {
	DefaultIncrementCents int64
	AntiSnipeWindow       time.Duration
	AntiSnipeExtension    time.Duration
	// MaxTotalExtension caps cumulative anti-snipe extension. Zero means
	// unbounded, repeatable extension.
	MaxTotalExtension time.Duration
	// BidsPerMinute limits bid submissions per bidder
	BidsPerMinute int
}

// DefaultPolicy mirrors the production auction configuration
func DefaultPolicy() Policy {
	return Policy{
		DefaultIncrementCents: 100,
		AntiSnipeWindow:       2 * time.Minute,
		AntiSnipeExtension:    2 * time.Minute,
		MaxTotalExtension:     0,
		BidsPerMinute:         30,
	}
}

// Service is the only code path that mutates an auction's derived bidding
// fields. Every mutating operation routes through the per-auction actor and
// runs inside a store transaction holding the auction row lock.
type Service struct {
	store       Store
	actors      *ActorRegistry
	events      EventSink
	eligibility EligibilityChecker
	handoff     SaleHandoff
	planner     TransitionPlanner
	metrics     *metrics.Auction
	policy      Policy
	logger      *zap.Logger
	clock       func() time.Time

	mu       sync.Mutex
	limiters map[uuid.UUID]*rate.Limiter
}

// BidResult is returned to the bidder after a successful placement
type BidResult struct {
	AuctionID         uuid.UUID
	VisiblePriceCents int64
	LeaderID          uuid.UUID
	NextMinCents      int64
	YouLead           bool
	ReserveMet        bool
	EndAt             *time.Time
}

// NewService wires the bidding engine
func NewService(
	store Store,
	actors *ActorRegistry,
	events EventSink,
	eligibility EligibilityChecker,
	handoff SaleHandoff,
	m *metrics.Auction,
	policy Policy,
	logger *zap.Logger,
) *Service {
	if policy.DefaultIncrementCents <= 0 {
		policy.DefaultIncrementCents = 100
	}
	return &Service{
		store:       store,
		actors:      actors,
		events:      events,
		eligibility: eligibility,
		handoff:     handoff,
		metrics:     m,
		policy:      policy,
		logger:      logger,
		clock:       func() time.Time { return time.Now().UTC() },
		limiters:    make(map[uuid.UUID]*rate.Limiter),
	}
}

// WithClock overrides the time source. Tests use this to drive the
// anti-snipe window deterministically.
func (s *Service) WithClock(clock func() time.Time) *Service {
	s.clock = clock
	return s
}

// WithPlanner registers the lifecycle scheduler so deadline changes reach
// its queue immediately. The scheduler's periodic store resync still
// backstops a missed call.
func (s *Service) WithPlanner(p TransitionPlanner) *Service {
	s.planner = p
	return s
}

// PlaceBid submits a proxy bid. The resolver runs against the latest
// persisted state inside the same transaction that commits the Bid row and
// the updated Auction row.
func (s *Service) PlaceBid(ctx context.Context, auctionID, bidderID uuid.UUID, maxProxyCents int64) (*BidResult, error) {
	start := s.clock()
	if err := s.precheckBidder(ctx, bidderID); err != nil {
		s.countBid("rejected")
		return nil, err
	}
	if maxProxyCents <= 0 {
		s.countBid("rejected")
		return nil, errors.NewValidationError("INVALID_AMOUNT", "bid amount must be positive")
	}

	var (
		result   *BidResult
		emit     []*Event
		movedEnd *time.Time
	)
	err := s.actors.Do(ctx, auctionID, func(ctx context.Context) error {
		return s.store.Mutate(ctx, auctionID, func(tx Tx) error {
			a := tx.Auction()
			if !a.IsLive() {
				return errors.NewAuctionNotLiveError(a.Status.String())
			}
			if a.SellerID == bidderID {
				return errors.ErrSelfBid
			}

			leading, err := tx.LeadingBid()
			if err != nil {
				return errors.NewInternalError("failed to load leading bid").WithCause(err)
			}
			var leaderMax *int64
			if leading != nil {
				leaderMax = &leading.MaxProxyCents
			}

			res, err := Resolve(ResolveInput{
				Auction:               a,
				LeaderMaxProxyCents:   leaderMax,
				DefaultIncrementCents: s.policy.DefaultIncrementCents,
				BidderID:              bidderID,
				MaxProxyCents:         maxProxyCents,
			})
			if err != nil {
				return err
			}

			seq, err := tx.NextSequence()
			if err != nil {
				return errors.NewInternalError("failed to allocate bid sequence").WithCause(err)
			}
			// Bids insert as non-winning; SetWinning moves the leader flag
			// in one step so the winning-bid uniqueness guarantee holds at
			// every statement boundary.
			b := auction.NewBid(auctionID, bidderID, maxProxyCents, res.VisiblePriceCents, seq)
			if err := tx.InsertBid(b); err != nil {
				return errors.NewInternalError("failed to store bid").WithCause(err)
			}

			if err := a.ApplyLeader(res.LeaderID, res.VisiblePriceCents); err != nil {
				return err
			}
			if res.LeaderID == bidderID {
				b.Winning = true
				if err := tx.SetWinning(b.ID); err != nil {
					return errors.NewInternalError("failed to mark leading bid").WithCause(err)
				}
			}

			emit = emit[:0]
			extended, err := s.extendOnSnipe(a)
			if err != nil {
				return err
			}

			if err := tx.UpdateAuction(a); err != nil {
				return errors.NewInternalError("failed to update auction").WithCause(err)
			}

			now := s.clock()
			if res.PriceChanged || res.LeaderChanged {
				emit = append(emit, &Event{
					Kind:              EventPriceChanged,
					AuctionID:         auctionID,
					VisiblePriceCents: &res.VisiblePriceCents,
					LeaderID:          &res.LeaderID,
					NextMinCents:      &res.NextMinCents,
					EndAt:             a.EndAt,
					Timestamp:         now,
				})
			}
			if res.OutbidBidderID != nil && res.LeaderChanged {
				emit = append(emit, &Event{
					Kind:         EventOutbid,
					AuctionID:    auctionID,
					NextMinCents: &res.NextMinCents,
					TargetUserID: res.OutbidBidderID,
					Timestamp:    now,
				})
			}
			if extended {
				end := *a.EndAt
				movedEnd = &end
				emit = append(emit, &Event{
					Kind:      EventTimeExtended,
					AuctionID: auctionID,
					EndAt:     a.EndAt,
					Timestamp: now,
				})
			}

			result = &BidResult{
				AuctionID:         auctionID,
				VisiblePriceCents: res.VisiblePriceCents,
				LeaderID:          res.LeaderID,
				NextMinCents:      res.NextMinCents,
				YouLead:           res.LeaderID == bidderID,
				ReserveMet:        res.ReserveMet,
				EndAt:             a.EndAt,
			}
			return nil
		})
	})
	if err != nil {
		s.countBid("rejected")
		return nil, err
	}

	// Events are published only after the transaction committed, in commit
	// order for this auction.
	s.publish(emit)
	if movedEnd != nil && s.planner != nil {
		s.planner.Schedule(lifecycle.Transition{
			AuctionID: auctionID,
			DueAt:     *movedEnd,
			Kind:      lifecycle.TransitionEnd,
		})
	}
	s.countBid("accepted")
	if s.metrics != nil {
		s.metrics.BidResolutionSeconds.Observe(s.clock().Sub(start).Seconds())
	}
	return result, nil
}

// BuyNow resolves the auction immediately at the configured buy-now price,
// bypassing proxy arithmetic.
func (s *Service) BuyNow(ctx context.Context, auctionID, bidderID uuid.UUID) (*BidResult, error) {
	if err := s.precheckBidder(ctx, bidderID); err != nil {
		return nil, err
	}

	var (
		result *BidResult
		ended  *auction.Auction
		emit   []*Event
	)
	err := s.actors.Do(ctx, auctionID, func(ctx context.Context) error {
		return s.store.Mutate(ctx, auctionID, func(tx Tx) error {
			a := tx.Auction()
			if !a.IsLive() {
				return errors.NewAuctionNotLiveError(a.Status.String())
			}
			if a.SellerID == bidderID {
				return errors.ErrSelfBid
			}
			if a.BuyNowCents == nil {
				return errors.NewBusinessError("BUY_NOW_UNAVAILABLE",
					"auction has no buy-now price")
			}
			price := *a.BuyNowCents

			seq, err := tx.NextSequence()
			if err != nil {
				return errors.NewInternalError("failed to allocate bid sequence").WithCause(err)
			}
			b := auction.NewBid(auctionID, bidderID, price, price, seq)
			if err := tx.InsertBid(b); err != nil {
				return errors.NewInternalError("failed to store bid").WithCause(err)
			}
			if err := a.ApplyLeader(bidderID, price); err != nil {
				return err
			}
			if err := tx.SetWinning(b.ID); err != nil {
				return errors.NewInternalError("failed to mark leading bid").WithCause(err)
			}
			if err := a.End(auction.EndReasonBoughtNow); err != nil {
				return err
			}
			if err := tx.UpdateAuction(a); err != nil {
				return errors.NewInternalError("failed to update auction").WithCause(err)
			}

			reserveMet := a.ReserveMet()
			emit = []*Event{{
				Kind:            EventEnded,
				AuctionID:       auctionID,
				FinalPriceCents: &price,
				LeaderID:        &bidderID,
				ReserveMet:      &reserveMet,
				EndReason:       string(auction.EndReasonBoughtNow),
				Timestamp:       s.clock(),
			}}
			snapshot := *a
			ended = &snapshot
			result = &BidResult{
				AuctionID:         auctionID,
				VisiblePriceCents: price,
				LeaderID:          bidderID,
				YouLead:           true,
				ReserveMet:        reserveMet,
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.publish(emit)
	s.afterTerminal(ctx, ended, true)
	return result, nil
}

// Close ends an auction early. Owner or admin only; idempotent on an
// already-terminal auction.
func (s *Service) Close(ctx context.Context, auctionID, actorID uuid.UUID, role Role) (*auction.Auction, error) {
	return s.terminate(ctx, auctionID, actorID, role, false)
}

// Cancel voids an auction. Owner or admin only; idempotent on an
// already-terminal auction.
func (s *Service) Cancel(ctx context.Context, auctionID, actorID uuid.UUID, role Role) (*auction.Auction, error) {
	return s.terminate(ctx, auctionID, actorID, role, true)
}

func (s *Service) terminate(ctx context.Context, auctionID, actorID uuid.UUID, role Role, cancel bool) (*auction.Auction, error) {
	var (
		out     *auction.Auction
		emit    []*Event
		wasLive bool
	)
	err := s.actors.Do(ctx, auctionID, func(ctx context.Context) error {
		return s.store.Mutate(ctx, auctionID, func(tx Tx) error {
			a := tx.Auction()
			if role != RoleAdmin && a.SellerID != actorID {
				return errors.NewForbiddenError("only the auction owner or an admin may do this")
			}
			if a.IsTerminal() {
				// Idempotent: return current terminal state, no error.
				snapshot := *a
				out = &snapshot
				return nil
			}
			wasLive = a.IsLive()

			var err error
			if cancel {
				err = a.Cancel()
			} else {
				if a.Status != auction.StatusScheduled && a.Status != auction.StatusLive {
					return errors.NewBusinessError("INVALID_TRANSITION",
						"only scheduled or live auctions can be closed")
				}
				err = a.End(auction.EndReasonClosed)
			}
			if err != nil {
				return err
			}
			if err := tx.UpdateAuction(a); err != nil {
				return errors.NewInternalError("failed to update auction").WithCause(err)
			}

			emit = []*Event{terminalEvent(a, s.clock())}
			snapshot := *a
			out = &snapshot
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.publish(emit)
	if len(emit) > 0 {
		s.afterTerminal(ctx, out, wasLive)
	}
	return out, nil
}

// BeginAuction transitions scheduled -> live. Invoked by the lifecycle
// scheduler at StartAt, through the same actor as user operations.
func (s *Service) BeginAuction(ctx context.Context, auctionID uuid.UUID) error {
	var emit []*Event
	err := s.actors.Do(ctx, auctionID, func(ctx context.Context) error {
		return s.store.Mutate(ctx, auctionID, func(tx Tx) error {
			a := tx.Auction()
			if err := a.Begin(); err != nil {
				return err
			}
			if err := tx.UpdateAuction(a); err != nil {
				return errors.NewInternalError("failed to update auction").WithCause(err)
			}
			next := a.NextMinCents(s.policy.DefaultIncrementCents)
			emit = []*Event{{
				Kind:         EventPriceChanged,
				AuctionID:    auctionID,
				NextMinCents: &next,
				EndAt:        a.EndAt,
				Timestamp:    s.clock(),
			}}
			return nil
		})
	})
	if err != nil {
		return err
	}
	s.publish(emit)
	if s.metrics != nil {
		s.metrics.LiveAuctions.Inc()
	}
	return nil
}

// EndAuction transitions live -> ended at EndAt. Invoked by the lifecycle
// scheduler; a stale deadline (moved by anti-snipe) is a no-op signalled by
// the returned deadline.
func (s *Service) EndAuction(ctx context.Context, auctionID uuid.UUID) error {
	var (
		ended *auction.Auction
		emit  []*Event
		stale *time.Time
	)
	err := s.actors.Do(ctx, auctionID, func(ctx context.Context) error {
		return s.store.Mutate(ctx, auctionID, func(tx Tx) error {
			a := tx.Auction()
			// Anti-snipe may have moved EndAt past the queued deadline.
			if a.IsLive() && a.EndAt != nil && a.EndAt.After(s.clock()) {
				end := *a.EndAt
				stale = &end
				return nil
			}
			if err := a.End(auction.EndReasonExpired); err != nil {
				return err
			}
			if err := tx.UpdateAuction(a); err != nil {
				return errors.NewInternalError("failed to update auction").WithCause(err)
			}
			emit = []*Event{terminalEvent(a, s.clock())}
			snapshot := *a
			ended = &snapshot
			return nil
		})
	})
	if err != nil {
		return err
	}
	if stale != nil {
		return nil
	}
	s.publish(emit)
	s.afterTerminal(ctx, ended, true)
	return nil
}

// GetAuction reads current auction state
func (s *Service) GetAuction(ctx context.Context, auctionID uuid.UUID) (*auction.Auction, error) {
	return s.store.GetAuction(ctx, auctionID)
}

// ListBids returns the auction's bid ledger in sequence order
func (s *Service) ListBids(ctx context.Context, auctionID uuid.UUID) ([]*auction.Bid, error) {
	if _, err := s.store.GetAuction(ctx, auctionID); err != nil {
		return nil, err
	}
	return s.store.ListBids(ctx, auctionID)
}

// NextMin returns the minimum acceptable next bid for an auction
func (s *Service) NextMin(ctx context.Context, auctionID uuid.UUID) (int64, error) {
	a, err := s.store.GetAuction(ctx, auctionID)
	if err != nil {
		return 0, err
	}
	return a.NextMinCents(s.policy.DefaultIncrementCents), nil
}

// CreateAuction creates a draft auction for a seller's listing
func (s *Service) CreateAuction(ctx context.Context, listingID, sellerID uuid.UUID, title string, startingBidCents int64, reserveCents, buyNowCents *int64, ladder []auction.LadderTier) (*auction.Auction, error) {
	if startingBidCents < 0 {
		return nil, errors.NewValidationError("INVALID_STARTING_BID", "starting bid cannot be negative")
	}
	a := auction.New(listingID, sellerID, title, startingBidCents)
	a.ReserveCents = reserveCents
	a.BuyNowCents = buyNowCents
	a.Ladder = normalizeLadder(ladder)
	if err := s.store.CreateAuction(ctx, a); err != nil {
		return nil, errors.NewInternalError("failed to create auction").WithCause(err)
	}
	return a, nil
}

// AuctionEdits carries the fields a seller may change before publication.
// Nil fields are left alone.
type AuctionEdits struct {
	Title            *string
	StartingBidCents *int64
	ReserveCents     *int64
	ClearReserve     bool
	BuyNowCents      *int64
	ClearBuyNow      bool
	Ladder           []auction.LadderTier
}

// EditAuction applies seller edits to a draft. Pricing is frozen once the
// auction is scheduled.
func (s *Service) EditAuction(ctx context.Context, auctionID, actorID uuid.UUID, role Role, edits AuctionEdits) (*auction.Auction, error) {
	var out *auction.Auction
	err := s.actors.Do(ctx, auctionID, func(ctx context.Context) error {
		return s.store.Mutate(ctx, auctionID, func(tx Tx) error {
			a := tx.Auction()
			if role != RoleAdmin && a.SellerID != actorID {
				return errors.NewForbiddenError("only the auction owner or an admin may do this")
			}
			if a.Status != auction.StatusDraft {
				return errors.NewBusinessError("NOT_EDITABLE",
					"only draft auctions can be edited")
			}

			if edits.Title != nil {
				a.Title = *edits.Title
			}
			if edits.StartingBidCents != nil {
				if *edits.StartingBidCents < 0 {
					return errors.NewValidationError("INVALID_STARTING_BID",
						"starting bid cannot be negative")
				}
				a.StartingBidCents = *edits.StartingBidCents
			}
			if edits.ClearReserve {
				a.ReserveCents = nil
			} else if edits.ReserveCents != nil {
				a.ReserveCents = edits.ReserveCents
			}
			if edits.ClearBuyNow {
				a.BuyNowCents = nil
			} else if edits.BuyNowCents != nil {
				a.BuyNowCents = edits.BuyNowCents
			}
			if edits.Ladder != nil {
				a.Ladder = normalizeLadder(edits.Ladder)
			}
			a.UpdatedAt = s.clock()

			if err := tx.UpdateAuction(a); err != nil {
				return errors.NewInternalError("failed to update auction").WithCause(err)
			}
			snapshot := *a
			out = &snapshot
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// PublishAuction finalizes times and pricing, scheduling the auction
func (s *Service) PublishAuction(ctx context.Context, auctionID, actorID uuid.UUID, role Role, startAt, endAt time.Time) (*auction.Auction, error) {
	var out *auction.Auction
	err := s.actors.Do(ctx, auctionID, func(ctx context.Context) error {
		return s.store.Mutate(ctx, auctionID, func(tx Tx) error {
			a := tx.Auction()
			if role != RoleAdmin && a.SellerID != actorID {
				return errors.NewForbiddenError("only the auction owner or an admin may do this")
			}
			if err := a.Publish(startAt, endAt); err != nil {
				return err
			}
			if err := tx.UpdateAuction(a); err != nil {
				return errors.NewInternalError("failed to update auction").WithCause(err)
			}
			snapshot := *a
			out = &snapshot
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	if s.planner != nil && out.StartAt != nil && out.EndAt != nil {
		s.planner.Schedule(lifecycle.Transition{
			AuctionID: auctionID, DueAt: *out.StartAt, Kind: lifecycle.TransitionGoLive,
		})
		s.planner.Schedule(lifecycle.Transition{
			AuctionID: auctionID, DueAt: *out.EndAt, Kind: lifecycle.TransitionEnd,
		})
	}
	return out, nil
}

// RunTicker publishes best-effort countdown ticks for live auctions until
// the context is canceled. Tick ordering is independent of bid events.
func (s *Service) RunTicker(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			live, err := s.store.ListLive(ctx)
			if err != nil {
				s.logger.Warn("tick scan failed", zap.Error(err))
				continue
			}
			now := s.clock()
			for _, a := range live {
				if a.EndAt == nil {
					continue
				}
				remaining := a.EndAt.Sub(now).Milliseconds()
				if remaining < 0 {
					remaining = 0
				}
				s.events.Publish(&Event{
					Kind:      EventTick,
					AuctionID: a.ID,
					EndAt:     a.EndAt,
					Remaining: &remaining,
					Timestamp: now,
				})
			}
		}
	}
}

// extendOnSnipe pushes EndAt forward when a bid lands inside the anti-snipe
// window. Returns whether an extension happened.
func (s *Service) extendOnSnipe(a *auction.Auction) (bool, error) {
	if s.policy.AntiSnipeWindow <= 0 || a.EndAt == nil {
		return false, nil
	}
	now := s.clock()
	if a.EndAt.Sub(now) >= s.policy.AntiSnipeWindow {
		return false, nil
	}
	newEnd := now.Add(s.policy.AntiSnipeExtension)
	if !newEnd.After(*a.EndAt) {
		return false, nil
	}
	if s.policy.MaxTotalExtension > 0 && a.InitialEndAt != nil {
		capEnd := a.InitialEndAt.Add(s.policy.MaxTotalExtension)
		if newEnd.After(capEnd) {
			newEnd = capEnd
		}
		if !newEnd.After(*a.EndAt) {
			return false, nil
		}
	}
	if err := a.ExtendEnd(newEnd); err != nil {
		return false, err
	}
	if s.metrics != nil {
		s.metrics.SnipeExtensions.Inc()
	}
	return true, nil
}

func (s *Service) precheckBidder(ctx context.Context, bidderID uuid.UUID) error {
	if s.eligibility != nil {
		ok, err := s.eligibility.CanBid(ctx, bidderID)
		if err != nil {
			return errors.NewInternalError("eligibility check failed").WithCause(err)
		}
		if !ok {
			return errors.ErrNotEligible
		}
	}
	if s.policy.BidsPerMinute > 0 {
		if !s.limiter(bidderID).Allow() {
			return errors.NewBusinessError("RATE_LIMIT_EXCEEDED", "bid rate limit exceeded")
		}
	}
	return nil
}

func (s *Service) limiter(bidderID uuid.UUID) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.limiters[bidderID]
	if !ok {
		perSecond := rate.Limit(float64(s.policy.BidsPerMinute) / 60.0)
		l = rate.NewLimiter(perSecond, s.policy.BidsPerMinute)
		s.limiters[bidderID] = l
	}
	return l
}

func (s *Service) countBid(result string) {
	if s.metrics != nil {
		s.metrics.BidsTotal.WithLabelValues(result).Inc()
	}
}

func (s *Service) publish(events []*Event) {
	if s.events == nil {
		return
	}
	for _, e := range events {
		s.events.Publish(e)
		if s.metrics != nil {
			s.metrics.EventsPublished.WithLabelValues(string(e.Kind)).Inc()
		}
	}
}

// afterTerminal retires the actor, drops pending lifecycle transitions, and
// hands the sale off to checkout when the reserve is met.
func (s *Service) afterTerminal(ctx context.Context, a *auction.Auction, wasLive bool) {
	if a == nil {
		return
	}
	s.actors.Retire(a.ID)
	if s.planner != nil {
		s.planner.Purge(a.ID)
	}
	if s.metrics != nil && wasLive {
		s.metrics.LiveAuctions.Dec()
	}
	if s.handoff != nil && a.Status == auction.StatusEnded && a.HighBidderID != nil && a.ReserveMet() {
		s.handoff.SaleEligible(ctx, a)
	}
}

func terminalEvent(a *auction.Auction, now time.Time) *Event {
	kind := EventEnded
	if a.Status == auction.StatusCanceled {
		kind = EventCanceled
	}
	reserveMet := a.ReserveMet()
	e := &Event{
		Kind:       kind,
		AuctionID:  a.ID,
		ReserveMet: &reserveMet,
		EndReason:  string(a.EndReason),
		Timestamp:  now,
	}
	if a.HighBidCents != nil {
		price := *a.HighBidCents
		e.FinalPriceCents = &price
		e.LeaderID = a.HighBidderID
	}
	return e
}

func normalizeLadder(ladder []auction.LadderTier) []auction.LadderTier {
	if len(ladder) == 0 {
		return nil
	}
	out := make([]auction.LadderTier, len(ladder))
	copy(out, ladder)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].ThresholdCents < out[j-1].ThresholdCents; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
