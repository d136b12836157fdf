package lifecycle

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nathangreen1632/MineralCache-sub000/internal/domain/errors"
)

// TransitionKind names a time-driven lifecycle transition
type TransitionKind string

const (
	TransitionGoLive TransitionKind = "go_live"
	TransitionEnd    TransitionKind = "end"
)

// Transition is one pending (auctionId, dueAt) entry
type Transition struct {
	AuctionID uuid.UUID
	DueAt     time.Time
	Kind      TransitionKind
}

// Engine routes transitions through the per-auction serialization point
type Engine interface {
	BeginAuction(ctx context.Context, auctionID uuid.UUID) error
	EndAuction(ctx context.Context, auctionID uuid.UUID) error
}

// Source yields pending transitions from durable state. The scheduler's
// heap is a derived cache; the store is authoritative and the heap is
// rebuilt from it on start and periodically thereafter, so no transition
// is lost across a crash or missed tick.
type Source interface {
	PendingTransitions(ctx context.Context) ([]Transition, error)
}

// Scheduler drives auctions through scheduled -> live -> ended without
// depending on any user request arriving at the right moment.
type Scheduler struct {
	engine       Engine
	source       Source
	logger       *zap.Logger
	pollInterval time.Duration
	syncInterval time.Duration
	maxBackoff   time.Duration
	clock        func() time.Time

	mu     sync.Mutex
	queue  transitionHeap
	purged map[uuid.UUID]struct{}
}

// NewScheduler creates a lifecycle scheduler. Intervals of zero take
// defaults (250ms poll, 30s store resync).
func NewScheduler(engine Engine, source Source, logger *zap.Logger, pollInterval, syncInterval time.Duration) *Scheduler {
	if pollInterval <= 0 {
		pollInterval = 250 * time.Millisecond
	}
	if syncInterval <= 0 {
		syncInterval = 30 * time.Second
	}
	return &Scheduler{
		engine:       engine,
		source:       source,
		logger:       logger,
		pollInterval: pollInterval,
		syncInterval: syncInterval,
		maxBackoff:   30 * time.Second,
		clock:        func() time.Time { return time.Now().UTC() },
		purged:       make(map[uuid.UUID]struct{}),
	}
}

// Run rebuilds the heap from the store and processes due transitions until
// the context is canceled.
func (s *Scheduler) Run(ctx context.Context) {
	if err := s.Reload(ctx); err != nil {
		s.logger.Error("initial transition reload failed", zap.Error(err))
	}

	poll := time.NewTicker(s.pollInterval)
	defer poll.Stop()
	resync := time.NewTicker(s.syncInterval)
	defer resync.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-poll.C:
			s.dispatchDue(ctx)
		case <-resync.C:
			if err := s.Reload(ctx); err != nil {
				s.logger.Warn("transition reload failed", zap.Error(err))
			}
		}
	}
}

// Reload rebuilds the in-memory heap from persisted auction rows
func (s *Scheduler) Reload(ctx context.Context) error {
	transitions, err := s.source.PendingTransitions(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = s.queue[:0]
	for _, t := range transitions {
		if _, gone := s.purged[t.AuctionID]; gone {
			continue
		}
		s.queue = append(s.queue, t)
	}
	heap.Init(&s.queue)
	return nil
}

// Schedule enqueues one transition, typically after an anti-snipe
// extension moved an auction's end time.
func (s *Scheduler) Schedule(t Transition) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.purged, t.AuctionID)
	heap.Push(&s.queue, t)
}

// Purge drops pending heap entries for an auction after a manual close or
// cancel. Stale entries that slip through are revalidated against the
// store by the engine, so a missed purge is harmless.
func (s *Scheduler) Purge(auctionID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purged[auctionID] = struct{}{}
	for i := 0; i < len(s.queue); {
		if s.queue[i].AuctionID == auctionID {
			heap.Remove(&s.queue, i)
			continue
		}
		i++
	}
}

// Pending reports the heap size (tests and health reporting)
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

func (s *Scheduler) dispatchDue(ctx context.Context) {
	now := s.clock()
	for {
		t, ok := s.popDue(now)
		if !ok {
			return
		}
		s.dispatch(ctx, t)
	}
}

func (s *Scheduler) popDue(now time.Time) (Transition, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.queue) > 0 {
		next := s.queue[0]
		if next.DueAt.After(now) {
			return Transition{}, false
		}
		heap.Pop(&s.queue)
		if _, gone := s.purged[next.AuctionID]; gone {
			continue
		}
		return next, true
	}
	return Transition{}, false
}

// dispatch routes one due transition through the engine, retrying with
// backoff on retryable failures. Business rejections (already terminal,
// stale deadline) drop the entry; the periodic resync picks up whatever
// the store now says is pending.
func (s *Scheduler) dispatch(ctx context.Context, t Transition) {
	backoff := s.pollInterval
	for {
		var err error
		switch t.Kind {
		case TransitionGoLive:
			err = s.engine.BeginAuction(ctx, t.AuctionID)
		case TransitionEnd:
			err = s.engine.EndAuction(ctx, t.AuctionID)
		default:
			return
		}
		if err == nil {
			return
		}
		if !errors.IsRetryable(err) {
			// Terminal or invalid-transition rejections are expected for
			// stale entries; nothing to surface to a user.
			s.logger.Debug("transition rejected",
				zap.String("auction_id", t.AuctionID.String()),
				zap.String("kind", string(t.Kind)),
				zap.Error(err),
			)
			return
		}

		s.logger.Warn("transition failed, retrying",
			zap.String("auction_id", t.AuctionID.String()),
			zap.String("kind", string(t.Kind)),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > s.maxBackoff {
			backoff = s.maxBackoff
		}
	}
}

// transitionHeap is a min-heap ordered by due time
type transitionHeap []Transition

func (h transitionHeap) Len() int            { return len(h) }
func (h transitionHeap) Less(i, j int) bool  { return h[i].DueAt.Before(h[j].DueAt) }
func (h transitionHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *transitionHeap) Push(x interface{}) { *h = append(*h, x.(Transition)) }
func (h *transitionHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
