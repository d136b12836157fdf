package testutil

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/nathangreen1632/MineralCache-sub000/internal/domain/auction"
	"github.com/nathangreen1632/MineralCache-sub000/internal/service/bidding"
	"github.com/nathangreen1632/MineralCache-sub000/internal/service/lifecycle"
)

// EventRecorder captures published events in order
type EventRecorder struct {
	mu     sync.Mutex
	events []*bidding.Event
}

func NewEventRecorder() *EventRecorder {
	return &EventRecorder{}
}

func (r *EventRecorder) Publish(e *bidding.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *EventRecorder) Events() []*bidding.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*bidding.Event, len(r.events))
	copy(out, r.events)
	return out
}

// Kinds returns the event kinds in publish order
func (r *EventRecorder) Kinds() []bidding.EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]bidding.EventKind, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Kind)
	}
	return out
}

// StaticEligibility approves or denies every bidder uniformly, with
// per-user overrides.
type StaticEligibility struct {
	Allow     bool
	Overrides map[uuid.UUID]bool
}

func (s *StaticEligibility) CanBid(_ context.Context, userID uuid.UUID) (bool, error) {
	if v, ok := s.Overrides[userID]; ok {
		return v, nil
	}
	return s.Allow, nil
}

// HandoffRecorder captures checkout handoffs
type HandoffRecorder struct {
	mu       sync.Mutex
	auctions []*auction.Auction
}

func NewHandoffRecorder() *HandoffRecorder {
	return &HandoffRecorder{}
}

func (h *HandoffRecorder) SaleEligible(_ context.Context, a *auction.Auction) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.auctions = append(h.auctions, a)
}

func (h *HandoffRecorder) Handoffs() []*auction.Auction {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*auction.Auction, len(h.auctions))
	copy(out, h.auctions)
	return out
}

// PlannerRecorder captures scheduler queue adjustments
type PlannerRecorder struct {
	mu        sync.Mutex
	scheduled []lifecycle.Transition
	purged    []uuid.UUID
}

func NewPlannerRecorder() *PlannerRecorder {
	return &PlannerRecorder{}
}

func (p *PlannerRecorder) Schedule(t lifecycle.Transition) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scheduled = append(p.scheduled, t)
}

func (p *PlannerRecorder) Purge(auctionID uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.purged = append(p.purged, auctionID)
}

func (p *PlannerRecorder) Scheduled() []lifecycle.Transition {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]lifecycle.Transition, len(p.scheduled))
	copy(out, p.scheduled)
	return out
}

func (p *PlannerRecorder) Purged() []uuid.UUID {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]uuid.UUID, len(p.purged))
	copy(out, p.purged)
	return out
}
