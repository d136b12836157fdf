// Package testutil provides in-memory collaborators for engine tests.
package testutil

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/nathangreen1632/MineralCache-sub000/internal/domain/auction"
	"github.com/nathangreen1632/MineralCache-sub000/internal/domain/errors"
	"github.com/nathangreen1632/MineralCache-sub000/internal/service/bidding"
	"github.com/nathangreen1632/MineralCache-sub000/internal/service/lifecycle"
)

// MemStore is an in-memory bidding.Store and lifecycle.Source. Mutate holds
// the store lock for the whole callback, mirroring the row lock the
// PostgreSQL store takes, and discards all staged writes when the callback
// returns an error.
type MemStore struct {
	mu       sync.Mutex
	auctions map[uuid.UUID]*auction.Auction
	bids     map[uuid.UUID][]*auction.Bid
}

func NewMemStore() *MemStore {
	return &MemStore{
		auctions: make(map[uuid.UUID]*auction.Auction),
		bids:     make(map[uuid.UUID][]*auction.Bid),
	}
}

var _ bidding.Store = (*MemStore)(nil)
var _ lifecycle.Source = (*MemStore)(nil)

// Seed installs an auction directly, bypassing lifecycle checks
func (s *MemStore) Seed(a *auction.Auction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *a
	s.auctions[a.ID] = &cp
}

func (s *MemStore) GetAuction(_ context.Context, id uuid.UUID) (*auction.Auction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.auctions[id]
	if !ok {
		return nil, errors.ErrAuctionNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *MemStore) CreateAuction(_ context.Context, a *auction.Auction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.auctions[a.ID]; ok {
		return errors.NewConflictError("ALREADY_EXISTS", "auction already exists")
	}
	cp := *a
	s.auctions[a.ID] = &cp
	return nil
}

func (s *MemStore) UpdateAuction(_ context.Context, a *auction.Auction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.auctions[a.ID]; !ok {
		return errors.ErrAuctionNotFound
	}
	cp := *a
	s.auctions[a.ID] = &cp
	return nil
}

func (s *MemStore) ListBids(_ context.Context, auctionID uuid.UUID) ([]*auction.Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*auction.Bid, 0, len(s.bids[auctionID]))
	for _, b := range s.bids[auctionID] {
		cp := *b
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out, nil
}

func (s *MemStore) ListLive(_ context.Context) ([]*auction.Auction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*auction.Auction
	for _, a := range s.auctions {
		if a.Status == auction.StatusLive {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *MemStore) Mutate(_ context.Context, id uuid.UUID, fn func(tx bidding.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.auctions[id]
	if !ok {
		return errors.ErrAuctionNotFound
	}

	tx := &memTx{store: s, auction: copyAuction(a)}
	if err := fn(tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

func (s *MemStore) PendingTransitions(_ context.Context) ([]lifecycle.Transition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []lifecycle.Transition
	for _, a := range s.auctions {
		switch a.Status {
		case auction.StatusScheduled:
			if a.StartAt != nil {
				out = append(out, lifecycle.Transition{
					AuctionID: a.ID, DueAt: *a.StartAt, Kind: lifecycle.TransitionGoLive,
				})
			}
		case auction.StatusLive:
			if a.EndAt != nil {
				out = append(out, lifecycle.Transition{
					AuctionID: a.ID, DueAt: *a.EndAt, Kind: lifecycle.TransitionEnd,
				})
			}
		}
	}
	return out, nil
}

// memTx stages all writes until the callback succeeds
type memTx struct {
	store   *MemStore
	auction *auction.Auction

	inserted []*auction.Bid
	winning  *uuid.UUID
	updated  *auction.Auction
}

func (t *memTx) Auction() *auction.Auction {
	return t.auction
}

func (t *memTx) LeadingBid() (*auction.Bid, error) {
	var lead *auction.Bid
	for _, b := range t.store.bids[t.auction.ID] {
		if b.Winning && (lead == nil || b.Sequence > lead.Sequence) {
			lead = b
		}
	}
	if lead == nil {
		return nil, nil
	}
	cp := *lead
	return &cp, nil
}

func (t *memTx) NextSequence() (int64, error) {
	var max int64
	for _, b := range t.store.bids[t.auction.ID] {
		if b.Sequence > max {
			max = b.Sequence
		}
	}
	return max + int64(len(t.inserted)) + 1, nil
}

func (t *memTx) InsertBid(b *auction.Bid) error {
	cp := *b
	t.inserted = append(t.inserted, &cp)
	return nil
}

func (t *memTx) SetWinning(bidID uuid.UUID) error {
	id := bidID
	t.winning = &id
	return nil
}

func (t *memTx) UpdateAuction(a *auction.Auction) error {
	t.updated = copyAuction(a)
	return nil
}

func (t *memTx) commit() {
	id := t.auction.ID
	t.store.bids[id] = append(t.store.bids[id], t.inserted...)
	if t.winning != nil {
		for _, b := range t.store.bids[id] {
			b.Winning = b.ID == *t.winning
		}
	}
	if t.updated != nil {
		t.store.auctions[id] = t.updated
	}
}

func copyAuction(a *auction.Auction) *auction.Auction {
	cp := *a
	if a.Ladder != nil {
		cp.Ladder = append([]auction.LadderTier(nil), a.Ladder...)
	}
	return &cp
}
