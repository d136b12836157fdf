package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/nathangreen1632/MineralCache-sub000/internal/domain/auction"
	"github.com/nathangreen1632/MineralCache-sub000/internal/domain/errors"
	"github.com/nathangreen1632/MineralCache-sub000/internal/infrastructure/database"
	"github.com/nathangreen1632/MineralCache-sub000/internal/service/bidding"
	"github.com/nathangreen1632/MineralCache-sub000/internal/service/lifecycle"
)

const auctionColumns = `
	id, listing_id, seller_id, title, status,
	start_at, end_at, initial_end_at,
	starting_bid_cents, reserve_cents, buy_now_cents,
	high_bid_cents, high_bidder_id, increment_ladder, end_reason,
	created_at, updated_at
`

// AuctionStore implements bidding.Store and lifecycle.Source on PostgreSQL.
// Mutate takes an exclusive row lock on the auction before reading derived
// bid state, so concurrent evaluations for one auction serialize at the
// database even across processes.
type AuctionStore struct {
	db *database.Pool
}

// NewAuctionStore creates the PostgreSQL auction store
func NewAuctionStore(db *database.Pool) *AuctionStore {
	return &AuctionStore{db: db}
}

var _ bidding.Store = (*AuctionStore)(nil)
var _ lifecycle.Source = (*AuctionStore)(nil)

// GetAuction reads current auction state without locking
func (s *AuctionStore) GetAuction(ctx context.Context, id uuid.UUID) (*auction.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE id = $1`
	row := s.db.Pgx().QueryRow(ctx, query, id)
	return scanAuction(row)
}

// CreateAuction persists a new draft auction
func (s *AuctionStore) CreateAuction(ctx context.Context, a *auction.Auction) error {
	ladderJSON, err := json.Marshal(a.Ladder)
	if err != nil {
		return fmt.Errorf("failed to marshal increment ladder: %w", err)
	}

	query := `
		INSERT INTO auctions (
			id, listing_id, seller_id, title, status,
			start_at, end_at, initial_end_at,
			starting_bid_cents, reserve_cents, buy_now_cents,
			high_bid_cents, high_bidder_id, increment_ladder, end_reason,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8,
			$9, $10, $11,
			$12, $13, $14, $15,
			$16, $17
		)
	`
	_, err = s.db.Pgx().Exec(ctx, query,
		a.ID, a.ListingID, a.SellerID, a.Title, a.Status.String(),
		a.StartAt, a.EndAt, a.InitialEndAt,
		a.StartingBidCents, a.ReserveCents, a.BuyNowCents,
		a.HighBidCents, a.HighBidderID, ladderJSON, string(a.EndReason),
		a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create auction: %w", err)
	}
	return nil
}

// UpdateAuction persists seller edits on a non-locked row
func (s *AuctionStore) UpdateAuction(ctx context.Context, a *auction.Auction) error {
	return updateAuction(ctx, s.db.Pgx(), a)
}

// ListBids returns the append-only bid ledger in sequence order
func (s *AuctionStore) ListBids(ctx context.Context, auctionID uuid.UUID) ([]*auction.Bid, error) {
	return listBids(ctx, s.db.Pgx(), auctionID)
}

// ListLive returns all currently live auctions
func (s *AuctionStore) ListLive(ctx context.Context) ([]*auction.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE status = 'live'`
	rows, err := s.db.Pgx().Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list live auctions: %w", err)
	}
	defer rows.Close()

	var out []*auction.Auction
	for rows.Next() {
		a, err := scanAuction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Mutate executes fn inside a transaction that holds `SELECT ... FOR
// UPDATE` on the auction row.
func (s *AuctionStore) Mutate(ctx context.Context, id uuid.UUID, fn func(tx bidding.Tx) error) error {
	return s.db.Transaction(ctx, func(tx pgx.Tx) error {
		query := `SELECT ` + auctionColumns + ` FROM auctions WHERE id = $1 FOR UPDATE`
		a, err := scanAuction(tx.QueryRow(ctx, query, id))
		if err != nil {
			return err
		}
		return fn(&auctionTx{ctx: ctx, tx: tx, auction: a})
	})
}

// PendingTransitions yields the next time-driven transition for every
// scheduled or live auction, feeding the lifecycle scheduler's heap.
func (s *AuctionStore) PendingTransitions(ctx context.Context) ([]lifecycle.Transition, error) {
	query := `
		SELECT id, status, start_at, end_at
		FROM auctions
		WHERE status IN ('scheduled', 'live')
	`
	rows, err := s.db.Pgx().Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending transitions: %w", err)
	}
	defer rows.Close()

	var out []lifecycle.Transition
	for rows.Next() {
		var (
			id             uuid.UUID
			status         string
			startAt, endAt *time.Time
		)
		if err := rows.Scan(&id, &status, &startAt, &endAt); err != nil {
			return nil, fmt.Errorf("failed to scan transition: %w", err)
		}
		switch status {
		case "scheduled":
			if startAt != nil {
				out = append(out, lifecycle.Transition{
					AuctionID: id, DueAt: *startAt, Kind: lifecycle.TransitionGoLive,
				})
			}
		case "live":
			if endAt != nil {
				out = append(out, lifecycle.Transition{
					AuctionID: id, DueAt: *endAt, Kind: lifecycle.TransitionEnd,
				})
			}
		}
	}
	return out, rows.Err()
}

// auctionTx implements bidding.Tx over one locked auction row
type auctionTx struct {
	ctx     context.Context
	tx      pgx.Tx
	auction *auction.Auction
}

func (t *auctionTx) Auction() *auction.Auction {
	return t.auction
}

func (t *auctionTx) LeadingBid() (*auction.Bid, error) {
	return leadingBid(t.ctx, t.tx, t.auction.ID)
}

func (t *auctionTx) NextSequence() (int64, error) {
	return nextSequence(t.ctx, t.tx, t.auction.ID)
}

func (t *auctionTx) InsertBid(b *auction.Bid) error {
	return insertBid(t.ctx, t.tx, b)
}

func (t *auctionTx) SetWinning(bidID uuid.UUID) error {
	return setWinning(t.ctx, t.tx, t.auction.ID, bidID)
}

func (t *auctionTx) UpdateAuction(a *auction.Auction) error {
	return updateAuction(t.ctx, t.tx, a)
}

func updateAuction(ctx context.Context, q querier, a *auction.Auction) error {
	ladderJSON, err := json.Marshal(a.Ladder)
	if err != nil {
		return fmt.Errorf("failed to marshal increment ladder: %w", err)
	}

	query := `
		UPDATE auctions SET
			title = $2, status = $3,
			start_at = $4, end_at = $5, initial_end_at = $6,
			starting_bid_cents = $7, reserve_cents = $8, buy_now_cents = $9,
			high_bid_cents = $10, high_bidder_id = $11,
			increment_ladder = $12, end_reason = $13,
			updated_at = $14
		WHERE id = $1
	`
	tag, err := q.Exec(ctx, query,
		a.ID, a.Title, a.Status.String(),
		a.StartAt, a.EndAt, a.InitialEndAt,
		a.StartingBidCents, a.ReserveCents, a.BuyNowCents,
		a.HighBidCents, a.HighBidderID,
		ladderJSON, string(a.EndReason),
		a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update auction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errors.ErrAuctionNotFound
	}
	return nil
}

func scanAuction(row pgx.Row) (*auction.Auction, error) {
	var (
		a          auction.Auction
		statusStr  string
		ladderJSON []byte
		endReason  string
	)
	err := row.Scan(
		&a.ID, &a.ListingID, &a.SellerID, &a.Title, &statusStr,
		&a.StartAt, &a.EndAt, &a.InitialEndAt,
		&a.StartingBidCents, &a.ReserveCents, &a.BuyNowCents,
		&a.HighBidCents, &a.HighBidderID, &ladderJSON, &endReason,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, errors.ErrAuctionNotFound
		}
		return nil, fmt.Errorf("failed to scan auction: %w", err)
	}

	a.Status = auction.ParseStatus(statusStr)
	a.EndReason = auction.EndReason(endReason)
	if len(ladderJSON) > 0 {
		if err := json.Unmarshal(ladderJSON, &a.Ladder); err != nil {
			return nil, fmt.Errorf("failed to unmarshal increment ladder: %w", err)
		}
	}
	return &a, nil
}
