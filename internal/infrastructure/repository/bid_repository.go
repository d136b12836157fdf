package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nathangreen1632/MineralCache-sub000/internal/domain/auction"
)

// querier covers both the pool and a transaction for reads
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const bidColumns = `
	id, auction_id, bidder_id, max_proxy_cents,
	visible_price_cents, sequence, winning, placed_at
`

func insertBid(ctx context.Context, q querier, b *auction.Bid) error {
	query := `
		INSERT INTO bids (
			id, auction_id, bidder_id, max_proxy_cents,
			visible_price_cents, sequence, winning, placed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := q.Exec(ctx, query,
		b.ID, b.AuctionID, b.BidderID, b.MaxProxyCents,
		b.VisiblePriceCents, b.Sequence, b.Winning, b.PlacedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert bid: %w", err)
	}
	return nil
}

// leadingBid returns the active leader's bid, or nil when no bid leads
func leadingBid(ctx context.Context, q querier, auctionID uuid.UUID) (*auction.Bid, error) {
	query := `SELECT ` + bidColumns + ` FROM bids WHERE auction_id = $1 AND winning ORDER BY sequence DESC LIMIT 1`
	b, err := scanBid(q.QueryRow(ctx, query, auctionID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return b, nil
}

// nextSequence allocates the next per-auction sequence. Callers hold the
// auction row lock, so max+1 is race-free.
func nextSequence(ctx context.Context, q querier, auctionID uuid.UUID) (int64, error) {
	var seq int64
	query := `SELECT COALESCE(MAX(sequence), 0) + 1 FROM bids WHERE auction_id = $1`
	if err := q.QueryRow(ctx, query, auctionID).Scan(&seq); err != nil {
		return 0, fmt.Errorf("failed to allocate bid sequence: %w", err)
	}
	return seq, nil
}

// setWinning moves the leader flag to one bid, clearing all others
func setWinning(ctx context.Context, q querier, auctionID, bidID uuid.UUID) error {
	if _, err := q.Exec(ctx,
		`UPDATE bids SET winning = FALSE WHERE auction_id = $1 AND winning AND id <> $2`,
		auctionID, bidID,
	); err != nil {
		return fmt.Errorf("failed to clear leading bid: %w", err)
	}
	if _, err := q.Exec(ctx,
		`UPDATE bids SET winning = TRUE WHERE id = $1`,
		bidID,
	); err != nil {
		return fmt.Errorf("failed to set leading bid: %w", err)
	}
	return nil
}

func listBids(ctx context.Context, q querier, auctionID uuid.UUID) ([]*auction.Bid, error) {
	query := `SELECT ` + bidColumns + ` FROM bids WHERE auction_id = $1 ORDER BY sequence`
	rows, err := q.Query(ctx, query, auctionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bids: %w", err)
	}
	defer rows.Close()

	var out []*auction.Bid
	for rows.Next() {
		b, err := scanBid(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func scanBid(row pgx.Row) (*auction.Bid, error) {
	var b auction.Bid
	err := row.Scan(
		&b.ID, &b.AuctionID, &b.BidderID, &b.MaxProxyCents,
		&b.VisiblePriceCents, &b.Sequence, &b.Winning, &b.PlacedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan bid: %w", err)
	}
	return &b, nil
}
