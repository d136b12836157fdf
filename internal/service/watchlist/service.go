package watchlist

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/nathangreen1632/MineralCache-sub000/internal/domain/errors"
)

// Service is a per-user set of watched auction ids backed by redis sets.
// Watch and Unwatch are idempotent; repeated identical calls commute.
type Service struct {
	client *redis.Client
	logger *zap.Logger
}

// NewService creates the watchlist service
func NewService(client *redis.Client, logger *zap.Logger) *Service {
	return &Service{client: client, logger: logger}
}

func userKey(userID uuid.UUID) string {
	return fmt.Sprintf("watchlist:user:%s", userID)
}

func auctionKey(auctionID uuid.UUID) string {
	return fmt.Sprintf("watchlist:auction:%s", auctionID)
}

// Watch adds an auction to the user's watchlist
func (s *Service) Watch(ctx context.Context, userID, auctionID uuid.UUID) error {
	pipe := s.client.TxPipeline()
	pipe.SAdd(ctx, userKey(userID), auctionID.String())
	pipe.SAdd(ctx, auctionKey(auctionID), userID.String())
	if _, err := pipe.Exec(ctx); err != nil {
		s.logger.Error("watchlist add failed",
			zap.String("user_id", userID.String()),
			zap.String("auction_id", auctionID.String()),
			zap.Error(err),
		)
		return errors.NewInternalError("failed to update watchlist").WithCause(err)
	}
	return nil
}

// Unwatch removes an auction from the user's watchlist
func (s *Service) Unwatch(ctx context.Context, userID, auctionID uuid.UUID) error {
	pipe := s.client.TxPipeline()
	pipe.SRem(ctx, userKey(userID), auctionID.String())
	pipe.SRem(ctx, auctionKey(auctionID), userID.String())
	if _, err := pipe.Exec(ctx); err != nil {
		s.logger.Error("watchlist remove failed",
			zap.String("user_id", userID.String()),
			zap.String("auction_id", auctionID.String()),
			zap.Error(err),
		)
		return errors.NewInternalError("failed to update watchlist").WithCause(err)
	}
	return nil
}

// List returns the auction ids the user watches
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	members, err := s.client.SMembers(ctx, userKey(userID)).Result()
	if err != nil {
		return nil, errors.NewInternalError("failed to read watchlist").WithCause(err)
	}
	out := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		id, err := uuid.Parse(m)
		if err != nil {
			continue
		}
		out = append(out, id)
	}
	return out, nil
}

// IsWatching reports whether the user watches the auction
func (s *Service) IsWatching(ctx context.Context, userID, auctionID uuid.UUID) (bool, error) {
	ok, err := s.client.SIsMember(ctx, userKey(userID), auctionID.String()).Result()
	if err != nil {
		return false, errors.NewInternalError("failed to read watchlist").WithCause(err)
	}
	return ok, nil
}

// WatcherCount returns how many users watch the auction
func (s *Service) WatcherCount(ctx context.Context, auctionID uuid.UUID) (int64, error) {
	n, err := s.client.SCard(ctx, auctionKey(auctionID)).Result()
	if err != nil {
		return 0, errors.NewInternalError("failed to count watchers").WithCause(err)
	}
	return n, nil
}
