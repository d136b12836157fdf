package bidding

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nathangreen1632/MineralCache-sub000/internal/domain/errors"
)

func TestActorRegistry_SerializesPerAuction(t *testing.T) {
	registry := NewActorRegistry(time.Second, zap.NewNop())
	defer registry.Close()

	auctionID := uuid.New()
	var counter int
	var inFlight int
	var maxInFlight int
	var mu sync.Mutex

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := registry.Do(context.Background(), auctionID, func(ctx context.Context) error {
				mu.Lock()
				inFlight++
				if inFlight > maxInFlight {
					maxInFlight = inFlight
				}
				mu.Unlock()

				counter++ // safe only if commands are serialized

				mu.Lock()
				inFlight--
				mu.Unlock()
				return nil
			})
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter, "no command may be lost or raced")
	assert.Equal(t, 1, maxInFlight, "commands for one auction never overlap")
}

func TestActorRegistry_DifferentAuctionsRunConcurrently(t *testing.T) {
	registry := NewActorRegistry(time.Second, zap.NewNop())
	defer registry.Close()

	release := make(chan struct{})
	started := make(chan struct{})

	go func() {
		_ = registry.Do(context.Background(), uuid.New(), func(ctx context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	// A second auction's command completes while the first is blocked.
	done := make(chan error, 1)
	go func() {
		done <- registry.Do(context.Background(), uuid.New(), func(ctx context.Context) error {
			return nil
		})
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("independent auctions must not serialize against each other")
	}
	close(release)
}

func TestActorRegistry_BusyOnFullMailbox(t *testing.T) {
	registry := NewActorRegistry(50*time.Millisecond, zap.NewNop())
	registry.mailboxSize = 1
	defer registry.Close()

	auctionID := uuid.New()
	release := make(chan struct{})
	started := make(chan struct{})

	go func() {
		_ = registry.Do(context.Background(), auctionID, func(ctx context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	// Fill the single mailbox slot.
	go func() {
		_ = registry.Do(context.Background(), auctionID, func(ctx context.Context) error {
			return nil
		})
	}()
	time.Sleep(10 * time.Millisecond)

	err := registry.Do(context.Background(), auctionID, func(ctx context.Context) error {
		return nil
	})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, "BUSY"))
	assert.True(t, errors.IsRetryable(err))
	close(release)
}

func TestActorRegistry_CommandErrorPropagates(t *testing.T) {
	registry := NewActorRegistry(time.Second, zap.NewNop())
	defer registry.Close()

	want := errors.NewBusinessError("AUCTION_NOT_LIVE", "auction is not accepting bids")
	err := registry.Do(context.Background(), uuid.New(), func(ctx context.Context) error {
		return want
	})
	assert.Equal(t, want, err)
}

func TestActorRegistry_PanicDoesNotKillActor(t *testing.T) {
	registry := NewActorRegistry(time.Second, zap.NewNop())
	defer registry.Close()

	auctionID := uuid.New()
	err := registry.Do(context.Background(), auctionID, func(ctx context.Context) error {
		panic("boom")
	})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeInternal))

	// The same auction keeps working afterwards.
	err = registry.Do(context.Background(), auctionID, func(ctx context.Context) error {
		return nil
	})
	require.NoError(t, err)
}

func TestActorRegistry_ClosedRejectsCommands(t *testing.T) {
	registry := NewActorRegistry(time.Second, zap.NewNop())
	registry.Close()

	err := registry.Do(context.Background(), uuid.New(), func(ctx context.Context) error {
		return nil
	})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, "BUSY"))
}

func TestActorRegistry_RetireAllowsFreshActor(t *testing.T) {
	registry := NewActorRegistry(time.Second, zap.NewNop())
	defer registry.Close()

	auctionID := uuid.New()
	require.NoError(t, registry.Do(context.Background(), auctionID, func(ctx context.Context) error {
		return nil
	}))
	registry.Retire(auctionID)

	// A command after retirement lazily starts a new actor.
	require.NoError(t, registry.Do(context.Background(), auctionID, func(ctx context.Context) error {
		return nil
	}))
}
