package bidding

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nathangreen1632/MineralCache-sub000/internal/domain/errors"
)

// ActorRegistry gives each auction id one serialized execution context.
// Commands for the same auction run strictly one at a time in arrival
// order; commands for different auctions run fully in parallel. Enqueueing
// waits at most mailboxTimeout before returning BUSY, because bid latency
// is user-visible in a live auction.
type ActorRegistry struct {
	mu             sync.Mutex
	actors         map[uuid.UUID]*actor
	mailboxTimeout time.Duration
	mailboxSize    int
	idleAfter      time.Duration
	logger         *zap.Logger
	closed         bool
}

type actor struct {
	id       uuid.UUID
	commands chan command
	registry *ActorRegistry
}

type command struct {
	ctx  context.Context
	fn   func(ctx context.Context) error
	done chan error
}

// NewActorRegistry creates the per-auction serialization layer
func NewActorRegistry(mailboxTimeout time.Duration, logger *zap.Logger) *ActorRegistry {
	if mailboxTimeout <= 0 {
		mailboxTimeout = 250 * time.Millisecond
	}
	return &ActorRegistry{
		actors:         make(map[uuid.UUID]*actor),
		mailboxTimeout: mailboxTimeout,
		mailboxSize:    64,
		idleAfter:      2 * time.Minute,
		logger:         logger,
	}
}

// Do runs fn on the auction's serialized context and waits for the result.
// Returns BUSY if the mailbox cannot accept the command within the bounded
// wait, or the context error if the caller gives up while queued.
func (r *ActorRegistry) Do(ctx context.Context, auctionID uuid.UUID, fn func(ctx context.Context) error) error {
	a, err := r.acquire(auctionID)
	if err != nil {
		return err
	}

	cmd := command{ctx: ctx, fn: fn, done: make(chan error, 1)}

	timer := time.NewTimer(r.mailboxTimeout)
	defer timer.Stop()

	select {
	case a.commands <- cmd:
	case <-timer.C:
		return errors.NewBusyError()
	case <-ctx.Done():
		return errors.NewBusyError().WithCause(ctx.Err())
	}

	select {
	case err := <-cmd.done:
		return err
	case <-ctx.Done():
		// The command may still execute; the caller just stopped waiting.
		return errors.NewBusyError().WithCause(ctx.Err())
	}
}

// Retire detaches the actor for a terminal auction. Its goroutine drains
// queued commands and exits on the idle timer; the mailbox channel is never
// closed so a racing Do cannot panic. A later Do lazily starts a fresh
// actor, which is harmless since terminal states reject mutation at the
// domain layer.
func (r *ActorRegistry) Retire(auctionID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.actors, auctionID)
}

// Close detaches all actors. Do returns BUSY afterwards.
func (r *ActorRegistry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	for id := range r.actors {
		delete(r.actors, id)
	}
}

func (r *ActorRegistry) acquire(auctionID uuid.UUID) (*actor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, errors.NewBusyError()
	}
	a, ok := r.actors[auctionID]
	if !ok {
		a = &actor{
			id:       auctionID,
			commands: make(chan command, r.mailboxSize),
			registry: r,
		}
		r.actors[auctionID] = a
		go a.run()
	}
	return a, nil
}

// run processes commands serially until the mailbox is closed or the actor
// sits idle long enough to be reclaimed.
func (a *actor) run() {
	idle := time.NewTimer(a.registry.idleAfter)
	defer idle.Stop()

	for {
		select {
		case cmd, ok := <-a.commands:
			if !ok {
				return
			}
			a.execute(cmd)
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(a.registry.idleAfter)

		case <-idle.C:
			if a.retireIfIdle() {
				return
			}
			idle.Reset(a.registry.idleAfter)
		}
	}
}

func (a *actor) execute(cmd command) {
	if err := cmd.ctx.Err(); err != nil {
		cmd.done <- errors.NewBusyError().WithCause(err)
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			a.registry.logger.Error("auction actor command panicked",
				zap.String("auction_id", a.id.String()),
				zap.Any("panic", rec),
			)
			cmd.done <- errors.NewInternalError("auction command failed")
		}
	}()
	cmd.done <- cmd.fn(cmd.ctx)
}

// retireIfIdle removes the actor unless a command raced in. Returns true
// when the goroutine should exit.
func (a *actor) retireIfIdle() bool {
	r := a.registry
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(a.commands) > 0 {
		return false
	}
	if current, ok := r.actors[a.id]; ok && current == a {
		delete(r.actors, a.id)
	}
	// Drain anything that slipped in between the length check and delete.
	for {
		select {
		case cmd, ok := <-a.commands:
			if !ok {
				return true
			}
			a.execute(cmd)
		default:
			return true
		}
	}
}
