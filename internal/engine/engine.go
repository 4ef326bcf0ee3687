// internal/engine/engine.go
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/limelight-labs/limelight-core/internal/bonding"
	"github.com/limelight-labs/limelight-core/internal/events"
	"github.com/limelight-labs/limelight-core/internal/router"
	"github.com/limelight-labs/limelight-core/internal/types"
)

// Engine serializes every mutating call against the bonding world and
// makes each call all-or-nothing: the operation runs against a deep clone
// and the clone replaces the world only when the operation succeeds. Any
// failure discards the clone wholesale, so partial reserve or balance
// updates can never be observed.
//
// Events staged during a call are published only after the commit.
type Engine struct {
	mu        sync.RWMutex
	world     *bonding.Controller
	publisher events.Publisher
	logger    *zap.Logger
}

// New creates an engine over the wired world. publisher may be nil when
// nobody consumes events.
func New(world *bonding.Controller, publisher events.Publisher, logger *zap.Logger) *Engine {
	return &Engine{
		world:     world,
		publisher: publisher,
		logger:    logger.Named("engine"),
	}
}

// Execute runs one atomic operation. The callback receives the working
// clone; returning an error reverts everything the callback did.
func (e *Engine) Execute(ctx context.Context, op string, fn func(*bonding.Controller) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	work := e.world.Clone()
	if err := fn(work); err != nil {
		e.logger.Debug("Operation reverted",
			zap.String("op", op),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return err
	}

	e.world = work
	committed := work.PendingEvents().Drain()
	if e.publisher != nil {
		for _, ev := range committed {
			if err := e.publisher.Publish(ev); err != nil {
				e.logger.Warn("Failed to publish committed event",
					zap.String("event_type", string(ev.Type())),
					zap.Error(err))
			}
		}
	}

	e.logger.Debug("Operation committed",
		zap.String("op", op),
		zap.Int("events", len(committed)),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

// View runs a read-only callback against the committed world. The callback
// must not mutate anything it reaches.
func (e *Engine) View(fn func(*bonding.Controller)) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	fn(e.world)
}

// Launch executes bonding.Controller.Launch atomically.
func (e *Engine) Launch(ctx context.Context, creator types.Address, meta bonding.TokenMeta, purchaseAmount *uint256.Int) (*bonding.TokenInfo, error) {
	var info *bonding.TokenInfo
	err := e.Execute(ctx, "launch", func(c *bonding.Controller) error {
		var err error
		info, err = c.Launch(creator, meta, purchaseAmount)
		return err
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}

// Buy executes bonding.Controller.Buy atomically.
func (e *Engine) Buy(ctx context.Context, trader, tokenAddr types.Address, amountIn, minAmountOut *uint256.Int) (*router.Quote, error) {
	var quote *router.Quote
	err := e.Execute(ctx, "buy", func(c *bonding.Controller) error {
		var err error
		quote, err = c.Buy(trader, tokenAddr, amountIn, minAmountOut)
		return err
	})
	if err != nil {
		return nil, err
	}
	return quote, nil
}

// Sell executes bonding.Controller.Sell atomically.
func (e *Engine) Sell(ctx context.Context, trader, tokenAddr types.Address, amountIn, minAmountOut *uint256.Int) (*router.Quote, error) {
	var quote *router.Quote
	err := e.Execute(ctx, "sell", func(c *bonding.Controller) error {
		var err error
		quote, err = c.Sell(trader, tokenAddr, amountIn, minAmountOut)
		return err
	})
	if err != nil {
		return nil, err
	}
	return quote, nil
}

// ApproveAsset sets an asset-token allowance atomically.
func (e *Engine) ApproveAsset(ctx context.Context, owner, spender types.Address, amount *uint256.Int) error {
	return e.Execute(ctx, "approve_asset", func(c *bonding.Controller) error {
		return c.Asset().Approve(owner, spender, amount)
	})
}

// ApproveArtist sets an artist-token allowance atomically.
func (e *Engine) ApproveArtist(ctx context.Context, tokenAddr, owner, spender types.Address, amount *uint256.Int) error {
	return e.Execute(ctx, "approve_artist", func(c *bonding.Controller) error {
		ledger := c.Artist(tokenAddr)
		if ledger == nil {
			return bonding.ErrTokenGraduated
		}
		return ledger.Approve(owner, spender, amount)
	})
}

// Tokens returns the committed launch order.
func (e *Engine) Tokens() []types.Address {
	var tokens []types.Address
	e.View(func(c *bonding.Controller) {
		tokens = c.Tokens()
	})
	return tokens
}

// Info returns a copy of the token's committed state record.
func (e *Engine) Info(tokenAddr types.Address) *bonding.TokenInfo {
	var info *bonding.TokenInfo
	e.View(func(c *bonding.Controller) {
		info = c.Info(tokenAddr)
	})
	return info
}
