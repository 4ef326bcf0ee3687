// internal/service/simulation.go
package service

import (
	"context"
	"errors"
	"time"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/limelight-labs/limelight-core/internal/bonding"
	"github.com/limelight-labs/limelight-core/internal/engine"
	"github.com/limelight-labs/limelight-core/internal/types"
)

// Simulator drives a scripted market against the engine: fund a creator
// and a trader from the treasury, launch one artist token, then buy in
// fixed chunks until the token graduates. It exists to exercise the full
// lifecycle in a running daemon.
type Simulator struct {
	engine   *engine.Engine
	logger   *zap.Logger
	treasury types.Address
	bonding  types.Address
	purchase *uint256.Int
	chunk    *uint256.Int
	interval time.Duration
}

func NewSimulator(eng *engine.Engine, treasury, bondingAddr types.Address, purchase, chunk *uint256.Int, interval time.Duration, logger *zap.Logger) *Simulator {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Simulator{
		engine:   eng,
		logger:   logger.Named("simulator"),
		treasury: treasury,
		bonding:  bondingAddr,
		purchase: purchase,
		chunk:    chunk,
		interval: interval,
	}
}

const (
	simCreator = types.Address("sim:creator")
	simTrader  = types.Address("sim:trader")
)

// Run executes the scripted market until graduation or cancellation.
func (s *Simulator) Run(ctx context.Context) error {
	if err := s.fund(ctx); err != nil {
		return err
	}

	info, err := s.engine.Launch(ctx, simCreator, bonding.TokenMeta{
		Name:         "Simulated Artist",
		Ticker:       "SIM",
		Description:  "scripted lifecycle run",
		Hometown:     "Nowhere",
		PrimaryGenre: "synthwave",
	}, s.purchase)
	if err != nil {
		return err
	}
	s.logger.Info("Simulation token launched",
		zap.String("token", info.Token.String()),
		zap.Uint64("token_index", info.TokenIndex))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			_, err := s.engine.Buy(ctx, simTrader, info.Token, s.chunk, nil)
			if errors.Is(err, bonding.ErrTokenGraduated) {
				s.logger.Info("Simulation complete, token graduated",
					zap.String("token", info.Token.String()))
				return nil
			}
			if err != nil {
				return err
			}

			current := s.engine.Info(info.Token)
			s.logger.Info("Simulation buy executed",
				zap.String("token", info.Token.String()),
				zap.Uint64("progress_bps", current.AscensionProgress),
				zap.String("price", types.FormatUnits(current.CurrentPrice)))
			if current.TradingOnUniswap {
				s.logger.Info("Simulation complete, token graduated",
					zap.String("token", info.Token.String()))
				return nil
			}
		}
	}
}

// fund moves asset tokens from the treasury to the scripted accounts and
// approves the bonding principal to spend them.
func (s *Simulator) fund(ctx context.Context) error {
	// Enough for the launch purchase plus a long run of buy chunks.
	budget := new(uint256.Int).Mul(s.chunk, uint256.NewInt(1000))
	creatorBudget := new(uint256.Int).Add(s.purchase, s.purchase)

	for _, transfer := range []struct {
		to     types.Address
		amount *uint256.Int
	}{
		{simCreator, creatorBudget},
		{simTrader, budget},
	} {
		to, amount := transfer.to, transfer.amount
		err := s.engine.Execute(ctx, "sim_fund", func(c *bonding.Controller) error {
			return c.Asset().Transfer(s.treasury, to, amount)
		})
		if err != nil {
			return err
		}
		if err := s.engine.ApproveAsset(ctx, to, s.bonding, amount); err != nil {
			return err
		}
	}
	return nil
}
