// internal/service/runner.go
package service

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/limelight-labs/limelight-core/internal/amm"
	"github.com/limelight-labs/limelight-core/internal/config"
	"github.com/limelight-labs/limelight-core/internal/engine"
	"github.com/limelight-labs/limelight-core/internal/events"
	"github.com/limelight-labs/limelight-core/internal/monitor"
	"github.com/limelight-labs/limelight-core/internal/storage"
	"github.com/limelight-labs/limelight-core/internal/storage/postgres"
	"github.com/limelight-labs/limelight-core/internal/types"
)

const statsInterval = 30 * time.Second

// Runner wires the bonding world, engine, event bus and storage into a
// running daemon.
type Runner struct {
	logger     *zap.Logger
	config     *config.Config
	engine     *engine.Engine
	bus        *events.Bus
	store      storage.Storage
	recorder   *Recorder
	monitor    *monitor.Monitor
	shutdownCh chan os.Signal
}

func NewRunner(logger *zap.Logger) *Runner {
	return &Runner{
		logger:     logger,
		shutdownCh: make(chan os.Signal, 1),
	}
}

// Initialize loads configuration and builds the world. Storage is wired
// only when postgres_url is configured.
func (r *Runner) Initialize(configPath string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	r.config = cfg

	r.bus = events.NewBus(r.logger, cfg.EventBufferSize)

	world, err := engine.NewWorld(engine.WorldConfig{
		AdminAddr:      types.Address(cfg.AdminAddr),
		BondingAddr:    types.Address(cfg.BondingAddr),
		Treasury:       types.Address(cfg.Treasury),
		TaxVault:       types.Address(cfg.TaxVault),
		AssetName:      cfg.AssetName,
		AssetSymbol:    cfg.AssetSymbol,
		AssetSupply:    types.Units(cfg.AssetSupply),
		AssetMaxTxBps:  cfg.AssetMaxTxBps,
		BuyTaxBps:      cfg.BuyTaxBps,
		SellTaxBps:     cfg.SellTaxBps,
		InitialSupply:  types.Units(cfg.InitialSupply),
		GradThreshold:  types.Units(cfg.GradThreshold),
		ArtistMaxTxBps: cfg.ArtistMaxTxBps,
	}, amm.NewInMemory(), r.logger)
	if err != nil {
		return fmt.Errorf("failed to build world: %w", err)
	}
	r.engine = engine.New(world, r.bus, r.logger)

	r.monitor = monitor.New(cfg.EventBufferSize, r.logger)
	r.monitor.Attach(r.bus)

	if cfg.PostgresURL != "" {
		store, err := postgres.NewStorage(context.Background(), cfg.PostgresURL, r.logger.Named("storage"))
		if err != nil {
			return fmt.Errorf("failed to connect storage: %w", err)
		}
		if err := store.RunMigrations(); err != nil {
			return fmt.Errorf("failed to migrate storage: %w", err)
		}
		r.store = store
		r.recorder = NewRecorder(store, r.logger)
		r.recorder.Attach(r.bus)
		r.logger.Info("Persistence enabled")
	} else {
		r.logger.Info("No postgres_url configured, running without persistence")
	}

	r.logger.Info("World initialized",
		zap.String("asset", cfg.AssetSymbol),
		zap.Uint64("buy_tax_bps", cfg.BuyTaxBps),
		zap.Uint64("sell_tax_bps", cfg.SellTaxBps),
		zap.Uint64("grad_threshold", cfg.GradThreshold))
	return nil
}

// Engine exposes the atomic operation surface.
func (r *Runner) Engine() *engine.Engine {
	return r.engine
}

// Monitor exposes the live trade history.
func (r *Runner) Monitor() *monitor.Monitor {
	return r.monitor
}

// Run blocks until the context is cancelled or a shutdown signal arrives.
func (r *Runner) Run(ctx context.Context) error {
	signal.Notify(r.shutdownCh, syscall.SIGINT, syscall.SIGTERM)
	shutdownCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case sig := <-r.shutdownCh:
			r.logger.Info("Signal received: " + sig.String())
			cancel()
		case <-shutdownCtx.Done():
		}
	}()

	g, gctx := errgroup.WithContext(shutdownCtx)
	g.Go(func() error {
		return r.statsLoop(gctx)
	})
	if r.config.Simulation {
		sim := NewSimulator(
			r.engine,
			types.Address(r.config.Treasury),
			types.Address(r.config.BondingAddr),
			types.Units(r.config.SimPurchase),
			types.Units(r.config.SimBuyChunk),
			time.Duration(r.config.SimIntervalMs)*time.Millisecond,
			r.logger,
		)
		g.Go(func() error {
			return sim.Run(gctx)
		})
	}

	if err := g.Wait(); err != nil && err != context.Canceled {
		return err
	}
	return r.Shutdown()
}

// statsLoop periodically logs a summary of the committed world.
func (r *Runner) statsLoop(ctx context.Context) error {
	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			tokens := r.engine.Tokens()
			graduated := 0
			for _, addr := range tokens {
				if info := r.engine.Info(addr); info != nil && info.TradingOnUniswap {
					graduated++
				}
			}
			r.logger.Info("World stats",
				zap.Int("tokens", len(tokens)),
				zap.Int("graduated", graduated))
		}
	}
}

// Shutdown flushes the event bus and closes storage.
func (r *Runner) Shutdown() error {
	r.logger.Info("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if r.recorder != nil {
		defer r.recorder.Detach()
	}
	if r.monitor != nil {
		defer r.monitor.Detach()
	}
	if r.bus != nil {
		if err := r.bus.Shutdown(ctx); err != nil {
			r.logger.Warn("Event bus shutdown incomplete", zap.Error(err))
		}
	}
	if r.store != nil {
		if err := r.store.Close(); err != nil {
			r.logger.Warn("Failed to close storage", zap.Error(err))
		}
	}
	return nil
}
