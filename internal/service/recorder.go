// internal/service/recorder.go
package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/limelight-labs/limelight-core/internal/events"
	"github.com/limelight-labs/limelight-core/internal/storage"
	"github.com/limelight-labs/limelight-core/internal/storage/models"
)

const persistTimeout = 5 * time.Second

// Recorder mirrors the committed event stream into storage. It is a pure
// consumer: a persistence failure is logged but never blocks trading.
type Recorder struct {
	store  storage.Storage
	logger *zap.Logger
	subs   []events.Subscription
}

func NewRecorder(store storage.Storage, logger *zap.Logger) *Recorder {
	return &Recorder{
		store:  store,
		logger: logger.Named("recorder"),
	}
}

// Attach subscribes the recorder to the lifecycle events it persists.
func (r *Recorder) Attach(bus *events.Bus) {
	r.subs = append(r.subs,
		bus.SubscribeFunc(events.TypeLaunched, r.onLaunched),
		bus.SubscribeFunc(events.TypeTradeExecuted, r.onTrade),
		bus.SubscribeFunc(events.TypeGraduated, r.onGraduated),
	)
}

// Detach removes all subscriptions.
func (r *Recorder) Detach() {
	for _, sub := range r.subs {
		sub.Unsubscribe()
	}
	r.subs = nil
}

func (r *Recorder) onLaunched(ctx context.Context, event events.Event) error {
	ev, ok := event.(events.LaunchedEvent)
	if !ok {
		return fmt.Errorf("unexpected event payload for %s", event.Type())
	}

	ctx, cancel := context.WithTimeout(ctx, persistTimeout)
	defer cancel()

	err := r.store.SaveLaunch(ctx, &models.Launch{
		Token:          ev.Token.String(),
		Pair:           ev.Pair.String(),
		TokenIndex:     ev.TokenIndex,
		Creator:        ev.Creator.String(),
		Name:           ev.Name,
		Ticker:         ev.Ticker,
		Hometown:       ev.Hometown,
		PrimaryGenre:   ev.PrimaryGenre,
		SecondaryGenre: ev.SecondaryGenre,
		SpotifyURL:     ev.SpotifyURL,
		AppleMusicURL:  ev.AppleMusicURL,
		InstagramURL:   ev.InstagramURL,
		TiktokURL:      ev.TiktokURL,
		LaunchedAt:     ev.Timestamp(),
	})
	if err != nil {
		r.logger.Error("Failed to persist launch",
			zap.String("token", ev.Token.String()),
			zap.Error(err))
		return err
	}
	return nil
}

func (r *Recorder) onTrade(ctx context.Context, event events.Event) error {
	ev, ok := event.(events.TradeExecutedEvent)
	if !ok {
		return fmt.Errorf("unexpected event payload for %s", event.Type())
	}

	ctx, cancel := context.WithTimeout(ctx, persistTimeout)
	defer cancel()

	err := r.store.SaveTrade(ctx, &models.Trade{
		Token:      ev.Token.String(),
		Pair:       ev.Pair.String(),
		Trader:     ev.Trader.String(),
		Side:       string(ev.Side),
		AmountIn:   ev.AmountIn.Dec(),
		AmountOut:  ev.AmountOut.Dec(),
		Tax:        ev.Tax.Dec(),
		ExecutedAt: ev.Timestamp(),
	})
	if err != nil {
		r.logger.Error("Failed to persist trade",
			zap.String("token", ev.Token.String()),
			zap.String("trader", ev.Trader.String()),
			zap.Error(err))
		return err
	}
	return nil
}

func (r *Recorder) onGraduated(ctx context.Context, event events.Event) error {
	ev, ok := event.(events.GraduatedEvent)
	if !ok {
		return fmt.Errorf("unexpected event payload for %s", event.Type())
	}

	ctx, cancel := context.WithTimeout(ctx, persistTimeout)
	defer cancel()

	if err := r.store.SaveGraduation(ctx, &models.Graduation{
		Token:        ev.Token.String(),
		Pair:         ev.Pair.String(),
		TokenIndex:   ev.TokenIndex,
		WrappedToken: ev.WrappedToken.String(),
		Pool:         ev.Pool.String(),
		GraduatedAt:  ev.Timestamp(),
	}); err != nil {
		r.logger.Error("Failed to persist graduation",
			zap.String("token", ev.Token.String()),
			zap.Error(err))
		return err
	}

	if err := r.store.MarkGraduated(ctx, ev.Token.String()); err != nil {
		r.logger.Error("Failed to flag launch as graduated",
			zap.String("token", ev.Token.String()),
			zap.Error(err))
		return err
	}
	return nil
}
