// internal/monitor/service.go
package monitor

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/limelight-labs/limelight-core/internal/events"
)

// Monitor consumes the committed event stream and maintains the live
// per-token trade history.
type Monitor struct {
	history *TradeHistory
	logger  *zap.Logger
	subs    []events.Subscription
}

func New(maxTrades int, logger *zap.Logger) *Monitor {
	return &Monitor{
		history: NewTradeHistory(maxTrades, logger),
		logger:  logger.Named("monitor"),
	}
}

// History exposes the underlying trade window.
func (m *Monitor) History() *TradeHistory {
	return m.history
}

// Attach subscribes the monitor to trade and graduation events.
func (m *Monitor) Attach(bus *events.Bus) {
	m.subs = append(m.subs,
		bus.SubscribeFunc(events.TypeTradeExecuted, m.onTrade),
		bus.SubscribeFunc(events.TypeGraduated, m.onGraduated),
	)
}

// Detach removes all subscriptions.
func (m *Monitor) Detach() {
	for _, sub := range m.subs {
		sub.Unsubscribe()
	}
	m.subs = nil
}

func (m *Monitor) onTrade(_ context.Context, event events.Event) error {
	ev, ok := event.(events.TradeExecutedEvent)
	if !ok {
		return fmt.Errorf("unexpected event payload for %s", event.Type())
	}

	m.history.LogTrade(ev.Token, TradePoint{
		Time:      ev.Timestamp(),
		Side:      ev.Side,
		AmountIn:  ev.AmountIn,
		AmountOut: ev.AmountOut,
		Price:     ev.Price,
	})
	return nil
}

func (m *Monitor) onGraduated(_ context.Context, event events.Event) error {
	ev, ok := event.(events.GraduatedEvent)
	if !ok {
		return fmt.Errorf("unexpected event payload for %s", event.Type())
	}

	stats := m.history.Statistics(ev.Token)
	m.logger.Info("Token graduated, closing trade window",
		zap.String("token", ev.Token.String()),
		zap.String("pool", ev.Pool.String()),
		zap.Int("trades", stats.TotalTrades),
		zap.Int("buys", stats.BuyCount),
		zap.Int("sells", stats.SellCount),
		zap.String("last_price", format(stats.LastPrice)))
	m.history.Drop(ev.Token)
	return nil
}

func format(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.Dec()
}
