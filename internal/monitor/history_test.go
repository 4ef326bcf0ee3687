package monitor

import (
	"context"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/limelight-labs/limelight-core/internal/events"
	"github.com/limelight-labs/limelight-core/internal/types"
)

func point(side events.TradeSide, price uint64) TradePoint {
	return TradePoint{
		Side:      side,
		AmountIn:  uint256.NewInt(100),
		AmountOut: uint256.NewInt(90),
		Price:     uint256.NewInt(price),
	}
}

func TestTradeHistoryWindow(t *testing.T) {
	th := NewTradeHistory(3, zap.NewNop())

	for i := uint64(1); i <= 5; i++ {
		th.LogTrade("artist:1:TATK", point(events.TradeBuy, i))
	}

	recent := th.Recent("artist:1:TATK", 0)
	require.Len(t, recent, 3, "window must evict oldest entries")
	assert.Equal(t, uint256.NewInt(3), recent[0].Price)
	assert.Equal(t, uint256.NewInt(5), recent[2].Price)

	limited := th.Recent("artist:1:TATK", 2)
	require.Len(t, limited, 2)
	assert.Equal(t, uint256.NewInt(4), limited[0].Price)
}

func TestTradeStatistics(t *testing.T) {
	th := NewTradeHistory(10, zap.NewNop())
	token := types.Address("artist:1:TATK")

	th.LogTrade(token, point(events.TradeBuy, 5))
	th.LogTrade(token, point(events.TradeBuy, 9))
	th.LogTrade(token, point(events.TradeSell, 7))

	stats := th.Statistics(token)
	assert.Equal(t, 3, stats.TotalTrades)
	assert.Equal(t, 2, stats.BuyCount)
	assert.Equal(t, 1, stats.SellCount)
	assert.Equal(t, uint256.NewInt(7), stats.LastPrice)
	assert.Equal(t, uint256.NewInt(5), stats.MinPrice)
	assert.Equal(t, uint256.NewInt(9), stats.MaxPrice)
}

func TestMonitorConsumesEvents(t *testing.T) {
	bus := events.NewBus(zap.NewNop(), 16)
	defer func() { _ = bus.Shutdown(context.Background()) }()

	m := New(10, zap.NewNop())
	m.Attach(bus)
	defer m.Detach()

	ctx := context.Background()
	require.NoError(t, bus.PublishSync(ctx, events.TradeExecutedEvent{
		BaseEvent: events.Now(events.TypeTradeExecuted),
		Token:     "artist:1:TATK",
		Trader:    "trader",
		Side:      events.TradeBuy,
		AmountIn:  uint256.NewInt(100),
		AmountOut: uint256.NewInt(90),
		Tax:       uint256.NewInt(10),
		Price:     uint256.NewInt(2),
	}))
	assert.Equal(t, 1, m.History().Statistics("artist:1:TATK").TotalTrades)

	require.NoError(t, bus.PublishSync(ctx, events.GraduatedEvent{
		BaseEvent: events.Now(events.TypeGraduated),
		Token:     "artist:1:TATK",
		Pool:      "amm-pool:1:artist:1:TATK",
	}))
	assert.Zero(t, m.History().Statistics("artist:1:TATK").TotalTrades,
		"graduation must close the trade window")
}
