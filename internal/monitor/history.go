// internal/monitor/history.go
package monitor

import (
	"sync"
	"time"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/limelight-labs/limelight-core/internal/events"
	"github.com/limelight-labs/limelight-core/internal/types"
)

// TradePoint is one executed trade as seen by the monitor.
type TradePoint struct {
	Time      time.Time
	Side      events.TradeSide
	AmountIn  *uint256.Int
	AmountOut *uint256.Int
	Price     *uint256.Int
}

// TradeStatistics holds per-token aggregates over the retained window.
type TradeStatistics struct {
	TotalTrades int
	BuyCount    int
	SellCount   int
	LastPrice   *uint256.Int
	MinPrice    *uint256.Int
	MaxPrice    *uint256.Int
}

// TradeHistory keeps a bounded in-memory trade log per token.
type TradeHistory struct {
	mu        sync.RWMutex
	trades    map[types.Address][]TradePoint
	maxTrades int
	logger    *zap.Logger
}

// NewTradeHistory creates a history retaining at most maxTrades entries
// per token.
func NewTradeHistory(maxTrades int, logger *zap.Logger) *TradeHistory {
	if maxTrades <= 0 {
		maxTrades = 256
	}
	return &TradeHistory{
		trades:    make(map[types.Address][]TradePoint),
		maxTrades: maxTrades,
		logger:    logger.Named("trade_history"),
	}
}

// LogTrade appends a trade, evicting the oldest entry once the window is
// full.
func (th *TradeHistory) LogTrade(token types.Address, point TradePoint) {
	th.mu.Lock()
	defer th.mu.Unlock()

	if point.Time.IsZero() {
		point.Time = time.Now().UTC()
	}

	window := th.trades[token]
	if len(window) >= th.maxTrades {
		window = window[1:]
	}
	th.trades[token] = append(window, point)
}

// Recent returns up to limit most recent trades for the token, oldest
// first.
func (th *TradeHistory) Recent(token types.Address, limit int) []TradePoint {
	th.mu.RLock()
	defer th.mu.RUnlock()

	window := th.trades[token]
	if limit <= 0 || limit > len(window) {
		limit = len(window)
	}

	result := make([]TradePoint, limit)
	copy(result, window[len(window)-limit:])
	return result
}

// Statistics aggregates the retained window for the token.
func (th *TradeHistory) Statistics(token types.Address) TradeStatistics {
	th.mu.RLock()
	defer th.mu.RUnlock()

	var stats TradeStatistics
	for _, point := range th.trades[token] {
		stats.TotalTrades++
		switch point.Side {
		case events.TradeBuy:
			stats.BuyCount++
		case events.TradeSell:
			stats.SellCount++
		}
		if point.Price == nil {
			continue
		}
		stats.LastPrice = point.Price
		if stats.MinPrice == nil || point.Price.Lt(stats.MinPrice) {
			stats.MinPrice = point.Price
		}
		if stats.MaxPrice == nil || point.Price.Gt(stats.MaxPrice) {
			stats.MaxPrice = point.Price
		}
	}
	return stats
}

// Drop forgets a token's window, used after graduation.
func (th *TradeHistory) Drop(token types.Address) {
	th.mu.Lock()
	defer th.mu.Unlock()
	delete(th.trades, token)
}
