// internal/events/types.go
package events

import (
	"time"

	"github.com/holiman/uint256"

	"github.com/limelight-labs/limelight-core/internal/types"
)

// EventType represents the type of event.
type EventType string

const (
	// Pair events
	TypePairCreated EventType = "pair.created"

	// Launch lifecycle events
	TypeLaunched  EventType = "token.launched"
	TypeGraduated EventType = "token.graduated"

	// Trading events
	TypeTradeExecuted EventType = "trade.executed"
)

// Event is the base interface for all events.
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	EventType EventType
	EventTime time.Time
}

// Type returns the event type.
func (e BaseEvent) Type() EventType {
	return e.EventType
}

// Timestamp returns when the event occurred.
func (e BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

// PairCreatedEvent is appended when the factory allocates a new pair.
type PairCreatedEvent struct {
	BaseEvent
	TokenA     types.Address
	TokenB     types.Address
	Pair       types.Address
	TokenIndex uint64
}

// LaunchedEvent is appended when a new artist token enters trading.
type LaunchedEvent struct {
	BaseEvent
	Token          types.Address
	Pair           types.Address
	TokenIndex     uint64
	Creator        types.Address
	Name           string
	Ticker         string
	Hometown       string
	PrimaryGenre   string
	SecondaryGenre string
	SpotifyURL     string
	AppleMusicURL  string
	InstagramURL   string
	TiktokURL      string
}

// GraduatedEvent is appended exactly once per token, when internal trading
// hands the token off to the external AMM.
type GraduatedEvent struct {
	BaseEvent
	Token        types.Address
	Pair         types.Address
	TokenIndex   uint64
	WrappedToken types.Address
	Pool         types.Address
}

// TradeSide is the direction of a bonding-curve trade.
type TradeSide string

const (
	TradeBuy  TradeSide = "buy"
	TradeSell TradeSide = "sell"
)

// TradeExecutedEvent is appended after every committed buy or sell.
type TradeExecutedEvent struct {
	BaseEvent
	Token     types.Address
	Pair      types.Address
	Trader    types.Address
	Side      TradeSide
	AmountIn  *uint256.Int
	AmountOut *uint256.Int
	Tax       *uint256.Int
	Price     *uint256.Int
}

// Now stamps a BaseEvent with the given type.
func Now(t EventType) BaseEvent {
	return BaseEvent{EventType: t, EventTime: time.Now().UTC()}
}
