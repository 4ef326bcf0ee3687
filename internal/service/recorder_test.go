package service

import (
	"context"
	"sync"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/limelight-labs/limelight-core/internal/events"
	"github.com/limelight-labs/limelight-core/internal/storage/models"
)

type memStore struct {
	mu          sync.Mutex
	launches    []*models.Launch
	trades      []*models.Trade
	graduations []*models.Graduation
}

func (m *memStore) SaveLaunch(_ context.Context, launch *models.Launch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.launches = append(m.launches, launch)
	return nil
}

func (m *memStore) GetLaunch(_ context.Context, token string) (*models.Launch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.launches {
		if l.Token == token {
			return l, nil
		}
	}
	return nil, nil
}

func (m *memStore) ListLaunches(_ context.Context, _, _ int) ([]*models.Launch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*models.Launch(nil), m.launches...), nil
}

func (m *memStore) SaveTrade(_ context.Context, trade *models.Trade) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trades = append(m.trades, trade)
	return nil
}

func (m *memStore) ListTrades(_ context.Context, _ string, _, _ int) ([]*models.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*models.Trade(nil), m.trades...), nil
}

func (m *memStore) SaveGraduation(_ context.Context, grad *models.Graduation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.graduations = append(m.graduations, grad)
	return nil
}

func (m *memStore) MarkGraduated(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.launches {
		if l.Token == token {
			l.Graduated = true
		}
	}
	return nil
}

func (m *memStore) GetGraduation(_ context.Context, token string) (*models.Graduation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, g := range m.graduations {
		if g.Token == token {
			return g, nil
		}
	}
	return nil, nil
}

func (m *memStore) RunMigrations() error { return nil }
func (m *memStore) Close() error         { return nil }

func TestRecorderPersistsLifecycle(t *testing.T) {
	store := &memStore{}
	bus := events.NewBus(zap.NewNop(), 16)
	defer func() { _ = bus.Shutdown(context.Background()) }()

	rec := NewRecorder(store, zap.NewNop())
	rec.Attach(bus)
	defer rec.Detach()

	ctx := context.Background()
	require.NoError(t, bus.PublishSync(ctx, events.LaunchedEvent{
		BaseEvent:  events.Now(events.TypeLaunched),
		Token:      "artist:1:TATK",
		Pair:       "pair:1:artist:1:TATK",
		TokenIndex: 1,
		Creator:    "creator",
		Name:       "Test Artist",
		Ticker:     "TATK",
		Hometown:   "Atlanta",
	}))
	require.NoError(t, bus.PublishSync(ctx, events.TradeExecutedEvent{
		BaseEvent: events.Now(events.TypeTradeExecuted),
		Token:     "artist:1:TATK",
		Pair:      "pair:1:artist:1:TATK",
		Trader:    "trader",
		Side:      events.TradeBuy,
		AmountIn:  uint256.NewInt(100),
		AmountOut: uint256.NewInt(90),
		Tax:       uint256.NewInt(10),
		Price:     uint256.NewInt(1),
	}))
	require.NoError(t, bus.PublishSync(ctx, events.GraduatedEvent{
		BaseEvent:    events.Now(events.TypeGraduated),
		Token:        "artist:1:TATK",
		Pair:         "pair:1:artist:1:TATK",
		TokenIndex:   1,
		WrappedToken: "wrapped:artist:1:TATK",
		Pool:         "amm-pool:1:artist:1:TATK",
	}))

	require.Len(t, store.launches, 1)
	assert.Equal(t, "Test Artist", store.launches[0].Name)
	assert.Equal(t, "Atlanta", store.launches[0].Hometown)
	assert.True(t, store.launches[0].Graduated, "graduation must flag the launch row")

	require.Len(t, store.trades, 1)
	assert.Equal(t, "buy", store.trades[0].Side)
	assert.Equal(t, "100", store.trades[0].AmountIn)
	assert.Equal(t, "10", store.trades[0].Tax)

	require.Len(t, store.graduations, 1)
	assert.Equal(t, "wrapped:artist:1:TATK", store.graduations[0].WrappedToken)
}

func TestRecorderDetachStopsPersistence(t *testing.T) {
	store := &memStore{}
	bus := events.NewBus(zap.NewNop(), 16)
	defer func() { _ = bus.Shutdown(context.Background()) }()

	rec := NewRecorder(store, zap.NewNop())
	rec.Attach(bus)
	rec.Detach()

	require.NoError(t, bus.PublishSync(context.Background(), events.LaunchedEvent{
		BaseEvent: events.Now(events.TypeLaunched),
		Token:     "artist:1:TATK",
	}))
	assert.Empty(t, store.launches)
}
