package bonding

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/limelight-labs/limelight-core/internal/access"
	"github.com/limelight-labs/limelight-core/internal/amm"
	"github.com/limelight-labs/limelight-core/internal/events"
	"github.com/limelight-labs/limelight-core/internal/factory"
	"github.com/limelight-labs/limelight-core/internal/router"
	"github.com/limelight-labs/limelight-core/internal/token"
	"github.com/limelight-labs/limelight-core/internal/types"
)

const (
	adminAddr   = types.Address("admin")
	bondingAddr = types.Address("limelight:bonding")
	treasury    = types.Address("treasury")
	vault       = types.Address("vault")
	creator     = types.Address("creator")
	trader      = types.Address("trader")
)

type worldParams struct {
	buyBps, sellBps uint64
	assetSupply     *uint256.Int
	assetMaxTxBps   uint64
	initialSupply   *uint256.Int
	gradThreshold   *uint256.Int
}

func defaultParams() worldParams {
	return worldParams{
		buyBps:        2000,
		sellBps:       2000,
		assetSupply:   types.Units(1_000_000),
		assetMaxTxBps: 1,
		initialSupply: types.Units(1_000_000_000),
		gradThreshold: types.Units(3_000_000),
	}
}

func newWorld(t *testing.T, p worldParams) *Controller {
	t.Helper()
	logger := zap.NewNop()

	roles := access.NewRegistry(adminAddr)
	for _, role := range []access.Role{access.RoleCreator, access.RoleExecutor, access.RoleBonding, access.RoleMinter} {
		require.NoError(t, roles.Grant(adminAddr, role, bondingAddr))
	}

	asset, err := token.NewLedger("Limelight", "LMLT", bondingAddr, treasury, p.assetSupply, p.assetMaxTxBps)
	require.NoError(t, err)
	require.NoError(t, asset.ExcludeFromMaxTx(bondingAddr, treasury))

	reg := factory.NewRegistry(factory.TaxParams{Vault: vault, BuyBps: p.buyBps, SellBps: p.sellBps})

	return NewController(
		bondingAddr,
		Params{
			AssetToken:    "LMLT",
			InitialSupply: p.initialSupply,
			GradThreshold: p.gradThreshold,
		},
		roles,
		asset,
		reg,
		router.New(logger),
		amm.NewAdapter(amm.NewInMemory(), logger),
		logger,
	)
}

func testMeta() TokenMeta {
	return TokenMeta{
		Name:           "Test Artist",
		Ticker:         "TATK",
		Cores:          []string{"vocals", "production"},
		Description:    "test launch",
		Hometown:       "Atlanta",
		PrimaryGenre:   "hip-hop",
		SecondaryGenre: "r&b",
		SpotifyURL:     "https://open.spotify.com/artist/test",
		InstagramURL:   "https://instagram.com/test",
	}
}

func fund(t *testing.T, c *Controller, account types.Address, amount *uint256.Int) {
	t.Helper()
	require.NoError(t, c.Asset().Transfer(treasury, account, amount))
	require.NoError(t, c.Asset().Approve(account, bondingAddr, amount))
}

func TestLaunchFeeGuard(t *testing.T) {
	c := newWorld(t, defaultParams())
	fund(t, c, creator, types.Units(1_000))

	// buyTaxBps=2000 -> flat fee of 2 asset tokens.
	fee := c.LaunchFee()
	assert.Equal(t, types.Units(2), fee)

	_, err := c.Launch(creator, testMeta(), fee)
	assert.ErrorIs(t, err, ErrInvalidPurchaseAmount)

	overFee := new(uint256.Int).AddUint64(fee, 1)
	_, err = c.Launch(creator, testMeta(), overFee)
	assert.NoError(t, err)
}

func TestLaunchSeedsPairAndEmitsEvents(t *testing.T) {
	c := newWorld(t, defaultParams())
	fund(t, c, creator, types.Units(1_000))

	info, err := c.Launch(creator, testMeta(), types.Units(100))
	require.NoError(t, err)

	assert.Equal(t, uint64(1), info.TokenIndex)
	assert.NotEmpty(t, info.Pair)
	assert.False(t, info.TradingOnUniswap)
	assert.Equal(t, creator, info.Creator)

	pair := c.Factory().GetPair(info.Token, "LMLT")
	require.NotNil(t, pair)
	assert.Equal(t, types.Units(1_000_000_000), pair.ReserveArtist)
	// 100 purchase minus the flat fee of 2.
	assert.Equal(t, types.Units(98), pair.ReserveAsset)
	assert.Equal(t, types.Units(2), c.Asset().BalanceOf(vault))

	entries := c.PendingEvents().Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, events.TypePairCreated, entries[0].Type())
	launched, ok := entries[1].(events.LaunchedEvent)
	require.True(t, ok)
	assert.Equal(t, info.Token, launched.Token)
	assert.Equal(t, "Atlanta", launched.Hometown)
	assert.Equal(t, "hip-hop", launched.PrimaryGenre)
	assert.Equal(t, "https://open.spotify.com/artist/test", launched.SpotifyURL)
}

// Launch refuses an asset ledger whose max-tx cap the bonding principal
// cannot manage: graduation moves pool-sized amounts out of the pair, and
// a cap with no exclusions would wedge the handoff for good.
func TestLaunchRejectsUncontrolledAssetCap(t *testing.T) {
	logger := zap.NewNop()
	roles := access.NewRegistry(adminAddr)
	for _, role := range []access.Role{access.RoleCreator, access.RoleExecutor, access.RoleBonding, access.RoleMinter} {
		require.NoError(t, roles.Grant(adminAddr, role, bondingAddr))
	}

	// Asset ledger owned by someone else, with an active cap.
	other := types.Address("other-owner")
	asset, err := token.NewLedger("Limelight", "LMLT", other, treasury, types.Units(1_000_000), 1)
	require.NoError(t, err)
	require.NoError(t, asset.ExcludeFromMaxTx(other, treasury))

	c := NewController(
		bondingAddr,
		Params{
			AssetToken:    "LMLT",
			InitialSupply: types.Units(1_000_000_000),
			GradThreshold: types.Units(3_000_000),
		},
		roles,
		asset,
		factory.NewRegistry(factory.TaxParams{Vault: vault, BuyBps: 2000, SellBps: 2000}),
		router.New(logger),
		amm.NewAdapter(amm.NewInMemory(), logger),
		logger,
	)

	fund(t, c, creator, types.Units(1_000))
	_, err = c.Launch(creator, testMeta(), types.Units(100))
	assert.ErrorIs(t, err, ErrAssetNotControlled)

	// With the cap disabled the foreign owner is fine.
	require.NoError(t, asset.UpdateMaxTx(other, 0))
	_, err = c.Launch(creator, testMeta(), types.Units(100))
	assert.NoError(t, err)
}

func TestLaunchWithoutAllowance(t *testing.T) {
	c := newWorld(t, defaultParams())
	require.NoError(t, c.Asset().Transfer(treasury, creator, types.Units(100)))

	_, err := c.Launch(creator, testMeta(), types.Units(100))
	assert.ErrorIs(t, err, token.ErrInsufficientAllowance)
}

func TestTokenIndexAcrossLaunches(t *testing.T) {
	c := newWorld(t, defaultParams())
	fund(t, c, creator, types.Units(1_000))

	first, err := c.Launch(creator, testMeta(), types.Units(100))
	require.NoError(t, err)

	secondMeta := testMeta()
	secondMeta.Ticker = "BATK"
	second, err := c.Launch(creator, secondMeta, types.Units(100))
	require.NoError(t, err)

	assert.Equal(t, uint64(1), first.TokenIndex)
	assert.Equal(t, uint64(2), second.TokenIndex)
}

func TestBuyUnknownToken(t *testing.T) {
	c := newWorld(t, defaultParams())
	_, err := c.Buy(trader, "artist:99:NOPE", types.Units(1), nil)
	assert.ErrorIs(t, err, ErrTokenGraduated)
}

func TestBuyUpdatesMetrics(t *testing.T) {
	c := newWorld(t, defaultParams())
	fund(t, c, creator, types.Units(1_000))
	fund(t, c, trader, types.Units(10_000))

	info, err := c.Launch(creator, testMeta(), types.Units(100))
	require.NoError(t, err)

	quote, err := c.Buy(trader, info.Token, types.Units(1_000), nil)
	require.NoError(t, err)
	assert.False(t, quote.AmountOut.IsZero())
	assert.Equal(t, quote.AmountOut, c.Artist(info.Token).BalanceOf(trader))

	after := c.Info(info.Token)
	assert.False(t, after.CurrentPrice.IsZero())
	assert.False(t, after.CurrentMcap.IsZero())
	assert.Greater(t, after.AscensionProgress, info.AscensionProgress)
}

func TestRoundTripNotProfitable(t *testing.T) {
	c := newWorld(t, defaultParams())
	fund(t, c, creator, types.Units(1_000))
	fund(t, c, trader, types.Units(10_000))

	info, err := c.Launch(creator, testMeta(), types.Units(100))
	require.NoError(t, err)

	in := types.Units(500)
	buy, err := c.Buy(trader, info.Token, in, nil)
	require.NoError(t, err)

	require.NoError(t, c.Artist(info.Token).Approve(trader, bondingAddr, buy.AmountOut))
	sell, err := c.Sell(trader, info.Token, buy.AmountOut, nil)
	require.NoError(t, err)

	assert.True(t, sell.AmountOut.Lt(in), "round trip must be strictly lossy with nonzero tax")
}

func TestSellWithoutAllowance(t *testing.T) {
	c := newWorld(t, defaultParams())
	fund(t, c, creator, types.Units(1_000))
	fund(t, c, trader, types.Units(10_000))

	info, err := c.Launch(creator, testMeta(), types.Units(100))
	require.NoError(t, err)
	buy, err := c.Buy(trader, info.Token, types.Units(500), nil)
	require.NoError(t, err)

	_, err = c.Sell(trader, info.Token, buy.AmountOut, nil)
	assert.ErrorIs(t, err, token.ErrInsufficientAllowance)
}

// A zero-amount trade from an account that never approved the bonding
// principal must fail or no-op cleanly, never crash the world.
func TestZeroAmountTradeWithoutApproval(t *testing.T) {
	c := newWorld(t, defaultParams())
	fund(t, c, creator, types.Units(1_000))

	info, err := c.Launch(creator, testMeta(), types.Units(100))
	require.NoError(t, err)
	pair := c.Factory().GetPair(info.Token, "LMLT")
	before := pair.K()

	stranger := types.Address("stranger")
	quote, err := c.Buy(stranger, info.Token, uint256.NewInt(0), nil)
	require.NoError(t, err)
	assert.True(t, quote.AmountOut.IsZero())

	quote, err = c.Sell(stranger, info.Token, uint256.NewInt(0), nil)
	require.NoError(t, err)
	assert.True(t, quote.AmountOut.IsZero())

	assert.Equal(t, before, pair.K())
	assert.True(t, c.Asset().BalanceOf(stranger).IsZero())
}

func TestQuoteDoesNotMutate(t *testing.T) {
	c := newWorld(t, defaultParams())
	fund(t, c, creator, types.Units(1_000))

	info, err := c.Launch(creator, testMeta(), types.Units(100))
	require.NoError(t, err)
	pair := c.Factory().GetPair(info.Token, "LMLT")
	before := pair.K()

	_, err = c.QuoteBuy(info.Token, types.Units(1_000))
	require.NoError(t, err)
	_, err = c.QuoteSell(info.Token, types.Units(1_000))
	require.NoError(t, err)

	assert.Equal(t, before, pair.K())
}

// TestGraduationScenario walks the full curve: launch, buy in fixed chunks
// until the artist reserve drains to the threshold, then verify the
// one-time handoff to the external AMM.
func TestGraduationScenario(t *testing.T) {
	c := newWorld(t, defaultParams())
	fund(t, c, creator, types.Units(1_000))
	fund(t, c, trader, types.Units(100_000))

	info, err := c.Launch(creator, testMeta(), types.Units(100))
	require.NoError(t, err)
	require.Equal(t, uint64(1), info.TokenIndex)

	chunk := types.Units(10_000)
	buys := 0
	for !c.Info(info.Token).TradingOnUniswap {
		_, err := c.Buy(trader, info.Token, chunk, nil)
		require.NoError(t, err)
		buys++
		require.Less(t, buys, 50, "graduation never triggered")
	}
	assert.Greater(t, buys, 1, "graduation should take multiple buys")

	after := c.Info(info.Token)
	assert.True(t, after.TradingOnUniswap)
	assert.Equal(t, uint64(types.BpsDenominator), after.AscensionProgress)
	assert.Equal(t, types.Address("wrapped:"+after.Token.String()), after.ArtistToken)

	// Internal trading is terminal.
	_, err = c.Buy(trader, info.Token, chunk, nil)
	assert.ErrorIs(t, err, ErrTokenGraduated)
	_, err = c.Sell(trader, info.Token, types.Units(1), nil)
	assert.ErrorIs(t, err, ErrTokenGraduated)
	_, err = c.QuoteBuy(info.Token, chunk)
	assert.ErrorIs(t, err, ErrTokenGraduated)

	// Reserves migrated out of the internal pair.
	pair := c.Factory().GetPair(info.Token, "LMLT")
	assert.True(t, pair.ReserveArtist.IsZero())
	assert.True(t, pair.ReserveAsset.IsZero())

	mem := c.adapter.Target().(*amm.InMemory)
	var graduated *events.GraduatedEvent
	for _, ev := range c.PendingEvents().Entries() {
		if g, ok := ev.(events.GraduatedEvent); ok {
			graduated = &g
		}
	}
	require.NotNil(t, graduated, "Graduated event missing")
	assert.Equal(t, info.Token, graduated.Token)
	assert.Equal(t, uint64(1), graduated.TokenIndex)

	pool := mem.Pool(graduated.Pool)
	require.NotNil(t, pool)
	assert.False(t, pool.ReserveA.IsZero())
	assert.False(t, pool.ReserveB.IsZero())
	// The external pool holds the migrated token balances.
	assert.Equal(t, pool.ReserveA, c.Artist(info.Token).BalanceOf(graduated.Pool))
	assert.Equal(t, pool.ReserveB, c.Asset().BalanceOf(graduated.Pool))
}

// Graduation triggers on <=: a trade that lands the reserve exactly on the
// threshold graduates the token.
func TestGraduationThresholdInclusive(t *testing.T) {
	p := defaultParams()
	// Threshold equal to the initial supply: the launch itself puts the
	// reserve at the threshold, so the very first trade graduates.
	p.gradThreshold = p.initialSupply
	c := newWorld(t, p)
	fund(t, c, creator, types.Units(1_000))
	fund(t, c, trader, types.Units(10_000))

	info, err := c.Launch(creator, testMeta(), types.Units(100))
	require.NoError(t, err)
	require.False(t, c.Info(info.Token).TradingOnUniswap)

	_, err = c.Buy(trader, info.Token, types.Units(10), nil)
	require.NoError(t, err)
	assert.True(t, c.Info(info.Token).TradingOnUniswap)
}

func TestGraduationConsumesDeployParams(t *testing.T) {
	p := defaultParams()
	p.gradThreshold = p.initialSupply
	c := newWorld(t, p)
	fund(t, c, creator, types.Units(1_000))
	fund(t, c, trader, types.Units(10_000))

	require.NoError(t, c.SetDeployParams(adminAddr, amm.DeployParams{
		TBASalt:           "tba-v2",
		TBAImplementation: "tba:impl:2",
	}))

	info, err := c.Launch(creator, testMeta(), types.Units(100))
	require.NoError(t, err)
	_, err = c.Buy(trader, info.Token, types.Units(10), nil)
	require.NoError(t, err)

	after := c.Info(info.Token)
	require.True(t, after.TradingOnUniswap)
	assert.Equal(t, types.Address("wrapped:tba-v2:"+after.Token.String()), after.ArtistToken)
}

func TestSetDeployParamsAdminGate(t *testing.T) {
	c := newWorld(t, defaultParams())

	deploy := amm.DeployParams{
		TBASalt:           "limelight-tba-v1",
		TBAImplementation: "tba:impl:1",
		DaoVotingPeriod:   60 * 60 * 24 * 3,
		DaoThreshold:      types.Units(1_000),
	}
	assert.ErrorIs(t, c.SetDeployParams(trader, deploy), access.ErrUnauthorized)

	require.NoError(t, c.SetDeployParams(adminAddr, deploy))
	assert.Equal(t, deploy.TBASalt, c.DeployParams().TBASalt)
}

func TestCloneIsolation(t *testing.T) {
	c := newWorld(t, defaultParams())
	fund(t, c, creator, types.Units(1_000))

	info, err := c.Launch(creator, testMeta(), types.Units(100))
	require.NoError(t, err)

	cp := c.Clone()
	fund(t, cp, trader, types.Units(10_000))
	_, err = cp.Buy(trader, info.Token, types.Units(1_000), nil)
	require.NoError(t, err)

	original := c.Factory().GetPair(info.Token, "LMLT")
	cloned := cp.Factory().GetPair(info.Token, "LMLT")
	assert.Equal(t, types.Units(98), original.ReserveAsset)
	assert.True(t, cloned.ReserveAsset.Gt(original.ReserveAsset))
}
