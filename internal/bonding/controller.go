// internal/bonding/controller.go
package bonding

import (
	"fmt"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/limelight-labs/limelight-core/internal/access"
	"github.com/limelight-labs/limelight-core/internal/amm"
	"github.com/limelight-labs/limelight-core/internal/events"
	"github.com/limelight-labs/limelight-core/internal/factory"
	"github.com/limelight-labs/limelight-core/internal/router"
	"github.com/limelight-labs/limelight-core/internal/token"
	"github.com/limelight-labs/limelight-core/internal/types"
)

// Controller is the bonding-curve state machine. It launches artist
// tokens, proxies buys and sells through the router, tracks per-token
// progress, and hands tokens off to the external AMM at graduation.
//
// A Controller instance is the whole mutable world: the engine clones it
// per call and swaps the clone in only when the call succeeds.
type Controller struct {
	addr   types.Address
	params Params
	deploy amm.DeployParams

	roles   *access.Registry
	asset   *token.Ledger
	artists map[types.Address]*token.Ledger
	reg     *factory.Registry
	router  *router.Router
	adapter *amm.Adapter

	infos     map[types.Address]*TokenInfo
	order     []types.Address
	launchSeq uint64

	pending *events.Log
	logger  *zap.Logger
}

// NewController wires the bonding world. The bonding principal addr is
// expected to hold CREATOR, EXECUTOR, BONDING and MINTER roles; the
// engine's wiring grants them.
func NewController(
	addr types.Address,
	params Params,
	roles *access.Registry,
	asset *token.Ledger,
	reg *factory.Registry,
	rt *router.Router,
	adapter *amm.Adapter,
	logger *zap.Logger,
) *Controller {
	return &Controller{
		addr:    addr,
		params:  params,
		roles:   roles,
		asset:   asset,
		artists: make(map[types.Address]*token.Ledger),
		reg:     reg,
		router:  rt,
		adapter: adapter,
		infos:   make(map[types.Address]*TokenInfo),
		pending: events.NewLog(),
		logger:  logger.Named("bonding"),
	}
}

// Address returns the bonding principal address.
func (c *Controller) Address() types.Address { return c.addr }

// Roles returns the role registry.
func (c *Controller) Roles() *access.Registry { return c.roles }

// Asset returns the asset-token ledger.
func (c *Controller) Asset() *token.Ledger { return c.asset }

// Factory returns the pair registry.
func (c *Controller) Factory() *factory.Registry { return c.reg }

// Artist returns the ledger of a launched artist token, nil when unknown.
func (c *Controller) Artist(tokenAddr types.Address) *token.Ledger {
	return c.artists[tokenAddr]
}

// Info returns a copy of the token's state record, nil when unknown.
func (c *Controller) Info(tokenAddr types.Address) *TokenInfo {
	if info, ok := c.infos[tokenAddr]; ok {
		return info.Clone()
	}
	return nil
}

// Tokens returns all launched token addresses in launch order.
func (c *Controller) Tokens() []types.Address {
	out := make([]types.Address, len(c.order))
	copy(out, c.order)
	return out
}

// PendingEvents returns the staged event log for the engine to flush.
func (c *Controller) PendingEvents() *events.Log { return c.pending }

// LaunchFee is the flat launch fee in asset tokens: buyTaxBps * 1e18 / 1000.
// Flat, not proportional to the purchase. Carried over unchanged from the
// deployed controller.
func (c *Controller) LaunchFee() *uint256.Int {
	fee := new(uint256.Int).Mul(uint256.NewInt(c.reg.Tax().BuyBps), types.OneUnit())
	return fee.Div(fee, uint256.NewInt(1000))
}

// Launch deploys a new artist token, wraps it in a pair and seeds initial
// liquidity with the creator's purchase net of the flat fee. The creator
// must have approved the bonding principal for purchaseAmount of the
// asset token.
func (c *Controller) Launch(creator types.Address, meta TokenMeta, purchaseAmount *uint256.Int) (*TokenInfo, error) {
	fee := c.LaunchFee()
	if purchaseAmount == nil || !purchaseAmount.Gt(fee) {
		return nil, ErrInvalidPurchaseAmount
	}
	if err := c.roles.Require(access.RoleMinter, c.addr); err != nil {
		return nil, err
	}
	if !c.asset.MaxTxAmount().IsZero() && c.asset.Owner() != c.addr {
		return nil, ErrAssetNotControlled
	}

	if err := c.asset.TransferFrom(c.addr, creator, c.addr, purchaseAmount); err != nil {
		return nil, fmt.Errorf("failed to collect purchase: %w", err)
	}

	c.launchSeq++
	tokenAddr := types.Address(fmt.Sprintf("artist:%d:%s", c.launchSeq, meta.Ticker))
	ledger, err := token.NewLedger(meta.Name, meta.Ticker, c.addr, c.addr, c.params.InitialSupply, c.params.ArtistMaxTxBps)
	if err != nil {
		return nil, err
	}
	// The bonding principal and the pair move pool-sized amounts; both
	// bypass the per-trader cap.
	if err := ledger.ExcludeFromMaxTx(c.addr, c.addr); err != nil {
		return nil, err
	}

	pair, err := c.reg.CreatePair(c.addr, c.roles, tokenAddr, c.params.AssetToken, c.pending)
	if err != nil {
		return nil, err
	}
	if err := ledger.ExcludeFromMaxTx(c.addr, pair.Addr); err != nil {
		return nil, err
	}
	// The launch guard established ownership whenever a cap is active, so
	// the pair can always be excluded before it starts holding reserves.
	if !c.asset.MaxTxAmount().IsZero() {
		if err := c.asset.ExcludeFromMaxTx(c.addr, pair.Addr); err != nil {
			return nil, err
		}
	}
	c.artists[tokenAddr] = ledger

	if err := c.asset.Transfer(c.addr, c.reg.Tax().Vault, fee); err != nil {
		return nil, fmt.Errorf("failed to route launch fee: %w", err)
	}
	net := new(uint256.Int).Sub(purchaseAmount, fee)
	if err := c.router.AddLiquidity(c.roles, c.addr, c.addr, pair, ledger, c.asset, ledger.TotalSupply(), net); err != nil {
		return nil, fmt.Errorf("failed to seed pair: %w", err)
	}

	info := &TokenInfo{
		Token:        tokenAddr,
		Pair:         pair.Addr,
		Creator:      creator,
		Meta:         meta.clone(),
		CurrentPrice: new(uint256.Int),
		CurrentMcap:  new(uint256.Int),
		TokenIndex:   pair.Index,
	}
	c.refreshMetrics(info, pair, ledger)
	c.infos[tokenAddr] = info
	c.order = append(c.order, tokenAddr)

	c.pending.Append(events.LaunchedEvent{
		BaseEvent:      events.Now(events.TypeLaunched),
		Token:          tokenAddr,
		Pair:           pair.Addr,
		TokenIndex:     pair.Index,
		Creator:        creator,
		Name:           meta.Name,
		Ticker:         meta.Ticker,
		Hometown:       meta.Hometown,
		PrimaryGenre:   meta.PrimaryGenre,
		SecondaryGenre: meta.SecondaryGenre,
		SpotifyURL:     meta.SpotifyURL,
		AppleMusicURL:  meta.AppleMusicURL,
		InstagramURL:   meta.InstagramURL,
		TiktokURL:      meta.TiktokURL,
	})
	c.logger.Info("Artist token launched",
		zap.String("token", tokenAddr.String()),
		zap.String("pair", pair.Addr.String()),
		zap.Uint64("token_index", pair.Index),
		zap.String("creator", creator.String()),
		zap.String("purchase", types.FormatUnits(purchaseAmount)),
		zap.String("fee", types.FormatUnits(fee)))
	return info.Clone(), nil
}

// Buy trades amountIn of the asset token for the artist token on behalf of
// trader. Pass a zero minAmountOut to skip the slippage guard. Triggers
// graduation within the same call when the post-trade reserve crosses the
// threshold.
func (c *Controller) Buy(trader, tokenAddr types.Address, amountIn, minAmountOut *uint256.Int) (*router.Quote, error) {
	return c.trade(trader, tokenAddr, c.params.AssetToken, events.TradeBuy, amountIn, minAmountOut)
}

// Sell trades amountIn of the artist token back into the asset token on
// behalf of trader.
func (c *Controller) Sell(trader, tokenAddr types.Address, amountIn, minAmountOut *uint256.Int) (*router.Quote, error) {
	return c.trade(trader, tokenAddr, tokenAddr, events.TradeSell, amountIn, minAmountOut)
}

func (c *Controller) trade(trader, tokenAddr, tokenIn types.Address, side events.TradeSide, amountIn, minAmountOut *uint256.Int) (*router.Quote, error) {
	info, ok := c.infos[tokenAddr]
	if !ok || info.TradingOnUniswap {
		return nil, ErrTokenGraduated
	}
	pair := c.reg.GetPair(tokenAddr, c.params.AssetToken)
	if pair == nil {
		return nil, factory.ErrPairNotFound
	}
	ledger := c.artists[tokenAddr]

	quote, err := c.router.Swap(c.roles, c.addr, trader, pair, c.reg.Tax(), ledger, c.asset, tokenIn, amountIn, minAmountOut)
	if err != nil {
		return nil, err
	}
	c.refreshMetrics(info, pair, ledger)

	c.pending.Append(events.TradeExecutedEvent{
		BaseEvent: events.Now(events.TypeTradeExecuted),
		Token:     tokenAddr,
		Pair:      pair.Addr,
		Trader:    trader,
		Side:      side,
		AmountIn:  new(uint256.Int).Set(amountIn),
		AmountOut: new(uint256.Int).Set(quote.AmountOut),
		Tax:       new(uint256.Int).Set(quote.Tax),
		Price:     new(uint256.Int).Set(info.CurrentPrice),
	})

	if err := c.maybeGraduate(info, pair, ledger); err != nil {
		return nil, err
	}
	return quote, nil
}

// maybeGraduate runs the one-time graduation transition when the pair's
// artist-token reserve has been drained to the threshold. The comparison
// is <=, so landing exactly on the threshold graduates.
func (c *Controller) maybeGraduate(info *TokenInfo, pair *factory.Pair, ledger *token.Ledger) error {
	if info.TradingOnUniswap {
		return nil
	}
	if pair.ReserveArtist.Gt(c.params.GradThreshold) {
		return nil
	}

	info.TradingOnUniswap = true

	amountArtist := new(uint256.Int).Set(pair.ReserveArtist)
	amountAsset := new(uint256.Int).Set(pair.ReserveAsset)
	res, err := c.adapter.ExecuteGraduation(c.addr, c.roles, info.Token, c.params.AssetToken, amountArtist, amountAsset, c.deploy)
	if err != nil {
		return fmt.Errorf("graduation failed: %w", err)
	}
	if _, _, err := c.router.WithdrawLiquidity(c.roles, c.addr, pair, ledger, c.asset, res.Pool); err != nil {
		return fmt.Errorf("failed to migrate reserves: %w", err)
	}

	info.ArtistToken = res.WrappedToken
	info.AscensionProgress = types.BpsDenominator

	c.pending.Append(events.GraduatedEvent{
		BaseEvent:    events.Now(events.TypeGraduated),
		Token:        info.Token,
		Pair:         pair.Addr,
		TokenIndex:   info.TokenIndex,
		WrappedToken: res.WrappedToken,
		Pool:         res.Pool,
	})
	c.logger.Info("Token graduated to external AMM",
		zap.String("token", info.Token.String()),
		zap.String("pool", res.Pool.String()),
		zap.String("migrated_artist", types.FormatUnits(amountArtist)),
		zap.String("migrated_asset", types.FormatUnits(amountAsset)))
	return nil
}

// refreshMetrics recomputes price, market cap and ascension progress from
// the pair's reserves.
func (c *Controller) refreshMetrics(info *TokenInfo, pair *factory.Pair, ledger *token.Ledger) {
	if pair.ReserveArtist.IsZero() {
		return
	}
	price := new(uint256.Int).Mul(pair.ReserveAsset, types.OneUnit())
	price.Div(price, pair.ReserveArtist)
	info.CurrentPrice = price

	mcap := new(uint256.Int).Mul(price, ledger.TotalSupply())
	mcap.Div(mcap, types.OneUnit())
	info.CurrentMcap = mcap

	info.AscensionProgress = c.progressBps(pair.ReserveArtist)
}

// progressBps maps the drained reserve onto 0..10000.
func (c *Controller) progressBps(reserveArtist *uint256.Int) uint64 {
	start := c.params.InitialSupply
	target := c.params.GradThreshold
	if !start.Gt(target) {
		return types.BpsDenominator
	}
	if reserveArtist.Gt(start) {
		return 0
	}
	drained := new(uint256.Int).Sub(start, reserveArtist)
	span := new(uint256.Int).Sub(start, target)
	progress := drained.Mul(drained, uint256.NewInt(types.BpsDenominator))
	progress.Div(progress, span)
	if progress.GtUint64(types.BpsDenominator) {
		return types.BpsDenominator
	}
	return progress.Uint64()
}

// QuoteBuy prices a prospective buy without mutating anything.
func (c *Controller) QuoteBuy(tokenAddr types.Address, amountIn *uint256.Int) (*router.Quote, error) {
	return c.quote(tokenAddr, amountIn, true)
}

// QuoteSell prices a prospective sell without mutating anything.
func (c *Controller) QuoteSell(tokenAddr types.Address, amountIn *uint256.Int) (*router.Quote, error) {
	return c.quote(tokenAddr, amountIn, false)
}

func (c *Controller) quote(tokenAddr types.Address, amountIn *uint256.Int, buy bool) (*router.Quote, error) {
	info, ok := c.infos[tokenAddr]
	if !ok || info.TradingOnUniswap {
		return nil, ErrTokenGraduated
	}
	pair := c.reg.GetPair(tokenAddr, c.params.AssetToken)
	if pair == nil {
		return nil, factory.ErrPairNotFound
	}
	if buy {
		return router.GetAmountOut(amountIn, pair.ReserveAsset, pair.ReserveArtist, c.reg.Tax().BuyBps)
	}
	return router.GetAmountOut(amountIn, pair.ReserveArtist, pair.ReserveAsset, c.reg.Tax().SellBps)
}

// SetDeployParams updates the post-graduation periphery configuration.
// Caller must hold ADMIN_ROLE.
func (c *Controller) SetDeployParams(caller types.Address, deploy amm.DeployParams) error {
	if err := c.roles.Require(access.RoleAdmin, caller); err != nil {
		return err
	}
	if deploy.DaoThreshold != nil {
		deploy.DaoThreshold = new(uint256.Int).Set(deploy.DaoThreshold)
	}
	c.deploy = deploy
	return nil
}

// DeployParams returns the current periphery configuration.
func (c *Controller) DeployParams() amm.DeployParams { return c.deploy }

// Clone deep-copies the whole mutable world for the engine. The router and
// logger are stateless and shared; the AMM adapter clones when it can.
func (c *Controller) Clone() *Controller {
	cp := &Controller{
		addr:      c.addr,
		params:    c.params,
		deploy:    c.deploy,
		roles:     c.roles.Clone(),
		asset:     c.asset.Clone(),
		artists:   make(map[types.Address]*token.Ledger, len(c.artists)),
		reg:       c.reg.Clone(),
		router:    c.router,
		adapter:   c.adapter.Clone(),
		infos:     make(map[types.Address]*TokenInfo, len(c.infos)),
		order:     append([]types.Address(nil), c.order...),
		launchSeq: c.launchSeq,
		pending:   c.pending.Clone(),
		logger:    c.logger,
	}
	for addr, l := range c.artists {
		cp.artists[addr] = l.Clone()
	}
	for addr, info := range c.infos {
		cp.infos[addr] = info.Clone()
	}
	return cp
}
