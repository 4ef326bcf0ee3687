// internal/router/router.go
package router

import (
	"errors"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/limelight-labs/limelight-core/internal/access"
	"github.com/limelight-labs/limelight-core/internal/factory"
	"github.com/limelight-labs/limelight-core/internal/token"
	"github.com/limelight-labs/limelight-core/internal/types"
)

var (
	// ErrSlippageExceeded is returned when the computed output falls below
	// the caller's minimum.
	ErrSlippageExceeded = errors.New("slippage exceeded")

	// ErrInsufficientLiquidity is returned when a swap is attempted
	// against an unfunded pair.
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
)

// Router executes swaps against a pair's reserves using constant-product
// pricing with a basis-point tax skimmed from the input side. The router
// itself is stateless; all mutable state lives in the pair and ledgers.
type Router struct {
	logger *zap.Logger
}

// New creates a router.
func New(logger *zap.Logger) *Router {
	return &Router{logger: logger.Named("router")}
}

// Quote is the result of a swap or a read-only quote.
type Quote struct {
	AmountOut *uint256.Int
	Tax       *uint256.Int
	NetIn     *uint256.Int
}

// GetAmountOut computes the constant-product output for amountIn after the
// tax skim, without mutating anything. The division rounds against the
// trader so the product of reserves never decreases.
func GetAmountOut(amountIn, reserveIn, reserveOut *uint256.Int, taxBps uint64) (*Quote, error) {
	if reserveIn.IsZero() || reserveOut.IsZero() {
		return nil, ErrInsufficientLiquidity
	}
	tax := types.ApplyBps(amountIn, taxBps)
	netIn := new(uint256.Int).Sub(amountIn, tax)

	// amountOut = reserveOut - ceil(reserveIn * reserveOut / (reserveIn + netIn))
	newReserveIn := new(uint256.Int).Add(reserveIn, netIn)
	k := new(uint256.Int).Mul(reserveIn, reserveOut)
	quot, rem := new(uint256.Int).DivMod(k, newReserveIn, new(uint256.Int))
	if !rem.IsZero() {
		quot.AddUint64(quot, 1)
	}
	amountOut := new(uint256.Int)
	if quot.Lt(reserveOut) {
		amountOut.Sub(reserveOut, quot)
	}
	return &Quote{AmountOut: amountOut, Tax: tax, NetIn: netIn}, nil
}

// Swap trades amountIn of tokenIn against the pair on behalf of trader.
// Caller must hold EXECUTOR_ROLE and an allowance from the trader covering
// amountIn. Token transfers and reserve updates happen together; the
// engine's commit discipline makes them atomic.
func (rt *Router) Swap(
	roles *access.Registry,
	caller types.Address,
	trader types.Address,
	pair *factory.Pair,
	tax factory.TaxParams,
	artistLedger, assetLedger *token.Ledger,
	tokenIn types.Address,
	amountIn, minAmountOut *uint256.Int,
) (*Quote, error) {
	if err := roles.Require(access.RoleExecutor, caller); err != nil {
		return nil, err
	}

	var (
		inLedger, outLedger   *token.Ledger
		reserveIn, reserveOut *uint256.Int
		taxBps                uint64
	)
	switch tokenIn {
	case pair.Asset:
		inLedger, outLedger = assetLedger, artistLedger
		reserveIn, reserveOut = pair.ReserveAsset, pair.ReserveArtist
		taxBps = tax.BuyBps
	case pair.Artist:
		inLedger, outLedger = artistLedger, assetLedger
		reserveIn, reserveOut = pair.ReserveArtist, pair.ReserveAsset
		taxBps = tax.SellBps
	default:
		return nil, factory.ErrPairNotFound
	}

	quote, err := GetAmountOut(amountIn, reserveIn, reserveOut, taxBps)
	if err != nil {
		return nil, err
	}
	if minAmountOut != nil && quote.AmountOut.Lt(minAmountOut) {
		rt.logger.Debug("Swap rejected on slippage",
			zap.String("pair", pair.Addr.String()),
			zap.String("amount_out", quote.AmountOut.Dec()),
			zap.String("min_amount_out", minAmountOut.Dec()))
		return nil, ErrSlippageExceeded
	}

	// Settlement: net input to the pair, tax to the vault, output to the
	// trader. Allowance is consumed for the full input amount.
	if err := inLedger.TransferFrom(caller, trader, pair.Addr, quote.NetIn); err != nil {
		return nil, err
	}
	if !quote.Tax.IsZero() {
		if err := inLedger.TransferFrom(caller, trader, tax.Vault, quote.Tax); err != nil {
			return nil, err
		}
	}
	if err := outLedger.Transfer(pair.Addr, trader, quote.AmountOut); err != nil {
		return nil, err
	}

	reserveIn.Add(reserveIn, quote.NetIn)
	reserveOut.Sub(reserveOut, quote.AmountOut)

	rt.logger.Debug("Swap executed",
		zap.String("pair", pair.Addr.String()),
		zap.String("trader", trader.String()),
		zap.String("token_in", tokenIn.String()),
		zap.String("amount_in", amountIn.Dec()),
		zap.String("amount_out", quote.AmountOut.Dec()),
		zap.String("tax", quote.Tax.Dec()))
	return quote, nil
}

// AddLiquidity seeds a pair with artist and asset amounts pulled from the
// funder's balances. Caller must hold EXECUTOR_ROLE. Used once per pair,
// at launch.
func (rt *Router) AddLiquidity(
	roles *access.Registry,
	caller types.Address,
	funder types.Address,
	pair *factory.Pair,
	artistLedger, assetLedger *token.Ledger,
	amountArtist, amountAsset *uint256.Int,
) error {
	if err := roles.Require(access.RoleExecutor, caller); err != nil {
		return err
	}
	if err := artistLedger.Transfer(funder, pair.Addr, amountArtist); err != nil {
		return err
	}
	if err := assetLedger.Transfer(funder, pair.Addr, amountAsset); err != nil {
		return err
	}
	pair.ReserveArtist.Add(pair.ReserveArtist, amountArtist)
	pair.ReserveAsset.Add(pair.ReserveAsset, amountAsset)
	return nil
}

// WithdrawLiquidity drains the pair's reserves to the destination address.
// Caller must hold EXECUTOR_ROLE. Used once per pair, at graduation.
func (rt *Router) WithdrawLiquidity(
	roles *access.Registry,
	caller types.Address,
	pair *factory.Pair,
	artistLedger, assetLedger *token.Ledger,
	destination types.Address,
) (artistOut, assetOut *uint256.Int, err error) {
	if err := roles.Require(access.RoleExecutor, caller); err != nil {
		return nil, nil, err
	}
	artistOut = new(uint256.Int).Set(pair.ReserveArtist)
	assetOut = new(uint256.Int).Set(pair.ReserveAsset)
	if err := artistLedger.Transfer(pair.Addr, destination, artistOut); err != nil {
		return nil, nil, err
	}
	if err := assetLedger.Transfer(pair.Addr, destination, assetOut); err != nil {
		return nil, nil, err
	}
	pair.ReserveArtist.Clear()
	pair.ReserveAsset.Clear()
	return artistOut, assetOut, nil
}
