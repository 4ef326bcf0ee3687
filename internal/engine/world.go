// internal/engine/world.go
package engine

import (
	"fmt"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/limelight-labs/limelight-core/internal/access"
	"github.com/limelight-labs/limelight-core/internal/amm"
	"github.com/limelight-labs/limelight-core/internal/bonding"
	"github.com/limelight-labs/limelight-core/internal/factory"
	"github.com/limelight-labs/limelight-core/internal/router"
	"github.com/limelight-labs/limelight-core/internal/token"
	"github.com/limelight-labs/limelight-core/internal/types"
)

// WorldConfig is everything needed to stand up a bonding world: the
// principals, the asset token, the tax settings and the curve parameters.
// All of it is deployment-time configuration.
type WorldConfig struct {
	AdminAddr   types.Address
	BondingAddr types.Address
	Treasury    types.Address
	TaxVault    types.Address

	AssetName     string
	AssetSymbol   string
	AssetSupply   *uint256.Int
	AssetMaxTxBps uint64

	BuyTaxBps  uint64
	SellTaxBps uint64

	InitialSupply  *uint256.Int
	GradThreshold  *uint256.Int
	ArtistMaxTxBps uint64
}

// NewWorld wires roles, ledgers, factory, router and the AMM adapter into
// a Controller, granting the bonding principal the roles it operates
// under (CREATOR, EXECUTOR, BONDING, MINTER). The asset ledger is owned
// by the bonding principal so the controller can manage max-tx exclusions
// for pairs it creates; Launch rejects any other wiring when a cap is
// active.
func NewWorld(cfg WorldConfig, target amm.Target, logger *zap.Logger) (*bonding.Controller, error) {
	roles := access.NewRegistry(cfg.AdminAddr)
	for _, role := range []access.Role{access.RoleCreator, access.RoleExecutor, access.RoleBonding, access.RoleMinter} {
		if err := roles.Grant(cfg.AdminAddr, role, cfg.BondingAddr); err != nil {
			return nil, fmt.Errorf("failed to grant %s: %w", role, err)
		}
	}

	asset, err := token.NewLedger(cfg.AssetName, cfg.AssetSymbol, cfg.BondingAddr, cfg.Treasury, cfg.AssetSupply, cfg.AssetMaxTxBps)
	if err != nil {
		return nil, fmt.Errorf("failed to create asset ledger: %w", err)
	}
	// The treasury distributes pool-sized amounts at wiring time.
	if err := asset.ExcludeFromMaxTx(cfg.BondingAddr, cfg.Treasury); err != nil {
		return nil, err
	}

	reg := factory.NewRegistry(factory.TaxParams{
		Vault:   cfg.TaxVault,
		BuyBps:  cfg.BuyTaxBps,
		SellBps: cfg.SellTaxBps,
	})

	ctrl := bonding.NewController(
		cfg.BondingAddr,
		bonding.Params{
			AssetToken:     types.Address(cfg.AssetSymbol),
			InitialSupply:  cfg.InitialSupply,
			GradThreshold:  cfg.GradThreshold,
			ArtistMaxTxBps: cfg.ArtistMaxTxBps,
		},
		roles,
		asset,
		reg,
		router.New(logger),
		amm.NewAdapter(target, logger),
		logger,
	)
	return ctrl, nil
}
