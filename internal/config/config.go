// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/limelight-labs/limelight-core/internal/types"
)

type Config struct {
	AdminAddr   string `mapstructure:"admin_addr"`
	BondingAddr string `mapstructure:"bonding_addr"`
	Treasury    string `mapstructure:"treasury"`
	TaxVault    string `mapstructure:"tax_vault"`

	AssetName     string `mapstructure:"asset_name"`
	AssetSymbol   string `mapstructure:"asset_symbol"`
	AssetSupply   uint64 `mapstructure:"asset_supply"`
	AssetMaxTxBps uint64 `mapstructure:"asset_max_tx_bps"`

	BuyTaxBps  uint64 `mapstructure:"buy_tax_bps"`
	SellTaxBps uint64 `mapstructure:"sell_tax_bps"`

	InitialSupply  uint64 `mapstructure:"initial_supply"`
	GradThreshold  uint64 `mapstructure:"grad_threshold"`
	ArtistMaxTxBps uint64 `mapstructure:"artist_max_tx_bps"`

	EventBufferSize int    `mapstructure:"event_buffer_size"`
	DebugLogging    bool   `mapstructure:"debug_logging"`
	LogFile         string `mapstructure:"log_file"`
	PostgresURL     string `mapstructure:"postgres_url"`

	Simulation    bool   `mapstructure:"simulation"`
	SimPurchase   uint64 `mapstructure:"sim_purchase"`
	SimBuyChunk   uint64 `mapstructure:"sim_buy_chunk"`
	SimIntervalMs int    `mapstructure:"sim_interval_ms"`
}

const (
	DefaultAssetName       = "Limelight"
	DefaultAssetSymbol     = "LMLT"
	DefaultAssetSupply     = 1_000_000_000
	DefaultInitialSupply   = 1_000_000_000
	DefaultGradThreshold   = 3_000_000
	DefaultBuyTaxBps       = 2000
	DefaultSellTaxBps      = 2000
	DefaultEventBufferSize = 256
	DefaultSimPurchase     = 100
	DefaultSimBuyChunk     = 10_000
	DefaultSimIntervalMs   = 2000
)

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	defaults := map[string]interface{}{
		"admin_addr":        "limelight:admin",
		"bonding_addr":      "limelight:bonding",
		"treasury":          "limelight:treasury",
		"tax_vault":         "limelight:vault",
		"asset_name":        DefaultAssetName,
		"asset_symbol":      DefaultAssetSymbol,
		"asset_supply":      DefaultAssetSupply,
		"initial_supply":    DefaultInitialSupply,
		"grad_threshold":    DefaultGradThreshold,
		"buy_tax_bps":       DefaultBuyTaxBps,
		"sell_tax_bps":      DefaultSellTaxBps,
		"event_buffer_size": DefaultEventBufferSize,
		"sim_purchase":      DefaultSimPurchase,
		"sim_buy_chunk":     DefaultSimBuyChunk,
		"sim_interval_ms":   DefaultSimIntervalMs,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := loadEnvironmentVariables(v, &cfg); err != nil {
		return nil, err
	}

	return &cfg, validateConfig(&cfg)
}

func validateConfig(cfg *Config) error {
	for name, addr := range map[string]string{
		"admin_addr":   cfg.AdminAddr,
		"bonding_addr": cfg.BondingAddr,
		"treasury":     cfg.Treasury,
		"tax_vault":    cfg.TaxVault,
	} {
		if strings.TrimSpace(addr) == "" {
			return fmt.Errorf("missing %s in configuration", name)
		}
	}
	if cfg.AssetSymbol == "" {
		return errors.New("missing asset_symbol in configuration")
	}
	return validateNumericParams(cfg)
}

func validateNumericParams(cfg *Config) error {
	if cfg.AssetSupply == 0 {
		return errors.New("invalid asset_supply")
	}
	if cfg.InitialSupply == 0 {
		return errors.New("invalid initial_supply")
	}
	if cfg.GradThreshold == 0 || cfg.GradThreshold >= cfg.InitialSupply {
		return errors.New("grad_threshold must be positive and below initial_supply")
	}
	if cfg.BuyTaxBps >= types.BpsDenominator || cfg.SellTaxBps >= types.BpsDenominator {
		return errors.New("tax bps must be below 10000")
	}
	if cfg.AssetMaxTxBps > types.BpsDenominator || cfg.ArtistMaxTxBps > types.BpsDenominator {
		return errors.New("max tx bps must not exceed 10000")
	}
	if cfg.EventBufferSize <= 0 {
		return errors.New("invalid event_buffer_size")
	}
	if cfg.Simulation && (cfg.SimPurchase == 0 || cfg.SimBuyChunk == 0) {
		return errors.New("simulation requires nonzero sim_purchase and sim_buy_chunk")
	}
	return nil
}

func loadEnvironmentVariables(v *viper.Viper, cfg *Config) error {
	v.AutomaticEnv()
	v.SetEnvPrefix("LIMELIGHT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if envURL := v.GetString("POSTGRES_URL"); envURL != "" {
		cfg.PostgresURL = envURL
	}
	if envAdmin := v.GetString("ADMIN_ADDR"); envAdmin != "" {
		cfg.AdminAddr = envAdmin
	}
	return nil
}
