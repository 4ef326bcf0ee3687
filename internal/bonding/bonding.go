// internal/bonding/bonding.go
package bonding

import (
	"errors"

	"github.com/holiman/uint256"

	"github.com/limelight-labs/limelight-core/internal/types"
)

var (
	// ErrInvalidPurchaseAmount is returned when a launch purchase does not
	// exceed the flat launch fee.
	ErrInvalidPurchaseAmount = errors.New("invalid purchase amount")

	// ErrTokenGraduated is returned when internal trading is attempted on
	// a token that is unknown or has already graduated.
	ErrTokenGraduated = errors.New("token graduated")

	// ErrAssetNotControlled is returned when the asset ledger enforces a
	// max-tx cap the bonding principal cannot manage exclusions for.
	// Graduation moves pool-sized asset amounts out of the pair, so an
	// uncontrolled cap would wedge the handoff permanently.
	ErrAssetNotControlled = errors.New("asset ledger max-tx cap not controlled by bonding principal")
)

// Params is the curve configuration fixed at deployment time.
type Params struct {
	// AssetToken is the quote currency every pair trades against.
	AssetToken types.Address

	// InitialSupply is minted in full to the bonding principal for every
	// launched artist token.
	InitialSupply *uint256.Int

	// GradThreshold is compared against the pair's artist-token reserve:
	// the side drained as artist tokens are bought up. Trading hands off
	// to the external AMM once the reserve shrinks to the threshold.
	GradThreshold *uint256.Int

	// ArtistMaxTxBps is the max-tx cap parameter of every artist ledger.
	ArtistMaxTxBps uint64
}

// TokenMeta is the launch metadata. Opaque to the pricing logic; carried
// through to the Launched event and the read layer.
type TokenMeta struct {
	Name           string
	Ticker         string
	Cores          []string
	Description    string
	Image          string
	Hometown       string
	PrimaryGenre   string
	SecondaryGenre string
	SpotifyURL     string
	AppleMusicURL  string
	InstagramURL   string
	TiktokURL      string
}

func (m TokenMeta) clone() TokenMeta {
	cp := m
	cp.Cores = append([]string(nil), m.Cores...)
	return cp
}

// TokenInfo is the per-token state-machine record.
type TokenInfo struct {
	Token   types.Address
	Pair    types.Address
	Creator types.Address

	// ArtistToken is the post-graduation wrapped token reference, zero
	// until graduation.
	ArtistToken types.Address

	// TradingOnUniswap flips false -> true exactly once and never back.
	TradingOnUniswap bool

	Meta TokenMeta

	CurrentPrice *uint256.Int
	CurrentMcap  *uint256.Int

	// AscensionProgress is graduation progress in basis points, 0..10000.
	AscensionProgress uint64

	TokenIndex uint64
}

// Clone returns a deep copy of the record.
func (i *TokenInfo) Clone() *TokenInfo {
	cp := *i
	cp.Meta = i.Meta.clone()
	cp.CurrentPrice = new(uint256.Int).Set(i.CurrentPrice)
	cp.CurrentMcap = new(uint256.Int).Set(i.CurrentMcap)
	return &cp
}
