// internal/factory/factory.go
package factory

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/limelight-labs/limelight-core/internal/access"
	"github.com/limelight-labs/limelight-core/internal/events"
	"github.com/limelight-labs/limelight-core/internal/types"
)

var (
	// ErrPairExists is returned when a pair for the token combination
	// already exists, in either ordering.
	ErrPairExists = errors.New("pair already exists")

	// ErrPairNotFound is returned by callers that require an existing pair.
	ErrPairNotFound = errors.New("pair not found")
)

// TaxParams are the swap tax settings applied to all pairs of a registry.
type TaxParams struct {
	Vault   types.Address
	BuyBps  uint64
	SellBps uint64
}

// Pair is a two-asset reserve pool backing swaps between an artist token
// and the asset token. Reserves are mutated only through the router.
type Pair struct {
	Addr   types.Address
	Artist types.Address
	Asset  types.Address
	Index  uint64

	ReserveArtist *uint256.Int
	ReserveAsset  *uint256.Int
}

// K returns the current constant-product invariant.
func (p *Pair) K() *uint256.Int {
	return new(uint256.Int).Mul(p.ReserveArtist, p.ReserveAsset)
}

// Clone returns a deep copy of the pair.
func (p *Pair) Clone() *Pair {
	return &Pair{
		Addr:          p.Addr,
		Artist:        p.Artist,
		Asset:         p.Asset,
		Index:         p.Index,
		ReserveArtist: new(uint256.Int).Set(p.ReserveArtist),
		ReserveAsset:  new(uint256.Int).Set(p.ReserveAsset),
	}
}

type pairKey struct {
	a, b types.Address
}

// Registry creates and tracks one trading pair per artist token. Pair
// indices are strictly increasing from 1 and never reused.
type Registry struct {
	router    types.Address
	tax       TaxParams
	pairs     map[pairKey]*Pair
	ordered   []*Pair
	lastIndex uint64
}

// NewRegistry creates an empty pair registry with the given tax settings.
func NewRegistry(tax TaxParams) *Registry {
	return &Registry{
		tax:   tax,
		pairs: make(map[pairKey]*Pair),
	}
}

// CreatePair allocates a new pair for (artist, asset). Caller must hold
// CREATOR_ROLE. The pair is stored under both orderings of the key and a
// PairCreated event is appended to the sink.
func (r *Registry) CreatePair(caller types.Address, roles *access.Registry, artist, asset types.Address, sink events.Sink) (*Pair, error) {
	if err := roles.Require(access.RoleCreator, caller); err != nil {
		return nil, err
	}
	if artist.IsZero() || asset.IsZero() {
		return nil, access.ErrInvalidAddress
	}
	if r.GetPair(artist, asset) != nil {
		return nil, ErrPairExists
	}

	r.lastIndex++
	pair := &Pair{
		Addr:          types.Address(fmt.Sprintf("pair:%d:%s", r.lastIndex, artist)),
		Artist:        artist,
		Asset:         asset,
		Index:         r.lastIndex,
		ReserveArtist: new(uint256.Int),
		ReserveAsset:  new(uint256.Int),
	}
	r.pairs[pairKey{artist, asset}] = pair
	r.pairs[pairKey{asset, artist}] = pair
	r.ordered = append(r.ordered, pair)

	sink.Append(events.PairCreatedEvent{
		BaseEvent:  events.Now(events.TypePairCreated),
		TokenA:     artist,
		TokenB:     asset,
		Pair:       pair.Addr,
		TokenIndex: pair.Index,
	})
	return pair, nil
}

// GetPair returns the pair for the token combination, nil when absent.
func (r *Registry) GetPair(a, b types.Address) *Pair {
	return r.pairs[pairKey{a, b}]
}

// Pairs returns all pairs in creation order.
func (r *Registry) Pairs() []*Pair {
	out := make([]*Pair, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// Router returns the configured router address.
func (r *Registry) Router() types.Address {
	return r.router
}

// Tax returns the current tax settings.
func (r *Registry) Tax() TaxParams {
	return r.tax
}

// SetRouter updates the router address. Caller must hold ADMIN_ROLE.
func (r *Registry) SetRouter(caller types.Address, roles *access.Registry, router types.Address) error {
	if err := roles.Require(access.RoleAdmin, caller); err != nil {
		return err
	}
	if router.IsZero() {
		return access.ErrInvalidAddress
	}
	r.router = router
	return nil
}

// SetTaxParams updates the tax settings for all subsequent swaps.
// Caller must hold ADMIN_ROLE.
func (r *Registry) SetTaxParams(caller types.Address, roles *access.Registry, vault types.Address, buyBps, sellBps uint64) error {
	if err := roles.Require(access.RoleAdmin, caller); err != nil {
		return err
	}
	if vault.IsZero() {
		return access.ErrInvalidAddress
	}
	r.tax = TaxParams{Vault: vault, BuyBps: buyBps, SellBps: sellBps}
	return nil
}

// Clone returns a deep copy preserving the shared pair records under both
// key orderings.
func (r *Registry) Clone() *Registry {
	cp := &Registry{
		router:    r.router,
		tax:       r.tax,
		pairs:     make(map[pairKey]*Pair, len(r.pairs)),
		ordered:   make([]*Pair, 0, len(r.ordered)),
		lastIndex: r.lastIndex,
	}
	for _, p := range r.ordered {
		pc := p.Clone()
		cp.ordered = append(cp.ordered, pc)
		cp.pairs[pairKey{pc.Artist, pc.Asset}] = pc
		cp.pairs[pairKey{pc.Asset, pc.Artist}] = pc
	}
	return cp
}
