// internal/amm/amm.go
package amm

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/limelight-labs/limelight-core/internal/access"
	"github.com/limelight-labs/limelight-core/internal/types"
)

var (
	ErrPoolExists   = errors.New("pool already exists")
	ErrPoolNotFound = errors.New("pool not found")
)

// Target is the external AMM a graduated token migrates to. The bonding
// core treats it as a black box: create a pool, fund it, done.
type Target interface {
	CreatePool(tokenA, tokenB types.Address) (types.Address, error)
	AddLiquidity(pool types.Address, amountA, amountB *uint256.Int) error
}

// Cloneable is implemented by targets that participate in the engine's
// copy-on-write discipline. External targets that cannot be cloned are
// shared across snapshots.
type Cloneable interface {
	Clone() Target
}

// DeployParams is the post-graduation periphery configuration consumed
// when the wrapped token is deployed.
type DeployParams struct {
	TBASalt           string
	TBAImplementation types.Address
	DaoVotingPeriod   uint64
	DaoThreshold      *uint256.Int
}

// WrappedAddress derives the wrapped-token address for a graduating artist
// token. A non-empty TBA salt is folded into the derivation so distinct
// deployments of the same token land on distinct wrapped addresses.
func (p DeployParams) WrappedAddress(artistToken types.Address) types.Address {
	if p.TBASalt == "" {
		return types.Address("wrapped:" + artistToken.String())
	}
	return types.Address("wrapped:" + p.TBASalt + ":" + artistToken.String())
}

// GraduationResult reports the external venue a token graduated to.
type GraduationResult struct {
	WrappedToken types.Address
	Pool         types.Address
}

// Adapter wraps a Target with the BONDING_ROLE gate and the wrapped-token
// derivation performed at graduation time.
type Adapter struct {
	target Target
	logger *zap.Logger
}

// NewAdapter creates an adapter over the given target.
func NewAdapter(target Target, logger *zap.Logger) *Adapter {
	return &Adapter{target: target, logger: logger.Named("amm")}
}

// Target returns the wrapped AMM.
func (a *Adapter) Target() Target {
	return a.target
}

// ExecuteGraduation creates and funds the external pool for the token and
// returns the wrapped token reference. Caller must hold BONDING_ROLE.
func (a *Adapter) ExecuteGraduation(
	caller types.Address,
	roles *access.Registry,
	artistToken, assetToken types.Address,
	amountArtist, amountAsset *uint256.Int,
	deploy DeployParams,
) (*GraduationResult, error) {
	if err := roles.Require(access.RoleBonding, caller); err != nil {
		return nil, err
	}

	pool, err := a.target.CreatePool(artistToken, assetToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create external pool: %w", err)
	}
	if err := a.target.AddLiquidity(pool, amountArtist, amountAsset); err != nil {
		return nil, fmt.Errorf("failed to fund external pool: %w", err)
	}

	wrapped := deploy.WrappedAddress(artistToken)
	a.logger.Info("Liquidity migrated to external AMM",
		zap.String("token", artistToken.String()),
		zap.String("pool", pool.String()),
		zap.String("wrapped_token", wrapped.String()),
		zap.String("tba_implementation", deploy.TBAImplementation.String()),
		zap.Uint64("dao_voting_period", deploy.DaoVotingPeriod),
		zap.String("amount_artist", amountArtist.Dec()),
		zap.String("amount_asset", amountAsset.Dec()))

	return &GraduationResult{WrappedToken: wrapped, Pool: pool}, nil
}

// Clone deep-copies the adapter when its target supports cloning.
func (a *Adapter) Clone() *Adapter {
	if c, ok := a.target.(Cloneable); ok {
		return &Adapter{target: c.Clone(), logger: a.logger}
	}
	return &Adapter{target: a.target, logger: a.logger}
}

// PoolAddress derives the deterministic in-memory pool address.
func PoolAddress(index uint64, tokenA types.Address) types.Address {
	return types.Address(fmt.Sprintf("amm-pool:%d:%s", index, tokenA))
}

type poolKey struct {
	a, b types.Address
}

// Pool is one funded pool in the in-memory AMM.
type Pool struct {
	TokenA, TokenB     types.Address
	ReserveA, ReserveB *uint256.Int
}

// InMemory is a Uniswap-shaped stand-in used by the engine and tests.
type InMemory struct {
	pools    map[types.Address]*Pool
	byTokens map[poolKey]types.Address
	lastID   uint64
}

// NewInMemory creates an empty in-memory AMM.
func NewInMemory() *InMemory {
	return &InMemory{
		pools:    make(map[types.Address]*Pool),
		byTokens: make(map[poolKey]types.Address),
	}
}

// CreatePool allocates a pool for the token combination.
func (m *InMemory) CreatePool(tokenA, tokenB types.Address) (types.Address, error) {
	if tokenA.IsZero() || tokenB.IsZero() {
		return types.ZeroAddress, access.ErrInvalidAddress
	}
	if _, ok := m.byTokens[poolKey{tokenA, tokenB}]; ok {
		return types.ZeroAddress, ErrPoolExists
	}
	m.lastID++
	addr := PoolAddress(m.lastID, tokenA)
	m.pools[addr] = &Pool{
		TokenA:   tokenA,
		TokenB:   tokenB,
		ReserveA: new(uint256.Int),
		ReserveB: new(uint256.Int),
	}
	m.byTokens[poolKey{tokenA, tokenB}] = addr
	m.byTokens[poolKey{tokenB, tokenA}] = addr
	return addr, nil
}

// AddLiquidity credits reserves on an existing pool.
func (m *InMemory) AddLiquidity(pool types.Address, amountA, amountB *uint256.Int) error {
	p, ok := m.pools[pool]
	if !ok {
		return ErrPoolNotFound
	}
	p.ReserveA.Add(p.ReserveA, amountA)
	p.ReserveB.Add(p.ReserveB, amountB)
	return nil
}

// Pool returns the pool record at addr, nil when absent.
func (m *InMemory) Pool(addr types.Address) *Pool {
	return m.pools[addr]
}

// Clone implements Cloneable.
func (m *InMemory) Clone() Target {
	cp := &InMemory{
		pools:    make(map[types.Address]*Pool, len(m.pools)),
		byTokens: make(map[poolKey]types.Address, len(m.byTokens)),
		lastID:   m.lastID,
	}
	for addr, p := range m.pools {
		cp.pools[addr] = &Pool{
			TokenA:   p.TokenA,
			TokenB:   p.TokenB,
			ReserveA: new(uint256.Int).Set(p.ReserveA),
			ReserveB: new(uint256.Int).Set(p.ReserveB),
		}
	}
	for k, v := range m.byTokens {
		cp.byTokens[k] = v
	}
	return cp
}
