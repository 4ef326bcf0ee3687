// internal/token/ledger.go
package token

import (
	"errors"

	"github.com/holiman/uint256"

	"github.com/limelight-labs/limelight-core/internal/access"
	"github.com/limelight-labs/limelight-core/internal/types"
)

var (
	// ErrExceedsMaxTx is returned when a transfer from a non-excluded
	// address exceeds the per-transaction cap.
	ErrExceedsMaxTx = errors.New("transfer exceeds max transaction amount")

	// ErrInsufficientBalance is returned when the sender's balance does
	// not cover the amount.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInsufficientAllowance is returned when the spender's allowance
	// does not cover the amount.
	ErrInsufficientAllowance = errors.New("insufficient allowance")
)

// Ledger is a fungible token balance ledger with a per-transaction cap.
// The full supply is minted to the recipient at construction; the owner
// holds the administrative surface (max-tx, exclusions, mint, burn).
type Ledger struct {
	name   string
	symbol string
	owner  types.Address

	totalSupply *uint256.Int
	balances    map[types.Address]*uint256.Int
	allowances  map[types.Address]map[types.Address]*uint256.Int

	// maxTxBps of zero disables the cap entirely.
	maxTxBps          uint64
	maxTxAmount       *uint256.Int
	excludedFromMaxTx map[types.Address]struct{}
}

// NewLedger mints initialSupply to recipient and computes the initial
// max-tx cap as maxTxBps * supply / 100. Nobody is excluded from the cap
// until the owner says so.
func NewLedger(name, symbol string, owner, recipient types.Address, initialSupply *uint256.Int, maxTxBps uint64) (*Ledger, error) {
	if owner.IsZero() || recipient.IsZero() {
		return nil, access.ErrInvalidAddress
	}
	l := &Ledger{
		name:              name,
		symbol:            symbol,
		owner:             owner,
		totalSupply:       new(uint256.Int),
		balances:          make(map[types.Address]*uint256.Int),
		allowances:        make(map[types.Address]map[types.Address]*uint256.Int),
		maxTxBps:          maxTxBps,
		maxTxAmount:       new(uint256.Int),
		excludedFromMaxTx: make(map[types.Address]struct{}),
	}
	if initialSupply != nil && !initialSupply.IsZero() {
		l.totalSupply.Set(initialSupply)
		l.balances[recipient] = new(uint256.Int).Set(initialSupply)
	}
	l.recomputeMaxTx()
	return l, nil
}

func (l *Ledger) Name() string         { return l.name }
func (l *Ledger) Symbol() string       { return l.symbol }
func (l *Ledger) Owner() types.Address { return l.owner }

// TotalSupply returns the current supply.
func (l *Ledger) TotalSupply() *uint256.Int {
	return new(uint256.Int).Set(l.totalSupply)
}

// BalanceOf returns the balance of account, zero when absent.
func (l *Ledger) BalanceOf(account types.Address) *uint256.Int {
	if b, ok := l.balances[account]; ok {
		return new(uint256.Int).Set(b)
	}
	return new(uint256.Int)
}

// Allowance returns the remaining allowance from owner to spender.
func (l *Ledger) Allowance(owner, spender types.Address) *uint256.Int {
	if m, ok := l.allowances[owner]; ok {
		if a, ok := m[spender]; ok {
			return new(uint256.Int).Set(a)
		}
	}
	return new(uint256.Int)
}

// MaxTxAmount returns the current per-transaction cap, zero when disabled.
func (l *Ledger) MaxTxAmount() *uint256.Int {
	return new(uint256.Int).Set(l.maxTxAmount)
}

// IsExcludedFromMaxTx reports whether account bypasses the cap.
func (l *Ledger) IsExcludedFromMaxTx(account types.Address) bool {
	_, ok := l.excludedFromMaxTx[account]
	return ok
}

// Transfer moves amount from the authenticated caller to another account.
func (l *Ledger) Transfer(from, to types.Address, amount *uint256.Int) error {
	return l.move(from, from, to, amount)
}

// Approve sets the allowance from owner to spender.
func (l *Ledger) Approve(owner, spender types.Address, amount *uint256.Int) error {
	if owner.IsZero() || spender.IsZero() {
		return access.ErrInvalidAddress
	}
	if l.allowances[owner] == nil {
		l.allowances[owner] = make(map[types.Address]*uint256.Int)
	}
	l.allowances[owner][spender] = new(uint256.Int).Set(amount)
	return nil
}

// TransferFrom moves amount from one account to another on behalf of the
// spender, consuming allowance.
func (l *Ledger) TransferFrom(spender, from, to types.Address, amount *uint256.Int) error {
	allowed := l.Allowance(from, spender)
	if allowed.Lt(amount) {
		return ErrInsufficientAllowance
	}
	if err := l.move(spender, from, to, amount); err != nil {
		return err
	}
	if l.allowances[from] == nil {
		l.allowances[from] = make(map[types.Address]*uint256.Int)
	}
	l.allowances[from][spender] = allowed.Sub(allowed, amount)
	return nil
}

// BurnFrom destroys amount from account and shrinks the supply. Owner only.
func (l *Ledger) BurnFrom(caller, account types.Address, amount *uint256.Int) error {
	if caller != l.owner {
		return access.ErrUnauthorized
	}
	balance := l.BalanceOf(account)
	if balance.Lt(amount) {
		return ErrInsufficientBalance
	}
	l.balances[account] = balance.Sub(balance, amount)
	l.totalSupply.Sub(l.totalSupply, amount)
	return nil
}

// Mint creates amount for account and grows the supply. Owner only.
func (l *Ledger) Mint(caller, account types.Address, amount *uint256.Int) error {
	if caller != l.owner {
		return access.ErrUnauthorized
	}
	if account.IsZero() {
		return access.ErrInvalidAddress
	}
	balance := l.BalanceOf(account)
	l.balances[account] = balance.Add(balance, amount)
	l.totalSupply.Add(l.totalSupply, amount)
	return nil
}

// UpdateMaxTx changes the cap parameter and recomputes the cap amount.
// Owner only.
func (l *Ledger) UpdateMaxTx(caller types.Address, maxTxBps uint64) error {
	if caller != l.owner {
		return access.ErrUnauthorized
	}
	l.maxTxBps = maxTxBps
	l.recomputeMaxTx()
	return nil
}

// ExcludeFromMaxTx adds account to the unlimited-transfer set. Owner only.
func (l *Ledger) ExcludeFromMaxTx(caller, account types.Address) error {
	if caller != l.owner {
		return access.ErrUnauthorized
	}
	if account.IsZero() {
		return access.ErrInvalidAddress
	}
	l.excludedFromMaxTx[account] = struct{}{}
	return nil
}

// Clone returns a deep copy for the engine's copy-on-write discipline.
func (l *Ledger) Clone() *Ledger {
	cp := &Ledger{
		name:              l.name,
		symbol:            l.symbol,
		owner:             l.owner,
		totalSupply:       new(uint256.Int).Set(l.totalSupply),
		balances:          make(map[types.Address]*uint256.Int, len(l.balances)),
		allowances:        make(map[types.Address]map[types.Address]*uint256.Int, len(l.allowances)),
		maxTxBps:          l.maxTxBps,
		maxTxAmount:       new(uint256.Int).Set(l.maxTxAmount),
		excludedFromMaxTx: make(map[types.Address]struct{}, len(l.excludedFromMaxTx)),
	}
	for a, b := range l.balances {
		cp.balances[a] = new(uint256.Int).Set(b)
	}
	for owner, m := range l.allowances {
		mm := make(map[types.Address]*uint256.Int, len(m))
		for spender, a := range m {
			mm[spender] = new(uint256.Int).Set(a)
		}
		cp.allowances[owner] = mm
	}
	for a := range l.excludedFromMaxTx {
		cp.excludedFromMaxTx[a] = struct{}{}
	}
	return cp
}

// move applies the max-tx check and the balance mutation shared by
// Transfer and TransferFrom.
func (l *Ledger) move(caller, from, to types.Address, amount *uint256.Int) error {
	if from.IsZero() || to.IsZero() {
		return access.ErrInvalidAddress
	}
	if !l.withinMaxTx(caller, from, amount) {
		return ErrExceedsMaxTx
	}
	fromBalance := l.BalanceOf(from)
	if fromBalance.Lt(amount) {
		return ErrInsufficientBalance
	}
	l.balances[from] = fromBalance.Sub(fromBalance, amount)
	toBalance := l.BalanceOf(to)
	l.balances[to] = toBalance.Add(toBalance, amount)
	return nil
}

func (l *Ledger) withinMaxTx(caller, from types.Address, amount *uint256.Int) bool {
	if l.maxTxBps == 0 {
		return true
	}
	if l.IsExcludedFromMaxTx(from) || l.IsExcludedFromMaxTx(caller) {
		return true
	}
	return !amount.Gt(l.maxTxAmount)
}

// The cap divides by 100, not 10000: a "basis point" here is one percent
// of supply. Carried over unchanged from the deployed token.
func (l *Ledger) recomputeMaxTx() {
	l.maxTxAmount = new(uint256.Int).Mul(l.totalSupply, uint256.NewInt(l.maxTxBps))
	l.maxTxAmount.Div(l.maxTxAmount, uint256.NewInt(100))
}
