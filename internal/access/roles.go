// internal/access/roles.go
package access

import (
	"errors"

	"github.com/limelight-labs/limelight-core/internal/types"
)

// Role is a named capability gating state-mutating operations.
type Role string

const (
	RoleAdmin    Role = "ADMIN_ROLE"
	RoleCreator  Role = "CREATOR_ROLE"
	RoleExecutor Role = "EXECUTOR_ROLE"
	RoleBonding  Role = "BONDING_ROLE"
	RoleMinter   Role = "MINTER_ROLE"
)

var (
	// ErrUnauthorized is returned when the caller lacks the required role.
	// Role checks fail closed: an unknown role or principal is a denial.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidAddress is returned when a zero address is used where a
	// real principal is required.
	ErrInvalidAddress = errors.New("invalid address")
)

// Registry maps roles to the set of principals holding them. Membership
// changes only through Grant/Revoke by an existing admin.
type Registry struct {
	grants map[Role]map[types.Address]struct{}
}

// NewRegistry creates a registry with a single bootstrap admin.
func NewRegistry(admin types.Address) *Registry {
	r := &Registry{grants: make(map[Role]map[types.Address]struct{})}
	if !admin.IsZero() {
		r.grants[RoleAdmin] = map[types.Address]struct{}{admin: {}}
	}
	return r
}

// Has reports whether account holds role.
func (r *Registry) Has(role Role, account types.Address) bool {
	members, ok := r.grants[role]
	if !ok {
		return false
	}
	_, ok = members[account]
	return ok
}

// Require returns ErrUnauthorized unless account holds role.
func (r *Registry) Require(role Role, account types.Address) error {
	if !r.Has(role, account) {
		return ErrUnauthorized
	}
	return nil
}

// Grant adds account to role. Caller must be an admin.
func (r *Registry) Grant(caller types.Address, role Role, account types.Address) error {
	if err := r.Require(RoleAdmin, caller); err != nil {
		return err
	}
	if account.IsZero() {
		return ErrInvalidAddress
	}
	if r.grants[role] == nil {
		r.grants[role] = make(map[types.Address]struct{})
	}
	r.grants[role][account] = struct{}{}
	return nil
}

// Revoke removes account from role. Caller must be an admin.
func (r *Registry) Revoke(caller types.Address, role Role, account types.Address) error {
	if err := r.Require(RoleAdmin, caller); err != nil {
		return err
	}
	if members, ok := r.grants[role]; ok {
		delete(members, account)
		if len(members) == 0 {
			delete(r.grants, role)
		}
	}
	return nil
}

// Clone returns a deep copy for the engine's copy-on-write discipline.
func (r *Registry) Clone() *Registry {
	cp := &Registry{grants: make(map[Role]map[types.Address]struct{}, len(r.grants))}
	for role, members := range r.grants {
		m := make(map[types.Address]struct{}, len(members))
		for a := range members {
			m[a] = struct{}{}
		}
		cp.grants[role] = m
	}
	return cp
}
