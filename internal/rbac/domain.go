package rbac

import (
	"context"
	"sort"
	"strings"

	"github.com/odyssey-erp/odyssey-bank/internal/shared"
)

// Identity is the account and role data carried by a Principal.
type Identity struct {
	AccountID     int64
	Passport      string
	FullName      string
	AccountNumber string
	RoleName      string
	RoleLevel     int
}

// Principal describes the authenticated actor. It is built once per request
// and never mutated afterwards.
type Principal struct {
	Identity
	perms map[string]struct{}
}

// NewPrincipal builds a Principal with a private copy of perms.
func NewPrincipal(id Identity, perms ...string) Principal {
	set := make(map[string]struct{}, len(perms))
	for _, p := range normalizePermissions(perms) {
		set[p] = struct{}{}
	}
	return Principal{Identity: id, perms: set}
}

// IsSuperAdmin reports whether the principal bypasses permission checks.
func (p Principal) IsSuperAdmin() bool {
	if p.RoleName == shared.RoleSuperAdmin {
		return true
	}
	_, ok := p.perms[shared.PermAll]
	return ok
}

// Has reports whether the principal holds perm.
func (p Principal) Has(perm string) bool {
	if p.IsSuperAdmin() {
		return true
	}
	_, ok := p.perms[strings.ToLower(strings.TrimSpace(perm))]
	return ok
}

// HasAny reports whether at least one of perms is held.
func (p Principal) HasAny(perms ...string) bool {
	if len(perms) == 0 {
		return true
	}
	for _, perm := range perms {
		if p.Has(perm) {
			return true
		}
	}
	return false
}

// HasAll reports whether every perm is held.
func (p Principal) HasAll(perms ...string) bool {
	for _, perm := range perms {
		if !p.Has(perm) {
			return false
		}
	}
	return true
}

// Permissions returns the granted permissions in sorted order.
func (p Principal) Permissions() []string {
	out := make([]string, 0, len(p.perms))
	for perm := range p.perms {
		out = append(out, perm)
	}
	sort.Strings(out)
	return out
}

type principalContextKey struct{}

// WithPrincipal stores the principal in context.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the principal, reporting whether one exists.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(Principal)
	return p, ok
}
