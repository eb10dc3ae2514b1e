// ABOUTME: Authentication context for tracking identity through request handlers
// ABOUTME: Provides WithPrincipal/FromContext for propagating auth info via context

package auth

import (
	"context"
)

// Roles a principal can carry. RoleClient covers chat widget users;
// the staff roles mirror the store's user roles.
const (
	RoleSuperadmin = "superadmin"
	RoleAdmin      = "admin"
	RoleAgent      = "agent"
	RoleClient     = "client"
)

// Principal holds the authenticated identity extracted from a request.
// This is populated by the auth middleware and can be retrieved from
// context in handlers.
type Principal struct {
	ID   string // UUID of the authenticated user or client
	Role string // one of the Role* constants
}

// IsStaff returns true if the principal is an agent, admin, or superadmin.
func (p *Principal) IsStaff() bool {
	return p.Role == RoleAgent || p.Role == RoleAdmin || p.Role == RoleSuperadmin
}

// principalKey is the key type for storing a Principal in context.Context.
type principalKey struct{}

// WithPrincipal returns a new context with the Principal attached.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext retrieves the Principal from the context, returning nil if not present.
func FromContext(ctx context.Context) *Principal {
	val := ctx.Value(principalKey{})
	if val == nil {
		return nil
	}
	p, ok := val.(*Principal)
	if !ok {
		return nil
	}
	return p
}

// MustFromContext retrieves the Principal from the context, panicking if not present.
func MustFromContext(ctx context.Context) *Principal {
	p := FromContext(ctx)
	if p == nil {
		panic("auth: Principal not found in context")
	}
	return p
}
