package auth

import (
	"context"

	"snaphomz.org/internal/identity"
)

// AuthContext is the immutable per-request value attached by an auth gate:
// the resolved principal plus the role claim carried by the token.
type AuthContext struct {
	Principal identity.Principal
	Role      identity.AccountType
}

type authContextKey struct{}

// ContextWithAuth attaches the authenticated principal and role to the context.
func ContextWithAuth(ctx context.Context, ac AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey{}, ac)
}

// FromContext extracts the AuthContext attached by an auth gate.
func FromContext(ctx context.Context) (AuthContext, bool) {
	if ctx == nil {
		return AuthContext{}, false
	}
	v, ok := ctx.Value(authContextKey{}).(AuthContext)
	if !ok || v.Principal.ID() == "" {
		return AuthContext{}, false
	}
	return v, true
}

// PrincipalIDFromContext returns the authenticated principal id, if any.
func PrincipalIDFromContext(ctx context.Context) (string, bool) {
	ac, ok := FromContext(ctx)
	if !ok {
		return "", false
	}
	return ac.Principal.ID(), true
}
