package identity

import (
	"context"
)

var principalCtxKey = &contextKey{"principal"}
var claimsCtxKey = &contextKey{"claims"}

type contextKey struct {
	name string
}

// Principal is the request-scoped authenticated identity: the principal id
// plus whatever the claims carried, and the role resolved against the
// identity provider. It lives only for the duration of the request.
type Principal struct {
	ID       string
	Username string
	Role     UserRole
	Remember bool
}

// WithPrincipal sets the Principal in the given context
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalCtxKey, p)
}

// PrincipalFromContext finds the principal from the context.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	raw, ok := ctx.Value(principalCtxKey).(*Principal)
	return raw, ok
}

// WithClaimsContext sets the AuthClaims in the given context
func WithClaimsContext(ctx context.Context, claims AuthClaims) context.Context {
	return context.WithValue(ctx, claimsCtxKey, claims)
}

// GetClaims extracts the AuthClaims from the standard context
func GetClaims(ctx context.Context) (AuthClaims, bool) {
	raw, ok := ctx.Value(claimsCtxKey).(AuthClaims)
	return raw, ok
}

// IsAuthenticated reports whether the context carries a principal.
func IsAuthenticated(ctx context.Context) bool {
	_, ok := PrincipalFromContext(ctx)
	return ok
}

// HasRoleAtLeast is a convenience check against the principal's role.
func HasRoleAtLeast(ctx context.Context, minRole UserRole) bool {
	p, ok := PrincipalFromContext(ctx)
	if !ok {
		return false
	}
	return RoleIsAtLeast(p.Role, minRole)
}
