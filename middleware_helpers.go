package identity

import (
	"context"

	"github.com/identityforge/go-identity/middleware/authware"
)

// validatorAdapter bridges the TokenService to the middleware's mirrored
// claims interface.
type validatorAdapter struct {
	ts TokenService
}

func (v validatorAdapter) Validate(tokenString string) (authware.AuthClaims, error) {
	claims, err := v.ts.Validate(tokenString)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// policyAdapter bridges Policy to the middleware's principal type.
type policyAdapter struct {
	policy *Policy
}

func (p policyAdapter) Evaluate(method, path string, principal *authware.Principal) error {
	return p.policy.Evaluate(method, path, fromAuthwarePrincipal(principal))
}

func fromAuthwarePrincipal(p *authware.Principal) *Principal {
	if p == nil {
		return nil
	}
	return &Principal{
		ID:       p.ID,
		Username: p.Username,
		Role:     p.Role,
		Remember: p.Remember,
	}
}

// PrincipalResolver derives the request principal from validated claims by
// resolving the role against the identity provider. A failed lookup reads
// as "no identity", never as a request failure.
func PrincipalResolver(auther *Auther) authware.PrincipalResolver {
	return func(ctx context.Context, claims authware.AuthClaims) (*authware.Principal, error) {
		ac, ok := claims.(AuthClaims)
		if !ok {
			return nil, ErrUnableToDecodeSession
		}

		ident, err := auther.IdentityFromClaims(ctx, ac)
		if err != nil {
			return nil, err
		}

		return &authware.Principal{
			ID:       ident.ID(),
			Username: ident.Username(),
			Role:     ident.Role(),
			Remember: ac.Remembered(),
		}, nil
	}
}

// ContextEnricherAdapter stores the derived identity in the standard
// context for downstream handlers and policy checks.
func ContextEnricherAdapter(c context.Context, principal *authware.Principal, claims authware.AuthClaims) context.Context {
	if ac, ok := claims.(AuthClaims); ok {
		c = WithClaimsContext(c, ac)
	}

	if p := fromAuthwarePrincipal(principal); p != nil {
		c = WithPrincipal(c, p)
	}

	return c
}

// AuthMiddlewareConfig assembles the interceptor configuration: token
// lookup from cfg, validation via the Auther's token service, role
// resolution against the identity provider, and the given policy (nil for
// annotate-only).
func AuthMiddlewareConfig(cfg Config, auther *Auther, policy *Policy) authware.Config {
	mw := authware.Config{
		TokenValidator:  validatorAdapter{ts: auther.TokenService()},
		ContextKey:      cfg.GetContextKey(),
		TokenLookup:     cfg.GetTokenLookup(),
		AuthScheme:      cfg.GetAuthScheme(),
		Resolver:        PrincipalResolver(auther),
		ContextEnricher: ContextEnricherAdapter,
	}

	if policy != nil {
		mw.Policy = policyAdapter{policy: policy}
	}

	return mw
}
