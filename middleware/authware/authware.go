package authware

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

var (
	defaultTokenLookup = "header:" + router.HeaderAuthorization + ",cookie:auth_token"

	// ErrJWTMissingOrMalformed is returned by extractors when the request
	// carries no usable token.
	ErrJWTMissingOrMalformed = errors.New("missing or malformed JWT")
)

// TokenValidator validates tokens and extracts claims without tying the
// middleware to a specific signing implementation.
type TokenValidator interface {
	Validate(tokenString string) (AuthClaims, error)
}

// AuthClaims mirrors the identity package claims interface to avoid an
// import cycle.
type AuthClaims interface {
	Subject() string
	UserID() string
	Username() string
	Remembered() bool
	IssuedAt() time.Time
	Expires() time.Time
}

// Principal is the request-scoped identity the middleware derives: the
// principal id plus the role resolved against the identity store.
type Principal struct {
	ID       string
	Username string
	Role     string
	Remember bool
}

// PrincipalResolver turns validated claims into a Principal, typically via
// a cheap id lookup since role data is not embedded in tokens.
type PrincipalResolver func(ctx context.Context, claims AuthClaims) (*Principal, error)

// PolicyEvaluator decides whether the derived identity may reach the
// route. A nil principal means the request is unauthenticated.
type PolicyEvaluator interface {
	Evaluate(method, path string, principal *Principal) error
}

// ContextEnricher propagates the derived identity into the standard Go
// context so downstream handlers can read it without router coupling.
type ContextEnricher func(c context.Context, principal *Principal, claims AuthClaims) context.Context

type Config struct {
	// Filter skips the middleware entirely when it returns true.
	Filter         func(router.Context) bool
	SuccessHandler router.HandlerFunc
	// ErrorHandler receives policy violations (and, in strict mode, token
	// failures).
	ErrorHandler router.ErrorHandler

	// TokenValidator is required unless a SigningKey/SigningKeys/JWKSetURLs
	// is configured, in which case a JWT validator is built from it.
	TokenValidator TokenValidator

	SigningKey  SigningKey
	SigningKeys map[string]SigningKey
	JWKSetURLs  []string
	KeyFunc     jwt.Keyfunc

	// ContextKey is the router locals key claims are stored under.
	ContextKey string
	// PrincipalKey is the router locals key the Principal is stored under.
	PrincipalKey string
	TokenLookup  string
	AuthScheme   string

	// Resolver derives the Principal from validated claims. Without it the
	// principal carries the claim data and no role.
	Resolver PrincipalResolver

	// Policy, when set, is evaluated after annotation; violations go to
	// the ErrorHandler. Without a policy the middleware only annotates.
	Policy PolicyEvaluator

	// Strict restores hard failures: requests with a missing or unusable
	// token are rejected by the ErrorHandler instead of passing through
	// unauthenticated.
	Strict bool

	// ContextEnricher propagates identity to the standard context.
	ContextEnricher ContextEnricher
}

type SigningKey struct {
	JWTAlg string
	Key    any
}

// New builds the authentication interceptor. It extracts and validates the
// token exactly once per request, annotates the request with the derived
// identity, and defers the accept/reject decision to the configured
// Policy. Requests without a usable token pass through unauthenticated
// unless Strict is set.
func New(config ...Config) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		cfg := GetDefaultConfig(config...)
		return func(ctx router.Context) error {
			if cfg.Filter != nil && cfg.Filter(ctx) {
				return ctx.Next()
			}

			principal, claims, err := deriveIdentity(ctx, cfg)
			if err != nil && cfg.Strict {
				return cfg.ErrorHandler(ctx, err)
			}

			if claims != nil {
				ctx.Locals(cfg.ContextKey, claims)
			}
			if principal != nil {
				ctx.Locals(cfg.PrincipalKey, principal)
			}

			if cfg.ContextEnricher != nil {
				ctx.SetContext(cfg.ContextEnricher(ctx.Context(), principal, claims))
			}

			if cfg.Policy != nil {
				if perr := cfg.Policy.Evaluate(ctx.Method(), ctx.Path(), principal); perr != nil {
					return cfg.ErrorHandler(ctx, perr)
				}
			}

			return cfg.SuccessHandler(ctx)
		}
	}
}

// deriveIdentity runs the extract-validate-resolve sequence. Any failure
// yields a nil principal; the error reports why for strict mode and logs.
func deriveIdentity(ctx router.Context, cfg Config) (*Principal, AuthClaims, error) {
	raw, err := ExtractRawTokenFromContext(ctx, cfg.getExtractors())
	if err != nil || raw == "" {
		return nil, nil, ErrJWTMissingOrMalformed
	}

	claims, err := cfg.TokenValidator.Validate(raw)
	if err != nil {
		// expired and malformed both read as "no identity" here; the
		// distinction matters to the refresh endpoint, not the interceptor
		return nil, nil, err
	}

	if cfg.Resolver == nil {
		return &Principal{
			ID:       claims.UserID(),
			Username: claims.Username(),
			Remember: claims.Remembered(),
		}, claims, nil
	}

	principal, err := cfg.Resolver(ctx.Context(), claims)
	if err != nil || principal == nil {
		// a failed store lookup is equivalent to no identity, never fatal
		return nil, claims, err
	}

	return principal, claims, nil
}

func GetDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.SuccessHandler == nil {
		cfg.SuccessHandler = func(ctx router.Context) error {
			return ctx.Next()
		}
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = defaultErrorHandler
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = "user"
	}

	if cfg.PrincipalKey == "" {
		cfg.PrincipalKey = "principal"
	}

	if cfg.TokenLookup == "" {
		cfg.TokenLookup = defaultTokenLookup
	}

	if cfg.AuthScheme == "" {
		cfg.AuthScheme = "Bearer"
	}

	if cfg.TokenValidator == nil {
		validator, err := validatorFromKeys(&cfg)
		if err != nil {
			panic("AUTH: middleware configuration: " + err.Error())
		}
		cfg.TokenValidator = validator
	}

	return cfg
}

// defaultErrorHandler distinguishes no-identity failures (401) from
// identified-but-insufficient-role policy violations (403).
func defaultErrorHandler(c router.Context, err error) error {
	if errors.Is(err, ErrJWTMissingOrMalformed) {
		return c.Status(router.StatusUnauthorized).SendString(ErrJWTMissingOrMalformed.Error())
	}

	var rich *goerrors.Error
	if errors.As(err, &rich) && (rich.Category == goerrors.CategoryAuthz || rich.Code == goerrors.CodeForbidden) {
		return c.Status(router.StatusForbidden).SendString(rich.Message)
	}

	return c.Status(router.StatusUnauthorized).SendString("Invalid or expired token")
}

func (cfg *Config) getExtractors() []TokenExtractor {
	return GetExtractors(cfg.TokenLookup, cfg.AuthScheme)
}

// validatorFromKeys builds a jwt-parser validator from the configured
// signing material, for externally issued tokens that bypass the identity
// package's TokenService.
func validatorFromKeys(cfg *Config) (TokenValidator, error) {
	if cfg.KeyFunc == nil {
		switch {
		case len(cfg.SigningKeys) > 0 || len(cfg.JWKSetURLs) > 0:
			givenKeys := make(map[string]keyfunc.GivenKey, len(cfg.SigningKeys))
			for kid, key := range cfg.SigningKeys {
				givenKeys[kid] = keyfunc.NewGivenCustom(key.Key, keyfunc.GivenKeyOptions{
					Algorithm: key.JWTAlg,
				})
			}

			if len(cfg.JWKSetURLs) > 0 {
				kf, err := multiKeyfunc(givenKeys, cfg.JWKSetURLs)
				if err != nil {
					return nil, err
				}
				cfg.KeyFunc = kf
			} else {
				cfg.KeyFunc = keyfunc.NewGiven(givenKeys).Keyfunc
			}
		case cfg.SigningKey.Key != nil:
			cfg.KeyFunc = signingKeyFunc(cfg.SigningKey)
		default:
			return nil, errors.New("one of TokenValidator, KeyFunc, JWKSetURLs, SigningKeys, or SigningKey is required")
		}
	}

	return &keyfuncValidator{keyFunc: cfg.KeyFunc}, nil
}

func multiKeyfunc(givenKeys map[string]keyfunc.GivenKey, jwkSetURLs []string) (jwt.Keyfunc, error) {
	opts := keyfunc.Options{
		GivenKeys: givenKeys,
		RefreshErrorHandler: func(err error) {
			log.Printf("failed to do a background refresh of JWT set: %s", err)
		},
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  time.Minute * 5,
		RefreshTimeout:    time.Second * 10,
		RefreshUnknownKID: true,
	}

	m := make(map[string]keyfunc.Options, len(jwkSetURLs))
	for _, url := range jwkSetURLs {
		m[url] = opts
	}

	multi, err := keyfunc.GetMultiple(m, keyfunc.MultipleOptions{
		KeySelector: keyfunc.KeySelectorFirst,
	})
	if err != nil {
		return nil, err
	}
	return multi.Keyfunc, nil
}

func signingKeyFunc(key SigningKey) jwt.Keyfunc {
	return func(token *jwt.Token) (any, error) {
		if key.JWTAlg != "" {
			alg, ok := token.Header["alg"].(string)
			if !ok || alg != key.JWTAlg {
				return nil, errors.New("unexpected JWT signing method")
			}
		}
		return key.Key, nil
	}
}
