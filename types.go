package identity

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Identity holds the attributes of an authenticated principal
type Identity interface {
	ID() string
	Username() string
	Email() string
	Role() string
}

// LoginAttempt is a single credential submission plus the network
// address it came from. The address feeds the attempt guard.
type LoginAttempt struct {
	Identifier string
	Password   string
	Remember   bool
	ClientAddr string
}

// Authenticator holds methods to deal with authentication
type Authenticator interface {
	Login(ctx context.Context, attempt LoginAttempt) (string, error)
	Refresh(ctx context.Context, token string) (string, error)
	IdentityFromClaims(ctx context.Context, claims AuthClaims) (Identity, error)
}

// LoginPayload is the transport-level login request contract
type LoginPayload interface {
	GetIdentifier() string
	GetPassword() string
	GetRememberMe() bool
}

// IdentityProvider is the external credential store: lookup by identifier
// (username or email), password verification, and a cheap id-based lookup
// used by the interceptor to resolve roles.
type IdentityProvider interface {
	VerifyIdentity(ctx context.Context, identifier, password string) (Identity, error)
	FindIdentityByID(ctx context.Context, id string) (Identity, error)
}

// PasswordAuthenticator authenticates passwords
type PasswordAuthenticator interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

// AttemptGuard tracks consecutive login failures per string key and blocks
// keys that cross the threshold. Implementations must make the
// increment-on-failure atomic per key.
type AttemptGuard interface {
	RecordFailure(ctx context.Context, key string) error
	RecordSuccess(ctx context.Context, key string) error
	IsBlocked(ctx context.Context, key string) bool
}

// Config holds auth options
type Config interface {
	GetSigningKey() string
	GetSigningMethod() string
	GetContextKey() string
	// GetTokenExpiration is the short-lived token duration in milliseconds.
	GetTokenExpiration() int64
	// GetExtendedTokenDuration is the remember-me duration in milliseconds.
	GetExtendedTokenDuration() int64
	GetTokenLookup() string
	GetAuthScheme() string
	GetIssuer() string
	GetAudience() []string
	GetMaxLoginAttempts() int
	GetAttemptWindow() time.Duration
}

// SimpleConfig is a plain struct Config with sensible defaults applied by
// NewSimpleConfig.
type SimpleConfig struct {
	SigningKey            string
	SigningMethod         string
	ContextKey            string
	TokenExpiration       int64
	ExtendedTokenDuration int64
	TokenLookup           string
	AuthScheme            string
	Issuer                string
	Audience              []string
	MaxLoginAttempts      int
	AttemptWindow         time.Duration
}

const (
	// DefaultTokenExpiration is 15 minutes, in milliseconds.
	DefaultTokenExpiration int64 = 900_000
	// DefaultExtendedTokenDuration is 30 days, in milliseconds.
	DefaultExtendedTokenDuration int64 = 2_592_000_000
	// DefaultMaxLoginAttempts blocks a key at the tenth failure.
	DefaultMaxLoginAttempts = 10
	// DefaultAttemptWindow evicts idle counters after an hour.
	DefaultAttemptWindow = time.Hour
	// DefaultCookieName carries tokens for browser sessions.
	DefaultCookieName = "auth_token"
	// DefaultTokenLookup checks the bearer header, then the cookie.
	DefaultTokenLookup = "header:Authorization,cookie:" + DefaultCookieName
)

// NewSimpleConfig fills zero fields with defaults.
func NewSimpleConfig(signingKey string) *SimpleConfig {
	return &SimpleConfig{
		SigningKey:            signingKey,
		SigningMethod:         "HS256",
		ContextKey:            "user",
		TokenExpiration:       DefaultTokenExpiration,
		ExtendedTokenDuration: DefaultExtendedTokenDuration,
		TokenLookup:           DefaultTokenLookup,
		AuthScheme:            "Bearer",
		MaxLoginAttempts:      DefaultMaxLoginAttempts,
		AttemptWindow:         DefaultAttemptWindow,
	}
}

func (c *SimpleConfig) GetSigningKey() string    { return c.SigningKey }
func (c *SimpleConfig) GetSigningMethod() string { return c.SigningMethod }
func (c *SimpleConfig) GetContextKey() string    { return c.ContextKey }

func (c *SimpleConfig) GetTokenExpiration() int64 {
	if c.TokenExpiration <= 0 {
		return DefaultTokenExpiration
	}
	return c.TokenExpiration
}

func (c *SimpleConfig) GetExtendedTokenDuration() int64 {
	if c.ExtendedTokenDuration <= 0 {
		return DefaultExtendedTokenDuration
	}
	return c.ExtendedTokenDuration
}

func (c *SimpleConfig) GetTokenLookup() string {
	if c.TokenLookup == "" {
		return DefaultTokenLookup
	}
	return c.TokenLookup
}

func (c *SimpleConfig) GetAuthScheme() string {
	if c.AuthScheme == "" {
		return "Bearer"
	}
	return c.AuthScheme
}

func (c *SimpleConfig) GetIssuer() string     { return c.Issuer }
func (c *SimpleConfig) GetAudience() []string { return c.Audience }

func (c *SimpleConfig) GetMaxLoginAttempts() int {
	if c.MaxLoginAttempts <= 0 {
		return DefaultMaxLoginAttempts
	}
	return c.MaxLoginAttempts
}

func (c *SimpleConfig) GetAttemptWindow() time.Duration {
	if c.AttemptWindow <= 0 {
		return DefaultAttemptWindow
	}
	return c.AttemptWindow
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] IDENTITY "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] IDENTITY "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] IDENTITY "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] IDENTITY "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
