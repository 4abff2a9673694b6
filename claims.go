package identity

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthClaims is the read side of a decoded token. Role data is not part of
// the token; it is resolved per request against the identity provider.
type AuthClaims interface {
	Subject() string
	UserID() string
	Username() string
	Remembered() bool
	IssuedAt() time.Time
	Expires() time.Time
}

// TokenClaims is the concrete claim set we sign. The remember flag is
// recorded at issuance so refresh can preserve the original lifetime
// policy.
type TokenClaims struct {
	jwt.RegisteredClaims
	UID      string `json:"uid,omitempty"`
	Name     string `json:"username,omitempty"`
	Remember bool   `json:"rmb,omitempty"`
}

var _ AuthClaims = (*TokenClaims)(nil)

// Subject returns the subject claim
func (c *TokenClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// UserID returns the principal id, falling back to the subject
func (c *TokenClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.Subject()
}

// Username returns the embedded handle
func (c *TokenClaims) Username() string {
	return c.Name
}

// Remembered reports whether the token was issued under remember-me
func (c *TokenClaims) Remembered() bool {
	return c.Remember
}

// IssuedAt returns the issued at time
func (c *TokenClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

// Expires returns the expiration time
func (c *TokenClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}
