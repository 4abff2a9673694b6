package identity

import (
	"strings"

	"github.com/goliatone/go-errors"
)

const (
	// TextCodeTokenExpired marks a well formed token past its expiry.
	TextCodeTokenExpired = "TOKEN_EXPIRED"
	// TextCodeTokenMalformed marks garbage input or a bad signature.
	TextCodeTokenMalformed = "TOKEN_MALFORMED"
	// TextCodeInvalidCreds is the generic credential failure code.
	TextCodeInvalidCreds = "INVALID_CREDENTIALS"
	// TextCodeTooManyAttempts marks a throttled identifier or address.
	TextCodeTooManyAttempts = "TOO_MANY_ATTEMPTS"
	// TextCodeNotAuthenticated marks a protected route hit without identity.
	TextCodeNotAuthenticated = "NOT_AUTHENTICATED"
	// TextCodeInsufficientRole marks an identity lacking the required role.
	TextCodeInsufficientRole = "INSUFFICIENT_ROLE"
	// TextCodeSessionNotFound means the request carried no token at all.
	TextCodeSessionNotFound = "SESSION_NOT_FOUND"
	// TextCodeSessionDecodeError means claims could not be decoded.
	TextCodeSessionDecodeError = "SESSION_DECODE_ERROR"
	// TextCodeEmptyPassword rejects empty password input.
	TextCodeEmptyPassword = "EMPTY_PASSWORD"
)

// ErrTokenExpired is returned for tokens whose signature verifies but whose
// expiry has passed. Callers rely on the distinction from ErrTokenMalformed
// to offer silent refresh instead of rejecting outright.
var ErrTokenExpired = errors.New("authentication token is expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed is returned for malformed input, bad signatures, or
// tokens signed with the wrong key. Never downgraded to ErrTokenExpired.
var ErrTokenMalformed = errors.New("authentication token is malformed", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrMismatchedHashAndPassword is the single generic failure surfaced for
// bad credentials. Unknown identifiers map to this same error so callers
// cannot probe for account existence.
var ErrMismatchedHashAndPassword = errors.New("the credentials provided are invalid", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCreds).
	WithCode(errors.CodeUnauthorized)

// ErrTooManyLoginAttempts is returned when the attempt guard has blocked
// the submitted identifier or the client address.
var ErrTooManyLoginAttempts = errors.New("too many login attempts, retry later", errors.CategoryRateLimit).
	WithTextCode(TextCodeTooManyAttempts)

// ErrIdentityNotFound is the error we return for non found identities.
var ErrIdentityNotFound = errors.New("identity not found", errors.CategoryNotFound).
	WithCode(errors.CodeNotFound)

// ErrNotAuthenticated is the policy violation for protected routes reached
// without a usable identity.
var ErrNotAuthenticated = errors.New("authentication required", errors.CategoryAuth).
	WithTextCode(TextCodeNotAuthenticated).
	WithCode(errors.CodeUnauthorized)

// ErrInsufficientRole is the policy violation for an authenticated identity
// whose role does not satisfy the matched rule.
var ErrInsufficientRole = errors.New("insufficient role for resource", errors.CategoryAuthz).
	WithTextCode(TextCodeInsufficientRole).
	WithCode(errors.CodeForbidden)

// ErrUnableToFindSession is the error when the request has no token.
var ErrUnableToFindSession = errors.New("unable to find session", errors.CategoryAuth).
	WithTextCode(TextCodeSessionNotFound).
	WithCode(errors.CodeUnauthorized)

// ErrUnableToDecodeSession means we could not decode claims from the token.
var ErrUnableToDecodeSession = errors.New("unable to decode session", errors.CategoryAuth).
	WithTextCode(TextCodeSessionDecodeError).
	WithCode(errors.CodeUnauthorized)

// ErrNoEmptyString rejects empty passwords before hashing.
var ErrNoEmptyString = errors.New("password must not be empty", errors.CategoryValidation).
	WithTextCode(TextCodeEmptyPassword).
	WithCode(errors.CodeBadRequest)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for malformed token errors
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenMalformed) {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}

// IsRateLimitError will check for attempt guard blocks
func IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTooManyLoginAttempts) {
		return true
	}
	var richErr *errors.Error
	if errors.As(err, &richErr) {
		return richErr.Category == errors.CategoryRateLimit
	}
	return false
}
