package identity

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
)

// lookupTimeout bounds the credential store call so a slow backend cannot
// hold login requests open indefinitely.
const lookupTimeout = 5 * time.Second

// Auther coordinates the attempt guard, the credential store, and the
// token service during login. It is the only place the three meet.
type Auther struct {
	provider      IdentityProvider
	guard         AttemptGuard
	tokenService  TokenService
	lookupTimeout time.Duration
	logger        Logger
}

var _ Authenticator = (*Auther)(nil)

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(provider IdentityProvider, cfg Config) *Auther {
	return &Auther{
		provider:      provider,
		guard:         NewMemoryAttemptGuardFromConfig(cfg),
		tokenService:  NewTokenServiceFromConfig(cfg, nil),
		lookupTimeout: lookupTimeout,
		logger:        defLogger{},
	}
}

func (s *Auther) WithLogger(logger Logger) *Auther {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// WithAttemptGuard swaps the in-memory guard, e.g. for a Redis-backed one.
func (s *Auther) WithAttemptGuard(guard AttemptGuard) *Auther {
	if guard != nil {
		s.guard = guard
	}
	return s
}

// WithTokenService sets a custom token service.
func (s *Auther) WithTokenService(ts TokenService) *Auther {
	if ts != nil {
		s.tokenService = ts
	}
	return s
}

// WithLookupTimeout bounds the credential store call during login.
func (s *Auther) WithLookupTimeout(d time.Duration) *Auther {
	if d > 0 {
		s.lookupTimeout = d
	}
	return s
}

// TokenService returns the TokenService instance used by this Authenticator
func (s *Auther) TokenService() TokenService {
	return s.tokenService
}

// Login runs the full login sequence. Failures are tracked under both the
// submitted identifier and the client address, so rotating one cannot
// bypass the other. Every lower-level failure surfaces as the generic
// ErrMismatchedHashAndPassword; callers learn nothing about which check
// failed.
func (s *Auther) Login(ctx context.Context, attempt LoginAttempt) (string, error) {
	// Guard updates outlive the request: a client disconnecting mid-login
	// must not be able to drop its own failure bookkeeping.
	guardCtx := context.WithoutCancel(ctx)

	if attempt.ClientAddr != "" && s.guard.IsBlocked(guardCtx, attempt.ClientAddr) {
		s.logger.Warn("login blocked for address", "addr", attempt.ClientAddr)
		return "", ErrTooManyLoginAttempts
	}

	if s.guard.IsBlocked(guardCtx, attempt.Identifier) {
		s.logger.Warn("login blocked for identifier", "identifier", attempt.Identifier)
		return "", ErrTooManyLoginAttempts
	}

	identity, err := s.verifyWithTimeout(ctx, attempt.Identifier, attempt.Password)
	if err != nil {
		if isInfrastructureError(err) {
			// The store failed, not the caller: throttle the address but
			// leave the account counter alone.
			s.recordFailure(guardCtx, attempt.ClientAddr)
			s.logger.Error("login credential lookup failed", "error", err)
			return "", ErrMismatchedHashAndPassword
		}

		s.recordFailure(guardCtx, attempt.ClientAddr)
		s.recordFailure(guardCtx, attempt.Identifier)
		s.logger.Info("login rejected", "identifier", attempt.Identifier)
		return "", ErrMismatchedHashAndPassword
	}

	if identity == nil {
		s.recordFailure(guardCtx, attempt.ClientAddr)
		s.recordFailure(guardCtx, attempt.Identifier)
		return "", ErrMismatchedHashAndPassword
	}

	s.recordSuccess(guardCtx, attempt.ClientAddr)
	s.recordSuccess(guardCtx, attempt.Identifier)

	token, err := s.tokenService.Issue(identity.ID(), identity.Username(), attempt.Remember)
	if err != nil {
		s.logger.Error("login token issuance failed", "error", err)
		return "", err
	}

	return token, nil
}

// Refresh re-issues the token when its signature verifies, including for
// expired tokens. Invalid tokens fail with ErrTokenMalformed.
func (s *Auther) Refresh(ctx context.Context, token string) (string, error) {
	refreshed, err := s.tokenService.Refresh(token)
	if err != nil {
		s.logger.Info("token refresh rejected", "error", err)
		return "", err
	}
	return refreshed, nil
}

// IdentityFromClaims resolves the principal behind validated claims. Role
// data is not embedded in tokens, so this is the cheap id lookup the
// interceptor runs to attach a role to the request.
func (s *Auther) IdentityFromClaims(ctx context.Context, claims AuthClaims) (Identity, error) {
	identity, err := s.provider.FindIdentityByID(ctx, claims.UserID())
	if err != nil {
		s.logger.Error("identity lookup from claims failed", "error", err)
		return nil, err
	}

	if identity == nil {
		return nil, ErrIdentityNotFound
	}

	return identity, nil
}

func (s *Auther) verifyWithTimeout(ctx context.Context, identifier, password string) (Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, s.lookupTimeout)
	defer cancel()

	return s.provider.VerifyIdentity(ctx, identifier, password)
}

func (s *Auther) recordFailure(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.guard.RecordFailure(ctx, key); err != nil {
		s.logger.Warn("failed to record login failure", "key", key, "error", err)
	}
}

func (s *Auther) recordSuccess(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.guard.RecordSuccess(ctx, key); err != nil {
		s.logger.Warn("failed to record login success", "key", key, "error", err)
	}
}

// isInfrastructureError separates store/transport faults from credential
// rejections. Credential rejections come back as auth or not-found
// categories; anything else is the backend misbehaving.
func isInfrastructureError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}

	var richErr *errors.Error
	if errors.As(err, &richErr) {
		switch richErr.Category {
		case errors.CategoryAuth, errors.CategoryNotFound, errors.CategoryValidation:
			return false
		default:
			return true
		}
	}

	return false
}
