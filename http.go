package identity

import (
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// RouteAuthenticator is the HTTP glue around the Authenticator: it binds
// tokens to the auth_token cookie for browser sessions and maps core
// errors to transport errors.
type RouteAuthenticator struct {
	auth         Authenticator
	cfg          Config
	cookieName   string
	Logger       Logger
	ErrorHandler func(c router.Context, err error) error
}

// NewRouteAuthenticator builds the HTTP layer for an Authenticator.
func NewRouteAuthenticator(auther Authenticator, cfg Config) *RouteAuthenticator {
	a := &RouteAuthenticator{
		cfg:        cfg,
		auth:       auther,
		cookieName: DefaultCookieName,
		Logger:     defLogger{},
	}

	a.ErrorHandler = a.defaultErrHandler

	return a
}

func (a *RouteAuthenticator) WithLogger(logger Logger) *RouteAuthenticator {
	if logger != nil {
		a.Logger = logger
	}
	return a
}

// CookieName returns the cookie used for remembered sessions.
func (a *RouteAuthenticator) CookieName() string {
	return a.cookieName
}

// ExtendedCookieDuration is how long a remember-me cookie lives.
func (a *RouteAuthenticator) ExtendedCookieDuration() time.Duration {
	return time.Duration(a.cfg.GetExtendedTokenDuration()) * time.Millisecond
}

// Login authenticates the payload and, when remember-me was requested,
// attaches the token as an HTTP-only cookie. The token is returned either
// way so API clients can carry it as a bearer header.
func (a *RouteAuthenticator) Login(ctx router.Context, payload LoginPayload) (string, error) {
	attempt := LoginAttempt{
		Identifier: payload.GetIdentifier(),
		Password:   payload.GetPassword(),
		Remember:   payload.GetRememberMe(),
		ClientAddr: ctx.IP(),
	}

	token, err := a.auth.Login(ctx.Context(), attempt)
	if err != nil {
		a.Logger.Info("login error", "error", err)
		return "", err
	}

	if attempt.Remember {
		a.setCookieToken(ctx, token, a.ExtendedCookieDuration())
	}

	return token, nil
}

// Logout clears the session cookie. Tokens are stateless, so there is no
// server-side invalidation: a captured token stays usable until expiry.
func (a *RouteAuthenticator) Logout(ctx router.Context) {
	a.cookieDel(ctx, a.cookieName)
}

// Refresh reads the current token from the bearer header or the cookie and
// re-issues it. Expired tokens refresh; malformed ones do not.
func (a *RouteAuthenticator) Refresh(ctx router.Context) (string, error) {
	raw := a.tokenFromRequest(ctx)
	if raw == "" {
		return "", ErrUnableToFindSession
	}

	token, err := a.auth.Refresh(ctx.Context(), raw)
	if err != nil {
		return "", err
	}

	// preserve the cookie for remembered sessions
	if ts, ok := a.auth.(interface{ TokenService() TokenService }); ok {
		if claims, derr := ts.TokenService().Decode(token); derr == nil && claims.Remembered() {
			a.setCookieToken(ctx, token, a.ExtendedCookieDuration())
		}
	}

	return token, nil
}

// tokenFromRequest mirrors the middleware lookup order: bearer header
// first, cookie second.
func (a *RouteAuthenticator) tokenFromRequest(ctx router.Context) string {
	scheme := strings.TrimSpace(a.cfg.GetAuthScheme())
	header := ctx.Header(router.HeaderAuthorization)
	if l := len(scheme); l > 0 && len(header) > l+1 && strings.EqualFold(header[:l], scheme) {
		return strings.TrimSpace(header[l:])
	}

	return ctx.Cookies(a.cookieName)
}

func (a *RouteAuthenticator) setCookieToken(c router.Context, val string, duration time.Duration) {
	c.Cookie(&router.Cookie{
		Name:     a.cookieName,
		Value:    val,
		Path:     "/",
		Expires:  time.Now().Add(duration),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Strict",
	})
}

func (a *RouteAuthenticator) cookieDel(c router.Context, name string) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Strict",
	})
}

func (a *RouteAuthenticator) defaultErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	a.Logger.Info(
		"request error handler",
		"error", richErr.Message,
		"category", richErr.Category,
		"details", print.MaybePrettyJSON(richErr.Metadata),
	)

	status := httpStatusFor(richErr)

	return c.JSON(status, map[string]any{
		"error": richErr.Message,
		"code":  richErr.TextCode,
	})
}

// httpStatusFor maps error categories to response codes: rate limits to
// 429, auth failures to 401, authz to 403, bad input to 400.
func httpStatusFor(err *errors.Error) int {
	switch err.Category {
	case errors.CategoryRateLimit:
		return 429
	case errors.CategoryAuthz:
		return 403
	case errors.CategoryAuth:
		return 401
	case errors.CategoryBadInput, errors.CategoryValidation:
		return 400
	case errors.CategoryNotFound:
		return 404
	default:
		if err.Code > 0 {
			return err.Code
		}
		return 500
	}
}
