package identity

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/goliatone/go-router"
)

// AuthControllerRoutes names the endpoints the controller registers.
type AuthControllerRoutes struct {
	Login   string
	Logout  string
	Refresh string
}

// AuthController exposes the login, logout, and refresh endpoints as JSON
// handlers over the RouteAuthenticator.
type AuthController struct {
	Auther *RouteAuthenticator
	Routes AuthControllerRoutes
	Logger Logger
}

type AuthControllerOption func(*AuthController)

// WithAuther sets the route authenticator the controller drives.
func WithAuther(auther *RouteAuthenticator) AuthControllerOption {
	return func(c *AuthController) {
		c.Auther = auther
	}
}

// WithControllerLogger sets the controller logger.
func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

// WithRoutes overrides the default endpoint paths.
func WithRoutes(routes AuthControllerRoutes) AuthControllerOption {
	return func(c *AuthController) {
		c.Routes = routes
	}
}

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	controller := &AuthController{
		Routes: AuthControllerRoutes{
			Login:   "/login",
			Logout:  "/logout",
			Refresh: "/refresh-token",
		},
		Logger: defLogger{},
	}

	for _, opt := range opts {
		opt(controller)
	}

	return controller
}

// RegisterAuthRoutes wires the auth endpoints into the router.
func RegisterAuthRoutes[T any](app router.Router[T], opts ...AuthControllerOption) {
	controller := NewAuthController(opts...)

	app.Post(controller.Routes.Login, controller.LoginPost).
		SetName("auth.login")

	app.Post(controller.Routes.Logout, controller.LogoutPost).
		SetName("auth.logout")

	app.Post(controller.Routes.Refresh, controller.RefreshPost).
		SetName("auth.refresh")
}

// LoginRequest payload
type LoginRequest struct {
	Identifier string `form:"identifier" json:"identifier"`
	Password   string `form:"password" json:"password"`
	RememberMe bool   `form:"remember_me" json:"remember_me"`
}

// GetIdentifier returns the identifier
func (r LoginRequest) GetIdentifier() string {
	return r.Identifier
}

// GetPassword will return the password
func (r LoginRequest) GetPassword() string {
	return r.Password
}

// GetRememberMe reports whether an extended session was requested
func (r LoginRequest) GetRememberMe() bool {
	return r.RememberMe
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Identifier,
			validation.Required,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

// TokenResponse is the JSON body for successful login and refresh calls.
type TokenResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
	ExpiresIn int64  `json:"expires_in"`
}

// LoginPost handles POST /login: guard checks, credential verification,
// token issuance. 400 on an invalid payload, 401 on bad credentials, 429
// when the attempt guard blocked the request.
func (a *AuthController) LoginPost(ctx router.Context) error {
	payload := new(LoginRequest)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Info("login payload bind error", "error", err)
		return ctx.JSON(router.StatusBadRequest, map[string]any{
			"error": "invalid request payload",
		})
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(router.StatusBadRequest, map[string]any{
			"error":      "invalid request payload",
			"validation": err.Error(),
		})
	}

	token, err := a.Auther.Login(ctx, payload)
	if err != nil {
		return a.Auther.ErrorHandler(ctx, err)
	}

	return ctx.JSON(router.StatusOK, a.tokenResponse(token, payload.GetRememberMe()))
}

// LogoutPost clears the session cookie; nothing is invalidated server side.
func (a *AuthController) LogoutPost(ctx router.Context) error {
	a.Auther.Logout(ctx)
	return ctx.NoContent(router.StatusNoContent)
}

// RefreshPost re-issues the caller's token. 401 when no token is present
// or the token is malformed; expired tokens refresh normally.
func (a *AuthController) RefreshPost(ctx router.Context) error {
	token, err := a.Auther.Refresh(ctx)
	if err != nil {
		return a.Auther.ErrorHandler(ctx, err)
	}

	remembered := false
	if ts, ok := a.Auther.auth.(interface{ TokenService() TokenService }); ok {
		if claims, derr := ts.TokenService().Decode(token); derr == nil {
			remembered = claims.Remembered()
		}
	}

	return ctx.JSON(router.StatusOK, a.tokenResponse(token, remembered))
}

func (a *AuthController) tokenResponse(token string, remembered bool) TokenResponse {
	expiresIn := a.Auther.cfg.GetTokenExpiration()
	if remembered {
		expiresIn = a.Auther.cfg.GetExtendedTokenDuration()
	}

	return TokenResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresIn: expiresIn / 1000,
	}
}
