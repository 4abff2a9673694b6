package identity_test

import (
	"context"
	"testing"

	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	identity "github.com/identityforge/go-identity"
)

func newTestController(mockAuth *MockAuthenticator) *identity.AuthController {
	cfg := identity.NewSimpleConfig("test-signing-key")
	routeAuth := identity.NewRouteAuthenticator(mockAuth, cfg)
	return identity.NewAuthController(identity.WithAuther(routeAuth))
}

func bindLoginRequest(mockCtx *MockContext, req identity.LoginRequest) {
	mockCtx.On("Bind", mock.AnythingOfType("*identity.LoginRequest")).
		Run(func(args mock.Arguments) {
			payload := args.Get(0).(*identity.LoginRequest)
			*payload = req
		}).
		Return(nil)
}

func TestAuthController_LoginPost(t *testing.T) {
	t.Run("successful login returns a bearer token response", func(t *testing.T) {
		mockAuth := new(MockAuthenticator)
		mockCtx := new(MockContext)

		bindLoginRequest(mockCtx, identity.LoginRequest{
			Identifier: "alice",
			Password:   "s3cret",
		})

		mockCtx.On("IP").Return("1.2.3.4")
		mockCtx.On("Context").Return(context.Background())
		mockAuth.On("Login", mock.Anything, identity.LoginAttempt{
			Identifier: "alice",
			Password:   "s3cret",
			ClientAddr: "1.2.3.4",
		}).Return("signed.jwt.token", nil)

		mockCtx.On("JSON", router.StatusOK, identity.TokenResponse{
			Token:     "signed.jwt.token",
			TokenType: "Bearer",
			ExpiresIn: 900,
		}).Return(nil)

		controller := newTestController(mockAuth)

		err := controller.LoginPost(mockCtx)
		require.NoError(t, err)

		mockCtx.AssertExpectations(t)
		mockAuth.AssertExpectations(t)
	})

	t.Run("remembered login reports the extended expiry", func(t *testing.T) {
		mockAuth := new(MockAuthenticator)
		mockCtx := new(MockContext)

		bindLoginRequest(mockCtx, identity.LoginRequest{
			Identifier: "alice",
			Password:   "s3cret",
			RememberMe: true,
		})

		mockCtx.On("IP").Return("1.2.3.4")
		mockCtx.On("Context").Return(context.Background())
		mockCtx.On("Cookie", mock.Anything).Return()
		mockAuth.On("Login", mock.Anything, mock.Anything).Return("signed.jwt.token", nil)

		mockCtx.On("JSON", router.StatusOK, identity.TokenResponse{
			Token:     "signed.jwt.token",
			TokenType: "Bearer",
			ExpiresIn: 2_592_000,
		}).Return(nil)

		controller := newTestController(mockAuth)

		err := controller.LoginPost(mockCtx)
		require.NoError(t, err)

		mockCtx.AssertExpectations(t)
	})

	t.Run("bind failure yields 400", func(t *testing.T) {
		mockAuth := new(MockAuthenticator)
		mockCtx := new(MockContext)

		mockCtx.On("Bind", mock.Anything).Return(assert.AnError)
		mockCtx.On("JSON", router.StatusBadRequest, mock.Anything).Return(nil)

		controller := newTestController(mockAuth)

		err := controller.LoginPost(mockCtx)
		require.NoError(t, err)

		mockAuth.AssertNotCalled(t, "Login", mock.Anything, mock.Anything)
	})

	t.Run("missing fields yield 400 with validation detail", func(t *testing.T) {
		mockAuth := new(MockAuthenticator)
		mockCtx := new(MockContext)

		bindLoginRequest(mockCtx, identity.LoginRequest{Identifier: "alice"})

		mockCtx.On("JSON", router.StatusBadRequest, mock.MatchedBy(func(body map[string]any) bool {
			_, hasDetail := body["validation"]
			return hasDetail
		})).Return(nil)

		controller := newTestController(mockAuth)

		err := controller.LoginPost(mockCtx)
		require.NoError(t, err)

		mockAuth.AssertNotCalled(t, "Login", mock.Anything, mock.Anything)
	})

	t.Run("guard block yields 429", func(t *testing.T) {
		mockAuth := new(MockAuthenticator)
		mockCtx := new(MockContext)

		bindLoginRequest(mockCtx, identity.LoginRequest{
			Identifier: "alice",
			Password:   "s3cret",
		})

		mockCtx.On("IP").Return("1.2.3.4")
		mockCtx.On("Context").Return(context.Background())
		mockAuth.On("Login", mock.Anything, mock.Anything).
			Return("", identity.ErrTooManyLoginAttempts)

		mockCtx.On("JSON", 429, mock.MatchedBy(func(body map[string]any) bool {
			return body["code"] == identity.TextCodeTooManyAttempts
		})).Return(nil)

		controller := newTestController(mockAuth)

		err := controller.LoginPost(mockCtx)
		require.NoError(t, err)

		mockCtx.AssertExpectations(t)
	})

	t.Run("bad credentials yield 401", func(t *testing.T) {
		mockAuth := new(MockAuthenticator)
		mockCtx := new(MockContext)

		bindLoginRequest(mockCtx, identity.LoginRequest{
			Identifier: "alice",
			Password:   "wrong",
		})

		mockCtx.On("IP").Return("1.2.3.4")
		mockCtx.On("Context").Return(context.Background())
		mockAuth.On("Login", mock.Anything, mock.Anything).
			Return("", identity.ErrMismatchedHashAndPassword)

		mockCtx.On("JSON", 401, mock.MatchedBy(func(body map[string]any) bool {
			return body["code"] == identity.TextCodeInvalidCreds
		})).Return(nil)

		controller := newTestController(mockAuth)

		err := controller.LoginPost(mockCtx)
		require.NoError(t, err)

		mockCtx.AssertExpectations(t)
	})
}

func TestAuthController_LogoutPost(t *testing.T) {
	mockAuth := new(MockAuthenticator)
	mockCtx := new(MockContext)

	mockCtx.On("Cookie", mock.MatchedBy(func(c *router.Cookie) bool {
		return c.Name == identity.DefaultCookieName && c.Value == ""
	})).Return()
	mockCtx.On("NoContent", router.StatusNoContent).Return(nil)

	controller := newTestController(mockAuth)

	err := controller.LogoutPost(mockCtx)
	require.NoError(t, err)

	mockCtx.AssertExpectations(t)
}

func TestAuthController_RefreshPost(t *testing.T) {
	t.Run("re-issues the current token", func(t *testing.T) {
		mockAuth := new(MockAuthenticator)
		mockCtx := new(MockContext)

		mockCtx.On("Header", router.HeaderAuthorization).Return("Bearer current.jwt.token")
		mockCtx.On("Context").Return(context.Background())
		mockAuth.On("Refresh", mock.Anything, "current.jwt.token").Return("fresh.jwt.token", nil)

		mockCtx.On("JSON", router.StatusOK, identity.TokenResponse{
			Token:     "fresh.jwt.token",
			TokenType: "Bearer",
			ExpiresIn: 900,
		}).Return(nil)

		controller := newTestController(mockAuth)

		err := controller.RefreshPost(mockCtx)
		require.NoError(t, err)

		mockCtx.AssertExpectations(t)
	})

	t.Run("missing token yields 401", func(t *testing.T) {
		mockAuth := new(MockAuthenticator)
		mockCtx := new(MockContext)

		mockCtx.On("Header", router.HeaderAuthorization).Return("")
		mockCtx.On("Cookies", identity.DefaultCookieName).Return("")

		mockCtx.On("JSON", 401, mock.MatchedBy(func(body map[string]any) bool {
			return body["code"] == identity.TextCodeSessionNotFound
		})).Return(nil)

		controller := newTestController(mockAuth)

		err := controller.RefreshPost(mockCtx)
		require.NoError(t, err)

		mockCtx.AssertExpectations(t)
	})

	t.Run("malformed token yields 401", func(t *testing.T) {
		mockAuth := new(MockAuthenticator)
		mockCtx := new(MockContext)

		mockCtx.On("Header", router.HeaderAuthorization).Return("Bearer bad.jwt.token")
		mockCtx.On("Context").Return(context.Background())
		mockAuth.On("Refresh", mock.Anything, "bad.jwt.token").
			Return("", identity.ErrTokenMalformed)

		mockCtx.On("JSON", 401, mock.MatchedBy(func(body map[string]any) bool {
			return body["code"] == identity.TextCodeTokenMalformed
		})).Return(nil)

		controller := newTestController(mockAuth)

		err := controller.RefreshPost(mockCtx)
		require.NoError(t, err)

		mockCtx.AssertExpectations(t)
	})
}

func TestLoginRequest_Validate(t *testing.T) {
	t.Run("requires identifier and password", func(t *testing.T) {
		assert.Error(t, identity.LoginRequest{}.Validate())
		assert.Error(t, identity.LoginRequest{Identifier: "alice"}.Validate())
		assert.Error(t, identity.LoginRequest{Password: "s3cret"}.Validate())
		assert.NoError(t, identity.LoginRequest{Identifier: "alice", Password: "s3cret"}.Validate())
	})

	t.Run("payload accessors", func(t *testing.T) {
		req := identity.LoginRequest{Identifier: "alice", Password: "s3cret", RememberMe: true}
		assert.Equal(t, "alice", req.GetIdentifier())
		assert.Equal(t, "s3cret", req.GetPassword())
		assert.True(t, req.GetRememberMe())
	})
}
