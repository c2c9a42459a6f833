package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/room-reservation/internal/application"
)

type stubAuthService struct {
	result       application.AuthenticateResult
	authErr      error
	revokeErr    error
	revokedToken string
	email        string
}

func (s *stubAuthService) Authenticate(_ context.Context, params application.AuthenticateParams) (application.AuthenticateResult, error) {
	s.email = params.Email
	return s.result, s.authErr
}

func (s *stubAuthService) RevokeSession(_ context.Context, token string) error {
	s.revokedToken = token
	return s.revokeErr
}

func TestAuthHandler_CreateSession(t *testing.T) {
	t.Parallel()

	t.Run("issues the token via cookie, header, and body", func(t *testing.T) {
		t.Parallel()

		expires := time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC)
		service := &stubAuthService{
			result: application.AuthenticateResult{
				User:    application.User{ID: "user-1", Email: "alice@example.com"},
				Session: application.Session{Token: "session-token", ExpiresAt: expires},
			},
		}
		handler := NewAuthHandler(service, nil)

		req := httptest.NewRequest(http.MethodPost, "/sessions", strings.NewReader(`{"email":"Alice@Example.com","password":"correct horse"}`))
		recorder := httptest.NewRecorder()
		handler.CreateSession(recorder, req)

		require.Equal(t, http.StatusCreated, recorder.Code)
		assert.Equal(t, "alice@example.com", service.email)
		assert.Equal(t, "session-token", recorder.Header().Get("X-Session-Token"))

		cookies := recorder.Result().Cookies()
		require.NotEmpty(t, cookies)
		assert.Equal(t, "session_token", cookies[0].Name)
		assert.Equal(t, "session-token", cookies[0].Value)
		assert.True(t, cookies[0].HttpOnly)

		var resp loginResponse
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &resp))
		assert.Equal(t, "session-token", resp.Token)
		assert.Equal(t, "2026-03-03T09:00:00Z", resp.ExpiresAt)
	})

	t.Run("maps invalid credentials to 401", func(t *testing.T) {
		t.Parallel()

		service := &stubAuthService{authErr: application.ErrInvalidCredentials}
		handler := NewAuthHandler(service, nil)

		req := httptest.NewRequest(http.MethodPost, "/sessions", strings.NewReader(`{"email":"alice@example.com","password":"wrong"}`))
		recorder := httptest.NewRecorder()
		handler.CreateSession(recorder, req)

		require.Equal(t, http.StatusUnauthorized, recorder.Code)
		assert.Contains(t, recorder.Body.String(), "AUTH_INVALID_CREDENTIALS")
	})

	t.Run("rejects a malformed body", func(t *testing.T) {
		t.Parallel()

		handler := NewAuthHandler(&stubAuthService{}, nil)

		req := httptest.NewRequest(http.MethodPost, "/sessions", strings.NewReader("{"))
		recorder := httptest.NewRecorder()
		handler.CreateSession(recorder, req)

		require.Equal(t, http.StatusBadRequest, recorder.Code)
	})
}

func TestAuthHandler_DeleteCurrentSession(t *testing.T) {
	t.Parallel()

	t.Run("revokes the presented token and clears the cookie", func(t *testing.T) {
		t.Parallel()

		service := &stubAuthService{}
		handler := NewAuthHandler(service, nil)

		req := httptest.NewRequest(http.MethodDelete, "/sessions/current", nil)
		req.Header.Set("Authorization", "Bearer session-token")

		recorder := httptest.NewRecorder()
		handler.DeleteCurrentSession(recorder, req)

		require.Equal(t, http.StatusNoContent, recorder.Code)
		assert.Equal(t, "session-token", service.revokedToken)

		cookies := recorder.Result().Cookies()
		require.NotEmpty(t, cookies)
		assert.Equal(t, -1, cookies[0].MaxAge)
	})

	t.Run("requires a token", func(t *testing.T) {
		t.Parallel()

		service := &stubAuthService{}
		handler := NewAuthHandler(service, nil)

		recorder := httptest.NewRecorder()
		handler.DeleteCurrentSession(recorder, httptest.NewRequest(http.MethodDelete, "/sessions/current", nil))

		require.Equal(t, http.StatusUnauthorized, recorder.Code)
		assert.Empty(t, service.revokedToken)
	})
}

func TestAuthHandler_DeleteSession(t *testing.T) {
	t.Parallel()

	t.Run("allows administrators to revoke by token", func(t *testing.T) {
		t.Parallel()

		service := &stubAuthService{}
		handler := NewAuthHandler(service, nil)

		req := httptest.NewRequest(http.MethodDelete, "/sessions/other-token", nil)
		req = req.WithContext(ContextWithPrincipal(req.Context(), application.Principal{UserID: "admin-1", IsAdmin: true}))

		recorder := httptest.NewRecorder()
		handler.DeleteSession(recorder, req, "other-token")

		require.Equal(t, http.StatusNoContent, recorder.Code)
		assert.Equal(t, "other-token", service.revokedToken)
	})

	t.Run("refuses non-administrators", func(t *testing.T) {
		t.Parallel()

		service := &stubAuthService{}
		handler := NewAuthHandler(service, nil)

		req := httptest.NewRequest(http.MethodDelete, "/sessions/other-token", nil)
		req = req.WithContext(ContextWithPrincipal(req.Context(), application.Principal{UserID: "user-1"}))

		recorder := httptest.NewRecorder()
		handler.DeleteSession(recorder, req, "other-token")

		require.Equal(t, http.StatusForbidden, recorder.Code)
		assert.Empty(t, service.revokedToken)
	})
}
