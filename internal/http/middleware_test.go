package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/room-reservation/internal/application"
)

type stubValidator struct {
	principal application.Principal
	err       error
	token     string
}

func (s *stubValidator) ValidateSession(_ context.Context, token string) (application.Principal, error) {
	s.token = token
	return s.principal, s.err
}

func TestRequireSession(t *testing.T) {
	t.Parallel()

	t.Run("rejects requests without a token", func(t *testing.T) {
		t.Parallel()

		validator := &stubValidator{}
		handler := RequireSession(validator, nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			t.Fatal("next handler should not run without a token")
		}))

		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/bookings", nil))

		require.Equal(t, http.StatusUnauthorized, recorder.Code)
		assert.Empty(t, validator.token)
	})

	t.Run("maps session errors to 401 with distinct codes", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name string
			err  error
			code string
		}{
			{"expired", application.ErrSessionExpired, "AUTH_SESSION_EXPIRED"},
			{"revoked", application.ErrSessionRevoked, "AUTH_SESSION_REVOKED"},
			{"unknown token", application.ErrUnauthorized, "AUTH_INVALID_SESSION"},
		}
		for _, tt := range tests {
			tt := tt
			t.Run(tt.name, func(t *testing.T) {
				t.Parallel()

				handler := RequireSession(&stubValidator{err: tt.err}, nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
					t.Fatal("next handler should not run for an invalid session")
				}))

				req := httptest.NewRequest(http.MethodGet, "/bookings", nil)
				req.Header.Set("Authorization", "Bearer some-token")

				recorder := httptest.NewRecorder()
				handler.ServeHTTP(recorder, req)

				require.Equal(t, http.StatusUnauthorized, recorder.Code)
				assert.Contains(t, recorder.Body.String(), tt.code)
			})
		}
	})

	t.Run("attaches the principal for downstream handlers", func(t *testing.T) {
		t.Parallel()

		validator := &stubValidator{principal: application.Principal{UserID: "user-1", IsAdmin: true}}

		var seen application.Principal
		handler := RequireSession(validator, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen, _ = PrincipalFromContext(r.Context())
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodGet, "/bookings", nil)
		req.AddCookie(&http.Cookie{Name: "session_token", Value: "cookie-token"})

		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, req)

		require.Equal(t, http.StatusOK, recorder.Code)
		assert.Equal(t, "cookie-token", validator.token)
		assert.Equal(t, "user-1", seen.UserID)
		assert.True(t, seen.IsAdmin)
	})

	t.Run("prefers the bearer header over the cookie", func(t *testing.T) {
		t.Parallel()

		validator := &stubValidator{principal: application.Principal{UserID: "user-1"}}
		handler := RequireSession(validator, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodGet, "/bookings", nil)
		req.Header.Set("Authorization", "Bearer header-token")
		req.AddCookie(&http.Cookie{Name: "session_token", Value: "cookie-token"})

		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, req)

		require.Equal(t, http.StatusOK, recorder.Code)
		assert.Equal(t, "header-token", validator.token)
	})
}

func TestRequestLogger(t *testing.T) {
	t.Parallel()

	var sawLogger bool
	handler := RequestLogger(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawLogger = LoggerFromContext(r.Context()) != nil
		w.WriteHeader(http.StatusOK)
	}))

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/rooms", nil))

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.True(t, sawLogger)
}
