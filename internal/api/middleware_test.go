package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"
)

func TestAuthMiddleware(t *testing.T) {
	t.Run("rejects unauthenticated requests", func(t *testing.T) {
		a := newTestApp(t)

		called := false
		handler := a.authMiddleware(func(w http.ResponseWriter, r *http.Request) {
			called = true
		})

		rec := httptest.NewRecorder()
		handler(rec, httptest.NewRequest(http.MethodGet, "/api/session", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.False(t, called, "expected the handler to be skipped")
	})

	t.Run("passes identity to the handler", func(t *testing.T) {
		a := newTestApp(t)

		var got Identity
		handler := a.authMiddleware(func(w http.ResponseWriter, r *http.Request) {
			got, _ = IdentityFrom(r.Context())
		})

		token := signedToken(t, testSigningKey, jwt.MapClaims{
			userIdClaim:      "user-1",
			displayNameClaim: "Alice",
		})
		r := httptest.NewRequest(http.MethodGet, "/api/session", nil)
		r.AddCookie(&http.Cookie{Name: tokenCookieKey, Value: token})

		rec := httptest.NewRecorder()
		handler(rec, r)

		assert.Equal(t, "user-1", got.UserId)
		assert.Equal(t, "Alice", got.DisplayName)
		assert.Contains(t, rec.Header().Get("Cache-Control"), "no-store")
	})
}

func TestErrorHandler(t *testing.T) {
	t.Run("recovers from a panicking handler", func(t *testing.T) {
		a := newTestApp(t)

		handler := a.errorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("something broke")
		}))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/session", nil))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "close", rec.Header().Get("Connection"))
	})

	t.Run("passes healthy requests through", func(t *testing.T) {
		a := newTestApp(t)

		handler := a.errorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/session", nil))

		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}
