package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"

	"github.com/linkup-social/chat-engine/internal/testutil"
)

var testSigningKey = []byte("test-signing-key")

func newTestApp(t *testing.T) *ChatApp {
	return &ChatApp{
		log:        testutil.TestLogger(t),
		signingKey: testSigningKey,
	}
}

func signedToken(t *testing.T, key []byte, claims jwt.MapClaims) string {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return token
}

func TestExtractIdentity(t *testing.T) {
	t.Run("valid token cookie", func(t *testing.T) {
		a := newTestApp(t)

		token := signedToken(t, testSigningKey, jwt.MapClaims{
			userIdClaim:      "user-1",
			displayNameClaim: "Alice",
		})

		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		r.AddCookie(&http.Cookie{Name: tokenCookieKey, Value: token})

		identity, err := a.extractIdentity(r)
		assert.NoError(t, err)
		assert.Equal(t, "user-1", identity.UserId)
		assert.Equal(t, "Alice", identity.DisplayName)
	})

	t.Run("valid bearer token", func(t *testing.T) {
		a := newTestApp(t)

		token := signedToken(t, testSigningKey, jwt.MapClaims{
			userIdClaim: "user-1",
		})

		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		r.Header.Set("Authorization", "Bearer "+token)

		identity, err := a.extractIdentity(r)
		assert.NoError(t, err)
		assert.Equal(t, "user-1", identity.UserId)
		assert.Empty(t, identity.DisplayName, "display name claim is optional")
	})

	t.Run("no token", func(t *testing.T) {
		a := newTestApp(t)

		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		_, err := a.extractIdentity(r)
		assert.ErrorContains(t, err, "no token supplied")
	})

	t.Run("token signed with the wrong key", func(t *testing.T) {
		a := newTestApp(t)

		token := signedToken(t, []byte("someone-elses-key"), jwt.MapClaims{
			userIdClaim: "user-1",
		})

		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		r.AddCookie(&http.Cookie{Name: tokenCookieKey, Value: token})

		_, err := a.extractIdentity(r)
		assert.ErrorContains(t, err, "verify token")
	})

	t.Run("missing user id claim", func(t *testing.T) {
		a := newTestApp(t)

		token := signedToken(t, testSigningKey, jwt.MapClaims{
			displayNameClaim: "Alice",
		})

		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		r.AddCookie(&http.Cookie{Name: tokenCookieKey, Value: token})

		_, err := a.extractIdentity(r)
		assert.ErrorContains(t, err, "invalid user id claim")
	})

	t.Run("garbage token", func(t *testing.T) {
		a := newTestApp(t)

		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		r.AddCookie(&http.Cookie{Name: tokenCookieKey, Value: "not-a-jwt"})

		_, err := a.extractIdentity(r)
		assert.Error(t, err)
	})
}

func TestIdentityContext(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		ctx := WithIdentity(context.Background(), Identity{UserId: "user-1", DisplayName: "Alice"})
		identity, ok := IdentityFrom(ctx)
		assert.True(t, ok)
		assert.Equal(t, "user-1", identity.UserId)
	})

	t.Run("absent identity", func(t *testing.T) {
		_, ok := IdentityFrom(context.Background())
		assert.False(t, ok)
	})
}
