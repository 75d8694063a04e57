package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/linkup-social/chat-engine/internal/types"
)

func TestSessionHandler(t *testing.T) {
	t.Run("returns the authenticated user", func(t *testing.T) {
		a := newTestApp(t)

		r := httptest.NewRequest(http.MethodGet, "/api/session", nil)
		r = r.WithContext(WithIdentity(r.Context(), Identity{UserId: "user-1", DisplayName: "Alice"}))

		rec := httptest.NewRecorder()
		a.session(rec, r)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		var user types.User
		assert.NoError(t, json.NewDecoder(rec.Body).Decode(&user))
		assert.Equal(t, "user-1", user.Id)
		assert.Equal(t, "Alice", user.DisplayName)
	})

	t.Run("rejects requests without identity", func(t *testing.T) {
		a := newTestApp(t)

		rec := httptest.NewRecorder()
		a.session(rec, httptest.NewRequest(http.MethodGet, "/api/session", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestServeWsRejectsUnauthenticated(t *testing.T) {
	a := newTestApp(t)

	rec := httptest.NewRecorder()
	a.serveWs(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestNotFoundHandler(t *testing.T) {
	a := newTestApp(t)

	rec := httptest.NewRecorder()
	a.notFound(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status_code":404,"message":"not found"}`, rec.Body.String())
}

func TestWriteJson(t *testing.T) {
	t.Run("encodes the payload", func(t *testing.T) {
		a := newTestApp(t)

		rec := httptest.NewRecorder()
		a.writeJson(rec, http.StatusOK, map[string]string{"status": "ok"})

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	})

	t.Run("nil payload writes only the status", func(t *testing.T) {
		a := newTestApp(t)

		rec := httptest.NewRecorder()
		a.writeJson(rec, http.StatusNoContent, nil)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Empty(t, rec.Body.String())
	})
}
