package api

import (
	"encoding/json"
	"net/http"
	"slices"

	"github.com/gorilla/websocket"
	"github.com/teris-io/shortid"

	"github.com/linkup-social/chat-engine/internal/server"
	"github.com/linkup-social/chat-engine/internal/types"
)

func (a *ChatApp) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.log.Printf("json encode: %v", err)
	}
}

// notFound is the fallback for unmatched routes, keeping error
// responses JSON like the rest of the surface.
func (a *ChatApp) notFound(w http.ResponseWriter, r *http.Request) {
	errResp := NewNotFoundError()
	a.writeJson(w, errResp.StatusCode, errResp)
}

func (a *ChatApp) session(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFrom(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		a.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	a.writeJson(w, http.StatusOK, types.User{
		Id:          identity.UserId,
		DisplayName: identity.DisplayName,
	})
}

func (a *ChatApp) serveWs(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFrom(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		a.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}

			return slices.Contains(a.allowedOrigins, origin)
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.log.Println("error upgrading connection:", err)
		return
	}

	connId, err := shortid.Generate()
	if err != nil {
		a.log.Println("generate connection id:", err)
		conn.Close()
		return
	}

	client := server.NewClient(connId, types.User{
		Id:          identity.UserId,
		DisplayName: identity.DisplayName,
	}, conn, r.RemoteAddr, a.cs, a.log)

	a.cs.RegisterChan <- client

	go client.Write()
	go client.Read()
}
