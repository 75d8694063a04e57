package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/handlers"

	"github.com/linkup-social/chat-engine/internal/config"
	"github.com/linkup-social/chat-engine/internal/database"
	"github.com/linkup-social/chat-engine/internal/server"
)

// ChatApp is the HTTP surface of the engine: the authenticated
// websocket upgrade endpoint plus a small session probe. Token
// issuance and the rest of the product API live elsewhere.
type ChatApp struct {
	log            *log.Logger
	db             database.ChatRepository
	srv            *http.Server
	cs             *server.ChatServer
	signingKey     []byte
	allowedOrigins []string
}

func NewChatApp(mux *http.ServeMux, logger *log.Logger, cs *server.ChatServer, db database.ChatRepository, cfg *config.Config) *ChatApp {
	a := &ChatApp{
		log:            logger,
		db:             db,
		cs:             cs,
		signingKey:     cfg.SigningKey,
		allowedOrigins: cfg.AllowedOrigins,
	}

	mux.Handle("GET /api/session", a.authMiddleware(a.session))
	mux.Handle("GET /ws", a.authMiddleware(a.serveWs))
	mux.HandleFunc("/", a.notFound)

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept", "Authorization"}),
		handlers.AllowCredentials(),
	)(mux)

	h = a.errorHandler(h)

	a.srv = &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	return a
}

func (a *ChatApp) Start() error {
	a.log.Printf("starting server on %s\n", a.srv.Addr)
	return a.srv.ListenAndServe()
}

func (a *ChatApp) Shutdown(ctx context.Context) error {
	a.log.Println("shutting down HTTP server...")
	if err := a.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
