package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/linkup-social/chat-engine/internal/api"
	"github.com/linkup-social/chat-engine/internal/config"
	"github.com/linkup-social/chat-engine/internal/database"
	"github.com/linkup-social/chat-engine/internal/notify"
	"github.com/linkup-social/chat-engine/internal/ratelimit"
	"github.com/linkup-social/chat-engine/internal/sanitize"
	"github.com/linkup-social/chat-engine/internal/server"
	"github.com/linkup-social/chat-engine/internal/stats"
)

const defaultSigningKey = "wT0phFUusHZIrDhL9bUKPUhwaxKhpi/SaI6PtgB+MgU="

type stringSliceFlag []string

func (s *stringSliceFlag) String() string {
	return strings.Join(*s, ",")
}

func (s *stringSliceFlag) Set(value string) error {
	*s = append(*s, strings.Split(value, ",")...)
	return nil
}

var (
	addr           string
	dsn            string
	signingKey     string
	amqpURL        string
	notifyExchange string
	migrationsDir  string
	sendRate       float64
	sendBurst      int
	allowedOrigins stringSliceFlag
)

func main() {
	flag.StringVar(&addr, "addr", "localhost:8000", "server address")
	flag.StringVar(&dsn, "dsn", "host=localhost user=postgres password=postgres dbname=postgres sslmode=disable", "database connection string")
	flag.StringVar(&signingKey, "signing-key", defaultSigningKey, "base64 encoded signing key")
	flag.StringVar(&amqpURL, "amqp-url", "", "AMQP broker URL for push notifications (optional)")
	flag.StringVar(&notifyExchange, "notify-exchange", "notifications", "AMQP exchange for push notifications")
	flag.StringVar(&migrationsDir, "migrations", "migrations", "path to database migrations")
	flag.Float64Var(&sendRate, "send-rate", 5, "allowed message sends per second per user")
	flag.IntVar(&sendBurst, "send-burst", 10, "message send burst size per user")
	flag.Var(&allowedOrigins, "allowed-origins", "comma-separated list of allowed origins for CORS")
	flag.Parse()

	logger := log.New(os.Stderr, "[chat-engine] ", log.LstdFlags)

	cfg, err := config.NewConfig(addr, dsn, signingKey, allowedOrigins, amqpURL, notifyExchange)
	if err != nil {
		logger.Fatal("config:", err)
	}

	dbConn, err := database.NewPgChatRepository(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("db open:", err)
	}
	if err := dbConn.Migrate(migrationsDir); err != nil {
		logger.Fatal("migrations:", err)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Println("db close:", err)
		}
	}()

	var notifier notify.Notifier = notify.Noop{}
	if cfg.AMQPURL != "" {
		notifier, err = notify.NewAMQPNotifier(cfg.AMQPURL, cfg.NotifyExchange, logger)
		if err != nil {
			logger.Fatal("amqp:", err)
		}
		defer notifier.Close()
	}

	mux := http.NewServeMux()

	statsUpdater := stats.NewStatsUpdater(mux)

	chatServer, err := server.NewChatServer(
		logger,
		dbConn,
		ratelimit.NewTokenBucketLimiter(sendRate, sendBurst),
		sanitize.NewContentSanitizer(),
		notifier,
		statsUpdater,
	)
	if err != nil {
		logger.Fatal("new chat server:", err)
	}

	srv := api.NewChatApp(mux, logger, chatServer, dbConn, cfg)

	statsUpdater.Run()
	defer statsUpdater.Stop()

	go chatServer.Run()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Printf("received signal: %s\n", sig)
	case err := <-errCh:
		logger.Println("server:", err)
	}

	shutDownCtx, cancel := context.WithTimeout(
		context.Background(),
		10*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("HTTP server shutdown:", err)
	}

	logger.Println("shutting down chat server...")
	if err := chatServer.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("chat server shutdown:", err)
	}

	logger.Println("shutdown complete")
}
