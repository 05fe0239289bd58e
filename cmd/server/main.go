package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/abbaskhalil042/smart-talk/internal/ai"
	"github.com/abbaskhalil042/smart-talk/internal/api"
	"github.com/abbaskhalil042/smart-talk/internal/api/middleware"
	"github.com/abbaskhalil042/smart-talk/internal/auth"
	"github.com/abbaskhalil042/smart-talk/internal/config"
	"github.com/abbaskhalil042/smart-talk/internal/handlers"
	"github.com/abbaskhalil042/smart-talk/internal/store"
	"github.com/abbaskhalil042/smart-talk/internal/ws"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	var logger zerolog.Logger
	if cfg.IsDevelopment() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
	} else {
		logger = zerolog.New(os.Stdout).
			With().
			Timestamp().
			Logger()
	}

	ctx := context.Background()

	// Initialize the durable store: PostgreSQL when configured, SQLite
	// otherwise (development)
	var dataStore store.DataStore
	if cfg.DatabaseURL != "" {
		logger.Info().Msg("running database migrations...")
		if err := store.RunMigrations(cfg.DatabaseURL); err != nil {
			logger.Fatal().Err(err).Msg("migration failed")
		}
		logger.Info().Msg("migrations completed")

		pgStore, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres connection failed")
		}
		dataStore = pgStore
		logger.Info().Msg("connected to PostgreSQL")
	} else {
		sqliteStore, err := store.NewSQLiteStore(ctx, cfg.SQLitePath)
		if err != nil {
			logger.Fatal().Err(err).Msg("sqlite open failed")
		}
		dataStore = sqliteStore
		logger.Info().Msg("using SQLite store")
	}
	defer dataStore.Close()

	// Initialize Redis (optional: recent-message cache and presence)
	var redisStore *store.RedisStore
	if cfg.RedisURL != "" {
		var err error
		redisStore, err = store.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connection failed")
		}
		defer redisStore.Close()
		logger.Info().Msg("connected to Redis")
	}

	// Initialize the completion adapter
	var completer ai.Completer
	if cfg.GeminiAPIKey != "" {
		var err error
		completer, err = ai.NewGeminiCompleter(ctx, cfg.GeminiAPIKey, cfg.AIModel)
		if err != nil {
			logger.Fatal().Err(err).Msg("gemini client failed")
		}
		logger.Info().Str("model", cfg.AIModel).Msg("AI completion enabled")
	} else {
		completer = ai.Disabled()
		logger.Warn().Msg("no GEMINI_API_KEY set, assistant replies degrade to placeholder")
	}

	// Wire the realtime engine
	verifier := auth.NewVerifier(cfg.JWTSecret)
	hub := ws.NewHub(logger)

	var cache ws.MessageCache
	var presence ws.Presence
	if redisStore != nil {
		cache = redisStore
		presence = redisStore
	}

	router := ws.NewRouter(hub, dataStore, cache, completer, cfg.AITimeout, logger)
	authn := ws.NewAuthenticator(dataStore, verifier)
	socket := ws.NewServer(hub, router, authn, presence, logger)

	// Wire the HTTP API
	h := handlers.NewHandler(dataStore, redisStore, completer, cfg.AITimeout)
	authmw := middleware.NewAuthMiddleware(verifier)
	mux := api.NewRouter(logger, h, authmw, socket)

	// Create server
	srv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     mux,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: it would sever long-lived websocket connections.
		IdleTimeout: 60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("env", cfg.Env).
			Msg("starting smart-talk server")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server...")

	// Graceful shutdown with 30 second timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server stopped")
}
