package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"codescout/internal/agent"
	"codescout/internal/auth"
	"codescout/internal/config"
	"codescout/internal/handler"
	"codescout/internal/middleware"
	"codescout/internal/repository/postgres"
	"codescout/internal/service"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	cfg := config.Load()

	logLevel := slog.LevelInfo
	if cfg.Environment == "dev" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"table_prefix", cfg.TablePrefix,
	)

	jwtVerifier, err := auth.NewJWTVerifier(cfg.JWKSURL, logger)
	if err != nil {
		log.Fatalf("Failed to create JWT verifier: %v", err)
	}
	defer jwtVerifier.Close()

	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to create connection pool: %v", err)
	}
	defer pool.Close()

	logger.Info("database connected")

	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: postgres.NewTableNames(cfg.TablePrefix),
		Logger: logger,
	}
	convRepo := postgres.NewConversationRepository(repoConfig)
	repoRepo := postgres.NewRepoRepository(repoConfig)

	convService := service.NewConversationService(convRepo, repoRepo, logger)
	repoService := service.NewRepoService(repoRepo, logger)

	// Agent event source. The scripted source stands in for the real engine
	// in dev; the relay protocol is identical either way.
	catalog, err := agent.LoadCatalog()
	if err != nil {
		log.Fatalf("Failed to load tool catalog: %v", err)
	}
	source := agent.NewScriptedSource(catalog)
	source.Delay = cfg.AgentWordDelay
	source.Rounds = cfg.AgentRounds

	convHandler := handler.NewConversationHandler(convService, logger)
	repoHandler := handler.NewRepoHandler(repoService, logger)
	streamHandler := handler.NewStreamHandler(source, convService, logger)
	healthHandler := handler.NewHealthHandler(pool)

	logger.Info("services initialized")

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", healthHandler.Check)

	// Repo routes
	mux.HandleFunc("POST /api/repos", repoHandler.RegisterRepo)
	mux.HandleFunc("GET /api/repos", repoHandler.ListRepos)
	mux.HandleFunc("GET /api/repos/{id}", repoHandler.GetRepo)
	mux.HandleFunc("PATCH /api/repos/{id}", repoHandler.UpdateRepo)
	mux.HandleFunc("DELETE /api/repos/{id}", repoHandler.DeleteRepo)

	// Conversation routes
	mux.HandleFunc("POST /api/conversations", convHandler.CreateConversation)
	mux.HandleFunc("GET /api/conversations", convHandler.ListConversations)
	mux.HandleFunc("GET /api/conversations/{id}", convHandler.GetConversation)
	mux.HandleFunc("PATCH /api/conversations/{id}", convHandler.UpdateConversation)
	mux.HandleFunc("DELETE /api/conversations/{id}", convHandler.DeleteConversation)
	mux.HandleFunc("GET /api/conversations/{id}/turns", convHandler.ListTurns)
	mux.HandleFunc("POST /api/conversations/{id}/turns", convHandler.AppendTurn)
	mux.HandleFunc("PATCH /api/turns/{id}", convHandler.PatchTurn)

	// Streaming route
	mux.HandleFunc("POST /api/conversations/{id}/stream", streamHandler.StreamRun)

	// Build middleware chain
	// Order: CORS → Recovery → Auth → Routes
	var httpHandler http.Handler = mux
	httpHandler = middleware.Auth(jwtVerifier)(httpHandler)
	httpHandler = middleware.Recovery(logger)(httpHandler)

	// CORS - Must be before auth to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization", "Last-Event-ID"},
		AllowCredentials: true,
	})
	httpHandler = corsHandler.Handler(httpHandler)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      httpHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // Disabled to allow long-lived SSE streams
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("server listening", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Failed to start server: %v", err)
	}
}
