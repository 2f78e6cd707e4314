package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"chatline-backend/internal/chatlock"
	"chatline-backend/internal/chatstore"
	"chatline-backend/internal/config"
	"chatline-backend/internal/database"
	"chatline-backend/internal/events"
	"chatline-backend/internal/handlers"
	"chatline-backend/internal/middleware"
	"chatline-backend/internal/router"
	"chatline-backend/internal/services"
	"chatline-backend/internal/websocket"
	"chatline-backend/internal/worker"
)

func main() {
	log.Println("Starting chatline backend...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	// ──── Step 2: Redis (optional) ────
	var redisClients *database.RedisClients
	if cfg.RedisURL != "" {
		rc, err := database.NewRedisClients(cfg.RedisURL)
		if err != nil {
			log.Fatalf("✗ Redis connection failed: %v", err)
		}
		redisClients = rc
		defer redisClients.Close()
		log.Println("✓ Redis connected")
	}

	// ──── Step 3: Chat Store ────
	store, cleanup, err := buildStore(cfg, redisClients)
	if err != nil {
		log.Fatalf("✗ Chat store initialization failed: %v", err)
	}
	if cleanup != nil {
		defer cleanup()
	}
	log.Printf("✓ Chat store ready (backend: %s)", cfg.StoreBackend)

	// ──── Step 4: Gemini Client ────
	geminiService, err := services.NewGeminiService(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiConcurrentReqs)
	if err != nil {
		log.Fatalf("✗ Gemini client initialization failed: %v", err)
	}
	defer geminiService.Close()
	log.Printf("✓ Gemini client initialized (model: %s)", cfg.GeminiModel)

	// ──── Step 5: Auth (optional) ────
	var jwtAuth *middleware.JWTAuth
	var authHandler *handlers.AuthHandler
	if cfg.AuthSecret != "" {
		jwtAuth = middleware.NewJWTAuth(cfg.AuthSecret)
		authHandler = handlers.NewAuthHandler(jwtAuth)
		log.Println("✓ Guest-token auth enabled")
	}

	// ──── Step 6: Events, Worker Pool, WebSocket Hub ────
	var publisher *events.Publisher
	var wsHub *websocket.Hub
	if redisClients != nil {
		publisher = events.NewPublisher(redisClients.Store)
		wsHub = websocket.NewHub(redisClients.PubSub, jwtAuth)

		titlePool := worker.NewPool(redisClients.Store, geminiService, store, publisher, cfg.TitleWorkerCount)
		titlePool.Start()
		defer titlePool.Stop()
		log.Printf("✓ Title worker pool started (%d goroutines)", cfg.TitleWorkerCount)
	} else {
		publisher = events.NewPublisher(nil)
	}

	// ──── Step 7: HTTP Server ────
	locks := chatlock.NewRegistry()
	var queue *redis.Client
	if redisClients != nil {
		queue = redisClients.Store
	}
	chatHandler := handlers.NewChatHandler(store, geminiService, locks, publisher, queue, cfg.StreamTimeout)

	r := router.New(jwtAuth, authHandler, chatHandler, wsHub, cfg.FrontendURL)

	server := &http.Server{
		Addr:        fmt.Sprintf(":%s", cfg.Port),
		Handler:     r,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: SSE streams are bounded by STREAM_TIMEOUT_SECONDS
		IdleTimeout: 60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("✓ chatline backend ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api/v1", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}

func buildStore(cfg *config.Config, redisClients *database.RedisClients) (chatstore.ChatStore, func(), error) {
	switch cfg.StoreBackend {
	case "file":
		s, err := chatstore.NewFileStore(cfg.StorePath)
		return s, nil, err
	case "memory":
		return chatstore.NewMemoryStore(), nil, nil
	case "redis":
		return chatstore.NewRedisStore(redisClients.Store), nil, nil
	case "postgres":
		pool, err := database.NewPostgresPool(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		s, err := chatstore.NewPostgresStore(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		return s, pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
