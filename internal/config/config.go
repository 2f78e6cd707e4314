package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port string
	Env  string

	// Chat store
	StoreBackend string // "file", "memory", "redis", "postgres"
	StorePath    string
	DatabaseURL  string

	// Redis (optional: title queue, pub/sub, redis store backend)
	RedisURL string

	// Gemini AI
	GeminiAPIKey         string
	GeminiModel          string
	GeminiConcurrentReqs int

	// Streaming
	StreamTimeout time.Duration

	// Auth (optional: guest tokens when set)
	AuthSecret string

	// Title worker
	TitleWorkerCount int

	// Frontend
	FrontendURL string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:                 getEnvOrDefault("PORT", "8080"),
		Env:                  getEnvOrDefault("ENV", "development"),
		StoreBackend:         getEnvOrDefault("STORE_BACKEND", "file"),
		StorePath:            getEnvOrDefault("STORE_PATH", "./data/chats"),
		DatabaseURL:          getEnvOrDefault("DATABASE_URL", ""),
		RedisURL:             getEnvOrDefault("REDIS_URL", ""),
		GeminiAPIKey:         mustGetEnv("GEMINI_API_KEY"),
		GeminiModel:          getEnvOrDefault("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiConcurrentReqs: getEnvAsIntOrDefault("GEMINI_CONCURRENT_REQUESTS", 5),
		StreamTimeout:        time.Duration(getEnvAsIntOrDefault("STREAM_TIMEOUT_SECONDS", 120)) * time.Second,
		AuthSecret:           getEnvOrDefault("AUTH_SECRET", ""),
		TitleWorkerCount:     getEnvAsIntOrDefault("TITLE_WORKER_COUNT", 2),
		FrontendURL:          getEnvOrDefault("FRONTEND_URL", "http://localhost:5173"),
	}

	switch cfg.StoreBackend {
	case "file", "memory":
	case "redis":
		if cfg.RedisURL == "" {
			panic("STORE_BACKEND=redis requires REDIS_URL")
		}
	case "postgres":
		if cfg.DatabaseURL == "" {
			panic("STORE_BACKEND=postgres requires DATABASE_URL")
		}
	default:
		panic(fmt.Sprintf("unknown STORE_BACKEND %q", cfg.StoreBackend))
	}

	return cfg
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}
