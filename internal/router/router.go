package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"chatline-backend/internal/handlers"
	"chatline-backend/internal/middleware"
	"chatline-backend/internal/websocket"
)

func New(
	jwtAuth *middleware.JWTAuth, // nil disables auth
	authHandler *handlers.AuthHandler,
	chatHandler *handlers.ChatHandler,
	wsHub *websocket.Hub, // nil when redis is not configured
	frontendURL string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.CORS(frontendURL))

	// Chat rate limiter (30 req/min per IP): model calls are the scarce
	// resource
	chatLimiter := middleware.NewRateLimiter(30, time.Minute)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {

		// ──── Auth Routes (public) ────
		if jwtAuth != nil && authHandler != nil {
			r.Post("/auth/guest", authHandler.GuestToken)
		}

		// ──── Chat Routes ────
		r.Group(func(r chi.Router) {
			if jwtAuth != nil {
				r.Use(jwtAuth.Middleware)
			}

			r.With(chatLimiter.Middleware).Post("/chat", chatHandler.HandleChat)

			r.Route("/chats", func(r chi.Router) {
				r.Post("/", chatHandler.CreateChat)
				r.Get("/", chatHandler.ListChats)
				r.Get("/{id}", chatHandler.GetChat)
			})
		})

		// ──── WebSocket ────
		if wsHub != nil {
			r.Get("/ws", wsHub.HandleWebSocket)
		}
	})

	return r
}
