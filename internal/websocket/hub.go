package websocket

import (
	"context"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"chatline-backend/internal/events"
	"chatline-backend/internal/middleware"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub fans chat events out to websocket subscribers. Connections are
// keyed by chat id; the first subscriber for a chat opens a redis pub/sub
// subscription, the last one closing tears it down.
type Hub struct {
	mu          sync.RWMutex
	connections map[string][]*websocket.Conn
	redisClient *redis.Client
	auth        *middleware.JWTAuth // nil disables auth
	cancelFuncs map[string]context.CancelFunc
}

func NewHub(redisClient *redis.Client, auth *middleware.JWTAuth) *Hub {
	return &Hub{
		connections: make(map[string][]*websocket.Conn),
		redisClient: redisClient,
		auth:        auth,
		cancelFuncs: make(map[string]context.CancelFunc),
	}
}

func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	chatID := r.URL.Query().Get("chat_id")
	if chatID == "" {
		http.Error(w, "chat_id is required", http.StatusBadRequest)
		return
	}

	if h.auth != nil {
		tokenStr := r.URL.Query().Get("token")
		if tokenStr == "" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		if _, err := h.auth.VerifyToken(tokenStr); err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	h.registerConnection(chatID, conn)

	// Keep connection alive and handle disconnect
	go func() {
		defer h.unregisterConnection(chatID, conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

func (h *Hub) registerConnection(chatID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.connections[chatID] = append(h.connections[chatID], conn)

	if len(h.connections[chatID]) == 1 {
		ctx, cancel := context.WithCancel(context.Background())
		h.cancelFuncs[chatID] = cancel
		go h.subscribeToPubSub(ctx, chatID)
	}

	log.Printf("WebSocket connected: chat %s (total: %d)", chatID, len(h.connections[chatID]))
}

func (h *Hub) unregisterConnection(chatID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conn.Close()

	conns := h.connections[chatID]
	for i, c := range conns {
		if c == conn {
			h.connections[chatID] = append(conns[:i], conns[i+1:]...)
			break
		}
	}

	if len(h.connections[chatID]) == 0 {
		delete(h.connections, chatID)
		if cancel, ok := h.cancelFuncs[chatID]; ok {
			cancel()
			delete(h.cancelFuncs, chatID)
		}
	}

	log.Printf("WebSocket disconnected: chat %s", chatID)
}

func (h *Hub) subscribeToPubSub(ctx context.Context, chatID string) {
	pubsub := h.redisClient.Subscribe(ctx, events.Channel(chatID))
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.broadcast(chatID, []byte(msg.Payload))
		}
	}
}

func (h *Hub) broadcast(chatID string, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, conn := range h.connections[chatID] {
		conn.WriteMessage(websocket.TextMessage, data)
	}
}
