package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"chatline-backend/internal/chatlock"
	"chatline-backend/internal/chatstore"
	"chatline-backend/internal/events"
	"chatline-backend/internal/models"
	"chatline-backend/internal/services"
	"chatline-backend/internal/trigger"
	"chatline-backend/internal/worker"
)

// maxRequestBody caps the chat request body at 1 MiB.
const maxRequestBody = 1 << 20

type ChatHandler struct {
	store         chatstore.ChatStore
	streamer      services.ModelStreamer
	locks         *chatlock.Registry
	publisher     *events.Publisher
	queue         *redis.Client // nil disables title jobs
	streamTimeout time.Duration
}

func NewChatHandler(
	store chatstore.ChatStore,
	streamer services.ModelStreamer,
	locks *chatlock.Registry,
	publisher *events.Publisher,
	queue *redis.Client,
	streamTimeout time.Duration,
) *ChatHandler {
	return &ChatHandler{
		store:         store,
		streamer:      streamer,
		locks:         locks,
		publisher:     publisher,
		queue:         queue,
		streamTimeout: streamTimeout,
	}
}

// CreateChat handles POST /api/v1/chats.
func (h *ChatHandler) CreateChat(w http.ResponseWriter, r *http.Request) {
	id, err := h.store.Create(r.Context())
	if err != nil {
		log.Printf("CHAT_CREATE_ERROR | error=%v", err)
		writeJSON(w, http.StatusInternalServerError, errorResp("STORAGE_ERROR", "Failed to create chat", r))
		return
	}
	writeJSON(w, http.StatusCreated, models.CreateChatResponse{ID: id})
}

// ListChats handles GET /api/v1/chats.
func (h *ChatHandler) ListChats(w http.ResponseWriter, r *http.Request) {
	metas, err := h.store.List(r.Context())
	if err != nil {
		log.Printf("CHAT_LIST_ERROR | error=%v", err)
		writeJSON(w, http.StatusInternalServerError, errorResp("STORAGE_ERROR", "Failed to list chats", r))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"chats": metas})
}

// GetChat handles GET /api/v1/chats/{id}. An id that was never saved
// yields an empty history, not a 404.
func (h *ChatHandler) GetChat(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	messages, err := h.store.Load(r.Context(), id)
	if err != nil {
		log.Printf("CHAT_LOAD_ERROR | chat=%s error=%v", id, err)
		messages = []models.Message{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"id": id, "messages": messages})
}

// HandleChat handles POST /api/v1/chat, the single trigger endpoint.
// delete-message answers synchronously; every other shape streams the
// model reply as SSE fragments.
func (h *ChatHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if req.Trigger == models.TriggerDelete {
		h.handleDelete(w, r, req)
		return
	}

	// The stateful paths mutate the persisted history, so the whole
	// load-resolve-stream-save cycle runs under the chat's lock.
	stateful := req.ID != ""
	if stateful {
		unlock := h.locks.Lock(req.ID)
		defer unlock()
	}

	history := []models.Message{}
	if stateful {
		loaded, err := h.store.Load(r.Context(), req.ID)
		if err != nil {
			log.Printf("CHAT_LOAD_ERROR | chat=%s error=%v", req.ID, err)
		} else {
			history = loaded
		}
	}

	res, err := trigger.Resolve(history, req)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", err.Error(), r))
		return
	}

	if res.ShouldPersist {
		if err := h.store.Save(r.Context(), req.ID, res.Persist); err != nil {
			log.Printf("CHAT_SAVE_ERROR | chat=%s error=%v", req.ID, err)
			writeJSON(w, http.StatusInternalServerError, errorResp("STORAGE_ERROR", "Failed to save chat", r))
			return
		}
	}

	h.stream(w, r, req.ID, res)
}

func (h *ChatHandler) handleDelete(w http.ResponseWriter, r *http.Request, req models.ChatRequest) {
	if req.ID == "" || req.MessageID == "" {
		writeJSON(w, http.StatusBadRequest, models.DeleteResponse{OK: false, Error: "delete-message requires id and messageId"})
		return
	}

	unlock := h.locks.Lock(req.ID)
	defer unlock()

	history, err := h.store.Load(r.Context(), req.ID)
	if err != nil {
		log.Printf("CHAT_LOAD_ERROR | chat=%s error=%v", req.ID, err)
		history = []models.Message{}
	}

	res, err := trigger.Resolve(history, req)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.DeleteResponse{OK: false, Error: err.Error()})
		return
	}

	if err := h.store.Save(r.Context(), req.ID, res.Persist); err != nil {
		log.Printf("CHAT_SAVE_ERROR | chat=%s error=%v", req.ID, err)
		writeJSON(w, http.StatusInternalServerError, models.DeleteResponse{OK: false, Error: "failed to save chat"})
		return
	}

	h.publisher.Publish(r.Context(), req.ID, models.WSMessage{
		Type:    "message_deleted",
		Payload: models.MessageDeleted{ChatID: req.ID, MessageID: req.MessageID},
	})
	writeJSON(w, http.StatusOK, models.DeleteResponse{OK: true})
}

// stream runs the model invocation and forwards typed fragments as SSE.
func (h *ChatHandler) stream(w http.ResponseWriter, r *http.Request, chatID string, res trigger.Resolution) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorResp("STREAM_ERROR", "Streaming not supported", r))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	// Hard wall-clock cap on total streaming duration. Expiry aborts the
	// stream but keeps whatever partial output exists.
	ctx, cancel := context.WithTimeout(r.Context(), h.streamTimeout)
	defer cancel()

	assistantID := models.NewMessageID()
	send := func(ev models.StreamEvent) {
		data, err := json.Marshal(ev)
		if err != nil {
			return
		}
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	}

	var (
		textBuf   strings.Builder
		toolParts []models.Part
		modelName string
		terminal  bool
	)

	flushParts := func() []models.Part {
		parts := []models.Part{}
		if textBuf.Len() > 0 {
			parts = append(parts, models.Part{Type: models.PartText, Text: textBuf.String()})
		}
		parts = append(parts, toolParts...)
		return parts
	}

	hooks := services.StreamHooks{
		OnStart: func(model string) {
			modelName = model
			send(models.StreamEvent{Type: models.StreamStart, ChatID: chatID, MessageID: assistantID, Model: model})
		},
		OnData: func(f services.Fragment) {
			if f.Text != "" {
				textBuf.WriteString(f.Text)
				send(models.StreamEvent{Type: models.StreamTextDelta, Delta: f.Text})
			}
			if f.ToolName != "" {
				toolParts = append(toolParts, models.Part{Type: models.PartToolCall, ToolName: f.ToolName, ToolArgs: f.ToolArgs})
				send(models.StreamEvent{Type: models.StreamToolCall, ToolName: f.ToolName, ToolArgs: f.ToolArgs})
			}
		},
		OnFinish: func(usage *models.Usage, aborted bool) {
			terminal = true
			send(models.StreamEvent{Type: models.StreamFinish, Usage: usage, Aborted: aborted})
			h.persistReply(chatID, res, assistantID, modelName, flushParts(), usage)
		},
		OnError: func(err error) {
			terminal = true
			// Full detail stays server-side; the client gets a generic line.
			log.Printf("STREAM_ERROR | chat=%s error=%v", chatID, err)
			send(models.StreamEvent{Type: models.StreamError, Error: "An error occurred while generating the response."})
			// Best-effort: keep partial output produced before the failure.
			h.persistReply(chatID, res, assistantID, modelName, flushParts(), nil)
		},
	}

	if err := h.streamer.StreamChat(ctx, res.Forward, hooks); err != nil && !terminal {
		// Setup failure before any lifecycle hook fired.
		log.Printf("STREAM_SETUP_ERROR | chat=%s error=%v", chatID, err)
		send(models.StreamEvent{Type: models.StreamError, Error: "An error occurred while generating the response."})
	}

	fmt.Fprintf(w, "data: [DONE]\n\n")
	flusher.Flush()
}

// persistReply appends the assistant message to the pre-call sequence and
// saves the union. Runs on a fresh context: the request context is
// already canceled when the stream was aborted.
func (h *ChatHandler) persistReply(chatID string, res trigger.Resolution, assistantID, modelName string, parts []models.Part, usage *models.Usage) {
	if chatID == "" || !res.ShouldPersist {
		return
	}
	if len(parts) == 0 {
		return // nothing produced before abort/error
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	assistant := models.Message{
		ID:    assistantID,
		Role:  models.RoleAssistant,
		Parts: parts,
		Metadata: &models.Metadata{
			CreatedAt: time.Now().UTC(),
			Model:     modelName,
			Usage:     usage,
		},
	}

	union := make([]models.Message, 0, len(res.Persist)+1)
	union = append(union, res.Persist...)
	union = append(union, assistant)
	union = trigger.CollapseByID(union)

	if err := h.store.Save(ctx, chatID, union); err != nil {
		log.Printf("CHAT_SAVE_ERROR | chat=%s error=%v", chatID, err)
		return
	}

	h.publisher.Publish(ctx, chatID, models.WSMessage{
		Type:    "message_saved",
		Payload: models.MessageSaved{ChatID: chatID, MessageID: assistantID, Role: models.RoleAssistant},
	})

	// First completed turn: queue title generation.
	if len(res.Persist) == 1 {
		if err := worker.Enqueue(ctx, h.queue, chatID); err != nil {
			log.Printf("TITLE_ENQUEUE_ERROR | chat=%s error=%v", chatID, err)
		}
	}
}
