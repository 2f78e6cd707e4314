package models

// Trigger tags on inbound chat requests.
const (
	TriggerSubmit     = "submit-message"
	TriggerRegenerate = "regenerate-message"
	TriggerDelete     = "delete-message"
)

// ChatRequest is the payload accepted by the chat endpoint. Two shapes are
// supported: the stateful form carries an id plus a trigger, the stateless
// fallback carries a bare messages array.
type ChatRequest struct {
	ID        string    `json:"id,omitempty"`
	Trigger   string    `json:"trigger,omitempty"`
	Message   *Message  `json:"message,omitempty"`
	MessageID string    `json:"messageId,omitempty"`
	Messages  []Message `json:"messages,omitempty"`
}

// DeleteResponse is the synchronous reply for delete-message requests.
type DeleteResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// CreateChatResponse is the reply for chat creation.
type CreateChatResponse struct {
	ID string `json:"id"`
}

// APIError is the error body shared by all endpoints.
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorResponse wraps an APIError.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// WSMessage is a typed event fanned out to websocket subscribers of a chat.
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// TitleUpdate is the payload of a "title_updated" WSMessage.
type TitleUpdate struct {
	ChatID string `json:"chat_id"`
	Title  string `json:"title"`
}

// MessageSaved is the payload of a "message_saved" WSMessage.
type MessageSaved struct {
	ChatID    string `json:"chat_id"`
	MessageID string `json:"message_id"`
	Role      string `json:"role"`
}

// MessageDeleted is the payload of a "message_deleted" WSMessage.
type MessageDeleted struct {
	ChatID    string `json:"chat_id"`
	MessageID string `json:"message_id"`
}
