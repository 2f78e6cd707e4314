package models

// Stream event types, in emission order: one "start", any number of
// "text-delta"/"tool-call", then exactly one "finish" or "error".
const (
	StreamStart     = "start"
	StreamTextDelta = "text-delta"
	StreamToolCall  = "tool-call"
	StreamFinish    = "finish"
	StreamError     = "error"
)

// StreamEvent is one typed fragment of a streamed chat reply.
type StreamEvent struct {
	Type      string `json:"type"`
	ChatID    string `json:"chat_id,omitempty"`
	MessageID string `json:"message_id,omitempty"`
	Model     string `json:"model,omitempty"`
	Delta     string `json:"delta,omitempty"`
	ToolName  string `json:"tool_name,omitempty"`
	ToolArgs  string `json:"tool_args,omitempty"`
	Usage     *Usage `json:"usage,omitempty"`
	Aborted   bool   `json:"aborted,omitempty"`
	Error     string `json:"error,omitempty"`
}
