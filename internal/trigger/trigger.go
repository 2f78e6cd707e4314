// Package trigger resolves inbound chat requests into the message sequence
// to forward to the model and the history mutation to persist.
package trigger

import (
	"errors"
	"fmt"

	"chatline-backend/internal/models"
)

// ErrInvalidRequest marks a request missing required fields for its
// trigger. It is fatal for the request and maps to a 400.
var ErrInvalidRequest = errors.New("invalid chat request")

// Resolution is the outcome of resolving one request against the loaded
// history.
type Resolution struct {
	// Forward is the sequence to hand to the model invocation.
	Forward []models.Message

	// Persist is the sequence to save before any model call. Only
	// meaningful when ShouldPersist is set; the stateless fallback path
	// never writes.
	Persist       []models.Message
	ShouldPersist bool

	// CallModel is false for delete-message, which short-circuits.
	CallModel bool
}

// Resolve applies the trigger state machine to the persisted history.
//
//	submit-message      append message, forward all
//	regenerate-message  truncate strictly before messageId, forward rest
//	delete-message      remove messageId, no model call
//	(absent)            id+message acts as submit; bare messages array is
//	                    forwarded verbatim with no persistence
func Resolve(history []models.Message, req models.ChatRequest) (Resolution, error) {
	switch req.Trigger {
	case models.TriggerSubmit:
		if req.ID == "" || req.Message == nil {
			return Resolution{}, fmt.Errorf("%w: submit-message requires id and message", ErrInvalidRequest)
		}
		return submit(history, *req.Message), nil

	case models.TriggerRegenerate:
		if req.ID == "" || req.MessageID == "" {
			return Resolution{}, fmt.Errorf("%w: regenerate-message requires id and messageId", ErrInvalidRequest)
		}
		// Unknown messageId truncates nothing: the full history is
		// forwarded unchanged. Deliberate no-op rather than an error.
		kept := history
		if i := indexOf(history, req.MessageID); i >= 0 {
			kept = history[:i]
		}
		forward := make([]models.Message, len(kept))
		copy(forward, kept)
		return Resolution{
			Forward:       forward,
			Persist:       forward,
			ShouldPersist: true,
			CallModel:     true,
		}, nil

	case models.TriggerDelete:
		if req.ID == "" || req.MessageID == "" {
			return Resolution{}, fmt.Errorf("%w: delete-message requires id and messageId", ErrInvalidRequest)
		}
		filtered := make([]models.Message, 0, len(history))
		for _, m := range history {
			if m.ID != req.MessageID {
				filtered = append(filtered, m)
			}
		}
		return Resolution{
			Forward:       filtered,
			Persist:       filtered,
			ShouldPersist: true,
			CallModel:     false,
		}, nil

	case "":
		if req.ID != "" && req.Message != nil {
			return submit(history, *req.Message), nil
		}
		if len(req.Messages) > 0 {
			return Resolution{Forward: req.Messages, CallModel: true}, nil
		}
		return Resolution{}, fmt.Errorf("%w: request needs either id+message or a messages array", ErrInvalidRequest)

	default:
		return Resolution{}, fmt.Errorf("%w: unknown trigger %q", ErrInvalidRequest, req.Trigger)
	}
}

func submit(history []models.Message, msg models.Message) Resolution {
	if msg.ID == "" {
		msg.ID = models.NewMessageID()
	}
	appended := make([]models.Message, 0, len(history)+1)
	appended = append(appended, history...)
	appended = append(appended, msg)
	return Resolution{
		Forward:       appended,
		Persist:       appended,
		ShouldPersist: true,
		CallModel:     true,
	}
}

func indexOf(msgs []models.Message, id string) int {
	for i, m := range msgs {
		if m.ID == id {
			return i
		}
	}
	return -1
}
