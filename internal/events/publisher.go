// Package events fans chat lifecycle events out over redis pub/sub so
// other tabs and the websocket hub see persisted changes.
package events

import (
	"context"
	"encoding/json"
	"log"

	"github.com/redis/go-redis/v9"

	"chatline-backend/internal/models"
)

// Channel returns the pub/sub channel carrying updates for one chat.
func Channel(chatID string) string {
	return "chat_updates:" + chatID
}

// Publisher publishes chat events. A nil-client publisher drops events,
// so callers never need to branch on whether redis is configured.
type Publisher struct {
	redis *redis.Client
}

func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{redis: client}
}

func (p *Publisher) Publish(ctx context.Context, chatID string, msg models.WSMessage) {
	if p == nil || p.redis == nil {
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("events: marshal %s: %v", msg.Type, err)
		return
	}
	if err := p.redis.Publish(ctx, Channel(chatID), string(data)).Err(); err != nil {
		log.Printf("events: publish %s: %v", msg.Type, err)
	}
}
