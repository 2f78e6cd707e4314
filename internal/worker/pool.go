// Package worker runs the background title generator: after a chat's
// first completed turn a job is queued, a worker asks the model for a
// short title and stores it, then subscribers are notified.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"chatline-backend/internal/chatstore"
	"chatline-backend/internal/events"
	"chatline-backend/internal/models"
)

const titleQueue = "queue:title-generation"

// Titler is the slice of the model service the worker needs.
type Titler interface {
	GenerateTitle(ctx context.Context, messages []models.Message) (string, error)
}

// TitleJob is the queued payload.
type TitleJob struct {
	ChatID string `json:"chat_id"`
}

// Enqueue pushes a title job onto the queue. No-op without redis.
func Enqueue(ctx context.Context, client *redis.Client, chatID string) error {
	if client == nil {
		return nil
	}
	data, err := json.Marshal(TitleJob{ChatID: chatID})
	if err != nil {
		return err
	}
	return client.RPush(ctx, titleQueue, data).Err()
}

// Pool consumes title jobs with a fixed number of goroutines.
type Pool struct {
	redis       *redis.Client
	titler      Titler
	store       chatstore.ChatStore
	publisher   *events.Publisher
	workerCount int
	stopChan    chan struct{}
}

func NewPool(client *redis.Client, titler Titler, store chatstore.ChatStore, publisher *events.Publisher, workerCount int) *Pool {
	return &Pool{
		redis:       client,
		titler:      titler,
		store:       store,
		publisher:   publisher,
		workerCount: workerCount,
		stopChan:    make(chan struct{}),
	}
}

func (p *Pool) Start() {
	for i := 0; i < p.workerCount; i++ {
		go p.worker(i)
	}
	log.Printf("Started %d title worker goroutines", p.workerCount)
}

func (p *Pool) Stop() {
	close(p.stopChan)
}

func (p *Pool) worker(id int) {
	for {
		select {
		case <-p.stopChan:
			log.Printf("Title worker %d shutting down", id)
			return
		default:
		}

		ctx := context.Background()

		// BLPOP with 30s timeout so the stop channel is polled
		result, err := p.redis.BLPop(ctx, 30*time.Second, titleQueue).Result()
		if err != nil {
			continue // timeout or error, retry
		}
		if len(result) < 2 {
			continue
		}

		var job TitleJob
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
			log.Printf("Title worker %d: failed to parse job: %v", id, err)
			continue
		}

		// Job lock so only one worker titles a chat
		lockKey := fmt.Sprintf("title_lock:%s", job.ChatID)
		locked, err := p.redis.SetNX(ctx, lockKey, "1", 10*time.Minute).Result()
		if err != nil || !locked {
			continue
		}

		p.process(ctx, id, job.ChatID)
	}
}

func (p *Pool) process(ctx context.Context, id int, chatID string) {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	messages, err := p.store.Load(ctx, chatID)
	if err != nil || len(messages) == 0 {
		return
	}

	title, err := p.titler.GenerateTitle(ctx, messages)
	if err != nil {
		log.Printf("Title worker %d: generate for %s: %v", id, chatID, err)
		return
	}

	if err := p.store.SetTitle(ctx, chatID, title); err != nil {
		log.Printf("Title worker %d: store title for %s: %v", id, chatID, err)
		return
	}

	p.publisher.Publish(ctx, chatID, models.WSMessage{
		Type:    "title_updated",
		Payload: models.TitleUpdate{ChatID: chatID, Title: title},
	})
	log.Printf("Title worker %d: chat %s titled %q", id, chatID, title)
}
