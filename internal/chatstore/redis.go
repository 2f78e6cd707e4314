package chatstore

import (
	"context"
	"encoding/json"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"chatline-backend/internal/models"
)

const redisKeyPrefix = "chat:"

// RedisStore keeps one JSON blob per chat id in a redis key.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Create(ctx context.Context) (string, error) {
	now := time.Now().UTC()
	chat := models.Chat{
		ID:        models.NewChatID(),
		CreatedAt: now,
		UpdatedAt: now,
		Messages:  []models.Message{},
	}
	if err := s.write(ctx, chat); err != nil {
		return "", storageErr("create", chat.ID, err)
	}
	return chat.ID, nil
}

func (s *RedisStore) Load(ctx context.Context, id string) ([]models.Message, error) {
	chat, ok := s.read(ctx, id)
	if !ok {
		return []models.Message{}, nil
	}
	return chat.Messages, nil
}

func (s *RedisStore) Save(ctx context.Context, id string, messages []models.Message) error {
	chat, ok := s.read(ctx, id)
	if !ok {
		chat = models.Chat{ID: id, CreatedAt: time.Now().UTC()}
	}
	chat.Messages = messages
	chat.UpdatedAt = time.Now().UTC()
	if err := s.write(ctx, chat); err != nil {
		return storageErr("save", id, err)
	}
	return nil
}

func (s *RedisStore) SetTitle(ctx context.Context, id, title string) error {
	chat, ok := s.read(ctx, id)
	if !ok {
		return storageErr("set_title", id, errNotFound)
	}
	chat.Title = title
	chat.UpdatedAt = time.Now().UTC()
	if err := s.write(ctx, chat); err != nil {
		return storageErr("set_title", id, err)
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context) ([]models.ChatMeta, error) {
	metas := []models.ChatMeta{}

	iter := s.client.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		id := strings.TrimPrefix(iter.Val(), redisKeyPrefix)
		chat, ok := s.read(ctx, id)
		if !ok {
			continue
		}
		metas = append(metas, meta(chat))
	}
	if err := iter.Err(); err != nil {
		return nil, storageErr("list", "", err)
	}

	sort.Slice(metas, func(i, j int) bool {
		return metas[i].UpdatedAt.After(metas[j].UpdatedAt)
	})
	return metas, nil
}

func (s *RedisStore) read(ctx context.Context, id string) (models.Chat, bool) {
	data, err := s.client.Get(ctx, redisKeyPrefix+id).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Printf("chatstore: redis get %s: %v", id, err)
		}
		return models.Chat{}, false
	}
	var chat models.Chat
	if err := json.Unmarshal(data, &chat); err != nil {
		log.Printf("chatstore: decode %s: %v (treating as empty)", id, err)
		return models.Chat{}, false
	}
	return chat, true
}

func (s *RedisStore) write(ctx context.Context, chat models.Chat) error {
	data, err := json.Marshal(chat)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, redisKeyPrefix+chat.ID, data, 0).Err()
}
