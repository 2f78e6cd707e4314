package chatstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"chatline-backend/internal/models"
)

// MemoryStore is an in-process ChatStore used by tests and by the
// "memory" backend. State is scoped to the instance, not the package.
type MemoryStore struct {
	mu    sync.RWMutex
	chats map[string]models.Chat
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{chats: make(map[string]models.Chat)}
}

func (s *MemoryStore) Create(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	id := models.NewChatID()
	s.chats[id] = models.Chat{ID: id, CreatedAt: now, UpdatedAt: now, Messages: []models.Message{}}
	return id, nil
}

func (s *MemoryStore) Load(ctx context.Context, id string) ([]models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chat, ok := s.chats[id]
	if !ok {
		return []models.Message{}, nil
	}
	out := make([]models.Message, len(chat.Messages))
	copy(out, chat.Messages)
	return out, nil
}

func (s *MemoryStore) Save(ctx context.Context, id string, messages []models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	chat, ok := s.chats[id]
	if !ok {
		chat = models.Chat{ID: id, CreatedAt: time.Now().UTC()}
	}
	chat.Messages = make([]models.Message, len(messages))
	copy(chat.Messages, messages)
	chat.UpdatedAt = time.Now().UTC()
	s.chats[id] = chat
	return nil
}

func (s *MemoryStore) SetTitle(ctx context.Context, id, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	chat, ok := s.chats[id]
	if !ok {
		return storageErr("set_title", id, errNotFound)
	}
	chat.Title = title
	chat.UpdatedAt = time.Now().UTC()
	s.chats[id] = chat
	return nil
}

func (s *MemoryStore) List(ctx context.Context) ([]models.ChatMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	metas := []models.ChatMeta{}
	for _, chat := range s.chats {
		metas = append(metas, meta(chat))
	}
	sort.Slice(metas, func(i, j int) bool {
		return metas[i].UpdatedAt.After(metas[j].UpdatedAt)
	})
	return metas, nil
}
