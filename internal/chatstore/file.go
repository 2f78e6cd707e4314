package chatstore

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"chatline-backend/internal/models"
)

// FileStore keeps one JSON file per chat id under BaseDir.
type FileStore struct {
	BaseDir string
}

// NewFileStore creates the base directory if needed.
func NewFileStore(baseDir string) (*FileStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, storageErr("create", "", err)
	}
	return &FileStore{BaseDir: baseDir}, nil
}

func (s *FileStore) Create(ctx context.Context) (string, error) {
	now := time.Now().UTC()
	chat := models.Chat{
		ID:        models.NewChatID(),
		CreatedAt: now,
		UpdatedAt: now,
		Messages:  []models.Message{},
	}
	if err := s.write(chat); err != nil {
		return "", storageErr("create", chat.ID, err)
	}
	return chat.ID, nil
}

func (s *FileStore) Load(ctx context.Context, id string) ([]models.Message, error) {
	chat, ok := s.read(id)
	if !ok {
		return []models.Message{}, nil
	}
	return chat.Messages, nil
}

func (s *FileStore) Save(ctx context.Context, id string, messages []models.Message) error {
	chat, ok := s.read(id)
	if !ok {
		chat = models.Chat{ID: id, CreatedAt: time.Now().UTC()}
	}
	chat.Messages = messages
	chat.UpdatedAt = time.Now().UTC()
	if err := s.write(chat); err != nil {
		return storageErr("save", id, err)
	}
	return nil
}

func (s *FileStore) SetTitle(ctx context.Context, id, title string) error {
	chat, ok := s.read(id)
	if !ok {
		return storageErr("set_title", id, os.ErrNotExist)
	}
	chat.Title = title
	chat.UpdatedAt = time.Now().UTC()
	if err := s.write(chat); err != nil {
		return storageErr("set_title", id, err)
	}
	return nil
}

func (s *FileStore) List(ctx context.Context) ([]models.ChatMeta, error) {
	entries, err := os.ReadDir(s.BaseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []models.ChatMeta{}, nil
		}
		return nil, storageErr("list", "", err)
	}

	metas := []models.ChatMeta{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ".json")
		chat, ok := s.read(id)
		if !ok {
			continue // skip unreadable files
		}
		metas = append(metas, meta(chat))
	}

	sort.Slice(metas, func(i, j int) bool {
		return metas[i].UpdatedAt.After(metas[j].UpdatedAt)
	})
	return metas, nil
}

// read loads the envelope for id. A missing or undecodable file reports
// ok=false: stale schemas degrade to an empty history instead of failing
// the request.
func (s *FileStore) read(id string) (models.Chat, bool) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("chatstore: read %s: %v", id, err)
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

// write replaces the blob atomically: temp file in the same directory,
// fsync, rename.
func (s *FileStore) write(chat models.Chat) error {
	data, err := json.MarshalIndent(chat, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.BaseDir, chat.ID+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path(chat.ID))
}

func (s *FileStore) path(id string) string {
	// Chat ids are generated UUIDs, but never trust them as path segments.
	return filepath.Join(s.BaseDir, filepath.Base(id)+".json")
}
