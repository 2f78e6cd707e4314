// Package chatstore persists chat histories. Each chat id owns one blob
// holding the full message sequence; Save replaces it wholesale.
package chatstore

import (
	"context"
	"errors"
	"fmt"

	"chatline-backend/internal/models"
)

var errNotFound = errors.New("chat not found")

// ChatStore is the persistence contract injected into the HTTP layer.
//
// Load never fails on absence: an id that was never saved yields an empty
// sequence, and a blob that no longer decodes against the current schema is
// treated the same way. Write failures surface as *StorageError.
type ChatStore interface {
	Create(ctx context.Context) (string, error)
	Load(ctx context.Context, id string) ([]models.Message, error)
	Save(ctx context.Context, id string, messages []models.Message) error
	SetTitle(ctx context.Context, id, title string) error
	List(ctx context.Context) ([]models.ChatMeta, error)
}

// StorageError wraps a failure of the backing medium.
type StorageError struct {
	Op  string // "create", "save", "set_title", "list"
	ID  string
	Err error
}

func (e *StorageError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("chatstore: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("chatstore: %s %s: %v", e.Op, e.ID, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func storageErr(op, id string, err error) *StorageError {
	return &StorageError{Op: op, ID: id, Err: err}
}

func meta(c models.Chat) models.ChatMeta {
	return models.ChatMeta{
		ID:           c.ID,
		Title:        c.Title,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
		MessageCount: len(c.Messages),
	}
}
