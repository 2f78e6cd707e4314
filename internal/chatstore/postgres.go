package chatstore

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"chatline-backend/internal/models"
)

// PostgresStore keeps one row per chat id with the message sequence in a
// JSONB column, replaced wholesale on every save.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore ensures the chats table exists.
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool) (*PostgresStore, error) {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS chats (
			id         TEXT PRIMARY KEY,
			title      TEXT NOT NULL DEFAULT '',
			messages   JSONB NOT NULL DEFAULT '[]',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return nil, storageErr("create", "", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Create(ctx context.Context) (string, error) {
	id := models.NewChatID()
	_, err := s.pool.Exec(ctx, `INSERT INTO chats (id) VALUES ($1)`, id)
	if err != nil {
		return "", storageErr("create", id, err)
	}
	return id, nil
}

func (s *PostgresStore) Load(ctx context.Context, id string) ([]models.Message, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT messages FROM chats WHERE id = $1`, id).Scan(&raw)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			log.Printf("chatstore: pg load %s: %v", id, err)
		}
		return []models.Message{}, nil
	}

	var messages []models.Message
	if err := json.Unmarshal(raw, &messages); err != nil {
		log.Printf("chatstore: decode %s: %v (treating as empty)", id, err)
		return []models.Message{}, nil
	}
	return messages, nil
}

func (s *PostgresStore) Save(ctx context.Context, id string, messages []models.Message) error {
	raw, err := json.Marshal(messages)
	if err != nil {
		return storageErr("save", id, err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO chats (id, messages, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (id) DO UPDATE SET messages = EXCLUDED.messages, updated_at = NOW()
	`, id, raw)
	if err != nil {
		return storageErr("save", id, err)
	}
	return nil
}

func (s *PostgresStore) SetTitle(ctx context.Context, id, title string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE chats SET title = $2, updated_at = NOW() WHERE id = $1`, id, title)
	if err != nil {
		return storageErr("set_title", id, err)
	}
	if tag.RowsAffected() == 0 {
		return storageErr("set_title", id, errNotFound)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]models.ChatMeta, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, title, created_at, updated_at, jsonb_array_length(messages)
		FROM chats ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, storageErr("list", "", err)
	}
	defer rows.Close()

	metas := []models.ChatMeta{}
	for rows.Next() {
		var m models.ChatMeta
		var created, updated time.Time
		if err := rows.Scan(&m.ID, &m.Title, &created, &updated, &m.MessageCount); err != nil {
			return nil, storageErr("list", "", err)
		}
		m.CreatedAt = created
		m.UpdatedAt = updated
		metas = append(metas, m)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list", "", err)
	}
	return metas, nil
}
