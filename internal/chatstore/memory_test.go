package chatstore

import (
	"context"
	"testing"

	"chatline-backend/internal/models"
)

func TestMemoryStore_LoadNeverSaved(t *testing.T) {
	s := NewMemoryStore()

	msgs, err := s.Load(context.Background(), "nope")
	if err != nil {
		t.Fatalf("Expected nil error for an unknown id, got %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("Expected an empty history, got %d messages", len(msgs))
	}
}

func TestMemoryStore_SaveLoadRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	id, err := s.Create(ctx)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	saved := []models.Message{
		models.TextMessage(models.RoleUser, "hello"),
		models.TextMessage(models.RoleAssistant, "hi"),
	}
	if err := s.Save(ctx, id, saved); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := s.Load(ctx, id)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(got) != 2 || got[0].Text() != "hello" {
		t.Errorf("Round trip mismatch: %+v", got)
	}
}

func TestMemoryStore_LoadReturnsCopy(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	id, _ := s.Create(ctx)
	if err := s.Save(ctx, id, []models.Message{models.TextMessage(models.RoleUser, "original")}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	first, _ := s.Load(ctx, id)
	first[0] = models.TextMessage(models.RoleUser, "mutated")

	second, _ := s.Load(ctx, id)
	if second[0].Text() != "original" {
		t.Error("Expected Load to return a copy isolated from the caller")
	}
}

func TestMemoryStore_SetTitle(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	id, _ := s.Create(ctx)
	if err := s.SetTitle(ctx, id, "Named"); err != nil {
		t.Fatalf("SetTitle failed: %v", err)
	}
	if err := s.SetTitle(ctx, "missing", "x"); err == nil {
		t.Error("Expected SetTitle on an unknown id to fail")
	}

	metas, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(metas) != 1 || metas[0].Title != "Named" {
		t.Errorf("Expected the title in List, got %+v", metas)
	}
}
