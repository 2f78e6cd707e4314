package trigger

import (
	"testing"

	"chatline-backend/internal/models"
)

func TestCollapseByID(t *testing.T) {
	in := []models.Message{
		{ID: "m1", Role: models.RoleUser, Parts: []models.Part{{Type: models.PartText, Text: "first m1"}}},
		{ID: "m2", Role: models.RoleAssistant, Parts: []models.Part{{Type: models.PartText, Text: "m2"}}},
		{ID: "m1", Role: models.RoleUser, Parts: []models.Part{{Type: models.PartText, Text: "updated m1"}}},
		{ID: "m3", Role: models.RoleUser, Parts: []models.Part{{Type: models.PartText, Text: "m3"}}},
	}

	out := CollapseByID(in)

	if len(out) != 3 {
		t.Fatalf("Expected 3 messages, got %d", len(out))
	}
	wantIDs := []string{"m1", "m2", "m3"}
	for i, id := range wantIDs {
		if out[i].ID != id {
			t.Errorf("Position %d: expected id %q, got %q", i, id, out[i].ID)
		}
	}
	// The later occurrence's payload wins, at the first occurrence's slot
	if out[0].Text() != "updated m1" {
		t.Errorf("Expected last value for m1, got %q", out[0].Text())
	}
}

func TestCollapseByID_NoDuplicates(t *testing.T) {
	in := history("a", "b", "c")

	out := CollapseByID(in)

	if len(out) != 3 {
		t.Fatalf("Expected 3 messages, got %d", len(out))
	}
	for i := range in {
		if out[i].ID != in[i].ID {
			t.Errorf("Expected order preserved, got %v", ids(out))
		}
	}
}

func TestCollapseByID_Empty(t *testing.T) {
	if out := CollapseByID(nil); len(out) != 0 {
		t.Errorf("Expected empty result, got %d messages", len(out))
	}
}
