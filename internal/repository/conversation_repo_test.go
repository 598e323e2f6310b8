package repository

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"gemini-chat-backend/internal/models"
)

func newTestRepo(t *testing.T) *ConversationRepo {
	t.Helper()

	repo, err := NewConversationRepo(filepath.Join(t.TempDir(), "conversations.db"))
	if err != nil {
		t.Fatalf("Failed to open repo: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func conv(id, title string, turns ...models.Turn) models.Conversation {
	return models.Conversation{
		ID:        id,
		Title:     title,
		Messages:  turns,
		UpdatedAt: time.Now(),
	}
}

func TestSaveAndGet_RoundTrip(t *testing.T) {
	repo := newTestRepo(t)

	turns := []models.Turn{
		{ID: "t1", Role: models.RoleUser, Text: "Hello"},
		{ID: "t2", Role: models.RoleModel, Text: "Hi there"},
		{ID: "t3", Role: models.RoleUser, Text: "How are you?", Files: []models.Attachment{
			{Name: "pic.png", Type: "image/png", Size: 4, Data: "data:image/png;base64,cGljcw=="},
		}},
	}

	if err := repo.Save(conv("conv_1", "Hello", turns...)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, ok, err := repo.Get("conv_1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !ok {
		t.Fatal("Expected conversation to exist")
	}
	if len(got.Messages) != len(turns) {
		t.Fatalf("Expected %d turns, got %d", len(turns), len(got.Messages))
	}
	for i, turn := range got.Messages {
		if turn.ID != turns[i].ID || turn.Role != turns[i].Role || turn.Text != turns[i].Text {
			t.Errorf("Turn %d mismatch: got %+v, want %+v", i, turn, turns[i])
		}
	}
	if got.Messages[2].Files[0].Data != turns[2].Files[0].Data {
		t.Error("Attachment data did not survive the round trip")
	}
}

func TestGet_Missing(t *testing.T) {
	repo := newTestRepo(t)

	_, ok, err := repo.Get("nope")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if ok {
		t.Error("Expected missing conversation")
	}
}

func TestSave_MovesUpdatedToFront(t *testing.T) {
	repo := newTestRepo(t)

	repo.Save(conv("a", "first"))
	repo.Save(conv("b", "second"))
	repo.Save(conv("c", "third"))

	// Updating "a" must move it to the front without duplicating it
	if err := repo.Save(conv("a", "first updated")); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	index, err := repo.All()
	if err != nil {
		t.Fatalf("All failed: %v", err)
	}

	wantOrder := []string{"a", "c", "b"}
	if len(index) != len(wantOrder) {
		t.Fatalf("Expected %d conversations, got %d", len(wantOrder), len(index))
	}
	for i, id := range wantOrder {
		if index[i].ID != id {
			t.Errorf("Position %d: expected %q, got %q", i, id, index[i].ID)
		}
	}
	if index[0].Title != "first updated" {
		t.Errorf("Expected updated title, got %q", index[0].Title)
	}
}

func TestSave_EvictsOldest(t *testing.T) {
	repo := newTestRepo(t)

	for i := 0; i < 51; i++ {
		id := fmt.Sprintf("conv_%02d", i)
		if err := repo.Save(conv(id, id)); err != nil {
			t.Fatalf("Save %d failed: %v", i, err)
		}
	}

	index, err := repo.All()
	if err != nil {
		t.Fatalf("All failed: %v", err)
	}
	if len(index) != maxConversations {
		t.Fatalf("Expected index capped at %d, got %d", maxConversations, len(index))
	}

	// conv_00 is the least recently updated and must be the one evicted
	if _, ok, _ := repo.Get("conv_00"); ok {
		t.Error("Expected conv_00 to be evicted")
	}
	if _, ok, _ := repo.Get("conv_01"); !ok {
		t.Error("Expected conv_01 to survive")
	}
	if index[0].ID != "conv_50" {
		t.Errorf("Expected most recent conversation first, got %q", index[0].ID)
	}
}

func TestSearch(t *testing.T) {
	repo := newTestRepo(t)

	repo.Save(conv("a", "Resep nasi goreng",
		models.Turn{Role: models.RoleUser, Text: "bagaimana membuat nasi goreng?"}))
	repo.Save(conv("b", "Trip planning",
		models.Turn{Role: models.RoleUser, Text: "Itinerary for Tokyo"},
		models.Turn{Role: models.RoleModel, Text: "Day 1: Shibuya crossing"}))
	repo.Save(conv("c", "Untitled",
		models.Turn{Role: models.RoleUser, Text: "hello world"}))

	tests := []struct {
		name    string
		query   string
		wantIDs []string
	}{
		{"matches title case-insensitively", "RESEP", []string{"a"}},
		{"matches turn text", "shibuya", []string{"b"}},
		{"matches model turn text", "crossing", []string{"b"}},
		{"no match", "quantum", nil},
		{"empty query returns everything", "", []string{"c", "b", "a"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := repo.Search(tc.query)
			if err != nil {
				t.Fatalf("Search failed: %v", err)
			}
			if len(got) != len(tc.wantIDs) {
				t.Fatalf("Expected %d results, got %d", len(tc.wantIDs), len(got))
			}
			for i, id := range tc.wantIDs {
				if got[i].ID != id {
					t.Errorf("Result %d: expected %q, got %q", i, id, got[i].ID)
				}
			}
		})
	}
}

func TestReopen_KeepsIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conversations.db")

	repo, err := NewConversationRepo(path)
	if err != nil {
		t.Fatalf("Failed to open repo: %v", err)
	}
	repo.Save(conv("a", "persisted", models.Turn{Role: models.RoleUser, Text: "hi"}))
	repo.Close()

	reopened, err := NewConversationRepo(path)
	if err != nil {
		t.Fatalf("Failed to reopen repo: %v", err)
	}
	defer reopened.Close()

	got, ok, err := reopened.Get("a")
	if err != nil || !ok {
		t.Fatalf("Expected conversation to survive reopen (ok=%v, err=%v)", ok, err)
	}
	if got.Title != "persisted" {
		t.Errorf("Expected title 'persisted', got %q", got.Title)
	}
}
