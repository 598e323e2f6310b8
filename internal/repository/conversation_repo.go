package repository

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"

	"gemini-chat-backend/internal/models"
)

const (
	conversationsBucket = "conversations"
	indexKey            = "index"

	// maxConversations caps the index; the least-recently-updated entry is
	// evicted on overflow.
	maxConversations = 50
)

// ConversationRepo persists the conversation index as a single JSON snapshot
// in a local BoltDB file, ordered most-recently-updated first. Bolt
// serializes writers, so the read-modify-write in Save is atomic even across
// processes sharing the file.
type ConversationRepo struct {
	db *bolt.DB
}

func NewConversationRepo(path string) (*ConversationRepo, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open conversation store: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(conversationsBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create conversations bucket: %w", err)
	}

	return &ConversationRepo{db: db}, nil
}

func (r *ConversationRepo) Close() error {
	return r.db.Close()
}

// Save overwrites the conversation with the same id (or inserts it) and moves
// it to the front of the index, trimming to the cap.
func (r *ConversationRepo) Save(conv models.Conversation) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(conversationsBucket))
		index := readIndex(b)

		kept := make([]models.Conversation, 0, len(index)+1)
		kept = append(kept, conv)
		for _, c := range index {
			if c.ID != conv.ID {
				kept = append(kept, c)
			}
		}

		if len(kept) > maxConversations {
			kept = kept[:maxConversations]
		}

		data, err := json.Marshal(kept)
		if err != nil {
			return fmt.Errorf("failed to marshal conversation index: %w", err)
		}
		return b.Put([]byte(indexKey), data)
	})
}

// All returns the stored index, most-recently-updated first.
func (r *ConversationRepo) All() ([]models.Conversation, error) {
	var index []models.Conversation
	err := r.db.View(func(tx *bolt.Tx) error {
		index = readIndex(tx.Bucket([]byte(conversationsBucket)))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read conversation index: %w", err)
	}
	return index, nil
}

func (r *ConversationRepo) Get(id string) (models.Conversation, bool, error) {
	index, err := r.All()
	if err != nil {
		return models.Conversation{}, false, err
	}

	for _, c := range index {
		if c.ID == id {
			return c, true, nil
		}
	}
	return models.Conversation{}, false, nil
}

// Search returns conversations whose title or any turn text contains the
// query as a case-insensitive substring. An empty query returns the whole
// index unfiltered.
func (r *ConversationRepo) Search(query string) ([]models.Conversation, error) {
	index, err := r.All()
	if err != nil {
		return nil, err
	}

	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return index, nil
	}

	var matched []models.Conversation
	for _, c := range index {
		if conversationMatches(c, query) {
			matched = append(matched, c)
		}
	}
	return matched, nil
}

func conversationMatches(c models.Conversation, query string) bool {
	if strings.Contains(strings.ToLower(c.Title), query) {
		return true
	}
	for _, turn := range c.Messages {
		if strings.Contains(strings.ToLower(turn.Text), query) {
			return true
		}
	}
	return false
}

// readIndex tolerates a missing or malformed snapshot by starting fresh
// instead of failing every subsequent operation.
func readIndex(b *bolt.Bucket) []models.Conversation {
	if b == nil {
		return nil
	}
	raw := b.Get([]byte(indexKey))
	if len(raw) == 0 {
		return nil
	}

	var index []models.Conversation
	if err := json.Unmarshal(raw, &index); err != nil {
		return nil
	}
	return index
}
