package models

import "time"

// Conversation is a named, identified, ordered sequence of turns persisted
// as a unit in the conversation index.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Turn    `json:"messages"`
	UpdatedAt time.Time `json:"updatedAt"`
}
