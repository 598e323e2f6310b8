package session

import "gemini-chat-backend/internal/models"

// View receives transcript changes as the session mutates. Rendering is out
// of this package's hands; implementations range from a terminal printer to
// a test fake.
type View interface {
	// AppendTurn renders a new turn at the end of the transcript.
	AppendTurn(turn models.Turn)
	// RemoveTurnsFrom drops the identified turn and everything after it.
	RemoveTurnsFrom(turnID string)
	// SetTurnText replaces the rendered text of one turn.
	SetTurnText(turnID, text string)
	// Reset clears the transcript.
	Reset()
}

// NopView discards all rendering calls.
type NopView struct{}

func (NopView) AppendTurn(models.Turn)     {}
func (NopView) RemoveTurnsFrom(string)     {}
func (NopView) SetTurnText(string, string) {}
func (NopView) Reset()                     {}
