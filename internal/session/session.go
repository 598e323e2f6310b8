// Package session holds the client-side conversation state: the active turn
// list, its mirror in the durable conversation index, and the rendering hooks.
// All state lives on an explicit ChatSession value instead of globals, and
// turns are addressed by the stable IDs minted at creation rather than by
// rendered position.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"gemini-chat-backend/internal/models"
)

// Fallback bubbles shown instead of raw transport or provider errors.
const (
	sendFailedText  = "Gagal menghubungi server. Silakan coba lagi."
	emptyResultText = "Maaf, tidak ada respons yang diterima."
)

const untitledConversation = "Percakapan Baru"

// titleMaxRunes is how much of the first user turn becomes the title.
const titleMaxRunes = 30

// Responder produces a model reply for a conversation. Implemented by
// services.GeminiService in-process and by APIClient over HTTP.
type Responder interface {
	Generate(ctx context.Context, conversation []models.Turn, model string) (string, error)
}

type conversationStore interface {
	Save(conv models.Conversation) error
	Get(id string) (models.Conversation, bool, error)
	Search(query string) ([]models.Conversation, error)
}

// ChatSession owns one active conversation. Mutating operations must not be
// called concurrently; a session serves a single user.
type ChatSession struct {
	store     conversationStore
	responder Responder
	view      View
	model     string

	id      string
	turns   []models.Turn
	pending []models.Attachment
}

func NewChatSession(store conversationStore, responder Responder, view View, model string) *ChatSession {
	if view == nil {
		view = NopView{}
	}
	return &ChatSession{
		store:     store,
		responder: responder,
		view:      view,
		model:     model,
	}
}

// ConversationID returns the active conversation id, empty until first send.
func (s *ChatSession) ConversationID() string {
	return s.id
}

// Turns returns the in-memory turn list in chronological order.
func (s *ChatSession) Turns() []models.Turn {
	out := make([]models.Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// SetModel switches the model identifier used for subsequent sends.
func (s *ChatSession) SetModel(model string) {
	s.model = model
}

// AttachFile queues an attachment for the next Send.
func (s *ChatSession) AttachFile(att models.Attachment) {
	s.pending = append(s.pending, att)
}

// ClearAttachments drops the pending attachment selection.
func (s *ChatSession) ClearAttachments() {
	s.pending = nil
}

// Send appends a user turn built from text plus any pending attachments,
// submits the conversation, and appends the model's reply. Failures surface
// as a fixed fallback bubble, never as a raw error in the transcript.
func (s *ChatSession) Send(ctx context.Context, text string) (models.Turn, error) {
	text = strings.TrimSpace(text)
	files := s.pending
	s.pending = nil

	if text == "" && len(files) == 0 {
		return models.Turn{}, errors.New("nothing to send")
	}

	// Conversation id is minted lazily on first send and stays stable
	if s.id == "" {
		s.id = newConversationID()
	}

	if text == "" {
		plural := ""
		if len(files) > 1 {
			plural = "s"
		}
		text = fmt.Sprintf("Sent %d file%s", len(files), plural)
	}

	userTurn := models.Turn{
		ID:    uuid.NewString(),
		Role:  models.RoleUser,
		Text:  text,
		Files: files,
	}
	s.turns = append(s.turns, userTurn)
	s.view.AppendTurn(userTurn)
	s.persist()

	return s.appendReply(ctx), nil
}

// Retry regenerates the model turn identified by turnID: the turn and
// everything after it are discarded and the remaining history is resubmitted.
// State is left untouched when the turn cannot be resolved.
func (s *ChatSession) Retry(ctx context.Context, turnID string) (models.Turn, error) {
	idx := s.indexOf(turnID)
	if idx < 0 {
		log.Printf("session: retry: turn %s not found", turnID)
		return models.Turn{}, fmt.Errorf("turn %s not found", turnID)
	}
	if s.turns[idx].Role != models.RoleModel && s.turns[idx].Role != models.RoleBot {
		log.Printf("session: retry: turn %s is not a model turn", turnID)
		return models.Turn{}, fmt.Errorf("turn %s is not a model turn", turnID)
	}

	userIdx := -1
	for i := idx - 1; i >= 0; i-- {
		if s.turns[i].Role == models.RoleUser {
			userIdx = i
			break
		}
	}
	if userIdx < 0 {
		log.Printf("session: retry: no user turn precedes %s", turnID)
		return models.Turn{}, fmt.Errorf("no user turn precedes %s", turnID)
	}

	s.turns = s.turns[:idx]
	s.view.RemoveTurnsFrom(turnID)

	return s.appendReply(ctx), nil
}

// Edit overwrites a turn's text when the new text is non-empty and actually
// differs. No resubmission happens; the model is not consulted on edit.
func (s *ChatSession) Edit(turnID, newText string) error {
	idx := s.indexOf(turnID)
	if idx < 0 {
		return fmt.Errorf("turn %s not found", turnID)
	}

	newText = strings.TrimSpace(newText)
	if newText == "" || newText == s.turns[idx].Text {
		return nil
	}

	s.turns[idx].Text = newText
	s.view.SetTurnText(turnID, newText)
	s.persist()
	return nil
}

// Load replaces the in-memory state wholesale with a stored conversation and
// re-renders every turn in order.
func (s *ChatSession) Load(id string) error {
	conv, ok, err := s.store.Get(id)
	if err != nil {
		log.Printf("session: load %s: %v", id, err)
		return err
	}
	if !ok {
		return fmt.Errorf("conversation %s not found", id)
	}

	turns := make([]models.Turn, len(conv.Messages))
	copy(turns, conv.Messages)
	for i := range turns {
		normalizeTurn(&turns[i], conv.ID, i)
	}

	s.id = conv.ID
	s.turns = turns
	s.pending = nil

	s.view.Reset()
	for _, turn := range turns {
		s.view.AppendTurn(turn)
	}
	return nil
}

// Search returns stored conversations matching the query; storage failures
// degrade to an empty result.
func (s *ChatSession) Search(query string) []models.Conversation {
	convs, err := s.store.Search(query)
	if err != nil {
		log.Printf("session: search: %v", err)
		return nil
	}
	return convs
}

// NewConversation persists the active conversation, if any, then resets the
// session to a blank state.
func (s *ChatSession) NewConversation() {
	if len(s.turns) > 0 {
		s.persist()
	}

	s.id = ""
	s.turns = nil
	s.pending = nil
	s.view.Reset()
}

// appendReply submits the current history and records the model turn.
func (s *ChatSession) appendReply(ctx context.Context) models.Turn {
	text := s.submit(ctx)

	modelTurn := models.Turn{
		ID:   uuid.NewString(),
		Role: models.RoleModel,
		Text: text,
	}
	s.turns = append(s.turns, modelTurn)
	s.view.AppendTurn(modelTurn)
	s.persist()
	return modelTurn
}

func (s *ChatSession) submit(ctx context.Context) string {
	result, err := s.responder.Generate(ctx, trimForTransport(s.turns), s.model)
	if err != nil {
		log.Printf("session: generate failed: %v", err)
		return sendFailedText
	}
	if result == "" {
		return emptyResultText
	}
	return result
}

func (s *ChatSession) indexOf(turnID string) int {
	for i, t := range s.turns {
		if t.ID == turnID {
			return i
		}
	}
	return -1
}

// persist rewrites this conversation's record in the durable index. Storage
// failures are logged and swallowed; the in-memory session keeps working.
func (s *ChatSession) persist() {
	if s.id == "" || len(s.turns) == 0 {
		return
	}

	conv := models.Conversation{
		ID:        s.id,
		Title:     deriveTitle(s.turns),
		Messages:  s.Turns(),
		UpdatedAt: time.Now(),
	}

	if err := s.store.Save(conv); err != nil {
		log.Printf("session: save conversation %s: %v", s.id, err)
	}
}

// trimForTransport strips attachment payloads from every user turn except the
// final one; earlier payloads stay in the durable store but are too large to
// resend on each request.
func trimForTransport(turns []models.Turn) []models.Turn {
	out := make([]models.Turn, len(turns))
	for i, t := range turns {
		if t.Role == models.RoleUser && i != len(turns)-1 {
			t.Files = nil
			t.File = nil
		}
		out[i] = t
	}
	return out
}

// deriveTitle builds the conversation title from the first user turn only;
// it is never recomputed from later turns.
func deriveTitle(turns []models.Turn) string {
	for _, t := range turns {
		if t.Role != models.RoleUser {
			continue
		}
		runes := []rune(t.Text)
		if len(runes) > titleMaxRunes {
			return string(runes[:titleMaxRunes]) + "..."
		}
		return t.Text
	}
	return untitledConversation
}

// normalizeTurn upgrades turns written by older clients: a single legacy
// file becomes a one-element files list, and missing IDs are minted. Minted
// IDs derive from the conversation id and position so loading the same
// conversation twice yields identical turns.
func normalizeTurn(t *models.Turn, convID string, pos int) {
	if t.File != nil && len(t.Files) == 0 {
		t.Files = []models.Attachment{*t.File}
	}
	if t.ID == "" {
		t.ID = uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("%s/%d", convID, pos))).String()
	}
}

func newConversationID() string {
	return fmt.Sprintf("conv_%d_%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}
