package models

// Attachment is a file carried inline with a turn. Data holds the full
// data URL (data:<mime>;base64,<payload>) exactly as the client produced it.
type Attachment struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Size int64  `json:"size"`
	Data string `json:"data"`
}

const (
	RoleUser  = "user"
	RoleModel = "model"
	RoleBot   = "bot" // legacy alias for model turns
)

// Turn is one message in a conversation. ID is assigned once at creation and
// never changes; stored turns from older clients may arrive without one.
type Turn struct {
	ID    string       `json:"id,omitempty"`
	Role  string       `json:"role"`
	Text  string       `json:"text"`
	Files []Attachment `json:"files,omitempty"`
	// File is the legacy single-attachment field, kept for stored
	// conversations written before multi-file support.
	File *Attachment `json:"file,omitempty"`
}

// ChatRequest is the payload accepted by POST /chat.
type ChatRequest struct {
	Conversation []Turn `json:"conversation"`
	Model        string `json:"model,omitempty"`
}

// ChatResponse is the success reply from POST /chat.
type ChatResponse struct {
	Result string `json:"result"`
}

// ChatError is the failure reply from POST /chat. Message is only set for
// provider failures and carries the provider's error text.
type ChatError struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
