package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"gemini-chat-backend/internal/models"
	"gemini-chat-backend/internal/services"
)

type chatResponder interface {
	Generate(ctx context.Context, conversation []models.Turn, model string) (string, error)
}

type ChatHandler struct {
	gemini chatResponder
}

func NewChatHandler(gemini chatResponder) *ChatHandler {
	return &ChatHandler{gemini: gemini}
}

// Chat forwards the submitted conversation to the model provider and returns
// the generated text verbatim.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.ChatError{Error: "Conversation must be a non-empty array"})
		return
	}

	if len(req.Conversation) == 0 {
		writeJSON(w, http.StatusBadRequest, models.ChatError{Error: "Conversation must be a non-empty array"})
		return
	}

	result, err := h.gemini.Generate(r.Context(), req.Conversation, req.Model)
	if err != nil {
		var verr *services.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusBadRequest, models.ChatError{Error: verr.Message})
			return
		}

		log.Printf("chat: failed to generate response: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.ChatError{
			Error:   "Failed to generate response",
			Message: err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, models.ChatResponse{Result: result})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
