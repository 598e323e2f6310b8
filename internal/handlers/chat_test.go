package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"gemini-chat-backend/internal/models"
	"gemini-chat-backend/internal/services"
)

type fakeResponder struct {
	result string
	err    error

	gotConversation []models.Turn
	gotModel        string
}

func (f *fakeResponder) Generate(ctx context.Context, conversation []models.Turn, model string) (string, error) {
	f.gotConversation = conversation
	f.gotModel = model
	return f.result, f.err
}

func postChat(t *testing.T, h *ChatHandler, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	jsonBody, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("Failed to marshal body: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()

	h.Chat(rr, req)
	return rr
}

func TestChat_Success(t *testing.T) {
	responder := &fakeResponder{result: "Hi there"}
	h := NewChatHandler(responder)

	rr := postChat(t, h, models.ChatRequest{
		Conversation: []models.Turn{{Role: models.RoleUser, Text: "Hello"}},
	})

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}

	var resp models.ChatResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Result != "Hi there" {
		t.Errorf("Expected result 'Hi there', got %q", resp.Result)
	}
	if len(responder.gotConversation) != 1 || responder.gotConversation[0].Text != "Hello" {
		t.Errorf("Responder received wrong conversation: %#v", responder.gotConversation)
	}
}

func TestChat_ModelPassthrough(t *testing.T) {
	responder := &fakeResponder{result: "ok"}
	h := NewChatHandler(responder)

	postChat(t, h, models.ChatRequest{
		Conversation: []models.Turn{{Role: models.RoleUser, Text: "hi"}},
		Model:        "gemini-2.5-pro",
	})

	if responder.gotModel != "gemini-2.5-pro" {
		t.Errorf("Expected model 'gemini-2.5-pro', got %q", responder.gotModel)
	}
}

func TestChat_EmptyConversation(t *testing.T) {
	tests := []struct {
		name string
		body interface{}
	}{
		{"empty array", models.ChatRequest{Conversation: []models.Turn{}}},
		{"missing field", map[string]string{"model": "gemini-2.5-flash"}},
		{"not an array", map[string]interface{}{"conversation": "hello"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := NewChatHandler(&fakeResponder{})
			rr := postChat(t, h, tc.body)

			if rr.Code != http.StatusBadRequest {
				t.Fatalf("Expected status 400, got %d", rr.Code)
			}

			var resp models.ChatError
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if resp.Error != "Conversation must be a non-empty array" {
				t.Errorf("Expected empty-array error, got %q", resp.Error)
			}
		})
	}
}

func TestChat_NoUsableContent(t *testing.T) {
	responder := &fakeResponder{err: &services.ValidationError{Message: "No valid content to send"}}
	h := NewChatHandler(responder)

	rr := postChat(t, h, models.ChatRequest{
		Conversation: []models.Turn{{Role: models.RoleModel, Text: ""}},
	})

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d", rr.Code)
	}

	var resp models.ChatError
	json.NewDecoder(rr.Body).Decode(&resp)
	if resp.Error != "No valid content to send" {
		t.Errorf("Expected no-valid-content error, got %q", resp.Error)
	}
}

func TestChat_ProviderFailure(t *testing.T) {
	responder := &fakeResponder{err: errors.New("Gemini API error: quota exceeded")}
	h := NewChatHandler(responder)

	rr := postChat(t, h, models.ChatRequest{
		Conversation: []models.Turn{{Role: models.RoleUser, Text: "hi"}},
	})

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("Expected status 500, got %d", rr.Code)
	}

	var resp models.ChatError
	json.NewDecoder(rr.Body).Decode(&resp)
	if resp.Error != "Failed to generate response" {
		t.Errorf("Expected generic failure error, got %q", resp.Error)
	}
	if resp.Message != "Gemini API error: quota exceeded" {
		t.Errorf("Expected provider message to pass through, got %q", resp.Message)
	}
}
