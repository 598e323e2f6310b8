package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"gemini-chat-backend/internal/models"
)

// APIClient is a Responder that talks to the chat backend over HTTP. No
// client-side timeout is set; an in-flight send cannot be aborted and relies
// on the transport's defaults.
type APIClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewAPIClient(baseURL string) *APIClient {
	return &APIClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
}

func (c *APIClient) Generate(ctx context.Context, conversation []models.Turn, model string) (string, error) {
	body, err := json.Marshal(models.ChatRequest{Conversation: conversation, Model: model})
	if err != nil {
		return "", fmt.Errorf("failed to encode chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat request failed: %w", err)
	}
	defer resp.Body.Close()

	var decoded struct {
		Result  string `json:"result"`
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("failed to decode chat response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if decoded.Message != "" {
			return "", fmt.Errorf("chat request failed: %s: %s", decoded.Error, decoded.Message)
		}
		return "", fmt.Errorf("chat request failed: %s", decoded.Error)
	}

	return decoded.Result, nil
}
