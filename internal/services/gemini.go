package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	gl "cloud.google.com/go/ai/generativelanguage/apiv1beta"
	pb "cloud.google.com/go/ai/generativelanguage/apiv1beta/generativelanguagepb"
	"google.golang.org/api/option"

	"gemini-chat-backend/internal/models"
)

// systemInstruction steers tone and language of every reply. Not client
// configurable in this version.
const systemInstruction = `Kamu adalah asisten AI yang ramah dan membantu.
Kamu menjawab pertanyaan dengan jelas, informatif, dan dalam Bahasa Indonesia.
Berikan respons yang singkat namun bermakna.
Jika user mengirim gambar atau file, analisis dan bahas kontennya.`

// dataURLPattern matches data:<mime>;base64,<payload>. Attachments that do
// not match are dropped, not rejected.
var dataURLPattern = regexp.MustCompile(`^data:([^;]+);base64,(.+)$`)

type GeminiService struct {
	client       *gl.GenerativeClient
	defaultModel string
	rateChan     chan struct{} // Token bucket
}

func NewGeminiService(apiKey, defaultModel string, concurrentReqs int) (*GeminiService, error) {
	ctx := context.Background()
	client, err := gl.NewGenerativeRESTClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	// Token bucket for limiting concurrent provider calls
	rateChan := make(chan struct{}, concurrentReqs)
	for i := 0; i < concurrentReqs; i++ {
		rateChan <- struct{}{}
	}

	return &GeminiService{
		client:       client,
		defaultModel: defaultModel,
		rateChan:     rateChan,
	}, nil
}

func (s *GeminiService) Close() {
	s.client.Close()
}

// acquireRate blocks until a rate slot is available
func (s *GeminiService) acquireRate(ctx context.Context) error {
	select {
	case <-s.rateChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Minute):
		return fmt.Errorf("timeout waiting for Gemini rate slot")
	}
}

func (s *GeminiService) releaseRate() {
	s.rateChan <- struct{}{}
}

// Generate translates the conversation into Gemini contents and returns the
// model's reply. The caller-supplied model identifier overrides the default
// and is passed through unvalidated; unknown identifiers fail at the provider.
//
// The request carries the full contents list, so role labels survive even
// when the conversation ends on a model turn.
func (s *GeminiService) Generate(ctx context.Context, conversation []models.Turn, modelName string) (string, error) {
	contents := buildContents(conversation)
	if len(contents) == 0 {
		return "", &ValidationError{Message: "No valid content to send"}
	}

	if modelName == "" {
		modelName = s.defaultModel
	}

	if err := s.acquireRate(ctx); err != nil {
		return "", err
	}
	defer s.releaseRate()

	req := &pb.GenerateContentRequest{
		Model:    fullModelName(modelName),
		Contents: contents,
		GenerationConfig: &pb.GenerationConfig{
			Temperature: ptr[float32](0.7),
			TopP:        ptr[float32](0.9),
			TopK:        ptr[int32](40),
		},
		SystemInstruction: &pb.Content{
			Parts: []*pb.Part{textPart(systemInstruction)},
		},
	}

	resp, err := s.client.GenerateContent(ctx, req)
	if err != nil {
		return "", fmt.Errorf("Gemini API error: %w", err)
	}

	return extractText(resp), nil
}

// buildContents converts conversation turns into provider contents. User
// turns contribute a text part plus one inline-data part per decodable
// attachment; model turns contribute text only.
func buildContents(conversation []models.Turn) []*pb.Content {
	var contents []*pb.Content

	for _, turn := range conversation {
		switch turn.Role {
		case models.RoleUser:
			parts := contentParts(turn)
			if len(parts) > 0 {
				contents = append(contents, &pb.Content{Role: "user", Parts: parts})
			} else if turn.Text != "" {
				// Fallback: never drop a user turn that has raw text
				contents = append(contents, &pb.Content{
					Role:  "user",
					Parts: []*pb.Part{textPart(turn.Text)},
				})
			}
		case models.RoleModel, models.RoleBot:
			if turn.Text != "" {
				contents = append(contents, &pb.Content{
					Role:  "model",
					Parts: []*pb.Part{textPart(turn.Text)},
				})
			}
		}
	}

	return contents
}

func contentParts(turn models.Turn) []*pb.Part {
	var parts []*pb.Part

	if strings.TrimSpace(turn.Text) != "" {
		parts = append(parts, textPart(turn.Text))
	}

	for _, file := range turn.Files {
		if blob, ok := decodeDataURL(file.Data); ok {
			parts = append(parts, inlineDataPart(blob))
		}
	}

	// Single file (backward compatibility)
	if turn.File != nil {
		if blob, ok := decodeDataURL(turn.File.Data); ok {
			parts = append(parts, inlineDataPart(blob))
		}
	}

	return parts
}

// decodeDataURL extracts the mime type and payload from a data URL. Malformed
// attachments are skipped silently so one bad file never fails the request.
func decodeDataURL(dataURL string) (*pb.Blob, bool) {
	matches := dataURLPattern.FindStringSubmatch(dataURL)
	if matches == nil {
		return nil, false
	}

	payload, err := base64.StdEncoding.DecodeString(matches[2])
	if err != nil {
		log.Printf("dropping attachment with undecodable payload: %v", err)
		return nil, false
	}

	return &pb.Blob{MimeType: matches[1], Data: payload}, true
}

func extractText(resp *pb.GenerateContentResponse) string {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		for _, part := range cand.GetContent().GetParts() {
			text.WriteString(part.GetText())
		}
	}
	return text.String()
}

func textPart(s string) *pb.Part {
	return &pb.Part{Data: &pb.Part_Text{Text: s}}
}

func inlineDataPart(blob *pb.Blob) *pb.Part {
	return &pb.Part{Data: &pb.Part_InlineData{InlineData: blob}}
}

func fullModelName(name string) string {
	if strings.ContainsRune(name, '/') {
		return name
	}
	return "models/" + name
}

func ptr[T any](v T) *T {
	return &v
}
