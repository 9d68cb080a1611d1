package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const defaultGeminiModel = "gemini-2.0-flash"

// GeminiGenerator implements [Generator] with the Gemini chat API.
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

// NewGeminiGenerator creates a Gemini client authenticated with apiKey.
func NewGeminiGenerator(ctx context.Context, apiKey, model string, opts ...option.ClientOption) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: gemini api key", shared.ErrMissingCredentials)
	}
	if model == "" {
		model = defaultGeminiModel
	}

	client, err := genai.NewClient(ctx, append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiGenerator{client: client, model: model}, nil
}

func (g *GeminiGenerator) Name() string {
	return "Gemini"
}

// Close releases the underlying client.
func (g *GeminiGenerator) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}

// Generate replays the transcript as chat history and sends the final user turn.
func (g *GeminiGenerator) Generate(ctx context.Context, turns []models.ConversationTurn) (string, error) {
	history, last, err := geminiContents(turns)
	if err != nil {
		return "", err
	}

	chat := g.client.GenerativeModel(g.model).StartChat()
	chat.History = history

	resp, err := chat.SendMessage(ctx, last...)
	if err != nil {
		return "", fmt.Errorf("%w: gemini request failed: %v", shared.ErrUpstream, err)
	}

	return geminiText(resp), nil
}

// geminiContents splits the transcript into chat history and the parts of the final user turn.
func geminiContents(turns []models.ConversationTurn) ([]*genai.Content, []genai.Part, error) {
	if len(turns) == 0 {
		return nil, nil, fmt.Errorf("%w: transcript is empty", shared.ErrValidation)
	}

	final := turns[len(turns)-1]
	if final.Role != models.RoleUser {
		return nil, nil, fmt.Errorf("%w: last turn must be a user turn", shared.ErrValidation)
	}

	history := make([]*genai.Content, 0, len(turns)-1)
	for _, t := range turns[:len(turns)-1] {
		history = append(history, &genai.Content{
			Role:  t.Role,
			Parts: []genai.Part{genai.Text(t.Text)},
		})
	}

	return history, []genai.Part{genai.Text(final.Text)}, nil
}

// geminiText concatenates the text parts of the first candidate.
func geminiText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return b.String()
}
