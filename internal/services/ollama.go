package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/ollama/ollama/api"
)

const defaultOllamaModel = "llama3.2"

// OllamaGenerator implements [Generator] against a local or remote Ollama server.
type OllamaGenerator struct {
	client *api.Client
	model  string
}

// NewOllamaGenerator creates a generator for the Ollama server at host.
func NewOllamaGenerator(host, model string, httpClient *http.Client) (*OllamaGenerator, error) {
	base, err := url.Parse(host)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%w: invalid ollama host %q", shared.ErrInvalidConfig, host)
	}
	if model == "" {
		model = defaultOllamaModel
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &OllamaGenerator{client: api.NewClient(base, httpClient), model: model}, nil
}

func (g *OllamaGenerator) Name() string {
	return "Ollama"
}

// Generate sends the transcript as a single non-streaming chat request.
func (g *OllamaGenerator) Generate(ctx context.Context, turns []models.ConversationTurn) (string, error) {
	messages, err := ollamaMessages(turns)
	if err != nil {
		return "", err
	}

	stream := false
	req := &api.ChatRequest{
		Model:    g.model,
		Messages: messages,
		Stream:   &stream,
	}

	var reply strings.Builder
	err = g.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		reply.WriteString(resp.Message.Content)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: ollama request failed: %v", shared.ErrUpstream, err)
	}

	return reply.String(), nil
}

// ollamaMessages maps transcript roles onto Ollama's user/assistant roles.
func ollamaMessages(turns []models.ConversationTurn) ([]api.Message, error) {
	if len(turns) == 0 {
		return nil, fmt.Errorf("%w: transcript is empty", shared.ErrValidation)
	}
	if turns[len(turns)-1].Role != models.RoleUser {
		return nil, fmt.Errorf("%w: last turn must be a user turn", shared.ErrValidation)
	}

	messages := make([]api.Message, 0, len(turns))
	for _, t := range turns {
		role := "user"
		if t.Role == models.RoleModel {
			role = "assistant"
		}
		messages = append(messages, api.Message{Role: role, Content: t.Text})
	}
	return messages, nil
}
