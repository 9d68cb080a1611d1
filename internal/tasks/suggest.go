package tasks

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/services"
	"github.com/desertthunder/mixtape/internal/shared"
)

// InstructionPrefix is prepended to the first user turn of every conversation.
const InstructionPrefix = "You are a chatbot whose sole purpose is to suggest songs. " +
	"In your response, only give the song names and artists. " +
	"Do not say anything else and just give the song names. " +
	"After every song put a <br>. The user prompt is: "

// NoResponse replaces an empty generator reply.
const NoResponse = "No response"

var lineBreak = regexp.MustCompile(`(?i)<br\s*/?>`)

// SuggestionProxy forwards a conversation to a [services.Generator] and cleans up the reply.
type SuggestionProxy struct {
	generator services.Generator
	maxTurns  int
}

// NewSuggestionProxy creates a [SuggestionProxy]. maxTurns of 0 accepts transcripts of any length.
func NewSuggestionProxy(generator services.Generator, maxTurns int) *SuggestionProxy {
	return &SuggestionProxy{generator: generator, maxTurns: maxTurns}
}

// Suggest sends the instructed transcript and returns the reply with emphasis markers removed.
func (p *SuggestionProxy) Suggest(ctx context.Context, turns []models.ConversationTurn) (string, error) {
	if p.generator == nil {
		return "", fmt.Errorf("%w: generator not initialized", shared.ErrServiceUnavailable)
	}

	instructed, err := p.instruct(turns)
	if err != nil {
		return "", err
	}

	reply, err := p.generator.Generate(ctx, instructed)
	if err != nil {
		return "", upstreamError(err, p.generator.Name())
	}

	reply = StripEmphasis(reply)
	if strings.TrimSpace(reply) == "" {
		return NoResponse, nil
	}
	return reply, nil
}

// instruct validates turns and returns a copy with [InstructionPrefix] on the first user turn.
func (p *SuggestionProxy) instruct(turns []models.ConversationTurn) ([]models.ConversationTurn, error) {
	if len(turns) == 0 {
		return nil, fmt.Errorf("%w: prompt must contain at least one turn", shared.ErrValidation)
	}
	if p.maxTurns > 0 && len(turns) > p.maxTurns {
		return nil, fmt.Errorf("%w: prompt has %d turns, limit is %d", shared.ErrValidation, len(turns), p.maxTurns)
	}
	for i, t := range turns {
		if t.Role != models.RoleUser && t.Role != models.RoleModel {
			return nil, fmt.Errorf("%w: turn %d has unknown role %q", shared.ErrValidation, i, t.Role)
		}
	}
	if turns[len(turns)-1].Role != models.RoleUser {
		return nil, fmt.Errorf("%w: last turn must be from the user", shared.ErrValidation)
	}

	out := make([]models.ConversationTurn, len(turns))
	copy(out, turns)
	for i, t := range out {
		if t.Role != models.RoleUser {
			continue
		}
		if !strings.HasPrefix(t.Text, InstructionPrefix) {
			out[i].Text = InstructionPrefix + t.Text
		}
		break
	}
	return out, nil
}

// StripEmphasis removes markdown bold and italic markers.
func StripEmphasis(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "**", ""), "*", "")
}

// ParseSuggestions splits a reply into candidate song names on <br> tags and newlines.
func ParseSuggestions(reply string) []string {
	return shared.NormalizeCandidates(strings.Split(lineBreak.ReplaceAllString(reply, "\n"), "\n"))
}
