package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/desertthunder/mixtape/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Suggest sends a one-turn conversation to the suggestion backend and prints the songs.
//
// With --match or --create the suggestions go through the same match and assemble pipeline as `spotify match`.
func (r *Runner) Suggest(ctx context.Context, cmd *cli.Command) error {
	prompt := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
	if prompt == "" {
		return fmt.Errorf("%w: prompt is required", shared.ErrMissingArgument)
	}
	if r.generator == nil {
		return fmt.Errorf("%w: no suggestion backend configured (set GEMINI_API_KEY or generator.provider = \"ollama\")", shared.ErrServiceUnavailable)
	}

	proxy := tasks.NewSuggestionProxy(r.generator, r.config.Generator.MaxTurns)
	r.logger.Debug("requesting suggestions", "backend", r.generator.Name())

	reply, err := proxy.Suggest(ctx, []models.ConversationTurn{{Role: models.RoleUser, Text: prompt}})
	if err != nil {
		return fmt.Errorf("failed to get suggestions: %w", err)
	}

	var songs []string
	if reply != tasks.NoResponse {
		songs = tasks.ParseSuggestions(reply)
	}
	if !cmd.Bool("match") && cmd.String("create") == "" {
		if len(songs) == 0 {
			return r.writePlain("%s\n", reply)
		}
		r.writePlainHeader(fmt.Sprintf("Suggestions from %s", r.generator.Name()))
		for i, song := range songs {
			r.writePlain("%d. %s\n", i+1, song)
		}
		return nil
	}

	if len(songs) == 0 {
		return fmt.Errorf("%w: no songs in reply: %q", shared.ErrUpstream, reply)
	}
	return r.runPipeline(ctx, cmd, songs)
}
