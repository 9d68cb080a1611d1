package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/services"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/desertthunder/mixtape/internal/ui"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// tokenRefresher is implemented by catalogs that can renew an expired CLI credential.
type tokenRefresher interface {
	Refresh(ctx context.Context, token *oauth2.Token) (*oauth2.Token, error)
}

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	catalog    services.Service
	oauth      services.OAuthService
	generator  services.Generator
	logger     *log.Logger
	output     io.Writer
	palette    *ui.Palette
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Catalog    services.Service
	OAuth      services.OAuthService
	Generator  services.Generator
	Logger     *log.Logger
	Output     io.Writer
	Palette    *ui.Palette
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Palette == nil {
		opts.Palette = ui.Default
		if opts.Output != os.Stdout {
			opts.Palette = ui.Plain()
		}
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		catalog:    opts.Catalog,
		oauth:      opts.OAuth,
		generator:  opts.Generator,
		logger:     opts.Logger,
		output:     opts.Output,
		palette:    opts.Palette,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		serveCommand, setupCommand, spotifyCommand, suggestCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// credential loads the CLI token from path, refreshing and re-saving it when it has expired.
func (r *Runner) credential(ctx context.Context, path string) (*oauth2.Token, error) {
	token, err := shared.LoadToken(path)
	if err != nil {
		return nil, err
	}

	refresher, ok := r.catalog.(tokenRefresher)
	if !ok {
		return token, nil
	}

	fresh, err := refresher.Refresh(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w (run `mixtape spotify login` again)", err)
	}
	if fresh.AccessToken != token.AccessToken {
		r.logger.Debug("refreshed spotify token", "path", path)
		if err := shared.SaveToken(path, fresh); err != nil {
			r.logger.Warn("failed to save refreshed token", "error", err)
		}
	}
	return fresh, nil
}

// session builds a CLI session around the stored token. withProfile also resolves the user id,
// which playlist creation needs.
func (r *Runner) session(ctx context.Context, tokenFile string, withProfile bool) (models.Session, error) {
	if r.catalog == nil {
		return models.Session{}, fmt.Errorf("%w: Spotify service not initialized, set client_id and client_secret", shared.ErrServiceUnavailable)
	}

	token, err := r.credential(ctx, tokenFile)
	if err != nil {
		return models.Session{}, err
	}

	sess := models.Session{ID: "cli", Credential: token}
	if !withProfile {
		return sess, nil
	}

	profile, err := r.catalog.UserProfile(ctx, token)
	if err != nil {
		return models.Session{}, fmt.Errorf("failed to fetch profile: %w", err)
	}
	sess.UserID = profile.ID
	sess.DisplayName = profile.DisplayName
	sess.Email = profile.Email
	return sess, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", r.palette.Title(title))
	r.writePlain("═══════════════════════════════════════\n")
}
