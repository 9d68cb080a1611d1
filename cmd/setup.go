package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup writes config.toml from the embedded example and reports what is still missing.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if err := shared.CreateConfigFile(configPath); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}
	r.logger.Info("config file created", "path", configPath)

	r.writePlain("%s Config written to %s\n", r.palette.OK("✓"), configPath)

	config, err := shared.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load created config: %w", err)
	}

	if err := config.Validate(); err != nil {
		r.writePlainln("%s", r.palette.Warn("Still needed before `mixtape serve`:"))
		r.writePlain("%v\n", err)
	}

	r.writePlainln("Next steps:")
	r.writePlain("1. Fill in %s or set SPOTIFY_CLIENT_ID, SPOTIFY_CLIENT_SECRET, SESSION_SECRET and GEMINI_API_KEY\n", configPath)
	r.writePlain("2. Run 'mixtape spotify login' to authorize the CLI\n")
	r.writePlain("3. Run 'mixtape serve --open' to start the web service\n")
	r.writePlain("%s\n", r.palette.Help("Values in the environment or a .env file override the file."))

	return nil
}
