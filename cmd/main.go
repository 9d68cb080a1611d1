package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixtape/internal/services"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/urfave/cli/v3"
)

const defaultConfigPath = "config.toml"

func main() {
	logger := shared.NewLogger(nil)

	configPath := os.Getenv("MIXTAPE_CONFIG")
	if configPath == "" {
		configPath = defaultConfigPath
	}

	config, err := shared.LoadConfig(configPath)
	if err != nil {
		logger.Warn("failed to load config, using defaults", "path", configPath, "error", err)
		config = shared.DefaultConfig()
	}
	shared.SetLogLevel(logger, shared.ParseLogLevel(config.Server.LogLevel))

	var spotifyService *services.SpotifyService
	if svc, err := services.NewSpotifyService(config.Credentials.Spotify.Map()); err == nil {
		spotifyService = svc.WithBaseURL(config.Spotify.BaseURL).WithTimeout(config.Spotify.Timeout)
	} else {
		logger.Debug("spotify service disabled", "error", err)
	}

	ctx := context.Background()
	generator, err := newGenerator(ctx, config)
	if err != nil {
		logger.Debug("suggestion backend disabled", "error", err)
	}
	if c, ok := generator.(io.Closer); ok {
		defer c.Close()
	}

	opts := RunnerOpts{Config: config, ConfigPath: configPath, Generator: generator, Logger: logger}
	if spotifyService != nil {
		opts.Catalog = spotifyService
		opts.OAuth = spotifyService
	}
	runner := NewRunner(opts)

	app := &cli.Command{
		Name:    "mixtape",
		Usage:   "Build Spotify playlists from AI song suggestions",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if cmd.Bool("debug") {
				shared.SetLogLevel(logger, log.DebugLevel)
			}
			return ctx, nil
		},
		Commands: runner.register(),
	}

	if err := app.Run(ctx, os.Args); err != nil {
		switch {
		case errors.Is(err, shared.ErrNotImplemented):
			logger.Warn("not implemented")
			os.Exit(0)
		case errors.Is(err, shared.ErrMissingCredentials), errors.Is(err, shared.ErrServiceUnavailable):
			logger.Error(err.Error())
			os.Exit(2)
		default:
			logger.Fatalf("application error: %v", err)
		}
	}
}

// newGenerator builds the suggestion backend selected by generator.provider.
func newGenerator(ctx context.Context, config *shared.Config) (services.Generator, error) {
	switch config.Generator.Provider {
	case "", "gemini":
		g, err := services.NewGeminiGenerator(ctx, config.Credentials.Gemini.APIKey, config.Credentials.Gemini.Model)
		if err != nil {
			return nil, err
		}
		return g, nil
	case "ollama":
		g, err := services.NewOllamaGenerator(config.Generator.OllamaHost, config.Generator.OllamaModel, nil)
		if err != nil {
			return nil, err
		}
		return g, nil
	default:
		return nil, fmt.Errorf("%w: unknown generator provider %q", shared.ErrInvalidConfig, config.Generator.Provider)
	}
}
