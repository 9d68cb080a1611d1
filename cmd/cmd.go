// submodule cmd contains command definitions
package main

import (
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/urfave/cli/v3"
)

func tokenFileFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "token-file",
		Aliases: []string{"t"},
		Usage:   "Path of the stored Spotify token",
		Value:   shared.DefaultTokenFile,
		Sources: cli.EnvVars("MIXTAPE_TOKEN_FILE"),
	}
}

func formatFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Output format: text, json, csv or markdown",
			Value:   "text",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Write the result to a file instead of stdout",
		},
	}
}

// serveCommand runs the HTTP service.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the web service",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (default: server.host:server.port from config)",
			},
			&cli.BoolFlag{
				Name:  "open",
				Usage: "Open the login page in a browser once listening",
			},
		},
		Action: r.Serve,
	}
}

// setupCommand writes a starter configuration file.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create config.toml from the bundled example",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   defaultConfigPath,
			},
		},
		Action: r.Setup,
	}
}

// spotifyCommand handles Spotify operations
func spotifyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "spotify",
		Aliases: []string{"spot"},
		Usage:   "Spotify account, search and matching",
		Commands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "Authenticate with Spotify using OAuth2 and store the token",
				Flags:  []cli.Flag{tokenFileFlag()},
				Action: r.SpotifyLogin,
			},
			{
				Name:   "me",
				Usage:  "Show the logged in profile and playlists",
				Flags:  []cli.Flag{tokenFileFlag(), &cli.BoolFlag{Name: "json", Usage: "Output raw JSON"}},
				Action: r.SpotifyMe,
			},
			{
				Name:  "search",
				Usage: "Search Spotify for tracks",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "query"},
				},
				Flags: []cli.Flag{
					tokenFileFlag(),
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of results",
						Value: 5,
					},
					&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
				},
				Action: r.SpotifySearch,
			},
			{
				Name:      "match",
				Usage:     "Resolve song names to Spotify tracks, one search per name",
				ArgsUsage: "[song ...]",
				Flags: append([]cli.Flag{
					tokenFileFlag(),
					&cli.StringFlag{
						Name:  "file",
						Usage: "Read song names from a file, one per line",
					},
					&cli.StringFlag{
						Name:  "create",
						Usage: "Create a playlist with this name from the matches",
					},
					&cli.StringFlag{
						Name:  "description",
						Usage: "Description of the created playlist",
					},
					&cli.BoolFlag{
						Name:  "public",
						Usage: "Make the created playlist public",
					},
				}, formatFlags()...),
				Action: r.SpotifyMatch,
			},
		},
	}
}

// suggestCommand asks the suggestion backend for songs.
func suggestCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "suggest",
		Usage:     "Ask for song suggestions",
		ArgsUsage: "<prompt>",
		Flags: append([]cli.Flag{
			tokenFileFlag(),
			&cli.BoolFlag{
				Name:  "match",
				Usage: "Resolve the suggestions on Spotify",
			},
			&cli.StringFlag{
				Name:  "create",
				Usage: "Create a playlist with this name from the matches (implies --match)",
			},
			&cli.StringFlag{
				Name:  "description",
				Usage: "Description of the created playlist",
			},
			&cli.BoolFlag{
				Name:  "public",
				Usage: "Make the created playlist public",
			},
		}, formatFlags()...),
		Action: r.Suggest,
	}
}
