package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/desertthunder/mixtape/internal/formatter"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/server"
	"github.com/desertthunder/mixtape/internal/services"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/desertthunder/mixtape/internal/tasks"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

const oauthTimeout = 2 * time.Minute

// SpotifyLogin performs the OAuth2 authorization flow for the CLI and stores the token.
//
// Starts a local HTTP server on the redirect URI's host, opens the browser for user authorization,
// and exchanges the auth code for tokens.
func (r *Runner) SpotifyLogin(ctx context.Context, cmd *cli.Command) error {
	if r.oauth == nil {
		return fmt.Errorf("%w: Spotify client_id and client_secret must be set in config.toml", shared.ErrMissingCredentials)
	}

	token, err := r.doOAuth(ctx, r.oauth, r.config.Credentials.Spotify.RedirectURI)
	if err != nil {
		return err
	}

	tokenFile := cmd.String("token-file")
	if err := shared.SaveToken(tokenFile, token); err != nil {
		return err
	}

	r.writePlainln("%s Authorization successful", r.palette.OK("✓"))
	r.writePlain("%s Token saved to %s\n", r.palette.OK("✓"), tokenFile)
	r.writePlain("  Access token: %s\n\n", token.AccessToken)
	r.writePlain("You can now use: mixtape spotify match \"Song - Artist\"\n")
	return nil
}

// SpotifyMe prints the profile and playlists of the stored credential.
func (r *Runner) SpotifyMe(ctx context.Context, cmd *cli.Command) error {
	sess, err := r.session(ctx, cmd.String("token-file"), true)
	if err != nil {
		return err
	}

	playlists, err := r.catalog.UserPlaylists(ctx, sess.Credential, sess.UserID)
	if err != nil {
		return fmt.Errorf("failed to list playlists: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(map[string]any{"user_id": sess.UserID, "display_name": sess.DisplayName, "playlists": playlists}, true)
	}

	r.writePlainHeader(fmt.Sprintf("%s (%s)", sess.DisplayName, sess.UserID))
	r.writePlain("Found %d playlists:\n\n", len(playlists))
	for i, p := range playlists {
		r.writePlain("%d. %s\n", i+1, p.Name)
		if p.Description != "" {
			r.writePlain("   Description: %s\n", p.Description)
		}
		r.writePlain("   ID: %s\n", p.ID)
		r.writePlain("   Tracks: %d\n", p.TrackCount)
		r.writePlain("   Visibility: %s\n\n", shared.VisibilityString(p.Public))
	}
	return nil
}

// SpotifySearch runs a single track search.
func (r *Runner) SpotifySearch(ctx context.Context, cmd *cli.Command) error {
	query := strings.TrimSpace(cmd.StringArg("query"))
	if query == "" {
		return fmt.Errorf("%w: query is required", shared.ErrMissingArgument)
	}

	limit := int(cmd.Int("limit"))
	if limit < 1 || limit > 50 {
		return fmt.Errorf("%w: --limit must be between 1 and 50", shared.ErrInvalidArgument)
	}

	sess, err := r.session(ctx, cmd.String("token-file"), false)
	if err != nil {
		return err
	}

	r.logger.Debug("searching spotify", "query", query, "limit", limit)
	tracks, err := r.catalog.SearchTracks(ctx, sess.Credential, query, limit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if cmd.Bool("json") {
		if tracks == nil {
			tracks = []models.MatchedTrack{}
		}
		return r.writeJSON(tracks, true)
	}
	return formatter.Write(r.output, formatter.Text, formatter.Report{Title: "Search: " + query, Tracks: tracks})
}

// SpotifyMatch resolves song names from arguments or --file, optionally creating a playlist.
func (r *Runner) SpotifyMatch(ctx context.Context, cmd *cli.Command) error {
	songs := cmd.Args().Slice()
	if path := cmd.String("file"); path != "" {
		fromFile, err := readSongs(path)
		if err != nil {
			return err
		}
		songs = append(songs, fromFile...)
	}

	songs = shared.NormalizeCandidates(songs)
	if len(songs) == 0 {
		return fmt.Errorf("%w: pass song names as arguments or with --file", shared.ErrMissingArgument)
	}

	return r.runPipeline(ctx, cmd, songs)
}

// runPipeline matches songs, creates and populates a playlist when --create is set, and renders the result.
func (r *Runner) runPipeline(ctx context.Context, cmd *cli.Command, songs []string) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	name := strings.TrimSpace(cmd.String("create"))
	sess, err := r.session(ctx, cmd.String("token-file"), name != "")
	if err != nil {
		return err
	}

	progress, done := r.progressPrinter(format, 3*len(songs)+16)
	matched, err := tasks.NewMatcher(r.catalog).WithProgress(progress).Match(ctx, sess, songs)
	if err != nil {
		close(progress)
		<-done
		return fmt.Errorf("failed to match songs: %w", err)
	}

	report := formatter.Report{Title: "Matched tracks", Tracks: matched}

	if name != "" {
		policy, err := tasks.ParsePopulateFailurePolicy(r.config.Assembler.OnPopulateFailure)
		if err != nil {
			close(progress)
			<-done
			return err
		}

		req := models.CollectionRequest{Name: name, Description: cmd.String("description"), Public: cmd.Bool("public")}
		assembler := tasks.NewAssembler(r.catalog, policy, r.logger).WithProgress(progress)
		created, err := assembler.Assemble(ctx, sess, req, tasks.URIs(matched))
		if err != nil {
			close(progress)
			<-done
			if created != nil {
				return fmt.Errorf("playlist %s created but not populated: %w", created.ExternalURL, err)
			}
			return fmt.Errorf("failed to build playlist: %w", err)
		}
		report.Playlist = created
	}

	close(progress)
	report.Missing = <-done

	if path := cmd.String("output"); path != "" {
		if err := formatter.WriteFile(path, format, report); err != nil {
			return err
		}
		r.writePlain("%s Wrote %d tracks to %s\n", r.palette.OK("✓"), len(report.Tracks), path)
		return nil
	}
	return formatter.Write(r.output, format, report)
}

// progressPrinter drains pipeline updates, printing them as they happen for plain text output.
// Once progress is closed the unmatched names are sent on the returned channel.
// Updates are dropped when the buffer is full, so size must cover every update of the run.
func (r *Runner) progressPrinter(format formatter.Format, size int) (chan tasks.ProgressUpdate, <-chan []string) {
	progress := make(chan tasks.ProgressUpdate, size)
	done := make(chan []string, 1)
	verbose := format == formatter.Text

	go func() {
		var missing []string
		for update := range progress {
			if name, ok := update.Data.(string); ok && update.Phase == tasks.SearchTracks {
				missing = append(missing, name)
			}
			if !verbose {
				r.logger.Debug(update.Message, "phase", update.Phase)
				continue
			}
			switch update.Phase {
			case tasks.CreatePlaylist:
				r.writePlain("\n%s\n", r.palette.OK(update.Message))
			case tasks.RemovePlaylist:
				r.writePlain("%s\n", r.palette.Warn(update.Message))
			default:
				r.writePlain("   %s\n", update.Message)
			}
		}
		if verbose {
			r.writePlain("\n")
		}
		done <- missing
	}()

	return progress, done
}

// readSongs reads one song name per line, skipping blanks and # comments.
func readSongs(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}
	defer f.Close()

	var songs []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		songs = append(songs, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return songs, nil
}

// doOAuth executes the OAuth2 authorization flow with a local HTTP server on the redirect URI's host.
func (r *Runner) doOAuth(ctx context.Context, oauthSrv services.OAuthService, redirectURI string) (*oauth2.Token, error) {
	u, err := url.Parse(redirectURI)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("%w: redirect_uri %q is not an absolute URL", shared.ErrInvalidConfig, redirectURI)
	}
	if u.Path != "/callback" {
		return nil, fmt.Errorf("%w: redirect_uri path must be /callback, got %q", shared.ErrInvalidConfig, u.Path)
	}

	state := shared.GenerateID()
	oauthHandler := server.NewOAuthHandler(oauthSrv, state)
	router := server.NewChiRouter()
	router.Use(server.RequestLogger(r.logger))
	router.Handler(oauthHandler)

	listener, err := net.Listen("tcp", u.Host)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", u.Host, err)
	}

	httpServer := &http.Server{Handler: router, ReadHeaderTimeout: 10 * time.Second}
	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting OAuth server at %v", u.Host)
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			r.logger.Warn("error shutting down server", "error", err)
		}
	}()

	authURL := oauthSrv.AuthURL(state)
	r.writePlain("→ Opening browser for Spotify authorization...\n")
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("%s Could not open browser automatically.", r.palette.Warn("⚠"))
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (%v timeout)...\n", oauthTimeout)

	ctx, cancel := context.WithTimeout(ctx, oauthTimeout)
	defer cancel()

	var result server.OAuthResult
	select {
	case result = <-oauthHandler.Result():
	case err := <-serverErrors:
		return nil, fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: authorization timed out after %v", shared.ErrAuthFailed, oauthTimeout)
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("authorization failed: %w", result.Error())
	}
	if result.Token == nil {
		return nil, fmt.Errorf("%w: no token received", shared.ErrAuthFailed)
	}
	return result.Token, nil
}
