package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/desertthunder/mixtape/internal/tasks"
	tu "github.com/desertthunder/mixtape/internal/testing"
	"github.com/desertthunder/mixtape/internal/ui"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

func newTestRunner(t *testing.T, output io.Writer) (*Runner, *tu.MockService, *tu.MockGenerator) {
	t.Helper()
	svc := tu.NewMockService()
	gen := &tu.MockGenerator{Reply: "**Song A** - Artist<br>Song B"}
	runner := NewRunner(RunnerOpts{
		Config:    shared.DefaultConfig(),
		Catalog:   svc,
		OAuth:     &tu.MockOAuth{},
		Generator: gen,
		Logger:    shared.NewLogger(io.Discard),
		Output:    output,
	})
	return runner, svc, gen
}

func writeTestToken(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "token.json")
	if err := shared.SaveToken(path, &oauth2.Token{AccessToken: "cli-token"}); err != nil {
		t.Fatalf("failed to save token: %v", err)
	}
	return path
}

// run executes a single registered command with args, the way main does.
func run(t *testing.T, r *Runner, args ...string) error {
	t.Helper()
	app := &cli.Command{Name: "mixtape", Commands: r.register(), Writer: io.Discard, ErrWriter: io.Discard}
	return app.Run(context.Background(), append([]string{"mixtape"}, args...))
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			svc := tu.NewMockService()
			oauth := &tu.MockOAuth{}
			gen := &tu.MockGenerator{}
			palette := ui.Plain()

			runner := NewRunner(RunnerOpts{
				Config:     config,
				ConfigPath: "/test/path/config.toml",
				Catalog:    svc,
				OAuth:      oauth,
				Generator:  gen,
				Logger:     logger,
				Output:     output,
				Palette:    palette,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.configPath != "/test/path/config.toml" {
				t.Errorf("expected configPath to be set, got %s", runner.configPath)
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.catalog != svc || runner.oauth != oauth || runner.generator != gen {
				t.Error("expected services to be set")
			}
			if runner.palette != palette {
				t.Error("expected palette to be set")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Config: nil})
			if runner.config == nil {
				t.Error("expected default config to be set")
			}
		})

		t.Run("with nil logger uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Logger: nil})
			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: nil})
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
			if runner.palette != ui.Default {
				t.Error("expected styled palette for stdout")
			}
		})

		t.Run("with other output uses plain palette", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})
			if runner.palette == ui.Default {
				t.Error("expected plain palette for non-stdout output")
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if output.String() != expected {
				t.Errorf("expected %q, got %q", expected, output.String())
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.writeJSON(make(chan int), false)
			if err == nil || !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "hello world" {
				t.Errorf("expected 'hello world', got %q", output.String())
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})
			if err := runner.writePlain("test"); err == nil {
				t.Fatal("expected error from failing writer")
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		names := map[string]bool{}
		for i, cmd := range commands {
			if cmd == nil {
				t.Fatalf("command at index %d is nil", i)
			}
			names[cmd.Name] = true
		}
		for _, want := range []string{"serve", "setup", "spotify", "suggest"} {
			if !names[want] {
				t.Errorf("expected %s command to be registered", want)
			}
		}
	})
}

func TestCredential(t *testing.T) {
	t.Run("missing token file", func(t *testing.T) {
		runner, _, _ := newTestRunner(t, &bytes.Buffer{})
		_, err := runner.credential(context.Background(), filepath.Join(t.TempDir(), "none.json"))
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("session without catalog", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}, Logger: shared.NewLogger(io.Discard)})
		if _, err := runner.session(context.Background(), writeTestToken(t), false); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})

	t.Run("session with profile", func(t *testing.T) {
		runner, svc, _ := newTestRunner(t, &bytes.Buffer{})
		sess, err := runner.session(context.Background(), writeTestToken(t), true)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if sess.UserID != "user-1" || sess.Credential.AccessToken != "cli-token" {
			t.Errorf("unexpected session %+v", sess)
		}
		if svc.Calls("UserProfile") != 1 {
			t.Error("expected one profile call")
		}
	})
}

func TestSpotifyCommands(t *testing.T) {
	t.Run("search", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner, svc, _ := newTestRunner(t, output)
		svc.SearchResults["love"] = []models.MatchedTrack{{Name: "Love Song", Artists: []string{"Band"}, URI: "spotify:track:1"}}

		if err := run(t, runner, "spotify", "search", "--token-file", writeTestToken(t), "love"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), "1. Band - Love Song") {
			t.Errorf("unexpected output %q", output.String())
		}
	})

	t.Run("search requires a query", func(t *testing.T) {
		runner, svc, _ := newTestRunner(t, &bytes.Buffer{})
		err := run(t, runner, "spotify", "search", "--token-file", writeTestToken(t))
		if !errors.Is(err, shared.ErrMissingArgument) || svc.TotalCalls() != 0 {
			t.Errorf("expected ErrMissingArgument without calls, got %v", err)
		}
	})

	t.Run("match from args and file", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner, svc, _ := newTestRunner(t, output)
		svc.SearchResults["Song A"] = []models.MatchedTrack{{Name: "Song A", Artists: []string{"X"}, URI: "spotify:track:a"}}
		svc.SearchResults["Song B"] = []models.MatchedTrack{{Name: "Song B", Artists: []string{"Y"}, URI: "spotify:track:b"}}

		list := filepath.Join(t.TempDir(), "songs.txt")
		os.WriteFile(list, []byte("# favourites\nSong B\n\n  Nope  \n"), 0644)

		err := run(t, runner, "spotify", "match", "--token-file", writeTestToken(t), "--file", list, "--format", "json", "Song A")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		var report struct {
			Tracks  []models.MatchedTrack `json:"tracks"`
			Missing []string              `json:"missing"`
		}
		if err := json.Unmarshal(output.Bytes(), &report); err != nil {
			t.Fatalf("expected JSON output, got %q: %v", output.String(), err)
		}
		if len(report.Tracks) != 2 || report.Tracks[0].Name != "Song A" || report.Tracks[1].Name != "Song B" {
			t.Errorf("unexpected tracks %+v", report.Tracks)
		}
		if len(report.Missing) != 1 || report.Missing[0] != "Nope" {
			t.Errorf("unexpected missing %v", report.Missing)
		}
		if got := svc.Queries; len(got) != 3 {
			t.Errorf("expected 3 searches, got %v", got)
		}
	})

	t.Run("match requires songs", func(t *testing.T) {
		runner, _, _ := newTestRunner(t, &bytes.Buffer{})
		if err := run(t, runner, "spotify", "match", "--token-file", writeTestToken(t)); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("match and create", func(t *testing.T) {
		runner, svc, _ := newTestRunner(t, &bytes.Buffer{})
		svc.SearchResults["Song A"] = []models.MatchedTrack{{Name: "Song A", URI: "spotify:track:a"}}
		out := filepath.Join(t.TempDir(), "result.md")

		err := run(t, runner, "spotify", "match", "--token-file", writeTestToken(t), "--create", "Mix", "--format", "md", "--output", out, "Song A")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if svc.Calls("CreatePlaylist") != 1 || len(svc.Added["playlist-1"]) != 1 {
			t.Errorf("expected playlist created and populated, got %d creates, added %v", svc.Calls("CreatePlaylist"), svc.Added)
		}
		if content := tu.MustReadFile(t, out); !strings.HasPrefix(content, "# Mix") {
			t.Errorf("unexpected report %q", content)
		}
	})

	t.Run("match failure is reported", func(t *testing.T) {
		runner, svc, _ := newTestRunner(t, &bytes.Buffer{})
		svc.SearchErr = errors.New("boom")
		err := run(t, runner, "spotify", "match", "--token-file", writeTestToken(t), "Song A")
		if !errors.Is(err, shared.ErrUpstream) {
			t.Errorf("expected ErrUpstream, got %v", err)
		}
	})

	t.Run("login without oauth", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}, Logger: shared.NewLogger(io.Discard)})
		if err := run(t, runner, "spotify", "login"); !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("login rejects a redirect uri with another path", func(t *testing.T) {
		runner, _, _ := newTestRunner(t, &bytes.Buffer{})
		runner.config.Credentials.Spotify.RedirectURI = "http://127.0.0.1:0/elsewhere"
		if err := run(t, runner, "spotify", "login", "--token-file", filepath.Join(t.TempDir(), "t.json")); !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})
}

func TestSuggestCommand(t *testing.T) {
	t.Run("prints suggestions", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner, svc, gen := newTestRunner(t, output)

		if err := run(t, runner, "suggest", "rainy", "day", "songs"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		for _, want := range []string{"1. Song A - Artist", "2. Song B"} {
			if !strings.Contains(output.String(), want) {
				t.Errorf("expected %q in %q", want, output.String())
			}
		}
		if sent := gen.Turns[0][0].Text; sent != tasks.InstructionPrefix+"rainy day songs" {
			t.Errorf("unexpected prompt %q", sent)
		}
		if svc.TotalCalls() != 0 {
			t.Error("expected no catalog calls without --match")
		}
	})

	t.Run("match suggestions", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner, svc, _ := newTestRunner(t, output)
		svc.SearchResults["Song B"] = []models.MatchedTrack{{Name: "Song B", URI: "spotify:track:b"}}

		if err := run(t, runner, "suggest", "--match", "--token-file", writeTestToken(t), "--format", "csv", "x"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(output.String(), "1,Song B,,spotify:track:b") {
			t.Errorf("unexpected output %q", output.String())
		}
	})

	t.Run("requires prompt", func(t *testing.T) {
		runner, _, gen := newTestRunner(t, &bytes.Buffer{})
		if err := run(t, runner, "suggest"); !errors.Is(err, shared.ErrMissingArgument) || gen.CallCount() != 0 {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("requires backend", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}, Logger: shared.NewLogger(io.Discard)})
		if err := run(t, runner, "suggest", "x"); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})
}

func TestSetup(t *testing.T) {
	output := &bytes.Buffer{}
	runner, _, _ := newTestRunner(t, output)
	path := filepath.Join(t.TempDir(), "config.toml")

	if err := run(t, runner, "setup", "--config", path); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	tu.AssertFileExists(t, path)
	if !strings.Contains(output.String(), "Config written to") {
		t.Errorf("unexpected output %q", output.String())
	}

	if err := run(t, runner, "setup", "--config", path); !errors.Is(err, shared.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for existing file, got %v", err)
	}
}

func TestBuildHandler(t *testing.T) {
	t.Run("invalid config", func(t *testing.T) {
		runner, _, _ := newTestRunner(t, &bytes.Buffer{})
		runner.config.Session.Secret = ""
		if _, _, err := runner.buildHandler(); !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("serves the api", func(t *testing.T) {
		runner, _, _ := newTestRunner(t, &bytes.Buffer{})
		runner.config.Session.Secret = "secret"
		runner.config.Session.SweepInterval = 0
		runner.config.Credentials.Gemini.APIKey = "key"

		handler, store, err := runner.buildHandler()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if store.TTL() != 24*time.Hour {
			t.Errorf("expected configured ttl, got %v", store.TTL())
		}

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/me", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})
}
