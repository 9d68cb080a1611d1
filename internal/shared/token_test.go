package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

func TestTokenFile(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "token.json")
		expiry := time.Now().Add(time.Hour).Truncate(time.Second)
		want := &oauth2.Token{AccessToken: "access", RefreshToken: "refresh", TokenType: "Bearer", Expiry: expiry}

		if err := SaveToken(path, want); err != nil {
			t.Fatalf("SaveToken failed: %v", err)
		}

		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("expected token file: %v", err)
		}
		if perm := info.Mode().Perm(); perm != 0600 {
			t.Errorf("expected 0600 permissions, got %o", perm)
		}

		got, err := LoadToken(path)
		if err != nil {
			t.Fatalf("LoadToken failed: %v", err)
		}
		if got.AccessToken != want.AccessToken || got.RefreshToken != want.RefreshToken || !got.Expiry.Equal(expiry) {
			t.Errorf("expected %+v, got %+v", want, got)
		}
	})

	t.Run("empty token is rejected", func(t *testing.T) {
		if err := SaveToken(filepath.Join(t.TempDir(), "t.json"), &oauth2.Token{}); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadToken(filepath.Join(t.TempDir(), "none.json")); !errors.Is(err, ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("corrupt file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.json")
		os.WriteFile(path, []byte("{not json"), 0600)
		if _, err := LoadToken(path); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("file without access token", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "empty.json")
		os.WriteFile(path, []byte(`{"refresh_token":"r"}`), 0600)
		if _, err := LoadToken(path); !errors.Is(err, ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})
}
