package models

import (
	"encoding/json"
	"testing"

	"golang.org/x/oauth2"
)

func TestSession(t *testing.T) {
	t.Run("Authenticated", func(t *testing.T) {
		tc := []struct {
			name string
			sess *Session
			want bool
		}{
			{name: "nil session", sess: nil, want: false},
			{name: "pending login", sess: &Session{ID: "s1", State: "abc"}, want: false},
			{name: "empty token", sess: &Session{ID: "s1", Credential: &oauth2.Token{}}, want: false},
			{name: "with token", sess: &Session{ID: "s1", Credential: &oauth2.Token{AccessToken: "tok"}}, want: true},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				if got := tt.sess.Authenticated(); got != tt.want {
					t.Errorf("Authenticated() = %v, want %v", got, tt.want)
				}
			})
		}
	})
}

func TestConversationTurn(t *testing.T) {
	t.Run("decodes text shape", func(t *testing.T) {
		var turn ConversationTurn
		if err := json.Unmarshal([]byte(`{"role":"user","text":"upbeat songs"}`), &turn); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if turn.Role != RoleUser || turn.Text != "upbeat songs" {
			t.Errorf("unexpected turn: %+v", turn)
		}
	})

	t.Run("decodes parts shape", func(t *testing.T) {
		var turn ConversationTurn
		data := []byte(`{"role":"model","parts":[{"text":"Song A<br>"},{"text":"Song B"}]}`)
		if err := json.Unmarshal(data, &turn); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if turn.Role != RoleModel {
			t.Errorf("expected role model, got %s", turn.Role)
		}
		if turn.Text != "Song A<br>Song B" {
			t.Errorf("expected joined parts, got %q", turn.Text)
		}
	})

	t.Run("text wins over parts", func(t *testing.T) {
		var turn ConversationTurn
		data := []byte(`{"role":"user","text":"direct","parts":[{"text":"ignored"}]}`)
		if err := json.Unmarshal(data, &turn); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if turn.Text != "direct" {
			t.Errorf("expected text field to be used, got %q", turn.Text)
		}
	})

	t.Run("invalid json", func(t *testing.T) {
		var turn ConversationTurn
		if err := json.Unmarshal([]byte(`{"role":`), &turn); err == nil {
			t.Error("expected error for malformed json")
		}
	})
}

func TestMatchedTrack_ArtistLine(t *testing.T) {
	track := MatchedTrack{Name: "Song", Artists: []string{"A", "B"}, URI: "spotify:track:1"}
	if got := track.ArtistLine(); got != "A, B" {
		t.Errorf("ArtistLine() = %q, want %q", got, "A, B")
	}
}
