// package models defines the data model for the mixtape playlist service
package models

import (
	"encoding/json"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// Conversation roles accepted by the suggestion proxy.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Session binds one browser client to a Spotify credential and a minimal profile.
//
// A Session without a credential is a pending login: it only carries the OAuth state token.
type Session struct {
	ID          string
	Credential  *oauth2.Token
	UserID      string
	DisplayName string
	Email       string
	State       string // OAuth state for a login in progress
	CreatedAt   time.Time
	LastSeen    time.Time
}

// Authenticated reports whether the session holds a usable bearer credential.
func (s *Session) Authenticated() bool {
	return s != nil && s.Credential != nil && s.Credential.AccessToken != ""
}

// Image is an artwork resource attached to a profile or playlist.
type Image struct {
	URL    string `json:"url"`
	Height int    `json:"height,omitempty"`
	Width  int    `json:"width,omitempty"`
}

// Profile is the authenticated user's Spotify profile, encoded with Spotify's field names.
type Profile struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"display_name"`
	Email       string  `json:"email"`
	Country     string  `json:"country,omitempty"`
	Product     string  `json:"product,omitempty"`
	Images      []Image `json:"images"`
}

// MatchedTrack is a canonical track reference resolved from a candidate song name.
type MatchedTrack struct {
	Name    string   `json:"name"`
	Artists []string `json:"artists"`
	URI     string   `json:"uri"`
}

// ArtistLine joins the artist names for display.
func (t MatchedTrack) ArtistLine() string {
	return strings.Join(t.Artists, ", ")
}

// Collection is a remote playlist owned by the session's user.
type Collection struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Public      bool   `json:"public"`
	ExternalURL string `json:"external_url"`
	URI         string `json:"uri,omitempty"`
	OwnerID     string `json:"owner_id,omitempty"`
	TrackCount  int    `json:"track_count"`
}

// CollectionRequest holds the user supplied fields for creating a playlist.
type CollectionRequest struct {
	Name        string `json:"name" validate:"required,notblank"`
	Description string `json:"description"`
	Public      bool   `json:"public"`
}

// ConversationTurn is one entry of the caller-owned transcript sent to the suggestion proxy.
type ConversationTurn struct {
	Role string `json:"role" validate:"oneof=user model"`
	Text string `json:"text"`
}

type turnPart struct {
	Text string `json:"text"`
}

// UnmarshalJSON accepts both {role, text} and the generation service's {role, parts: [{text}]} shape.
func (t *ConversationTurn) UnmarshalJSON(data []byte) error {
	var raw struct {
		Role  string     `json:"role"`
		Text  string     `json:"text"`
		Parts []turnPart `json:"parts"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	t.Role = raw.Role
	t.Text = raw.Text
	if t.Text == "" && len(raw.Parts) > 0 {
		var b strings.Builder
		for _, p := range raw.Parts {
			b.WriteString(p.Text)
		}
		t.Text = b.String()
	}
	return nil
}
