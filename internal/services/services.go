// package services defines the interfaces for the remote collaborators of the playlist pipeline
//
// Spotify (catalogue, playlists, OAuth) and the text generation backends (Gemini, Ollama)
package services

import (
	"context"

	"github.com/desertthunder/mixtape/internal/models"
	"golang.org/x/oauth2"
)

// Service defines the music catalogue operations the pipeline needs.
//
// Implementations hold no per-user state: every call carries the credential of the session it is made for.
type Service interface {
	// UserProfile retrieves the profile of the credential's owner.
	UserProfile(ctx context.Context, token *oauth2.Token) (*models.Profile, error)

	// UserPlaylists retrieves every playlist of the given user.
	UserPlaylists(ctx context.Context, token *oauth2.Token, userID string) ([]models.Collection, error)

	// SearchTracks runs one track search and returns at most limit results in the service's order.
	SearchTracks(ctx context.Context, token *oauth2.Token, query string, limit int) ([]models.MatchedTrack, error)

	// CreatePlaylist creates an empty playlist owned by userID.
	CreatePlaylist(ctx context.Context, token *oauth2.Token, userID string, req models.CollectionRequest) (*models.Collection, error)

	// AddTracks appends the given track URIs to a playlist in a single request.
	AddTracks(ctx context.Context, token *oauth2.Token, playlistID string, uris []string) error

	// GetPlaylist retrieves a playlist with its current track count.
	GetPlaylist(ctx context.Context, token *oauth2.Token, playlistID string) (*models.Collection, error)

	// RemovePlaylist removes a playlist from the user's library.
	RemovePlaylist(ctx context.Context, token *oauth2.Token, playlistID string) error

	// Name returns the name of the service (e.g., "Spotify")
	Name() string
}

// OAuthService extends the identity side of a provider: building the consent URL and redeeming the code.
type OAuthService interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
}

// Generator produces a text reply for a conversation transcript.
type Generator interface {
	// Generate sends the whole transcript and returns the raw reply text.
	// The last turn is always a user turn.
	Generate(ctx context.Context, turns []models.ConversationTurn) (string, error)

	// Name returns the backend name (e.g., "Gemini")
	Name() string
}
