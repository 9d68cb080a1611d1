// Spotify API implementation of [Service]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
	"golang.org/x/oauth2"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	playlistPageSize = 50
)

// SpotifyScopes are the permissions requested at login.
var SpotifyScopes = []string{
	"user-read-private",
	"user-read-email",
	"playlist-read-private",
	"playlist-modify-public",
	"playlist-modify-private",
}

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string         `json:"id"`
	DisplayName string         `json:"display_name"`
	Email       string         `json:"email"`
	Country     string         `json:"country"`
	Product     string         `json:"product"` // premium, free, etc.
	Images      []models.Image `json:"images"`
}

// SpotifyArtist represents a simplified Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Artists []SpotifyArtist `json:"artists"`
	URI     string          `json:"uri"`
}

type externalURLs struct {
	Spotify string `json:"spotify"`
}

type owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type trackTotal struct {
	Total int `json:"total"`
}

// SpotifyPlaylist represents a playlist object as returned by create, get and list endpoints.
type SpotifyPlaylist struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Description  string       `json:"description"`
	Owner        owner        `json:"owner"`
	Public       *bool        `json:"public"`
	Tracks       trackTotal   `json:"tracks"`
	ExternalURLs externalURLs `json:"external_urls"`
	URI          string       `json:"uri"`
}

// SpotifyPaginatedPlaylists represents a paginated response of playlists.
type SpotifyPaginatedPlaylists struct {
	Items  []SpotifyPlaylist `json:"items"`
	Total  int               `json:"total"`
	Limit  int               `json:"limit"`
	Offset int               `json:"offset"`
	Next   *string           `json:"next"`
}

type searchResponse struct {
	Tracks struct {
		Items []SpotifyTrack `json:"items"`
	} `json:"tracks"`
}

type apiError struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// SpotifyService implements the [Service] and [OAuthService] interfaces for the Spotify Web API.
//
// The service is shared by every session; the bearer credential is passed into each call.
type SpotifyService struct {
	config     *oauth2.Config
	baseURL    string
	httpClient *http.Client
}

// NewSpotifyService creates a new Spotify service with the given OAuth2 credentials.
func NewSpotifyService(credentials map[string]string) (*SpotifyService, error) {
	clientID, ok := credentials["client_id"]
	if !ok || clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id in credentials", shared.ErrMissingCredentials)
	}

	clientSecret, ok := credentials["client_secret"]
	if !ok || clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret in credentials", shared.ErrMissingCredentials)
	}

	redirectURI, ok := credentials["redirect_uri"]
	if !ok || redirectURI == "" {
		redirectURI = "http://127.0.0.1:8000/callback"
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes:       SpotifyScopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	return &SpotifyService{
		config:     config,
		baseURL:    spotifyBaseURL,
		httpClient: http.DefaultClient,
	}, nil
}

// WithBaseURL points the service at another Web API root (used by tests and proxies).
func (s *SpotifyService) WithBaseURL(baseURL string) *SpotifyService {
	if baseURL != "" {
		s.baseURL = strings.TrimRight(baseURL, "/")
	}
	return s
}

// WithTokenURL overrides the token endpoint used by [SpotifyService.Exchange].
func (s *SpotifyService) WithTokenURL(tokenURL string) *SpotifyService {
	if tokenURL != "" {
		s.config.Endpoint.TokenURL = tokenURL
	}
	return s
}

// WithHTTPClient sets the client used for API and token requests.
func (s *SpotifyService) WithHTTPClient(client *http.Client) *SpotifyService {
	if client != nil {
		s.httpClient = client
	}
	return s
}

// WithTimeout sets a per-request timeout on a copy of the current HTTP client. Zero disables the timeout.
func (s *SpotifyService) WithTimeout(d time.Duration) *SpotifyService {
	c := *s.httpClient
	c.Timeout = d
	s.httpClient = &c
	return s
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// AuthURL returns the OAuth2 authorization URL for user login, always showing the consent dialog.
func (s *SpotifyService) AuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.SetAuthURLParam("show_dialog", "true"))
}

// Exchange redeems an authorization code for a token.
func (s *SpotifyService) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	token, err := s.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to exchange auth code: %v", shared.ErrAuthFailed, err)
	}
	return token, nil
}

// Refresh returns token unchanged while it is valid, and otherwise redeems its refresh token for a new one.
func (s *SpotifyService) Refresh(ctx context.Context, token *oauth2.Token) (*oauth2.Token, error) {
	if token == nil {
		return nil, fmt.Errorf("%w: missing spotify credential", shared.ErrUnauthorized)
	}
	if token.Valid() {
		return token, nil
	}
	if token.RefreshToken == "" {
		return nil, fmt.Errorf("%w: token expired and has no refresh token", shared.ErrAuthFailed)
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	fresh, err := s.config.TokenSource(ctx, token).Token()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to refresh token: %v", shared.ErrAuthFailed, err)
	}
	return fresh, nil
}

// doRequest performs an authenticated HTTP request to the Spotify API.
//
// A non-nil body is sent as JSON; a non-nil result is decoded from the JSON response.
func (s *SpotifyService) doRequest(ctx context.Context, token *oauth2.Token, method, endpoint string, body, result any) error {
	if token == nil || token.AccessToken == "" {
		return fmt.Errorf("%w: missing spotify credential", shared.ErrUnauthorized)
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	token.SetAuthHeader(req)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: request failed: %v", shared.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: spotify API error: status %d%s", shared.ErrUpstream, resp.StatusCode, errorDetail(resp.Body))
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("%w: failed to decode response: %v", shared.ErrUpstream, err)
		}
	}

	return nil
}

func errorDetail(r io.Reader) string {
	var e apiError
	if err := json.NewDecoder(io.LimitReader(r, 64<<10)).Decode(&e); err != nil || e.Error.Message == "" {
		return ""
	}
	return ": " + e.Error.Message
}

// UserProfile retrieves the current authenticated user's profile.
func (s *SpotifyService) UserProfile(ctx context.Context, token *oauth2.Token) (*models.Profile, error) {
	var user SpotifyUser
	if err := s.doRequest(ctx, token, http.MethodGet, "/me", nil, &user); err != nil {
		return nil, err
	}
	return &models.Profile{
		ID:          user.ID,
		DisplayName: user.DisplayName,
		Email:       user.Email,
		Country:     user.Country,
		Product:     user.Product,
		Images:      user.Images,
	}, nil
}

// UserPlaylists retrieves all playlists of a user, following pagination.
func (s *SpotifyService) UserPlaylists(ctx context.Context, token *oauth2.Token, userID string) ([]models.Collection, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", shared.ErrValidation)
	}

	playlists := []models.Collection{}
	offset := 0

	for {
		endpoint := fmt.Sprintf("/users/%s/playlists?limit=%d&offset=%d", url.PathEscape(userID), playlistPageSize, offset)

		var page SpotifyPaginatedPlaylists
		if err := s.doRequest(ctx, token, http.MethodGet, endpoint, nil, &page); err != nil {
			return nil, err
		}

		for _, sp := range page.Items {
			playlists = append(playlists, toCollection(sp, false))
		}

		if page.Next == nil || len(page.Items) == 0 {
			break
		}
		offset += playlistPageSize
	}

	return playlists, nil
}

// SearchTracks searches the catalogue for tracks only and returns up to limit results.
func (s *SpotifyService) SearchTracks(ctx context.Context, token *oauth2.Token, query string, limit int) ([]models.MatchedTrack, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: search query is required", shared.ErrValidation)
	}
	if limit <= 0 {
		limit = 1
	}
	if limit > 50 {
		limit = 50
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("type", "track")
	params.Set("limit", strconv.Itoa(limit))

	var response searchResponse
	if err := s.doRequest(ctx, token, http.MethodGet, "/search?"+params.Encode(), nil, &response); err != nil {
		return nil, err
	}

	tracks := make([]models.MatchedTrack, 0, len(response.Tracks.Items))
	for _, item := range response.Tracks.Items {
		tracks = append(tracks, toMatchedTrack(item))
	}
	return tracks, nil
}

// CreatePlaylist creates an empty playlist for userID. The public flag is always sent.
func (s *SpotifyService) CreatePlaylist(ctx context.Context, token *oauth2.Token, userID string, req models.CollectionRequest) (*models.Collection, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", shared.ErrValidation)
	}

	body := map[string]any{
		"name":        req.Name,
		"description": req.Description,
		"public":      req.Public,
	}

	var sp SpotifyPlaylist
	endpoint := fmt.Sprintf("/users/%s/playlists", url.PathEscape(userID))
	if err := s.doRequest(ctx, token, http.MethodPost, endpoint, body, &sp); err != nil {
		return nil, err
	}

	collection := toCollection(sp, req.Public)
	return &collection, nil
}

// AddTracks appends uris to the playlist in one request, preserving their order.
func (s *SpotifyService) AddTracks(ctx context.Context, token *oauth2.Token, playlistID string, uris []string) error {
	if playlistID == "" {
		return fmt.Errorf("%w: playlist id is required", shared.ErrValidation)
	}

	endpoint := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))
	return s.doRequest(ctx, token, http.MethodPost, endpoint, map[string]any{"uris": uris}, nil)
}

// GetPlaylist retrieves a playlist by ID.
func (s *SpotifyService) GetPlaylist(ctx context.Context, token *oauth2.Token, playlistID string) (*models.Collection, error) {
	endpoint := fmt.Sprintf("/playlists/%s", url.PathEscape(playlistID))

	var sp SpotifyPlaylist
	if err := s.doRequest(ctx, token, http.MethodGet, endpoint, nil, &sp); err != nil {
		return nil, err
	}

	collection := toCollection(sp, false)
	return &collection, nil
}

// RemovePlaylist unfollows the playlist, which is how the Web API deletes a playlist owned by the user.
func (s *SpotifyService) RemovePlaylist(ctx context.Context, token *oauth2.Token, playlistID string) error {
	endpoint := fmt.Sprintf("/playlists/%s/followers", url.PathEscape(playlistID))
	return s.doRequest(ctx, token, http.MethodDelete, endpoint, nil, nil)
}

func toMatchedTrack(t SpotifyTrack) models.MatchedTrack {
	artists := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		artists = append(artists, a.Name)
	}
	return models.MatchedTrack{Name: t.Name, Artists: artists, URI: t.URI}
}

// toCollection maps a playlist object; fallbackPublic is used when Spotify omits the flag.
func toCollection(sp SpotifyPlaylist, fallbackPublic bool) models.Collection {
	public := fallbackPublic
	if sp.Public != nil {
		public = *sp.Public
	}
	return models.Collection{
		ID:          sp.ID,
		Name:        sp.Name,
		Description: sp.Description,
		Public:      public,
		ExternalURL: sp.ExternalURLs.Spotify,
		URI:         sp.URI,
		OwnerID:     sp.Owner.ID,
		TrackCount:  sp.Tracks.Total,
	}
}
