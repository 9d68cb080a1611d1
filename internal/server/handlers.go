package server

import (
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/services"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/desertthunder/mixtape/internal/tasks"
	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"
)

// SearchLimit is the number of results returned by /api/search-tracks.
const SearchLimit = 5

// Generic messages returned with 500 responses.
const (
	msgFetchFailed   = "Failed to fetch data from Spotify"
	msgCreateFailed  = "Failed to create playlist"
	msgSearchFailed  = "Search failed"
	msgMatchFailed   = "Failed to match songs"
	msgAddFailed     = "Failed to add track(s) to playlist"
	msgGeminiFailed  = "Failed to connect to Gemini"
	msgBuildFailed   = "Failed to build playlist"
	msgPromptMissing = "Prompt is required"
)

type meResponse struct {
	Profile   *models.Profile     `json:"profile"`
	Playlists []models.Collection `json:"playlists"`
}

type matchSongsRequest struct {
	Songs []string `json:"songs" validate:"required"`
}

type addToPlaylistRequest struct {
	PlaylistID string   `json:"playlistId" validate:"required,notblank"`
	TrackURI   string   `json:"trackUri"`
	TrackURIs  []string `json:"trackUris" validate:"omitempty,max=100,dive,required,notblank"`
}

// uris prefers the list form and falls back to the single uri.
func (r addToPlaylistRequest) uris() []string {
	if len(r.TrackURIs) > 0 {
		return r.TrackURIs
	}
	if strings.TrimSpace(r.TrackURI) != "" {
		return []string{r.TrackURI}
	}
	return nil
}

type suggestRequest struct {
	Prompt []models.ConversationTurn `json:"prompt" validate:"dive"`
}

type suggestResponse struct {
	Response string `json:"response"`
}

type buildPlaylistRequest struct {
	models.CollectionRequest
	Songs []string `json:"songs" validate:"required"`
}

type buildPlaylistResponse struct {
	Error    string                `json:"error,omitempty"`
	Playlist *models.Collection    `json:"playlist,omitempty"`
	Tracks   []models.MatchedTrack `json:"tracks"`
}

type successResponse struct {
	Success bool `json:"success"`
}

// API serves the JSON endpoints under /api.
type API struct {
	catalog   services.Service
	matcher   *tasks.Matcher
	assembler *tasks.Assembler
	proxy     *tasks.SuggestionProxy
	validate  *validator.Validate
	logger    *log.Logger
}

// NewAPI wires the pipeline components around catalog and generator.
func NewAPI(catalog services.Service, generator services.Generator, policy tasks.PopulateFailurePolicy, maxTurns int, logger *log.Logger) *API {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &API{
		catalog:   catalog,
		matcher:   tasks.NewMatcher(catalog),
		assembler: tasks.NewAssembler(catalog, policy, logger),
		proxy:     tasks.NewSuggestionProxy(generator, maxTurns),
		validate:  newValidator(),
		logger:    logger,
	}
}

// Me returns the user's profile and playlists, fetched concurrently.
func (a *API) Me(w http.ResponseWriter, r *http.Request) {
	sess, err := sessionFrom(r)
	if err != nil {
		respondError(w, r, a.logger, err, msgFetchFailed)
		return
	}

	var resp meResponse
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		profile, err := a.catalog.UserProfile(ctx, sess.Credential)
		resp.Profile = profile
		return err
	})
	g.Go(func() error {
		playlists, err := a.catalog.UserPlaylists(ctx, sess.Credential, sess.UserID)
		resp.Playlists = playlists
		return err
	})
	if err := g.Wait(); err != nil {
		respondError(w, r, a.logger, err, msgFetchFailed)
		return
	}

	if resp.Playlists == nil {
		resp.Playlists = []models.Collection{}
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreatePlaylist creates an empty playlist from {name, description, public}.
func (a *API) CreatePlaylist(w http.ResponseWriter, r *http.Request) {
	sess, err := sessionFrom(r)
	if err != nil {
		respondError(w, r, a.logger, err, msgCreateFailed)
		return
	}

	var req models.CollectionRequest
	if err := a.bind(w, r, &req); err != nil {
		respondError(w, r, a.logger, err, msgCreateFailed)
		return
	}

	created, err := a.assembler.Create(r.Context(), sess, req)
	if err != nil {
		respondError(w, r, a.logger, err, msgCreateFailed)
		return
	}
	writeJSON(w, http.StatusOK, created)
}

// SearchTracks returns the top results for ?q=.
func (a *API) SearchTracks(w http.ResponseWriter, r *http.Request) {
	sess, err := sessionFrom(r)
	if err != nil {
		respondError(w, r, a.logger, err, msgSearchFailed)
		return
	}

	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, http.StatusBadRequest, "Query parameter q is required")
		return
	}

	tracks, err := a.catalog.SearchTracks(r.Context(), sess.Credential, q, SearchLimit)
	if err != nil {
		respondError(w, r, a.logger, err, msgSearchFailed)
		return
	}
	if tracks == nil {
		tracks = []models.MatchedTrack{}
	}
	writeJSON(w, http.StatusOK, tracks)
}

// MatchSongs resolves {songs: [...]} to tracks in order.
func (a *API) MatchSongs(w http.ResponseWriter, r *http.Request) {
	sess, err := sessionFrom(r)
	if err != nil {
		respondError(w, r, a.logger, err, msgMatchFailed)
		return
	}

	var req matchSongsRequest
	if err := a.bind(w, r, &req); err != nil {
		respondError(w, r, a.logger, err, msgMatchFailed)
		return
	}

	matched, err := a.matcher.Match(r.Context(), sess, req.Songs)
	if err != nil {
		respondError(w, r, a.logger, err, msgMatchFailed)
		return
	}
	writeJSON(w, http.StatusOK, matched)
}

// AddToPlaylist appends {trackUri} or {trackUris} to {playlistId}.
func (a *API) AddToPlaylist(w http.ResponseWriter, r *http.Request) {
	sess, err := sessionFrom(r)
	if err != nil {
		respondError(w, r, a.logger, err, msgAddFailed)
		return
	}

	var req addToPlaylistRequest
	if err := a.bind(w, r, &req); err != nil {
		respondError(w, r, a.logger, err, msgAddFailed)
		return
	}

	if err := a.assembler.Populate(r.Context(), sess, req.PlaylistID, req.uris()); err != nil {
		respondError(w, r, a.logger, err, msgAddFailed)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

// BuildPlaylist matches songs, creates the playlist and populates it in one request.
func (a *API) BuildPlaylist(w http.ResponseWriter, r *http.Request) {
	sess, err := sessionFrom(r)
	if err != nil {
		respondError(w, r, a.logger, err, msgBuildFailed)
		return
	}

	var req buildPlaylistRequest
	if err := a.bind(w, r, &req); err != nil {
		respondError(w, r, a.logger, err, msgBuildFailed)
		return
	}

	matched, err := a.matcher.Match(r.Context(), sess, req.Songs)
	if err != nil {
		respondError(w, r, a.logger, err, msgMatchFailed)
		return
	}

	created, err := a.assembler.Assemble(r.Context(), sess, req.CollectionRequest, tasks.URIs(matched))
	if err != nil {
		if created == nil {
			respondError(w, r, a.logger, err, msgBuildFailed)
			return
		}
		a.logger.Error(msgAddFailed, "playlist", created.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, buildPlaylistResponse{Error: msgAddFailed, Playlist: created, Tracks: matched})
		return
	}
	writeJSON(w, http.StatusOK, buildPlaylistResponse{Playlist: created, Tracks: matched})
}

// Suggest forwards {prompt: [turns]} to the generator and returns {response}.
func (a *API) Suggest(w http.ResponseWriter, r *http.Request) {
	var req suggestRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, a.logger, err, msgGeminiFailed)
		return
	}
	if len(req.Prompt) == 0 {
		writeError(w, http.StatusBadRequest, msgPromptMissing)
		return
	}
	if err := validateStruct(a.validate, req); err != nil {
		respondError(w, r, a.logger, err, msgGeminiFailed)
		return
	}

	reply, err := a.proxy.Suggest(r.Context(), req.Prompt)
	if err != nil {
		respondError(w, r, a.logger, err, msgGeminiFailed)
		return
	}
	writeJSON(w, http.StatusOK, suggestResponse{Response: reply})
}

// Healthz reports liveness.
func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) bind(w http.ResponseWriter, r *http.Request, v any) error {
	if err := decodeJSON(w, r, v); err != nil {
		return err
	}
	return validateStruct(a.validate, v)
}
