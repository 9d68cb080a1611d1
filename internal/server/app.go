package server

import (
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixtape/internal/services"
	"github.com/desertthunder/mixtape/internal/session"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/desertthunder/mixtape/internal/tasks"
	"github.com/go-chi/chi/v5/middleware"
)

// Options holds the collaborators of the web service.
type Options struct {
	Catalog   services.Service
	OAuth     services.OAuthService
	Generator services.Generator
	Sessions  *session.Manager
	Logger    *log.Logger

	Policy                tasks.PopulateFailurePolicy
	MaxTurns              int
	RequireSessionSuggest bool
	SuccessRedirect       string
}

// New builds the router for the web service.
func New(opts Options) (*ChiRouter, error) {
	if opts.Catalog == nil || opts.OAuth == nil || opts.Sessions == nil {
		return nil, fmt.Errorf("%w: catalog, oauth and sessions are required", shared.ErrInvalidConfig)
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	api := NewAPI(opts.Catalog, opts.Generator, opts.Policy, opts.MaxTurns, opts.Logger)
	gate := RequireSession(opts.Sessions, opts.Logger)

	r := NewChiRouter()
	r.Use(middleware.RequestID, RequestLogger(opts.Logger), middleware.Recoverer)

	r.Handle(http.MethodGet, "/healthz", http.HandlerFunc(api.Healthz))
	r.Handler(NewAuthHandler(opts.OAuth, opts.Catalog, opts.Sessions, opts.SuccessRedirect, opts.Logger))

	protected := r.With(gate)
	protected.Handle(http.MethodGet, "/api/me", http.HandlerFunc(api.Me))
	protected.Handle(http.MethodPost, "/api/create-playlist", http.HandlerFunc(api.CreatePlaylist))
	protected.Handle(http.MethodGet, "/api/search-tracks", http.HandlerFunc(api.SearchTracks))
	protected.Handle(http.MethodPost, "/api/match-songs", http.HandlerFunc(api.MatchSongs))
	protected.Handle(http.MethodPost, "/api/add-to-playlist", http.HandlerFunc(api.AddToPlaylist))
	protected.Handle(http.MethodPost, "/api/build-playlist", http.HandlerFunc(api.BuildPlaylist))

	if opts.RequireSessionSuggest {
		protected.Handle(http.MethodPost, "/api/gemini", http.HandlerFunc(api.Suggest))
	} else {
		r.Handle(http.MethodPost, "/api/gemini", http.HandlerFunc(api.Suggest))
	}

	return r, nil
}
