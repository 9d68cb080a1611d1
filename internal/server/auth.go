package server

import (
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/services"
	"github.com/desertthunder/mixtape/internal/session"
	"github.com/desertthunder/mixtape/internal/shared"
)

const (
	loginPath    = "/auth/spotify"
	callbackPath = "/callback"
	logoutPath   = "/logout"

	authFailedRedirect = "/?error=auth_failed"
)

// AuthHandler runs the browser side of the Spotify authorization code flow.
// Implements the Handler interface for registration with a Router.
type AuthHandler struct {
	oauth           services.OAuthService
	catalog         services.Service
	sessions        *session.Manager
	successRedirect string
	logger          *log.Logger
}

// NewAuthHandler creates an [AuthHandler] that sends users to successRedirect after login.
func NewAuthHandler(oauth services.OAuthService, catalog services.Service, sessions *session.Manager, successRedirect string, logger *log.Logger) *AuthHandler {
	if successRedirect == "" {
		successRedirect = "/profile.html"
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &AuthHandler{
		oauth:           oauth,
		catalog:         catalog,
		sessions:        sessions,
		successRedirect: successRedirect,
		logger:          logger,
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *AuthHandler) Routes() []string {
	return []string{loginPath, callbackPath, logoutPath}
}

// ServeHTTP dispatches on the request path.
func (h *AuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	switch r.URL.Path {
	case loginPath:
		h.login(w, r)
	case callbackPath:
		h.callback(w, r)
	case logoutPath:
		h.logout(w, r)
	default:
		http.NotFound(w, r)
	}
}

// login records a fresh state token on the session and redirects to the consent page.
func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Load(r)
	if err != nil {
		sess = models.Session{ID: shared.GenerateID(), CreatedAt: time.Now()}
	}

	sess.State = shared.GenerateID()
	if err := h.sessions.Save(w, sess); err != nil {
		h.logger.Error("failed to save session", "error", err)
		http.Redirect(w, r, authFailedRedirect, http.StatusFound)
		return
	}

	http.Redirect(w, r, h.oauth.AuthURL(sess.State), http.StatusFound)
}

// callback validates state, redeems the code, and replaces the pending session with an authenticated one.
func (h *AuthHandler) callback(w http.ResponseWriter, r *http.Request) {
	fail := func(msg string, kv ...any) {
		h.logger.Warn(msg, kv...)
		http.Redirect(w, r, authFailedRedirect, http.StatusFound)
	}

	pending, err := h.sessions.Load(r)
	if err != nil {
		fail("callback without session", "error", err)
		return
	}

	q := r.URL.Query()
	if pending.State == "" || q.Get("state") != pending.State {
		fail("callback state mismatch", "error", shared.ErrInvalidState)
		return
	}

	code := q.Get("code")
	if code == "" {
		fail("authorization denied", "error", q.Get("error"), "description", q.Get("error_description"))
		return
	}

	token, err := h.oauth.Exchange(r.Context(), code)
	if err != nil {
		fail("token exchange failed", "error", err)
		return
	}

	profile, err := h.catalog.UserProfile(r.Context(), token)
	if err != nil {
		fail("failed to fetch profile", "error", err)
		return
	}

	now := time.Now()
	authed := models.Session{
		ID:          shared.GenerateID(),
		Credential:  token,
		UserID:      profile.ID,
		DisplayName: profile.DisplayName,
		Email:       profile.Email,
		CreatedAt:   now,
		LastSeen:    now,
	}

	h.sessions.Store().Delete(pending.ID)
	if err := h.sessions.Save(w, authed); err != nil {
		fail("failed to save session", "error", err)
		return
	}

	h.logger.Info("user logged in", "user", profile.ID)
	http.Redirect(w, r, h.successRedirect, http.StatusFound)
}

func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Destroy(w, r)
	http.Redirect(w, r, "/", http.StatusFound)
}
