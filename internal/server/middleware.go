package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/session"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/go-chi/chi/v5/middleware"
)

// RequestLogger logs one line per request with its status, duration and request id.
func RequestLogger(logger *log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

// RequireSession rejects requests without an authenticated session with 401 before the wrapped handler runs.
//
// On success the session is placed in the request context and its cookie re-issued, sliding the expiry.
func RequireSession(sessions *session.Manager, logger *log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := sessions.Load(r)
			if err == nil && !sess.Authenticated() {
				err = errors.New("session has no credential")
			}
			if err == nil {
				err = sessions.Refresh(w, sess)
			}
			if err != nil {
				logger.Debug("rejected request", "path", r.URL.Path, "reason", err)
				writeError(w, http.StatusUnauthorized, UnauthorizedMessage)
				return
			}

			next.ServeHTTP(w, r.WithContext(session.NewContext(r.Context(), sess)))
		})
	}
}

// sessionFrom returns the authenticated session placed in the context by [RequireSession].
func sessionFrom(r *http.Request) (models.Session, error) {
	sess, ok := session.FromContext(r.Context())
	if !ok || !sess.Authenticated() {
		return models.Session{}, shared.ErrUnauthorized
	}
	return sess, nil
}
