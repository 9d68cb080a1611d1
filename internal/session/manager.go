package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/golang-jwt/jwt/v5"
)

const DefaultCookieName = "mixtape_session"

// Options configures a [Manager].
type Options struct {
	Secret     string
	CookieName string
	Secure     bool
}

// Manager ties browser cookies to [Store] entries.
//
// The cookie carries an HS256 token whose subject is the session id; the credential itself never leaves the server.
// Every successful [Manager.Load] followed by [Manager.Refresh] slides the expiry forward by the store's ttl.
type Manager struct {
	store  *Store
	secret []byte
	cookie string
	secure bool
	now    func() time.Time
}

// NewManager creates a [Manager] backed by store.
func NewManager(store *Store, opts Options) (*Manager, error) {
	if opts.Secret == "" {
		return nil, fmt.Errorf("%w: session secret", shared.ErrMissingConfig)
	}
	if opts.CookieName == "" {
		opts.CookieName = DefaultCookieName
	}
	return &Manager{
		store:  store,
		secret: []byte(opts.Secret),
		cookie: opts.CookieName,
		secure: opts.Secure,
		now:    time.Now,
	}, nil
}

func (m *Manager) Store() *Store {
	return m.store
}

// Sign issues a cookie token for session id.
func (m *Manager) Sign(id string) (string, error) {
	now := m.now()
	claims := jwt.RegisteredClaims{
		Subject:   id,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.store.TTL())),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// Verify checks a cookie token and returns the session id it names.
func (m *Manager) Verify(raw string) (string, error) {
	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(m.now), jwt.WithExpirationRequired())
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrInvalidCookie, err)
	}
	if !token.Valid || claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", shared.ErrInvalidCookie)
	}
	return claims.Subject, nil
}

// Load resolves the request cookie to a stored session.
//
// A missing cookie, a bad or expired token, and an unknown or swept id are all reported as [shared.ErrUnauthorized].
func (m *Manager) Load(r *http.Request) (models.Session, error) {
	c, err := r.Cookie(m.cookie)
	if err != nil {
		return models.Session{}, fmt.Errorf("%w: no session cookie", shared.ErrUnauthorized)
	}

	id, err := m.Verify(c.Value)
	if err != nil {
		return models.Session{}, errors.Join(shared.ErrUnauthorized, err)
	}

	sess, ok := m.store.Get(id)
	if !ok {
		return models.Session{}, fmt.Errorf("%w: session %s not found", shared.ErrUnauthorized, id)
	}
	return sess, nil
}

// Begin creates an empty session, stores it, and sets its cookie.
func (m *Manager) Begin(w http.ResponseWriter) (models.Session, error) {
	now := m.now()
	sess := models.Session{ID: shared.GenerateID(), CreatedAt: now, LastSeen: now}
	if err := m.Save(w, sess); err != nil {
		return models.Session{}, err
	}
	return sess, nil
}

// Save stores sess and (re)issues its cookie.
func (m *Manager) Save(w http.ResponseWriter, sess models.Session) error {
	if sess.ID == "" {
		return fmt.Errorf("%w: session id is empty", shared.ErrInvalidArgument)
	}
	sess.LastSeen = m.now()
	m.store.Save(sess)
	return m.setCookie(w, sess.ID)
}

// Refresh extends an existing session and re-issues its cookie.
func (m *Manager) Refresh(w http.ResponseWriter, sess models.Session) error {
	if !m.store.Touch(sess.ID, m.now()) {
		return fmt.Errorf("%w: session %s not found", shared.ErrUnauthorized, sess.ID)
	}
	return m.setCookie(w, sess.ID)
}

// Destroy removes the request's session, if any, and clears the cookie.
func (m *Manager) Destroy(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(m.cookie); err == nil {
		if id, err := m.Verify(c.Value); err == nil {
			m.store.Delete(id)
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (m *Manager) setCookie(w http.ResponseWriter, id string) error {
	value, err := m.Sign(id)
	if err != nil {
		return fmt.Errorf("failed to sign session cookie: %w", err)
	}
	ttl := m.store.TTL()
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookie,
		Value:    value,
		Path:     "/",
		Expires:  m.now().Add(ttl),
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

type contextKey struct{}

// NewContext returns a copy of ctx carrying sess.
func NewContext(ctx context.Context, sess models.Session) context.Context {
	return context.WithValue(ctx, contextKey{}, sess)
}

// FromContext returns the session stored by [NewContext].
func FromContext(ctx context.Context) (models.Session, bool) {
	sess, ok := ctx.Value(contextKey{}).(models.Session)
	return sess, ok
}
