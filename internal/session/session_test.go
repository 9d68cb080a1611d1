package session

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/shared"
	"golang.org/x/oauth2"
)

func newTestManager(t *testing.T, ttl time.Duration) *Manager {
	t.Helper()
	m, err := NewManager(NewStore(ttl, 0), Options{Secret: "test-secret"})
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}
	return m
}

// requestWith copies the cookies set on rec onto a fresh request.
func requestWith(rec *httptest.ResponseRecorder) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

func TestStore(t *testing.T) {
	t.Run("Save and Get round trip by value", func(t *testing.T) {
		s := NewStore(time.Hour, 0)
		sess := models.Session{ID: "abc", Credential: &oauth2.Token{AccessToken: "tok"}}
		s.Save(sess)

		got, ok := s.Get("abc")
		if !ok {
			t.Fatal("expected session to be found")
		}
		got.Credential.AccessToken = "changed"
		got.UserID = "changed"

		again, _ := s.Get("abc")
		if again.Credential.AccessToken != "tok" || again.UserID != "" {
			t.Errorf("expected stored session to be unaffected, got %+v", again)
		}
	})

	t.Run("Get unknown or empty id", func(t *testing.T) {
		s := NewStore(time.Hour, 0)
		if _, ok := s.Get(""); ok {
			t.Error("expected empty id to miss")
		}
		if _, ok := s.Get("missing"); ok {
			t.Error("expected unknown id to miss")
		}
	})

	t.Run("expired entries are not returned and are swept", func(t *testing.T) {
		s := NewStore(10*time.Millisecond, 0)
		s.Save(models.Session{ID: "short"})
		time.Sleep(25 * time.Millisecond)

		if _, ok := s.Get("short"); ok {
			t.Error("expected expired session to miss")
		}
		if s.Count() != 1 {
			t.Errorf("expected expired entry to remain until swept, got %d", s.Count())
		}
		s.Sweep()
		if s.Count() != 0 {
			t.Errorf("expected sweep to purge the entry, got %d", s.Count())
		}
	})

	t.Run("Touch extends and records last seen", func(t *testing.T) {
		s := NewStore(time.Hour, 0)
		s.Save(models.Session{ID: "abc"})
		now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

		if !s.Touch("abc", now) {
			t.Fatal("expected touch to succeed")
		}
		got, _ := s.Get("abc")
		if !got.LastSeen.Equal(now) {
			t.Errorf("expected LastSeen %v, got %v", now, got.LastSeen)
		}
		if s.Touch("missing", now) {
			t.Error("expected touch of unknown id to fail")
		}
	})

	t.Run("Delete", func(t *testing.T) {
		s := NewStore(time.Hour, 0)
		s.Save(models.Session{ID: "abc"})
		s.Delete("abc")
		if _, ok := s.Get("abc"); ok {
			t.Error("expected session to be deleted")
		}
	})
}

func TestManager(t *testing.T) {
	t.Run("NewManager requires a secret", func(t *testing.T) {
		if _, err := NewManager(NewStore(time.Hour, 0), Options{}); !errors.Is(err, shared.ErrMissingConfig) {
			t.Errorf("expected ErrMissingConfig, got %v", err)
		}
	})

	t.Run("Begin sets cookie and Load resolves it", func(t *testing.T) {
		m := newTestManager(t, time.Hour)
		rec := httptest.NewRecorder()

		sess, err := m.Begin(rec)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		cookies := rec.Result().Cookies()
		if len(cookies) != 1 || cookies[0].Name != DefaultCookieName {
			t.Fatalf("expected one %s cookie, got %v", DefaultCookieName, cookies)
		}
		if !cookies[0].HttpOnly {
			t.Error("expected HttpOnly cookie")
		}
		if cookies[0].MaxAge != int(time.Hour.Seconds()) {
			t.Errorf("expected MaxAge %d, got %d", int(time.Hour.Seconds()), cookies[0].MaxAge)
		}

		loaded, err := m.Load(requestWith(rec))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if loaded.ID != sess.ID {
			t.Errorf("expected session %s, got %s", sess.ID, loaded.ID)
		}
		if loaded.Authenticated() {
			t.Error("expected new session to be unauthenticated")
		}
	})

	t.Run("Load without cookie", func(t *testing.T) {
		m := newTestManager(t, time.Hour)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if _, err := m.Load(req); !errors.Is(err, shared.ErrUnauthorized) {
			t.Errorf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("Load rejects tampered cookie", func(t *testing.T) {
		m := newTestManager(t, time.Hour)
		rec := httptest.NewRecorder()
		if _, err := m.Begin(rec); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		c := rec.Result().Cookies()[0]
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		parts := strings.Split(c.Value, ".")
		parts[1] = base64.RawURLEncoding.EncodeToString([]byte(`{"sub":"someone-else","exp":9999999999}`))
		req.AddCookie(&http.Cookie{Name: c.Name, Value: strings.Join(parts, ".")})

		_, err := m.Load(req)
		if !errors.Is(err, shared.ErrUnauthorized) || !errors.Is(err, shared.ErrInvalidCookie) {
			t.Errorf("expected ErrUnauthorized and ErrInvalidCookie, got %v", err)
		}
	})

	t.Run("Load rejects cookie signed with another secret", func(t *testing.T) {
		m := newTestManager(t, time.Hour)
		other, _ := NewManager(m.Store(), Options{Secret: "other-secret"})

		sess := models.Session{ID: "abc"}
		m.Store().Save(sess)
		value, err := other.Sign(sess.ID)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: value})
		if _, err := m.Load(req); !errors.Is(err, shared.ErrUnauthorized) {
			t.Errorf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("Load rejects expired token", func(t *testing.T) {
		m := newTestManager(t, time.Hour)
		m.Store().Save(models.Session{ID: "abc"})

		past := time.Now().Add(-2 * time.Hour)
		m.now = func() time.Time { return past }
		value, err := m.Sign("abc")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		m.now = time.Now

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: value})
		if _, err := m.Load(req); !errors.Is(err, shared.ErrUnauthorized) {
			t.Errorf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("Load rejects swept session", func(t *testing.T) {
		m := newTestManager(t, time.Hour)
		rec := httptest.NewRecorder()
		sess, _ := m.Begin(rec)
		m.Store().Delete(sess.ID)

		if _, err := m.Load(requestWith(rec)); !errors.Is(err, shared.ErrUnauthorized) {
			t.Errorf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("Save persists credential", func(t *testing.T) {
		m := newTestManager(t, time.Hour)
		rec := httptest.NewRecorder()
		sess := models.Session{ID: "abc", UserID: "user-1", Credential: &oauth2.Token{AccessToken: "tok"}}
		if err := m.Save(rec, sess); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		loaded, err := m.Load(requestWith(rec))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !loaded.Authenticated() || loaded.UserID != "user-1" {
			t.Errorf("unexpected session %+v", loaded)
		}

		if err := m.Save(httptest.NewRecorder(), models.Session{}); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("Refresh reissues cookie", func(t *testing.T) {
		m := newTestManager(t, time.Hour)
		sess, _ := m.Begin(httptest.NewRecorder())

		rec := httptest.NewRecorder()
		if err := m.Refresh(rec, sess); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(rec.Result().Cookies()) != 1 {
			t.Error("expected refreshed cookie")
		}

		m.Store().Delete(sess.ID)
		if err := m.Refresh(httptest.NewRecorder(), sess); !errors.Is(err, shared.ErrUnauthorized) {
			t.Errorf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("Destroy deletes session and clears cookie", func(t *testing.T) {
		m := newTestManager(t, time.Hour)
		rec := httptest.NewRecorder()
		sess, _ := m.Begin(rec)

		out := httptest.NewRecorder()
		m.Destroy(out, requestWith(rec))

		if _, ok := m.Store().Get(sess.ID); ok {
			t.Error("expected session to be removed from store")
		}
		cleared := out.Result().Cookies()
		if len(cleared) != 1 || cleared[0].MaxAge >= 0 || cleared[0].Value != "" {
			t.Errorf("expected cleared cookie, got %v", cleared)
		}
	})

	t.Run("Verify", func(t *testing.T) {
		m := newTestManager(t, time.Hour)
		value, _ := m.Sign("abc")
		if id, err := m.Verify(value); err != nil || id != "abc" {
			t.Errorf("expected abc, got %q (%v)", id, err)
		}
		if _, err := m.Verify("not.a.token"); !errors.Is(err, shared.ErrInvalidCookie) {
			t.Errorf("expected ErrInvalidCookie, got %v", err)
		}
		if !strings.Contains(value, ".") {
			t.Error("expected compact JWT serialization")
		}
	})
}

func TestContext(t *testing.T) {
	if _, ok := FromContext(context.Background()); ok {
		t.Error("expected empty context to have no session")
	}

	ctx := NewContext(context.Background(), models.Session{ID: "abc"})
	sess, ok := FromContext(ctx)
	if !ok || sess.ID != "abc" {
		t.Errorf("expected session abc, got %+v", sess)
	}
}
