// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/mixtape/internal/models"
	"golang.org/x/oauth2"
)

// MockService is a test double for [services.Service].
//
// Playlists created through it are kept in memory so Create/Add/Get/Remove behave like the real service.
// Every call is counted and the access token it carried is recorded.
type MockService struct {
	mu sync.Mutex

	Profile       *models.Profile
	Playlists     []models.Collection
	SearchResults map[string][]models.MatchedTrack

	ProfileErr   error
	PlaylistsErr error
	SearchErr    error
	SearchErrFor map[string]error
	CreateErr    error
	AddErr       error
	GetErr       error
	RemoveErr    error

	Queries []string
	Tokens  []string
	Added   map[string][]string
	Removed []string

	calls  map[string]int
	stored map[string]*models.Collection
	nextID int
}

// NewMockService returns a [MockService] with a default profile for user "user-1".
func NewMockService() *MockService {
	return &MockService{
		Profile:       &models.Profile{ID: "user-1", DisplayName: "Test User", Email: "test@example.com"},
		SearchResults: map[string][]models.MatchedTrack{},
		SearchErrFor:  map[string]error{},
		Added:         map[string][]string{},
	}
}

func (m *MockService) record(method string, token *oauth2.Token) {
	if m.calls == nil {
		m.calls = map[string]int{}
	}
	m.calls[method]++
	if token != nil {
		m.Tokens = append(m.Tokens, token.AccessToken)
	} else {
		m.Tokens = append(m.Tokens, "")
	}
}

// Calls returns how many times method was invoked.
func (m *MockService) Calls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

// TotalCalls returns the number of calls across all methods.
func (m *MockService) TotalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, n := range m.calls {
		total += n
	}
	return total
}

// SeenTokens returns a copy of the access tokens passed to the service, in call order.
func (m *MockService) SeenTokens() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Tokens...)
}

func (m *MockService) UserProfile(ctx context.Context, token *oauth2.Token) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("UserProfile", token)
	if m.ProfileErr != nil {
		return nil, m.ProfileErr
	}
	p := *m.Profile
	return &p, nil
}

func (m *MockService) UserPlaylists(ctx context.Context, token *oauth2.Token, userID string) ([]models.Collection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("UserPlaylists", token)
	if m.PlaylistsErr != nil {
		return nil, m.PlaylistsErr
	}
	return append([]models.Collection{}, m.Playlists...), nil
}

func (m *MockService) SearchTracks(ctx context.Context, token *oauth2.Token, query string, limit int) ([]models.MatchedTrack, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("SearchTracks", token)
	m.Queries = append(m.Queries, query)
	if err, ok := m.SearchErrFor[query]; ok {
		return nil, err
	}
	if m.SearchErr != nil {
		return nil, m.SearchErr
	}
	results := m.SearchResults[query]
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return append([]models.MatchedTrack{}, results...), nil
}

func (m *MockService) CreatePlaylist(ctx context.Context, token *oauth2.Token, userID string, req models.CollectionRequest) (*models.Collection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("CreatePlaylist", token)
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	if m.stored == nil {
		m.stored = map[string]*models.Collection{}
	}
	m.nextID++
	id := fmt.Sprintf("playlist-%d", m.nextID)
	c := &models.Collection{
		ID:          id,
		Name:        req.Name,
		Description: req.Description,
		Public:      req.Public,
		ExternalURL: "https://open.spotify.com/playlist/" + id,
		URI:         "spotify:playlist:" + id,
		OwnerID:     userID,
	}
	m.stored[id] = c
	out := *c
	return &out, nil
}

func (m *MockService) AddTracks(ctx context.Context, token *oauth2.Token, playlistID string, uris []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("AddTracks", token)
	if m.AddErr != nil {
		return m.AddErr
	}
	if m.Added == nil {
		m.Added = map[string][]string{}
	}
	m.Added[playlistID] = append(m.Added[playlistID], uris...)
	if c, ok := m.stored[playlistID]; ok {
		c.TrackCount += len(uris)
	}
	return nil
}

func (m *MockService) GetPlaylist(ctx context.Context, token *oauth2.Token, playlistID string) (*models.Collection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("GetPlaylist", token)
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	c, ok := m.stored[playlistID]
	if !ok {
		return nil, errors.New("playlist not found")
	}
	out := *c
	return &out, nil
}

func (m *MockService) RemovePlaylist(ctx context.Context, token *oauth2.Token, playlistID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("RemovePlaylist", token)
	if m.RemoveErr != nil {
		return m.RemoveErr
	}
	delete(m.stored, playlistID)
	m.Removed = append(m.Removed, playlistID)
	return nil
}

// Exists reports whether a playlist created through the mock is still present.
func (m *MockService) Exists(playlistID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.stored[playlistID]
	return ok
}

func (m *MockService) Name() string { return "mock" }

// MockGenerator is a test double for [services.Generator] that records every transcript it receives.
type MockGenerator struct {
	mu    sync.Mutex
	Reply string
	Err   error
	Turns [][]models.ConversationTurn
}

func (g *MockGenerator) Generate(ctx context.Context, turns []models.ConversationTurn) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Turns = append(g.Turns, append([]models.ConversationTurn(nil), turns...))
	if g.Err != nil {
		return "", g.Err
	}
	return g.Reply, nil
}

// CallCount returns how many transcripts were received.
func (g *MockGenerator) CallCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.Turns)
}

func (g *MockGenerator) Name() string { return "mock" }

// MockOAuth is a test double for [services.OAuthService].
type MockOAuth struct {
	Token *oauth2.Token
	Err   error
	Codes []string
}

func (o *MockOAuth) AuthURL(state string) string {
	return "https://accounts.example.com/authorize?state=" + state
}

func (o *MockOAuth) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	o.Codes = append(o.Codes, code)
	if o.Err != nil {
		return nil, o.Err
	}
	return o.Token, nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
