package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/services"
	"github.com/desertthunder/mixtape/internal/shared"
)

// MaxTracksPerRequest is the most URIs Spotify accepts in one add-items call.
const MaxTracksPerRequest = 100

// PopulateFailurePolicy decides what [Assembler.Assemble] does with a created playlist when populating it fails.
type PopulateFailurePolicy string

const (
	// KeepOnFailure leaves the (empty or partial) playlist in the user's library.
	KeepOnFailure PopulateFailurePolicy = "keep"
	// DeleteOnFailure removes the playlist again.
	DeleteOnFailure PopulateFailurePolicy = "delete"
)

// ParsePopulateFailurePolicy maps a config value to a policy. The empty string means [KeepOnFailure].
func ParsePopulateFailurePolicy(s string) (PopulateFailurePolicy, error) {
	switch p := PopulateFailurePolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "", KeepOnFailure:
		return KeepOnFailure, nil
	case DeleteOnFailure:
		return DeleteOnFailure, nil
	default:
		return "", fmt.Errorf("%w: unknown populate failure policy %q", shared.ErrInvalidConfig, s)
	}
}

// Assembler creates playlists for a session's user and fills them with tracks.
type Assembler struct {
	catalog  services.Service
	policy   PopulateFailurePolicy
	logger   *log.Logger
	progress chan<- ProgressUpdate
}

// NewAssembler creates an [Assembler]. A nil logger writes to stderr.
func NewAssembler(catalog services.Service, policy PopulateFailurePolicy, logger *log.Logger) *Assembler {
	if policy == "" {
		policy = KeepOnFailure
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Assembler{catalog: catalog, policy: policy, logger: logger}
}

// WithProgress returns a copy of the assembler that reports each step on progress.
func (a *Assembler) WithProgress(progress chan<- ProgressUpdate) *Assembler {
	c := *a
	c.progress = progress
	return &c
}

func (a *Assembler) Policy() PopulateFailurePolicy {
	return a.policy
}

// Create makes an empty playlist owned by the session's user.
func (a *Assembler) Create(ctx context.Context, sess models.Session, req models.CollectionRequest) (*models.Collection, error) {
	if err := requireCatalog(a.catalog); err != nil {
		return nil, err
	}
	if err := requireSession(sess); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("%w: playlist name is required", shared.ErrValidation)
	}
	if sess.UserID == "" {
		return nil, fmt.Errorf("%w: session has no user id", shared.ErrUnauthorized)
	}

	created, err := a.catalog.CreatePlaylist(ctx, sess.Credential, sess.UserID, req)
	if err != nil {
		return nil, upstreamError(err, "create playlist")
	}

	sendProgress(a.progress, createPlaylistUpdate(created))
	return created, nil
}

// Populate appends uris to the playlist, in order, in a single request.
func (a *Assembler) Populate(ctx context.Context, sess models.Session, playlistID string, uris []string) error {
	if err := requireCatalog(a.catalog); err != nil {
		return err
	}
	if err := requireSession(sess); err != nil {
		return err
	}
	if strings.TrimSpace(playlistID) == "" {
		return fmt.Errorf("%w: playlist id is required", shared.ErrValidation)
	}
	if len(uris) == 0 {
		return fmt.Errorf("%w: at least one track uri is required", shared.ErrValidation)
	}

	if err := a.catalog.AddTracks(ctx, sess.Credential, playlistID, uris); err != nil {
		return upstreamError(err, "add tracks")
	}
	return nil
}

// Assemble creates a playlist and populates it with uris.
//
// Populating is skipped when uris is empty. URIs beyond [MaxTracksPerRequest] are sent in consecutive batches.
// When populating fails under [KeepOnFailure], the playlist is returned alongside the error.
// Under [DeleteOnFailure] the playlist is removed and only returned if that removal also fails.
func (a *Assembler) Assemble(ctx context.Context, sess models.Session, req models.CollectionRequest, uris []string) (*models.Collection, error) {
	created, err := a.Create(ctx, sess, req)
	if err != nil {
		return nil, err
	}
	if len(uris) == 0 {
		return created, nil
	}

	batches := chunk(uris, MaxTracksPerRequest)
	for i, batch := range batches {
		sendProgress(a.progress, addTracksUpdate(i+1, len(batches), len(batch)))

		if err := a.Populate(ctx, sess, created.ID, batch); err != nil {
			return a.compensate(ctx, sess, created, err)
		}
		created.TrackCount += len(batch)
	}

	return created, nil
}

func (a *Assembler) compensate(ctx context.Context, sess models.Session, created *models.Collection, cause error) (*models.Collection, error) {
	if a.policy != DeleteOnFailure {
		a.logger.Warn("playlist left in place after failed populate", "playlist", created.ID, "error", cause)
		return created, cause
	}

	sendProgress(a.progress, removePlaylistUpdate(created.ID))
	if err := a.catalog.RemovePlaylist(ctx, sess.Credential, created.ID); err != nil {
		a.logger.Error("failed to remove playlist after failed populate", "playlist", created.ID, "error", err)
		return created, errors.Join(cause, fmt.Errorf("remove playlist %s: %w", created.ID, err))
	}
	return nil, cause
}

func chunk(items []string, size int) [][]string {
	var out [][]string
	for size < len(items) {
		items, out = items[size:], append(out, items[:size])
	}
	return append(out, items)
}
