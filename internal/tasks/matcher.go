package tasks

import (
	"context"
	"fmt"

	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/services"
	"github.com/desertthunder/mixtape/internal/shared"
)

// Matcher resolves candidate song names to catalog tracks.
type Matcher struct {
	catalog  services.Service
	progress chan<- ProgressUpdate
}

// NewMatcher creates a [Matcher] searching catalog.
func NewMatcher(catalog services.Service) *Matcher {
	return &Matcher{catalog: catalog}
}

// WithProgress returns a copy of the matcher that reports each search on progress.
func (m *Matcher) WithProgress(progress chan<- ProgressUpdate) *Matcher {
	c := *m
	c.progress = progress
	return &c
}

// Match searches each normalized candidate in order, one top-1 search at a time, keeping the first hit.
//
// Candidates without a hit are dropped, so the result is an order-preserving subsequence of the input.
// Any search failure aborts the batch: nothing is returned but the error, which wraps [shared.ErrUpstream].
func (m *Matcher) Match(ctx context.Context, sess models.Session, candidates []string) ([]models.MatchedTrack, error) {
	if err := requireCatalog(m.catalog); err != nil {
		return nil, err
	}
	if err := requireSession(sess); err != nil {
		return nil, err
	}

	names := shared.NormalizeCandidates(candidates)
	total := len(names)
	matches := make([]models.MatchedTrack, 0, total)

	for i, name := range names {
		sendProgress(m.progress, searchTracksUpdate(i+1, total, name))

		results, err := m.catalog.SearchTracks(ctx, sess.Credential, name, 1)
		if err != nil {
			return nil, upstreamError(err, fmt.Sprintf("search %q", name))
		}

		if len(results) == 0 {
			sendProgress(m.progress, unmatchedTrackUpdate(i+1, total, name))
			continue
		}

		matches = append(matches, results[0])
		sendProgress(m.progress, matchedTrackUpdate(i+1, total, results[0]))
	}

	return matches, nil
}

// URIs extracts the track URIs in order.
func URIs(tracks []models.MatchedTrack) []string {
	uris := make([]string, 0, len(tracks))
	for _, t := range tracks {
		uris = append(uris, t.URI)
	}
	return uris
}
