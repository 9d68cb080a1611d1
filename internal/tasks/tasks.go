// package tasks implements the playlist pipeline: suggestion, track matching, and playlist assembly.
package tasks

import (
	"errors"
	"fmt"

	"github.com/desertthunder/mixtape/internal/models"
	"github.com/desertthunder/mixtape/internal/services"
	"github.com/desertthunder/mixtape/internal/shared"
)

// requireCatalog guards against a pipeline built without a catalog service.
func requireCatalog(catalog services.Service) error {
	if catalog == nil {
		return fmt.Errorf("%w: catalog service not initialized", shared.ErrServiceUnavailable)
	}
	return nil
}

func requireSession(sess models.Session) error {
	if !sess.Authenticated() {
		return fmt.Errorf("%w: session has no credential", shared.ErrUnauthorized)
	}
	return nil
}

// upstreamError classifies err as an upstream failure without repeating the sentinel.
func upstreamError(err error, action string) error {
	if errors.Is(err, shared.ErrUpstream) {
		return fmt.Errorf("%s: %w", action, err)
	}
	return fmt.Errorf("%w: %s: %w", shared.ErrUpstream, action, err)
}
