package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/desertthunder/mixtape/internal/server"
	"github.com/desertthunder/mixtape/internal/session"
	"github.com/desertthunder/mixtape/internal/shared"
	"github.com/desertthunder/mixtape/internal/tasks"
	"github.com/urfave/cli/v3"
)

const shutdownTimeout = 5 * time.Second

// buildHandler wires the session store, the pipeline and the router from the runner's config.
func (r *Runner) buildHandler() (http.Handler, *session.Store, error) {
	if err := r.config.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if r.catalog == nil || r.oauth == nil {
		return nil, nil, fmt.Errorf("%w: Spotify service not initialized", shared.ErrServiceUnavailable)
	}
	if r.generator == nil {
		r.logger.Warn("no suggestion backend configured, /api/gemini will answer 503")
	}

	policy, err := tasks.ParsePopulateFailurePolicy(r.config.Assembler.OnPopulateFailure)
	if err != nil {
		return nil, nil, err
	}

	cfg := r.config.Session
	store := session.NewStore(cfg.TTL, cfg.SweepInterval)
	sessions, err := session.NewManager(store, session.Options{
		Secret:     cfg.Secret,
		CookieName: cfg.CookieName,
		Secure:     cfg.Secure,
	})
	if err != nil {
		return nil, nil, err
	}

	handler, err := server.New(server.Options{
		Catalog:               r.catalog,
		OAuth:                 r.oauth,
		Generator:             r.generator,
		Sessions:              sessions,
		Logger:                shared.WithLogger(r.logger, "component", "http"),
		Policy:                policy,
		MaxTurns:              r.config.Generator.MaxTurns,
		RequireSessionSuggest: r.config.Generator.RequireSession,
		SuccessRedirect:       r.config.Server.SuccessRedirect,
	})
	if err != nil {
		return nil, nil, err
	}
	return handler, store, nil
}

// Serve runs the HTTP service until interrupted, then drains in-flight requests.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	handler, store, err := r.buildHandler()
	if err != nil {
		return err
	}

	addr := cmd.String("addr")
	if addr == "" {
		addr = r.config.Server.Addr()
	}

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Info("listening", "addr", addr, "policy", r.config.Assembler.OnPopulateFailure)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
		close(serverErrors)
	}()

	if cmd.Bool("open") {
		loginURL := fmt.Sprintf("http://%s/auth/spotify", addr)
		if err := shared.OpenBrowser(loginURL); err != nil {
			r.logger.Warn("failed to open browser", "error", err)
			r.writePlain("Open %s to log in\n", loginURL)
		}
	}

	select {
	case err, ok := <-serverErrors:
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	r.logger.Info("shutting down", "sessions", store.Count())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down: %w", err)
	}
	return nil
}
