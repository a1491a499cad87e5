package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tendant/simple-share/pkg/simpleshare"
	"github.com/tendant/simple-share/pkg/simpleshare/api"
	"github.com/tendant/simple-share/pkg/simpleshare/config"
	"github.com/tendant/simple-share/pkg/simpleshare/metrics"
	"github.com/tendant/simple-share/pkg/simpleshare/session"
)

const (
	shutdownTimeout = 10 * time.Second
	sweepInterval   = 10 * time.Minute
)

// NewServeCommand creates the serve command
func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg)
		},
	}
}

func newHandler(cfg *config.ServerConfig) (http.Handler, session.Store, error) {
	var (
		svcOpts        []simpleshare.Option
		metricsHandler http.Handler
	)
	if cfg.EnableMetrics {
		sink := metrics.NewSink()
		svcOpts = append(svcOpts, simpleshare.WithEventSink(sink))
		metricsHandler = sink.Handler()
	}

	svc, err := cfg.BuildService(svcOpts...)
	if err != nil {
		return nil, nil, err
	}

	sessions, err := cfg.BuildSessionStore()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build session store: %w", err)
	}

	server, err := api.NewServer(api.Config{
		Service:        svc,
		Sessions:       sessions,
		Users:          cfg.Users,
		APIKeys:        cfg.APIKeys,
		CookieName:     cfg.Session.CookieName,
		CookieSecure:   cfg.Session.CookieSecure,
		MaxUploadBytes: cfg.MaxUploadBytes,
		Metrics:        metricsHandler,
	})
	if err != nil {
		return nil, nil, err
	}
	return server.Routes(), sessions, nil
}

func serve(ctx context.Context, cfg *config.ServerConfig) error {
	handler, sessions, err := newHandler(cfg)
	if err != nil {
		return err
	}
	if closer, ok := sessions.(io.Closer); ok {
		defer closer.Close()
	}
	if mem, ok := sessions.(*session.MemoryStore); ok {
		go sweepSessions(ctx, mem)
	}

	httpServer := &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server starting", "bind_addr", cfg.BindAddr, "external_url", cfg.ExternalURL,
			"session_backend", cfg.Session.Backend, "users", len(cfg.Users), "api_keys", len(cfg.APIKeys))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	slog.Info("Server exiting")
	return nil
}

// sweepSessions drops expired in-memory sessions until ctx is done.
func sweepSessions(ctx context.Context, store *session.MemoryStore) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := store.Sweep(); n > 0 {
				slog.Debug("Expired sessions removed", "count", n, "remaining", store.Len())
			}
		}
	}
}

