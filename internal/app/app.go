package app

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/r6voip-server/internal/config"
	"github.com/vovakirdan/r6voip-server/internal/core"
	"github.com/vovakirdan/r6voip-server/internal/janitor"
	"github.com/vovakirdan/r6voip-server/internal/metrics"
	"github.com/vovakirdan/r6voip-server/internal/ratelimit"
	transporthttp "github.com/vovakirdan/r6voip-server/internal/transport/http"
)

// App wires together core and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	hub             *core.Hub
	janitor         *janitor.Scheduler
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg config.Config, logger *zerolog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	clk := clock.New()
	m := metrics.New()

	registry := core.NewRegistry(core.RegistryOptions{
		Clock:        clk,
		MaxMembers:   cfg.Room.MaxMembers,
		CodeAttempts: cfg.Room.CodeAttempts,
	})
	limiter := ratelimit.New(clk, cfg.RateLimit.Window, cfg.RateLimit.MaxAttempts)

	hub := core.NewHub(core.HubOptions{
		Registry: registry,
		Limiter:  limiter,
		Logger:   logger,
		Metrics:  m,
		MaxAge:   cfg.Room.MaxAge,
	})

	sweeper := janitor.New(hub, janitor.Options{
		Clock:             clk,
		RoomInterval:      cfg.Room.SweepInterval,
		RateLimitInterval: cfg.RateLimit.SweepInterval,
		Logger:            logger,
	})

	server, err := transporthttp.NewServer(hub, cfg, logger, m.Handler())
	if err != nil {
		return nil, fmt.Errorf("init http server: %w", err)
	}

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		hub:             hub,
		janitor:         sweeper,
		log:             logger,
	}, nil
}

// Handler returns the HTTP handler serving /health, /metrics and /ws.
func (a *App) Handler() stdhttp.Handler {
	return a.server.Handler
}

// Run starts the hub, the janitor and the HTTP server, and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	serverErr := make(chan error, 1)

	hubDone := make(chan struct{})
	go func() {
		a.hub.Run(ctx)
		close(hubDone)
	}()
	a.janitor.Start(ctx)

	go func() {
		a.log.Info().Str("addr", a.server.Addr).Msg("http server listening")
		if err := a.server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	var runErr error
	select {
	case err := <-serverErr:
		runErr = err
	case <-ctx.Done():
		shutdownCtx, stop := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer stop()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			runErr = err
		} else {
			runErr = <-serverErr
		}
	}

	cancel()
	a.janitor.Wait()
	<-hubDone
	a.log.Info().Msg("hub and janitor stopped")

	return runErr
}
