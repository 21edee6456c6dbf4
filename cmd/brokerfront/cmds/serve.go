package cmds

import (
	"brokerfront/internal/api"
	"brokerfront/internal/shell"
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	hydrateRetryInterval = 5 * time.Second
)

// Serve runs the HTTP server and hydrates the durable tier in the background. It returns when ctx is done or the
// server fails.
func Serve(ctx context.Context, app *App) error {
	renderer, err := shell.NewRenderer(app.Settings.ShellTemplate, app.Settings.AppScript)
	if err != nil {
		return err
	}
	h := api.NewHandler(app.Orchestrator, app.Cache, renderer, app.Announcer, app.Registry)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return api.RunServer(gctx, app.Settings.Port, h)
	})
	g.Go(func() error {
		return Hydrate(gctx, app, hydrateRetryInterval)
	})
	return g.Wait()
}

// Hydrate loads the durable tier into memory, retrying every interval until it succeeds or ctx is done. Requests
// are served from the synchronous tier in the meantime, so a failure here never stops the server.
func Hydrate(ctx context.Context, app *App, interval time.Duration) error {
	for {
		err := app.Cache.Hydrate(ctx)
		if err == nil {
			return nil
		}
		log.WithError(err).WithField("retry", interval.String()).Warn("Hydration failed, retrying")
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval):
		}
	}
}
