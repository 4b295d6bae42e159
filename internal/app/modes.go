package app

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alphavault/fundd/internal/server"
	"github.com/alphavault/fundd/internal/server/handler"
	"github.com/alphavault/fundd/internal/server/ws"
	"github.com/alphavault/fundd/internal/service"
)

// ServerMode runs the HTTP/WebSocket API without the keeper loop. Fee
// collection and rebalancing happen only through the API.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startHTTPServer(ctx, g, deps)
	return g.Wait()
}

// KeeperMode runs the fee/rebalance keeper loop without the API.
func (a *App) KeeperMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting keeper mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startKeeper(ctx, g, deps)
	return g.Wait()
}

// FullMode runs the API and the keeper loop in one process.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startKeeper(ctx, g, deps)
	a.startHTTPServer(ctx, g, deps)
	return g.Wait()
}

// startKeeper adds the keeper loop to the errgroup, with activity archival
// enabled when blob storage is wired.
func (a *App) startKeeper(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	keeper := service.NewKeeper(
		deps.FundSvc,
		deps.LockManager,
		a.cfg.Keeper.Interval.Duration,
		a.cfg.Keeper.LockTTL.Duration,
		a.logger,
	)
	if deps.Archiver != nil {
		keeper.EnableArchival(deps.Archiver, deps.ActivityStore, a.cfg.S3.ArchiveRetentionDays)
	}

	g.Go(func() error {
		err := keeper.Run(ctx)
		if ctx.Err() != nil {
			return nil
		}
		return err
	})
}

// startHTTPServer adds the API server and WebSocket hub goroutines to the
// errgroup. The server is shut down gracefully when the context is
// cancelled.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	startedAt := time.Now().UTC()
	hub := ws.NewHub(deps.SignalBus, a.logger, ws.Config{
		Mode:      a.cfg.Mode,
		FundName:  a.cfg.Fund.Name,
		StartedAt: startedAt,
	})
	g.Go(func() error {
		err := hub.Run(ctx)
		if ctx.Err() != nil {
			return nil
		}
		return err
	})

	handlers := server.Handlers{
		Health: handler.NewHealthHandler(a.cfg.Mode, a.cfg.Fund.Name, startedAt),
		Fund:   handler.NewFundHandler(deps.FundSvc, a.logger),
		Assets: handler.NewAssetHandler(deps.FundSvc, a.logger),
	}

	srv := server.NewServer(server.Config{
		Port:            a.cfg.Server.Port,
		CORSOrigins:     a.cfg.Server.CORSOrigins,
		Operator:        deps.Operator,
		AuthMaxSkew:     a.cfg.Server.AuthMaxSkew.Duration,
		RateLimit:       a.cfg.Server.RateLimit,
		RateLimitWindow: a.cfg.Server.RateLimitWindow.Duration,
	}, handlers, hub, deps.RateLimiter, a.logger)

	g.Go(func() error {
		return srv.Start()
	})

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}
