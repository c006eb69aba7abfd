package app

import (
	"context"
	"errors"
	"fmt"
	"net"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/pedrohsmesquita/Lectria/internal/data/repos"
	httpapi "github.com/pedrohsmesquita/Lectria/internal/http"
	httpH "github.com/pedrohsmesquita/Lectria/internal/http/handlers"
	"github.com/pedrohsmesquita/Lectria/internal/jobs/worker"
	"github.com/pedrohsmesquita/Lectria/internal/observability"
	"github.com/pedrohsmesquita/Lectria/internal/pkg/logger"
	"github.com/pedrohsmesquita/Lectria/internal/realtime"
	"github.com/pedrohsmesquita/Lectria/internal/temporalx/temporalworker"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Cfg      Config
	Clients  *Clients
	Repos    *repos.Set
	Services Services
	SSEHub   *realtime.SSEHub
	Server   *httpapi.Server

	otelShutdown func(context.Context) error
}

func New(ctx context.Context, log *logger.Logger) (*App, error) {
	log.Info("Loading configuration...")
	cfg, err := LoadConfig(log)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	otelShutdown := observability.InitOTel(ctx, log, cfg.Otel)

	clients, err := wireClients(ctx, log, cfg)
	if err != nil {
		_ = otelShutdown(ctx)
		return nil, err
	}
	theDB := clients.DB.DB()
	reposet := repos.NewSet(theDB, log)
	hub := realtime.NewSSEHub(log)

	serviceset, err := wireServices(theDB, log, cfg, reposet, clients, wireEmitter(hub, clients))
	if err != nil {
		clients.Close(log)
		_ = otelShutdown(ctx)
		return nil, err
	}

	var pinger httpH.Pinger
	if sqlDB, err := theDB.DB(); err == nil {
		pinger = sqlDB
	}
	server := httpapi.NewServer(httpapi.RouterConfig{
		Log:                 log,
		ServiceName:         cfg.Otel.ServiceName,
		AllowedOrigins:      cfg.CORSOrigins,
		HealthHandler:       httpH.NewHealthHandler(pinger),
		BookHandler:         httpH.NewBookHandler(log, serviceset.Books),
		StructureHandler:    httpH.NewStructureHandler(log, serviceset.Books),
		BibliographyHandler: httpH.NewBibliographyHandler(log, serviceset.Books),
		JobHandler:          httpH.NewJobHandler(serviceset.Jobs),
		RealtimeHandler:     httpH.NewRealtimeHandler(log, hub),
	})

	return &App{
		Log:          log,
		DB:           theDB,
		Cfg:          cfg,
		Clients:      clients,
		Repos:        reposet,
		Services:     serviceset,
		SSEHub:       hub,
		Server:       server,
		otelShutdown: otelShutdown,
	}, nil
}

// Run serves HTTP and executes jobs until ctx is canceled. Jobs go through
// Temporal when a client is configured and through the polling worker
// otherwise.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	g, gctx := errgroup.WithContext(ctx)

	if a.Clients.Bus != nil {
		if err := a.Clients.Bus.StartForwarder(gctx, a.SSEHub.Broadcast); err != nil {
			return fmt.Errorf("start SSE forwarder: %w", err)
		}
	}

	if a.Clients.Temporal != nil {
		runner, err := temporalworker.NewRunner(
			a.Log, a.Cfg.Temporal, a.Clients.Temporal, a.DB,
			a.Repos.JobRun, a.Services.Registry, a.Services.JobNotifier,
		)
		if err != nil {
			return err
		}
		if err := runner.Start(gctx); err != nil {
			return fmt.Errorf("start temporal worker: %w", err)
		}
	} else {
		w := worker.NewWorker(a.DB, a.Log, a.Repos.JobRun, a.Services.Registry, a.Services.JobNotifier, a.Cfg.Worker)
		g.Go(func() error { return w.Run(gctx) })
	}

	g.Go(func() error {
		addr := net.JoinHostPort("", a.Cfg.Port)
		a.Log.Info("HTTP server listening", "addr", addr)
		return a.Server.Run(gctx, addr, a.Cfg.ShutdownTimeout)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.otelShutdown != nil {
		if err := a.otelShutdown(context.Background()); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
	}
	a.Clients.Close(a.Log)
	a.Log.Sync()
}
