package app

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/pedrohsmesquita/Lectria/internal/data/db"
	"github.com/pedrohsmesquita/Lectria/internal/generation"
	"github.com/pedrohsmesquita/Lectria/internal/pkg/logger"
	"github.com/pedrohsmesquita/Lectria/internal/realtime/bus"
	"github.com/pedrohsmesquita/Lectria/internal/sources"
	"github.com/pedrohsmesquita/Lectria/internal/temporalx"
)

// Clients are the outbound connections; each optional one is nil when its
// config is absent.
type Clients struct {
	DB        *db.Service
	Redis     goredis.UniversalClient
	Bus       bus.Bus
	Temporal  temporalsdkclient.Client
	Generator generation.Generator
	Reader    sources.Reader

	closers []func() error
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config) (*Clients, error) {
	log.Info("Wiring clients...")
	c := &Clients{}

	dbs, err := db.NewService(log, cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	c.DB = dbs
	c.closers = append(c.closers, dbs.Close)
	if cfg.AutoMigrate {
		if err := dbs.AutoMigrateAll(); err != nil {
			c.Close(log)
			return nil, fmt.Errorf("automigrate: %w", err)
		}
	}

	// Redis
	if cfg.Redis.Enabled() {
		rdb := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		c.Redis = rdb
		c.closers = append(c.closers, rdb.Close)
		b, err := bus.NewRedisBus(rdb, cfg.Redis.Channel, log)
		if err != nil {
			c.Close(log)
			return nil, fmt.Errorf("init redis SSE bus: %w", err)
		}
		c.Bus = b
		c.closers = append(c.closers, b.Close)
	}

	// Temporal
	tc, err := temporalx.NewClient(ctx, cfg.Temporal, log)
	if err != nil {
		c.Close(log)
		return nil, fmt.Errorf("init temporal client: %w", err)
	}
	if tc != nil {
		c.Temporal = tc
		c.closers = append(c.closers, func() error { tc.Close(); return nil })
	}

	// Generator
	prompts, err := generation.LoadPrompts(cfg.PromptsFile)
	if err != nil {
		c.Close(log)
		return nil, fmt.Errorf("load prompts: %w", err)
	}
	gen, err := generation.NewOpenAIGenerator(cfg.OpenAI, prompts, log)
	if err != nil {
		c.Close(log)
		return nil, fmt.Errorf("init generator: %w", err)
	}
	c.Generator = gen

	// Source documents
	switch cfg.Sources.Storage {
	case SourceStorageGCS:
		reader, closeFn, err := sources.NewGCSReader(ctx, cfg.Sources.GCS, log)
		if err != nil {
			c.Close(log)
			return nil, fmt.Errorf("init gcs reader: %w", err)
		}
		c.Reader = reader
		c.closers = append(c.closers, closeFn)
	default:
		reader, err := sources.NewLocalReader(cfg.Sources.Root)
		if err != nil {
			c.Close(log)
			return nil, fmt.Errorf("init local reader: %w", err)
		}
		c.Reader = reader
	}

	return c, nil
}

// Close releases clients in reverse order of creation.
func (c *Clients) Close(log *logger.Logger) {
	if c == nil {
		return
	}
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			log.Warn("Client close failed", "error", err)
		}
	}
	c.closers = nil
}
