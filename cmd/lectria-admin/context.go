package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/pedrohsmesquita/Lectria/internal/app"
	"github.com/pedrohsmesquita/Lectria/internal/bibliography"
	"github.com/pedrohsmesquita/Lectria/internal/data/db"
	"github.com/pedrohsmesquita/Lectria/internal/data/repos"
	"github.com/pedrohsmesquita/Lectria/internal/pkg/logger"
)

type commandContext struct {
	configFlag *string
	verbose    *bool
}

func newCommandContext(configFlag *string, verbose *bool) *commandContext {
	return &commandContext{configFlag: configFlag, verbose: verbose}
}

// adminEnv is the slice of the application a maintenance command needs.
type adminEnv struct {
	log  *logger.Logger
	cfg  app.Config
	dbs  *db.Service
	repo *repos.Set
	bib  *bibliography.Service
}

func (c *commandContext) logger() (*logger.Logger, error) {
	if c.verbose != nil && *c.verbose {
		return logger.New("development")
	}
	return logger.Nop(), nil
}

// withEnv opens the database for the duration of fn. With REDIS_ADDR set the
// book lock is shared with running servers.
func (c *commandContext) withEnv(fn func(env *adminEnv) error) error {
	if c.configFlag != nil && strings.TrimSpace(*c.configFlag) != "" {
		if err := os.Setenv("CONFIG_FILE", *c.configFlag); err != nil {
			return err
		}
	}
	log, err := c.logger()
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	cfg, err := app.LoadConfig(log)
	if err != nil {
		return err
	}
	dbs, err := db.NewService(log, cfg.DB)
	if err != nil {
		return err
	}
	defer func() { _ = dbs.Close() }()

	locker := bibliography.NewLocalLocker()
	if cfg.Redis.Enabled() {
		rdb := goredis.NewClient(&goredis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer func() { _ = rdb.Close() }()
		locker = bibliography.NewRedisLocker(rdb, log, cfg.Redis.LockTTL)
	}

	set := repos.NewSet(dbs.DB(), log)
	return fn(&adminEnv{
		log:  log,
		cfg:  cfg,
		dbs:  dbs,
		repo: set,
		bib:  bibliography.NewService(dbs.DB(), set, locker, cfg.Bibliography, log),
	})
}

func parseBookFlag(raw string) (uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return uuid.Nil, fmt.Errorf("--book is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid --book %q: %w", raw, err)
	}
	return id, nil
}
