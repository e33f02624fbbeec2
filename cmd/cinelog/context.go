package main

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"
	"sync"
	"time"

	"cinelog/internal/catalog"
	"cinelog/internal/config"
	"cinelog/internal/db"
	"cinelog/internal/logging"
	"cinelog/internal/matching"
	"cinelog/internal/merge"
	"cinelog/internal/notifications"
	"cinelog/internal/pipeline"
	"cinelog/internal/resolve"
	"cinelog/internal/staging"
	"cinelog/internal/tmdb"
	"cinelog/internal/userstate"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	envOnce sync.Once
	env     *environment
	envErr  error
}

// environment bundles the opened database, stores and logger shared by
// subcommands.
type environment struct {
	cfg       *config.Config
	logger    *slog.Logger
	db        *sql.DB
	staging   *staging.Store
	catalog   *catalog.Store
	userstate *userstate.Store
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// ensureEnv opens the database and constructs the store stack. The
// catalog store runs its migrations before the user state store so the
// film foreign keys exist.
func (c *commandContext) ensureEnv(ctx context.Context) (*environment, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	c.envOnce.Do(func() {
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			c.envErr = err
			return
		}
		handle, err := db.Open(cfg.DatabasePath())
		if err != nil {
			c.envErr = err
			return
		}
		stagingStore, err := staging.NewStore(ctx, handle)
		if err != nil {
			_ = handle.Close()
			c.envErr = err
			return
		}
		catalogStore, err := catalog.NewStore(ctx, handle)
		if err != nil {
			_ = handle.Close()
			c.envErr = err
			return
		}
		userStore, err := userstate.NewStore(ctx, handle)
		if err != nil {
			_ = handle.Close()
			c.envErr = err
			return
		}
		c.env = &environment{
			cfg:       cfg,
			logger:    logger,
			db:        handle,
			staging:   stagingStore,
			catalog:   catalogStore,
			userstate: userStore,
		}
	})
	return c.env, c.envErr
}

// withEnv runs fn against the opened environment and closes the
// database afterwards.
func (c *commandContext) withEnv(ctx context.Context, fn func(*environment) error) error {
	env, err := c.ensureEnv(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = env.db.Close() }()
	return fn(env)
}

func (e *environment) tmdbClient() (*tmdb.Client, error) {
	return tmdb.New(e.cfg.TMDB.APIKey, e.cfg.TMDB.BaseURL, e.cfg.TMDB.Language)
}

func (e *environment) matchingEngine(client tmdb.Searcher) *matching.Engine {
	resolver := resolve.NewTMDBResolver(client, e.logger, e.cfg.Matching.CandidateLimit, e.cfg.Matching.YearTolerance)
	merger := merge.New(e.catalog, e.userstate, client, e.logger)
	return matching.New(e.staging, resolver, merger, e.logger, matching.Options{
		AcceptThreshold: e.cfg.Matching.AcceptThreshold,
		TieMargin:       e.cfg.Matching.TieMargin,
	})
}

func (e *environment) runner(engine pipeline.Processor) *pipeline.Runner {
	return pipeline.New(e.staging, engine, notifications.NewService(e.cfg), e.logger, pipeline.Options{
		Workers:       e.cfg.Run.Workers,
		BatchLimit:    e.cfg.Run.BatchLimit,
		RecordTimeout: time.Duration(e.cfg.TMDB.TimeoutSeconds) * time.Second,
		LockPath:      e.cfg.DatabasePath() + ".lock",
	})
}
