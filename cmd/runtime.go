package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abhisek/supertutor/internal/auth"
	"github.com/abhisek/supertutor/internal/config"
	"github.com/abhisek/supertutor/internal/coursegen"
	"github.com/abhisek/supertutor/internal/curriculum"
	"github.com/abhisek/supertutor/internal/llm"
	"github.com/abhisek/supertutor/internal/logging"
	"github.com/abhisek/supertutor/internal/metrics"
	"github.com/abhisek/supertutor/internal/session"
	"github.com/abhisek/supertutor/internal/store"
)

// runtime bundles what every command needs: configuration, the logger
// and the open stores.
type runtime struct {
	cfg    *config.Config
	logger *zap.Logger
	store  *store.Store
	docs   store.DocumentStore

	closers []func()
}

// setup loads configuration and opens the logger and stores.
func setup(cmd *cobra.Command) (*runtime, error) {
	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	logger, closeLog, err := logging.New(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	rt := &runtime{cfg: cfg, logger: logger}
	rt.closers = append(rt.closers, closeLog)

	dsn, err := resolveDSN(cmd, cfg)
	if err != nil {
		rt.close()
		return nil, fmt.Errorf("resolve database: %w", err)
	}
	st, err := store.Open(cmd.Context(), cfg.Store.Driver, dsn)
	if err != nil {
		rt.close()
		return nil, fmt.Errorf("open store: %w", err)
	}
	rt.store = st
	rt.closers = append(rt.closers, func() { _ = st.Close() })
	rt.docs = st.Documents()

	if cfg.Store.Documents == config.DocumentsRedis {
		rdb, err := store.OpenRedis(cmd.Context(), cfg.Store.Redis)
		if err != nil {
			rt.close()
			return nil, fmt.Errorf("open redis: %w", err)
		}
		rt.docs = rdb
		rt.closers = append(rt.closers, func() { _ = rdb.Close() })
	}
	return rt, nil
}

// resolveDSN returns the database location using --db (highest priority),
// then store.dsn, then the default per-user SQLite path.
func resolveDSN(cmd *cobra.Command, cfg *config.Config) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	if cfg.Store.DSN != "" {
		return cfg.Store.DSN, nil
	}
	if cfg.Store.Driver == store.DriverPostgres || cfg.Store.Driver == "pgx" {
		return "", fmt.Errorf("store.dsn is required for the %s driver", cfg.Store.Driver)
	}
	return store.DefaultDBPath()
}

func (rt *runtime) close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
	rt.closers = nil
}

// generator builds the course generator. Without a configured provider it
// returns a generator that always falls back to built-in content.
func (rt *runtime) generator(ctx context.Context, m *metrics.Metrics) *coursegen.Generator {
	var provider llm.Provider
	if rt.cfg.LLM.HasKey() {
		p, err := llm.NewProvider(ctx, rt.cfg.LLM, rt.store.EventRepo(), rt.logger)
		if err != nil {
			rt.logger.Warn("LLM provider unavailable, using built-in curriculum", zap.Error(err))
		} else {
			provider = p
		}
	} else {
		rt.logger.Info("no LLM provider configured, using built-in curriculum")
	}
	return coursegen.New(provider, rt.cfg.Generation, rt.logger, m)
}

// controller builds and loads the CLI learner's session.
func (rt *runtime) controller(cmd *cobra.Command) (*session.Controller, error) {
	bank, err := curriculum.DefaultBank()
	if err != nil {
		return nil, err
	}
	opts := session.Options{
		Generator: rt.generator(cmd.Context(), nil),
		Bank:      bank,
		Documents: rt.docs,
		Logger:    rt.logger,
	}
	if id, _ := cmd.Flags().GetString("user"); id != "" {
		opts.User = &auth.User{ID: id}
	}
	c := session.New(opts)
	if err := c.Load(cmd.Context()); err != nil {
		return nil, err
	}
	return c, nil
}
