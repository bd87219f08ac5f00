package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abhisek/supertutor/internal/auth"
	"github.com/abhisek/supertutor/internal/curriculum"
	"github.com/abhisek/supertutor/internal/metrics"
	"github.com/abhisek/supertutor/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := setup(cmd)
		if err != nil {
			return err
		}
		defer rt.close()

		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			rt.cfg.Server.Addr = addr
		}
		if rt.cfg.Auth.Secret == "" {
			return errors.New("auth.secret is required to serve (set SUPERTUTOR_AUTH_SECRET)")
		}
		authSvc, err := auth.NewService(rt.cfg.Auth.Secret, rt.cfg.Auth.Issuer, rt.cfg.Auth.TTL)
		if err != nil {
			return err
		}
		bank, err := curriculum.DefaultBank()
		if err != nil {
			return fmt.Errorf("load curated bank: %w", err)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		m := metrics.New()
		srv, err := server.New(rt.cfg.Server, rt.cfg.RateLimit, server.Deps{
			Auth:      authSvc,
			Generator: rt.generator(ctx, m),
			Bank:      bank,
			Documents: rt.docs,
			Metrics:   m,
			Logger:    rt.logger,
			Health: func(ctx context.Context) error {
				return rt.store.DB().PingContext(ctx)
			},
		})
		if err != nil {
			return err
		}
		if rt.cfg.Server.DevToken {
			rt.logger.Warn("dev token endpoint enabled; anyone can mint tokens")
		}
		rt.logger.Info("starting supertutor",
			zap.String("version", version),
			zap.String("store", rt.store.Driver()),
			zap.String("documents", rt.cfg.Store.Documents),
			zap.String("llm", rt.cfg.LLM.Provider))
		return srv.ListenAndServe(ctx)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides server.addr)")
}
