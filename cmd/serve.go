package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/vadiminshakov/papertrade/config"
	"github.com/vadiminshakov/papertrade/internal/auth"
	"github.com/vadiminshakov/papertrade/internal/services/accounts"
	"github.com/vadiminshakov/papertrade/internal/services/ledger"
	"github.com/vadiminshakov/papertrade/internal/services/market"
	"github.com/vadiminshakov/papertrade/internal/services/trades"
	"github.com/vadiminshakov/papertrade/internal/storage/balancesnapshots"
	"github.com/vadiminshakov/papertrade/internal/storage/sqlite"
	"github.com/vadiminshakov/papertrade/internal/web"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return errors.Wrap(err, "load config")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to YAML config (defaults plus environment when empty)")
	return cmd
}

// app holds everything serve has to close on the way out.
type app struct {
	server    *web.Server
	store     *sqlite.Store
	snapshots *balancesnapshots.WALStore
	logger    *zap.Logger
}

func newApp(cfg config.Config, logger *zap.Logger) (*app, error) {
	store, err := sqlite.Open(cfg.Database.Path, cfg.Database.BusyTimeout, logger.Named("sqlite"))
	if err != nil {
		return nil, err
	}

	issuer, err := auth.NewTokenIssuer(cfg.Auth.Secret, cfg.Auth.TokenTTL, nil)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	source, err := market.NewSource(cfg.Market)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	a := &app{store: store, logger: logger}

	tradeOpts := []trades.Option{trades.WithHistoryLimit(cfg.Ledger.HistoryLimit)}
	deps := web.Deps{
		Accounts: accounts.NewService(store, issuer, cfg.Ledger.InitialBalance, logger.Named("accounts")),
		Market:   market.NewGateway(source, cfg.Market.Timeout, logger.Named("market")),
	}
	if cfg.WAL.Enabled {
		snapshots, err := balancesnapshots.NewWALStore(cfg.WAL.Dir)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		a.snapshots = snapshots
		tradeOpts = append(tradeOpts, trades.WithSnapshots(snapshots))
		deps.Snapshots = snapshots
	}
	deps.Trades = trades.NewService(store, ledger.New(), logger.Named("trades"), tradeOpts...)

	a.server = web.NewServer(cfg.Server, deps, logger.Named("web"))
	return a, nil
}

func (a *app) Close() {
	if a.snapshots != nil {
		if err := a.snapshots.Close(); err != nil {
			a.logger.Warn("close balance snapshots", zap.Error(err))
		}
	}
	if err := a.store.Close(); err != nil {
		a.logger.Warn("close database", zap.Error(err))
	}
}

func serve(ctx context.Context, cfg config.Config) error {
	logger, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	logger.Info("starting papertrade",
		zap.String("version", version),
		zap.String("addr", cfg.Server.Addr),
		zap.String("database", cfg.Database.Path),
		zap.String("market", cfg.Market.Platform),
		zap.Bool("wal", cfg.WAL.Enabled),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if len(cfg.Server.TLSDomains) > 0 {
			return a.server.StartWithAutoTLS(gctx)
		}
		return a.server.Start(gctx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("papertrade stopped")
	return nil
}
