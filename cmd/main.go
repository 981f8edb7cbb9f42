// Command marginscope serves the margin trade selection API and projects how
// each candidate trade moves the account's health factor and loan-to-value.
//
// Usage:
//
//	marginscope --config config.yaml
//	marginscope --snapshot market.yaml --protocol compound_v3 --base USDC
//	marginscope --setup (interactive wizard)
//
// Optional environment variables (also read from .env):
//
//	MARGINSCOPE_LISTEN_ADDR, MARGINSCOPE_SNAPSHOT
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/vadiminshakov/marginscope/config"
	"github.com/vadiminshakov/marginscope/internal/services/marketdata"
	"github.com/vadiminshakov/marginscope/internal/services/selector"
	"github.com/vadiminshakov/marginscope/internal/setup"
	"github.com/vadiminshakov/marginscope/internal/web"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := config.Get(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}
	if cfg.RunSetup {
		if err := setup.RunTUI(); err != nil {
			log.Fatal(err)
		}
		if cfg, err = config.Load(setup.GeneratedConfigPath); err != nil {
			log.Fatal(err)
		}
	}

	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)
	logger, err := zapCfg.Build()
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider := marketdata.NewProvider(logger.Named("marketdata"), cfg.SnapshotPath, marketdata.DefaultRetryOptions)
	if m, err := provider.Load(ctx); err != nil {
		logger.Warn("market snapshot unavailable, projections disabled until it loads",
			zap.String("path", cfg.SnapshotPath), zap.Error(err))
	} else if m.Protocol != cfg.Protocol {
		logger.Fatal("market snapshot protocol mismatch",
			zap.String("configured", cfg.Protocol.String()), zap.String("snapshot", m.Protocol.String()))
	} else if m.Protocol.SingleBaseAsset() && m.Base != cfg.BaseCurrency {
		logger.Fatal("market snapshot base currency mismatch",
			zap.String("configured", cfg.BaseCurrency.String()), zap.String("snapshot", m.Base.String()))
	}

	store := selector.NewStore(logger.Named("selector"), cfg.BaseCurrency)
	srv := web.NewServer(logger.Named("web"), cfg.ListenAddr, store, provider)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return provider.Watch(gctx, cfg.ReloadInterval)
	})
	g.Go(func() error {
		if len(cfg.TLSDomains) > 0 {
			return srv.StartWithAutoTLS(gctx, cfg.TLSDomains, cfg.CertCacheDir)
		}
		return srv.Start(gctx)
	})

	logger.Info("started",
		zap.String("protocol", cfg.Protocol.String()),
		zap.String("base", cfg.BaseCurrency.String()),
		zap.Duration("reload", cfg.ReloadInterval),
	)

	if err := g.Wait(); err != nil {
		logger.Error("stopped with error", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("stopped")
}
