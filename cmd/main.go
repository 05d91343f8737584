// Command simex serves the exchange trading front-end: live depth, quotes,
// charts and a limit order form backed by the exchange REST API.
//
// Usage:
//
//	simex --config config.yaml
//	simex setup (interactive wizard, writes config.gen.yaml and starts)
//	simex (uses CLI arguments)
//
// Optional environment variables:
//
//	SIMEX_PRIVATE_KEY: wallet key used to request an API key
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/simex/config"
	"github.com/vadiminshakov/simex/internal/activity"
	"github.com/vadiminshakov/simex/internal/clients"
	"github.com/vadiminshakov/simex/internal/services/balance"
	"github.com/vadiminshakov/simex/internal/services/market"
	"github.com/vadiminshakov/simex/internal/services/orders"
	"github.com/vadiminshakov/simex/internal/services/session"
	"github.com/vadiminshakov/simex/internal/services/trading"
	"github.com/vadiminshakov/simex/internal/setup"
	sessionstore "github.com/vadiminshakov/simex/internal/storage/session"
	"github.com/vadiminshakov/simex/internal/web"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	if len(os.Args) > 1 && os.Args[1] == "setup" {
		path, err := setup.RunTUI()
		if err != nil {
			log.Fatal(err)
		}
		os.Args = []string{os.Args[0], "--config", path}
	}

	cfg, err := config.Get()
	if err != nil {
		logger.Fatal("failed to get configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal("simex stopped", zap.Error(err))
	}
	logger.Info("simex stopped")
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	activityLog := activity.NewLog(logger, 0)
	exchange := clients.NewExchangeClient(cfg.BaseURL, cfg.ChartURL, cfg.HTTPTimeout)

	store, err := sessionstore.NewWALStore(cfg.SessionDir)
	if err != nil {
		return errors.Wrap(err, "open session store")
	}
	defer store.Close()

	sessions := session.NewService(store, exchange, activityLog, logger)
	if err := sessions.Restore(); err != nil {
		logger.Warn("failed to restore session", zap.Error(err))
	}

	var signer session.Signer
	if cfg.PrivateKey != "" {
		wallet, err := clients.NewWalletSigner(cfg.PrivateKey)
		if err != nil {
			return err
		}
		signer = wallet
		logger.Info("wallet signer loaded", zap.String("address", wallet.Address()))
	}

	coordinator := trading.NewCoordinator(cfg.DefaultPair, logger)
	markets := market.NewService(exchange, coordinator, market.Config{
		DefaultPair:   cfg.DefaultPair,
		DepthSize:     cfg.DepthSize,
		DepthInterval: cfg.DepthPollInterval,
		QuoteInterval: cfg.QuotePollInterval,
		ChartInterval: cfg.ChartPollInterval,
		EMAPeriod:     cfg.EMAPeriod,
	}, activityLog, logger)

	if err := markets.Init(ctx); err != nil {
		return errors.Wrap(err, "load order books")
	}

	orderService := orders.NewService(exchange, coordinator, sessions.APIKey, markets.Book, activityLog, logger)
	balances := balance.NewService(exchange, sessions.APIKey, activityLog, logger)

	server := web.NewServer(cfg.WebAddr, web.Deps{
		Market:   markets,
		Trading:  coordinator,
		Orders:   orderService,
		Balances: balances,
		Session:  sessions,
		Activity: activityLog,
		Signer:   signer,
	}, logger)

	credentials := sessions.Subscribe()
	defer sessions.Unsubscribe(credentials)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return markets.Run(ctx)
	})
	g.Go(func() error {
		orderService.Poll(ctx, cfg.OrdersPollInterval)
		return nil
	})
	g.Go(func() error {
		balances.Run(ctx, cfg.BalancePollInterval, credentials)
		return nil
	})
	g.Go(func() error {
		if len(cfg.TLSDomains) > 0 {
			return server.StartWithAutoTLS(ctx, cfg.TLSDomains, cfg.TLSCacheDir)
		}
		return server.Start(ctx)
	})

	return g.Wait()
}
