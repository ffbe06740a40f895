package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/wxmp-assistant/relay/internal/api"
	"github.com/wxmp-assistant/relay/internal/config"
	"github.com/wxmp-assistant/relay/internal/dispatch"
	"github.com/wxmp-assistant/relay/internal/events"
	"github.com/wxmp-assistant/relay/internal/images"
	"github.com/wxmp-assistant/relay/internal/logging"
	"github.com/wxmp-assistant/relay/internal/menu"
	"github.com/wxmp-assistant/relay/internal/metrics"
	"github.com/wxmp-assistant/relay/internal/secrets"
	"github.com/wxmp-assistant/relay/internal/store"
	"github.com/wxmp-assistant/relay/internal/store/memory"
	"github.com/wxmp-assistant/relay/internal/store/postgres"
	"github.com/wxmp-assistant/relay/internal/store/sqlite"
)

type server interface {
	Start(ctx context.Context, addr string) error
}

var (
	loadConfig = func() (config.Config, error) {
		if err := config.LoadEnv(".env"); err != nil {
			return config.Config{}, err
		}
		cfg := config.Load()
		return cfg, cfg.Validate()
	}
	newLogger     = logging.New
	newBroker     = events.NewBroker
	openStore     = defaultOpenStore
	newMetrics    = metrics.Default
	newServer     = func(opts api.Options) server { return api.NewServer(opts) }
	notifyContext = signal.NotifyContext
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

// defaultOpenStore returns the configured store and a func releasing it.
func defaultOpenStore(cfg config.Config) (store.Store, func() error, error) {
	var st store.Store
	closeFn := func() error { return nil }
	switch cfg.StoreDriver {
	case config.StorePostgres:
		pg, err := postgres.New(cfg.PostgresURL)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres store: %w", err)
		}
		st, closeFn = pg, pg.Close
	case config.StoreSQLite:
		db, err := sqlite.New(sqlite.Config{Path: cfg.SQLitePath})
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		st, closeFn = db, db.Close
	default:
		st = memory.New()
	}

	if cfg.SecretsKey != "" {
		key, err := secrets.ParseKey(cfg.SecretsKey)
		if err != nil {
			_ = closeFn()
			return nil, nil, err
		}
		sealer, err := secrets.NewSealer(key)
		if err != nil {
			_ = closeFn()
			return nil, nil, err
		}
		st = secrets.NewSealedStore(st, sealer)
	}
	return st, closeFn, nil
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	slog.SetDefault(logger)

	ctx, cancel := notifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	st, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Warn("store close failed", "error", err)
		}
	}()

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	m := newMetrics()
	broker := newBroker()
	dispatcher := dispatch.New(dispatch.Options{
		Store: st,
		Images: images.NewSearcher(images.Config{
			UnsplashBaseURL: cfg.UnsplashBaseURL,
			PixabayBaseURL:  cfg.PixabayBaseURL,
			Client:          httpClient,
		}),
		HTTPClient:     httpClient,
		Metrics:        m,
		Logger:         logger,
		FavoritesLimit: cfg.FavoritesLimit,
	})

	srv := newServer(api.Options{
		Dispatcher: dispatcher,
		Menus:      menu.NewRouter(broker, m, logger),
		Broker:     broker,
		Store:      st,
		Gatherer:   prometheus.DefaultGatherer,
		Logger:     logger,
	})

	addr := fmt.Sprintf(":%s", cfg.Port)
	logger.Info("wxmp assistant relay listening", "addr", addr, "store", cfg.StoreDriver)
	if err := srv.Start(ctx, addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
