package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/wagerbook/wagerbook/internal/betting"
	"github.com/wagerbook/wagerbook/internal/commands"
	"github.com/wagerbook/wagerbook/internal/config"
	"github.com/wagerbook/wagerbook/internal/infra"
	"github.com/wagerbook/wagerbook/internal/ledger"
	"github.com/wagerbook/wagerbook/internal/logging"
	"github.com/wagerbook/wagerbook/internal/metrics"
	"github.com/wagerbook/wagerbook/internal/notification"
	"github.com/wagerbook/wagerbook/internal/players"
	"github.com/wagerbook/wagerbook/internal/routes"
	"github.com/wagerbook/wagerbook/internal/server"
	"github.com/wagerbook/wagerbook/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, cfg.AppName, cfg.AppEnv)

	ctx := context.Background()

	var db *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		db, err = infra.NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("connect postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
	}

	var cache *redis.Client
	if cfg.RedisURL != "" {
		cache, err = infra.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error("connect redis", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := cache.Close(); err != nil {
				logger.Warn("close redis", "error", err)
			}
		}()
	}

	ledgerStore, err := openStore(ctx, cfg, db, cache)
	if err != nil {
		logger.Error("open ledger store", "store", cfg.Store, "error", err)
		os.Exit(1)
	}

	book, err := ledger.New(ctx, ledgerStore, ledger.Options{
		StartingBalance:     cfg.StartingBalance,
		RefundReplacedStake: cfg.RefundReplacedStake,
		SingleMatch:         cfg.SingleMatch(),
	})
	if err != nil {
		logger.Error("load ledger", "error", err)
		os.Exit(1)
	}
	logger.Info("ledger loaded",
		"store", cfg.Store,
		"match_mode", cfg.MatchMode,
		"current_match_id", book.CurrentMatchID(),
		"open_matches", len(book.ActiveMatches()),
	)

	var playerRepo players.Repository = players.NewMemoryRepository()
	if db != nil {
		pgPlayers := players.NewPostgresRepository(db)
		if err := pgPlayers.EnsureSchema(ctx); err != nil {
			logger.Error("players schema", "error", err)
			os.Exit(1)
		}
		playerRepo = pgPlayers
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)
	m.OpenMatches.Set(float64(len(book.ActiveMatches())))

	notifier, closeNotifiers := buildNotifier(cfg, logger)
	defer closeNotifiers()

	svc := betting.NewService(book, players.NewService(playerRepo), logger,
		betting.WithNotifier(notifier),
		betting.WithMetrics(m),
	)

	srv, err := server.New(routes.Deps{
		Cfg:      cfg,
		DB:       db,
		Cache:    cache,
		Logger:   logger,
		Betting:  svc,
		Commands: commands.NewDispatcher(svc, logger, m),
		Metrics:  m,
	})
	if err != nil {
		logger.Error("build server", "error", err)
		os.Exit(1)
	}

	srvErrCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Address())
		srvErrCh <- srv.Listen()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	exitCode := 0
	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-srvErrCh:
		if err != nil {
			logger.Error("server error", "error", err)
			exitCode = 1
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		exitCode = 1
	}
	if err := book.Flush(shutdownCtx); err != nil {
		logger.Error("final ledger flush", "error", err)
		exitCode = 1
	}

	if exitCode != 0 {
		os.Exit(exitCode)
	}
	logger.Info("server exited cleanly")
}

func openStore(ctx context.Context, cfg config.Config, db *pgxpool.Pool, cache *redis.Client) (ledger.Store, error) {
	switch cfg.Store {
	case config.StorePostgres:
		pg := store.NewPostgres(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return pg, nil
	case config.StoreRedis:
		return store.NewRedis(cache), nil
	case config.StoreMemory:
		return store.NewMemory(), nil
	default:
		return store.NewFile(cfg.StateDir)
	}
}

// buildNotifier always logs events and adds Kafka and NATS when configured.
// Broker setup failures are logged and the broker is skipped.
func buildNotifier(cfg config.Config, logger *slog.Logger) (notification.Notifier, func()) {
	fanout := notification.Fanout{notification.NewLoggerNotifier(logger)}
	var closers []func()

	if brokers := cfg.KafkaBrokerList(); len(brokers) > 0 {
		w, err := infra.NewKafkaWriter(brokers, cfg.KafkaTopic)
		if err != nil {
			logger.Warn("kafka disabled", "error", err)
		} else {
			fanout = append(fanout, notification.NewKafkaNotifier(w))
			closers = append(closers, func() {
				if err := w.Close(); err != nil {
					logger.Warn("close kafka writer", "error", err)
				}
			})
		}
	}

	if cfg.NATSURL != "" {
		nc, err := infra.NewNATSConn(cfg.NATSURL, cfg.AppName)
		if err != nil {
			logger.Warn("nats disabled", "error", err)
		} else {
			fanout = append(fanout, notification.NewNATSNotifier(nc, cfg.NATSSubject))
			closers = append(closers, func() {
				if err := nc.Drain(); err != nil {
					logger.Warn("drain nats", "error", err)
				}
			})
		}
	}

	return fanout, func() {
		for _, c := range closers {
			c()
		}
	}
}
