package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/ngguard/internal/bot"
	"github.com/iamwavecut/ngguard/internal/cachestore"
	"github.com/iamwavecut/ngguard/internal/config"
	"github.com/iamwavecut/ngguard/internal/db/sqlite"
	"github.com/iamwavecut/ngguard/internal/handlers/admin"
	moderationhandler "github.com/iamwavecut/ngguard/internal/handlers/moderation"
	"github.com/iamwavecut/ngguard/internal/infra"
	"github.com/iamwavecut/ngguard/internal/infrastructure/telegram"
	"github.com/iamwavecut/ngguard/internal/lifecycle"
	"github.com/iamwavecut/ngguard/internal/moderation"
	"github.com/iamwavecut/ngguard/internal/observability"
)

const shutdownTimeout = 15 * time.Second

func main() {
	log.SetFormatter(&config.NbFormatter{})
	log.SetOutput(os.Stdout)

	cfg, err := config.Load()
	if err != nil {
		log.WithField("error", err.Error()).Fatalln("cant load config")
	}
	log.SetLevel(log.Level(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.WithField("error", err.Error()).Errorln("exiting")
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	dataDir, err := infra.GetWorkDir(cfg.DotPath)
	if err != nil {
		return err
	}

	store, err := sqlite.NewSQLiteClient(ctx, dataDir, cfg.DBFile)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	cache, closeCache, err := newCacheStore(ctx, cfg.Cache)
	if err != nil {
		return err
	}
	defer closeCache()

	botAPI, err := api.NewBotAPI(cfg.TelegramAPIToken)
	if err != nil {
		return err
	}
	if log.Level(cfg.LogLevel) == log.TraceLevel {
		botAPI.Debug = true
	}
	operations := telegram.NewOperations(botAPI)

	var audit *observability.AuditLog
	if cfg.AuditLog {
		if audit, err = observability.NewAuditLog(filepath.Join(dataDir, "audit.log")); err != nil {
			return err
		}
		defer func() { _ = audit.Close() }()
	}
	metrics, err := observability.NewMetrics(prometheus.DefaultRegisterer, audit)
	if err != nil {
		return err
	}

	scheduler := moderation.NewDeleteScheduler(operations)
	filter := moderation.NewStopWordFilter(store, cache)
	pipeline := moderation.NewPipeline(
		moderation.ConfigFrom(cfg),
		store,
		moderation.NewSubscriptionChecker(operations, cfg.Moderation.SubscriptionCheckTimeout, metrics),
		filter,
		moderation.NewEnforcer(operations, scheduler),
		metrics,
	)

	registry := bot.Registry{}
	registry.Register("admin", admin.NewAdmin(store, operations, filter, cfg.AdminIDs, cfg.DefaultLanguage, cfg.Moderation.DefaultSlowModeDelay))
	registry.Register("moderation", moderationhandler.NewHandler(pipeline))

	updateConfig := api.NewUpdate(0)
	updateConfig.Timeout = 60
	dispatcher := bot.NewDispatcher(
		func(ctx context.Context) (<-chan api.Update, <-chan error) {
			return bot.GetUpdatesChans(ctx, botAPI, updateConfig)
		},
		bot.NewUpdateProcessor(registry, cfg.EnabledHandlers),
		cfg.WorkerIdleTimeout,
	)

	runtime := lifecycle.NewRuntime()
	runtime.Register("tracing", observability.NewTracing())
	runtime.Register("scheduler", scheduler)
	runtime.Register("metrics", observability.NewMetricsServer(cfg.MetricsAddr, prometheus.DefaultGatherer))
	runtime.Register("dispatcher", dispatcher)
	if err := runtime.Start(ctx); err != nil {
		return err
	}
	log.WithField("bot", botAPI.Self.UserName).Info("started")

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case <-dispatcher.Done():
		runErr = dispatcher.Err()
	case <-infra.MonitorExecutable(ctx, infra.ExecutableCheckInterval):
		log.Warn("executable file was modified")
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return errors.Join(runErr, runtime.Stop(stopCtx))
}

// newCacheStore prefers redis when configured so that several replicas share purges.
func newCacheStore(ctx context.Context, cfg config.Cache) (cachestore.CacheStore, func(), error) {
	if cfg.RedisURL == "" {
		return cachestore.NewMemCacheStore(cfg.StopWordsSize, cfg.StopWordsTTL), func() {}, nil
	}
	store, err := cachestore.NewRedisCacheStore(ctx, cfg.RedisURL, cfg.StopWordsTTL)
	if err != nil {
		return nil, nil, err
	}
	return store, func() { _ = store.Close() }, nil
}
