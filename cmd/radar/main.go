// Command radar serves NEXRAD sweep frames, watches stations for new volume
// scans and pushes notifications to WebSocket subscribers and Kafka.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	opshttp "github.com/couchcryptid/storm-radar-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/storm-radar-service/internal/adapter/kafka"
	"github.com/couchcryptid/storm-radar-service/internal/adapter/localstore"
	s3adapter "github.com/couchcryptid/storm-radar-service/internal/adapter/s3"
	"github.com/couchcryptid/storm-radar-service/internal/alerts"
	"github.com/couchcryptid/storm-radar-service/internal/api"
	"github.com/couchcryptid/storm-radar-service/internal/config"
	"github.com/couchcryptid/storm-radar-service/internal/domain"
	"github.com/couchcryptid/storm-radar-service/internal/nexrad"
	"github.com/couchcryptid/storm-radar-service/internal/observability"
	"github.com/couchcryptid/storm-radar-service/internal/radar"
	"github.com/couchcryptid/storm-radar-service/internal/roster"
	"github.com/couchcryptid/storm-radar-service/internal/scheduler"
	"github.com/couchcryptid/storm-radar-service/internal/watcher"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		slog.Error("failed to load .env", "error", err)
		os.Exit(1)
	}
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Frame cache.
	frames, err := newFrameCache(ctx, cfg, clock, logger, metrics)
	if err != nil {
		logger.Error("failed to open frame cache", "error", err)
		os.Exit(1)
	}
	memory := frames.memory

	// Archive source.
	var store radar.ObjectStore
	switch cfg.RadarSource {
	case config.SourceDir:
		store = localstore.New(cfg.RadarDir)
		logger.Info("reading scans from directory", "dir", cfg.RadarDir)
	default:
		client := s3adapter.NewClient(s3adapter.Config{
			Bucket:   cfg.RadarBucket,
			Region:   cfg.RadarRegion,
			Endpoint: cfg.RadarEndpoint,
			Timeout:  cfg.RadarTimeout,
		}, logger, metrics)
		store = s3adapter.NewBreakerStore(client, 2*time.Minute, logger)
		logger.Info("reading scans from s3", "bucket", cfg.RadarBucket, "region", cfg.RadarRegion)
	}

	svc := radar.NewService(
		radar.NewLocator(store, clock, logger),
		radar.NewFetcher(store, nexrad.NewDecoder(), metrics),
		frames.Cache, logger, metrics,
	)

	registry := watcher.NewRegistry(logger, metrics)
	w := watcher.New(svc, registry, clock, logger, metrics, watcher.Config{
		Interval:       cfg.WatchInterval,
		PrefetchSweeps: cfg.PrefetchSweeps,
		StopTimeout:    5 * time.Second,
	})

	var notifier *kafkaadapter.Notifier
	if cfg.KafkaEnabled {
		notifier = kafkaadapter.NewNotifier(cfg.KafkaBrokers, cfg.KafkaNotifyTopic, logger)
		registry.Add(domain.Wildcard, notifier)
		logger.Info("kafka notifications enabled", "topic", cfg.KafkaNotifyTopic, "brokers", cfg.KafkaBrokers)
	}

	// Periodic jobs.
	sched := scheduler.New(logger)
	if memory != nil {
		err := sched.Every("cache-evict", cfg.CacheSweepInterval, func(context.Context) error {
			if n := memory.Evict(clock.Now()); n > 0 {
				logger.Debug("evicted expired frames", "count", n)
			}
			return nil
		})
		if err != nil {
			logger.Error("failed to schedule cache eviction", "error", err)
			os.Exit(1)
		}
	}
	sched.Start()

	// Stations.
	for _, s := range cfg.WatchStations {
		if err := w.Start(s); err != nil {
			logger.Warn("could not watch station", "station", s, "error", err)
		}
	}
	if cfg.StationsFile != "" {
		rec := roster.NewReconciler(w, logger)
		stations, err := roster.Load(cfg.StationsFile)
		if err != nil {
			logger.Error("failed to load station roster", "path", cfg.StationsFile, "error", err)
			os.Exit(1)
		}
		rec.Apply(stations)
		go func() {
			if err := roster.Watch(ctx, cfg.StationsFile, logger, rec.Apply); err != nil {
				logger.Error("roster watch error", "error", err)
			}
		}()
	}

	router := api.NewRouter(api.Deps{
		Radar:          svc,
		Watcher:        w,
		Registry:       registry,
		Alerts:         alerts.NewClient(cfg.AlertsBaseURL, cfg.AlertsUserAgent, cfg.AlertsTimeout, frames.Cache, logger, metrics),
		GeoJSONDir:     cfg.GeoJSONDir,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Logger:         logger,
		Metrics:        metrics,
	})
	apiSrv := &http.Server{
		Addr:              cfg.APIAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ops := opshttp.NewServer(cfg.HTTPAddr, map[string]opshttp.CheckFunc{
		"cache": svc.CheckReadiness,
	}, w, logger)

	go func() {
		logger.Info("api server starting", "addr", cfg.APIAddr)
		if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server error", "error", err)
			stop()
		}
	}()
	go func() {
		if err := ops.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("ops server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := apiSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("api server shutdown error", "error", err)
	}
	w.Close()
	sched.Stop()
	if notifier != nil {
		if err := notifier.Close(); err != nil {
			logger.Error("kafka notifier close error", "error", err)
		}
	}
	if err := frames.Close(); err != nil {
		logger.Error("frame cache close error", "error", err)
	}
	if err := ops.Shutdown(shutdownCtx); err != nil {
		logger.Error("ops server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}
