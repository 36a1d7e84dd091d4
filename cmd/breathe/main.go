package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/breathe-server/internal/adapter/airnow"
	"github.com/couchcryptid/breathe-server/internal/adapter/geoapify"
	httpadapter "github.com/couchcryptid/breathe-server/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/breathe-server/internal/adapter/kafka"
	"github.com/couchcryptid/breathe-server/internal/adapter/purpleair"
	"github.com/couchcryptid/breathe-server/internal/adapter/wildfire"
	"github.com/couchcryptid/breathe-server/internal/config"
	"github.com/couchcryptid/breathe-server/internal/domain"
	"github.com/couchcryptid/breathe-server/internal/feeds"
	"github.com/couchcryptid/breathe-server/internal/observability"
	"github.com/couchcryptid/breathe-server/internal/persistence"
	"github.com/couchcryptid/breathe-server/internal/pipeline"
	"github.com/couchcryptid/breathe-server/internal/places"
)

func main() {
	// A missing .env file is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("failed to open place cache", "backend", cfg.CacheBackend, "error", err)
		os.Exit(1)
	}
	logger.Info("place cache opened", "backend", cfg.CacheBackend)

	// Geocoding is feature-flagged via GEOAPIFY_API_KEY.
	var geocoder domain.Geocoder
	if cfg.GeocodingEnabled() {
		client := geoapify.NewClient(cfg.GeoapifyURL, cfg.GeoapifyAPIKey, cfg.GeocodeTimeout, logger, metrics)
		geocoder = geoapify.NewCachedGeocoder(client, cfg.GeocodeCacheSize, metrics)
		logger.Info("geoapify geocoding enabled", "cache_size", cfg.GeocodeCacheSize, "timeout", cfg.GeocodeTimeout)
	} else {
		logger.Info("geoapify geocoding disabled")
	}

	var (
		notifier  places.PlaceNotifier
		publisher *kafkaadapter.Publisher
	)
	if cfg.PublishingEnabled() {
		publisher = kafkaadapter.NewPublisher(cfg, logger)
		notifier = publisher
		logger.Info("place discovery publishing enabled", "topic", cfg.KafkaPlacesTopic, "brokers", cfg.KafkaBrokers)
	}

	placesService := places.NewService(places.Options{
		Feed:            purpleair.NewClient(cfg.PurpleAirURL, cfg.PurpleAirAPIKey, cfg.GeocodeTimeout, logger),
		Geocoder:        geocoder,
		Notifier:        notifier,
		Store:           store,
		GeocodeTimeout:  cfg.GeocodeTimeout,
		CheckpointEvery: cfg.CheckpointEvery,
		ForceClean:      cfg.CacheForceClean,
		Clock:           clock,
	}, logger, metrics)

	subsystems := []pipeline.Subsystem{placesService}
	if cfg.AirNowAPIKey != "" {
		stations := airnow.NewClient(cfg.AirNowURL, cfg.AirNowAPIKey, cfg.GeocodeTimeout, clock, logger)
		subsystems = append(subsystems, feeds.New("airnow", "/airNowStations", stations.FetchStations, logger, metrics))
	} else {
		logger.Info("airnow feed disabled")
	}
	fires := wildfire.NewClient(cfg.WildfireURL, cfg.GeocodeTimeout, logger)
	subsystems = append(subsystems, feeds.New("wildfires", "/wildfires", fires.FetchIncidents, logger, metrics))

	sched := pipeline.New(subsystems, cfg.RefreshInterval, clock, logger, metrics)
	if err := sched.Initialize(ctx); err != nil {
		logger.Error("failed to initialize subsystems", "error", err)
		os.Exit(1)
	}

	// Serve routes only once the first readings and classification are in.
	sched.Prime(ctx)

	srv := httpadapter.NewServer(cfg.HTTPAddr, placesService, logger, sched)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start refresh scheduler.
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := sched.Run(ctx); err != nil {
			logger.Error("scheduler error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	select {
	case <-done:
	case <-shutdownCtx.Done():
		logger.Warn("scheduler did not stop before shutdown timeout")
	}
	if err := placesService.Flush(shutdownCtx); err != nil {
		logger.Error("place cache flush error", "error", err)
	}
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}
	if err := store.Close(); err != nil {
		logger.Error("place cache close error", "error", err)
	}

	logger.Info("shutdown complete")
}

func openStore(ctx context.Context, cfg *config.Config) (persistence.Store, error) {
	if cfg.CacheBackend == config.CacheBackendRedis {
		return persistence.NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, "breathe:")
	}
	return persistence.NewFileStore(cfg.CacheDir)
}
