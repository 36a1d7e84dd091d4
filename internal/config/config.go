package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Cache backends accepted by CACHE_BACKEND.
const (
	CacheBackendFile  = "file"
	CacheBackendRedis = "redis"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Periodic cycle.
	RefreshInterval time.Duration
	CheckpointEvery int

	// Persisted place caches.
	CacheBackend    string
	CacheDir        string
	CacheForceClean bool
	RedisAddr       string
	RedisPassword   string
	RedisDB         int

	// PurpleAir sensor feed.
	PurpleAirAPIKey string
	PurpleAirURL    string

	// Geoapify geocoding configuration.
	GeoapifyAPIKey   string
	GeoapifyURL      string
	GeocodeTimeout   time.Duration
	GeocodeCacheSize int

	// Supplementary feeds.
	AirNowAPIKey string
	AirNowURL    string
	WildfireURL  string

	// Discovered-place events. Publishing is disabled when no brokers are set.
	KafkaBrokers     []string
	KafkaPlacesTopic string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	refreshInterval, err := parsePositiveDuration("REFRESH_INTERVAL", "10m")
	if err != nil {
		return nil, err
	}

	geocodeTimeout, err := parsePositiveDuration("GEOCODE_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	checkpointEvery, err := parsePositiveInt("CHECKPOINT_EVERY", 10)
	if err != nil {
		return nil, err
	}

	redisDB, err := strconv.Atoi(sharedcfg.EnvOrDefault("REDIS_DB", "0"))
	if err != nil || redisDB < 0 {
		return nil, errors.New("invalid REDIS_DB")
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		RefreshInterval: refreshInterval,
		CheckpointEvery: checkpointEvery,

		CacheBackend:    strings.ToLower(sharedcfg.EnvOrDefault("CACHE_BACKEND", CacheBackendFile)),
		CacheDir:        sharedcfg.EnvOrDefault("CACHE_DIR", "./data"),
		CacheForceClean: os.Getenv("CACHE_FORCE_CLEAN") == "true",
		RedisAddr:       sharedcfg.EnvOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		RedisDB:         redisDB,

		PurpleAirAPIKey: os.Getenv("PURPLEAIR_API_KEY"),
		PurpleAirURL:    sharedcfg.EnvOrDefault("PURPLEAIR_URL", "https://api.purpleair.com/v1"),

		GeoapifyAPIKey:   os.Getenv("GEOAPIFY_API_KEY"),
		GeoapifyURL:      sharedcfg.EnvOrDefault("GEOAPIFY_URL", "https://api.geoapify.com"),
		GeocodeTimeout:   geocodeTimeout,
		GeocodeCacheSize: parseGeocodeCacheSize(),

		AirNowAPIKey: os.Getenv("AIRNOW_API_KEY"),
		AirNowURL:    sharedcfg.EnvOrDefault("AIRNOW_URL", "https://www.airnowapi.org"),
		WildfireURL: sharedcfg.EnvOrDefault("WILDFIRE_URL",
			"https://services3.arcgis.com/T4QMspbfLg3qTGWY/arcgis/rest/services/WFIGS_Incident_Locations_Current/FeatureServer/0/query"),

		KafkaBrokers:     sharedcfg.ParseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaPlacesTopic: sharedcfg.EnvOrDefault("KAFKA_PLACES_TOPIC", "discovered-places"),
	}

	switch cfg.CacheBackend {
	case CacheBackendFile:
		if cfg.CacheDir == "" {
			return nil, errors.New("CACHE_DIR is required for the file cache backend")
		}
	case CacheBackendRedis:
		if cfg.RedisAddr == "" {
			return nil, errors.New("REDIS_ADDR is required for the redis cache backend")
		}
	default:
		return nil, fmt.Errorf("invalid CACHE_BACKEND %q", cfg.CacheBackend)
	}
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaPlacesTopic == "" {
		return nil, errors.New("KAFKA_PLACES_TOPIC is required when KAFKA_BROKERS is set")
	}

	return cfg, nil
}

// GeocodingEnabled reports whether a Geoapify key is configured. Without one,
// sensors that match no cached boundary stay unassigned.
func (c *Config) GeocodingEnabled() bool {
	return c.GeoapifyAPIKey != ""
}

// PublishingEnabled reports whether discovered places are sent to Kafka.
func (c *Config) PublishingEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}

func parseGeocodeCacheSize() int {
	if s := os.Getenv("GEOCODE_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}
