package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
)

// Radar archive sources.
const (
	SourceS3  = "s3"
	SourceDir = "dir"
)

// Cache backends.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string // ops server: health and metrics
	APIAddr         string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Radar archive.
	RadarSource   string
	RadarBucket   string
	RadarRegion   string
	RadarEndpoint string
	RadarDir      string
	RadarTimeout  time.Duration

	// Watcher.
	WatchStations  []string
	WatchInterval  time.Duration
	StationsFile   string
	PrefetchSweeps int

	// Cache.
	CacheBackend       string
	CacheMaxEntries    int
	CacheSweepInterval time.Duration
	RedisAddr          string
	RedisDB            int

	// Kafka scan notifications.
	KafkaEnabled     bool
	KafkaBrokers     []string
	KafkaNotifyTopic string

	// NWS alerts.
	AlertsBaseURL   string
	AlertsUserAgent string
	AlertsTimeout   time.Duration

	GeoJSONDir         string
	CORSAllowedOrigins []string
}

// LoadDotEnv loads variables from path into the environment without
// overriding ones already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err != nil && errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}
	radarTimeout, err := parseDuration("RADAR_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}
	watchInterval, err := parseDuration("WATCH_INTERVAL", "1s")
	if err != nil {
		return nil, err
	}
	sweepInterval, err := parseDuration("CACHE_SWEEP_INTERVAL", "1m")
	if err != nil {
		return nil, err
	}
	alertsTimeout, err := parseDuration("ALERTS_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	prefetch, err := parseInt("PREFETCH_SWEEPS", 7, 0)
	if err != nil {
		return nil, err
	}
	maxEntries, err := parseInt("CACHE_MAX_ENTRIES", 2000, 1)
	if err != nil {
		return nil, err
	}
	redisDB, err := parseInt("REDIS_DB", 0, 0)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		APIAddr:         sharedcfg.EnvOrDefault("API_ADDR", ":5000"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		RadarSource:   strings.ToLower(sharedcfg.EnvOrDefault("RADAR_SOURCE", SourceS3)),
		RadarBucket:   sharedcfg.EnvOrDefault("RADAR_BUCKET", "noaa-nexrad-level2"),
		RadarRegion:   sharedcfg.EnvOrDefault("RADAR_REGION", "us-east-1"),
		RadarEndpoint: os.Getenv("RADAR_ENDPOINT"),
		RadarDir:      sharedcfg.EnvOrDefault("RADAR_DIR", "./data/radar"),
		RadarTimeout:  radarTimeout,

		WatchStations:  parseList(sharedcfg.EnvOrDefault("WATCH_STATIONS", "KTLX"), true),
		WatchInterval:  watchInterval,
		StationsFile:   os.Getenv("STATIONS_FILE"),
		PrefetchSweeps: prefetch,

		CacheBackend:       strings.ToLower(sharedcfg.EnvOrDefault("CACHE_BACKEND", CacheMemory)),
		CacheMaxEntries:    maxEntries,
		CacheSweepInterval: sweepInterval,
		RedisAddr:          sharedcfg.EnvOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisDB:            redisDB,

		KafkaEnabled:     os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers:     sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaNotifyTopic: sharedcfg.EnvOrDefault("KAFKA_NOTIFY_TOPIC", "radar-scans"),

		AlertsBaseURL:   sharedcfg.EnvOrDefault("ALERTS_BASE_URL", "https://api.weather.gov"),
		AlertsUserAgent: sharedcfg.EnvOrDefault("ALERTS_USER_AGENT", "weather-dashboard"),
		AlertsTimeout:   alertsTimeout,

		GeoJSONDir:         sharedcfg.EnvOrDefault("GEOJSON_DIR", "./geojson"),
		CORSAllowedOrigins: parseList(os.Getenv("CORS_ALLOWED_ORIGINS"), false),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.RadarSource {
	case SourceS3:
		if c.RadarBucket == "" {
			return errors.New("RADAR_BUCKET is required")
		}
	case SourceDir:
		if c.RadarDir == "" {
			return errors.New("RADAR_DIR is required when RADAR_SOURCE=dir")
		}
	default:
		return fmt.Errorf("invalid RADAR_SOURCE %q: want %s or %s", c.RadarSource, SourceS3, SourceDir)
	}

	switch c.CacheBackend {
	case CacheMemory, CacheRedis:
	default:
		return fmt.Errorf("invalid CACHE_BACKEND %q: want %s or %s", c.CacheBackend, CacheMemory, CacheRedis)
	}
	if c.CacheBackend == CacheRedis && c.RedisAddr == "" {
		return errors.New("REDIS_ADDR is required when CACHE_BACKEND=redis")
	}

	if c.KafkaEnabled {
		if len(c.KafkaBrokers) == 0 {
			return errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED=true")
		}
		if c.KafkaNotifyTopic == "" {
			return errors.New("KAFKA_NOTIFY_TOPIC is required when KAFKA_ENABLED=true")
		}
	}
	return nil
}

func parseDuration(name, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(name, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return d, nil
}

func parseInt(name string, def, minimum int) (int, error) {
	s := os.Getenv(name)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < minimum {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return n, nil
}

// parseList splits a comma-separated value, dropping empty items.
func parseList(s string, upper bool) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if upper {
			item = strings.ToUpper(item)
		}
		out = append(out, item)
	}
	return out
}
