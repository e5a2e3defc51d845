package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config keeps runtime settings for the dashboard server.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Backend   BackendConfig   `yaml:"backend"`
	Session   SessionConfig   `yaml:"session"`
	Cache     CacheConfig     `yaml:"cache"`
	Collector CollectorConfig `yaml:"collector"`
	Store     StoreConfig     `yaml:"store"`
	Display   DisplayConfig   `yaml:"display"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	TemplatesDir   string   `yaml:"templates_dir"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	RatePerSecond  int      `yaml:"rate_per_second"`
	RateBurst      int      `yaml:"rate_burst"`
}

type BackendConfig struct {
	// URL is the base of the performance API; empty means this server.
	URL       string        `yaml:"url"`
	CSRFToken string        `yaml:"csrf_token"`
	Timeout   time.Duration `yaml:"timeout"`
	Embedded  bool          `yaml:"embedded"`
}

type SessionConfig struct {
	Secret string        `yaml:"secret"`
	TTL    time.Duration `yaml:"ttl"`
}

type CacheConfig struct {
	TTL           time.Duration `yaml:"ttl"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
}

type CollectorConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Interval     time.Duration `yaml:"interval"`
	Retention    time.Duration `yaml:"retention"`
	DeviceID     string        `yaml:"device_id"`
	DeviceName   string        `yaml:"device_name"`
	Branch       string        `yaml:"branch"`
	LatencyProbe string        `yaml:"latency_probe"`
}

type StoreConfig struct {
	// MySQLDSN selects the gorm store; empty keeps stats in memory.
	MySQLDSN string `yaml:"mysql_dsn"`
}

type DisplayConfig struct {
	Timezone string `yaml:"timezone"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Default returns the built-in settings.
func Default() Config {
	hostname, err := os.Hostname()
	if err != nil || hostname == "" {
		hostname = "localhost"
	}
	return Config{
		Server: ServerConfig{
			Addr:          "localhost:8080",
			TemplatesDir:  "./web/templates",
			RatePerSecond: 100,
			RateBurst:     200,
		},
		Backend: BackendConfig{
			Timeout:  10 * time.Second,
			Embedded: true,
		},
		Session: SessionConfig{
			TTL: 12 * time.Hour,
		},
		Cache: CacheConfig{
			TTL: 30 * time.Minute,
		},
		Collector: CollectorConfig{
			Enabled:      true,
			Interval:     time.Minute,
			Retention:    30 * 24 * time.Hour,
			DeviceID:     "local",
			DeviceName:   hostname,
			Branch:       "local",
			LatencyProbe: "1.1.1.1:53",
		},
		Display: DisplayConfig{
			Timezone: "Local",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads path (a missing file keeps defaults), applies SIGNALSYNC_*
// environment overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return Config{}, fmt.Errorf("read %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Server.Addr = getEnv("SIGNALSYNC_ADDR", cfg.Server.Addr)
	cfg.Server.TemplatesDir = getEnv("SIGNALSYNC_TEMPLATES_DIR", cfg.Server.TemplatesDir)
	if origins := os.Getenv("SIGNALSYNC_ALLOWED_ORIGINS"); origins != "" {
		cfg.Server.AllowedOrigins = strings.Split(origins, ",")
	}
	cfg.Server.RatePerSecond = getEnvInt("SIGNALSYNC_RATE_PER_SECOND", cfg.Server.RatePerSecond)
	cfg.Server.RateBurst = getEnvInt("SIGNALSYNC_RATE_BURST", cfg.Server.RateBurst)

	cfg.Backend.URL = getEnv("SIGNALSYNC_BACKEND_URL", cfg.Backend.URL)
	cfg.Backend.CSRFToken = getEnv("SIGNALSYNC_BACKEND_CSRF_TOKEN", cfg.Backend.CSRFToken)
	cfg.Backend.Timeout = getEnvDuration("SIGNALSYNC_BACKEND_TIMEOUT", cfg.Backend.Timeout)
	cfg.Backend.Embedded = getEnvBool("SIGNALSYNC_BACKEND_EMBEDDED", cfg.Backend.Embedded)

	cfg.Session.Secret = getEnv("SIGNALSYNC_SESSION_SECRET", cfg.Session.Secret)
	cfg.Session.TTL = getEnvDuration("SIGNALSYNC_SESSION_TTL", cfg.Session.TTL)

	cfg.Cache.TTL = getEnvDuration("SIGNALSYNC_CACHE_TTL", cfg.Cache.TTL)
	cfg.Cache.RedisAddr = getEnv("SIGNALSYNC_REDIS_ADDR", cfg.Cache.RedisAddr)
	cfg.Cache.RedisPassword = getEnv("SIGNALSYNC_REDIS_PASSWORD", cfg.Cache.RedisPassword)
	cfg.Cache.RedisDB = getEnvInt("SIGNALSYNC_REDIS_DB", cfg.Cache.RedisDB)

	cfg.Collector.Enabled = getEnvBool("SIGNALSYNC_COLLECTOR_ENABLED", cfg.Collector.Enabled)
	cfg.Collector.Interval = getEnvDuration("SIGNALSYNC_COLLECTOR_INTERVAL", cfg.Collector.Interval)
	cfg.Collector.Retention = getEnvDuration("SIGNALSYNC_COLLECTOR_RETENTION", cfg.Collector.Retention)
	cfg.Collector.LatencyProbe = getEnv("SIGNALSYNC_LATENCY_PROBE", cfg.Collector.LatencyProbe)

	cfg.Store.MySQLDSN = getEnv("SIGNALSYNC_MYSQL_DSN", cfg.Store.MySQLDSN)
	cfg.Display.Timezone = getEnv("SIGNALSYNC_TIMEZONE", cfg.Display.Timezone)
	cfg.Logging.Level = getEnv("LOG_LEVEL", cfg.Logging.Level)
}

// Validate checks the settings for values the server cannot run with.
func (c Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server addr must not be empty")
	}
	if c.Server.RatePerSecond <= 0 || c.Server.RateBurst <= 0 {
		return fmt.Errorf("rate limits must be positive")
	}
	if c.Backend.Timeout <= 0 {
		return fmt.Errorf("backend timeout must be positive")
	}
	if c.Backend.URL == "" && !c.Backend.Embedded {
		return fmt.Errorf("backend url is required when the embedded backend is disabled")
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("session ttl must be positive")
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache ttl must be positive")
	}
	if c.Collector.Enabled {
		if c.Collector.Interval <= 0 {
			return fmt.Errorf("collector interval must be positive")
		}
		if c.Collector.DeviceID == "" {
			return fmt.Errorf("collector device id must not be empty")
		}
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("display timezone: %w", err)
	}
	return nil
}

// Location resolves the display timezone.
func (c Config) Location() (*time.Location, error) {
	if c.Display.Timezone == "" || c.Display.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Display.Timezone)
}

func getEnv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return parsed
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return parsed
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	switch v {
	case "1", "true", "TRUE", "yes", "YES", "on", "ON":
		return true
	case "0", "false", "FALSE", "no", "NO", "off", "OFF":
		return false
	default:
		return def
	}
}
