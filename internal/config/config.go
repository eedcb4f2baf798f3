package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

func init() {
	// Load .env file if it exists (silent fail if not)
	_ = godotenv.Load()
}

// Config holds all agent configuration loaded from environment variables.
type Config struct {
	Server   ServerConfig
	App      AppConfig
	Store    StoreConfig
	Cache    CacheConfig
	Upstream UpstreamConfig
	Sync     SyncConfig
	Edge     EdgeConfig
}

// ServerConfig holds HTTP server settings for the local gateway.
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"127.0.0.1"`
	Port            int           `envconfig:"SERVER_PORT" default:"8765"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string `envconfig:"APP_NAME" default:"norko-pos-edge"`
	Environment string `envconfig:"APP_ENV" default:"development"`
	Debug       bool   `envconfig:"APP_DEBUG" default:"false"`
	Version     string `envconfig:"APP_VERSION" default:"1.2.1"`
}

// StoreConfig selects and configures the local store backend.
type StoreConfig struct {
	Type string `envconfig:"STORE_TYPE" default:"sqlite"` // sqlite or mysql

	SQLitePath string `envconfig:"STORE_SQLITE_PATH" default:"./data/pos-edge.db"`

	MySQLHost     string `envconfig:"STORE_MYSQL_HOST" default:"localhost"`
	MySQLPort     int    `envconfig:"STORE_MYSQL_PORT" default:"3306"`
	MySQLName     string `envconfig:"STORE_MYSQL_NAME" default:"pos_edge"`
	MySQLUser     string `envconfig:"STORE_MYSQL_USER" default:"root"`
	MySQLPassword string `envconfig:"STORE_MYSQL_PASS" default:""`
}

// CacheConfig holds response-cache settings.
type CacheConfig struct {
	Type string        `envconfig:"CACHE_TYPE" default:"memory"` // memory or redis
	TTL  time.Duration `envconfig:"CACHE_TTL" default:"0"`       // 0 keeps entries until retired

	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
}

// UpstreamConfig points at the POS server being mirrored.
type UpstreamConfig struct {
	BaseURL    string        `envconfig:"UPSTREAM_BASE_URL" default:"http://localhost:5000"`
	Timeout    time.Duration `envconfig:"UPSTREAM_TIMEOUT" default:"15s"`
	HealthPath string        `envconfig:"UPSTREAM_HEALTH_PATH" default:"/health"`
}

// SyncConfig tunes the background synchronization engine.
type SyncConfig struct {
	Interval      time.Duration `envconfig:"SYNC_INTERVAL" default:"5m"`
	SettleDelay   time.Duration `envconfig:"SYNC_SETTLE_DELAY" default:"2s"`
	MaxRetries    int           `envconfig:"SYNC_MAX_RETRIES" default:"3"`
	ProbeInterval time.Duration `envconfig:"SYNC_PROBE_INTERVAL" default:"30s"`
}

// EdgeConfig tunes the caching proxy.
type EdgeConfig struct {
	CacheVersion     string   `envconfig:"EDGE_CACHE_VERSION" default:"v1.2.1"`
	OfflinePagePath  string   `envconfig:"EDGE_OFFLINE_PAGE" default:""`
	NeverCacheRoutes []string `envconfig:"EDGE_NEVER_CACHE_ROUTES" default:""`
}

// Address returns the server address in host:port format.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RedisAddress returns the Redis address in host:port format.
func (c *CacheConfig) RedisAddress() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// MySQLDSN returns the MySQL data source name.
func (s *StoreConfig) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		s.MySQLUser, s.MySQLPassword, s.MySQLHost, s.MySQLPort, s.MySQLName)
}

// HealthURL returns the absolute URL of the upstream health endpoint.
func (u *UpstreamConfig) HealthURL() string {
	return u.BaseURL + u.HealthPath
}

// IsDevelopment returns true if running in development mode.
func (a *AppConfig) IsDevelopment() bool {
	return a.Environment == "development"
}

// IsProduction returns true if running in production mode.
func (a *AppConfig) IsProduction() bool {
	return a.Environment == "production"
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration or panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
