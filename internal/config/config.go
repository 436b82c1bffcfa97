package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Worker    WorkerConfig    `yaml:"worker"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port                int      `yaml:"port"`
	Host                string   `yaml:"host"`
	RateLimitRPS        float64  `yaml:"rate_limit_rps"`
	RateLimitBurst      int      `yaml:"rate_limit_burst"`
	CORSOrigins         []string `yaml:"cors_origins"`
	ReadTimeoutSeconds  int      `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds int      `yaml:"write_timeout_seconds"`
}

// GetHost returns the server host, listening on all interfaces in a container
func (c ServerConfig) GetHost() string {
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
		return "0.0.0.0"
	}
	return c.Host
}

// ReadTimeout returns the read timeout as a duration
func (c ServerConfig) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutSeconds) * time.Second
}

// WriteTimeout returns the write timeout as a duration
func (c ServerConfig) WriteTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutSeconds) * time.Second
}

// DatabaseConfig holds Postgres connection settings
type DatabaseConfig struct {
	URL                    string `yaml:"url"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// ConnMaxLifetime returns the connection lifetime as a duration
func (c DatabaseConfig) ConnMaxLifetime() time.Duration {
	return time.Duration(c.ConnMaxLifetimeMinutes) * time.Minute
}

// RedisConfig holds Redis settings for the timezone cache and worker locks.
// An empty URL disables Redis; the resolver then uses an in-process cache.
type RedisConfig struct {
	URL                  string `yaml:"url"`
	TimezoneCacheTTLMins int    `yaml:"timezone_cache_ttl_minutes"`
	LookupTimeoutMillis  int    `yaml:"lookup_timeout_ms"`
}

// TimezoneCacheTTL returns the timezone cache TTL as a duration
func (c RedisConfig) TimezoneCacheTTL() time.Duration {
	return time.Duration(c.TimezoneCacheTTLMins) * time.Minute
}

// LookupTimeout returns the per-lookup Redis timeout
func (c RedisConfig) LookupTimeout() time.Duration {
	return time.Duration(c.LookupTimeoutMillis) * time.Millisecond
}

// SchedulerConfig holds send-time engine settings
type SchedulerConfig struct {
	ChunkSize     int    `yaml:"chunk_size"`
	Workers       int    `yaml:"workers"`
	Locale        string `yaml:"locale"`
	MaxBatchItems int    `yaml:"max_batch_items"`
}

// WorkerConfig holds the reschedule worker settings
type WorkerConfig struct {
	Enabled           bool   `yaml:"enabled"`
	Cron              string `yaml:"cron"`
	LockTTLSeconds    int    `yaml:"lock_ttl_seconds"`
	CampaignsPerSweep int    `yaml:"campaigns_per_sweep"`
}

// LockTTL returns the per-campaign lock TTL as a duration
func (c WorkerConfig) LockTTL() time.Duration {
	return time.Duration(c.LockTTLSeconds) * time.Second
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level     string `yaml:"level"`
	RedactPII *bool  `yaml:"redact_pii"`
}

// ShouldRedactPII reports whether PII redaction is on. It defaults to true.
func (c LoggingConfig) ShouldRedactPII() bool {
	return c.RedactPII == nil || *c.RedactPII
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.RateLimitRPS == 0 {
		cfg.Server.RateLimitRPS = 50
	}
	if cfg.Server.RateLimitBurst == 0 {
		cfg.Server.RateLimitBurst = 100
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = []string{"*"}
	}
	if cfg.Server.ReadTimeoutSeconds == 0 {
		cfg.Server.ReadTimeoutSeconds = 30
	}
	if cfg.Server.WriteTimeoutSeconds == 0 {
		cfg.Server.WriteTimeoutSeconds = 60
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 20
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetimeMinutes == 0 {
		cfg.Database.ConnMaxLifetimeMinutes = 30
	}
	if cfg.Redis.TimezoneCacheTTLMins == 0 {
		cfg.Redis.TimezoneCacheTTLMins = 24 * 60
	}
	if cfg.Redis.LookupTimeoutMillis == 0 {
		cfg.Redis.LookupTimeoutMillis = 50
	}
	if cfg.Scheduler.ChunkSize == 0 {
		cfg.Scheduler.ChunkSize = 50
	}
	if cfg.Scheduler.Workers == 0 {
		cfg.Scheduler.Workers = 4
	}
	if cfg.Scheduler.Locale == "" {
		cfg.Scheduler.Locale = "en-US"
	}
	if cfg.Scheduler.MaxBatchItems == 0 {
		cfg.Scheduler.MaxBatchItems = 10000
	}
	if cfg.Worker.Cron == "" {
		cfg.Worker.Cron = "@every 1m"
	}
	if cfg.Worker.LockTTLSeconds == 0 {
		cfg.Worker.LockTTLSeconds = 300
	}
	if cfg.Worker.CampaignsPerSweep == 0 {
		cfg.Worker.CampaignsPerSweep = 25
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars when deployed.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if n, ok := envInt("SERVER_PORT"); ok {
		cfg.Server.Port = n
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if n, ok := envInt("SCHEDULER_CHUNK_SIZE"); ok && n > 0 {
		cfg.Scheduler.ChunkSize = n
	}
	if n, ok := envInt("SCHEDULER_WORKERS"); ok && n > 0 {
		cfg.Scheduler.Workers = n
	}
	if v := os.Getenv("RESCHEDULE_CRON"); v != "" {
		cfg.Worker.Cron = v
	}

	return cfg, nil
}

// envInt reads an integer env var; unset or malformed values are ignored.
func envInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}
