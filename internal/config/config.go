// Package config defines the service configuration and how it is loaded.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/aurameter/internal/database"
	apperrors "github.com/ZanzyTHEbar/aurameter/internal/errors"
)

// Config contains process configuration.
type Config struct {
	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// GinMode is debug, release or test.
	GinMode string `koanf:"gin_mode"`

	// DBBackend selects the driver: sqlite3, sqlite, postgres or mysql.
	DBBackend string `koanf:"db_backend"`
	// DBDSN is required for postgres and mysql. SQLite defaults to DataDir.
	DBDSN   string `koanf:"db_dsn"`
	DataDir string `koanf:"data_dir"`

	// RedisAddr enables the shared cache and distributed rate limiting.
	RedisAddr     string `koanf:"redis_addr"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db"`

	GitHubToken  string `koanf:"github_token"`
	GitHubAPIURL string `koanf:"github_api_url"`

	SnapshotTTL    time.Duration `koanf:"snapshot_ttl"`
	LeaderboardTTL time.Duration `koanf:"leaderboard_ttl"`

	// IPLimitPerMin caps API requests per client IP.
	IPLimitPerMin int `koanf:"ip_limit_per_min"`

	CollectDelayMinMS int `koanf:"collect_delay_min_ms"`
	CollectDelayMaxMS int `koanf:"collect_delay_max_ms"`
	CollectBackoffSec int `koanf:"collect_backoff_sec"`

	CORSOrigins     []string `koanf:"cors_origins"`
	EnableProfiling bool     `koanf:"enable_profiling"`
}

// New returns the defaults.
func New() *Config {
	return &Config{
		Addr:              ":8080",
		LogLevel:          "info",
		GinMode:           "release",
		DBBackend:         string(database.BackendSQLite3),
		DataDir:           "./data",
		GitHubAPIURL:      "https://api.github.com",
		SnapshotTTL:       5 * time.Minute,
		LeaderboardTTL:    5 * time.Minute,
		IPLimitPerMin:     60,
		CollectDelayMinMS: 100,
		CollectDelayMaxMS: 150,
		CollectBackoffSec: 60,
		CORSOrigins:       []string{"http://localhost:3000"},
	}
}

// Validate rejects configurations the service cannot start with.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Addr) == "" {
		problems = append(problems, "addr must not be empty")
	}
	if _, err := database.ParseBackend(c.DBBackend); err != nil {
		problems = append(problems, err.Error())
	}
	if c.CollectDelayMinMS < 0 || c.CollectDelayMinMS > c.CollectDelayMaxMS {
		problems = append(problems, fmt.Sprintf("collect delay range [%d, %d] ms is invalid", c.CollectDelayMinMS, c.CollectDelayMaxMS))
	}
	if c.IPLimitPerMin < 0 {
		problems = append(problems, "ip_limit_per_min must not be negative")
	}

	if len(problems) > 0 {
		return apperrors.NewConfigurationError(strings.Join(problems, "; "), ErrInvalidConfig)
	}
	return nil
}

// Backend returns the parsed database backend. Call after Validate.
func (c *Config) Backend() database.Backend {
	b, _ := database.ParseBackend(c.DBBackend)
	return b
}

// CollectDelays returns the collector pacing bounds and rate-limit backoff.
func (c *Config) CollectDelays() (min, max, backoff time.Duration) {
	return time.Duration(c.CollectDelayMinMS) * time.Millisecond,
		time.Duration(c.CollectDelayMaxMS) * time.Millisecond,
		time.Duration(c.CollectBackoffSec) * time.Second
}
