package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Config represents the application configuration
type Config struct {
	Environment string         `toml:"environment"` // "development" or "production"
	Server      ServerConfig   `toml:"server"`
	Logging     LoggingConfig  `toml:"logging"`
	Backend     BackendConfig  `toml:"backend"`
	Research    ResearchConfig `toml:"research"`
	Jobs        JobsConfig     `toml:"jobs"`
	Cache       CacheConfig    `toml:"cache"`
	Universe    UniverseConfig `toml:"universe"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
	Dir    string   `toml:"dir"`    // Log and crash file directory; empty means "logs" beside the executable
}

// BackendConfig locates the analysis collaborators
type BackendConfig struct {
	BaseURL   string `toml:"base_url"`   // Required for research jobs; empty disables submission
	ReportURL string `toml:"report_url"` // Report service; defaults to base_url
	Timeout   string `toml:"timeout"`    // e.g., "60s" - per-request HTTP timeout
	RateLimit int    `toml:"rate_limit"` // Requests per second, 0 disables limiting
}

// ResearchConfig contains pipeline defaults
type ResearchConfig struct {
	DefaultLookbackDays int `toml:"default_lookback_days"`
	DefaultTopN         int `toml:"default_top_n"`
	ReportConcurrency   int `toml:"report_concurrency"` // Parallel per-symbol report fetches
}

// JobsConfig bounds the in-memory job registry
type JobsConfig struct {
	TTL           string `toml:"ttl"`            // e.g., "1h" - how long terminal jobs are kept
	MaxJobs       int    `toml:"max_jobs"`       // Soft cap; in-flight jobs are never evicted
	SweepSchedule string `toml:"sweep_schedule"` // Cron schedule for the TTL sweep
}

// CacheConfig contains configuration for the collaborator response cache
type CacheConfig struct {
	Enabled       bool   `toml:"enabled"`
	Path          string `toml:"path"`           // Badger directory; empty keeps the cache in memory
	TTL           string `toml:"ttl"`            // e.g., "6h"
	PurgeSchedule string `toml:"purge_schedule"` // Cron schedule for expired-entry purge
}

// UniverseConfig points at an optional static sector universe file (YAML or JSON)
type UniverseConfig struct {
	File string `toml:"file"`
}

// NewDefaultConfig creates a configuration with default values
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout", "file"},
		},
		Backend: BackendConfig{
			Timeout:   "60s",
			RateLimit: 10,
		},
		Research: ResearchConfig{
			DefaultLookbackDays: 180,
			DefaultTopN:         10,
			ReportConcurrency:   4,
		},
		Jobs: JobsConfig{
			TTL:           "1h",
			MaxJobs:       500,
			SweepSchedule: "@every 1m",
		},
		Cache: CacheConfig{
			Enabled:       true,
			Path:          "",
			TTL:           "6h",
			PurgeSchedule: "@every 30m",
		},
	}
}

// LoadFromFiles loads configuration from multiple files with priority: default -> file1 -> file2 -> ... -> env
// Later files override earlier files. CLI flags are applied afterwards with ApplyFlagOverrides.
func LoadFromFiles(paths ...string) (*Config, error) {
	// Start with defaults
	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier files)
	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	// Apply environment variables (overrides all file configs)
	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies STOCKSCOPE_* environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("STOCKSCOPE_ENV"); env != "" {
		config.Environment = env
	}

	// Server configuration
	if port := os.Getenv("STOCKSCOPE_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("STOCKSCOPE_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Logging configuration
	if level := os.Getenv("STOCKSCOPE_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if dir := os.Getenv("STOCKSCOPE_LOG_DIR"); dir != "" {
		config.Logging.Dir = dir
	}
	if output := os.Getenv("STOCKSCOPE_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	// Backend configuration
	if baseURL := os.Getenv("STOCKSCOPE_BACKEND_URL"); baseURL != "" {
		config.Backend.BaseURL = baseURL
	}
	if reportURL := os.Getenv("STOCKSCOPE_REPORT_URL"); reportURL != "" {
		config.Backend.ReportURL = reportURL
	}
	if timeout := os.Getenv("STOCKSCOPE_BACKEND_TIMEOUT"); timeout != "" {
		config.Backend.Timeout = timeout
	}
	if rateLimit := os.Getenv("STOCKSCOPE_BACKEND_RATE_LIMIT"); rateLimit != "" {
		if r, err := strconv.Atoi(rateLimit); err == nil {
			config.Backend.RateLimit = r
		}
	}

	// Research configuration
	if concurrency := os.Getenv("STOCKSCOPE_REPORT_CONCURRENCY"); concurrency != "" {
		if c, err := strconv.Atoi(concurrency); err == nil {
			config.Research.ReportConcurrency = c
		}
	}

	// Jobs configuration
	if ttl := os.Getenv("STOCKSCOPE_JOBS_TTL"); ttl != "" {
		config.Jobs.TTL = ttl
	}
	if maxJobs := os.Getenv("STOCKSCOPE_JOBS_MAX"); maxJobs != "" {
		if m, err := strconv.Atoi(maxJobs); err == nil {
			config.Jobs.MaxJobs = m
		}
	}

	// Cache configuration
	if enabled := os.Getenv("STOCKSCOPE_CACHE_ENABLED"); enabled != "" {
		if e, err := strconv.ParseBool(enabled); err == nil {
			config.Cache.Enabled = e
		}
	}
	if path := os.Getenv("STOCKSCOPE_CACHE_PATH"); path != "" {
		config.Cache.Path = path
	}
	if ttl := os.Getenv("STOCKSCOPE_CACHE_TTL"); ttl != "" {
		config.Cache.TTL = ttl
	}

	// Universe configuration
	if file := os.Getenv("STOCKSCOPE_UNIVERSE_FILE"); file != "" {
		config.Universe.File = file
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string) {
	// Command-line flags have highest priority
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// Validate checks durations, bounds and cron schedules
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	for _, output := range c.Logging.Output {
		switch output {
		case "stdout", "console", "file":
		default:
			return fmt.Errorf("logging.output: unknown writer %q", output)
		}
	}
	if _, err := c.Backend.TimeoutDuration(); err != nil {
		return fmt.Errorf("backend.timeout: %w", err)
	}
	if _, err := c.Jobs.TTLDuration(); err != nil {
		return fmt.Errorf("jobs.ttl: %w", err)
	}
	if _, err := c.Cache.TTLDuration(); err != nil {
		return fmt.Errorf("cache.ttl: %w", err)
	}
	if c.Jobs.MaxJobs < 0 {
		return fmt.Errorf("jobs.max_jobs must not be negative: %d", c.Jobs.MaxJobs)
	}
	if c.Research.ReportConcurrency < 0 {
		return fmt.Errorf("research.report_concurrency must not be negative: %d", c.Research.ReportConcurrency)
	}
	if err := ValidateSchedule(c.Jobs.SweepSchedule); err != nil {
		return fmt.Errorf("jobs.sweep_schedule: %w", err)
	}
	if c.Cache.Enabled {
		if err := ValidateSchedule(c.Cache.PurgeSchedule); err != nil {
			return fmt.Errorf("cache.purge_schedule: %w", err)
		}
	}
	return nil
}

// ValidateSchedule validates a standard five-field cron expression or an @descriptor
func ValidateSchedule(schedule string) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", schedule, err)
	}
	return nil
}

// TimeoutDuration parses Timeout; empty means zero (use the client default)
func (b BackendConfig) TimeoutDuration() (time.Duration, error) {
	return parseDuration(b.Timeout)
}

// TTLDuration parses TTL; empty means zero (use the store default)
func (j JobsConfig) TTLDuration() (time.Duration, error) {
	return parseDuration(j.TTL)
}

// TTLDuration parses TTL; empty means zero (entries never expire)
func (c CacheConfig) TTLDuration() (time.Duration, error) {
	return parseDuration(c.TTL)
}

func parseDuration(s string) (time.Duration, error) {
	if strings.TrimSpace(s) == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %q", s)
	}
	return d, nil
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
