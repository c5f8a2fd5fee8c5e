package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const DefaultPath = "configs/solver.yaml"

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

type Config struct {
	ListenAddr string `yaml:"listen_addr"`

	Solver struct {
		MaxEpochs  int           `yaml:"max_epochs"`
		StepDelay  time.Duration `yaml:"step_delay"`
		SampleSize int           `yaml:"sample_size"`
		// MaxRuns limita execuções simultâneas no servidor inteiro.
		MaxRuns        int           `yaml:"max_runs"`
		AcquireTimeout time.Duration `yaml:"acquire_timeout"`
	} `yaml:"solver"`

	Poll struct {
		Interval time.Duration `yaml:"interval"`
		// RateEnabled ausente conta como ligado; false desliga o limiter do
		// polling mesmo com rate_rps preenchido.
		RateEnabled *bool         `yaml:"rate_enabled"`
		RateRPS     float64       `yaml:"rate_rps"`
		RateBurst   int           `yaml:"rate_burst"`
		RetryAfter  time.Duration `yaml:"retry_after"`
		AddHeaders  bool          `yaml:"add_ratelimit_headers"`
		IdleTTL     time.Duration `yaml:"limiter_idle_ttl"`
	} `yaml:"poll"`

	Submit struct {
		ConcurrencyMax     int           `yaml:"concurrency_max"`
		ConcurrencyTimeout time.Duration `yaml:"concurrency_timeout"`
	} `yaml:"submit"`

	Session struct {
		Header       string        `yaml:"header"`
		TrustXFF     bool          `yaml:"trust_xff"`
		CookieSecure bool          `yaml:"cookie_secure"`
		CookieMaxAge time.Duration `yaml:"cookie_max_age"`
	} `yaml:"session"`

	Jobs struct {
		Backend   string        `yaml:"backend"`
		Prefix    string        `yaml:"prefix"`
		TTL       time.Duration `yaml:"ttl"`
		SweepCron string        `yaml:"sweep_cron"`
	} `yaml:"jobs"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Stats struct {
		Enabled       bool          `yaml:"enabled"`
		Prefix        string        `yaml:"prefix"`
		TTL           time.Duration `yaml:"ttl"`
		Bucket        string        `yaml:"bucket"`
		TrackSessions bool          `yaml:"track_sessions"`
	} `yaml:"stats"`

	History struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"history"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Load lê o YAML em path e aplica ambiente e defaults. Arquivo ausente não é erro.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

// PathFromEnv devolve CONFIG_PATH ou DefaultPath.
func PathFromEnv() string {
	return getenvDefault("CONFIG_PATH", DefaultPath)
}

func (c *Config) applyEnv() {
	c.ListenAddr = getenvDefault("LISTEN_ADDR", c.ListenAddr)

	c.Solver.MaxEpochs = getenvIntDefault("SOLVER_MAX_EPOCHS", c.Solver.MaxEpochs)
	c.Solver.StepDelay = getenvDurationDefault("SOLVER_STEP_DELAY", c.Solver.StepDelay)
	c.Solver.MaxRuns = getenvIntDefault("SOLVER_MAX_RUNS", c.Solver.MaxRuns)

	c.Poll.Interval = getenvDurationDefault("POLL_INTERVAL", c.Poll.Interval)
	c.Poll.RateEnabled = getenvBoolPtr("RATE_ENABLED", c.Poll.RateEnabled)
	c.Poll.RateRPS = getenvFloatDefault("RATE_RPS", c.Poll.RateRPS)
	c.Poll.RateBurst = getenvIntDefault("RATE_BURST", c.Poll.RateBurst)
	c.Poll.RetryAfter = getenvDurationDefault("RETRY_AFTER", c.Poll.RetryAfter)
	c.Poll.AddHeaders = getenvBoolDefault("ADD_RATELIMIT_HEADERS", c.Poll.AddHeaders)

	c.Submit.ConcurrencyMax = getenvIntDefault("CONCURRENCY_MAX", c.Submit.ConcurrencyMax)
	c.Submit.ConcurrencyTimeout = getenvDurationDefault("CONCURRENCY_TIMEOUT", c.Submit.ConcurrencyTimeout)

	c.Session.Header = getenvDefault("SESSION_HEADER", c.Session.Header)
	c.Session.TrustXFF = getenvBoolDefault("TRUST_XFF", c.Session.TrustXFF)
	c.Session.CookieSecure = getenvBoolDefault("COOKIE_SECURE", c.Session.CookieSecure)

	c.Jobs.Backend = getenvDefault("JOBS_BACKEND", c.Jobs.Backend)
	c.Jobs.TTL = getenvDurationDefault("JOBS_TTL", c.Jobs.TTL)

	c.Redis.Addr = getenvDefault("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getenvDefault("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getenvIntDefault("REDIS_DB", c.Redis.DB)

	c.Stats.Enabled = getenvBoolDefault("STATS_ENABLED", c.Stats.Enabled)
	c.Stats.TrackSessions = getenvBoolDefault("STATS_TRACK_SESSIONS", c.Stats.TrackSessions)

	c.History.SQLitePath = getenvDefault("SQLITE_PATH", c.History.SQLitePath)
	c.Log.Level = getenvDefault("LOG_LEVEL", c.Log.Level)
}

func (c *Config) applyDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = ":8080"
	}
	if c.Solver.MaxEpochs == 0 {
		c.Solver.MaxEpochs = 500
	}
	if c.Solver.SampleSize == 0 {
		c.Solver.SampleSize = 50
	}
	if c.Solver.MaxRuns == 0 {
		c.Solver.MaxRuns = 8
	}
	if c.Solver.AcquireTimeout == 0 {
		c.Solver.AcquireTimeout = 2 * time.Second
	}
	if c.Poll.Interval == 0 {
		c.Poll.Interval = 1 * time.Second
	}
	if c.Poll.RateEnabled == nil {
		enabled := true
		c.Poll.RateEnabled = &enabled
	}
	if c.Poll.RateRPS == 0 && *c.Poll.RateEnabled {
		c.Poll.RateRPS = 5
	}
	if c.Poll.RateBurst == 0 {
		// com RPS < 1 um burst alto dá a impressão de que o limiter não funciona
		c.Poll.RateBurst = 10
		if c.Poll.RateRPS < 1 {
			c.Poll.RateBurst = 1
		}
	}
	if c.Poll.RetryAfter == 0 {
		c.Poll.RetryAfter = 1 * time.Second
	}
	if c.Poll.IdleTTL == 0 {
		c.Poll.IdleTTL = 10 * time.Minute
	}
	if c.Submit.ConcurrencyMax == 0 {
		c.Submit.ConcurrencyMax = 32
	}
	if c.Session.Header == "" {
		c.Session.Header = "X-Solver-Session"
	}
	if c.Session.CookieMaxAge == 0 {
		c.Session.CookieMaxAge = 24 * time.Hour
	}
	if c.Jobs.Backend == "" {
		c.Jobs.Backend = BackendMemory
	}
	if c.Jobs.Prefix == "" {
		c.Jobs.Prefix = "solver:jobs"
	}
	if c.Jobs.TTL == 0 {
		c.Jobs.TTL = 30 * time.Minute
	}
	if c.Jobs.SweepCron == "" {
		c.Jobs.SweepCron = "@every 1m"
	}
	if c.Stats.Prefix == "" {
		c.Stats.Prefix = "solver:stats"
	}
	if c.Stats.TTL == 0 {
		c.Stats.TTL = 24 * time.Hour
	}
	if c.Stats.Bucket == "" {
		c.Stats.Bucket = "minute"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
}

// UsesRedis informa se algum componente precisa do cliente Redis.
func (c *Config) UsesRedis() bool {
	return c.Jobs.Backend == BackendRedis || c.Stats.Enabled
}

// RateLimitEnabled informa se o polling passa pelo limiter.
func (c *Config) RateLimitEnabled() bool {
	return c.Poll.RateEnabled == nil || *c.Poll.RateEnabled
}

// Validate confere consistência depois de Load.
func (c *Config) Validate() error {
	switch c.Jobs.Backend {
	case BackendMemory, BackendRedis:
	default:
		return fmt.Errorf("jobs.backend must be %q or %q, got %q", BackendMemory, BackendRedis, c.Jobs.Backend)
	}
	if c.UsesRedis() && strings.TrimSpace(c.Redis.Addr) == "" {
		return errors.New("redis.addr is required when jobs.backend=redis or stats.enabled=true")
	}
	if c.Poll.RateRPS < 0 {
		return errors.New("poll.rate_rps must be >= 0")
	}
	if c.RateLimitEnabled() && c.Poll.RateRPS == 0 {
		return errors.New("poll.rate_rps must be > 0 when poll.rate_enabled=true; set rate_enabled: false to turn the limiter off")
	}
	if c.Poll.RateBurst <= 0 {
		return errors.New("poll.rate_burst must be > 0")
	}
	if c.Poll.Interval < 0 {
		return errors.New("poll.interval must be >= 0")
	}
	if c.Solver.MaxEpochs <= 0 {
		return errors.New("solver.max_epochs must be > 0")
	}
	if c.Solver.SampleSize < 2 {
		return errors.New("solver.sample_size must be >= 2")
	}
	if c.Solver.MaxRuns <= 0 {
		return errors.New("solver.max_runs must be > 0")
	}
	if c.Submit.ConcurrencyMax < 0 {
		return errors.New("submit.concurrency_max must be >= 0")
	}
	switch c.Stats.Bucket {
	case "minute", "none":
	default:
		return fmt.Errorf("stats.bucket must be minute or none, got %q", c.Stats.Bucket)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}
	return nil
}
