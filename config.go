package portalAuth

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/MrEthical07/portalAuth/route"
)

// Config is the full Manager configuration. Start from [DefaultConfig] or
// [LoadConfig].
type Config struct {
	API      APIConfig     `yaml:"api"`
	Store    StoreConfig   `yaml:"store"`
	Routes   route.Homes   `yaml:"routes"`
	Audit    AuditConfig   `yaml:"audit"`
	Metrics  MetricsConfig `yaml:"metrics"`
	LogLevel string        `yaml:"log_level"`
}

/*
====================================
API CONFIG
====================================
*/

// APIConfig locates the remote authority. A zero Timeout leaves request
// lifetime to the caller's context.
type APIConfig struct {
	BaseURL   string        `yaml:"base_url"`
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
}

/*
====================================
STORE CONFIG
====================================
*/

const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
)

// StoreConfig selects the persisted session backend.
type StoreConfig struct {
	Backend       string `yaml:"backend"` // "memory" (default), "file", "redis"
	FilePath      string `yaml:"file_path"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	RedisPrefix   string `yaml:"redis_prefix"`
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

type AuditConfig struct {
	Enabled    bool `yaml:"enabled"`
	BufferSize int  `yaml:"buffer_size"`
	DropIfFull bool `yaml:"drop_if_full"`
}

type MetricsConfig struct {
	Enabled                 bool `yaml:"enabled"`
	EnableLatencyHistograms bool `yaml:"enable_latency_histograms"`
}

// DefaultConfig returns an in-memory configuration with the standard
// portal routes. API.BaseURL must still be set unless a gateway is injected.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			UserAgent: "portalAuth",
		},
		Store: StoreConfig{
			Backend:     StoreMemory,
			RedisPrefix: "portal",
		},
		Routes: route.DefaultHomes(),
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
		LogLevel: "info",
	}
}

// Validate checks internal consistency. It does not require API.BaseURL;
// Build does, when no gateway was injected.
func (c *Config) Validate() error {
	if c.API.Timeout < 0 {
		return errors.New("API Timeout must be >= 0")
	}
	if c.API.BaseURL != "" && !strings.HasPrefix(c.API.BaseURL, "http://") && !strings.HasPrefix(c.API.BaseURL, "https://") {
		return errors.New("API BaseURL must be http or https")
	}

	switch c.Store.Backend {
	case StoreMemory:
	case StoreFile:
		if strings.TrimSpace(c.Store.FilePath) == "" {
			return errors.New("file store requires FilePath")
		}
	case StoreRedis:
		if strings.TrimSpace(c.Store.RedisAddr) == "" {
			return errors.New("redis store requires RedisAddr")
		}
		if c.Store.RedisDB < 0 {
			return errors.New("Store RedisDB must be >= 0")
		}
	default:
		return fmt.Errorf("unsupported store backend %q", c.Store.Backend)
	}

	if err := c.Routes.Validate(); err != nil {
		return err
	}

	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("latency histograms require metrics to be enabled")
	}

	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	return nil
}

// LoadConfig reads path (YAML, optional) over [DefaultConfig], then applies
// PORTAL_* environment overrides. envFiles are loaded into the environment
// first without overriding variables already set; with none given, a .env
// in the working directory is used when present.
func LoadConfig(path string, envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		if _, err := os.Stat(".env"); err == nil {
			envFiles = []string{".env"}
		}
	}
	if len(envFiles) > 0 {
		if err := godotenv.Load(envFiles...); err != nil {
			return Config{}, fmt.Errorf("load env file: %w", err)
		}
	}

	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config yaml: %w", err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if val := os.Getenv("PORTAL_API_BASE_URL"); val != "" {
		cfg.API.BaseURL = val
	}
	if val := os.Getenv("PORTAL_API_TIMEOUT"); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("PORTAL_API_TIMEOUT: %w", err)
		}
		cfg.API.Timeout = d
	}
	if val := os.Getenv("PORTAL_API_USER_AGENT"); val != "" {
		cfg.API.UserAgent = val
	}
	if val := os.Getenv("PORTAL_STORE_BACKEND"); val != "" {
		cfg.Store.Backend = strings.ToLower(val)
	}
	if val := os.Getenv("PORTAL_STORE_FILE"); val != "" {
		cfg.Store.FilePath = val
	}
	if val := os.Getenv("PORTAL_REDIS_ADDR"); val != "" {
		cfg.Store.RedisAddr = val
	}
	if val := os.Getenv("PORTAL_REDIS_PASSWORD"); val != "" {
		cfg.Store.RedisPassword = val
	}
	if val := os.Getenv("PORTAL_REDIS_DB"); val != "" {
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("PORTAL_REDIS_DB: %w", err)
		}
		cfg.Store.RedisDB = n
	}
	if val := os.Getenv("PORTAL_REDIS_PREFIX"); val != "" {
		cfg.Store.RedisPrefix = val
	}
	if val := os.Getenv("PORTAL_AUDIT_ENABLED"); val != "" {
		b, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("PORTAL_AUDIT_ENABLED: %w", err)
		}
		cfg.Audit.Enabled = b
	}
	if val := os.Getenv("PORTAL_LOG_LEVEL"); val != "" {
		cfg.LogLevel = val
	}
	return nil
}
