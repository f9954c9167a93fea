package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/fx"
)

// Config holds all configuration for the attacher service
type Config struct {
	// Server settings
	Server ServerConfig `envconfig:"SERVER"`

	// Remote cluster gateway settings
	Gateway GatewayConfig `envconfig:"GATEWAY"`

	// Cluster list polling settings
	Poll PollConfig `envconfig:"POLL"`

	// Cluster list cache settings
	Cache CacheConfig `envconfig:"CACHE"`

	// Notebook session host settings
	Session SessionConfig `envconfig:"SESSION"`

	// Logging settings
	Logging LoggingConfig `envconfig:"LOGGING"`
}

// ServerConfig contains settings for the API served to presentation layers
type ServerConfig struct {
	Port int `envconfig:"PORT" default:"8765"`
}

// GatewayConfig contains settings for the remote cluster gateway client
type GatewayConfig struct {
	BaseURL   string        `envconfig:"BASE_URL" default:"http://localhost:8888/bodo"`
	Token     string        `envconfig:"TOKEN"`
	Timeout   time.Duration `envconfig:"TIMEOUT" default:"30s"`
	RateLimit float64       `envconfig:"RATE_LIMIT" default:"10"` // requests per second
	RateBurst int           `envconfig:"RATE_BURST" default:"5"`
}

// PollConfig controls how often the cluster list is refreshed
type PollConfig struct {
	Interval      time.Duration `envconfig:"INTERVAL" default:"10s"`
	MaxInterval   time.Duration `envconfig:"MAX_INTERVAL" default:"2m"`
	BackoffFactor float64       `envconfig:"BACKOFF_FACTOR" default:"2.0"`
}

// CacheConfig selects the cluster list cache shared between agents
type CacheConfig struct {
	Type     string        `envconfig:"TYPE" default:"memory"` // none, memory or redis
	RedisURI string        `envconfig:"REDIS_URI" default:"redis://localhost:6379/0"`
	TTL      time.Duration `envconfig:"TTL" default:"5s"`
}

// SessionConfig selects the notebook session host
type SessionConfig struct {
	Type          string        `envconfig:"TYPE" default:"memory"` // memory or jupyter
	JupyterURL    string        `envconfig:"JUPYTER_URL" default:"http://localhost:8888"`
	JupyterToken  string        `envconfig:"JUPYTER_TOKEN"`
	NotebookPath  string        `envconfig:"NOTEBOOK_PATH" default:"Untitled.ipynb"`
	SessionID     string        `envconfig:"SESSION_ID"`
	WatchInterval time.Duration `envconfig:"WATCH_INTERVAL" default:"2s"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Development bool `envconfig:"DEV" default:"false"` // Whether to use development logger (more verbose)
}

// Supported cache and session types
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"

	SessionMemory  = "memory"
	SessionJupyter = "jupyter"
)

// LoadConfig loads configuration from environment variables using envconfig
func LoadConfig() (*Config, error) {
	var cfg Config

	// Process environment variables with "CLUSTERLINK" prefix
	if err := envconfig.Process("CLUSTERLINK", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks values envconfig cannot check on its own
func (c *Config) Validate() error {
	if c.Poll.Interval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", c.Poll.Interval)
	}
	if c.Poll.MaxInterval < c.Poll.Interval {
		return fmt.Errorf("poll max interval %s is shorter than interval %s", c.Poll.MaxInterval, c.Poll.Interval)
	}
	if c.Poll.BackoffFactor < 1 {
		return fmt.Errorf("poll backoff factor must be at least 1, got %f", c.Poll.BackoffFactor)
	}
	switch c.Cache.Type {
	case CacheNone, CacheMemory, CacheRedis:
	default:
		return fmt.Errorf("unknown cache type %q", c.Cache.Type)
	}
	switch c.Session.Type {
	case SessionMemory, SessionJupyter:
	default:
		return fmt.Errorf("unknown session type %q", c.Session.Type)
	}
	return nil
}

// Module provides configuration to the fx container
var Module = fx.Options(
	fx.Provide(LoadConfig),
)
