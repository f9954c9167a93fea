package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/fx"
)

// Config holds all configuration for the mock gateway
type Config struct {
	Port     int    `envconfig:"PORT" default:"8888"`
	BasePath string `envconfig:"BASE_PATH" default:"/bodo"`
	// Token, when set, must be sent as a bearer token
	Token string `envconfig:"TOKEN"`

	// Clusters seeds the fleet as name:STATUS pairs
	Clusters        []string      `envconfig:"CLUSTERS" default:"alpha:RUNNING,beta:PAUSED"`
	TransitionDelay time.Duration `envconfig:"TRANSITION_DELAY" default:"3s"`

	// Settings served on GET config
	AutoAttach          bool `envconfig:"AUTO_ATTACH" default:"true"`
	CatalogMode         bool `envconfig:"CATALOG_MODE" default:"false"`
	AllowLocalExecution bool `envconfig:"ALLOW_LOCAL_EXECUTION" default:"true"`

	Development bool `envconfig:"DEV" default:"false"`
}

// LoadConfig loads configuration from environment variables with the
// MOCKGATEWAY prefix
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("MOCKGATEWAY", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return &cfg, nil
}

// Module provides configuration to the fx container
var Module = fx.Options(
	fx.Provide(LoadConfig),
)
