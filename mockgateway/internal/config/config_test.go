package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 8888, cfg.Port)
	assert.Equal(t, "/bodo", cfg.BasePath)
	assert.Equal(t, []string{"alpha:RUNNING", "beta:PAUSED"}, cfg.Clusters)
	assert.Equal(t, 3*time.Second, cfg.TransitionDelay)
	assert.True(t, cfg.AutoAttach)
	assert.True(t, cfg.AllowLocalExecution)
}

func TestLoadConfig_FromEnv(t *testing.T) {
	t.Setenv("MOCKGATEWAY_CLUSTERS", "one:RUNNING,two:STOPPED,three:FAILED")
	t.Setenv("MOCKGATEWAY_TRANSITION_DELAY", "250ms")
	t.Setenv("MOCKGATEWAY_AUTO_ATTACH", "false")
	t.Setenv("MOCKGATEWAY_TOKEN", "secret")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Len(t, cfg.Clusters, 3)
	assert.Equal(t, 250*time.Millisecond, cfg.TransitionDelay)
	assert.False(t, cfg.AutoAttach)
	assert.Equal(t, "secret", cfg.Token)
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Setenv("MOCKGATEWAY_PORT", "not-a-number")
	_, err := LoadConfig()
	assert.Error(t, err)
}
