package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "industry.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_FileValuesAndDefaults(t *testing.T) {
	// Arrange
	path := writeConfig(t, `
server:
  addr: ":9090"
engine:
  base_ping: 250ms
  speed: 2
logging:
  level: debug
`)

	// Act
	cfg, err := LoadConfig(path)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 250*time.Millisecond, cfg.Engine.BasePing)
	assert.Equal(t, 2.0, cfg.Engine.Speed)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, "main", cfg.Database.Slot)
	assert.Equal(t, 50*time.Millisecond, cfg.Engine.SampleRate)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
}

func TestLoadConfig_EnvironmentOverridesFile(t *testing.T) {
	path := writeConfig(t, "server:\n  addr: \":9090\"\n")
	t.Setenv("INDUSTRY_SERVER_ADDR", ":7070")
	t.Setenv("INDUSTRY_DATABASE_SLOT", "ci")

	cfg, err := LoadConfig(path)

	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Server.Addr)
	assert.Equal(t, "ci", cfg.Database.Slot)
}

func TestLoadConfig_InvalidValuesRejected(t *testing.T) {
	path := writeConfig(t, "logging:\n  level: loud\n")

	_, err := LoadConfig(path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "Config.Logging.Level")
	assert.Contains(t, err.Error(), "oneof")
}

func TestLoadConfig_MissingExplicitFileFails(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))

	assert.Error(t, err)
}

func TestLoadConfigOrDefault_FallsBack(t *testing.T) {
	cfg := LoadConfigOrDefault(filepath.Join(t.TempDir(), "absent.yaml"))

	assert.Equal(t, Default(), cfg)
}

func TestSetDefaults_ProfileFillsOnlyZeroFields(t *testing.T) {
	// Arrange
	cfg := &Config{Network: NetworkConfig{Profile: ProfileLow, MaxClients: 3}}

	// Act
	SetDefaults(cfg)

	// Assert
	low := LowResourceTuning()
	assert.Equal(t, 3, cfg.Network.MaxClients)
	assert.Equal(t, low.BroadcastBuffer, cfg.Network.BroadcastBuffer)
	assert.Equal(t, low.MaxMessagesPerSecond, cfg.Network.MaxMessagesPerSecond)
	assert.Equal(t, low.EventPollInterval, cfg.Network.EventPollInterval)
	assert.NoError(t, ValidateConfig(cfg))
}

func TestProfileFor_UnknownIsDefault(t *testing.T) {
	assert.Equal(t, DefaultTuning(), ProfileFor("turbo"))
	assert.Equal(t, StressTuning(), ProfileFor(ProfileStress))
}

func TestValidateConfig_UnknownProfile(t *testing.T) {
	cfg := Default()
	cfg.Network.Profile = "turbo"

	err := ValidateConfig(cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "Profile")
}
