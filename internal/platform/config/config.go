// Package config loads server configuration from a YAML file, the
// environment and a .env file, in that order of precedence (lowest first).
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g.
// INDUSTRY_SERVER_ADDR or INDUSTRY_ENGINE_SPEED.
const EnvPrefix = "INDUSTRY"

// Config is the main configuration struct combining all sub-configs.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Content  ContentConfig  `mapstructure:"content"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Network  NetworkConfig  `mapstructure:"network"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr" validate:"required"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

type DatabaseConfig struct {
	// SQLite file, or ":memory:".
	Path string `mapstructure:"path" validate:"required"`
	// Save slot the server loads at boot and autosaves into.
	Slot string `mapstructure:"slot" validate:"required"`
}

type ContentConfig struct {
	// Empty uses the embedded default content.
	Path string `mapstructure:"path"`
}

type EngineConfig struct {
	BasePing       time.Duration `mapstructure:"base_ping" validate:"gt=0"`
	SampleRate     time.Duration `mapstructure:"sample_rate" validate:"gt=0"`
	Speed          float64       `mapstructure:"speed" validate:"gte=0"`
	AutosaveEvery  int           `mapstructure:"autosave_every" validate:"gte=-1"` // Pings, -1 disables
	EventRetention int           `mapstructure:"event_retention" validate:"gte=0"`
}

// NetworkConfig tunes the websocket hub. Zero values are filled from the
// selected Profile.
type NetworkConfig struct {
	Profile              string        `mapstructure:"profile" validate:"oneof=default stress low"`
	BroadcastBuffer      int           `mapstructure:"broadcast_buffer" validate:"gte=1"`
	ClientSendBuffer     int           `mapstructure:"client_send_buffer" validate:"gte=1"`
	MaxMessagesPerSecond float64       `mapstructure:"max_messages_per_second" validate:"gt=0"`
	MessageBurst         int           `mapstructure:"message_burst" validate:"gte=1"`
	MaxClients           int           `mapstructure:"max_clients" validate:"gte=1"`
	EventPollInterval    time.Duration `mapstructure:"event_poll_interval" validate:"gt=0"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=json text"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path" validate:"required,startswith=/"`
}

// LoadConfig loads configuration with priority:
// 1. Environment variables (highest priority)
// 2. Config file (industry.yaml)
// 3. Defaults (lowest priority)
func LoadConfig(configPath string) (*Config, error) {
	// Load .env file if it exists (doesn't error if missing)
	_ = godotenv.Load()

	v := viper.New()
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("industry")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	SetDefaults(&cfg)

	if err := ValidateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// LoadConfigOrDefault loads configuration or returns the defaults on error.
func LoadConfigOrDefault(configPath string) *Config {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns a fully defaulted configuration.
func Default() *Config {
	cfg := &Config{}
	SetDefaults(cfg)
	return cfg
}

// bindEnv registers every key so AutomaticEnv also works for keys that
// appear in no config file.
func bindEnv(v *viper.Viper) {
	keys := []string{
		"server.addr", "server.shutdown_timeout",
		"database.path", "database.slot",
		"content.path",
		"engine.base_ping", "engine.sample_rate", "engine.speed", "engine.autosave_every", "engine.event_retention",
		"network.profile", "network.broadcast_buffer", "network.client_send_buffer",
		"network.max_messages_per_second", "network.message_burst", "network.max_clients", "network.event_poll_interval",
		"logging.level", "logging.format",
		"metrics.enabled", "metrics.path",
	}
	for _, k := range keys {
		_ = v.BindEnv(k)
	}
}
