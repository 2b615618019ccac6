package config

import "time"

// SetDefaults sets default values for all configuration fields.
func SetDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}

	// Database defaults
	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/industry.db"
	}
	if cfg.Database.Slot == "" {
		cfg.Database.Slot = "main"
	}

	// Engine defaults
	if cfg.Engine.BasePing == 0 {
		cfg.Engine.BasePing = time.Second
	}
	if cfg.Engine.SampleRate == 0 {
		cfg.Engine.SampleRate = 50 * time.Millisecond
	}
	if cfg.Engine.Speed == 0 {
		cfg.Engine.Speed = 1
	}
	if cfg.Engine.AutosaveEvery == 0 {
		cfg.Engine.AutosaveEvery = 30
	}
	if cfg.Engine.EventRetention == 0 {
		cfg.Engine.EventRetention = 10000
	}

	// Network defaults come from the profile
	if cfg.Network.Profile == "" {
		cfg.Network.Profile = ProfileDefault
	}
	ApplyProfile(&cfg.Network, ProfileFor(cfg.Network.Profile))

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}

	// Metrics defaults
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}
