package config

import (
	"github.com/caarlos0/env/v11"

	"admarket/internal/config/configs"
)

// Config aggregates all configuration sections for the service. Fields are
// populated from environment variables via the caarlos0/env library; the
// nested structs carry envPrefix tags so their fields are parsed with the
// given prefix. See the types in the configs package for defaults.
type Config struct {
	// Env names the deployment environment (e.g. prod, dev). Used only for
	// log annotation.
	Env string `env:"ENV" envDefault:"prod"`

	// Ops holds configuration for the health/metrics HTTP listener.
	Ops configs.Ops `envPrefix:"OPS_"`

	// Log configures the structured logger.
	Log configs.Logger `envPrefix:"LOG_"`

	// Mongo configures the MongoDB connection.
	Mongo configs.Mongo `envPrefix:"MONGO_"`

	// Sweep configures the scheduled completion sweeps.
	Sweep configs.Sweep `envPrefix:"SWEEP_"`
}

// Load reads configuration from environment variables into a Config. All
// fields fall back to their declared defaults when no variable is set.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
