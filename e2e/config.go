package e2e

import (
	"github.com/kelseyhightower/envconfig"
)

// Config points the suite at a running relay. The suite is skipped when
// RELAY_ADDR is not set.
type Config struct {
	RelayAddr  string `envconfig:"RELAY_ADDR"`
	HealthAddr string `envconfig:"HEALTH_ADDR"`
	// E2E_COLOURS enables colorized step headers
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
