// Package e2e drives a running server over its public surfaces.
// Every scenario is skipped unless E2E_SERVER_URL is set.
package e2e

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	ServerURL string `envconfig:"E2E_SERVER_URL"`
	// E2E_DEBUG_JSON dumps every frame and response body
	DebugJSON bool `envconfig:"E2E_DEBUG_JSON" default:"false"`
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
