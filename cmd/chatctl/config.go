package main

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	ServerURL string `envconfig:"FANOUS_SERVER_URL" default:"http://localhost:8080"`
	Token     string `envconfig:"FANOUS_TOKEN"`
	// FANOUS_COLOURS colorizes event names in the output
	Colours bool `envconfig:"FANOUS_COLOURS" default:"true"`
	// FANOUS_DEBUG_JSON prints every raw frame
	DebugJSON bool `envconfig:"FANOUS_DEBUG_JSON" default:"false"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
