package config

import (
	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

// Load reads .env when present, then decodes the environment into App.
func Load() (App, error) {
	_ = godotenv.Load()

	var cfg App
	if err := envdecode.StrictDecode(&cfg); err != nil {
		return App{}, err
	}
	return cfg, nil
}
