package config

import "github.com/caarlos0/env/v11"

// TestConfig is read by integration tests that need a live Postgres.
type TestConfig struct {
	PostgresDSN string `env:"TEST_POSTGRES_DSN,required,notEmpty"`
}

func LoadTest() (TestConfig, error) {
	var cfg TestConfig
	err := env.Parse(&cfg)
	return cfg, err
}
