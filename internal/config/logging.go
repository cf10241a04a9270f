package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
)

type LogConfig struct {
	Level       string `env:"LOG_LEVEL" envDefault:"info"`
	Pretty      bool   `env:"LOG_PRETTY" envDefault:"false"`
	SampleEvery int    `env:"LOG_SAMPLE_EVERY" envDefault:"0"`
	File        string `env:"LOG_FILE"`
	MaxMB       int    `env:"LOG_MAX_MB" envDefault:"10"`
}

func LoadLog() (LogConfig, error) {
	var cfg LogConfig
	if err := env.Parse(&cfg); err != nil {
		return LogConfig{}, err
	}
	return cfg, cfg.Validate()
}

func (c LogConfig) Validate() error {
	if _, err := zerolog.ParseLevel(c.Level); err != nil {
		return fmt.Errorf("%w: LOG_LEVEL %q", ErrInvalidConfig, c.Level)
	}
	if c.SampleEvery < 0 {
		return fmt.Errorf("%w: LOG_SAMPLE_EVERY %d", ErrInvalidConfig, c.SampleEvery)
	}
	if c.File != "" && c.MaxMB <= 0 {
		return fmt.Errorf("%w: LOG_MAX_MB %d", ErrInvalidConfig, c.MaxMB)
	}
	return nil
}
