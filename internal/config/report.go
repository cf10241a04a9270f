package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// ReportConfig controls where a run is published. Empty values disable the
// corresponding sink.
type ReportConfig struct {
	HTTPAddr    string `env:"HTTP_ADDR"`
	SQLitePath  string `env:"SQLITE_PATH"`
	PostgresDSN string `env:"POSTGRES_DSN"`
	FeedBuffer  int    `env:"FEED_BUFFER" envDefault:"500"`
}

func LoadReport() (ReportConfig, error) {
	var cfg ReportConfig
	if err := env.Parse(&cfg); err != nil {
		return ReportConfig{}, err
	}
	if cfg.FeedBuffer <= 0 {
		return ReportConfig{}, fmt.Errorf("%w: FEED_BUFFER %d", ErrInvalidConfig, cfg.FeedBuffer)
	}
	return cfg, nil
}
