// Package logging configures the global zerolog logger for the simulator.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"reusability-token/internal/config"
)

var (
	writerMu sync.RWMutex
	writer   io.Writer = os.Stdout
)

// Init installs the global logger. When cfg.File is set, log lines go to both
// stdout and the file; the returned closer releases the file.
func Init(cfg config.LogConfig) (io.Closer, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	var out io.Writer = os.Stdout
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: os.Stdout}
	}
	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		f, err := openCappedFile(cfg.File, cfg.MaxMB)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		out = zerolog.MultiLevelWriter(out, f)
		closer = f
	}

	zerolog.SetGlobalLevel(level)
	logger := zerolog.New(out).With().Timestamp().Logger()
	if cfg.SampleEvery > 1 {
		logger = logger.Sample(&zerolog.BasicSampler{N: uint32(cfg.SampleEvery)})
	}
	log.Logger = logger

	writerMu.Lock()
	writer = out
	writerMu.Unlock()
	return closer, nil
}

// Writer returns the destination chosen by the last Init, for handlers that
// log through something other than zerolog.
func Writer() io.Writer {
	writerMu.RLock()
	defer writerMu.RUnlock()
	return writer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
