// Package logger builds the process-wide zerolog logger.
// Components receive a child logger tagged with their name instead of
// reaching for the global.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config controls output format and verbosity.
type Config struct {
	Level   string `toml:"level" env:"LEVEL"`     // debug, info, warn, error
	Console bool   `toml:"console" env:"CONSOLE"` // human-readable output instead of JSON
}

// New creates the root logger writing to stdout.
func New(service string, cfg Config) (zerolog.Logger, error) {
	return NewWithWriter(os.Stdout, service, cfg)
}

// NewWithWriter is New with an explicit sink (tests, log files).
func NewWithWriter(w io.Writer, service string, cfg Config) (zerolog.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Nop(), err
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano

	out := w
	if cfg.Console {
		out = zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.RFC3339,
			NoColor:    true,
			FormatLevel: func(i interface{}) string {
				return fmt.Sprintf("| %-6s|", i)
			},
		}
	}

	return zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Str("service", service).
		Logger(), nil
}

// ParseLevel maps a config string onto a zerolog level. Empty means info.
func ParseLevel(s string) (zerolog.Level, error) {
	if strings.TrimSpace(s) == "" {
		return zerolog.InfoLevel, nil
	}
	level, err := zerolog.ParseLevel(strings.ToLower(s))
	if err != nil {
		return zerolog.InfoLevel, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}

// Component returns a child logger tagged with the component name.
func Component(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str("component", name).Logger()
}
