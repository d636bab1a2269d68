// Levelstate - Game Level Presence and Transition Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/levelstate

// Package logging provides the process-wide zerolog logger for levelstate.
//
// Every package logs through this one logger so that ingestion workers,
// the reaper, the flusher and the HTTP surface share one format and level.
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//	logging.Info().Str("player_id", id).Msg("presence applied")
//	logging.Ctx(ctx).Warn().Err(err).Msg("flush failed")
//
// Environment Variables (read by internal/config):
//   - LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - LOG_FORMAT: json, console (default: json)
//   - LOG_CALLER: true/false (default: false)
//
// Adapters expose the same logger as a slog.Handler (for sutureslog) and as
// a watermill.LoggerAdapter (for the NATS router).
package logging

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ServiceName is stamped on every log line.
const ServiceName = "levelstate"

// Config holds logging configuration.
type Config struct {
	Level  string // trace, debug, info, warn, error, fatal, panic, disabled
	Format string // json or console
	Caller bool

	// Timestamp adds a "time" field in RFC3339.
	Timestamp bool

	// Output defaults to os.Stderr.
	Output io.Writer
}

// DefaultConfig returns JSON at info level on stderr.
func DefaultConfig() Config {
	return Config{
		Level:     "info",
		Format:    "json",
		Timestamp: true,
		Output:    os.Stderr,
	}
}

var (
	mu   sync.RWMutex
	root zerolog.Logger
)

//nolint:gochecknoinits // packages log before main calls Init
func init() {
	root = build(DefaultConfig())
}

// Init replaces the process logger. It may be called again, for example by
// tests that capture output.
func Init(cfg Config) {
	l := build(cfg)
	mu.Lock()
	root = l
	mu.Unlock()
}

func build(cfg Config) zerolog.Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	zerolog.SetGlobalLevel(parseLevel(cfg.Level))
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.TimestampFieldName = "time"
	zerolog.MessageFieldName = "message"

	var out io.Writer = cfg.Output
	if strings.EqualFold(cfg.Format, "console") {
		out = zerolog.ConsoleWriter{Out: cfg.Output, TimeFormat: "15:04:05"}
	}

	zc := zerolog.New(out).With().Str("service", ServiceName)
	if cfg.Timestamp {
		zc = zc.Timestamp()
	}
	if cfg.Caller {
		zc = zc.Caller()
	}
	return zc.Logger()
}

// parseLevel maps a level name to zerolog. Unknown or empty names mean info.
func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "warning":
		return zerolog.WarnLevel
	case "disabled", "off":
		return zerolog.Disabled
	case "":
		return zerolog.InfoLevel
	}
	l, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || l == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return l
}

// Logger returns a copy of the process logger.
func Logger() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return root
}

// SetLogger replaces the process logger without touching global settings.
//
//nolint:gocritic // zerolog.Logger is passed by value by design of zerolog
func SetLogger(l zerolog.Logger) {
	mu.Lock()
	root = l
	mu.Unlock()
}

// With starts a child logger of the process logger.
func With() zerolog.Context {
	l := Logger()
	return l.With()
}

// Trace, Debug, Info, Warn, Error and Fatal start an event on the process
// logger. Fatal exits the process after the event is written.
func Trace() *zerolog.Event { l := Logger(); return l.Trace() }
func Debug() *zerolog.Event { l := Logger(); return l.Debug() }
func Info() *zerolog.Event  { l := Logger(); return l.Info() }
func Warn() *zerolog.Event  { l := Logger(); return l.Warn() }
func Error() *zerolog.Event { l := Logger(); return l.Error() }
func Fatal() *zerolog.Event { l := Logger(); return l.Fatal() }

// NewTestLogger returns a logger writing JSON to w, for assertions on output.
func NewTestLogger(w io.Writer) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Logger()
}
