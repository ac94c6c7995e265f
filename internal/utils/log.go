package utils

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// envLogConfig is the environment variable consulted by DefaultLogger,
// mirroring the teacher's QUIC_GO_LOG_LEVEL convention.
const envLogConfig = "QCORE_LOG_LEVEL"

// LevelNone disables logging entirely; it sits above LevelError so that a
// default slog.Logger (which has no notion of "off") can be silenced by
// comparison.
const LevelNone slog.Level = slog.LevelError + 1

var (
	defaultOnce   sync.Once
	defaultLogger *slog.Logger
)

// DefaultLogger returns the process-wide logger, built lazily from
// QCORE_LOG_LEVEL the first time it's needed. Components hold a
// *slog.Logger rather than calling this repeatedly; it exists so library
// users who never configure logging still get sane defaults.
func DefaultLogger() *slog.Logger {
	defaultOnce.Do(func() {
		level, err := parseLevel(os.Getenv(envLogConfig))
		if err != nil || level == LevelNone {
			defaultLogger = slog.New(discardHandler{})
			return
		}
		defaultLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	})
	return defaultLogger
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "off":
		return LevelNone, nil
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("utils: unknown log level %q", s)
	}
}

// discardHandler is a slog.Handler that drops every record; used instead of
// an io.Discard-backed text handler to skip formatting work entirely.
type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (h discardHandler) WithAttrs([]slog.Attr) slog.Handler       { return h }
func (h discardHandler) WithGroup(string) slog.Handler            { return h }
