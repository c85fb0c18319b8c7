// Package logging builds the process logger from configuration.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/luismedel/protohackers-challenge/internal/config"
)

// ParseLevel converts a config level name to a slog level.
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return 0, fmt.Errorf("parse log level: %w", err)
	}
	return level, nil
}

// New returns a logger writing to console and, when cfg.File is set, to a
// size-rotated file. A nil console drops console output. The returned closer
// releases the log file.
func New(cfg config.LogConfig, console io.Writer) (*slog.Logger, io.Closer, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}

	var writers []io.Writer
	if console != nil {
		writers = append(writers, console)
	}

	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		file := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
		}
		writers = append(writers, file)
		closer = file
	}

	var out io.Writer
	switch len(writers) {
	case 0:
		out = io.Discard
	case 1:
		out = writers[0]
	default:
		out = io.MultiWriter(writers...)
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "json":
		handler = slog.NewJSONHandler(out, opts)
	case "", "text":
		handler = slog.NewTextHandler(out, opts)
	default:
		return nil, nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	return slog.New(handler), closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
