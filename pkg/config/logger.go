package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Logger configures the slog logger used by the CLI.
type Logger struct {
	Level  string
	Format string
	// Output is "stderr", "stdout" or a file path.
	Output string
}

func getLoggerConfig(v *viper.Viper) *Logger {
	return &Logger{
		Level:  getStringOrDefault(v, "log.level", "info"),
		Format: getStringOrDefault(v, "log.format", "text"),
		Output: getStringOrDefault(v, "log.output", "stderr"),
	}
}

// SlogLevel parses Level.
func (l *Logger) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(l.Level))); err != nil {
		return slog.LevelInfo, err
	}
	return level, nil
}

// Writer opens the configured output. The returned closer is a no-op for
// the standard streams.
func (l *Logger) Writer() (io.Writer, func() error, error) {
	switch strings.ToLower(l.Output) {
	case "", "stderr":
		return os.Stderr, func() error { return nil }, nil
	case "stdout":
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.OpenFile(l.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log output: %w", err)
	}
	return f, f.Close, nil
}

// NewLogger builds a slog logger writing to w.
func (l *Logger) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := l.SlogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}

	switch strings.ToLower(l.Format) {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", l.Format)
	}
}
