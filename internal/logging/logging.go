package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls the process-wide log sink.
type Config struct {
	Path       string `yaml:"path"`
	MaxSizeMB  int    `yaml:"maxSizeMB"`
	MaxBackups int    `yaml:"maxBackups"`
	Level      string `yaml:"level"`
}

// New builds the logger every component receives. Records go to console and,
// when Path is set, to a size-bounded rotating file. The returned closer
// flushes the file.
func New(cfg Config, console io.Writer) (*slog.Logger, io.Closer, error) {
	var level slog.Level
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(strings.ToUpper(cfg.Level))); err != nil {
			return nil, nil, fmt.Errorf("logging: invalid level %q: %w", cfg.Level, err)
		}
	}

	writers := []io.Writer{}
	if console != nil {
		writers = append(writers, console)
	}
	var closer io.Closer = nopCloser{}
	if cfg.Path != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, nil, fmt.Errorf("logging: create log dir: %w", err)
		}
		rotating := &lumberjack.Logger{
			Filename:   cfg.Path,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
		}
		writers = append(writers, rotating)
		closer = rotating
	}

	handler := slog.NewTextHandler(io.MultiWriter(writers...), &slog.HandlerOptions{Level: level})
	return slog.New(handler).With("app", "reqverify"), closer, nil
}

// Discard is a logger for tests and callers that do not care.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
