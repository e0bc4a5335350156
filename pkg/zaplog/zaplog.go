// Package zaplog adapts a zap.Logger to the confresh Logger interface, for
// hosts standardized on zap.
package zaplog

import (
	"os"

	"go.uber.org/zap"

	"github.com/avermeer/confresh/pkg/confresh"
)

// Logger forwards confresh log output into a zap pipeline. Key-value pairs
// pass through zap's sugared API unchanged.
type Logger struct {
	s *zap.SugaredLogger
}

// New wraps a zap logger. The wrapper skips one caller frame so direct calls
// report the calling code rather than the adapter.
func New(l *zap.Logger) *Logger {
	return &Logger{s: l.WithOptions(zap.AddCallerSkip(1)).Sugar()}
}

// NewFromEnv builds a logger configured by the LOG_FORMAT environment
// variable: "console" or "development" for human-readable output, structured
// JSON otherwise.
func NewFromEnv() (*Logger, error) {
	format := os.Getenv("LOG_FORMAT")

	var cfg zap.Config
	if format == "console" || format == "development" {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}

	l, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return New(l), nil
}

func (l *Logger) Debug(msg string, args ...any) {
	l.s.Debugw(msg, args...)
}

func (l *Logger) Info(msg string, args ...any) {
	l.s.Infow(msg, args...)
}

func (l *Logger) Warn(msg string, args ...any) {
	l.s.Warnw(msg, args...)
}

func (l *Logger) Error(msg string, args ...any) {
	l.s.Errorw(msg, args...)
}

// Sync flushes buffered log entries. Hosts should call it on shutdown.
func (l *Logger) Sync() error {
	return l.s.Sync()
}

// Ensure Logger implements the confresh interface
var _ confresh.Logger = (*Logger)(nil)
