package logging

import (
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
)

// Logger wraps charm/log for structured logging
type Logger struct {
	*log.Logger
}

// New creates a new logger with the given output
func New(w io.Writer) *Logger {
	l := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
	})
	return &Logger{Logger: l}
}

// NewWithLevel creates a logger with a specific level
func NewWithLevel(w io.Writer, level log.Level) *Logger {
	l := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
		Level:           level,
	})
	return &Logger{Logger: l}
}

// FromEnv builds a stderr logger honoring STREAMMD_LOG_LEVEL.
func FromEnv() *Logger {
	level := log.WarnLevel
	if s := os.Getenv("STREAMMD_LOG_LEVEL"); s != "" {
		if parsed, err := log.ParseLevel(s); err == nil {
			level = parsed
		}
	}
	return NewWithLevel(os.Stderr, level)
}

// Discard returns a logger that discards all output
func Discard() *Logger {
	return New(io.Discard)
}

// ParseStarted logs the start of a parse run
func (l *Logger) ParseStarted(source string, chunkSize int) {
	l.Debug("parse started",
		"source", source,
		"chunk_size", chunkSize)
}

// ParseCompleted logs the completion of a parse run
func (l *Logger) ParseCompleted(source string, events, elements int, duration time.Duration) {
	l.Info("parse completed",
		"source", source,
		"events", events,
		"elements", elements,
		"duration", duration.Round(time.Millisecond))
}

// SourceError logs an error for a specific input source
func (l *Logger) SourceError(source string, err error) {
	l.Error("source error",
		"source", source,
		"error", err)
}

// CheckFailed logs a chunking divergence found by the check command
func (l *Logger) CheckFailed(source string, chunkSize int) {
	l.Error("chunking divergence",
		"source", source,
		"chunk_size", chunkSize)
}
