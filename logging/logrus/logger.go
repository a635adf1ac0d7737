// Package logrus adapts the core Logger interface to sirupsen/logrus, for
// applications that already route their logs through a logrus instance.
package logrus

import (
	"github.com/Swind/go-work-stealing/core"
	logrusapi "github.com/sirupsen/logrus"
)

// Logger implements core.Logger on top of a logrus logger.
type Logger struct {
	logger *logrusapi.Logger
}

var _ core.Logger = (*Logger)(nil)

// New wraps the given logrus logger; nil falls back to the logrus standard logger.
func New(logger *logrusapi.Logger) *Logger {
	if logger == nil {
		logger = logrusapi.StandardLogger()
	}
	return &Logger{logger: logger}
}

// Debug logs a debug message with optional fields.
func (l *Logger) Debug(msg string, fields ...core.Field) {
	l.logger.WithFields(toLogrusFields(fields)).Debug(msg)
}

// Info logs an info message with optional fields.
func (l *Logger) Info(msg string, fields ...core.Field) {
	l.logger.WithFields(toLogrusFields(fields)).Info(msg)
}

// Warn logs a warning message with optional fields.
func (l *Logger) Warn(msg string, fields ...core.Field) {
	l.logger.WithFields(toLogrusFields(fields)).Warn(msg)
}

// Error logs an error message with optional fields.
func (l *Logger) Error(msg string, fields ...core.Field) {
	l.logger.WithFields(toLogrusFields(fields)).Error(msg)
}

func toLogrusFields(fields []core.Field) logrusapi.Fields {
	if len(fields) == 0 {
		return nil
	}
	out := make(logrusapi.Fields, len(fields))
	for _, f := range fields {
		out[f.Key] = f.Value
	}
	return out
}
