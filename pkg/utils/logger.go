package utils

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// LogLevel represents the logging level
type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
	LogLevelFatal
)

// String returns the string representation of the log level
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	case LogLevelFatal:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

func (l LogLevel) charm() log.Level {
	switch l {
	case LogLevelDebug:
		return log.DebugLevel
	case LogLevelWarn:
		return log.WarnLevel
	case LogLevelError:
		return log.ErrorLevel
	case LogLevelFatal:
		return log.FatalLevel
	default:
		return log.InfoLevel
	}
}

// ParseLogLevel parses a level name such as "debug" or "WARN".
func ParseLogLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LogLevelDebug, nil
	case "", "info":
		return LogLevelInfo, nil
	case "warn", "warning":
		return LogLevelWarn, nil
	case "error":
		return LogLevelError, nil
	case "fatal":
		return LogLevelFatal, nil
	}
	return LogLevelInfo, fmt.Errorf("unknown log level %q", s)
}

// Logger interface defines the logging contract
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})

	SetLevel(level LogLevel)

	WithField(key string, value interface{}) Logger
	WithFields(fields map[string]interface{}) Logger
}

// LogFormat represents the log output format
type LogFormat int

const (
	LogFormatText LogFormat = iota
	LogFormatJSON
	LogFormatLogfmt
)

// ParseLogFormat parses "text", "json" or "logfmt".
func ParseLogFormat(s string) (LogFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text":
		return LogFormatText, nil
	case "json":
		return LogFormatJSON, nil
	case "logfmt":
		return LogFormatLogfmt, nil
	}
	return LogFormatText, fmt.Errorf("unknown log format %q", s)
}

func (f LogFormat) formatter() log.Formatter {
	switch f {
	case LogFormatJSON:
		return log.JSONFormatter
	case LogFormatLogfmt:
		return log.LogfmtFormatter
	default:
		return log.TextFormatter
	}
}

// LoggerConfig contains logger configuration
type LoggerConfig struct {
	Level      LogLevel
	Format     LogFormat
	Output     io.Writer
	Timestamps bool
	Prefix     string
}

// DefaultLoggerConfig returns a default logger configuration
func DefaultLoggerConfig() *LoggerConfig {
	return &LoggerConfig{
		Level:  LogLevelInfo,
		Format: LogFormatText,
		Output: os.Stderr,
	}
}

// CharmLogger implements Logger on top of charmbracelet/log.
type CharmLogger struct {
	logger *log.Logger
}

// NewLogger creates a new logger with the given configuration
func NewLogger(config *LoggerConfig) *CharmLogger {
	if config == nil {
		config = DefaultLoggerConfig()
	}
	out := config.Output
	if out == nil {
		out = os.Stderr
	}

	return &CharmLogger{
		logger: log.NewWithOptions(out, log.Options{
			Level:           config.Level.charm(),
			ReportTimestamp: config.Timestamps,
			TimeFormat:      "15:04:05",
			Formatter:       config.Format.formatter(),
			Prefix:          config.Prefix,
		}),
	}
}

// Debug logs a debug message
func (l *CharmLogger) Debug(msg string, args ...interface{}) {
	l.logger.Debugf(msg, args...)
}

// Info logs an info message
func (l *CharmLogger) Info(msg string, args ...interface{}) {
	l.logger.Infof(msg, args...)
}

// Warn logs a warning message
func (l *CharmLogger) Warn(msg string, args ...interface{}) {
	l.logger.Warnf(msg, args...)
}

// Error logs an error message
func (l *CharmLogger) Error(msg string, args ...interface{}) {
	l.logger.Errorf(msg, args...)
}

// SetLevel sets the logging level
func (l *CharmLogger) SetLevel(level LogLevel) {
	l.logger.SetLevel(level.charm())
}

// WithField returns a logger with an additional field
func (l *CharmLogger) WithField(key string, value interface{}) Logger {
	return &CharmLogger{logger: l.logger.With(key, value)}
}

// WithFields returns a logger with additional fields
func (l *CharmLogger) WithFields(fields map[string]interface{}) Logger {
	keyvals := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		keyvals = append(keyvals, k, v)
	}
	return &CharmLogger{logger: l.logger.With(keyvals...)}
}

// Global logger instance
var globalLogger Logger

// InitGlobalLogger initializes the global logger
func InitGlobalLogger(config *LoggerConfig) {
	globalLogger = NewLogger(config)
}

// GetGlobalLogger returns the global logger instance
func GetGlobalLogger() Logger {
	if globalLogger == nil {
		globalLogger = NewLogger(DefaultLoggerConfig())
	}
	return globalLogger
}

// Convenience functions for global logger
func Debug(msg string, args ...interface{}) {
	GetGlobalLogger().Debug(msg, args...)
}

func Info(msg string, args ...interface{}) {
	GetGlobalLogger().Info(msg, args...)
}

func Warn(msg string, args ...interface{}) {
	GetGlobalLogger().Warn(msg, args...)
}

func Error(msg string, args ...interface{}) {
	GetGlobalLogger().Error(msg, args...)
}
