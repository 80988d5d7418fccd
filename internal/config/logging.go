package config

import (
	"log/slog"

	"git.home.luguber.info/inful/metricbus/internal/foundation/normalization"
)

// LoggingConfig selects the log level and handler format.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

// LogLevel enumerates supported logging levels.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

var logLevelNormalizer = normalization.NewNormalizer("log level", map[string]LogLevel{
	"debug":   LogLevelDebug,
	"info":    LogLevelInfo,
	"warn":    LogLevelWarn,
	"warning": LogLevelWarn,
	"error":   LogLevelError,
}, LogLevelInfo)

func NormalizeLogLevel(raw string) LogLevel {
	return logLevelNormalizer.Normalize(raw)
}

var slogLevels = map[LogLevel]slog.Level{
	LogLevelDebug: slog.LevelDebug,
	LogLevelInfo:  slog.LevelInfo,
	LogLevelWarn:  slog.LevelWarn,
	LogLevelError: slog.LevelError,
}

// Slog maps the level onto slog; unknown values log at info.
func (l LogLevel) Slog() slog.Level {
	return slogLevels[l]
}

// LogFormat enumerates supported log output formats. Auto picks a colored
// handler on terminals and text otherwise.
type LogFormat string

const (
	LogFormatAuto LogFormat = "auto"
	LogFormatJSON LogFormat = "json"
	LogFormatText LogFormat = "text"
)

var logFormatNormalizer = normalization.NewNormalizer("log format", map[string]LogFormat{
	"auto": LogFormatAuto,
	"json": LogFormatJSON,
	"text": LogFormatText,
}, LogFormatAuto)

func NormalizeLogFormat(raw string) LogFormat {
	return logFormatNormalizer.Normalize(raw)
}
