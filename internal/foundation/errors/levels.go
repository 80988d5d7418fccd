package errors

import "log/slog"

// levelFor maps a severity onto the slog level used by both adapters.
func levelFor(s ErrorSeverity) slog.Level {
	switch s {
	case SeverityInfo:
		return slog.LevelInfo
	case SeverityWarning:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}
