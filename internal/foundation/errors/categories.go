package errors

import (
	"log/slog"
	"maps"
	"slices"
)

// ErrorCategory routes an error to an exit code, an HTTP status and a retry
// decision.
type ErrorCategory string

const (
	// Caller input and registry state.
	CategoryConfig        ErrorCategory = "config"
	CategoryValidation    ErrorCategory = "validation"
	CategoryNotFound      ErrorCategory = "not_found"
	CategoryAlreadyExists ErrorCategory = "already_exists"
	CategoryUnsupported   ErrorCategory = "unsupported"

	// Backends.
	CategoryNetwork ErrorCategory = "network"
	CategoryPublish ErrorCategory = "publish"
	CategoryStorage ErrorCategory = "storage"

	// The process itself.
	CategoryRuntime  ErrorCategory = "runtime"
	CategoryInternal ErrorCategory = "internal"
)

// ErrorSeverity decides the log level an adapter reports at; fatal errors stop
// the command.
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"
	SeverityError   ErrorSeverity = "error"
	SeverityWarning ErrorSeverity = "warning"
	SeverityInfo    ErrorSeverity = "info"
)

// RetryStrategy tells callers whether trying again can help.
type RetryStrategy string

const (
	RetryNever      RetryStrategy = "never"
	RetryImmediate  RetryStrategy = "immediate"
	RetryBackoff    RetryStrategy = "backoff"
	RetryUserAction RetryStrategy = "user"
)

// categoryDefaults seeds errors created with NewError. Wrapped errors start
// from error/never because the cause, not the category, decides retries.
var categoryDefaults = map[ErrorCategory]struct {
	severity ErrorSeverity
	retry    RetryStrategy
}{
	CategoryConfig:        {SeverityFatal, RetryNever},
	CategoryValidation:    {SeverityError, RetryNever},
	CategoryNotFound:      {SeverityError, RetryNever},
	CategoryAlreadyExists: {SeverityError, RetryUserAction},
	CategoryUnsupported:   {SeverityError, RetryNever},
	CategoryNetwork:       {SeverityError, RetryBackoff},
	CategoryPublish:       {SeverityError, RetryNever},
	CategoryStorage:       {SeverityError, RetryBackoff},
	CategoryRuntime:       {SeverityError, RetryNever},
	CategoryInternal:      {SeverityFatal, RetryNever},
}

// ErrorContext holds the structured details attached to an error: publisher
// keys, metric names, addresses.
type ErrorContext map[string]any

// Set stores value under key, allocating the map when needed.
func (c ErrorContext) Set(key string, value any) ErrorContext {
	if c == nil {
		c = ErrorContext{}
	}
	c[key] = value
	return c
}

// attrs renders the context as slog attributes in key order.
func (c ErrorContext) attrs() []slog.Attr {
	out := make([]slog.Attr, 0, len(c))
	for _, k := range slices.Sorted(maps.Keys(c)) {
		out = append(out, slog.Any(k, c[k]))
	}
	return out
}
