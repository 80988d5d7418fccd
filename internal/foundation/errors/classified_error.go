package errors

import (
	stderrors "errors"
	"log/slog"
	"maps"
)

// ClassifiedError is the error type reported by metricbus packages. It is
// immutable once built.
type ClassifiedError struct {
	category ErrorCategory
	severity ErrorSeverity
	retry    RetryStrategy
	message  string
	cause    error
	context  ErrorContext
}

// Error renders "[category:severity] message[: cause]".
func (e *ClassifiedError) Error() string {
	s := "[" + string(e.category) + ":" + string(e.severity) + "] " + e.message
	if e.cause != nil {
		s += ": " + e.cause.Error()
	}
	return s
}

func (e *ClassifiedError) Unwrap() error                { return e.cause }
func (e *ClassifiedError) Category() ErrorCategory      { return e.category }
func (e *ClassifiedError) Severity() ErrorSeverity      { return e.severity }
func (e *ClassifiedError) RetryStrategy() RetryStrategy { return e.retry }
func (e *ClassifiedError) Message() string              { return e.message }
func (e *ClassifiedError) Context() ErrorContext        { return e.context }

// CanRetry is false for permanent failures and for errors that need the
// operator to change something first.
func (e *ClassifiedError) CanRetry() bool {
	return e.retry == RetryBackoff || e.retry == RetryImmediate
}

func (e *ClassifiedError) IsFatal() bool { return e.severity == SeverityFatal }

// WithContext returns a copy carrying one more detail.
func (e *ClassifiedError) WithContext(key string, value any) *ClassifiedError {
	cp := *e
	cp.context = maps.Clone(e.context).Set(key, value)
	return &cp
}

// Is treats errors of the same category and message as equal, so a copy made
// by WithContext still matches its original.
func (e *ClassifiedError) Is(target error) bool {
	other, ok := target.(*ClassifiedError)
	return ok && e.category == other.category && e.message == other.message
}

// LogAttrs returns the category followed by the context, sorted by key.
func (e *ClassifiedError) LogAttrs() []slog.Attr {
	return append([]slog.Attr{slog.String("category", string(e.category))}, e.context.attrs()...)
}

// AsClassified returns the first ClassifiedError in err's chain.
func AsClassified(err error) (*ClassifiedError, bool) {
	var c *ClassifiedError
	ok := stderrors.As(err, &c)
	return c, ok
}

// GetCategory falls back to CategoryInternal for unclassified errors.
func GetCategory(err error) ErrorCategory {
	if c, ok := AsClassified(err); ok {
		return c.category
	}
	return CategoryInternal
}

// IsNotFound reports a failed metric, kind or publisher lookup anywhere in the
// chain.
func IsNotFound(err error) bool { return inChain(err, CategoryNotFound) }

// IsDuplicate reports a rejected registration anywhere in the chain.
func IsDuplicate(err error) bool { return inChain(err, CategoryAlreadyExists) }

// IsUnsupported reports an unsupported operation anywhere in the chain.
func IsUnsupported(err error) bool { return inChain(err, CategoryUnsupported) }

// inChain looks past outer wraps and into joined errors, so a lookup failure
// inside a broadcast delivery stays detectable.
func inChain(err error, category ErrorCategory) bool {
	for err != nil {
		if c, ok := err.(*ClassifiedError); ok && c.category == category {
			return true
		}
		switch u := err.(type) {
		case interface{ Unwrap() []error }:
			for _, e := range u.Unwrap() {
				if inChain(e, category) {
					return true
				}
			}
			return false
		case interface{ Unwrap() error }:
			err = u.Unwrap()
		default:
			return false
		}
	}
	return false
}
