package errors

import "maps"

// ErrorBuilder assembles a ClassifiedError. Build returns a fresh copy, so a
// builder can be reused.
type ErrorBuilder struct {
	draft ClassifiedError
}

// NewError starts an error seeded with the category's default severity and
// retry strategy.
func NewError(category ErrorCategory, message string) *ErrorBuilder {
	d, ok := categoryDefaults[category]
	if !ok {
		d.severity, d.retry = SeverityError, RetryNever
	}
	return &ErrorBuilder{draft: ClassifiedError{
		category: category,
		severity: d.severity,
		retry:    d.retry,
		message:  message,
	}}
}

// WrapError starts an error around cause. It is never retryable until the
// caller says so.
func WrapError(cause error, category ErrorCategory, message string) *ErrorBuilder {
	return &ErrorBuilder{draft: ClassifiedError{
		category: category,
		severity: SeverityError,
		retry:    RetryNever,
		message:  message,
		cause:    cause,
	}}
}

func (b *ErrorBuilder) withRetry(r RetryStrategy) *ErrorBuilder {
	b.draft.retry = r
	return b
}

// WithContext records a detail such as the publisher key or metric name.
func (b *ErrorBuilder) WithContext(key string, value any) *ErrorBuilder {
	b.draft.context = b.draft.context.Set(key, value)
	return b
}

func (b *ErrorBuilder) Retryable() *ErrorBuilder { return b.withRetry(RetryBackoff) }
func (b *ErrorBuilder) Immediate() *ErrorBuilder { return b.withRetry(RetryImmediate) }

// Build returns the error. Later builder calls do not affect it.
func (b *ErrorBuilder) Build() *ClassifiedError {
	e := b.draft
	e.context = maps.Clone(e.context)
	return &e
}

// ConfigError reports unusable configuration. It is fatal.
func ConfigError(message string) *ErrorBuilder { return NewError(CategoryConfig, message) }

// ValidationError reports rejected input.
func ValidationError(message string) *ErrorBuilder { return NewError(CategoryValidation, message) }

// NotFoundError reports a lookup of an unregistered metric, kind or publisher.
func NotFoundError(message string) *ErrorBuilder { return NewError(CategoryNotFound, message) }

// DuplicateError reports a registration whose name or key is taken.
func DuplicateError(message string) *ErrorBuilder { return NewError(CategoryAlreadyExists, message) }

// UnsupportedError reports an operation this build refuses, such as periodic
// tasks on the queue.
func UnsupportedError(message string) *ErrorBuilder { return NewError(CategoryUnsupported, message) }

func RuntimeError(message string) *ErrorBuilder  { return NewError(CategoryRuntime, message) }
func InternalError(message string) *ErrorBuilder { return NewError(CategoryInternal, message) }
