// Package errors provides the classified error primitives used across metricbus.
//
// Every failure the core reports (duplicate registration, failed lookup,
// unsupported scheduling) is a *ClassifiedError so callers can branch on the
// category instead of matching strings.
//
//   - ErrorCategory: broad classification (config, not_found, already_exists, publish, ...)
//   - ErrorSeverity: impact level (fatal, error, warning, info)
//   - RetryStrategy: whether the caller may retry
//   - ErrorBuilder: fluent construction with structured context
//   - CLI and HTTP adapters for presentation
//
// Example usage:
//
//	err := errors.NotFoundError("publisher not registered").
//		WithContext("key", key).
//		Build()
//
//	if errors.IsNotFound(err) {
//		// fall back to another publisher
//	}
package errors
