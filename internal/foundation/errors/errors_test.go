package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifiedError(t *testing.T) {
	t.Run("basic construction", func(t *testing.T) {
		err := NewError(CategoryConfig, "invalid configuration").
			WithContext("file", "metricbus.yaml").
			Build()

		assert.Equal(t, CategoryConfig, err.Category())
		assert.Equal(t, SeverityFatal, err.Severity())
		assert.Equal(t, "invalid configuration", err.Message())
		assert.Equal(t, ErrorContext{"file": "metricbus.yaml"}, err.Context())
		assert.Equal(t, "[config:fatal] invalid configuration", err.Error())
	})

	t.Run("wrapping keeps the cause reachable", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := WrapError(cause, CategoryNetwork, "push failed").Retryable().Build()

		assert.ErrorIs(t, err, cause)
		assert.True(t, err.CanRetry())
		assert.Contains(t, err.Error(), "connection refused")
	})

	t.Run("WithContext does not mutate the original", func(t *testing.T) {
		base := NotFoundError("metric not registered").Build()
		derived := base.WithContext("name", "players_online")

		assert.NotContains(t, base.Context(), "name")
		assert.Equal(t, "players_online", derived.Context()["name"])
		assert.ErrorIs(t, derived, base)
	})
}

func TestCategoryPredicates(t *testing.T) {
	notFound := NotFoundError("publisher not registered").Build()
	dup := DuplicateError("metric already registered").Build()
	unsupported := UnsupportedError("periodic tasks not supported").Build()

	assert.True(t, IsNotFound(notFound))
	assert.False(t, IsNotFound(dup))
	assert.True(t, IsDuplicate(dup))
	assert.True(t, IsUnsupported(unsupported))

	wrapped := fmt.Errorf("dispatch: %w", notFound)
	assert.True(t, IsNotFound(wrapped), "predicates walk the wrap chain")
	assert.Equal(t, CategoryNotFound, GetCategory(wrapped))
	assert.Equal(t, CategoryInternal, GetCategory(errors.New("plain")))
	_, ok := AsClassified(errors.New("plain"))
	assert.False(t, ok)
}

func TestConvenienceConstructors(t *testing.T) {
	tests := []struct {
		name     string
		builder  *ErrorBuilder
		category ErrorCategory
		severity ErrorSeverity
		retry    RetryStrategy
	}{
		{"ConfigError", ConfigError("x"), CategoryConfig, SeverityFatal, RetryNever},
		{"ValidationError", ValidationError("x"), CategoryValidation, SeverityError, RetryNever},
		{"NotFoundError", NotFoundError("x"), CategoryNotFound, SeverityError, RetryNever},
		{"DuplicateError", DuplicateError("x"), CategoryAlreadyExists, SeverityError, RetryUserAction},
		{"UnsupportedError", UnsupportedError("x"), CategoryUnsupported, SeverityError, RetryNever},
		{"network", NewError(CategoryNetwork, "x"), CategoryNetwork, SeverityError, RetryBackoff},
		{"publish", NewError(CategoryPublish, "x"), CategoryPublish, SeverityError, RetryNever},
		{"storage", NewError(CategoryStorage, "x"), CategoryStorage, SeverityError, RetryBackoff},
		{"RuntimeError", RuntimeError("x"), CategoryRuntime, SeverityError, RetryNever},
		{"InternalError", InternalError("x"), CategoryInternal, SeverityFatal, RetryNever},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.builder.Build()
			assert.Equal(t, tt.category, err.Category())
			assert.Equal(t, tt.severity, err.Severity())
			assert.Equal(t, tt.retry, err.RetryStrategy())
		})
	}
}

func TestErrorContextSetCopies(t *testing.T) {
	a := ErrorContext{}.Set("key1", "value1")
	b := a.Set("key2", "value2")

	assert.Len(t, a, 1)
	assert.Equal(t, ErrorContext{"key1": "value1", "key2": "value2"}, b)
	assert.Equal(t, ErrorContext{"k": 1}, ErrorContext(nil).Set("k", 1))
}

func TestLogAttrsSortedByKey(t *testing.T) {
	err := NewError(CategoryPublish, "publish failed").
		WithContext("publisher", "influx").
		WithContext("metric", "mc_tps").
		Build()

	attrs := err.LogAttrs()
	require.Len(t, attrs, 3)
	assert.Equal(t, "category", attrs[0].Key)
	assert.Equal(t, "publish", attrs[0].Value.String())
	assert.Equal(t, "metric", attrs[1].Key)
	assert.Equal(t, "publisher", attrs[2].Key)
}

func TestPredicatesSeeIntoJoinedErrors(t *testing.T) {
	lookup := NotFoundError("publisher not registered").Build()
	joined := WrapError(errors.Join(errors.New("redis: timeout"), fmt.Errorf("store: %w", lookup)),
		CategoryPublish, "broadcast delivery failed").Build()

	assert.Equal(t, CategoryPublish, GetCategory(joined))
	c, ok := AsClassified(joined)
	require.True(t, ok)
	assert.Equal(t, CategoryPublish, c.Category(), "the outer wrap decides how the failure is reported")
	assert.True(t, IsNotFound(joined))
	assert.False(t, IsDuplicate(joined))
}

func TestBuilderReuse(t *testing.T) {
	b := ValidationError("bad field").WithContext("field", "max")
	first := b.Build()
	second := b.WithContext("field", "min").Build()

	assert.Equal(t, "max", first.Context()["field"])
	assert.Equal(t, "min", second.Context()["field"])
}
