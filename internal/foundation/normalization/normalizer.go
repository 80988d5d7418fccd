// Package normalization maps loosely typed configuration strings onto typed enums.
package normalization

import (
	"fmt"
	"slices"
	"strings"
)

// Normalizer provides type-safe string-to-enum normalization.
type Normalizer[T comparable] struct {
	name         string
	validValues  map[string]T
	defaultValue T
	validKeys    []string // sorted, for error messages
}

// NewNormalizer creates a normalizer for the enum called name. Keys are matched
// case-insensitively with surrounding whitespace ignored.
func NewNormalizer[T comparable](name string, values map[string]T, defaultValue T) *Normalizer[T] {
	normalized := make(map[string]T, len(values))
	keys := make([]string, 0, len(values))
	for k, v := range values {
		key := clean(k)
		normalized[key] = v
		keys = append(keys, key)
	}
	slices.Sort(keys)

	return &Normalizer[T]{
		name:         name,
		validValues:  normalized,
		defaultValue: defaultValue,
		validKeys:    keys,
	}
}

// Normalize returns the enum value for raw, or the default when raw is unknown or empty.
func (n *Normalizer[T]) Normalize(raw string) T {
	if value, ok := n.validValues[clean(raw)]; ok {
		return value
	}
	return n.defaultValue
}

// NormalizeWithError is Normalize for validation: empty input yields the default,
// unknown input yields an error listing the accepted values.
func (n *Normalizer[T]) NormalizeWithError(raw string) (T, error) {
	cleaned := clean(raw)
	if cleaned == "" {
		return n.defaultValue, nil
	}
	if value, ok := n.validValues[cleaned]; ok {
		return value, nil
	}
	var zero T
	return zero, fmt.Errorf("invalid %s %q, valid options: %v", n.name, raw, n.validKeys)
}

// ValidKeys returns all accepted normalized keys.
func (n *Normalizer[T]) ValidKeys() []string {
	return slices.Clone(n.validKeys)
}

func clean(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
