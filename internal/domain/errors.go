package domain

import (
	"fmt"
	"sort"
	"strings"
)

// ValidationError reports structurally invalid input, keyed by field.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

// Add records another field failure.
func (e *ValidationError) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[field] = message
}

// Empty reports whether no field failed.
func (e *ValidationError) Empty() bool {
	return e == nil || len(e.Fields) == 0
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// BusinessRuleError reports a well-formed request that violates a domain
// invariant such as available stock or catalog price.
type BusinessRuleError struct {
	Field   string
	Message string
}

func (e *BusinessRuleError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ErrInsufficientStock builds the error returned when a sale or adjustment
// asks for more units than are on hand.
func ErrInsufficientStock(requested, available int) *BusinessRuleError {
	return &BusinessRuleError{
		Field:   "quantity_sold",
		Message: fmt.Sprintf("Cannot sell %d units. Only %d available.", requested, available),
	}
}
