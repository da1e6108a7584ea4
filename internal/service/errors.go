package service

import (
	"errors"
	"sort"
	"strings"
)

// Assessment errors. Handlers map them to response codes with errors.Is.
var (
	ErrAttemptNotFound = errors.New("test attempt not found")
	ErrLeaveNotFound   = errors.New("leave request not found")
	ErrForbidden       = errors.New("resource belongs to another student")
	ErrAttemptClosed   = errors.New("test attempt is closed")
	ErrDuplicateAnswer = errors.New("question already answered")
	ErrUnknownQuestion = errors.New("question is not part of this attempt")
	ErrRoundLocked     = errors.New("question belongs to a round that is not open")
	ErrConflict        = errors.New("test attempt was modified concurrently, retry")
)

// ValidationError carries field-level messages for a rejected request.
type ValidationError struct {
	Fields map[string]string
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

// newValidationError builds a ValidationError for a single field.
func newValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}
