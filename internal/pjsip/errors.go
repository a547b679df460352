package pjsip

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound means the endpoint id has no sections in the file.
	ErrNotFound = errors.New("endpoint not found")

	// ErrDuplicate means a create collided with an existing id.
	ErrDuplicate = errors.New("endpoint already exists")
)

// Violation is one validation finding. Warnings do not block a write.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Warning bool   `json:"warning,omitempty"`
}

// ValidationError carries every violation found in one pass so the
// caller can report all problems at once.
type ValidationError struct {
	Violations []Violation
}

func (e *ValidationError) Error() string {
	var parts []string
	for _, v := range e.Violations {
		parts = append(parts, fmt.Sprintf("%s: %s", v.Field, v.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Fatal reports whether any violation is blocking.
func Fatal(violations []Violation) bool {
	for _, v := range violations {
		if !v.Warning {
			return true
		}
	}
	return false
}

// Warnings extracts the non-fatal findings as strings.
func Warnings(violations []Violation) []string {
	var out []string
	for _, v := range violations {
		if v.Warning {
			out = append(out, fmt.Sprintf("%s: %s", v.Field, v.Message))
		}
	}
	return out
}
