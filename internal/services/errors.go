package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation marks malformed input rejected before staging.
	ErrValidation = errors.New("validation error")
	// ErrResolver marks a metadata resolver transport or protocol failure.
	ErrResolver = errors.New("resolver error")
	// ErrTimeout marks a resolver call that exceeded its deadline.
	ErrTimeout = errors.New("timeout")
	// ErrMergeConflict marks an external-id collision with conflicting
	// core fields; never auto-resolved.
	ErrMergeConflict = errors.New("merge conflict")
	// ErrNotFound marks a lookup that returned nothing.
	ErrNotFound = errors.New("not found")
	// ErrTransient marks any other retryable failure.
	ErrTransient = errors.New("transient failure")
)

// Wrap builds an error that includes component context while tagging it
// with the provided marker for later classification. The marker should
// be one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Classify maps an error to the kind label used in run summaries.
func Classify(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMergeConflict):
		return "merge_conflict"
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, ErrResolver):
		return "resolution"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "transient"
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
