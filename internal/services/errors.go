package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExternalTool  = errors.New("external tool error")
	ErrUserCode      = errors.New("user code error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
)

// Wrap builds an error message that includes lifecycle context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrExternalTool
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Stable failure labels used by run history records and log fields.
const (
	ClassUserCode      = "user-code"
	ClassTimeout       = "timeout"
	ClassValidation    = "validation"
	ClassConfiguration = "configuration"
	ClassNotFound      = "not-found"
	ClassExternalTool  = "external-tool"
	ClassUnknown       = "unknown"
)

// Classify maps an error chain to a stable failure label. User-code failures
// win over any other marker on the chain.
func Classify(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUserCode):
		return ClassUserCode
	case errors.Is(err, ErrTimeout):
		return ClassTimeout
	case errors.Is(err, ErrValidation):
		return ClassValidation
	case errors.Is(err, ErrConfiguration):
		return ClassConfiguration
	case errors.Is(err, ErrNotFound):
		return ClassNotFound
	case errors.Is(err, ErrExternalTool):
		return ClassExternalTool
	default:
		return ClassUnknown
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
