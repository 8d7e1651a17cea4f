package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUserInput = errors.New("invalid input")
	ErrIO        = errors.New("i/o failure")
	ErrEncode    = errors.New("encode failure")
	ErrTransport = errors.New("transport failure")
	ErrNotFound  = errors.New("not found")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrIO
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind returns a short label for the marker carried by err, suitable as a
// structured log value.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUserInput):
		return "user_input"
	case errors.Is(err, ErrEncode):
		return "encode"
	case errors.Is(err, ErrTransport):
		return "transport"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrIO):
		return "io"
	default:
		return "unknown"
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
