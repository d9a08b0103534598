package toolrunner

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrTimeout marks invocations terminated for exceeding the class budget.
	ErrTimeout = errors.New("tool timeout")
	// ErrToolFailure marks abnormal exits and unusable tool output.
	ErrToolFailure = errors.New("tool failure")
	// ErrCancelled marks caller-initiated abandonment, distinguished from
	// timeout so callers do not apply misleading retry logic.
	ErrCancelled = errors.New("cancelled")
	// ErrParse marks output that ran to completion but could not be decoded.
	ErrParse = errors.New("parse failure")
	// ErrValidation marks malformed invocations rejected before launch.
	ErrValidation = errors.New("validation error")
)

// Wrap builds an error message that includes tool context while tagging it
// with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, class, operation, message string, err error) error {
	detail := buildDetail(class, operation, message)
	if marker == nil {
		marker = ErrToolFailure
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// HTTPStatus maps a runner error to the status code the API layer should
// emit when the failed artifact was the request's primary subject.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, ErrCancelled):
		return 499 // client closed request
	default:
		return http.StatusInternalServerError
	}
}

func buildDetail(class, operation, message string) string {
	parts := make([]string, 0, 3)
	if class = strings.TrimSpace(class); class != "" {
		parts = append(parts, class)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "tool failure"
	}
	return strings.Join(parts, ": ")
}
