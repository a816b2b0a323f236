package kakaogateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

const (
	ErrCodeTimeout      = "TIMEOUT"
	ErrCodeServerError  = "SERVER_ERROR"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeNetworkError = "NETWORK_ERROR"
)

var (
	ErrTimeout      = errors.New(ErrCodeTimeout)
	ErrServerError  = errors.New(ErrCodeServerError)
	ErrUnauthorized = errors.New(ErrCodeUnauthorized)
	ErrNetwork      = errors.New(ErrCodeNetworkError)
)

// RejectedError is a definitive refusal by the provider. Message is the
// provider's own text.
type RejectedError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *RejectedError) Error() string {
	return e.Message
}

// IsTemporary reports whether a later retry of the same request may succeed.
func IsTemporary(err error) bool {
	return errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrServerError) ||
		errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrNetwork)
}

func mapTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout
	}

	return fmt.Errorf("%w: %v", ErrNetwork, err)
}

func mapStatusToError(statusCode int) error {
	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return ErrUnauthorized
	case statusCode >= http.StatusInternalServerError:
		return ErrServerError
	default:
		return nil
	}
}
