package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrWorkerPanic = fmt.Errorf("worker panic")
	ErrEmptyWords  = fmt.Errorf("no words have been found")

	// Caller errors, returned to the originating connection or request only.
	ErrInvalidPayload = fmt.Errorf("invalid payload")
	ErrNotIdentified  = fmt.Errorf("connection not identified")

	// ErrPersistence wraps any failure coming from the underlying store.
	ErrPersistence = fmt.Errorf("persistence failure")

	ErrNotFound           = fmt.Errorf("data not found")
	ErrUserNotFound       = fmt.Errorf("user not found")
	ErrUserAlreadyExists  = fmt.Errorf("user already exists")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrInvalidPassword    = fmt.Errorf("password does not meet complexity requirements")
	ErrTokenGeneration    = fmt.Errorf("token generation failed")
	ErrMalformedHash      = fmt.Errorf("malformed password hash")
	ErrUnauthorized       = fmt.Errorf("unauthorized")

	ErrConnectionClosed = fmt.Errorf("connection closed")
	ErrSendBufferFull   = fmt.Errorf("send buffer full")
	ErrRateLimited      = fmt.Errorf("rate limit exceeded")
)

// HTTPStatus maps a service error to the status code returned by the REST layer
// and the legacy frame transport.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrInvalidPayload), errors.Is(err, ErrInvalidPassword):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrNotIdentified):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUserAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the text that can be exposed to a client for err.
// Unexpected errors are never leaked.
func PublicMessage(err error) string {
	if HTTPStatus(err) == http.StatusInternalServerError {
		if errors.Is(err, ErrPersistence) {
			return ErrPersistence.Error()
		}
		return "internal server error"
	}
	return err.Error()
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrUserNotFound)
}
