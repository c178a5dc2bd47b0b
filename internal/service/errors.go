package service

import (
	"errors"
	"fmt"

	"github.com/catalog/catalog-go/internal/repository"
)

// ErrUnauthorized is matched by every token rejection so callers can answer them identically.
var ErrUnauthorized = errors.New("could not validate credentials")

var (
	ErrInvalidToken   = fmt.Errorf("%w: invalid token", ErrUnauthorized)
	ErrTokenExpired   = fmt.Errorf("%w: token expired", ErrUnauthorized)
	ErrUnknownSubject = fmt.Errorf("%w: unknown subject", ErrUnauthorized)
)

var (
	ErrInvalidCredentials = errors.New("incorrect email or password")
	ErrEmailTaken         = errors.New("user with this email already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrProductNotFound    = errors.New("product not found")
	ErrCreatorNotFound    = errors.New("creator not found")
	ErrInvalidID          = errors.New("invalid id format")

	// ErrUpstreamUnavailable means a backing store could not be reached in time.
	ErrUpstreamUnavailable = errors.New("service temporarily unavailable")
)

// ValidationError reports a request field that failed validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// storeError translates repository failures shared by every operation.
// Not-found sentinels are left to the caller since their meaning depends on the operation.
func storeError(err error) error {
	switch {
	case errors.Is(err, repository.ErrUnavailable):
		return fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	case errors.Is(err, repository.ErrInvalidID):
		return ErrInvalidID
	default:
		return err
	}
}
