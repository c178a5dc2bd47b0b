package repository

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrProductNotFound = errors.New("product not found")
	ErrDuplicateEmail  = errors.New("email already exists")
	ErrInvalidID       = errors.New("invalid id format")

	// ErrUnavailable marks failures to reach the backing store, including timeouts.
	ErrUnavailable = errors.New("store unavailable")
)

// Unavailable wraps err so that it matches ErrUnavailable while keeping the cause.
func Unavailable(err error) error {
	if err == nil || errors.Is(err, ErrUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}

// IsContextError reports whether err came from a cancelled or expired context.
func IsContextError(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}
