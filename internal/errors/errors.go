package errors

import (
	"errors"
	"fmt"
)

// Error taxonomy for the check-in automator. Every failure surfaced by a
// component wraps one of these sentinels so callers can branch with
// errors.Is instead of inspecting message text.
var (
	// Boundary errors
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")

	// Remote endpoint errors
	ErrTransport = errors.New("remote endpoint unreachable")
	ErrProtocol  = errors.New("unexpected response from remote endpoint")

	// Lifecycle errors
	ErrExpired = errors.New("past validity window")

	// Check-in endpoint semantic rejection (not an auth problem)
	ErrDomainRejected = errors.New("check-in rejected")

	// General errors
	ErrInternal = errors.New("internal error")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
