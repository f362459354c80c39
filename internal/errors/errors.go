package errors

import (
	"errors"
	"fmt"
)

// Common error types for the secure-health client
var (
	// Session errors
	ErrNoSession      = errors.New("auth information is null")
	ErrNoRefreshToken = errors.New("no refresh token was found")
	ErrInvalidSession = errors.New("invalid session")
	ErrSuperseded     = errors.New("session was replaced by another operation")

	// Credential store errors
	ErrPersistence = errors.New("unable to save auth information")
	ErrStoreClear  = errors.New("unable to clear auth information")
	ErrStoreLoad   = errors.New("unable to load auth information")

	// Identity provider errors
	ErrProviderFailure = errors.New("identity provider failure")
	ErrInvalidState    = errors.New("invalid state parameter")
	ErrNoIDToken       = errors.New("no id token in response")

	// Request errors
	ErrNoAccessToken = errors.New("no access token available")
	ErrHTTPStatus    = errors.New("unexpected http status")

	// Photo errors
	ErrPermissionDenied = errors.New("permission denied")
	ErrNoPhotos         = errors.New("there are no photos to upload")

	// Navigation errors
	ErrUnknownScreen  = errors.New("screen is not available")
	ErrUnsavedChanges = errors.New("there are unsaved changes")

	// General errors
	ErrNotFound    = errors.New("not found")
	ErrValidation  = errors.New("validation failed")
	ErrCanceled    = errors.New("operation canceled")
	ErrUnsupported = errors.New("unsupported operation")
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

// Join returns an error that wraps the given errors
func Join(errs ...error) error {
	return errors.Join(errs...)
}
