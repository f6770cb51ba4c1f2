package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthentication is matched by every AuthenticationError.
	ErrAuthentication = errors.New("authentication failed")

	// ErrNoSession is returned by Resume when no usable session is stored.
	ErrNoSession = errors.New("no stored session")

	// ErrMFARequired is returned when the account requires an MFA code and none was given.
	ErrMFARequired = errors.New("mfa code required")

	// ErrVerificationTimeout is returned when the verification workflow is not approved in time.
	ErrVerificationTimeout = errors.New("timed out waiting for verification")

	// ErrPromptRequired is returned when a verification code is needed but no prompt is configured.
	ErrPromptRequired = errors.New("verification code required but no prompt is configured")
)

// AuthenticationError is a login rejected by the API.
type AuthenticationError struct {
	Message    string
	StatusCode int
}

func (e *AuthenticationError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("authentication failed (status %d): %s", e.StatusCode, e.Message)
	}
	return "authentication failed: " + e.Message
}

func (e *AuthenticationError) Is(target error) bool {
	return target == ErrAuthentication
}
