package authz

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthenticated means the request carries no valid session.
	ErrUnauthenticated = errors.New("authz: unauthenticated")
	// ErrUnauthorized means the session's tier is too low for the operation.
	ErrUnauthorized = errors.New("authz: unauthorized")
	// ErrNotFound means the requested resource does not exist.
	ErrNotFound = errors.New("authz: not found")
)

// ValidationError reports a malformed request body.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// ProviderError wraps a failure of the identity provider: unreachable, timed
// out, or a malformed answer. Fingerprint identifies the credential in logs.
type ProviderError struct {
	Op          string
	Fingerprint string
	Err         error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("identity provider %s: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// DataStoreError wraps a failure of the profile or notification store.
type DataStoreError struct {
	Op  string
	Err error
}

func (e *DataStoreError) Error() string {
	return fmt.Sprintf("data store %s: %v", e.Op, e.Err)
}

func (e *DataStoreError) Unwrap() error {
	return e.Err
}

// IsCollaboratorError reports whether err came from the identity provider or the data store.
func IsCollaboratorError(err error) bool {
	var pe *ProviderError
	var de *DataStoreError
	return errors.As(err, &pe) || errors.As(err, &de)
}
