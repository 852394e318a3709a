package deployhook

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrUnauthorized is returned when the target is unknown or the secret
	// does not match. Callers must not be able to tell the two apart.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrEventStreamClosed is returned when publishing to a closed
	// AsyncEventStream.
	ErrEventStreamClosed = errors.New("event stream closed")

	// ErrMalformedRequest is returned when a notification is missing a
	// required field.
	ErrMalformedRequest = errors.New("malformed request")

	// ErrUnavailable is returned when a notification can't be accepted
	// because deployhook is shutting down.
	ErrUnavailable = errors.New("deployhook is shutting down")
)

// DeployError is returned when the deploy action for a target fails.
type DeployError struct {
	Target  string
	Version string
	Err     error
}

func (e *DeployError) Error() string {
	return fmt.Sprintf("deploy %s to %s: %v", VersionString(e.Version), e.Target, e.Err)
}

func (e *DeployError) Unwrap() error { return e.Err }
func (e *DeployError) Cause() error  { return e.Err }

// ValidationError is returned when the configured targets are not valid.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return e.Err.Error()
}

// VersionString returns a printable representation of a version, which may be
// empty when the notification didn't include one.
func VersionString(version string) string {
	if version == "" {
		return "(unknown)"
	}
	return version
}
