// Package errdefs holds the error vocabulary shared across the tool.
// Call sites wrap these sentinels with fmt.Errorf("...: %w", ...) so
// callers can test categories with errors.Is while messages keep the
// package name, remote identity or offending path.
package errdefs

import (
	"errors"
	"fmt"
)

var (
	// ErrNoAvailableAsset is returned when asset selection legitimately
	// produces an empty list for the current host.
	ErrNoAvailableAsset = errors.New("no available asset for this platform")

	// ErrNotFound is returned when a package name is absent from the registry.
	ErrNotFound = errors.New("package not found")

	// ErrNotResolved is returned when an operation needs the remote
	// owner/repo identity before it has been resolved.
	ErrNotResolved = errors.New("remote identity not resolved")

	// ErrInvalidIdentifier is returned for malformed package names or URLs.
	ErrInvalidIdentifier = errors.New("invalid package identifier")

	// ErrUnsafeRemoval is fatal: a tracked file escapes the install root.
	ErrUnsafeRemoval = errors.New("unsafe removal: tracked file escapes the install root")

	// ErrRegistry is fatal: the registry could not be opened or a
	// transaction could not be committed.
	ErrRegistry = errors.New("registry failure")

	// ErrPlatformUnsupported is returned when no installer strategy
	// exists for the host platform.
	ErrPlatformUnsupported = errors.New("platform not supported")
)

// RemoteAPIError reports an unexpected status from the remote forge API.
type RemoteAPIError struct {
	Status int
	URL    string
}

func (e *RemoteAPIError) Error() string {
	return fmt.Sprintf("remote API returned status %d for %s", e.Status, e.URL)
}

// IsFatal reports whether err must abort the current operation instead
// of being collected as a per-package failure.
func IsFatal(err error) bool {
	return errors.Is(err, ErrUnsafeRemoval) || errors.Is(err, ErrRegistry)
}
