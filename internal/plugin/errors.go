package plugin

import (
	"errors"
	"fmt"
)

var (
	// ErrEntryNotFound is returned when no factory or script matches an entry point.
	ErrEntryNotFound = errors.New("entry point not found")
	// ErrManifestID is returned for manifests without an id.
	ErrManifestID = errors.New("manifest: id is required")
	// ErrManifestMain is returned for manifests without a usable main entry point.
	ErrManifestMain = errors.New("manifest: main must be a dotted entry point")
)

// DiscoveryError reports a package that was skipped during a scan.
type DiscoveryError struct {
	Path string
	Err  error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("discover %s: %v", e.Path, e.Err)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }

// LoadError reports an entry point that could not be resolved or constructed.
type LoadError struct {
	Entry  string
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("load %s (%s): %v", e.Entry, e.Source, e.Err)
	}
	return fmt.Sprintf("load %s: %v", e.Entry, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// InitializationError reports an addon that failed PreInitialize or Initialize.
// The addon is discarded and none of its modules are published.
type InitializationError struct {
	Addon string
	Phase string
	Err   error
}

func (e *InitializationError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Phase, e.Addon, e.Err)
}

func (e *InitializationError) Unwrap() error { return e.Err }
