package lifecycle

import (
	"errors"
	"fmt"
)

var (
	// ErrRegistrationClosed is returned by RegisterModule outside Initialize.
	ErrRegistrationClosed = errors.New("module registration is only allowed during Initialize")
	// ErrDuplicateModule is returned when an addon registers two modules with the same key.
	ErrDuplicateModule = errors.New("duplicate module key")
	// ErrInvalidSize is returned for modules with a non-positive size.
	ErrInvalidSize = errors.New("module size must be positive")
	// ErrForeignModule is returned when a batch names a module of another addon.
	ErrForeignModule = errors.New("module belongs to a different addon")
	// ErrNotCommitted is returned for operations on addons that were never registered.
	ErrNotCommitted = errors.New("addon is not registered")
	// ErrModuleNotFound is returned by FindModule.
	ErrModuleNotFound = errors.New("module not found")
	// ErrAmbiguousModule is returned by FindModule when several addons own the key.
	ErrAmbiguousModule = errors.New("module key is ambiguous; qualify it with the addon name")
)

// LifecycleError reports a failed state transition or addon callback.
// The module involved is left in its prior stable state.
type LifecycleError struct {
	Addon  string
	Module string
	Op     string
	Err    error
}

func (e *LifecycleError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Module != "" {
		return fmt.Sprintf("%s %s/%s: %v", e.Op, e.Addon, e.Module, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Addon, e.Err)
}

func (e *LifecycleError) Unwrap() error { return e.Err }
