package container

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNamespaceNotFound is returned when no namespace root covers a module
	ErrNamespaceNotFound = errors.New("namespace not found")
	// ErrNamespaceConflict is returned when a namespace is registered twice with different roots
	ErrNamespaceConflict = errors.New("namespace conflict")
	// ErrModuleNotRegistered is returned when a module has no factory or wrapper
	ErrModuleNotRegistered = errors.New("module not registered")
	// ErrInvalidID is returned when no parser chunk understands an identifier
	ErrInvalidID = errors.New("invalid dependency identifier")
	// ErrCircularResolution is returned when a module depends on itself while being built
	ErrCircularResolution = errors.New("circular resolution")
)

// NamespaceConflictError reports a namespace already bound to another root
type NamespaceConflictError struct {
	Existing  NamespaceRoot
	Requested NamespaceRoot
}

func (e *NamespaceConflictError) Error() string {
	return fmt.Sprintf("namespace %s already maps to %s (.%s), cannot map to %s (.%s)",
		e.Existing.Namespace, e.Existing.Root, e.Existing.Ext, e.Requested.Root, e.Requested.Ext)
}

func (e *NamespaceConflictError) Unwrap() error {
	return ErrNamespaceConflict
}

// ResolutionCycleError reports the chain of modules that led back to itself
type ResolutionCycleError struct {
	Chain []string
}

func (e *ResolutionCycleError) Error() string {
	return fmt.Sprintf("circular resolution: %s", strings.Join(e.Chain, " -> "))
}

func (e *ResolutionCycleError) Unwrap() error {
	return ErrCircularResolution
}
