package plugins

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const (
	// DefaultExt is the source file extension used when an autoload block omits one
	DefaultExt = "js"
)

var (
	// ErrMissingDescriptorField marks a malformed entry inside a descriptor's di block
	ErrMissingDescriptorField = errors.New("missing or malformed descriptor field")
	// ErrDuplicatePlugin is returned when two discovered descriptors share a name
	ErrDuplicatePlugin = errors.New("duplicate plugin name")
	// ErrInvalidSphere is returned when a sphere value is not one of back, shared, front
	ErrInvalidSphere = errors.New("invalid sphere")
)

// Descriptor is the passive record kept for every discovered plugin
type Descriptor struct {
	Name         string   `json:"name" yaml:"name"`
	Version      string   `json:"version,omitempty" yaml:"version,omitempty"`
	Path         string   `json:"path" yaml:"-"`                                        // Absolute plugin root
	Dependencies []string `json:"dependencies,omitempty" yaml:"dependencies,omitempty"` // Other plugin names, declared order
	DI           *DIDecl  `json:"di,omitempty" yaml:"di,omitempty"`                     // nil when nothing is declared for the container
	Source       string   `json:"source,omitempty" yaml:"-"`                            // Descriptor file
}

// Autoload returns the autoload declaration or nil
func (d *Descriptor) Autoload() *Autoload {
	if d == nil || d.DI == nil {
		return nil
	}
	return d.DI.Autoload
}

// Replaces returns the symbol replacement rules in declaration order
func (d *Descriptor) Replaces() []Rule {
	if d == nil || d.DI == nil {
		return nil
	}
	return d.DI.Replaces
}

// Proxies returns the proxy rules in declaration order
func (d *Descriptor) Proxies() []Rule {
	if d == nil || d.DI == nil {
		return nil
	}
	return d.DI.Proxy
}

// Clone returns a deep copy
func (d *Descriptor) Clone() *Descriptor {
	if d == nil {
		return nil
	}
	out := *d
	out.Dependencies = append([]string(nil), d.Dependencies...)
	if d.DI != nil {
		di := DIDecl{
			Replaces: append([]Rule(nil), d.DI.Replaces...),
			Proxy:    append([]Rule(nil), d.DI.Proxy...),
		}
		if d.DI.Autoload != nil {
			auto := *d.DI.Autoload
			di.Autoload = &auto
		}
		out.DI = &di
	}
	return &out
}

// DIDecl holds what a plugin declares for the DI container
type DIDecl struct {
	Autoload *Autoload `json:"autoload,omitempty" yaml:"autoload,omitempty"`
	Replaces []Rule    `json:"replaces,omitempty" yaml:"replaces,omitempty"`
	Proxy    []Rule    `json:"proxy,omitempty" yaml:"proxy,omitempty"`
}

// Autoload maps a namespace prefix to a directory under the plugin root
type Autoload struct {
	Namespace string `json:"ns" yaml:"ns"`
	Path      string `json:"path" yaml:"path"`
	Ext       string `json:"ext,omitempty" yaml:"ext,omitempty"`
}

// Extension returns Ext or DefaultExt
func (a *Autoload) Extension() string {
	if a.Ext == "" {
		return DefaultExt
	}
	return a.Ext
}

// Rule is one replacement or proxy declaration
type Rule struct {
	From   string `json:"from" yaml:"from"`
	To     string `json:"to" yaml:"to"`
	Sphere Sphere `json:"sphere" yaml:"sphere"`
}

// Sphere is the visibility area a rule applies to
type Sphere string

const (
	SphereBack   Sphere = "back"
	SphereShared Sphere = "shared"
	SphereFront  Sphere = "front"
)

// ParseSphere parses a sphere tag. Matching is case-insensitive and accepts
// the long forms "backend" and "frontend".
func ParseSphere(s string) (Sphere, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "back", "backend":
		return SphereBack, nil
	case "shared":
		return SphereShared, nil
	case "front", "frontend":
		return SphereFront, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidSphere, s)
	}
}

// Backend reports whether rules of this sphere apply to a backend container
func (s Sphere) Backend() bool {
	return s == SphereBack || s == SphereShared
}

// FieldError reports one malformed entry of a descriptor. The entry is
// skipped; the rest of the descriptor is kept.
type FieldError struct {
	Plugin string
	Field  string // e.g. "di.replaces"
	Index  int    // -1 when the whole field is malformed
	Reason string
}

func (e *FieldError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("plugin %s: %s: %s", e.Plugin, e.Field, e.Reason)
	}
	return fmt.Sprintf("plugin %s: %s[%d]: %s", e.Plugin, e.Field, e.Index, e.Reason)
}

func (e *FieldError) Unwrap() error {
	return ErrMissingDescriptorField
}

// ValidationError represents a descriptor validation error
type ValidationError struct {
	Field    string `json:"field"`
	Message  string `json:"message"`
	Severity string `json:"severity"` // error, warning
}

func (e ValidationError) String() string {
	return fmt.Sprintf("%s: %s (%s)", e.Field, e.Message, e.Severity)
}

// Discoverer produces a populated registry for a project root
type Discoverer interface {
	Discover(ctx context.Context, projectRoot string) (*Registry, error)
}
