package plugins

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFieldError(t *testing.T) {
	tests := []struct {
		name     string
		err      *FieldError
		expected string
	}{
		{
			name:     "whole field",
			err:      &FieldError{Plugin: "p", Field: "di", Index: -1, Reason: "must be a mapping"},
			expected: "plugin p: di: must be a mapping",
		},
		{
			name:     "single entry",
			err:      &FieldError{Plugin: "p", Field: "di.replaces", Index: 2, Reason: "to is required"},
			expected: "plugin p: di.replaces[2]: to is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
			assert.True(t, errors.Is(tt.err, ErrMissingDescriptorField))
		})
	}
}

func TestValidationError_String(t *testing.T) {
	v := ValidationError{Field: "name", Message: "Plugin name is required", Severity: "error"}
	assert.Equal(t, "name: Plugin name is required (error)", v.String())
}

func TestAutoload_Extension(t *testing.T) {
	assert.Equal(t, "js", (&Autoload{}).Extension())
	assert.Equal(t, "mjs", (&Autoload{Ext: "mjs"}).Extension())
}

func TestDescriptor_NilAccessors(t *testing.T) {
	var d *Descriptor
	assert.Nil(t, d.Autoload())
	assert.Nil(t, d.Replaces())
	assert.Nil(t, d.Proxies())
}

func TestLoaderImplementsDiscoverer(t *testing.T) {
	var _ Discoverer = NewLoader(nil, nil)
}
