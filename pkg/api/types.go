package api

import (
	"time"

	"github.com/platinummonkey/hub/pkg/assembly"
	"github.com/platinummonkey/hub/pkg/plugins"
)

// AssemblyInfo summarises the published assembly
type AssemblyInfo struct {
	RunID      string        `json:"run_id"`
	Source     string        `json:"source"`
	Duration   time.Duration `json:"duration_ns"`
	Plugins    int           `json:"plugins"`
	Levels     int           `json:"levels"`
	Namespaces int           `json:"namespaces"`
	Replaces   int           `json:"replaces"`
	Proxies    int           `json:"proxies"`
	Unknown    []string      `json:"unknown_dependencies,omitempty"`
}

// PluginInfo is one plugin with its position in the load order
type PluginInfo struct {
	*plugins.Descriptor
	Level int `json:"level"`
}

// RulesResponse lists the installed rewrite and proxy tables
type RulesResponse struct {
	Replaces []assembly.Mapping `json:"replaces"`
	Proxies  []assembly.Mapping `json:"proxies"`
}

// ResolveResponse is the source file a module identifier maps to
type ResolveResponse struct {
	ID        string `json:"id"`
	Module    string `json:"module"`
	Export    string `json:"export"`
	Life      string `json:"life"`
	Replaced  string `json:"replaced_by,omitempty"`
	Namespace string `json:"namespace"`
	Path      string `json:"path"`
}
