package plugins

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"
)

// DescriptorFiles are the file names probed, in order, inside a plugin directory.
// YAML is a superset of JSON so both go through the same decoder.
var DescriptorFiles = []string{"plugin.yaml", "plugin.yml", "plugin.json"}

var semverRegex = regexp.MustCompile(`^v?(\d+)\.(\d+)\.(\d+)(-[a-zA-Z0-9.-]+)?(\+[a-zA-Z0-9.-]+)?$`)

// descriptorFile is the on-disk shape. The di block stays a raw node so each
// entry can be decoded, and rejected, on its own.
type descriptorFile struct {
	Name         string    `yaml:"name"`
	Version      string    `yaml:"version"`
	Dependencies []string  `yaml:"dependencies"`
	DI           yaml.Node `yaml:"di"`
}

type autoloadEntry struct {
	Namespace string `yaml:"ns"`
	Path      string `yaml:"path"`
	Ext       string `yaml:"ext"`
}

type ruleEntry struct {
	From   string `yaml:"from"`
	To     string `yaml:"to"`
	Sphere string `yaml:"sphere"`
}

// FindDescriptor returns the descriptor file inside dir, if any
func FindDescriptor(dir string) (string, bool) {
	for _, name := range DescriptorFiles {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}

// LoadDescriptor reads and ingests a descriptor file. The plugin root is the
// file's directory. Field errors are per-entry and non-fatal.
func LoadDescriptor(path string) (*Descriptor, []*FieldError, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read descriptor: %w", err)
	}

	dir, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve plugin path: %w", err)
	}

	desc, issues, err := ParseDescriptor(data, dir)
	if err != nil {
		return nil, nil, err
	}
	desc.Source = path
	return desc, issues, nil
}

// LoadDescriptorFromDir loads the descriptor found in dir
func LoadDescriptorFromDir(dir string) (*Descriptor, []*FieldError, error) {
	path, ok := FindDescriptor(dir)
	if !ok {
		return nil, nil, fmt.Errorf("no descriptor in %s: %w", dir, fs.ErrNotExist)
	}
	return LoadDescriptor(path)
}

// ParseDescriptor decodes descriptor bytes for a plugin rooted at dir
func ParseDescriptor(data []byte, dir string) (*Descriptor, []*FieldError, error) {
	var raw descriptorFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, nil, fmt.Errorf("failed to parse descriptor: %w", err)
	}

	desc := &Descriptor{
		Name:         raw.Name,
		Version:      raw.Version,
		Path:         dir,
		Dependencies: raw.Dependencies,
	}

	var issues []*FieldError
	if raw.DI.Kind != 0 {
		desc.DI, issues = ingestDI(raw.Name, &raw.DI)
	}
	return desc, issues, nil
}

func ingestDI(plugin string, node *yaml.Node) (*DIDecl, []*FieldError) {
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		return nil, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, []*FieldError{{Plugin: plugin, Field: "di", Index: -1, Reason: "must be a mapping"}}
	}

	di := &DIDecl{}
	var issues []*FieldError

	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		switch key.Value {
		case "autoload":
			auto, err := ingestAutoload(plugin, value)
			if err != nil {
				issues = append(issues, err)
				continue
			}
			di.Autoload = auto
		case "replaces":
			rules, errs := ingestRules(plugin, "di.replaces", value)
			di.Replaces = rules
			issues = append(issues, errs...)
		case "proxy":
			rules, errs := ingestRules(plugin, "di.proxy", value)
			di.Proxy = rules
			issues = append(issues, errs...)
		}
	}

	return di, issues
}

func ingestAutoload(plugin string, node *yaml.Node) (*Autoload, *FieldError) {
	if node.Kind != yaml.MappingNode {
		return nil, &FieldError{Plugin: plugin, Field: "di.autoload", Index: -1, Reason: "must be a mapping"}
	}

	var entry autoloadEntry
	if err := node.Decode(&entry); err != nil {
		return nil, &FieldError{Plugin: plugin, Field: "di.autoload", Index: -1, Reason: err.Error()}
	}

	return &Autoload{
		Namespace: entry.Namespace,
		Path:      entry.Path,
		Ext:       entry.Ext,
	}, nil
}

func ingestRules(plugin, field string, node *yaml.Node) ([]Rule, []*FieldError) {
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		return nil, nil
	}
	if node.Kind != yaml.SequenceNode {
		return nil, []*FieldError{{Plugin: plugin, Field: field, Index: -1, Reason: "must be a list"}}
	}

	rules := make([]Rule, 0, len(node.Content))
	var issues []*FieldError

	for i, item := range node.Content {
		fail := func(reason string) {
			issues = append(issues, &FieldError{Plugin: plugin, Field: field, Index: i, Reason: reason})
		}

		if item.Kind != yaml.MappingNode {
			fail("must be a mapping")
			continue
		}

		var entry ruleEntry
		if err := item.Decode(&entry); err != nil {
			fail(err.Error())
			continue
		}
		if entry.From == "" {
			fail("from is required")
			continue
		}
		if entry.To == "" {
			fail("to is required")
			continue
		}
		if entry.Sphere == "" {
			fail("sphere is required")
			continue
		}
		sphere, err := ParseSphere(entry.Sphere)
		if err != nil {
			fail(err.Error())
			continue
		}

		rules = append(rules, Rule{From: entry.From, To: entry.To, Sphere: sphere})
	}

	return rules, issues
}

// SaveDescriptor writes a descriptor as YAML
func SaveDescriptor(desc *Descriptor, path string) error {
	data, err := yaml.Marshal(desc)
	if err != nil {
		return fmt.Errorf("failed to marshal descriptor: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write descriptor: %w", err)
	}

	return nil
}

// ValidateDescriptor performs descriptor-level validation. Errors with
// severity "error" make the plugin unusable; warnings are informational.
func ValidateDescriptor(desc *Descriptor) []ValidationError {
	var errs []ValidationError

	if desc.Name == "" {
		errs = append(errs, ValidationError{
			Field:    "name",
			Message:  "Plugin name is required",
			Severity: "error",
		})
	}

	if desc.Path == "" {
		errs = append(errs, ValidationError{
			Field:    "path",
			Message:  "Plugin path is required",
			Severity: "error",
		})
	} else if info, err := os.Stat(desc.Path); err != nil {
		errs = append(errs, ValidationError{
			Field:    "path",
			Message:  fmt.Sprintf("Plugin path is not readable: %v", err),
			Severity: "error",
		})
	} else if !info.IsDir() {
		errs = append(errs, ValidationError{
			Field:    "path",
			Message:  fmt.Sprintf("Plugin path is not a directory: %s", desc.Path),
			Severity: "error",
		})
	} else if _, err := os.ReadDir(desc.Path); err != nil {
		errs = append(errs, ValidationError{
			Field:    "path",
			Message:  fmt.Sprintf("Plugin path is not readable: %v", err),
			Severity: "error",
		})
	}

	if desc.Version != "" && !isValidSemver(desc.Version) {
		errs = append(errs, ValidationError{
			Field:    "version",
			Message:  fmt.Sprintf("Invalid semver format: %s", desc.Version),
			Severity: "warning",
		})
	}

	for i, dep := range desc.Dependencies {
		if dep == desc.Name && dep != "" {
			errs = append(errs, ValidationError{
				Field:    fmt.Sprintf("dependencies[%d]", i),
				Message:  "Plugin depends on itself",
				Severity: "warning",
			})
		}
	}

	return errs
}

// HasErrors reports whether any validation error has severity "error"
func HasErrors(errs []ValidationError) bool {
	for _, e := range errs {
		if e.Severity == "error" {
			return true
		}
	}
	return false
}

// isValidSemver checks if a version string follows semantic versioning
func isValidSemver(version string) bool {
	return semverRegex.MatchString(version)
}

// IsNotExist reports whether err means no descriptor was found
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
