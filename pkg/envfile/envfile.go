// Package envfile parses the environment specification file emitted into
// every generated project. Only the dependency list is inspected; the file
// is otherwise an opaque payload for the external environment manager.
package envfile

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileName is the environment specification file at a generated project root.
const FileName = "environment.yaml"

// File is a parsed environment specification.
type File struct {
	// Name is the environment name declared in the file.
	Name string `yaml:"name"`

	// Channels lists the package channels, in priority order.
	Channels []string `yaml:"channels,omitempty"`

	// Dependencies holds the ordered dependency specifiers. Each entry is
	// either a bare package name or a pinned "name=version" form.
	Dependencies []string `yaml:"dependencies"`
}

// Load reads and parses an environment specification from disk.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read environment file: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse decodes an environment specification document.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse environment file: %w", err)
	}
	if len(f.Dependencies) == 0 {
		return nil, fmt.Errorf("environment file declares no dependencies")
	}
	return &f, nil
}

// DependencyNames returns the version-stripped dependency name list, in
// declaration order.
func (f *File) DependencyNames() []string {
	names := make([]string, 0, len(f.Dependencies))
	for _, spec := range f.Dependencies {
		names = append(names, SpecName(spec))
	}
	return names
}

// HasSpec reports whether the exact specifier (including any version pin)
// appears among the dependencies.
func (f *File) HasSpec(spec string) bool {
	for _, dep := range f.Dependencies {
		if dep == spec {
			return true
		}
	}
	return false
}

// HasDependency reports whether the named package appears among the
// dependencies, regardless of version pin.
func (f *File) HasDependency(name string) bool {
	for _, dep := range f.Dependencies {
		if SpecName(dep) == name {
			return true
		}
	}
	return false
}

// SpecName strips the version (and any build string) from a dependency
// specifier: "python=3.10.9" becomes "python".
func SpecName(spec string) string {
	if idx := strings.Index(spec, "="); idx >= 0 {
		return spec[:idx]
	}
	return spec
}
