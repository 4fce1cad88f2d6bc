package scaffold

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/dsforge/dsforge/pkg/blueprints"
	"github.com/dsforge/dsforge/pkg/hooks"
	"github.com/dsforge/dsforge/pkg/schema"
)

// projectRoot is the renderable subtree inside a blueprint.
const projectRoot = "project"

// Blueprint is a parameterized project template: an option schema, a
// renderable project tree, and an optional post-generation hook.
type Blueprint struct {
	name string
	fsys fs.FS
}

// NewBlueprint wraps a blueprint filesystem. The filesystem root must
// contain template.json and a project/ subtree.
func NewBlueprint(name string, fsys fs.FS) *Blueprint {
	return &Blueprint{name: name, fsys: fsys}
}

// Default returns the built-in data-science blueprint.
func Default() *Blueprint {
	return NewBlueprint(blueprints.DefaultName, blueprints.Default())
}

// FromDir opens an on-disk blueprint directory.
func FromDir(path string) (*Blueprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open blueprint: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("blueprint path %s is not a directory", path)
	}

	bp := NewBlueprint(path, os.DirFS(path))
	if _, err := fs.Stat(bp.fsys, schema.SchemaFileName); err != nil {
		return nil, fmt.Errorf("blueprint %s has no %s: %w", path, schema.SchemaFileName, err)
	}
	if _, err := fs.Stat(bp.fsys, projectRoot); err != nil {
		return nil, fmt.Errorf("blueprint %s has no %s/ tree: %w", path, projectRoot, err)
	}
	return bp, nil
}

// Name returns the blueprint name (the built-in name or the source path).
func (b *Blueprint) Name() string {
	return b.name
}

// Schema loads and validates the blueprint's option schema.
func (b *Blueprint) Schema() (*schema.Schema, error) {
	data, err := fs.ReadFile(b.fsys, schema.SchemaFileName)
	if err != nil {
		return nil, fmt.Errorf("failed to read blueprint schema: %w", err)
	}
	return schema.Parse(data)
}

// Hook returns the post-generation hook script, or nil when the blueprint
// has none.
func (b *Blueprint) Hook() ([]byte, error) {
	data, err := fs.ReadFile(b.fsys, hooks.HookFileName)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read post-gen hook: %w", err)
	}
	return data, nil
}
