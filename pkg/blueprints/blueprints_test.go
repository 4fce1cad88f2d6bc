package blueprints

import (
	"io/fs"
	"testing"
)

func TestDefaultBlueprintLayout(t *testing.T) {
	fsys := Default()

	required := []string{
		"template.json",
		"hooks/post_gen.star",
		"project/environment.yaml",
		"project/.pre-commit-config.yaml",
		"project/README.md",
	}
	for _, name := range required {
		if _, err := fs.Stat(fsys, name); err != nil {
			t.Errorf("expected %s in built-in blueprint: %v", name, err)
		}
	}
}
