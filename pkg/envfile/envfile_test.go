package envfile

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

const sampleEnvFile = `name: demo-env
channels:
  - conda-forge
dependencies:
  - python=3.10.9
  - pre-commit=3.3.3
  - ruff=0.0.275
  - jupyter
  - nbqa
`

func TestParse_Dependencies(t *testing.T) {
	f, err := Parse([]byte(sampleEnvFile))
	if err != nil {
		t.Fatalf("failed to parse environment file: %v", err)
	}

	if f.Name != "demo-env" {
		t.Errorf("expected name demo-env, got %q", f.Name)
	}
	if len(f.Dependencies) != 5 {
		t.Fatalf("expected 5 dependencies, got %d", len(f.Dependencies))
	}

	wantNames := []string{"python", "pre-commit", "ruff", "jupyter", "nbqa"}
	if got := f.DependencyNames(); !reflect.DeepEqual(got, wantNames) {
		t.Errorf("unexpected dependency names: %v", got)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not yaml", "dependencies: [unclosed"},
		{"no dependencies", "name: demo-env\nchannels:\n  - conda-forge\n"},
		{"dependency entry is a map", "dependencies:\n  - pip:\n    - black\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.doc)); err == nil {
				t.Errorf("expected parse error for %s", tt.name)
			}
		})
	}
}

func TestHasSpecAndHasDependency(t *testing.T) {
	f, err := Parse([]byte(sampleEnvFile))
	if err != nil {
		t.Fatalf("failed to parse environment file: %v", err)
	}

	if !f.HasSpec("python=3.10.9") {
		t.Error("expected pinned python spec to be present")
	}
	if f.HasSpec("python=3.11.0") {
		t.Error("unexpected python pin matched")
	}
	if !f.HasDependency("ruff") {
		t.Error("expected ruff dependency")
	}
	if f.HasDependency("pylint") {
		t.Error("pylint should not be present")
	}
}

func TestSpecName(t *testing.T) {
	tests := []struct {
		spec string
		want string
	}{
		{"python=3.10.9", "python"},
		{"jupyter", "jupyter"},
		{"numpy=1.24.3=py310h5f9d8c6_0", "numpy"},
	}
	for _, tt := range tests {
		if got := SpecName(tt.spec); got != tt.want {
			t.Errorf("SpecName(%q) = %q, want %q", tt.spec, got, tt.want)
		}
	}
}

func TestLoad_FromDisk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte(sampleEnvFile), 0644); err != nil {
		t.Fatalf("failed to write environment file: %v", err)
	}

	f, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load environment file: %v", err)
	}
	if len(f.Dependencies) != 5 {
		t.Errorf("expected 5 dependencies, got %d", len(f.Dependencies))
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
