package policy

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	return e
}

func goodSelection() map[string]string {
	return map[string]string{
		"python_version":     "3.10.9",
		"env_name":           "a3f9c2e1",
		"install_jupyter":    "no",
		"cicd_configuration": "gitlab",
		"linter_name":        "ruff",
	}
}

func TestEvaluateAllowsCompliantSelection(t *testing.T) {
	e := newTestEngine(t)

	result, err := e.Evaluate(context.Background(), &Input{
		Blueprint: "datascience",
		Selection: goodSelection(),
	})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	if !result.Allowed {
		t.Errorf("expected compliant selection to be allowed, violations: %v", result.Violations)
	}
	if len(result.EvaluatedPolicies) != len(BuiltinPolicies()) {
		t.Errorf("expected %d evaluated policies, got %d", len(BuiltinPolicies()), len(result.EvaluatedPolicies))
	}
}

func TestEvaluateViolations(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(map[string]string)
		wantAllowed bool
		wantPolicy  string
	}{
		{
			name:        "unpinned python version",
			mutate:      func(s map[string]string) { s["python_version"] = "3.10" },
			wantAllowed: false,
			wantPolicy:  "python-version-pin",
		},
		{
			name:        "missing python version",
			mutate:      func(s map[string]string) { delete(s, "python_version") },
			wantAllowed: false,
			wantPolicy:  "python-version-pin",
		},
		{
			name:        "uppercase env name",
			mutate:      func(s map[string]string) { s["env_name"] = "MyEnv" },
			wantAllowed: false,
			wantPolicy:  "env-name-format",
		},
		{
			name: "jupyter without ci is a warning only",
			mutate: func(s map[string]string) {
				s["install_jupyter"] = "yes"
				s["cicd_configuration"] = "none"
			},
			wantAllowed: true,
			wantPolicy:  "notebook-ci-coverage",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t)

			selection := goodSelection()
			tt.mutate(selection)

			result, err := e.Evaluate(context.Background(), &Input{
				Blueprint: "datascience",
				Selection: selection,
			})
			if err != nil {
				t.Fatalf("Evaluate failed: %v", err)
			}

			if result.Allowed != tt.wantAllowed {
				t.Errorf("Allowed = %v, want %v (violations: %v)", result.Allowed, tt.wantAllowed, result.Violations)
			}

			all := append(append([]Violation{}, result.Violations...), result.Warnings...)
			found := false
			for _, v := range all {
				if v.Policy == tt.wantPolicy {
					found = true
				}
			}
			if !found {
				t.Errorf("expected a violation from policy %s, got %v", tt.wantPolicy, all)
			}
		})
	}
}

func TestSetEnabled(t *testing.T) {
	e := newTestEngine(t)

	if err := e.SetEnabled("python-version-pin", false); err != nil {
		t.Fatalf("SetEnabled failed: %v", err)
	}

	selection := goodSelection()
	selection["python_version"] = "3.10"

	result, err := e.Evaluate(context.Background(), &Input{Selection: selection})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if !result.Allowed {
		t.Errorf("expected disabled policy to be skipped, violations: %v", result.Violations)
	}

	if err := e.SetEnabled("no-such-policy", true); err == nil {
		t.Error("expected error enabling unknown policy")
	}
}

func TestLoadPoliciesFromDirectory(t *testing.T) {
	dir := t.TempDir()
	regoFile := filepath.Join(dir, "no-pylint.rego")
	content := `# forbids pylint in favor of ruff
# severity: warning
package dsforge.policies.nopylint

import rego.v1

deny contains violation if {
	input.selection.linter_name == "pylint"
	violation := {
		"message": "pylint is deprecated here, prefer ruff",
		"severity": "warning",
	}
}
`
	if err := os.WriteFile(regoFile, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write policy file: %v", err)
	}

	e := newTestEngine(t)
	if err := e.LoadPolicies(context.Background(), []string{dir}); err != nil {
		t.Fatalf("LoadPolicies failed: %v", err)
	}

	selection := goodSelection()
	selection["linter_name"] = "pylint"

	result, err := e.Evaluate(context.Background(), &Input{Selection: selection})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	if !result.Allowed {
		t.Errorf("warning-severity policy should not block, violations: %v", result.Violations)
	}
	found := false
	for _, w := range result.Warnings {
		if w.Policy == "no-pylint" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected warning from loaded policy, got %v", result.Warnings)
	}
}

func TestParseRegoFileMetadata(t *testing.T) {
	data := []byte("# checks something\n# severity: info\npackage x\n")
	policy := parseRegoFile("/tmp/check-something.rego", data)

	if policy.Name != "check-something" {
		t.Errorf("unexpected name: %s", policy.Name)
	}
	if policy.Description != "checks something" {
		t.Errorf("unexpected description: %s", policy.Description)
	}
	if policy.Severity != SeverityInfo {
		t.Errorf("unexpected severity: %s", policy.Severity)
	}
}
