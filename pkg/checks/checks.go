// Package checks validates generated project directories against the
// configuration that produced them. Each check is independent, read-only,
// and order-independent; the first failed expectation aborts with a
// classified error naming the missing artifact.
package checks

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dsforge/dsforge/pkg/envfile"
)

// PythonSpec is the pinned runtime every generated environment must declare.
const PythonSpec = "python=3.10.9"

// RequiredDirs are the directories every generated project must contain,
// regardless of configuration.
var RequiredDirs = []string{".git", "data"}

// RequiredFiles are the top-level files every generated project must
// contain, regardless of configuration. Linter and CI files are checked
// separately against their own dimensions.
var RequiredFiles = []string{
	".commitlintrc.yaml",
	".gitattributes",
	".gitignore",
	".pre-commit-config.yaml",
	".prettierrc",
	"check_commit_msgs.sh",
	"environment.yaml",
	"pyproject.toml",
	"README.md",
}

// cicdConfigs maps each supported CI flavor to its config file.
var cicdConfigs = map[string]string{
	"gitlab": ".gitlab-ci.yml",
}

// linterConfigs maps each supported linter to its config file.
var linterConfigs = map[string]string{
	"pylint": ".pylintrc",
	"ruff":   "ruff.toml",
}

// BaseFiles asserts the fixed set of required directories and files exists.
func BaseFiles(dir string) error {
	for _, d := range RequiredDirs {
		path := filepath.Join(dir, d)
		info, err := os.Stat(path)
		if err != nil || !info.IsDir() {
			return NewMissingFile("base", path)
		}
	}
	for _, f := range RequiredFiles {
		path := filepath.Join(dir, f)
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			return NewMissingFile("base", path)
		}
	}
	return nil
}

// Environment parses the environment specification file, asserts the pinned
// runtime is declared, and returns the parsed file for downstream checks.
func Environment(dir string) (*envfile.File, error) {
	f, err := envfile.Load(filepath.Join(dir, envfile.FileName))
	if err != nil {
		return nil, err
	}
	if !f.HasSpec(PythonSpec) {
		return nil, NewMissingDependency("python_version", PythonSpec)
	}
	return f, nil
}

// CICD asserts the selected CI flavor's config file exists, or that every
// known CI config is absent when the flavor is "none". Unrecognized flavors
// fail with an explicit unsupported-option error rather than a silent pass.
func CICD(dir, flavor string) error {
	if flavor == "none" {
		for _, fname := range cicdConfigs {
			path := filepath.Join(dir, fname)
			if _, err := os.Stat(path); err == nil {
				return NewUnexpectedFile("cicd_configuration", path)
			}
		}
		return nil
	}

	fname, ok := cicdConfigs[flavor]
	if !ok {
		return NewUnsupportedOption("cicd_configuration", flavor)
	}

	path := filepath.Join(dir, fname)
	if _, err := os.Stat(path); err != nil {
		return NewMissingFile("cicd_configuration", path)
	}
	return nil
}

// Linter asserts the selected linter is declared as a dependency and that
// its config file exists. Unrecognized linter names fail explicitly.
func Linter(dir string, deps []string, linter string) error {
	fname, ok := linterConfigs[linter]
	if !ok {
		return NewUnsupportedOption("linter_name", linter)
	}

	if !containsString(deps, linter) {
		return NewMissingDependency("linter_name", linter)
	}

	path := filepath.Join(dir, fname)
	if _, err := os.Stat(path); err != nil {
		return NewMissingFile("linter_name", path)
	}
	return nil
}

// jupyterPackages are the notebook runtime and its quality-check companion,
// present together or not at all.
var jupyterPackages = []string{"jupyter", "nbqa"}

// Jupyter asserts presence ("yes") or absence ("no") of the notebook tooling
// packages among the dependencies. Any other toggle value fails explicitly.
func Jupyter(deps []string, installJupyter string) error {
	switch installJupyter {
	case "yes":
		for _, pkg := range jupyterPackages {
			if !containsString(deps, pkg) {
				return NewMissingDependency("install_jupyter", pkg)
			}
		}
		return nil
	case "no":
		for _, pkg := range jupyterPackages {
			if containsString(deps, pkg) {
				return NewUnexpectedDependency("install_jupyter", pkg)
			}
		}
		return nil
	default:
		return NewInvalidToggle("install_jupyter", installJupyter)
	}
}

// Report summarizes a validated project for reporting and policy input.
type Report struct {
	// Dir is the validated project directory.
	Dir string `json:"dir"`

	// Dependencies are the raw dependency specifiers from the environment
	// file.
	Dependencies []string `json:"dependencies"`

	// DependencyNames are the version-stripped dependency names.
	DependencyNames []string `json:"dependency_names"`

	// Passed lists the checks that ran successfully, in execution order.
	Passed []string `json:"passed"`
}

// Project runs all static checks against a generated project directory for
// the given configuration dimensions. Checks run in sequence; the first
// failure aborts and is returned alongside a partial report.
func Project(dir, cicd, linter, installJupyter string) (*Report, error) {
	report := &Report{Dir: dir}

	if err := BaseFiles(dir); err != nil {
		return report, fmt.Errorf("base files: %w", err)
	}
	report.Passed = append(report.Passed, "base_files")

	env, err := Environment(dir)
	if err != nil {
		return report, fmt.Errorf("environment: %w", err)
	}
	report.Dependencies = env.Dependencies
	report.DependencyNames = env.DependencyNames()
	report.Passed = append(report.Passed, "environment")

	if err := CICD(dir, cicd); err != nil {
		return report, fmt.Errorf("cicd configuration: %w", err)
	}
	report.Passed = append(report.Passed, "cicd_configuration")

	if err := Linter(dir, report.DependencyNames, linter); err != nil {
		return report, fmt.Errorf("linter configuration: %w", err)
	}
	report.Passed = append(report.Passed, "linter_configuration")

	if err := Jupyter(report.DependencyNames, installJupyter); err != nil {
		return report, fmt.Errorf("jupyter configuration: %w", err)
	}
	report.Passed = append(report.Passed, "jupyter_configuration")

	return report, nil
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
