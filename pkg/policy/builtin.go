package policy

// BuiltinPolicies returns the policies shipped with dsforge.
func BuiltinPolicies() []Policy {
	return []Policy{
		pythonVersionPinPolicy(),
		envNameFormatPolicy(),
		notebookCICoveragePolicy(),
	}
}

// pythonVersionPinPolicy requires an exact python version pin.
func pythonVersionPinPolicy() Policy {
	return Policy{
		Name:        "python-version-pin",
		Description: "Requires python_version to be pinned to an exact major.minor.patch version",
		Severity:    SeverityError,
		Enabled:     true,
		Tags:        []string{"versioning", "reproducibility"},
		Rego: `package dsforge.policies.pythonpin

import rego.v1

deny contains violation if {
	not input.selection.python_version
	violation := {
		"message": "configuration must pin python_version",
		"severity": "error",
	}
}

deny contains violation if {
	version := input.selection.python_version
	not regex.match(` + "`^[0-9]+\\.[0-9]+\\.[0-9]+$`" + `, version)
	violation := {
		"message": sprintf("python_version '%s' must be an exact major.minor.patch pin", [version]),
		"severity": "error",
	}
}
`,
	}
}

// envNameFormatPolicy enforces environment naming conventions.
func envNameFormatPolicy() Policy {
	return Policy{
		Name:        "env-name-format",
		Description: "Enforces environment name conventions (lowercase, alphanumeric, hyphens and underscores)",
		Severity:    SeverityError,
		Enabled:     true,
		Tags:        []string{"naming", "conventions"},
		Rego: `package dsforge.policies.envname

import rego.v1

deny contains violation if {
	not input.selection.env_name
	violation := {
		"message": "configuration must set env_name",
		"severity": "error",
	}
}

deny contains violation if {
	name := input.selection.env_name
	not regex.match("^[a-z0-9][a-z0-9_-]*$", name)
	violation := {
		"message": sprintf("env_name '%s' must be lowercase alphanumeric with hyphens or underscores", [name]),
		"severity": "error",
	}
}
`,
	}
}

// notebookCICoveragePolicy warns when notebooks are enabled without CI.
func notebookCICoveragePolicy() Policy {
	return Policy{
		Name:        "notebook-ci-coverage",
		Description: "Warns when jupyter is installed but no CI configuration will lint notebooks",
		Severity:    SeverityWarning,
		Enabled:     true,
		Tags:        []string{"ci", "notebooks"},
		Rego: `package dsforge.policies.notebookci

import rego.v1

deny contains violation if {
	input.selection.install_jupyter == "yes"
	input.selection.cicd_configuration == "none"
	violation := {
		"message": "jupyter notebooks are enabled but no CI configuration will run nbqa",
		"severity": "warning",
	}
}
`,
	}
}
