package checks

import (
	"errors"
	"fmt"
)

// Class classifies a validation failure. Unsupported-option errors flag gaps
// in the harness's own lookup tables rather than blueprint defects, and are
// kept distinct so they are never mistaken for a broken template.
type Class string

const (
	// ClassMissingFile indicates an expected file or directory is absent.
	ClassMissingFile Class = "missing_file"

	// ClassUnexpectedFile indicates a file is present that the selected
	// configuration should have pruned.
	ClassUnexpectedFile Class = "unexpected_file"

	// ClassMissingDependency indicates an expected dependency is absent
	// from the environment specification.
	ClassMissingDependency Class = "missing_dependency"

	// ClassUnexpectedDependency indicates a dependency is present that the
	// selected configuration should have excluded.
	ClassUnexpectedDependency Class = "unexpected_dependency"

	// ClassUnsupportedOption indicates an option value outside the fixed
	// lookup tables; no check is implemented for it.
	ClassUnsupportedOption Class = "unsupported_option"

	// ClassInvalidToggle indicates a toggle value outside its enumerated
	// domain.
	ClassInvalidToggle Class = "invalid_toggle"
)

// Error is a classified validation failure. It names the expected artifact
// and the configuration dimension that produced the expectation.
type Error struct {
	// Class is the failure classification.
	Class Class `json:"class"`

	// Dimension is the configuration dimension the expectation came from
	// (e.g., "cicd_configuration", "linter_name").
	Dimension string `json:"dimension,omitempty"`

	// Artifact is the expected path or dependency name.
	Artifact string `json:"artifact,omitempty"`

	// Message is the human-readable failure description.
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Dimension != "" && e.Artifact != "" {
		return fmt.Sprintf("[%s] %s (dimension=%s, artifact=%s)", e.Class, e.Message, e.Dimension, e.Artifact)
	}
	if e.Artifact != "" {
		return fmt.Sprintf("[%s] %s (artifact=%s)", e.Class, e.Message, e.Artifact)
	}
	return fmt.Sprintf("[%s] %s", e.Class, e.Message)
}

// Is implements error equality for errors.Is: two check errors match when
// their classes match.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Class == t.Class
}

// NewMissingFile reports an expected path that does not exist.
func NewMissingFile(dimension, path string) *Error {
	return &Error{
		Class:     ClassMissingFile,
		Dimension: dimension,
		Artifact:  path,
		Message:   fmt.Sprintf("did not find %s", path),
	}
}

// NewUnexpectedFile reports a path that should have been pruned.
func NewUnexpectedFile(dimension, path string) *Error {
	return &Error{
		Class:     ClassUnexpectedFile,
		Dimension: dimension,
		Artifact:  path,
		Message:   fmt.Sprintf("expected %s to be absent", path),
	}
}

// NewMissingDependency reports an expected dependency that is not declared.
func NewMissingDependency(dimension, dep string) *Error {
	return &Error{
		Class:     ClassMissingDependency,
		Dimension: dimension,
		Artifact:  dep,
		Message:   fmt.Sprintf("did not find %s in %s", dep, "environment.yaml"),
	}
}

// NewUnexpectedDependency reports a dependency that should not be declared.
func NewUnexpectedDependency(dimension, dep string) *Error {
	return &Error{
		Class:     ClassUnexpectedDependency,
		Dimension: dimension,
		Artifact:  dep,
		Message:   fmt.Sprintf("expected %s to be absent from %s", dep, "environment.yaml"),
	}
}

// NewUnsupportedOption reports an option value with no implemented check.
func NewUnsupportedOption(dimension, value string) *Error {
	return &Error{
		Class:     ClassUnsupportedOption,
		Dimension: dimension,
		Artifact:  value,
		Message:   fmt.Sprintf("no check implemented for %s %q", dimension, value),
	}
}

// NewInvalidToggle reports a toggle value outside its enumerated domain.
func NewInvalidToggle(dimension, value string) *Error {
	return &Error{
		Class:     ClassInvalidToggle,
		Dimension: dimension,
		Artifact:  value,
		Message:   fmt.Sprintf("%q is not an option for %s", value, dimension),
	}
}

// IsUnsupportedOption reports whether the error marks a harness gap rather
// than a blueprint defect.
func IsUnsupportedOption(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Class == ClassUnsupportedOption
	}
	return false
}

// ClassOf returns the classification of a check error, or an empty class for
// other errors.
func ClassOf(err error) Class {
	var e *Error
	if errors.As(err, &e) {
		return e.Class
	}
	return ""
}
