// Package envmgr drives the external conda-family package manager that
// creates and destroys isolated runtime environments for generated
// projects. Environment names are unique per generation, so removal never
// interferes with other runs.
package envmgr

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"

	"github.com/rs/zerolog"
)

// Manager creates, destroys, and executes commands inside named
// environments.
type Manager interface {
	// Name identifies the underlying package manager binary.
	Name() string

	// CreateEnv builds a named environment from an environment
	// specification file.
	CreateEnv(ctx context.Context, envName, envFile string) error

	// RemoveEnv tears a named environment down. Removing an environment
	// that does not exist is an error from the underlying tool.
	RemoveEnv(ctx context.Context, envName string) error

	// RunInEnv executes a command inside the named environment with the
	// given working directory. A non-zero exit is returned as an error
	// carrying the captured stderr.
	RunInEnv(ctx context.Context, envName, workDir string, args []string) error
}

// CommandRunner abstracts blocking subprocess execution.
type CommandRunner interface {
	Run(ctx context.Context, workDir, name string, args ...string) (stdout, stderr string, err error)
}

// execRunner runs commands with os/exec.
type execRunner struct {
	logger zerolog.Logger
}

// NewExecRunner returns the default subprocess-backed command runner.
func NewExecRunner(logger zerolog.Logger) CommandRunner {
	return &execRunner{logger: logger.With().Str("component", "exec-runner").Logger()}
}

func (r *execRunner) Run(ctx context.Context, workDir, name string, args ...string) (string, string, error) {
	r.logger.Debug().
		Str("binary", name).
		Strs("args", args).
		Str("dir", workDir).
		Msg("executing command")

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = workDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

// detectionOrder lists the supported binaries, fastest first.
var detectionOrder = []string{"micromamba", "mamba", "conda"}

// Detect locates a supported package manager binary on PATH.
func Detect(logger zerolog.Logger) (*CondaManager, error) {
	for _, binary := range detectionOrder {
		if path, err := exec.LookPath(binary); err == nil {
			logger.Debug().Str("binary", path).Msg("detected package manager")
			return NewCondaManager(binary, NewExecRunner(logger), logger), nil
		}
	}
	return nil, fmt.Errorf("no package manager found on PATH (tried %v)", detectionOrder)
}

// CondaManager implements Manager over a conda-family binary.
type CondaManager struct {
	binary string
	runner CommandRunner
	logger zerolog.Logger
}

// NewCondaManager creates a manager for the given binary. The runner is
// injectable for tests.
func NewCondaManager(binary string, runner CommandRunner, logger zerolog.Logger) *CondaManager {
	return &CondaManager{
		binary: binary,
		runner: runner,
		logger: logger.With().Str("component", "envmgr").Str("binary", binary).Logger(),
	}
}

// Name returns the managed binary name.
func (m *CondaManager) Name() string {
	return m.binary
}

// CreateEnv builds a named environment from an environment file.
func (m *CondaManager) CreateEnv(ctx context.Context, envName, envFile string) error {
	m.logger.Info().Str("env", envName).Str("file", envFile).Msg("creating environment")

	args := m.createArgs(envName, envFile)
	if _, stderr, err := m.runner.Run(ctx, "", m.binary, args...); err != nil {
		return fmt.Errorf("failed to create environment %s: %w: %s", envName, err, trimOutput(stderr))
	}
	return nil
}

// RemoveEnv tears a named environment down.
func (m *CondaManager) RemoveEnv(ctx context.Context, envName string) error {
	m.logger.Info().Str("env", envName).Msg("removing environment")

	args := []string{"env", "remove", "--yes", "--name", envName}
	if _, stderr, err := m.runner.Run(ctx, "", m.binary, args...); err != nil {
		return fmt.Errorf("failed to remove environment %s: %w: %s", envName, err, trimOutput(stderr))
	}
	return nil
}

// RunInEnv executes a command inside the named environment.
func (m *CondaManager) RunInEnv(ctx context.Context, envName, workDir string, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("no command given for environment %s", envName)
	}

	m.logger.Debug().
		Str("env", envName).
		Str("dir", workDir).
		Strs("command", args).
		Msg("running command in environment")

	runArgs := append([]string{"run", "--name", envName}, args...)
	if _, stderr, err := m.runner.Run(ctx, workDir, m.binary, runArgs...); err != nil {
		return fmt.Errorf("command %v failed in environment %s: %w: %s", args, envName, err, trimOutput(stderr))
	}
	return nil
}

// createArgs builds the environment-creation argument list. micromamba
// dropped the `env create` alias, so it takes the bare `create` form.
func (m *CondaManager) createArgs(envName, envFile string) []string {
	base := filepath.Base(m.binary)
	if base == "micromamba" {
		return []string{"create", "--yes", "--name", envName, "--file", envFile}
	}
	return []string{"env", "create", "--yes", "--name", envName, "--file", envFile}
}

// trimOutput bounds captured stderr for error messages.
func trimOutput(s string) string {
	const limit = 2048
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
