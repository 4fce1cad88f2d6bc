// Package precommit runs the pre-commit hook tool against every file in a
// generated project, inside the project's isolated environment. A non-zero
// exit from the tool is a validation failure for that configuration.
package precommit

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dsforge/dsforge/pkg/envmgr"
)

// command is the hook-runner invocation: operate on all tracked files.
var command = []string{"pre-commit", "run", "--all-files"}

// Runner executes pre-commit inside generated project environments.
type Runner struct {
	manager envmgr.Manager
	logger  zerolog.Logger
}

// NewRunner creates a pre-commit runner backed by the given environment
// manager.
func NewRunner(manager envmgr.Manager, logger zerolog.Logger) *Runner {
	return &Runner{
		manager: manager,
		logger:  logger.With().Str("component", "precommit").Logger(),
	}
}

// Run invokes the hook tool across all files with projectDir as the working
// context. The caller's working directory is never touched; the context is
// confined to the subprocess.
func (r *Runner) Run(ctx context.Context, envName, projectDir string) error {
	r.logger.Info().
		Str("env", envName).
		Str("dir", projectDir).
		Msg("running pre-commit hooks")

	if err := r.manager.RunInEnv(ctx, envName, projectDir, command); err != nil {
		return fmt.Errorf("pre-commit hooks failed: %w", err)
	}
	return nil
}
