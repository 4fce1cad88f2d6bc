package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose    bool
	jsonOutput bool
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "dsforge",
		Short: "dsforge - Data science project generator and template validator",
		Long: `dsforge generates data science projects from templated blueprints and
validates every blueprint option combination before it reaches users.

Features:
  - Blueprint templates with typed option schemas
  - Starlark post-generation hooks
  - Matrix validation: sample option combinations, generate, and check
  - Conda/mamba environment creation with pre-commit runs
  - Policy enforcement via OPA/rego
  - Persistent run history in SQLite`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	// Add subcommands
	rootCmd.AddCommand(newNewCommand())
	rootCmd.AddCommand(newMatrixCommand())
	rootCmd.AddCommand(newCheckCommand())
	rootCmd.AddCommand(newSchemaCommand())
	rootCmd.AddCommand(newRunsCommand())
	rootCmd.AddCommand(newDevCommand())

	return rootCmd
}
