package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/dsforge/dsforge/pkg/checks"
	"github.com/dsforge/dsforge/pkg/policy"
)

func newCheckCommand() *cobra.Command {
	var (
		cicd       string
		linter     string
		jupyter    string
		withPolicy bool
	)

	cmd := &cobra.Command{
		Use:   "check [dir]",
		Short: "Validate an already generated project directory",
		Long: `Run the static checks against a generated project directory.

The checks verify the base files and directories, the environment file and
its python pin, and the CI, linter, and jupyter artifacts matching the
options the project was generated with.`,
		Example: `  # Check a project generated with the defaults
  dsforge check ./data-science-project --cicd gitlab --linter ruff

  # Include the policy gate
  dsforge check ./data-science-project --with-policy`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			log.Info().
				Str("dir", dir).
				Str("cicd", cicd).
				Str("linter", linter).
				Str("jupyter", jupyter).
				Msg("Checking project")

			report, err := checks.Project(dir, cicd, linter, jupyter)
			if err != nil {
				return fmt.Errorf("check failed after %v: %w", report.Passed, err)
			}

			if withPolicy {
				engine, err := policy.NewEngine(log.Logger)
				if err != nil {
					return fmt.Errorf("failed to create policy engine: %w", err)
				}
				result, err := engine.Evaluate(cmd.Context(), &policy.Input{
					Selection: map[string]string{
						"cicd_configuration": cicd,
						"linter_name":        linter,
						"install_jupyter":    jupyter,
					},
					Dependencies: report.DependencyNames,
				})
				if err != nil {
					return err
				}
				for _, w := range result.Warnings {
					log.Warn().Str("policy", w.Policy).Msg(w.Message)
				}
				if !result.Allowed {
					return fmt.Errorf("policy gate rejected project: %v", result.Violations)
				}
			}

			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}

			fmt.Printf("All checks passed: %v\n", report.Passed)
			return nil
		},
	}

	cmd.Flags().StringVar(&cicd, "cicd", "none", "cicd_configuration the project was generated with")
	cmd.Flags().StringVar(&linter, "linter", "ruff", "linter_name the project was generated with")
	cmd.Flags().StringVar(&jupyter, "jupyter", "no", "install_jupyter the project was generated with")
	cmd.Flags().BoolVar(&withPolicy, "with-policy", false, "also run the policy gate")

	return cmd
}
