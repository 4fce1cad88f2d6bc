package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/dsforge/dsforge/pkg/envmgr"
	"github.com/dsforge/dsforge/pkg/harness"
	"github.com/dsforge/dsforge/pkg/hooks"
	"github.com/dsforge/dsforge/pkg/policy"
	"github.com/dsforge/dsforge/pkg/precommit"
	"github.com/dsforge/dsforge/pkg/scaffold"
	"github.com/dsforge/dsforge/pkg/telemetry"
)

func newMatrixCommand() *cobra.Command {
	var (
		blueprintDir string
		sampleSize   int
		seed         int64
		workDir      string
		keepFailed   bool
		skipEnv      bool
		policyPaths  []string
		dbPath       string
		metricsAddr  string
	)

	cmd := &cobra.Command{
		Use:   "matrix",
		Short: "Validate sampled blueprint option combinations",
		Long: `Run a matrix validation over the blueprint's option combinations.

For each sampled combination the harness generates a project, runs the
static checks and the policy gate, creates a fresh conda environment from
the project's environment file, and executes pre-commit inside it. Every
environment is torn down afterwards, pass or fail.`,
		Example: `  # Validate 5 random combinations (the default)
  dsforge matrix

  # Validate the whole matrix without environments
  dsforge matrix --sample -1 --skip-env

  # Reproducible sample with run history
  dsforge matrix --seed 42 --db ./dsforge.db`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			bp, err := resolveBlueprint(blueprintDir)
			if err != nil {
				return err
			}

			policies, err := policy.NewEngine(log.Logger)
			if err != nil {
				return fmt.Errorf("failed to create policy engine: %w", err)
			}

			components := harness.Components{
				Blueprint:  bp,
				Scaffolder: scaffold.New(bp, hooks.NewEngine(30*time.Second, log.Logger), log.Logger),
				Policies:   policies,
				Logger:     log.Logger,
			}

			if !skipEnv {
				manager, err := envmgr.Detect(log.Logger)
				if err != nil {
					return fmt.Errorf("no environment manager available (use --skip-env to validate without environments): %w", err)
				}
				components.Manager = manager
				components.Precommit = precommit.NewRunner(manager, log.Logger)
			}

			if dbPath != "" {
				store, err := openStore(ctx, dbPath)
				if err != nil {
					return err
				}
				defer store.Close()
				components.Store = store
			}

			metricsCfg := telemetry.MetricsConfig{Enabled: true, Namespace: "dsforge", ListenAddress: metricsAddr}
			components.Metrics = telemetry.NewMetrics(metricsCfg)
			if metricsAddr != "" {
				go func() {
					if err := components.Metrics.Serve(); err != nil {
						log.Error().Err(err).Msg("Metrics server stopped")
					}
				}()
			}

			events := telemetry.NewEvents()
			events.Subscribe(func(e telemetry.Event) {
				log.Info().
					Str("event", e.Type).
					Str("env_name", e.EnvName).
					Str("detail", e.Message).
					Msg("Matrix progress")
			})
			components.Events = events

			h, err := harness.New(components)
			if err != nil {
				return err
			}

			summary, err := h.Run(ctx, harness.Options{
				SampleSize:  sampleSize,
				Seed:        seed,
				WorkDir:     workDir,
				KeepFailed:  keepFailed,
				SkipEnv:     skipEnv,
				PolicyPaths: policyPaths,
			})
			if err != nil {
				return fmt.Errorf("matrix run failed: %w", err)
			}

			if err := printSummary(summary); err != nil {
				return err
			}

			if summary.Failed > 0 {
				return fmt.Errorf("%d of %d configurations failed", summary.Failed, summary.Sampled)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&blueprintDir, "blueprint", "", "blueprint directory (default: built-in datascience blueprint)")
	cmd.Flags().IntVar(&sampleSize, "sample", harness.DefaultSampleSize, "configurations to sample (-1 for the full matrix)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "sampling seed (0 for time-based)")
	cmd.Flags().StringVar(&workDir, "work-dir", "", "directory for generated projects (default: temporary)")
	cmd.Flags().BoolVar(&keepFailed, "keep-failed", false, "keep project directories of failed configurations")
	cmd.Flags().BoolVar(&skipEnv, "skip-env", false, "skip environment creation and pre-commit")
	cmd.Flags().StringArrayVar(&policyPaths, "policy", nil, "extra .rego policy file or directory (repeatable)")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database for run history")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address during the run")

	return cmd
}

// printSummary renders the run summary as text or JSON.
func printSummary(summary *harness.Summary) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}

	fmt.Printf("Run %s: %d/%d configurations passed (%d of %d sampled, took %s)\n",
		summary.RunID, summary.Passed, summary.Sampled, summary.Sampled, summary.TotalConfigs,
		summary.Duration.Round(time.Millisecond))

	for _, outcome := range summary.Outcomes {
		status := "PASS"
		if outcome.FailedStage != "" {
			status = fmt.Sprintf("FAIL (%s)", outcome.FailedStage)
		}
		fmt.Printf("  %-8s env=%s cicd=%s linter=%s jupyter=%s\n",
			status, outcome.EnvName,
			outcome.Selection["cicd_configuration"],
			outcome.Selection["linter_name"],
			outcome.Selection["install_jupyter"])
		if outcome.Error != "" {
			fmt.Printf("           %s\n", outcome.Error)
		}
		for _, warning := range outcome.Warnings {
			fmt.Printf("           warning: %s\n", warning)
		}
	}
	return nil
}
