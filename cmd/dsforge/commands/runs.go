package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dsforge/dsforge/pkg/stores"
)

func newRunsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect matrix run history",
		Long:  `Query the run history recorded by matrix runs started with --db.`,
	}

	cmd.AddCommand(newRunsListCommand())
	cmd.AddCommand(newRunsShowCommand())

	return cmd
}

func newRunsListCommand() *cobra.Command {
	var (
		dbPath string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded matrix runs",
		Example: `  # Most recent runs
  dsforge runs list --db ./dsforge.db`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := openStore(ctx, dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.ListRuns(ctx, limit, 0)
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(runs)
			}

			if len(runs) == 0 {
				fmt.Println("No runs recorded")
				return nil
			}
			for _, run := range runs {
				fmt.Printf("%s  %s  %-9s  sampled %d of %d  %s\n",
					run.ID,
					run.StartedAt.Format(time.RFC3339),
					run.Status,
					run.SampleSize,
					run.TotalConfigs,
					run.Blueprint)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "dsforge.db", "SQLite database path")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum runs to list")

	return cmd
}

func newRunsShowCommand() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the configuration results of a run",
		Example: `  dsforge runs show 2f1c... --db ./dsforge.db`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := openStore(ctx, dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			run, err := store.GetRun(ctx, args[0])
			if err != nil {
				return err
			}
			results, err := store.ListConfigResults(ctx, run.ID)
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(struct {
					Run     *stores.MatrixRun     `json:"run"`
					Results []*stores.ConfigResult `json:"results"`
				}{run, results})
			}

			fmt.Printf("Run %s (%s, started %s)\n", run.ID, run.Status, run.StartedAt.Format(time.RFC3339))
			if run.Error != nil {
				fmt.Printf("  error: %s\n", *run.Error)
			}
			for _, result := range results {
				fmt.Printf("  %-8s env=%s %s\n", result.Status, result.EnvName, result.Selection)
				if result.FailedStage != nil {
					fmt.Printf("           stage: %s\n", *result.FailedStage)
				}
				if result.Error != nil {
					fmt.Printf("           %s\n", *result.Error)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "dsforge.db", "SQLite database path")

	return cmd
}

// openStore opens and migrates the run history database.
func openStore(ctx context.Context, path string) (*stores.SQLiteStore, error) {
	store, err := stores.NewSQLiteStore(stores.Config{Path: path})
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("failed to open run history database: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to migrate run history database: %w", err)
	}
	return store, nil
}
