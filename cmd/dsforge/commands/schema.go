package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

func newSchemaCommand() *cobra.Command {
	var (
		blueprintDir string
		permutations bool
	)

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Inspect a blueprint's option schema",
		Long: `Print the options of a blueprint schema.

Options with multiple choices form the validation matrix; the first choice
of each is the default. With --permutations every combination of the
matrix is listed.`,
		Example: `  # Show the built-in blueprint options
  dsforge schema

  # List every option combination
  dsforge schema --permutations`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			bp, err := resolveBlueprint(blueprintDir)
			if err != nil {
				return err
			}

			sch, err := bp.Schema()
			if err != nil {
				return fmt.Errorf("failed to load schema: %w", err)
			}

			if permutations {
				perms := sch.Permutations()
				if jsonOutput {
					enc := json.NewEncoder(os.Stdout)
					enc.SetIndent("", "  ")
					return enc.Encode(perms)
				}
				for i, cfg := range perms {
					fmt.Printf("%3d: %s\n", i+1, formatConfiguration(cfg))
				}
				return nil
			}

			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(sch.Options)
			}

			fmt.Printf("Blueprint %s (%d options, matrix size %d)\n",
				bp.Name(), len(sch.Options), len(sch.Permutations()))
			for _, opt := range sch.Options {
				if opt.IsAxis() {
					fmt.Printf("  %-22s choices: %s\n", opt.Name, strings.Join(opt.Choices, ", "))
					continue
				}
				fmt.Printf("  %-22s default: %s\n", opt.Name, opt.Default)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&blueprintDir, "blueprint", "", "blueprint directory (default: built-in datascience blueprint)")
	cmd.Flags().BoolVar(&permutations, "permutations", false, "list every option combination")

	return cmd
}

// formatConfiguration renders a configuration as stable key=value pairs.
func formatConfiguration(cfg map[string]string) string {
	keys := make([]string, 0, len(cfg))
	for k := range cfg {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, cfg[k]))
	}
	return strings.Join(parts, " ")
}
