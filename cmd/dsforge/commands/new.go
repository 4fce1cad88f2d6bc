package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/dsforge/dsforge/pkg/hooks"
	"github.com/dsforge/dsforge/pkg/scaffold"
	"github.com/dsforge/dsforge/pkg/schema"
)

func newNewCommand() *cobra.Command {
	var (
		blueprintDir string
		outputDir    string
		setValues    []string
		envName      string
		skipGit      bool
		skipHooks    bool
	)

	cmd := &cobra.Command{
		Use:   "new",
		Short: "Generate a new project from a blueprint",
		Long: `Generate a new data science project from a blueprint.

Options not set via --set fall back to the blueprint schema defaults. The
project directory is named by the repo_name option and created under the
output directory.`,
		Example: `  # Generate with defaults into the current directory
  dsforge new

  # Override options
  dsforge new --set linter_name=pylint --set install_jupyter=yes

  # Use a blueprint from disk
  dsforge new --blueprint ./blueprints/datascience --output ./projects`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			bp, err := resolveBlueprint(blueprintDir)
			if err != nil {
				return err
			}

			selection, err := parseSetValues(setValues)
			if err != nil {
				return err
			}

			log.Info().
				Str("blueprint", bp.Name()).
				Str("output", outputDir).
				Msg("Generating project")

			scaffolder := scaffold.New(bp, hooks.NewEngine(30*time.Second, log.Logger), log.Logger)
			dir, err := scaffolder.Generate(cmd.Context(), scaffold.Request{
				OutputDir: outputDir,
				Selection: selection,
				EnvName:   envName,
				SkipGit:   skipGit,
				SkipHooks: skipHooks,
			})
			if err != nil {
				return fmt.Errorf("generation failed: %w", err)
			}

			fmt.Printf("Project generated at %s\n", dir)
			return nil
		},
	}

	cmd.Flags().StringVar(&blueprintDir, "blueprint", "", "blueprint directory (default: built-in datascience blueprint)")
	cmd.Flags().StringVarP(&outputDir, "output", "o", ".", "directory to create the project under")
	cmd.Flags().StringArrayVar(&setValues, "set", nil, "override an option (key=value, repeatable)")
	cmd.Flags().StringVar(&envName, "env-name", "", "override the env_name option")
	cmd.Flags().BoolVar(&skipGit, "skip-git", false, "skip git repository initialization")
	cmd.Flags().BoolVar(&skipHooks, "skip-hooks", false, "skip the post-generation hook")

	return cmd
}

// resolveBlueprint loads a blueprint from disk or falls back to the
// built-in one.
func resolveBlueprint(dir string) (*scaffold.Blueprint, error) {
	if dir == "" {
		return scaffold.Default(), nil
	}
	bp, err := scaffold.FromDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to load blueprint: %w", err)
	}
	return bp, nil
}

// parseSetValues converts --set key=value flags into a configuration.
func parseSetValues(values []string) (schema.Configuration, error) {
	selection := schema.Configuration{}
	for _, kv := range values {
		key, value, found := strings.Cut(kv, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid --set value %q, expected key=value", kv)
		}
		selection[key] = value
	}
	return selection, nil
}
