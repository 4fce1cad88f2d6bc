package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/dsforge/dsforge/pkg/hooks"
	"github.com/dsforge/dsforge/pkg/scaffold"
	"github.com/dsforge/dsforge/pkg/schema"
)

func newDevCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dev",
		Short: "Blueprint development commands",
		Long:  `Commands that help while authoring a blueprint.`,
	}

	cmd.AddCommand(newDevWatchCommand())

	return cmd
}

func newDevWatchCommand() *cobra.Command {
	var (
		blueprintDir string
		previewDir   string
		setValues    []string
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Regenerate a preview project whenever the blueprint changes",
		Long: `Watch a blueprint directory and regenerate a preview project on every
change. The preview is rebuilt from scratch with the given options, so the
rendered output always reflects the current template state.`,
		Example: `  # Watch a blueprint and preview with defaults
  dsforge dev watch --blueprint ./blueprints/datascience --preview ./preview

  # Preview a specific combination
  dsforge dev watch --blueprint ./blueprints/datascience --preview ./preview \
    --set linter_name=pylint --set install_jupyter=yes`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if blueprintDir == "" {
				return fmt.Errorf("--blueprint is required")
			}

			selection, err := parseSetValues(setValues)
			if err != nil {
				return err
			}

			if err := os.MkdirAll(previewDir, 0o755); err != nil {
				return fmt.Errorf("failed to create preview directory: %w", err)
			}

			watcher, err := fsnotify.NewWatcher()
			if err != nil {
				return fmt.Errorf("failed to create watcher: %w", err)
			}
			defer watcher.Close()

			if err := watchRecursive(watcher, blueprintDir); err != nil {
				return err
			}

			regenerate := func() {
				if err := regeneratePreview(ctx, blueprintDir, previewDir, selection); err != nil {
					log.Error().Err(err).Msg("Preview regeneration failed")
					return
				}
				log.Info().Str("preview", previewDir).Msg("Preview regenerated")
			}
			regenerate()

			log.Info().Str("blueprint", blueprintDir).Msg("Watching blueprint for changes")

			// Debounce bursts of editor events
			var timer *time.Timer
			for {
				select {
				case <-ctx.Done():
					return nil
				case event, ok := <-watcher.Events:
					if !ok {
						return nil
					}
					if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
						continue
					}
					if event.Op&fsnotify.Create != 0 {
						if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
							_ = watcher.Add(event.Name)
						}
					}
					if timer != nil {
						timer.Stop()
					}
					timer = time.AfterFunc(250*time.Millisecond, regenerate)
				case err, ok := <-watcher.Errors:
					if !ok {
						return nil
					}
					log.Error().Err(err).Msg("Watcher error")
				}
			}
		},
	}

	cmd.Flags().StringVar(&blueprintDir, "blueprint", "", "blueprint directory to watch")
	cmd.Flags().StringVar(&previewDir, "preview", "./preview", "directory the preview project is created under")
	cmd.Flags().StringArrayVar(&setValues, "set", nil, "override an option (key=value, repeatable)")

	return cmd
}

// watchRecursive adds a directory tree to the watcher.
func watchRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if err := watcher.Add(path); err != nil {
				return fmt.Errorf("failed to watch %s: %w", path, err)
			}
		}
		return nil
	})
}

// regeneratePreview rebuilds the preview project from scratch.
func regeneratePreview(ctx context.Context, blueprintDir, previewDir string, selection schema.Configuration) error {
	bp, err := scaffold.FromDir(blueprintDir)
	if err != nil {
		return fmt.Errorf("failed to load blueprint: %w", err)
	}

	sch, err := bp.Schema()
	if err != nil {
		return err
	}
	resolved := sch.Resolve(selection)

	target := filepath.Join(previewDir, resolved["repo_name"])
	if err := os.RemoveAll(target); err != nil {
		return fmt.Errorf("failed to clear previous preview: %w", err)
	}

	scaffolder := scaffold.New(bp, hooks.NewEngine(30*time.Second, log.Logger), log.Logger)
	_, err = scaffolder.Generate(ctx, scaffold.Request{
		OutputDir: previewDir,
		Selection: selection,
		SkipGit:   true,
	})
	return err
}
