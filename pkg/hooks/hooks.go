// Package hooks executes blueprint post-generation hooks written in
// Starlark. A hook runs once against a freshly rendered project directory
// and typically prunes files that the selected configuration does not want
// (unselected CI configs, the other linter's config file).
//
// The script sees a `config` dict with the resolved configuration and a
// `project` module scoped to the generated directory:
//
//	if config["cicd_configuration"] != "gitlab":
//	    project.remove(".gitlab-ci.yml")
package hooks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"
	"go.starlark.net/syntax"

	"github.com/dsforge/dsforge/pkg/schema"
)

// HookFileName is the post-generation hook script at a blueprint root.
const HookFileName = "hooks/post_gen.star"

// Engine executes post-generation hook scripts.
type Engine struct {
	timeout time.Duration
	logger  zerolog.Logger
}

// NewEngine creates a hook engine. A zero timeout defaults to 30 seconds.
func NewEngine(timeout time.Duration, logger zerolog.Logger) *Engine {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Engine{
		timeout: timeout,
		logger:  logger.With().Str("component", "hook-engine").Logger(),
	}
}

// Run executes a hook script against the generated project directory with
// the resolved configuration. Script failures propagate; nothing is retried.
func (e *Engine) Run(ctx context.Context, script []byte, dir string, cfg schema.Configuration) error {
	runCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- e.runSync(script, dir, cfg)
	}()

	select {
	case <-runCtx.Done():
		return fmt.Errorf("post-gen hook timed out after %v", e.timeout)
	case err := <-errCh:
		return err
	}
}

func (e *Engine) runSync(script []byte, dir string, cfg schema.Configuration) error {
	thread := &starlark.Thread{
		Name: "post_gen",
		Print: func(_ *starlark.Thread, msg string) {
			e.logger.Debug().Str("hook", "post_gen").Msg(msg)
		},
	}

	configDict := starlark.NewDict(len(cfg))
	for k, v := range cfg {
		if err := configDict.SetKey(starlark.String(k), starlark.String(v)); err != nil {
			return fmt.Errorf("failed to build hook config: %w", err)
		}
	}

	predeclared := starlark.StringDict{
		"struct":  starlarkstruct.Default,
		"config":  configDict,
		"project": projectModule(dir),
	}

	opts := &syntax.FileOptions{TopLevelControl: true}
	if _, err := starlark.ExecFileOptions(opts, thread, HookFileName, script, predeclared); err != nil {
		return fmt.Errorf("post-gen hook failed: %w", err)
	}
	return nil
}

// projectModule builds the `project` helper module scoped to dir.
func projectModule(dir string) *starlarkstruct.Module {
	return &starlarkstruct.Module{
		Name: "project",
		Members: starlark.StringDict{
			"remove": starlark.NewBuiltin("project.remove", func(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
				var rel string
				if err := starlark.UnpackArgs(fn.Name(), args, kwargs, "path", &rel); err != nil {
					return nil, err
				}
				path, err := resolveInside(dir, rel)
				if err != nil {
					return nil, err
				}
				if err := os.RemoveAll(path); err != nil {
					return nil, fmt.Errorf("project.remove(%q): %w", rel, err)
				}
				return starlark.None, nil
			}),
			"exists": starlark.NewBuiltin("project.exists", func(_ *starlark.Thread, fn *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
				var rel string
				if err := starlark.UnpackArgs(fn.Name(), args, kwargs, "path", &rel); err != nil {
					return nil, err
				}
				path, err := resolveInside(dir, rel)
				if err != nil {
					return nil, err
				}
				_, err = os.Stat(path)
				return starlark.Bool(err == nil), nil
			}),
		},
	}
}

// resolveInside joins rel onto dir and rejects paths escaping the project.
func resolveInside(dir, rel string) (string, error) {
	if filepath.IsAbs(rel) {
		return "", fmt.Errorf("hook path must be relative: %q", rel)
	}
	cleaned := filepath.Clean(rel)
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("hook path escapes project directory: %q", rel)
	}
	return filepath.Join(dir, cleaned), nil
}
