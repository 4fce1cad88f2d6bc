// Package scaffold materializes project directories from blueprints. The
// templating engine is text/template; every file in the blueprint's
// project/ tree is rendered with the fully resolved configuration and
// written under the output directory.
package scaffold

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	git "github.com/go-git/go-git/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/dsforge/dsforge/pkg/hooks"
	"github.com/dsforge/dsforge/pkg/schema"
)

// Request describes one project generation.
type Request struct {
	// OutputDir is the directory the project directory is created under.
	OutputDir string `validate:"required"`

	// Selection holds the chosen value per option. Unset options fall back
	// to the schema defaults; extra keys are carried through to templates.
	Selection schema.Configuration

	// EnvName, when set, overrides the env_name option. The matrix harness
	// injects a uuid-derived name here so env names never collide.
	EnvName string

	// SkipGit disables git repository initialization in the result.
	SkipGit bool

	// SkipHooks disables the blueprint's post-generation hook.
	SkipHooks bool
}

// Scaffolder renders blueprints into project directories.
type Scaffolder struct {
	blueprint *Blueprint
	hooks     *hooks.Engine
	validate  *validator.Validate
	logger    zerolog.Logger
}

// New creates a scaffolder for the given blueprint.
func New(bp *Blueprint, hookEngine *hooks.Engine, logger zerolog.Logger) *Scaffolder {
	return &Scaffolder{
		blueprint: bp,
		hooks:     hookEngine,
		validate:  validator.New(),
		logger:    logger.With().Str("component", "scaffolder").Logger(),
	}
}

// Generate materializes a new project directory and returns its path. The
// directory is named by the repo_name option and must not already exist.
// Template errors propagate unretried; a failed generation leaves no
// partial directory behind.
func (s *Scaffolder) Generate(ctx context.Context, req Request) (string, error) {
	if err := s.validate.Struct(req); err != nil {
		return "", fmt.Errorf("invalid scaffold request: %w", err)
	}

	sch, err := s.blueprint.Schema()
	if err != nil {
		return "", err
	}

	cfg := sch.Resolve(req.Selection)
	if req.EnvName != "" {
		cfg["env_name"] = req.EnvName
	}

	repoName := cfg["repo_name"]
	if repoName == "" {
		return "", fmt.Errorf("blueprint %s does not define a repo_name option", s.blueprint.Name())
	}

	target := filepath.Join(req.OutputDir, repoName)
	if _, err := os.Stat(target); err == nil {
		return "", fmt.Errorf("target directory %s already exists", target)
	}

	s.logger.Info().
		Str("blueprint", s.blueprint.Name()).
		Str("target", target).
		Str("env_name", cfg["env_name"]).
		Msg("generating project")

	if err := s.render(target, cfg); err != nil {
		_ = os.RemoveAll(target)
		return "", err
	}

	if !req.SkipGit {
		if _, err := git.PlainInit(target, false); err != nil {
			_ = os.RemoveAll(target)
			return "", fmt.Errorf("failed to init git repository: %w", err)
		}
	}

	if !req.SkipHooks {
		script, err := s.blueprint.Hook()
		if err != nil {
			_ = os.RemoveAll(target)
			return "", err
		}
		if script != nil {
			if err := s.hooks.Run(ctx, script, target, cfg); err != nil {
				_ = os.RemoveAll(target)
				return "", err
			}
		}
	}

	return target, nil
}

// render walks the blueprint's project tree and writes each rendered file
// under target.
func (s *Scaffolder) render(target string, cfg schema.Configuration) error {
	return fs.WalkDir(s.blueprint.fsys, projectRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("failed to walk blueprint: %w", err)
		}

		rel := strings.TrimPrefix(path, projectRoot)
		rel = strings.TrimPrefix(rel, "/")
		dest := filepath.Join(target, filepath.FromSlash(rel))

		if d.IsDir() {
			return os.MkdirAll(dest, 0755)
		}

		raw, err := fs.ReadFile(s.blueprint.fsys, path)
		if err != nil {
			return fmt.Errorf("failed to read blueprint file %s: %w", path, err)
		}

		rendered, err := renderFile(rel, raw, cfg)
		if err != nil {
			return err
		}

		if err := os.WriteFile(dest, rendered, fileMode(rel)); err != nil {
			return fmt.Errorf("failed to write %s: %w", dest, err)
		}
		return nil
	})
}

// renderFile substitutes all templated placeholders in one blueprint file.
// Unknown placeholders are an error so a missing required field never
// produces a silently broken project.
func renderFile(name string, raw []byte, cfg schema.Configuration) ([]byte, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(string(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, cfg); err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

// fileMode keeps shell scripts executable; embedded filesystems do not
// carry permission bits.
func fileMode(rel string) os.FileMode {
	if strings.HasSuffix(rel, ".sh") {
		return 0755
	}
	return 0644
}
