// Package harness drives matrix validation runs: it samples option
// configurations from a blueprint schema, generates a project per
// configuration, and validates each one with static checks, the policy
// gate, and a pre-commit run inside a freshly created environment.
package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/dsforge/dsforge/pkg/checks"
	"github.com/dsforge/dsforge/pkg/envfile"
	"github.com/dsforge/dsforge/pkg/envmgr"
	"github.com/dsforge/dsforge/pkg/policy"
	"github.com/dsforge/dsforge/pkg/precommit"
	"github.com/dsforge/dsforge/pkg/scaffold"
	"github.com/dsforge/dsforge/pkg/schema"
	"github.com/dsforge/dsforge/pkg/stores"
	"github.com/dsforge/dsforge/pkg/telemetry"
)

// Stage names recorded on failed configurations.
const (
	StageScaffold  = "scaffold"
	StageChecks    = "checks"
	StagePolicy    = "policy"
	StageEnv       = "env"
	StagePrecommit = "precommit"
)

// DefaultSampleSize matches the historical sample of five configurations
// per run.
const DefaultSampleSize = 5

// Options control a matrix run.
type Options struct {
	// SampleSize is the number of configurations to sample from the full
	// cross product. Zero means DefaultSampleSize; a negative value or a
	// value at least the matrix size runs every configuration.
	SampleSize int

	// Seed seeds the sampler. Zero means time-based.
	Seed int64

	// WorkDir is where generated projects are placed. Empty means a
	// temporary directory that is removed when the run ends.
	WorkDir string

	// KeepFailed preserves the project directories of failed
	// configurations for inspection.
	KeepFailed bool

	// SkipEnv skips environment creation and the pre-commit stage,
	// leaving only generation, checks, and policy.
	SkipEnv bool

	// PolicyPaths are extra .rego files or directories to load on top of
	// the built-in policies.
	PolicyPaths []string
}

// ConfigOutcome is the result of one sampled configuration.
type ConfigOutcome struct {
	EnvName     string               `json:"env_name"`
	Selection   schema.Configuration `json:"selection"`
	Status      stores.ConfigStatus  `json:"status"`
	FailedStage string               `json:"failed_stage,omitempty"`
	Error       string               `json:"error,omitempty"`
	Warnings    []string             `json:"warnings,omitempty"`
	Duration    time.Duration        `json:"duration"`
}

// Summary is the aggregate result of a matrix run.
type Summary struct {
	RunID        string          `json:"run_id"`
	Blueprint    string          `json:"blueprint"`
	TotalConfigs int             `json:"total_configs"`
	Sampled      int             `json:"sampled"`
	Passed       int             `json:"passed"`
	Failed       int             `json:"failed"`
	Outcomes     []ConfigOutcome `json:"outcomes"`
	Duration     time.Duration   `json:"duration"`
}

// Harness wires the pipeline stages together.
type Harness struct {
	blueprint  *scaffold.Blueprint
	scaffolder *scaffold.Scaffolder
	policies   *policy.Engine
	manager    envmgr.Manager
	precommit  *precommit.Runner
	store      stores.Store
	metrics    *telemetry.Metrics
	events     *telemetry.Events
	tracer     *telemetry.Tracer
	logger     zerolog.Logger
}

// Components holds the collaborators of a harness. Store, Metrics, Events,
// and Tracer are optional; Manager and Precommit may be nil when runs use
// SkipEnv.
type Components struct {
	Blueprint  *scaffold.Blueprint
	Scaffolder *scaffold.Scaffolder
	Policies   *policy.Engine
	Manager    envmgr.Manager
	Precommit  *precommit.Runner
	Store      stores.Store
	Metrics    *telemetry.Metrics
	Events     *telemetry.Events
	Tracer     *telemetry.Tracer
	Logger     zerolog.Logger
}

// New creates a harness from its components.
func New(c Components) (*Harness, error) {
	if c.Blueprint == nil {
		return nil, fmt.Errorf("blueprint is required")
	}
	if c.Scaffolder == nil {
		return nil, fmt.Errorf("scaffolder is required")
	}
	if c.Policies == nil {
		return nil, fmt.Errorf("policy engine is required")
	}
	if c.Metrics == nil {
		c.Metrics = telemetry.NewMetrics(telemetry.MetricsConfig{})
	}
	if c.Events == nil {
		c.Events = telemetry.NewEvents()
	}
	if c.Tracer == nil {
		tracer, err := telemetry.NewTracer(telemetry.DefaultConfig())
		if err != nil {
			return nil, fmt.Errorf("failed to create tracer: %w", err)
		}
		c.Tracer = tracer
	}

	return &Harness{
		blueprint:  c.Blueprint,
		scaffolder: c.Scaffolder,
		policies:   c.Policies,
		manager:    c.Manager,
		precommit:  c.Precommit,
		store:      c.Store,
		metrics:    c.Metrics,
		events:     c.Events,
		tracer:     c.Tracer,
		logger:     c.Logger.With().Str("component", "harness").Logger(),
	}, nil
}

// Run executes a matrix run and returns its summary. Individual
// configuration failures are collected into the summary; an error return
// means the run itself could not proceed.
func (h *Harness) Run(ctx context.Context, opts Options) (*Summary, error) {
	startTime := time.Now()

	sch, err := h.blueprint.Schema()
	if err != nil {
		return nil, fmt.Errorf("failed to load blueprint schema: %w", err)
	}

	if len(opts.PolicyPaths) > 0 {
		if err := h.policies.LoadPolicies(ctx, opts.PolicyPaths); err != nil {
			return nil, err
		}
	}

	sampleSize := opts.SampleSize
	if sampleSize == 0 {
		sampleSize = DefaultSampleSize
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	total := len(sch.Permutations())
	sample := sch.Sample(sampleSize, rng)

	workDir := opts.WorkDir
	if workDir == "" {
		workDir, err = os.MkdirTemp("", "dsforge-matrix-*")
		if err != nil {
			return nil, fmt.Errorf("failed to create work directory: %w", err)
		}
		defer os.RemoveAll(workDir)
	}

	runID := uuid.NewString()
	runLogger := telemetry.WithRunID(h.logger, runID)

	summary := &Summary{
		RunID:        runID,
		Blueprint:    h.blueprint.Name(),
		TotalConfigs: total,
		Sampled:      len(sample),
	}

	if err := h.recordRunStart(ctx, summary); err != nil {
		return nil, err
	}

	h.events.Publish(telemetry.Event{
		Type:    telemetry.EventRunStarted,
		RunID:   runID,
		Message: fmt.Sprintf("validating %d of %d configurations", len(sample), total),
	})
	runLogger.Info().
		Int("sampled", len(sample)).
		Int("total", total).
		Int64("seed", seed).
		Msg("Matrix run started")

	ctx, runSpan := h.tracer.StartSpan(ctx, "matrix.run",
		attribute.String("run.id", runID),
		attribute.Int("run.sampled", len(sample)),
	)
	defer runSpan.End()

	for _, selection := range sample {
		outcome := h.runConfig(ctx, runID, workDir, sch, selection, opts)
		summary.Outcomes = append(summary.Outcomes, outcome)
		if outcome.Status == stores.ConfigStatusPassed {
			summary.Passed++
		} else {
			summary.Failed++
		}
	}

	summary.Duration = time.Since(startTime)

	status := stores.RunStatusCompleted
	var runErr *string
	if summary.Failed > 0 {
		status = stores.RunStatusFailed
		msg := fmt.Sprintf("%d of %d configurations failed", summary.Failed, summary.Sampled)
		runErr = &msg
	}
	if h.store != nil {
		if err := h.store.UpdateRunStatus(ctx, runID, status, runErr); err != nil {
			runLogger.Error().Err(err).Msg("Failed to record run completion")
		}
	}

	h.events.Publish(telemetry.Event{
		Type:    telemetry.EventRunCompleted,
		RunID:   runID,
		Message: fmt.Sprintf("%d passed, %d failed", summary.Passed, summary.Failed),
	})
	runLogger.Info().
		Int("passed", summary.Passed).
		Int("failed", summary.Failed).
		Dur("duration", summary.Duration).
		Msg("Matrix run completed")

	return summary, nil
}

// runConfig validates a single sampled configuration end to end.
func (h *Harness) runConfig(ctx context.Context, runID, workDir string, sch *schema.Schema, selection schema.Configuration, opts Options) ConfigOutcome {
	startTime := time.Now()

	envName := "dsforge-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	resolved := sch.Resolve(selection)
	resolved["env_name"] = envName

	outcome := ConfigOutcome{
		EnvName:   envName,
		Selection: resolved,
		Status:    stores.ConfigStatusPassed,
	}

	logger := telemetry.WithEnvName(telemetry.WithRunID(h.logger, runID), envName)
	resultID := h.recordConfigStart(ctx, runID, envName, resolved, logger)

	ctx, span := h.tracer.StartSpan(ctx, "matrix.config",
		attribute.String("env.name", envName),
	)
	defer span.End()

	fail := func(stage string, err error) {
		outcome.Status = stores.ConfigStatusFailed
		outcome.FailedStage = stage
		outcome.Error = err.Error()
		logger.Error().Err(err).Str("stage", stage).Msg("Configuration failed")
	}

	// Every config gets its own subdirectory so failed projects kept for
	// inspection never collide.
	configRoot := filepath.Join(workDir, envName)
	if err := os.MkdirAll(configRoot, 0o755); err != nil {
		fail(StageScaffold, fmt.Errorf("failed to create config directory: %w", err))
		h.finishConfig(ctx, resultID, &outcome, startTime, logger)
		return outcome
	}

	configDir, err := h.scaffolder.Generate(ctx, scaffold.Request{
		OutputDir: configRoot,
		Selection: selection,
		EnvName:   envName,
	})
	if err != nil {
		os.RemoveAll(configRoot)
		fail(StageScaffold, err)
		h.finishConfig(ctx, resultID, &outcome, startTime, logger)
		return outcome
	}
	h.metrics.ProjectGenerated(h.blueprint.Name())
	h.events.Publish(telemetry.Event{
		Type:    telemetry.EventConfigGenerated,
		RunID:   runID,
		EnvName: envName,
		Message: configDir,
	})

	defer func() {
		if outcome.Status == stores.ConfigStatusFailed && opts.KeepFailed {
			logger.Info().Str("dir", configDir).Msg("Keeping failed project directory")
			return
		}
		os.RemoveAll(configRoot)
	}()

	report, err := checks.Project(configDir, resolved["cicd_configuration"], resolved["linter_name"], resolved["install_jupyter"])
	if err != nil {
		h.metrics.CheckFailed(string(checks.ClassOf(err)))
		h.events.Publish(telemetry.Event{
			Type:    telemetry.EventCheckFailed,
			RunID:   runID,
			EnvName: envName,
			Message: err.Error(),
		})
		fail(StageChecks, err)
		h.finishConfig(ctx, resultID, &outcome, startTime, logger)
		return outcome
	}

	policyResult, err := h.policies.Evaluate(ctx, &policy.Input{
		Blueprint:    h.blueprint.Name(),
		Selection:    resolved,
		Dependencies: report.DependencyNames,
	})
	if err != nil {
		fail(StagePolicy, err)
		h.finishConfig(ctx, resultID, &outcome, startTime, logger)
		return outcome
	}
	for _, w := range policyResult.Warnings {
		outcome.Warnings = append(outcome.Warnings, fmt.Sprintf("%s: %s", w.Policy, w.Message))
	}
	if !policyResult.Allowed {
		fail(StagePolicy, fmt.Errorf("policy gate rejected configuration: %v", policyResult.Violations))
		h.finishConfig(ctx, resultID, &outcome, startTime, logger)
		return outcome
	}

	if !opts.SkipEnv {
		if err := h.runEnvStages(ctx, runID, envName, configDir, &outcome, logger); err != nil {
			h.finishConfig(ctx, resultID, &outcome, startTime, logger)
			return outcome
		}
	}

	h.finishConfig(ctx, resultID, &outcome, startTime, logger)
	return outcome
}

// runEnvStages creates the environment, runs pre-commit inside it, and
// always tears the environment down. The outcome is updated in place; a
// non-nil return signals the stages failed.
func (h *Harness) runEnvStages(ctx context.Context, runID, envName, configDir string, outcome *ConfigOutcome, logger zerolog.Logger) error {
	if h.manager == nil || h.precommit == nil {
		err := fmt.Errorf("environment manager is not configured")
		outcome.Status = stores.ConfigStatusFailed
		outcome.FailedStage = StageEnv
		outcome.Error = err.Error()
		return err
	}

	envStart := time.Now()
	envPath := filepath.Join(configDir, envfile.FileName)
	if err := h.manager.CreateEnv(ctx, envName, envPath); err != nil {
		outcome.Status = stores.ConfigStatusFailed
		outcome.FailedStage = StageEnv
		outcome.Error = err.Error()
		logger.Error().Err(err).Msg("Environment creation failed")
		return err
	}
	h.metrics.ObserveEnvCreate(time.Since(envStart))
	h.events.Publish(telemetry.Event{
		Type:    telemetry.EventEnvCreated,
		RunID:   runID,
		EnvName: envName,
	})

	defer func() {
		if err := h.manager.RemoveEnv(context.WithoutCancel(ctx), envName); err != nil {
			logger.Error().Err(err).Msg("Environment teardown failed")
			return
		}
		h.events.Publish(telemetry.Event{
			Type:    telemetry.EventEnvRemoved,
			RunID:   runID,
			EnvName: envName,
		})
	}()

	precommitStart := time.Now()
	if err := h.precommit.Run(ctx, envName, configDir); err != nil {
		outcome.Status = stores.ConfigStatusFailed
		outcome.FailedStage = StagePrecommit
		outcome.Error = err.Error()
		logger.Error().Err(err).Msg("Pre-commit run failed")
		return err
	}
	h.metrics.ObservePrecommit(time.Since(precommitStart))

	return nil
}

// recordRunStart persists the run record when a store is configured.
func (h *Harness) recordRunStart(ctx context.Context, summary *Summary) error {
	if h.store == nil {
		return nil
	}
	now := time.Now()
	err := h.store.CreateRun(ctx, &stores.MatrixRun{
		ID:           summary.RunID,
		Blueprint:    summary.Blueprint,
		SampleSize:   summary.Sampled,
		TotalConfigs: summary.TotalConfigs,
		Status:       stores.RunStatusRunning,
		StartedAt:    now,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

// recordConfigStart persists the config record and returns its id.
func (h *Harness) recordConfigStart(ctx context.Context, runID, envName string, selection schema.Configuration, logger zerolog.Logger) string {
	resultID := uuid.NewString()
	if h.store == nil {
		return resultID
	}

	selectionJSON, err := json.Marshal(selection)
	if err != nil {
		selectionJSON = []byte("{}")
	}

	now := time.Now()
	if err := h.store.CreateConfigResult(ctx, &stores.ConfigResult{
		ID:        resultID,
		RunID:     runID,
		EnvName:   envName,
		Selection: string(selectionJSON),
		Status:    stores.ConfigStatusRunning,
		StartedAt: &now,
		CreatedAt: now,
		UpdatedAt: now,
	}); err != nil {
		logger.Error().Err(err).Msg("Failed to record configuration")
	}
	return resultID
}

// finishConfig records metrics, events, and the persisted outcome.
func (h *Harness) finishConfig(ctx context.Context, resultID string, outcome *ConfigOutcome, startTime time.Time, logger zerolog.Logger) {
	outcome.Duration = time.Since(startTime)

	eventType := telemetry.EventConfigPassed
	if outcome.Status == stores.ConfigStatusFailed {
		eventType = telemetry.EventConfigFailed
	}
	h.events.Publish(telemetry.Event{
		Type:    eventType,
		EnvName: outcome.EnvName,
		Message: outcome.Error,
	})
	h.metrics.ConfigValidated(string(outcome.Status))

	if h.store != nil {
		var failedStage, errMsg *string
		if outcome.FailedStage != "" {
			failedStage = &outcome.FailedStage
		}
		if outcome.Error != "" {
			errMsg = &outcome.Error
		}
		if err := h.store.UpdateConfigResult(ctx, resultID, outcome.Status, failedStage, errMsg); err != nil {
			logger.Error().Err(err).Msg("Failed to record configuration outcome")
		}
	}

	if outcome.Status == stores.ConfigStatusPassed {
		logger.Info().Dur("duration", outcome.Duration).Msg("Configuration passed")
	}
}
