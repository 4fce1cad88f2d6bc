package harness

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/dsforge/dsforge/pkg/envmgr"
	"github.com/dsforge/dsforge/pkg/hooks"
	"github.com/dsforge/dsforge/pkg/policy"
	"github.com/dsforge/dsforge/pkg/precommit"
	"github.com/dsforge/dsforge/pkg/scaffold"
	"github.com/dsforge/dsforge/pkg/stores"
	"github.com/dsforge/dsforge/pkg/telemetry"
)

// fakeManager records environment lifecycle calls.
type fakeManager struct {
	mu        sync.Mutex
	created   []string
	removed   []string
	ran       []string
	createErr error
	runErr    error
}

func (f *fakeManager) Name() string { return "fake" }

func (f *fakeManager) CreateEnv(_ context.Context, envName, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, envName)
	return nil
}

func (f *fakeManager) RemoveEnv(_ context.Context, envName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, envName)
	return nil
}

func (f *fakeManager) RunInEnv(_ context.Context, envName, _ string, _ []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.runErr != nil {
		return f.runErr
	}
	f.ran = append(f.ran, envName)
	return nil
}

var _ envmgr.Manager = (*fakeManager)(nil)

func newTestHarness(t *testing.T, mgr envmgr.Manager) *Harness {
	t.Helper()

	logger := zerolog.Nop()
	bp := scaffold.Default()
	policies, err := policy.NewEngine(logger)
	if err != nil {
		t.Fatalf("failed to create policy engine: %v", err)
	}

	h, err := New(Components{
		Blueprint:  bp,
		Scaffolder: scaffold.New(bp, hooks.NewEngine(30*time.Second, logger), logger),
		Policies:   policies,
		Manager:    mgr,
		Precommit:  precommit.NewRunner(mgr, logger),
		Logger:     logger,
	})
	if err != nil {
		t.Fatalf("failed to create harness: %v", err)
	}
	return h
}

func TestRunSkipEnvValidatesSampledConfigs(t *testing.T) {
	h := newTestHarness(t, nil)

	summary, err := h.Run(context.Background(), Options{
		SampleSize: 3,
		Seed:       42,
		WorkDir:    t.TempDir(),
		SkipEnv:    true,
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// 2 cicd x 2 linter x 2 jupyter choices
	if summary.TotalConfigs != 8 {
		t.Errorf("expected 8 total configurations, got %d", summary.TotalConfigs)
	}
	if summary.Sampled != 3 {
		t.Errorf("expected 3 sampled configurations, got %d", summary.Sampled)
	}
	if summary.Passed != 3 || summary.Failed != 0 {
		t.Errorf("expected all configurations to pass, got %d passed %d failed: %+v",
			summary.Passed, summary.Failed, summary.Outcomes)
	}

	seen := map[string]bool{}
	for _, outcome := range summary.Outcomes {
		if outcome.EnvName == "" {
			t.Error("expected generated env name")
		}
		if seen[outcome.EnvName] {
			t.Errorf("duplicate env name %s", outcome.EnvName)
		}
		seen[outcome.EnvName] = true
		if outcome.Selection["python_version"] != "3.10.9" {
			t.Errorf("expected resolved python pin, got %s", outcome.Selection["python_version"])
		}
	}
}

func TestRunNegativeSampleRunsFullMatrix(t *testing.T) {
	h := newTestHarness(t, nil)

	summary, err := h.Run(context.Background(), Options{
		SampleSize: -1,
		Seed:       1,
		WorkDir:    t.TempDir(),
		SkipEnv:    true,
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if summary.Sampled != 8 {
		t.Errorf("expected full matrix of 8 configurations, got %d", summary.Sampled)
	}
}

func TestRunCreatesAndTearsDownEnvironments(t *testing.T) {
	mgr := &fakeManager{}
	h := newTestHarness(t, mgr)

	summary, err := h.Run(context.Background(), Options{
		SampleSize: 2,
		Seed:       7,
		WorkDir:    t.TempDir(),
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Failed != 0 {
		t.Fatalf("expected no failures, got %+v", summary.Outcomes)
	}

	if len(mgr.created) != 2 {
		t.Errorf("expected 2 environments created, got %d", len(mgr.created))
	}
	if len(mgr.ran) != 2 {
		t.Errorf("expected 2 pre-commit runs, got %d", len(mgr.ran))
	}
	if len(mgr.removed) != 2 {
		t.Errorf("expected every environment removed, got %d", len(mgr.removed))
	}
}

func TestRunPrecommitFailureStillRemovesEnv(t *testing.T) {
	mgr := &fakeManager{runErr: errors.New("exit status 1")}
	h := newTestHarness(t, mgr)

	summary, err := h.Run(context.Background(), Options{
		SampleSize: 1,
		Seed:       3,
		WorkDir:    t.TempDir(),
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if summary.Failed != 1 {
		t.Fatalf("expected the configuration to fail, got %+v", summary.Outcomes)
	}
	if summary.Outcomes[0].FailedStage != StagePrecommit {
		t.Errorf("expected precommit stage failure, got %s", summary.Outcomes[0].FailedStage)
	}
	if len(mgr.removed) != 1 {
		t.Errorf("expected environment teardown despite failure, got %d removals", len(mgr.removed))
	}
}

func TestRunEnvCreateFailureRecordsEnvStage(t *testing.T) {
	mgr := &fakeManager{createErr: errors.New("solver conflict")}
	h := newTestHarness(t, mgr)

	summary, err := h.Run(context.Background(), Options{
		SampleSize: 1,
		Seed:       3,
		WorkDir:    t.TempDir(),
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if summary.Outcomes[0].FailedStage != StageEnv {
		t.Errorf("expected env stage failure, got %s", summary.Outcomes[0].FailedStage)
	}
	if len(mgr.removed) != 0 {
		t.Errorf("no environment should be removed when creation failed, got %d", len(mgr.removed))
	}
}

func TestRunRemovesPassedProjectDirs(t *testing.T) {
	h := newTestHarness(t, nil)
	workDir := t.TempDir()

	_, err := h.Run(context.Background(), Options{
		SampleSize: 2,
		Seed:       11,
		WorkDir:    workDir,
		SkipEnv:    true,
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	entries, err := os.ReadDir(workDir)
	if err != nil {
		t.Fatalf("failed to read work dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected passed project directories to be cleaned up, found %d entries", len(entries))
	}
}

func TestRunRecordsHistory(t *testing.T) {
	store, err := stores.NewSQLiteStore(stores.Config{Path: ":memory:"})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	defer store.Close()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate store: %v", err)
	}

	logger := zerolog.Nop()
	bp := scaffold.Default()
	policies, err := policy.NewEngine(logger)
	if err != nil {
		t.Fatalf("failed to create policy engine: %v", err)
	}
	h, err := New(Components{
		Blueprint:  bp,
		Scaffolder: scaffold.New(bp, hooks.NewEngine(30*time.Second, logger), logger),
		Policies:   policies,
		Store:      store,
		Logger:     logger,
	})
	if err != nil {
		t.Fatalf("failed to create harness: %v", err)
	}

	summary, err := h.Run(ctx, Options{
		SampleSize: 2,
		Seed:       5,
		WorkDir:    t.TempDir(),
		SkipEnv:    true,
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	run, err := store.GetRun(ctx, summary.RunID)
	if err != nil {
		t.Fatalf("failed to load run: %v", err)
	}
	if run.Status != stores.RunStatusCompleted {
		t.Errorf("expected completed run, got %s", run.Status)
	}

	results, err := store.ListConfigResults(ctx, summary.RunID)
	if err != nil {
		t.Fatalf("failed to list config results: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 config results, got %d", len(results))
	}
	for _, r := range results {
		if r.Status != stores.ConfigStatusPassed {
			t.Errorf("expected passed config, got %s (%v)", r.Status, r.Error)
		}
	}
}

func TestRunPublishesEvents(t *testing.T) {
	events := telemetry.NewEvents()
	var mu sync.Mutex
	var types []string
	events.Subscribe(func(e telemetry.Event) {
		mu.Lock()
		types = append(types, e.Type)
		mu.Unlock()
	})

	logger := zerolog.Nop()
	bp := scaffold.Default()
	policies, err := policy.NewEngine(logger)
	if err != nil {
		t.Fatalf("failed to create policy engine: %v", err)
	}
	h, err := New(Components{
		Blueprint:  bp,
		Scaffolder: scaffold.New(bp, hooks.NewEngine(30*time.Second, logger), logger),
		Policies:   policies,
		Events:     events,
		Logger:     logger,
	})
	if err != nil {
		t.Fatalf("failed to create harness: %v", err)
	}

	if _, err := h.Run(context.Background(), Options{
		SampleSize: 1,
		Seed:       9,
		WorkDir:    t.TempDir(),
		SkipEnv:    true,
	}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	want := map[string]bool{
		telemetry.EventRunStarted:      false,
		telemetry.EventConfigGenerated: false,
		telemetry.EventConfigPassed:    false,
		telemetry.EventRunCompleted:    false,
	}
	for _, typ := range types {
		if _, ok := want[typ]; ok {
			want[typ] = true
		}
	}
	for typ, seen := range want {
		if !seen {
			t.Errorf("expected event %s to be published", typ)
		}
	}
}
