package stores

import (
	"context"
	"testing"
	"time"
)

// setupTestStore creates an in-memory SQLite store for testing
func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := NewSQLiteStore(Config{
		Path: ":memory:",
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}

	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate store: %v", err)
	}

	return store
}

func testRun(id string) *MatrixRun {
	now := time.Now()
	return &MatrixRun{
		ID:           id,
		Blueprint:    "datascience",
		SampleSize:   5,
		TotalConfigs: 8,
		Status:       RunStatusRunning,
		StartedAt:    now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// TestStoreLifecycle tests database initialization and closure
func TestStoreLifecycle(t *testing.T) {
	store, err := NewSQLiteStore(Config{
		Path: ":memory:",
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("failed to initialize store: %v", err)
	}

	if err := store.HealthCheck(ctx); err != nil {
		t.Fatalf("health check failed: %v", err)
	}

	if err := store.Close(); err != nil {
		t.Fatalf("failed to close store: %v", err)
	}
}

// TestStoreMigrations tests that migrations create the expected tables
func TestStoreMigrations(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()

	tables := []string{"matrix_runs", "config_results"}
	for _, table := range tables {
		query := "SELECT COUNT(*) FROM " + table
		var count int
		if err := store.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
			t.Errorf("table %s does not exist or is not accessible: %v", table, err)
		}
	}
}

func TestRunCRUD(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()
	run := testRun("run-1")

	if err := store.CreateRun(ctx, run); err != nil {
		t.Fatalf("failed to create run: %v", err)
	}

	got, err := store.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("failed to get run: %v", err)
	}
	if got.Blueprint != "datascience" {
		t.Errorf("expected blueprint datascience, got %s", got.Blueprint)
	}
	if got.Status != RunStatusRunning {
		t.Errorf("expected status running, got %s", got.Status)
	}
	if got.SampleSize != 5 || got.TotalConfigs != 8 {
		t.Errorf("unexpected matrix dimensions: %d of %d", got.SampleSize, got.TotalConfigs)
	}

	errMsg := "pre-commit failed"
	if err := store.UpdateRunStatus(ctx, "run-1", RunStatusFailed, &errMsg); err != nil {
		t.Fatalf("failed to update run status: %v", err)
	}

	got, err = store.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("failed to get run after update: %v", err)
	}
	if got.Status != RunStatusFailed {
		t.Errorf("expected status failed, got %s", got.Status)
	}
	if got.Error == nil || *got.Error != errMsg {
		t.Errorf("expected error message to persist, got %v", got.Error)
	}
	if got.CompletedAt == nil {
		t.Error("expected completed_at to be set on terminal status")
	}
}

func TestGetRunNotFound(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	if _, err := store.GetRun(context.Background(), "missing"); err == nil {
		t.Error("expected error for missing run")
	}
}

func TestUpdateRunStatusNotFound(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	if err := store.UpdateRunStatus(context.Background(), "missing", RunStatusCompleted, nil); err == nil {
		t.Error("expected error updating missing run")
	}
}

func TestListRunsOrdering(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()

	older := testRun("run-old")
	older.StartedAt = time.Now().Add(-time.Hour)
	newer := testRun("run-new")

	if err := store.CreateRun(ctx, older); err != nil {
		t.Fatalf("failed to create run: %v", err)
	}
	if err := store.CreateRun(ctx, newer); err != nil {
		t.Fatalf("failed to create run: %v", err)
	}

	runs, err := store.ListRuns(ctx, 10, 0)
	if err != nil {
		t.Fatalf("failed to list runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID != "run-new" {
		t.Errorf("expected newest run first, got %s", runs[0].ID)
	}

	limited, err := store.ListRuns(ctx, 1, 0)
	if err != nil {
		t.Fatalf("failed to list runs with limit: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("expected 1 run with limit, got %d", len(limited))
	}
}

func TestConfigResultCRUD(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	ctx := context.Background()
	if err := store.CreateRun(ctx, testRun("run-1")); err != nil {
		t.Fatalf("failed to create run: %v", err)
	}

	now := time.Now()
	result := &ConfigResult{
		ID:        "cfg-1",
		RunID:     "run-1",
		EnvName:   "a3f9c2e1",
		Selection: `{"linter_name":"ruff","install_jupyter":"yes"}`,
		Status:    ConfigStatusRunning,
		StartedAt: &now,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := store.CreateConfigResult(ctx, result); err != nil {
		t.Fatalf("failed to create config result: %v", err)
	}

	stage := "precommit"
	errMsg := "hook exited non-zero"
	if err := store.UpdateConfigResult(ctx, "cfg-1", ConfigStatusFailed, &stage, &errMsg); err != nil {
		t.Fatalf("failed to update config result: %v", err)
	}

	results, err := store.ListConfigResults(ctx, "run-1")
	if err != nil {
		t.Fatalf("failed to list config results: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	got := results[0]
	if got.Status != ConfigStatusFailed {
		t.Errorf("expected status failed, got %s", got.Status)
	}
	if got.FailedStage == nil || *got.FailedStage != "precommit" {
		t.Errorf("expected failed stage precommit, got %v", got.FailedStage)
	}
	if got.CompletedAt == nil {
		t.Error("expected completed_at on terminal status")
	}
	if got.EnvName != "a3f9c2e1" {
		t.Errorf("unexpected env name: %s", got.EnvName)
	}
}

func TestUpdateConfigResultNotFound(t *testing.T) {
	store := setupTestStore(t)
	defer store.Close()

	if err := store.UpdateConfigResult(context.Background(), "missing", ConfigStatusPassed, nil, nil); err == nil {
		t.Error("expected error updating missing config result")
	}
}
