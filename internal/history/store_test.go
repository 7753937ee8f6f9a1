package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/streammd/streammd/parser"
)

func openTestStore(t *testing.T, maxRuns int) *Store {
	t.Helper()
	store, err := Open(Config{
		Path:    filepath.Join(t.TempDir(), "history.db"),
		MaxRuns: maxRuns,
	})
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStoreRecordAndGet(t *testing.T) {
	store := openTestStore(t, 0)
	ctx := context.Background()

	run := &Run{
		Source:    "doc.md",
		Bytes:     512,
		ChunkSize: 16,
		Events:    42,
		Elements:  7,
		Counts:    map[string]int{"text": 4, "code": 2, "header": 1},
		Duration:  35 * time.Millisecond,
	}
	if err := store.Record(ctx, run); err != nil {
		t.Fatalf("failed to record run: %v", err)
	}
	if run.ID == 0 {
		t.Error("expected run ID to be assigned")
	}
	if run.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be filled")
	}

	loaded, err := store.Get(ctx, run.ID)
	if err != nil {
		t.Fatalf("failed to load run: %v", err)
	}
	if loaded == nil {
		t.Fatal("expected run to exist")
	}
	if loaded.Source != "doc.md" || loaded.Bytes != 512 || loaded.ChunkSize != 16 {
		t.Errorf("loaded run = %+v", loaded)
	}
	if loaded.Events != 42 || loaded.Elements != 7 {
		t.Errorf("expected events=42 elements=7, got %d/%d", loaded.Events, loaded.Elements)
	}
	if loaded.Duration != 35*time.Millisecond {
		t.Errorf("expected duration 35ms, got %v", loaded.Duration)
	}
	if loaded.Counts["text"] != 4 || loaded.Counts["code"] != 2 {
		t.Errorf("counts = %v", loaded.Counts)
	}
}

func TestStoreGetMissing(t *testing.T) {
	store := openTestStore(t, 0)

	run, err := store.Get(context.Background(), 9999)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if run != nil {
		t.Errorf("expected nil for missing run, got %+v", run)
	}
}

func TestStoreListNewestFirst(t *testing.T) {
	store := openTestStore(t, 0)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		run := &Run{
			Source:    "doc.md",
			Bytes:     i,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := store.Record(ctx, run); err != nil {
			t.Fatalf("failed to record run %d: %v", i, err)
		}
	}

	runs, err := store.List(ctx, 10)
	if err != nil {
		t.Fatalf("failed to list runs: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(runs))
	}
	if runs[0].Bytes != 2 || runs[2].Bytes != 0 {
		t.Errorf("expected newest first, got order %d, %d, %d",
			runs[0].Bytes, runs[1].Bytes, runs[2].Bytes)
	}

	limited, err := store.List(ctx, 2)
	if err != nil {
		t.Fatalf("failed to list limited runs: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("expected 2 runs with limit, got %d", len(limited))
	}
}

func TestStoreMaxRunsCleanupOnOpen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "history.db")
	ctx := context.Background()

	store, err := Open(Config{Path: path})
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		run := &Run{Source: "doc.md", Bytes: i, CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := store.Record(ctx, run); err != nil {
			t.Fatalf("failed to record run %d: %v", i, err)
		}
	}
	store.Close()

	// Reopening with a cap trims the oldest runs.
	store, err = Open(Config{Path: path, MaxRuns: 2})
	if err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	defer store.Close()

	runs, err := store.List(ctx, 10)
	if err != nil {
		t.Fatalf("failed to list runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs after cleanup, got %d", len(runs))
	}
	if runs[0].Bytes != 4 || runs[1].Bytes != 3 {
		t.Errorf("expected newest runs kept, got %d, %d", runs[0].Bytes, runs[1].Bytes)
	}
}

func TestStoreClear(t *testing.T) {
	store := openTestStore(t, 0)
	ctx := context.Background()

	if err := store.Record(ctx, &Run{Source: "doc.md"}); err != nil {
		t.Fatalf("failed to record run: %v", err)
	}
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("failed to clear runs: %v", err)
	}

	runs, err := store.List(ctx, 10)
	if err != nil {
		t.Fatalf("failed to list runs: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected no runs after clear, got %d", len(runs))
	}
}

func TestRunTally(t *testing.T) {
	events, err := parser.Parse("# Title\n\nBody text.\n\n```go\nx := 1\n```\n")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	var run Run
	run.Tally(events)

	if run.Events != len(events) {
		t.Errorf("events = %d, want %d", run.Events, len(events))
	}
	if run.Elements != 3 {
		t.Errorf("elements = %d, want 3", run.Elements)
	}
	if run.Counts["header"] != 1 || run.Counts["text"] != 1 || run.Counts["code"] != 1 {
		t.Errorf("counts = %v", run.Counts)
	}
}
