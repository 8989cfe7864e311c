package history

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestStore_RecordAndListRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	older := Run{ID: "run-a", StartedAt: base, Duration: 1500 * time.Millisecond, SourceRoot: "repo", OutputDir: "out", Functions: 2, Transformed: 3}
	newer := Run{ID: "run-b", StartedAt: base.Add(time.Hour), SourceRoot: "repo", OutputDir: "out", DryRun: true, Functions: 2, Failed: 1, Warnings: 1}

	if err := store.RecordRun(older, []FileResult{
		{SourcePath: "hello/index.ts", Function: "hello", Outcome: "transformed"},
		{SourcePath: "_shared/cors.ts", Outcome: "unchanged"},
	}); err != nil {
		t.Fatalf("record older run: %v", err)
	}
	if err := store.RecordRun(newer, []FileResult{
		{SourcePath: "broken/index.ts", Function: "broken", Outcome: "failed", Error: "parse failed"},
	}); err != nil {
		t.Fatalf("record newer run: %v", err)
	}

	runs, err := store.ListRuns(0)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID != "run-b" || runs[1].ID != "run-a" {
		t.Fatalf("expected newest first, got %s, %s", runs[0].ID, runs[1].ID)
	}
	if !runs[0].DryRun || runs[0].Failed != 1 {
		t.Fatalf("unexpected newest run: %+v", runs[0])
	}
	if runs[1].Duration != 1500*time.Millisecond || !runs[1].StartedAt.Equal(base) {
		t.Fatalf("unexpected older run timing: %+v", runs[1])
	}

	limited, err := store.ListRuns(1)
	if err != nil {
		t.Fatalf("list limited runs: %v", err)
	}
	if len(limited) != 1 || limited[0].ID != "run-b" {
		t.Fatalf("expected only run-b, got %+v", limited)
	}

	files, err := store.FileResults("run-a")
	if err != nil {
		t.Fatalf("file results: %v", err)
	}
	if len(files) != 2 || files[0].SourcePath != "_shared/cors.ts" || files[1].Function != "hello" {
		t.Fatalf("unexpected file results: %+v", files)
	}
}

func TestStore_RecordRunReplacesSameID(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	run := Run{ID: "same", StartedAt: time.Now().UTC(), Transformed: 1}
	if err := store.RecordRun(run, []FileResult{{SourcePath: "a.ts", Outcome: "transformed"}, {SourcePath: "b.ts", Outcome: "transformed"}}); err != nil {
		t.Fatal(err)
	}
	run.Transformed = 0
	run.Unchanged = 1
	if err := store.RecordRun(run, []FileResult{{SourcePath: "a.ts", Outcome: "unchanged"}}); err != nil {
		t.Fatal(err)
	}

	runs, err := store.ListRuns(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].Unchanged != 1 {
		t.Fatalf("expected replaced run, got %+v", runs)
	}
	files, err := store.FileResults("same")
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 || files[0].Outcome != "unchanged" {
		t.Fatalf("expected cascade-replaced file rows, got %+v", files)
	}
}

func TestStore_RecordRunRequiresID(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	if err := store.RecordRun(Run{}, nil); err == nil {
		t.Fatal("expected error for empty run id")
	}
}

func TestStore_OpenRejectsDirectoryPath(t *testing.T) {
	tmpDir := t.TempDir()
	_, err := Open(tmpDir)
	if err == nil {
		t.Fatal("expected open error for directory path")
	}
	if !strings.Contains(err.Error(), "is a directory") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestStore_OpenCorruptDBPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	if err := os.WriteFile(path, []byte("this is not sqlite"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Open(path)
	if err == nil {
		t.Fatal("expected sqlite open error")
	}
	lower := strings.ToLower(err.Error())
	if !strings.Contains(lower, "not a database") && !strings.Contains(lower, "schema") {
		t.Fatalf("expected schema/open error, got: %v", err)
	}
}

func TestEnsureSchema_DetectsNewerVersionDrift(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	if _, err := store.db.Exec(`INSERT OR REPLACE INTO schema_migrations(version) VALUES (?)`, SchemaVersion+1); err != nil {
		t.Fatal(err)
	}

	db, err := sql.Open(driverName, "file:"+path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	err = EnsureSchema(db)
	if err == nil {
		t.Fatal("expected drift error")
	}
	if !strings.Contains(err.Error(), "newer than supported") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestIsCorruptError(t *testing.T) {
	if !IsCorruptError(errors.New("database disk image is malformed")) {
		t.Fatal("expected malformed sqlite message to be treated as corrupt")
	}
}
