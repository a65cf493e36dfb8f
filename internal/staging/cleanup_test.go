package staging_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"narrator/internal/logging"
	"narrator/internal/staging"
)

func mkdirs(t *testing.T, dirs ...string) {
	t.Helper()
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}
}

func TestParseWorkDirID(t *testing.T) {
	cases := map[string]int64{
		"item-1":   1,
		"item-42":  42,
		"item-0":   0,
		"item-x":   0,
		"item-":    0,
		"queue-3":  0,
		"ITEM-3":   0,
		"item--4":  0,
		"item-007": 7,
	}
	for name, want := range cases {
		got, ok := staging.ParseWorkDirID(name)
		if want == 0 {
			if ok {
				t.Errorf("%q: expected no match, got %d", name, got)
			}
			continue
		}
		if !ok || got != want {
			t.Errorf("%q: got (%d, %v), want %d", name, got, ok, want)
		}
	}
}

func TestCleanOrphanedInvalidPaths(t *testing.T) {
	for _, dir := range []string{"", "   ", "/nonexistent/path/12345"} {
		result := staging.CleanOrphaned(context.Background(), dir, nil, logging.NewNop())
		if len(result.Removed) != 0 || len(result.Errors) != 0 {
			t.Errorf("expected empty result for path %q", dir)
		}
	}
}

func TestCleanOrphanedKeepsActiveAndForeignDirs(t *testing.T) {
	root := t.TempDir()
	active := filepath.Join(root, "item-1")
	orphan := filepath.Join(root, "item-2")
	foreign := filepath.Join(root, "music-cache")
	mkdirs(t, active, orphan, foreign)
	if err := os.WriteFile(filepath.Join(orphan, "final.mp4"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	result := staging.CleanOrphaned(context.Background(), root, map[int64]struct{}{1: {}}, logging.NewNop())
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors: %+v", result.Errors)
	}
	if len(result.Removed) != 1 || result.Removed[0] != orphan {
		t.Fatalf("expected only %s removed, got %v", orphan, result.Removed)
	}
	if _, err := os.Stat(orphan); !os.IsNotExist(err) {
		t.Fatalf("orphan still present: %v", err)
	}
	for _, dir := range []string{active, foreign} {
		if _, err := os.Stat(dir); err != nil {
			t.Fatalf("%s should remain: %v", dir, err)
		}
	}
}

func TestCleanOrphanedStopsOnCancelledContext(t *testing.T) {
	root := t.TempDir()
	orphan := filepath.Join(root, "item-9")
	mkdirs(t, orphan)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result := staging.CleanOrphaned(ctx, root, nil, nil)
	if len(result.Removed) != 0 {
		t.Fatalf("expected no removals after cancel, got %v", result.Removed)
	}
	if _, err := os.Stat(orphan); err != nil {
		t.Fatalf("orphan should remain: %v", err)
	}
}

func TestListWorkDirsOrdersByItemAndSumsSize(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, filepath.Join(root, "item-10"), filepath.Join(root, "item-2", "nested"), filepath.Join(root, "other"))
	if err := os.WriteFile(filepath.Join(root, "item-2", "nested", "scene_01.mp3"), make([]byte, 100), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "item-10", "final.mp4"), make([]byte, 50), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	dirs, err := staging.ListWorkDirs(root)
	if err != nil {
		t.Fatalf("ListWorkDirs: %v", err)
	}
	if len(dirs) != 2 {
		t.Fatalf("expected 2 work dirs, got %d", len(dirs))
	}
	if dirs[0].ItemID != 2 || dirs[1].ItemID != 10 {
		t.Fatalf("unexpected order: %d, %d", dirs[0].ItemID, dirs[1].ItemID)
	}
	if dirs[0].Size != 100 || dirs[1].Size != 50 {
		t.Fatalf("unexpected sizes: %d, %d", dirs[0].Size, dirs[1].Size)
	}
	if got := staging.TotalSize(dirs); got != 150 {
		t.Fatalf("TotalSize = %d, want 150", got)
	}
}

func TestListWorkDirsMissingRoot(t *testing.T) {
	dirs, err := staging.ListWorkDirs(filepath.Join(t.TempDir(), "absent"))
	if err != nil || len(dirs) != 0 {
		t.Fatalf("expected empty result, got %v %v", dirs, err)
	}
}
