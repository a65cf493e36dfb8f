package publish_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"narrator/internal/publish"
	"narrator/internal/queue"
	"narrator/internal/testsupport"
)

func readyItem(t *testing.T) queue.Item {
	t.Helper()
	work := filepath.Join(t.TempDir(), "item-4")
	item := queue.Item{
		ID:             4,
		Topic:          "volcanoes",
		Title:          "Les volcans: feu/glace?",
		Status:         queue.StatusReady,
		FinalVideoPath: filepath.Join(work, "final.mp4"),
		ThumbnailPath:  filepath.Join(work, "thumbnail.jpg"),
		CaptionsPath:   filepath.Join(work, "captions.srt"),
	}
	testsupport.WriteFile(t, item.FinalVideoPath, 2048)
	testsupport.WriteBytes(t, item.ThumbnailPath, testsupport.JPEGBytes())
	testsupport.WriteBytes(t, item.CaptionsPath, []byte("1\n00:00:00,000 --> 00:00:01,000\nBonjour\n"))
	return item
}

func TestExportCopiesArtifactsUnderTitle(t *testing.T) {
	item := readyItem(t)
	dest := filepath.Join(t.TempDir(), "out")

	written, err := publish.Export(item, dest, false)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	want := []string{
		filepath.Join(dest, "Les volcans- feu-glace.mp4"),
		filepath.Join(dest, "Les volcans- feu-glace-thumbnail.jpg"),
		filepath.Join(dest, "Les volcans- feu-glace.srt"),
	}
	if len(written) != len(want) {
		t.Fatalf("written = %v", written)
	}
	for i, path := range want {
		if written[i] != path {
			t.Fatalf("written[%d] = %q, want %q", i, written[i], path)
		}
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("missing %s: %v", path, err)
		}
	}

	if _, err := publish.Export(item, dest, false); err == nil {
		t.Fatal("expected refusal to overwrite")
	}
	if _, err := publish.Export(item, dest, true); err != nil {
		t.Fatalf("overwrite export: %v", err)
	}
}

func TestExportRejectsUnfinishedItem(t *testing.T) {
	item := queue.Item{ID: 9, Topic: "x", Status: queue.StatusAssembling}
	_, err := publish.Export(item, t.TempDir(), false)
	if !errors.Is(err, publish.ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}
}

func TestExportNameFallsBackToID(t *testing.T) {
	if got := publish.ExportName(queue.Item{ID: 3, Title: "???"}); got != "item-3" {
		t.Fatalf("ExportName = %q", got)
	}
}
