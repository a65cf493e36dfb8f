package queue_test

import (
	"errors"
	"path/filepath"
	"testing"

	"narrator/internal/queue"
	"narrator/internal/services"
)

func TestTransitionTable(t *testing.T) {
	allowed := []struct{ from, to queue.Status }{
		{queue.StatusDraft, queue.StatusScripting},
		{queue.StatusScripting, queue.StatusGeneratingImages},
		{queue.StatusGeneratingImages, queue.StatusGeneratingAudio},
		{queue.StatusGeneratingAudio, queue.StatusAssembling},
		{queue.StatusAssembling, queue.StatusReady},
		{queue.StatusAssembling, queue.StatusFailed},
		{queue.StatusFailed, queue.StatusGeneratingImages},
	}
	for _, tc := range allowed {
		if !queue.CanTransition(tc.from, tc.to) {
			t.Fatalf("expected %s -> %s to be allowed", tc.from, tc.to)
		}
	}

	rejected := []struct{ from, to queue.Status }{
		{queue.StatusDraft, queue.StatusAssembling},
		{queue.StatusScripting, queue.StatusDraft},
		{queue.StatusReady, queue.StatusFailed},
		{queue.StatusReady, queue.StatusScripting},
		{queue.StatusFailed, queue.StatusAssembling},
		{queue.StatusGeneratingAudio, queue.StatusGeneratingImages},
	}
	for _, tc := range rejected {
		item := &queue.Item{ID: 1, Status: tc.from}
		err := item.TransitionTo(tc.to)
		if !errors.Is(err, services.ErrInvalidState) {
			t.Fatalf("expected %s -> %s to be rejected, got %v", tc.from, tc.to, err)
		}
		if item.Status != tc.from {
			t.Fatalf("rejected transition mutated status to %s", item.Status)
		}
	}
}

func TestClearFromDropsDownstreamArtifacts(t *testing.T) {
	item := &queue.Item{
		Title:          "t",
		Script:         []queue.Scene{{Number: 1}},
		Images:         []queue.ImageAsset{{SceneNumber: 1}},
		Audio:          []queue.AudioClip{{SceneNumber: 1}},
		FinalVideoPath: "final.mp4",
	}
	item.ClearFrom(queue.StatusGeneratingImages)
	if len(item.Script) != 1 || item.Title != "t" {
		t.Fatal("script must survive an images restart")
	}
	if item.Images != nil || item.Audio != nil || item.FinalVideoPath != "" {
		t.Fatalf("expected downstream artifacts cleared: %#v", item)
	}
}

func TestSetFailedRecordsStageAndTruncates(t *testing.T) {
	item := &queue.Item{Status: queue.StatusGeneratingAudio}
	long := make([]byte, 5000)
	for i := range long {
		long[i] = 'x'
	}
	item.SetFailed(string(long))
	if item.Status != queue.StatusFailed || item.FailedStage != queue.StatusGeneratingAudio {
		t.Fatalf("unexpected failure state: %s / %s", item.Status, item.FailedStage)
	}
	if len([]rune(item.ErrorMessage)) > 1001 {
		t.Fatalf("error message not truncated: %d runes", len([]rune(item.ErrorMessage)))
	}
}

func TestWorkDirAndSceneFile(t *testing.T) {
	item := queue.Item{ID: 12}
	if got := item.WorkDir("/data/staging"); got != filepath.Join("/data/staging", "item-12") {
		t.Fatalf("unexpected work dir %q", got)
	}
	if got := (queue.Item{}).WorkDir("/data"); got != "" {
		t.Fatalf("expected empty work dir for unsaved item, got %q", got)
	}
	if got := queue.SceneFile("scene", 3, ".mp3"); got != "scene_03.mp3" {
		t.Fatalf("unexpected scene file %q", got)
	}
}
