package workflow_test

import (
	"context"
	"testing"
	"time"

	"narrator/internal/logging"
	"narrator/internal/queue"
	"narrator/internal/testsupport"
	"narrator/internal/workflow"
)

func TestManagerProcessesQueuedItemsWithWorkerPool(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithWorkers(3))
	cfg.Workflow.QueuePollInterval = 0
	store := testsupport.MustOpenStore(t, cfg)
	fixture := newPipelineFixture(t, cfg)
	notifier := &recordingNotifier{}
	controller := workflow.NewController(cfg, store, fixture.set(), notifier, logging.NewNop())
	manager := workflow.NewManager(cfg, store, controller, logging.NewNop())

	ctx := context.Background()
	var ids []int64
	for _, topic := range []string{"Rivers", "Deserts", "Forests", "Caves"} {
		item := testsupport.NewItem(t, store, topic)
		if err := controller.Start(ctx, item.ID); err != nil {
			t.Fatalf("Start %s: %v", topic, err)
		}
		ids = append(ids, item.ID)
	}

	if err := manager.Start(ctx); err != nil {
		t.Fatalf("manager start: %v", err)
	}
	defer manager.Stop()
	if err := manager.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	deadline := time.Now().Add(10 * time.Second)
	for notifier.readyCount() < len(ids) {
		if time.Now().After(deadline) {
			t.Fatalf("timed out: %d/%d items ready", notifier.readyCount(), len(ids))
		}
		time.Sleep(20 * time.Millisecond)
	}

	for _, id := range ids {
		if got := mustLoad(t, store, id); got.Status != queue.StatusReady {
			t.Fatalf("item %d: expected ready, got %s", id, got.Status)
		}
	}
	if fixture.script.count() != len(ids) || fixture.assemble.count() != len(ids) {
		t.Fatalf("each item should run each stage once: script=%d assemble=%d", fixture.script.count(), fixture.assemble.count())
	}

	summary := manager.Status(ctx)
	if !summary.Running || summary.Workers != 3 {
		t.Fatalf("unexpected status summary: %+v", summary)
	}
	if summary.QueueStats[queue.StatusReady] != len(ids) {
		t.Fatalf("expected %d ready items in stats, got %v", len(ids), summary.QueueStats)
	}
	if health := summary.StageHealth["images"]; !health.Ready {
		t.Fatalf("expected images stage healthy, got %+v", health)
	}
}

func TestManagerStopIsIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithWorkers(1))
	store := testsupport.MustOpenStore(t, cfg)
	controller := workflow.NewController(cfg, store, workflow.StageSet{}, nil, logging.NewNop())
	manager := workflow.NewManager(cfg, store, controller, logging.NewNop())

	manager.Stop()
	if err := manager.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	manager.Stop()
	manager.Stop()
	if manager.Status(context.Background()).Running {
		t.Fatal("manager should report stopped")
	}
}

func TestReclaimStaleItemsFailsProcessingItems(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.HeartbeatTimeout = 1
	store := testsupport.MustOpenStore(t, cfg)
	controller := workflow.NewController(cfg, store, workflow.StageSet{}, nil, logging.NewNop())

	item := testsupport.NewItem(t, store, "Storms")
	item.Status = queue.StatusGeneratingAudio
	item.Script = []queue.Scene{{Number: 1, Narration: "wind", ImagePrompt: "clouds"}}
	testsupport.SaveItem(t, store, item)

	time.Sleep(1100 * time.Millisecond)
	reclaimed, err := controller.Heartbeat().ReclaimStaleItems(context.Background())
	if err != nil {
		t.Fatalf("reclaim: %v", err)
	}
	if reclaimed != 1 {
		t.Fatalf("expected one reclaimed item, got %d", reclaimed)
	}
	got := mustLoad(t, store, item.ID)
	if got.Status != queue.StatusFailed || got.FailedStage != queue.StatusGeneratingAudio {
		t.Fatalf("expected failed at audio, got %s/%s", got.Status, got.FailedStage)
	}
	if stage, err := workflow.ResumeStage(got); err != nil || stage != queue.StatusGeneratingImages {
		t.Fatalf("expected resume at images (no images yet), got %s/%v", stage, err)
	}
}
