package workflow_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"narrator/internal/config"
	"narrator/internal/queue"
	"narrator/internal/stage"
	"narrator/internal/testsupport"
	"narrator/internal/workflow"
)

type funcStage struct {
	name    string
	mu      sync.Mutex
	calls   int
	failing []error
	exec    func(*queue.Item) error
}

func (s *funcStage) Prepare(context.Context, *queue.Item) error { return nil }

func (s *funcStage) Execute(_ context.Context, item *queue.Item) error {
	s.mu.Lock()
	s.calls++
	var err error
	if len(s.failing) > 0 {
		err, s.failing = s.failing[0], s.failing[1:]
	}
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.exec(item)
}

func (s *funcStage) HealthCheck(context.Context) stage.Health { return stage.Healthy(s.name) }

func (s *funcStage) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

var narrations = []string{
	"one two three four five six seven eight nine ten eleven twelve thirteen fourteen fifteen sixteen seventeen eighteen nineteen twenty twenty-one twenty-two twenty-three twenty-four twenty-five twenty-six twenty-seven twenty-eight twenty-nine thirty thirty-one thirty-two thirty-three thirty-four thirty-five thirty-six thirty-seven thirty-eight thirty-nine forty",
	"a b c d e f g h i j k l m n o p",
	"w1 w2 w3 w4 w5 w6 w7 w8 w9 w10 w11 w12 w13 w14 w15 w16 w17 w18 w19 w20 w21 w22 w23 w24",
}

var durations = []float64{12.0, 5.0, 8.0}

type pipelineFixture struct {
	script   *funcStage
	images   *funcStage
	audio    *funcStage
	assemble *funcStage
}

func newPipelineFixture(t *testing.T, cfg *config.Config) *pipelineFixture {
	t.Helper()
	workDir := func(item *queue.Item) string {
		dir := item.WorkDir(cfg.Paths.StagingDir)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Errorf("mkdir work dir: %v", err)
		}
		return dir
	}
	return &pipelineFixture{
		script: &funcStage{name: "script", exec: func(item *queue.Item) error {
			item.Title = "Title " + item.Topic
			item.Script = nil
			for i, narration := range narrations {
				item.Script = append(item.Script, queue.Scene{Number: i + 1, Narration: narration, ImagePrompt: fmt.Sprintf("prompt %d", i+1)})
			}
			return nil
		}},
		images: &funcStage{name: "images", exec: func(item *queue.Item) error {
			dir := workDir(item)
			for _, scene := range item.Script {
				path := filepath.Join(dir, queue.SceneFile("scene", scene.Number, "jpg"))
				if err := os.WriteFile(path, testsupport.JPEGBytes(), 0o644); err != nil {
					return err
				}
				item.Images = append(item.Images, queue.ImageAsset{SceneNumber: scene.Number, Path: path})
			}
			return nil
		}},
		audio: &funcStage{name: "audio", exec: func(item *queue.Item) error {
			dir := workDir(item)
			for i, scene := range item.Script {
				path := filepath.Join(dir, queue.SceneFile("scene", scene.Number, "mp3"))
				if err := os.WriteFile(path, testsupport.MP3Bytes(), 0o644); err != nil {
					return err
				}
				item.Audio = append(item.Audio, queue.AudioClip{SceneNumber: scene.Number, Path: path, Duration: durations[i%len(durations)]})
			}
			return nil
		}},
		assemble: &funcStage{name: "assemble", exec: func(item *queue.Item) error {
			path := filepath.Join(workDir(item), "final.mp4")
			if err := os.WriteFile(path, []byte("video"), 0o644); err != nil {
				return err
			}
			item.FinalVideoPath = path
			return nil
		}},
	}
}

func (p *pipelineFixture) set() workflow.StageSet {
	return workflow.StageSet{Script: p.script, Images: p.images, Audio: p.audio, Assemble: p.assemble}
}

type readyNote struct {
	id    int64
	title string
	ref   string
}

type recordingNotifier struct {
	mu     sync.Mutex
	ready  []readyNote
	failed []int64
}

func (r *recordingNotifier) NotifyReady(_ context.Context, id int64, title, ref string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ready = append(r.ready, readyNote{id: id, title: title, ref: ref})
	return nil
}

func (r *recordingNotifier) NotifyFailed(_ context.Context, id int64, _, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed = append(r.failed, id)
	return nil
}

func (r *recordingNotifier) TestNotification(context.Context) error { return nil }

func (r *recordingNotifier) readyCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ready)
}

func (r *recordingNotifier) failedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.failed)
}

func mustLoad(t *testing.T, store *queue.Store, id int64) *queue.Item {
	t.Helper()
	item, err := store.Load(context.Background(), id)
	if err != nil {
		t.Fatalf("load item %d: %v", id, err)
	}
	return item
}
