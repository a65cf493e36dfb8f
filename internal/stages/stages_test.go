package stages_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"narrator/internal/assembly"
	"narrator/internal/generation"
	"narrator/internal/logging"
	"narrator/internal/publish"
	"narrator/internal/queue"
	"narrator/internal/services"
	"narrator/internal/stages"
	"narrator/internal/testsupport"
)

type countingSaver struct {
	saves  int
	images []int
	audio  []int
}

func (c *countingSaver) Save(_ context.Context, item *queue.Item) error {
	c.saves++
	c.images = append(c.images, len(item.Images))
	c.audio = append(c.audio, len(item.Audio))
	return nil
}

type fakeScript struct {
	topic, style string
}

func (f *fakeScript) GenerateScript(_ context.Context, topic, style string) (generation.Script, error) {
	f.topic, f.style = topic, style
	return generation.Script{
		Title:       "Le thé",
		Description: "Histoire du thé",
		Tags:        []string{"thé", "histoire"},
		Scenes: []queue.Scene{
			{Number: 1, Narration: "first", ImagePrompt: "leaves"},
			{Number: 2, Narration: "second", ImagePrompt: "cups"},
		},
	}, nil
}

type fakeImages struct {
	failAt int
	dests  []string
}

func (f *fakeImages) GenerateImage(_ context.Context, sceneNumber int, _, dest string) (queue.ImageAsset, error) {
	if sceneNumber == f.failAt {
		return queue.ImageAsset{}, services.Wrap(services.ErrFatal, "generating_images", "generate", "quota exhausted", nil)
	}
	f.dests = append(f.dests, dest)
	if err := os.WriteFile(dest, testsupport.JPEGBytes(), 0o644); err != nil {
		return queue.ImageAsset{}, err
	}
	return queue.ImageAsset{SceneNumber: sceneNumber, Path: dest}, nil
}

type fakeAudio struct{}

func (fakeAudio) GenerateAudio(_ context.Context, sceneNumber int, _, dest string) (queue.AudioClip, error) {
	if err := os.WriteFile(dest, testsupport.MP3Bytes(), 0o644); err != nil {
		return queue.AudioClip{}, err
	}
	return queue.AudioClip{SceneNumber: sceneNumber, Path: dest, Duration: float64(sceneNumber) + 0.5}, nil
}

func scriptedItem(id int64) *queue.Item {
	return &queue.Item{
		ID:     id,
		Topic:  "Tea",
		Status: queue.StatusGeneratingImages,
		Script: []queue.Scene{
			{Number: 1, Narration: "first", ImagePrompt: "leaves"},
			{Number: 2, Narration: "second", ImagePrompt: "cups"},
		},
	}
}

func TestScriptStageStoresMetadataAndDefaultStyle(t *testing.T) {
	gen := &fakeScript{}
	handler := stages.NewScript(gen, "cinematique", true, logging.NewNop())
	item := &queue.Item{ID: 1, Topic: "Tea", Status: queue.StatusScripting}

	if err := handler.Prepare(context.Background(), item); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := handler.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if gen.style != "cinematique" || item.Style != "cinematique" {
		t.Fatalf("expected default style, got %q/%q", gen.style, item.Style)
	}
	if item.Title != "Le thé" || len(item.Tags) != 2 || len(item.Script) != 2 {
		t.Fatalf("unexpected item: %+v", item)
	}
}

func TestScriptStageRejectsEmptyTopic(t *testing.T) {
	handler := stages.NewScript(&fakeScript{}, "cinematique", true, nil)
	err := handler.Prepare(context.Background(), &queue.Item{ID: 1, Status: queue.StatusScripting})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestImagesStageSavesAfterEveryImage(t *testing.T) {
	staging := t.TempDir()
	saver := &countingSaver{}
	gen := &fakeImages{}
	handler := stages.NewImages(gen, saver, staging, "jpg", true, nil)
	item := scriptedItem(7)

	if err := handler.Prepare(context.Background(), item); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := handler.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(item.Images) != 2 || saver.saves != 2 {
		t.Fatalf("expected 2 images and 2 saves, got %d/%d", len(item.Images), saver.saves)
	}
	if saver.images[0] != 1 || saver.images[1] != 2 {
		t.Fatalf("expected incremental saves, got %v", saver.images)
	}
	want := filepath.Join(staging, "item-7", "scene_01.jpg")
	if gen.dests[0] != want {
		t.Fatalf("expected %s, got %s", want, gen.dests[0])
	}
	if item.ProgressPercent != 100 {
		t.Fatalf("expected full progress, got %v", item.ProgressPercent)
	}
}

func TestImagesStageKeepsPartialProgressOnFailure(t *testing.T) {
	saver := &countingSaver{}
	handler := stages.NewImages(&fakeImages{failAt: 2}, saver, t.TempDir(), "png", true, nil)
	item := scriptedItem(3)

	err := handler.Execute(context.Background(), item)
	if !errors.Is(err, services.ErrFatal) {
		t.Fatalf("expected fatal error, got %v", err)
	}
	if len(item.Images) != 1 || saver.saves != 1 {
		t.Fatalf("expected first image persisted, got %d images %d saves", len(item.Images), saver.saves)
	}
	if filepath.Ext(item.Images[0].Path) != ".png" {
		t.Fatalf("expected png extension, got %s", item.Images[0].Path)
	}
}

func TestAudioStageRequiresImages(t *testing.T) {
	handler := stages.NewAudio(fakeAudio{}, &countingSaver{}, t.TempDir(), true, nil)
	err := handler.Prepare(context.Background(), scriptedItem(1))
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAudioStageMeasuresEveryScene(t *testing.T) {
	saver := &countingSaver{}
	handler := stages.NewAudio(fakeAudio{}, saver, t.TempDir(), true, nil)
	item := scriptedItem(2)
	item.Images = []queue.ImageAsset{{SceneNumber: 1, Path: "a.jpg"}, {SceneNumber: 2, Path: "b.jpg"}}

	if err := handler.Prepare(context.Background(), item); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := handler.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(item.Audio) != 2 || item.TotalAudioDuration() != 4.0 {
		t.Fatalf("unexpected audio: %+v", item.Audio)
	}
	if saver.saves != 2 {
		t.Fatalf("expected a save per clip, got %d", saver.saves)
	}
}

type fakeAssembler struct {
	result assembly.Result
	err    error
	in     assembly.Input
}

func (f *fakeAssembler) Assemble(_ context.Context, in assembly.Input) (assembly.Result, error) {
	f.in = in
	return f.result, f.err
}

type failingPublisher struct{}

func (failingPublisher) Publish(_ context.Context, art publish.Artifacts) (publish.Result, error) {
	return publish.Result{VideoRef: art.VideoPath}, services.Wrap(services.ErrTransient, "publish", "upload", "bucket unreachable", nil)
}

func assembledItem(id int64) *queue.Item {
	item := scriptedItem(id)
	item.Status = queue.StatusAssembling
	item.Images = []queue.ImageAsset{{SceneNumber: 1, Path: "a.jpg"}, {SceneNumber: 2, Path: "b.jpg"}}
	item.Audio = []queue.AudioClip{{SceneNumber: 1, Path: "a.mp3", Duration: 2}, {SceneNumber: 2, Path: "b.mp3", Duration: 3}}
	return item
}

func TestAssembleStageRecordsResultAndWarnings(t *testing.T) {
	staging := t.TempDir()
	assembler := &fakeAssembler{result: assembly.Result{
		VideoPath:     "/w/final.mp4",
		ThumbnailPath: "/w/thumbnail.jpg",
		CaptionsPath:  "/w/captions.srt",
		Degraded:      []error{errors.New("music step failed")},
	}}
	handler := stages.NewAssemble(assembler, publish.LocalPublisher{}, staging, true, nil)
	item := assembledItem(5)

	if err := handler.Prepare(context.Background(), item); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := handler.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if assembler.in.WorkDir != filepath.Join(staging, "item-5") || len(assembler.in.Scenes) != 2 {
		t.Fatalf("unexpected assembly input: %+v", assembler.in)
	}
	if item.FinalVideoPath != "/w/final.mp4" || item.CaptionsPath != "/w/captions.srt" {
		t.Fatalf("unexpected artifact paths: %+v", item)
	}
	if len(item.Warnings) != 1 || item.PublishedURL != "" {
		t.Fatalf("unexpected warnings/published url: %v %q", item.Warnings, item.PublishedURL)
	}
}

func TestAssembleStagePublishFailureIsDegraded(t *testing.T) {
	assembler := &fakeAssembler{result: assembly.Result{VideoPath: "/w/final.mp4"}}
	handler := stages.NewAssemble(assembler, failingPublisher{}, t.TempDir(), true, nil)
	item := assembledItem(6)

	if err := handler.Execute(context.Background(), item); err != nil {
		t.Fatalf("publish failure must not fail the stage: %v", err)
	}
	if len(item.Warnings) != 1 || item.FinalVideoPath != "/w/final.mp4" {
		t.Fatalf("expected publish warning, got %v", item.Warnings)
	}
}

func TestAssembleStageFatalAssemblyError(t *testing.T) {
	assembler := &fakeAssembler{err: services.Wrap(services.ErrExternalTool, "assembling", "render clip", "scene 1 clip failed", nil)}
	handler := stages.NewAssemble(assembler, nil, t.TempDir(), true, nil)
	if err := handler.Execute(context.Background(), assembledItem(8)); !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
}

func TestHealthReflectsConfiguration(t *testing.T) {
	handler := stages.NewImages(&fakeImages{}, nil, t.TempDir(), "jpg", false, nil)
	health := handler.HealthCheck(context.Background())
	if health.Ready || health.Detail == "" {
		t.Fatalf("expected unhealthy images stage, got %+v", health)
	}
}
