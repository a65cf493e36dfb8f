package assembly_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"

	"narrator/internal/assembly"
	"narrator/internal/services"
	"narrator/internal/testsupport"
)

type fakeRunner struct {
	mu    sync.Mutex
	calls [][]string
	fail  func(args []string) error
}

func (f *fakeRunner) run(_ context.Context, name string, args ...string) error {
	f.mu.Lock()
	f.calls = append(f.calls, append([]string{name}, args...))
	f.mu.Unlock()
	if f.fail != nil {
		if err := f.fail(args); err != nil {
			return err
		}
	}
	output := args[len(args)-1]
	return os.WriteFile(output, []byte("rendered:"+filepath.Base(output)), 0o644)
}

func (f *fakeRunner) callsContaining(fragment string) int {
	count := 0
	for _, call := range f.calls {
		if strings.Contains(strings.Join(call, " "), fragment) {
			count++
		}
	}
	return count
}

func sceneInputs(t *testing.T, dir string, durations ...float64) []assembly.SceneInput {
	t.Helper()
	narrations := []string{
		"Au commencement il y avait le désert et le silence",
		"Puis vinrent les bâtisseurs",
		"Leur héritage traverse encore les siècles aujourd'hui",
	}
	scenes := make([]assembly.SceneInput, 0, len(durations))
	for i, d := range durations {
		image := filepath.Join(dir, "scene_0"+string(rune('1'+i))+".jpg")
		audio := filepath.Join(dir, "scene_0"+string(rune('1'+i))+".mp3")
		testsupport.WriteBytes(t, image, testsupport.JPEGBytes())
		testsupport.WriteBytes(t, audio, testsupport.MP3Bytes())
		scenes = append(scenes, assembly.SceneInput{
			Number:    i + 1,
			Narration: narrations[i%len(narrations)],
			ImagePath: image,
			AudioPath: audio,
			Duration:  d,
		})
	}
	return scenes
}

func newInput(t *testing.T, style string) assembly.Input {
	workDir := filepath.Join(t.TempDir(), "item-7")
	return assembly.Input{
		ItemID:  7,
		Title:   "Les secrets des pyramides",
		Style:   style,
		WorkDir: workDir,
		Scenes:  sceneInputs(t, workDir, 12, 5, 8),
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func TestAssembleRunsEveryStep(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.WriteBytes(t, filepath.Join(cfg.Music.Dir, "educatif.mp3"), testsupport.MP3Bytes())
	runner := &fakeRunner{}
	asm := assembly.New(assembly.SettingsFromConfig(cfg), nil, assembly.WithCommandRunner(runner.run))

	in := newInput(t, "educatif")
	result, err := asm.Assemble(context.Background(), in)
	if err != nil {
		t.Fatalf("Assemble returned error: %v", err)
	}
	if len(result.Degraded) != 0 {
		t.Fatalf("expected no degraded steps, got %v", result.Degraded)
	}
	if len(runner.calls) != 3+1+1+1+1 {
		t.Fatalf("expected 7 ffmpeg calls, got %d", len(runner.calls))
	}
	if got := readFile(t, result.VideoPath); got != "rendered:mixed.mp4" {
		t.Fatalf("expected final video from music mix, got %q", got)
	}
	if result.VideoPath != filepath.Join(in.WorkDir, "final.mp4") {
		t.Fatalf("unexpected video path %s", result.VideoPath)
	}
	if result.ThumbnailPath != filepath.Join(in.WorkDir, "thumbnail.jpg") {
		t.Fatalf("unexpected thumbnail path %s", result.ThumbnailPath)
	}
	if result.CaptionsPath != filepath.Join(in.WorkDir, "captions.srt") {
		t.Fatalf("unexpected captions path %s", result.CaptionsPath)
	}

	list := readFile(t, filepath.Join(in.WorkDir, "concat.txt"))
	want := "file '" + filepath.Join(in.WorkDir, "clip_01.mp4") + "'\n" +
		"file '" + filepath.Join(in.WorkDir, "clip_02.mp4") + "'\n" +
		"file '" + filepath.Join(in.WorkDir, "clip_03.mp4") + "'\n"
	if list != want {
		t.Fatalf("unexpected concat list:\n%s", list)
	}
	if runner.callsContaining("-c copy") != 1 {
		t.Fatal("expected concat to use stream copy")
	}
	if runner.callsContaining("-t 5.000") != 1 {
		t.Fatal("expected scene 2 clip bounded to its measured duration")
	}
	if runner.callsContaining("-stream_loop -1") != 1 || runner.callsContaining("volume=-18dB") != 1 ||
		runner.callsContaining("duration=first") != 1 {
		t.Fatal("expected looped, attenuated music bounded by the narration")
	}
	if runner.callsContaining("force_style=") != 1 {
		t.Fatal("expected caption burn-in with force_style")
	}
	if runner.callsContaining("NOUVEAU") != 1 || runner.callsContaining("PYRAMIDES") != 1 {
		t.Fatal("expected thumbnail with badge and upper-cased title")
	}
	for i := 1; i < len(result.Effects); i++ {
		if result.Effects[i] == result.Effects[i-1] {
			t.Fatalf("consecutive scenes share effect %s", result.Effects[i])
		}
	}
}

func TestAssembleCaptionFailureFallsBackToConcat(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Thumbnail.Enabled = false
	runner := &fakeRunner{fail: func(args []string) error {
		if slices.ContainsFunc(args, func(a string) bool { return strings.HasPrefix(a, "subtitles=") }) {
			return services.NewSubprocessError("ffmpeg", args, 1, []byte("Unable to open captions.srt"), errors.New("exit status 1"))
		}
		return nil
	}}
	asm := assembly.New(assembly.SettingsFromConfig(cfg), nil, assembly.WithCommandRunner(runner.run))
	in := newInput(t, "educatif")

	result, err := asm.Assemble(context.Background(), in)
	if err != nil {
		t.Fatalf("Assemble returned error: %v", err)
	}
	if len(result.Degraded) != 1 || !errors.Is(result.Degraded[0], services.ErrDegraded) {
		t.Fatalf("expected one degraded step, got %v", result.Degraded)
	}
	concat := readFile(t, filepath.Join(in.WorkDir, "concat.mp4"))
	if final := readFile(t, result.VideoPath); final != concat {
		t.Fatalf("expected final video to equal concat output, got %q vs %q", final, concat)
	}
	if result.CaptionsPath == "" {
		t.Fatal("expected caption track to be kept even when burn-in fails")
	}
	if result.ThumbnailPath != "" {
		t.Fatalf("expected no thumbnail when disabled, got %s", result.ThumbnailPath)
	}
}

func TestAssembleThumbnailFailureDegrades(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	runner := &fakeRunner{fail: func(args []string) error {
		if strings.HasSuffix(args[len(args)-1], "thumbnail.jpg") {
			return errors.New("drawtext: font not found")
		}
		return nil
	}}
	asm := assembly.New(assembly.SettingsFromConfig(cfg), nil, assembly.WithCommandRunner(runner.run))
	result, err := asm.Assemble(context.Background(), newInput(t, "cinematique"))
	if err != nil {
		t.Fatalf("Assemble returned error: %v", err)
	}
	if result.ThumbnailPath != "" || len(result.Degraded) != 1 {
		t.Fatalf("expected missing thumbnail recorded as degraded, got %+v", result)
	}
	if got := readFile(t, result.VideoPath); got != "rendered:captioned.mp4" {
		t.Fatalf("expected captioned video as final, got %q", got)
	}
}

func TestAssembleClipFailureIsFatal(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	runner := &fakeRunner{fail: func(args []string) error {
		if strings.HasSuffix(args[len(args)-1], "clip_02.mp4") {
			return services.NewSubprocessError("ffmpeg", args, 183, []byte("Invalid data found when processing input"), errors.New("exit status 183"))
		}
		return nil
	}}
	asm := assembly.New(assembly.SettingsFromConfig(cfg), nil, assembly.WithCommandRunner(runner.run))
	in := newInput(t, "educatif")

	_, err := asm.Assemble(context.Background(), in)
	var subErr *services.SubprocessError
	if !errors.As(err, &subErr) || subErr.ExitCode != 183 {
		t.Fatalf("expected subprocess error with exit code, got %v", err)
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool marker, got %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(in.WorkDir, "final.mp4")); !os.IsNotExist(statErr) {
		t.Fatal("expected no final video after fatal failure")
	}
}

func TestAssembleValidatesInput(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	runner := &fakeRunner{}
	asm := assembly.New(assembly.SettingsFromConfig(cfg), nil, assembly.WithCommandRunner(runner.run))

	in := newInput(t, "educatif")
	in.Scenes[1].Duration = 0
	if _, err := asm.Assemble(context.Background(), in); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	in = newInput(t, "educatif")
	in.Scenes[2].AudioPath = filepath.Join(in.WorkDir, "missing.mp3")
	if _, err := asm.Assemble(context.Background(), in); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for missing asset, got %v", err)
	}
	if len(runner.calls) != 0 {
		t.Fatalf("expected no ffmpeg calls, got %d", len(runner.calls))
	}
}

func TestAssembleVerifierGatesFinalVideo(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Thumbnail.Enabled = false
	in := newInput(t, "cinematique")

	var gotPath string
	var gotMin float64
	accept := func(_ context.Context, path string, minDuration float64) error {
		gotPath, gotMin = path, minDuration
		return nil
	}
	asm := assembly.New(assembly.SettingsFromConfig(cfg), nil,
		assembly.WithCommandRunner((&fakeRunner{}).run), assembly.WithVerifier(accept))
	result, err := asm.Assemble(context.Background(), in)
	if err != nil {
		t.Fatalf("Assemble returned error: %v", err)
	}
	if gotPath != result.VideoPath {
		t.Fatalf("verifier saw %q, want %q", gotPath, result.VideoPath)
	}
	if gotMin <= 0 || gotMin > 25 {
		t.Fatalf("unexpected minimum duration %v for 25s of narration", gotMin)
	}

	reject := func(context.Context, string, float64) error {
		return errors.New("no audio stream")
	}
	asm = assembly.New(assembly.SettingsFromConfig(cfg), nil,
		assembly.WithCommandRunner((&fakeRunner{}).run), assembly.WithVerifier(reject))
	if _, err := asm.Assemble(context.Background(), newInput(t, "cinematique")); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error from rejected video, got %v", err)
	}
}
