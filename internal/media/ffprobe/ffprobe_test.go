package ffprobe

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"narrator/internal/services"
)

func writeFakeFFprobe(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ffprobe")
	script := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

func TestDurationSecondsRejectsGarbage(t *testing.T) {
	for _, value := range []string{"", "bad", "NaN", "+Inf"} {
		if _, ok := (Result{Format: Format{Duration: value}}).DurationSeconds(); ok {
			t.Errorf("expected %q to be rejected", value)
		}
	}
	if got, ok := (Result{Format: Format{Duration: " 61.2 "}}).DurationSeconds(); !ok || got != 61.2 {
		t.Fatalf("unexpected duration %v %v", got, ok)
	}
}

func TestDurationParsesFormat(t *testing.T) {
	binary := writeFakeFFprobe(t, `echo '{"streams":[{"codec_type":"audio"}],"format":{"duration":"12.480000"}}'`)
	got, err := Duration(context.Background(), binary, "scene_01.mp3")
	if err != nil {
		t.Fatalf("Duration returned error: %v", err)
	}
	if got != 12.48 {
		t.Fatalf("expected 12.48, got %v", got)
	}
}

func TestDurationRejectsMissingDuration(t *testing.T) {
	binary := writeFakeFFprobe(t, `echo '{"streams":[],"format":{}}'`)
	_, err := Duration(context.Background(), binary, "scene_01.mp3")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestInspectReportsSubprocessError(t *testing.T) {
	binary := writeFakeFFprobe(t, "echo 'scene_01.mp3: Invalid data found' >&2\nexit 1")
	_, err := Inspect(context.Background(), binary, "scene_01.mp3")
	var subErr *services.SubprocessError
	if !errors.As(err, &subErr) {
		t.Fatalf("expected SubprocessError, got %T: %v", err, err)
	}
	if subErr.ExitCode != 1 {
		t.Fatalf("expected exit code 1, got %d", subErr.ExitCode)
	}
	if !strings.Contains(subErr.Stderr, "Invalid data found") {
		t.Fatalf("expected stderr captured, got %q", subErr.Stderr)
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatal("expected ErrExternalTool marker")
	}
}

const finalVideoJSON = `{"streams":[{"codec_type":"video","codec_name":"h264","width":1920,"height":1080},{"codec_type":"audio","codec_name":"aac"}],"format":{"duration":"95.04"}}`

func TestVerifyVideoAcceptsMatchingOutput(t *testing.T) {
	binary := writeFakeFFprobe(t, `echo '`+finalVideoJSON+`'`)
	want := Expectation{Width: 1920, Height: 1080, MinDuration: 94.5}
	if err := VerifyVideo(context.Background(), binary, "final.mp4", want); err != nil {
		t.Fatalf("VerifyVideo: %v", err)
	}
}

func TestVerifyVideoRejectsMismatches(t *testing.T) {
	binary := writeFakeFFprobe(t, `echo '`+finalVideoJSON+`'`)
	cases := map[string]Expectation{
		"frame size": {Width: 1280, Height: 720},
		"too short":  {Width: 1920, Height: 1080, MinDuration: 120},
	}
	for name, want := range cases {
		err := VerifyVideo(context.Background(), binary, "final.mp4", want)
		if !errors.Is(err, services.ErrValidation) {
			t.Errorf("%s: expected validation error, got %v", name, err)
		}
	}

	silent := writeFakeFFprobe(t, `echo '{"streams":[{"codec_type":"video","width":1920,"height":1080}],"format":{"duration":"10"}}'`)
	if err := VerifyVideo(context.Background(), silent, "final.mp4", Expectation{}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected missing audio to fail, got %v", err)
	}
}
