package ffprobe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"

	"narrator/internal/services"
)

var commandContext = exec.CommandContext

// Result is the subset of ffprobe's JSON output narrator reads.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream describes a single stream in the container.
type Stream struct {
	CodecName string `json:"codec_name"`
	CodecType string `json:"codec_type"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

// Format carries container-level duration.
type Format struct {
	Duration   string `json:"duration"`
	FormatName string `json:"format_name"`
}

// Inspect runs ffprobe against path and decodes the stream and format
// sections. A non-zero exit is reported as a services.SubprocessError.
func Inspect(ctx context.Context, binary string, path string) (Result, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{}, errors.New("ffprobe inspect: empty path")
	}

	args := []string{
		"-v", "error", "-hide_banner",
		"-show_entries", "format=duration,format_name:stream=codec_name,codec_type,width,height",
		"-of", "json", "--", path,
	}
	cmd := commandContext(ctx, binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return Result{}, services.NewSubprocessError(binary, args, exitCode, stderr.Bytes(), err)
	}

	var result Result
	if err := json.Unmarshal(stdout.Bytes(), &result); err != nil {
		return Result{}, fmt.Errorf("ffprobe parse: %w", err)
	}
	return result, nil
}

// Duration measures the container duration of path in seconds. Missing,
// unparsable and non-positive values are validation errors.
func Duration(ctx context.Context, binary string, path string) (float64, error) {
	result, err := Inspect(ctx, binary, path)
	if err != nil {
		return 0, err
	}
	seconds, ok := result.DurationSeconds()
	if !ok || seconds <= 0 {
		return 0, fmt.Errorf("ffprobe %s: %w: unusable duration %q", path, services.ErrValidation, result.Format.Duration)
	}
	return seconds, nil
}

// Expectation describes what a finished video must look like.
type Expectation struct {
	Width  int
	Height int
	// MinDuration is compared against the container duration; zero skips it.
	MinDuration float64
}

// VerifyVideo inspects path and checks it has one video stream at the expected
// frame size, at least one audio stream and a long enough duration.
func VerifyVideo(ctx context.Context, binary, path string, want Expectation) error {
	result, err := Inspect(ctx, binary, path)
	if err != nil {
		return err
	}
	video := result.streams("video")
	if len(video) != 1 {
		return fmt.Errorf("%s: %w: expected 1 video stream, found %d", path, services.ErrValidation, len(video))
	}
	if want.Width > 0 && want.Height > 0 && (video[0].Width != want.Width || video[0].Height != want.Height) {
		return fmt.Errorf("%s: %w: frame size %dx%d, expected %dx%d",
			path, services.ErrValidation, video[0].Width, video[0].Height, want.Width, want.Height)
	}
	if len(result.streams("audio")) == 0 {
		return fmt.Errorf("%s: %w: no audio stream", path, services.ErrValidation)
	}
	seconds, ok := result.DurationSeconds()
	if !ok || seconds <= 0 {
		return fmt.Errorf("%s: %w: unusable duration %q", path, services.ErrValidation, result.Format.Duration)
	}
	if want.MinDuration > 0 && seconds < want.MinDuration {
		return fmt.Errorf("%s: %w: duration %.2fs shorter than narration %.2fs",
			path, services.ErrValidation, seconds, want.MinDuration)
	}
	return nil
}

// DurationSeconds parses the container duration.
func (r Result) DurationSeconds() (float64, bool) {
	cleaned := strings.TrimSpace(r.Format.Duration)
	if cleaned == "" {
		return 0, false
	}
	seconds, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return 0, false
	}
	return seconds, true
}

func (r Result) streams(kind string) []Stream {
	var out []Stream
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, kind) {
			out = append(out, stream)
		}
	}
	return out
}
