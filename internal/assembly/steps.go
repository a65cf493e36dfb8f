package assembly

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"narrator/internal/captions"
)

func (a *Assembler) encodeArgs() []string {
	return []string{"-c:v", "libx264", "-preset", a.settings.Preset, "-crf", fmt.Sprint(a.settings.CRF), "-pix_fmt", "yuv420p"}
}

func (a *Assembler) renderClip(ctx context.Context, scene SceneInput, effect Effect, output string) error {
	s := a.settings
	frames := frameCount(scene.Duration, s.FPS)
	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-loop", "1", "-framerate", fmt.Sprint(s.FPS), "-i", scene.ImagePath,
		"-i", scene.AudioPath,
		"-vf", motionFilter(effect, s.Width, s.Height, s.FPS, frames, s.ZoomFactor),
		"-map", "0:v", "-map", "1:a",
	}
	args = append(args, a.encodeArgs()...)
	args = append(args,
		"-c:a", "aac", "-b:a", "192k", "-ar", "48000", "-ac", "2",
		"-t", fmt.Sprintf("%.3f", scene.Duration),
		"-movflags", "+faststart",
		output,
	)
	return a.run(ctx, a.settings.FFmpegBinary, args...)
}

func (a *Assembler) concat(ctx context.Context, workDir string, clips []string, output string) error {
	listPath := filepath.Join(workDir, "concat.txt")
	var b strings.Builder
	for _, clip := range clips {
		fmt.Fprintf(&b, "file '%s'\n", strings.ReplaceAll(clip, "'", `'\''`))
	}
	if err := os.WriteFile(listPath, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write concat list: %w", err)
	}
	return a.run(ctx, a.settings.FFmpegBinary,
		"-y", "-hide_banner", "-loglevel", "error",
		"-f", "concat", "-safe", "0", "-i", listPath,
		"-c", "copy", "-movflags", "+faststart",
		output,
	)
}

// burnCaptions writes captions.srt and renders captioned.mp4. The SRT path is
// returned whenever the file was written, even if the burn-in failed.
func (a *Assembler) burnCaptions(ctx context.Context, in Input, input string) (string, string, error) {
	segments := make([]captions.Segment, 0, len(in.Scenes))
	for _, scene := range in.Scenes {
		segments = append(segments, captions.Segment{Narration: scene.Narration, Duration: scene.Duration})
	}
	track, err := captions.Build(segments, a.settings.WordsPerChunk, a.settings.CaptionStyle)
	if err != nil {
		return "", "", err
	}
	srtPath := filepath.Join(in.WorkDir, "captions.srt")
	if err := captions.WriteSRT(srtPath, track); err != nil {
		return "", "", err
	}
	output := filepath.Join(in.WorkDir, "captioned.mp4")
	filter := fmt.Sprintf("subtitles=filename=%s:force_style=%s",
		escapeFilterValue(srtPath), escapeFilterValue(track.Style.ForceStyle()))
	args := []string{"-y", "-hide_banner", "-loglevel", "error", "-i", input, "-vf", filter}
	args = append(args, a.encodeArgs()...)
	args = append(args, "-c:a", "copy", "-movflags", "+faststart", output)
	if err := a.run(ctx, a.settings.FFmpegBinary, args...); err != nil {
		return srtPath, "", err
	}
	return srtPath, output, nil
}

// mixMusic loops a bed under the narration. mixed is false when no bed exists.
func (a *Assembler) mixMusic(ctx context.Context, in Input, input string) (string, bool, error) {
	bed, err := SelectBed(a.settings.MusicDir, in.Style)
	if err != nil {
		return "", false, fmt.Errorf("select music bed: %w", err)
	}
	if bed == "" {
		a.logger.Debug("no music bed available; passing through", "music_dir", a.settings.MusicDir)
		return "", false, nil
	}
	output := filepath.Join(in.WorkDir, "mixed.mp4")
	filter := fmt.Sprintf("[1:a]volume=%gdB[bed];[0:a][bed]amix=inputs=2:duration=first:normalize=0[aout]", a.settings.MusicVolumeDB)
	err = a.run(ctx, a.settings.FFmpegBinary,
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", input,
		"-stream_loop", "-1", "-i", bed,
		"-filter_complex", filter,
		"-map", "0:v", "-map", "[aout]",
		"-c:v", "copy", "-c:a", "aac", "-b:a", "192k",
		"-movflags", "+faststart",
		output,
	)
	if err != nil {
		return "", false, err
	}
	return output, true, nil
}

func (a *Assembler) thumbnail(ctx context.Context, in Input, output string) error {
	s := a.settings.Thumbnail
	lines := TitleLines(in.Title, s.Language, s.MaxLineChars)
	return a.run(ctx, a.settings.FFmpegBinary,
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", in.Scenes[0].ImagePath,
		"-vf", thumbnailFilter(s, lines),
		"-frames:v", "1", "-q:v", "2",
		output,
	)
}
