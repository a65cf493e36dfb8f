package deps

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// filterRequirement maps an ffmpeg filter to the feature that needs it.
type filterRequirement struct {
	filter  string
	feature string
}

var assemblyFilters = []filterRequirement{
	{filter: "zoompan", feature: "Ken Burns motion"},
	{filter: "subtitles", feature: "burned-in captions (libass)"},
	{filter: "drawtext", feature: "thumbnail title (libfreetype)"},
	{filter: "amix", feature: "background music"},
}

// CheckFFmpegFilters reports whether the ffmpeg build exposes the filters the
// assembler uses. Missing caption or thumbnail filters only degrade output, so
// those entries are optional.
func CheckFFmpegFilters(ctx context.Context, ffmpegBinary string) []Status {
	binary := strings.TrimSpace(ffmpegBinary)
	if binary == "" {
		binary = "ffmpeg"
	}
	available, err := listFilters(ctx, binary)

	results := make([]Status, 0, len(assemblyFilters))
	for _, req := range assemblyFilters {
		status := Status{
			Name:        "ffmpeg:" + req.filter,
			Command:     binary,
			Description: req.feature,
			Optional:    req.filter != "zoompan",
		}
		switch {
		case err != nil:
			status.Detail = err.Error()
		case available[req.filter]:
			status.Available = true
		default:
			status.Detail = fmt.Sprintf("filter %q not compiled into ffmpeg", req.filter)
		}
		results = append(results, status)
	}
	return results
}

func listFilters(ctx context.Context, binary string) (map[string]bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, binary, "-hide_banner", "-filters").Output()
	if err != nil {
		return nil, fmt.Errorf("list ffmpeg filters: %w", err)
	}
	return ParseFilterList(out), nil
}

// ParseFilterList extracts filter names from `ffmpeg -filters` output. Lines
// look like " TSC zoompan           V->V       Apply Zoom & Pan effect.".
func ParseFilterList(output []byte) map[string]bool {
	filters := make(map[string]bool)
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 3 || !strings.Contains(fields[2], "->") {
			continue
		}
		filters[fields[1]] = true
	}
	return filters
}
