package captions

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"narrator/internal/fileutil"
)

// WriteSRT writes track to path in SubRip format.
func WriteSRT(path string, track Track) error {
	var b strings.Builder
	for idx, cue := range track.Cues {
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n", idx+1, FormatTimestamp(cue.Start), FormatTimestamp(cue.End), cue.Text)
	}
	if _, err := fileutil.WriteFileAtomic(path, strings.NewReader(b.String())); err != nil {
		return fmt.Errorf("write srt: %w", err)
	}
	return nil
}

// FormatTimestamp renders seconds as HH:MM:SS,mmm.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	millis := int64(math.Round(seconds * 1000))
	hours := millis / 3_600_000
	millis %= 3_600_000
	minutes := millis / 60_000
	millis %= 60_000
	secs := millis / 1000
	millis %= 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, millis)
}

// ParseTimestamp converts HH:MM:SS,mmm (or a period separator) to seconds.
func ParseTimestamp(value string) (float64, error) {
	value = strings.ReplaceAll(strings.TrimSpace(value), ".", ",")
	timeParts := strings.Split(value, ",")
	if len(timeParts) != 2 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hms := strings.Split(timeParts[0], ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hours, errH := strconv.Atoi(hms[0])
	minutes, errM := strconv.Atoi(hms[1])
	secs, errS := strconv.Atoi(hms[2])
	millis, errMS := strconv.Atoi(timeParts[1])
	if errH != nil || errM != nil || errS != nil || errMS != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	return float64(hours*3600+minutes*60+secs) + float64(millis)/1000, nil
}

// ReadSRT parses a SubRip file back into cues.
func ReadSRT(path string) ([]Cue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read srt: %w", err)
	}
	content := strings.ReplaceAll(string(data), "\r\n", "\n")
	var cues []Cue
	for _, block := range strings.Split(strings.TrimSpace(content), "\n\n") {
		lines := strings.Split(strings.TrimSpace(block), "\n")
		if len(lines) < 2 {
			continue
		}
		bounds := strings.Split(lines[1], "-->")
		if len(bounds) != 2 {
			return nil, fmt.Errorf("malformed cue %q", lines[0])
		}
		start, err := ParseTimestamp(bounds[0])
		if err != nil {
			return nil, err
		}
		end, err := ParseTimestamp(bounds[1])
		if err != nil {
			return nil, err
		}
		cues = append(cues, Cue{Start: start, End: end, Text: strings.Join(lines[2:], "\n")})
	}
	return cues, nil
}
