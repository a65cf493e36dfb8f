package captions

import (
	"fmt"
	"math"
	"strings"

	"narrator/internal/config"
	"narrator/internal/services"
)

// Segment is one scene's narration with its measured audio duration.
type Segment struct {
	Narration string
	Duration  float64
}

// Cue is a single timed caption, in seconds.
type Cue struct {
	Start float64
	End   float64
	Text  string
}

// Style is the burned-in caption appearance.
type Style struct {
	FontName      string
	FontSize      int
	PrimaryColour string
	OutlineColour string
	Outline       int
	Alignment     int
	MarginV       int
}

// Track is an ordered list of cues plus the total narrated duration.
type Track struct {
	Cues     []Cue
	Style    Style
	Duration float64
}

// StyleFromConfig maps the captions section to a Style.
func StyleFromConfig(cfg config.Captions) Style {
	return Style{
		FontName:      cfg.FontName,
		FontSize:      cfg.FontSize,
		PrimaryColour: cfg.PrimaryColour,
		OutlineColour: cfg.OutlineColour,
		Outline:       cfg.Outline,
		Alignment:     cfg.Alignment,
		MarginV:       cfg.MarginV,
	}
}

// Build times the narration of every segment.
func Build(segments []Segment, wordsPerChunk int, style Style) (Track, error) {
	if wordsPerChunk <= 0 {
		return Track{}, services.Wrap(services.ErrValidation, "captions", "build", "words per chunk must be positive", nil)
	}
	track := Track{Style: style}
	offset := 0.0
	for idx, segment := range segments {
		if segment.Duration <= 0 || math.IsNaN(segment.Duration) || math.IsInf(segment.Duration, 0) {
			return Track{}, services.Wrap(services.ErrValidation, "captions", "build",
				fmt.Sprintf("scene %d has invalid duration %v", idx+1, segment.Duration), nil)
		}
		track.Cues = append(track.Cues, sceneCues(segment, offset, wordsPerChunk)...)
		offset += segment.Duration
	}
	track.Duration = offset
	return track, nil
}

func sceneCues(segment Segment, offset float64, wordsPerChunk int) []Cue {
	words := strings.Fields(segment.Narration)
	if len(words) == 0 {
		return nil
	}
	total := float64(len(words))
	end := offset + segment.Duration
	cues := make([]Cue, 0, (len(words)+wordsPerChunk-1)/wordsPerChunk)
	for start := 0; start < len(words); start += wordsPerChunk {
		stop := min(start+wordsPerChunk, len(words))
		cue := Cue{
			Start: offset + segment.Duration*float64(start)/total,
			End:   offset + segment.Duration*float64(stop)/total,
			Text:  strings.Join(words[start:stop], " "),
		}
		if stop == len(words) {
			cue.End = end
		}
		cues = append(cues, cue)
	}
	return cues
}

// Span is the total narrated duration the track covers.
func (t Track) Span() float64 {
	return t.Duration
}

// ForceStyle renders the libass force_style override for the subtitles filter.
func (s Style) ForceStyle() string {
	parts := make([]string, 0, 7)
	if name := strings.TrimSpace(s.FontName); name != "" {
		parts = append(parts, "FontName="+name)
	}
	if s.FontSize > 0 {
		parts = append(parts, fmt.Sprintf("FontSize=%d", s.FontSize))
	}
	if s.PrimaryColour != "" {
		parts = append(parts, "PrimaryColour="+s.PrimaryColour)
	}
	if s.OutlineColour != "" {
		parts = append(parts, "OutlineColour="+s.OutlineColour)
	}
	parts = append(parts, fmt.Sprintf("Outline=%d", s.Outline))
	if s.Alignment > 0 {
		parts = append(parts, fmt.Sprintf("Alignment=%d", s.Alignment))
	}
	parts = append(parts, fmt.Sprintf("MarginV=%d", s.MarginV))
	return strings.Join(parts, ",")
}
