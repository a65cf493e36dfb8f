package assembly

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"narrator/internal/textutil"
)

// ThumbnailSettings controls the cover image.
type ThumbnailSettings struct {
	Enabled      bool
	Width        int
	Height       int
	Badge        string
	BadgeColor   string
	FontFile     string
	MaxLineChars int
	Language     string
}

// TitleLines upper-cases title for the configured locale and wraps it to at
// most two lines.
func TitleLines(title, lang string, maxChars int) []string {
	tag, err := language.Parse(strings.TrimSpace(lang))
	if err != nil {
		tag = language.French
	}
	upper := cases.Upper(tag).String(strings.TrimSpace(title))
	return textutil.WrapLines(upper, maxChars, 2)
}

func drawtextValue(text string) string {
	text = strings.NewReplacer("'", "’", "\n", " ").Replace(text)
	return escapeFilterValue(text)
}

func thumbnailFilter(s ThumbnailSettings, lines []string) string {
	w, h := s.Width, s.Height
	fontSize := h / 10
	font := ""
	if s.FontFile != "" {
		font = ":fontfile=" + escapeFilterValue(s.FontFile)
	}

	parts := []string{
		fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d", w, h, w, h),
	}
	// Stacked translucent bands darken toward the bottom edge.
	for i, alpha := range []float64{0.2, 0.3, 0.4, 0.5} {
		y := h/2 + i*h/8
		parts = append(parts, fmt.Sprintf("drawbox=x=0:y=%d:w=%d:h=%d:color=black@%.2f:t=fill", y, w, h-y, alpha))
	}
	lineHeight := fontSize + fontSize/4
	top := h - h/12 - len(lines)*lineHeight
	for i, line := range lines {
		parts = append(parts, fmt.Sprintf(
			"drawtext=text=%s%s:expansion=none:fontcolor=white:fontsize=%d:borderw=3:bordercolor=black:x=(w-text_w)/2:y=%d",
			drawtextValue(line), font, fontSize, top+i*lineHeight,
		))
	}
	if badge := strings.TrimSpace(s.Badge); badge != "" {
		badgeSize := h / 18
		parts = append(parts,
			fmt.Sprintf("drawbox=x=%d:y=%d:w=%d:h=%d:color=%s@1.0:t=fill",
				w/32, h/18, badgeSize*len([]rune(badge))*7/10+badgeSize, badgeSize*2, s.BadgeColor),
			fmt.Sprintf("drawtext=text=%s%s:expansion=none:fontcolor=white:fontsize=%d:x=%d:y=%d",
				drawtextValue(badge), font, badgeSize, w/32+badgeSize/2, h/18+badgeSize/2),
		)
	}
	return strings.Join(parts, ",")
}

// escapeFilterValue quotes value for a filter option inside a filtergraph.
// The graph level strips the quotes; the option level then unescapes.
func escapeFilterValue(value string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `:`, `\:`, `'`, `'\\\''`).Replace(value)
	return "'" + escaped + "'"
}
