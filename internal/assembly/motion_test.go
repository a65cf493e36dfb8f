package assembly

import (
	"slices"
	"strings"
	"testing"
)

func TestPickEffectsDeterministic(t *testing.T) {
	first := PickEffects(42, 50)
	second := PickEffects(42, 50)
	if !slices.Equal(first, second) {
		t.Fatal("expected same seed to produce the same effects")
	}
	if slices.Equal(first, PickEffects(43, 50)) {
		t.Fatal("expected different seeds to diverge")
	}
	seen := map[Effect]bool{}
	for i, effect := range first {
		if !slices.Contains(Effects, effect) {
			t.Fatalf("unknown effect %q", effect)
		}
		if i > 0 && effect == first[i-1] {
			t.Fatalf("effect %q repeated at %d", effect, i)
		}
		seen[effect] = true
	}
	if len(seen) < 4 {
		t.Fatalf("expected a varied sequence, got %v", seen)
	}
}

func TestMotionFilter(t *testing.T) {
	frames := frameCount(5, 25)
	if frames != 125 {
		t.Fatalf("expected 125 frames, got %d", frames)
	}
	for _, effect := range Effects {
		filter := motionFilter(effect, 1920, 1080, 25, frames, 1.15)
		if !strings.Contains(filter, "zoompan=") || !strings.Contains(filter, "d=125:s=1920x1080:fps=25") {
			t.Fatalf("%s: unexpected filter %s", effect, filter)
		}
	}
	if filter := motionFilter(EffectZoomIn, 1920, 1080, 25, 125, 1.15); !strings.Contains(filter, "z='1+0.1500*on/125'") {
		t.Fatalf("unexpected zoom-in curve %s", filter)
	}
	if filter := motionFilter(EffectPanLeft, 1920, 1080, 25, 125, 1.15); !strings.Contains(filter, "x='(iw-iw/zoom)*(1-on/125)'") {
		t.Fatalf("unexpected pan-left curve %s", filter)
	}
}

func TestEscapeFilterValue(t *testing.T) {
	got := escapeFilterValue(`/tmp/a:b/it's.srt`)
	want := `'/tmp/a\:b/it'\\\''s.srt'`
	if got != want {
		t.Fatalf("escapeFilterValue = %s, want %s", got, want)
	}
}
