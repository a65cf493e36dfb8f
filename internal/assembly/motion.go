package assembly

import (
	"fmt"
	"math"
	"math/rand/v2"
)

// Effect names a camera move applied to a still.
type Effect string

const (
	EffectZoomIn   Effect = "zoom_in"
	EffectZoomOut  Effect = "zoom_out"
	EffectPanLeft  Effect = "pan_left"
	EffectPanRight Effect = "pan_right"
	EffectPanUp    Effect = "pan_up"
	EffectPanDown  Effect = "pan_down"
)

// Effects is the closed set PickEffects draws from.
var Effects = []Effect{EffectZoomIn, EffectZoomOut, EffectPanLeft, EffectPanRight, EffectPanUp, EffectPanDown}

// PickEffects returns n effects drawn from a PCG stream seeded with seed.
// The same seed always yields the same sequence, and no effect repeats on
// consecutive scenes.
func PickEffects(seed int64, n int) []Effect {
	rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))
	out := make([]Effect, 0, n)
	for i := 0; i < n; i++ {
		if i == 0 {
			out = append(out, Effects[rng.IntN(len(Effects))])
			continue
		}
		prev := out[i-1]
		choice := Effects[rng.IntN(len(Effects)-1)]
		if choice == prev {
			choice = Effects[len(Effects)-1]
		}
		out = append(out, choice)
	}
	return out
}

// frameCount is the number of output frames covering duration seconds.
func frameCount(duration float64, fps int) int {
	return max(1, int(math.Ceil(duration*float64(fps))))
}

// motionFilter builds the video filter chain for one scene. The still is
// upscaled before zoompan to avoid integer jitter on slow moves.
func motionFilter(effect Effect, width, height, fps, frames int, zoom float64) string {
	if zoom <= 1 {
		zoom = 1.15
	}
	delta := zoom - 1
	center := "x='iw/2-(iw/zoom/2)':y='ih/2-(ih/zoom/2)'"
	var z, pos string
	switch effect {
	case EffectZoomOut:
		z = fmt.Sprintf("z='%.4f-%.4f*on/%d'", zoom, delta, frames)
		pos = center
	case EffectPanLeft:
		z = fmt.Sprintf("z='%.4f'", zoom)
		pos = fmt.Sprintf("x='(iw-iw/zoom)*(1-on/%d)':y='ih/2-(ih/zoom/2)'", frames)
	case EffectPanRight:
		z = fmt.Sprintf("z='%.4f'", zoom)
		pos = fmt.Sprintf("x='(iw-iw/zoom)*on/%d':y='ih/2-(ih/zoom/2)'", frames)
	case EffectPanUp:
		z = fmt.Sprintf("z='%.4f'", zoom)
		pos = fmt.Sprintf("x='iw/2-(iw/zoom/2)':y='(ih-ih/zoom)*(1-on/%d)'", frames)
	case EffectPanDown:
		z = fmt.Sprintf("z='%.4f'", zoom)
		pos = fmt.Sprintf("x='iw/2-(iw/zoom/2)':y='(ih-ih/zoom)*on/%d'", frames)
	default:
		z = fmt.Sprintf("z='1+%.4f*on/%d'", delta, frames)
		pos = center
	}
	return fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d,zoompan=%s:%s:d=%d:s=%dx%d:fps=%d,format=yuv420p",
		width*2, height*2, width*2, height*2, z, pos, frames, width, height, fps,
	)
}
