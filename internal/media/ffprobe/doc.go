// Package ffprobe wraps the ffprobe binary for measuring generated media.
//
// Duration is what the audio stage relies on: it rejects missing, unparsable
// and non-positive durations so scene timing is always built from real
// measurements. VerifyVideo is the assembler's last check before a final
// video is published.
package ffprobe
