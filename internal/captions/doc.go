// Package captions builds word-chunked subtitle tracks timed against measured
// narration.
//
// Each scene occupies [offset, offset+duration) where offset is the running
// sum of the previous measured durations. A scene's narration is split into
// chunks of a fixed word count; each chunk receives time in proportion to its
// share of the scene's words, and the last chunk always ends exactly at the
// scene boundary so rounding never accumulates across scenes.
package captions
