// Package logs reads the daemon's rotated log file for `narrator logs`.
//
// Tail returns the last N lines with bounded memory, Follow polls for lines
// appended after a byte offset, and ItemFilter narrows either to the records
// of a single item in both the console and JSON log formats.
package logs
