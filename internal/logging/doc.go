// Package logging assembles structured slog loggers used across narrator.
//
// It owns the console and JSON handlers, routes output to stdout plus a
// size-rotated log file, and exposes context helpers so stage code tags log
// lines with item IDs, stages and correlation IDs. NewNop serves tests and
// wiring code that has no logger.
package logging
