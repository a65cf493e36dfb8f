// Package textutil provides text helpers for filenames, word counting and
// line wrapping.
package textutil
