// Package language resolves the narration language a user configures, given
// as an ISO code ("fr", "fra") or an English name ("French"), to the name the
// script prompt uses and the code the thumbnail casing uses.
package language
