// Package preflight provides readiness checks for external services
// and filesystem paths that narrator depends on.
//
// These checks run in two contexts:
//   - The daemon calls RunAll at startup and logs every failed check so a
//     missing credential or full disk shows up before the first item fails.
//   - The CLI "narrator status" command renders the same results, optionally
//     adding a live LLM round trip (CheckLLM).
//
// Optional features (music, storage, notifications) report as passed with a
// "disabled" detail when they are not configured.
package preflight
