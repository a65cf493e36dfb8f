// Package services defines shared utilities consumed by the pipeline stages
// and the external provider clients.
//
// Key responsibilities:
//   - Context helpers that stamp item IDs, stage names, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper, the retry classification
//     used by the generation retry policy, and typed errors for subprocess and
//     HTTP failures.
//
// Provider clients live in sub-packages (llm, replicate, elevenlabs).
package services
