// Package queue persists content items in SQLite and owns their lifecycle
// rules.
//
// The Store manages the database connection, schema initialization, run
// requests, atomic claims for the worker pool, heartbeat tracking and
// stale-item recovery. Items carry the generated script, per-scene image and
// audio artifacts and the final outputs, so a run can be resumed from whatever
// was already persisted. Status changes go through Item.TransitionTo, which
// enforces the closed transition table.
//
// Schema changes are new files under migrations/. Open applies the pending
// ones in order and tracks progress in PRAGMA user_version.
package queue
