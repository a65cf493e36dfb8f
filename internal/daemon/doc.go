// Package daemon owns the long-running narratord lifecycle.
//
// It takes the flock-based single-instance lock, starts the workflow worker
// pool, and schedules housekeeping jobs with gocron: failing items whose
// heartbeat went stale and pruning work directories that no longer belong to
// a queue item. Stage logic lives in the stages package; the daemon only
// starts, stops and reports.
package daemon
