// Package workflow advances content items through the pipeline stages.
//
// The Controller owns one item for one run. Start and Resume only validate and
// enqueue a run request; Run executes the stage sequence synchronously from the
// entry stage (SCRIPTING for start, ResumeStage for resume), persisting the item
// after every transition and artifact, and sends the ready notification once
// the item reaches READY. Failures are recorded by stageexec and end the run;
// nothing is retried automatically at this level.
//
// The Manager is the worker pool. It runs workflow.workers goroutines in an
// errgroup; each claims one queued run at a time from the store, so two workers
// never own the same item, and hands it to the Controller.
package workflow
