// Package staging owns the layout of the staging directory where each item
// keeps its work directory (item-N) of generated artifacts.
//
// The daemon uses CleanOrphaned on a schedule to reclaim disk from items that
// were removed with --keep-files or deleted while a run was in flight, and the
// status command reports usage through ListWorkDirs.
package staging
