// Package stages adapts the generation clients and the media assembler to the
// stage.Handler contract.
//
// Each handler validates its prerequisites in Prepare and produces one kind of
// artifact in Execute: Script writes the title, metadata and scenes; Images and
// Audio write one file per scene into the item work directory and persist the
// item after every file; Assemble renders the final video and publishes it.
// Handlers never change item status; the workflow controller owns transitions.
package stages
