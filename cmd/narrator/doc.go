// Command narrator is the operator CLI for the narrated slideshow pipeline.
//
// Commands talk to the SQLite queue directly. start and resume only record a
// run request; a running narratord (or `narrator daemon`) claims and executes
// it. `narrator run` executes one item in the foreground instead.
package main
