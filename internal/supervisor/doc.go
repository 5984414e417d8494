// Package supervisor owns tool-server process lifecycle: spawning with
// piped stdin/stdout/stderr, continuous stderr draining, exit monitoring,
// and graceful-then-forced termination.
package supervisor
