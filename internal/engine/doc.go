// Package engine runs one SQL*Plus job end to end.
//
// Ownership boundary:
// - target probing and parameter resolution for a job
// - the optional version probe before the main run
// - script preparation, command building and process supervision
// - temporary script cleanup on every exit path
//
// Engine.Run is synchronous. Nothing is cached between runs: every call probes,
// resolves and locates afresh since targets and overrides differ per job.
package engine
