// Package security holds the stateless checks applied at the engine's trust
// boundaries: task name format, task directory containment, script path
// containment, and sanitizing of external command output before display.
//
// Every function here is a pure predicate or transformation; none of them
// log, and none of them touch state beyond reading the filesystem to resolve
// symlinks.
package security
