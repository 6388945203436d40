// Package workflow runs an ordered sequence of identified steps with
// fail-fast semantics: the first failure stops the sequence, later steps
// are recorded as skipped, and the returned error carries the step ID so
// every failure is attributable.
package workflow
