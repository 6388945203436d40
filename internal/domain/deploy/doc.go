// Package deploy contains the pure domain model of a deployment run:
// modes, step outcomes, service health and the persisted record.
// It has no I/O and no dependencies outside the standard library.
package deploy
