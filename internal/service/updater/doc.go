// Package updater rolls a provisioned host forward: it fast-forwards the
// source checkout, restarts the service unit, waits for it to become
// active, and reports the unit status and recent journal lines.
package updater
