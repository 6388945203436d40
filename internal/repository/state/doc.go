// Package state persists the record of the last deployment run to a
// local JSON file.
package state
