// Package common holds helpers shared by the provision and update
// workflows: local actor detection for audit records and the run marker
// guarding against concurrent deploy invocations.
package common
