// Package provisioner implements the first-time host bring-up workflow:
// system packages, source checkout, Python environment, dependencies and
// database objects, executed as an ordered fail-fast step sequence over
// one SSH transport. Re-running against an already provisioned host is
// safe: every creation is guarded by an explicit existence check.
package provisioner
