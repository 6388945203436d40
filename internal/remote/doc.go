// Package remote is the command transport boundary. A Runner executes
// shell commands on a target host and reports a normalized Result; the
// SSHRunner implementation covers the production path (key auth,
// known_hosts verification) and ExecRunner covers tests and local runs.
package remote
