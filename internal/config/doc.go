// Package config loads, validates and persists the YAML deploy profile
// shared by the provision and update workflows. Secrets (database password,
// key passphrase) are referenced by environment variable name and resolved
// at invocation time; Validate rejects profiles that try to embed them.
package config
