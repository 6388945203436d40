// Package postgres provisions the application database and role on the
// target host. Creation is guarded by explicit existence probes
// (query-before-create) so that unrelated failures such as authentication
// or connectivity problems surface instead of being swallowed.
package postgres
