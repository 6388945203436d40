// Package systemd controls the application's service unit on the target
// host: restart, a bounded poll-until-active health check replacing the
// original fixed sleep, and status/journal reporting.
package systemd
