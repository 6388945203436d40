// Package checkout manages the application source tree on the remote
// host: clone when absent, fetch and fast-forward when present, and
// revision reporting. The checkout directory, once created, is reused by
// every subsequent run.
package checkout
