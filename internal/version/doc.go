// Package version carries the build metadata stamped into the
// newsbot-deploy binary.
//
// Version, Commit, and BuildTime are overridden through ldflags by release
// builds; a plain `go build` keeps their local-development defaults.
// Short renders just the semantic version, Full the whole triple.
package version
