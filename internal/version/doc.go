// Package version exposes build metadata of the release tools themselves.
//
// Variables Version, Commit, and BuildTime are injected at build time via
// Go ldflags. This is unrelated to the application version that rns-stamp
// writes into the generated version file.
package version
