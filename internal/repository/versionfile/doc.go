// Package versionfile reads and writes the generated Python module that
// carries the application version and the GitHub repository slug.
//
// The file is regenerated on every stamp and must stay byte-compatible with
// what the application imports:
//
//	__version__ = "new103"
//	REPO_SLUG = "atepart/RnSApp"
package versionfile
