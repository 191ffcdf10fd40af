// Package shell runs the external tools the release flow is built on
// (git, the GUI packager, the release CLI, curl). Failures are reported as
// CommandError values carrying the command line and the tool's exit status.
package shell
