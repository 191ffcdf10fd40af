// Package updater lists, checks and installs published releases.
//
// Releases come from the GitHub releases API. Installation picks the archive
// built for the current platform, verifies it against the release checksum
// manifest, stops running application processes, swaps the new bundle into
// the install directory and records what was installed.
package updater
