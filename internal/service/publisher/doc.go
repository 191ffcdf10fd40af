// Package publisher uploads packaged archives as a GitHub release.
//
// It gathers every archive below the artifacts directory, writes a
// SHA256SUMS.txt manifest next to them and hands everything to
// "gh release create".
package publisher
