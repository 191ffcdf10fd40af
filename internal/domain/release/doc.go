// Package release holds the vocabulary shared by the release tools:
// version tags and their ordering, target platforms, archive naming and
// the selection of downloadable assets from published releases.
package release
