// Package common holds helpers shared by several services.
//
// It provides checksum manifests (SHA256SUMS.txt) used by the publisher and
// the updater, the updater run marker, and process lookup by executable name.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
