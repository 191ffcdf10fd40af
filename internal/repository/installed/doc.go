// Package installed records which release the updater last installed into
// an application directory.
package installed
