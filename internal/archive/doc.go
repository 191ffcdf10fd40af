// Package archive packs a bundle directory into a .zip or .tar.gz file and
// unpacks such files again. The format is picked from the file extension.
// Entries are stored relative to the parent of the bundle directory, so an
// archive of dist/RnSApp unpacks into RnSApp/.
package archive
