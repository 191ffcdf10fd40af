// Package packager turns the application sources into a distributable
// archive: it runs the GUI packaging tool with fixed flags, copies the static
// asset directory into the produced bundle and compresses the bundle under
// the <AppName>_<OS>_<Arch>[_<Tag>] naming scheme.
package packager
