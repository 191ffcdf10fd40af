// Package stamper writes a release tag into the generated version file and
// records it in git: add, commit, annotated tag, push.
//
// A missing tag is not an error; the stamper logs that there is nothing to do
// and returns without touching the working tree.
package stamper
