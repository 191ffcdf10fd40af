// Package workflow renders the GitHub Actions pipeline that builds the
// application on every target platform and publishes the archives as a
// release.
package workflow
