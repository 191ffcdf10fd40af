// Package github is a small client for the GitHub releases REST API.
//
// Requests go through a retrying HTTP client. When the transport itself fails
// (DNS, TLS, timeouts) and curl is installed, a request is replayed once
// through curl, which often copes better with system certificate stores.
package github
