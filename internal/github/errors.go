package github

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"
)

// maxBodySnippet is the number of body characters kept in an APIError message.
const maxBodySnippet = 800

var (
	// ErrCurlUnavailable is returned when the curl fallback is needed but curl is not installed.
	ErrCurlUnavailable = errors.New("curl not found for GitHub API fallback")
	// ErrInvalidJSON is returned when a response body cannot be decoded.
	ErrInvalidJSON = errors.New("GitHub API returned invalid JSON")
	// errInvalidSlug is returned for repository slugs that are not "owner/repo".
	errInvalidSlug = errors.New("repository slug must look like owner/repo")
)

// APIError is returned for responses with an HTTP status of 400 or above.
type APIError struct {
	// URL is the requested URL.
	URL string
	// Status is the HTTP status code.
	Status int
	// Body is the error message from the response.
	Body string
}

func (e *APIError) Error() string {
	parts := []string{"GitHub API error", "URL: " + e.URL}

	if e.Status != 0 {
		parts = append(parts, fmt.Sprintf("HTTP: %d", e.Status))
	}

	if e.Body != "" {
		parts = append(parts, "Body: "+snippet(e.Body))
	}

	return strings.Join(parts, "\n")
}

// IsNotFound reports whether err is an APIError with status 404.
func IsNotFound(err error) bool {
	var apiErr *APIError

	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// snippet truncates s to maxBodySnippet characters.
func snippet(s string) string {
	if utf8.RuneCountInString(s) <= maxBodySnippet {
		return s
	}

	return string([]rune(s)[:maxBodySnippet]) + "…"
}

// errorMessage prefers the "message" field of a JSON error body.
func errorMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}

	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}

	return strings.TrimSpace(string(body))
}
