package github

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/atepart/rns-release/internal/logger"
	"github.com/atepart/rns-release/internal/shell"
	"github.com/atepart/rns-release/internal/version"
)

const (
	// DefaultBaseURL is the public GitHub REST endpoint.
	DefaultBaseURL = "https://api.github.com"
	// DefaultTimeout bounds a single request attempt.
	DefaultTimeout = 10 * time.Second
	// ConnectTimeout bounds connection establishment.
	ConnectTimeout = 5 * time.Second

	apiVersion      = "2022-11-28"
	acceptJSON      = "application/vnd.github+json"
	defaultRetryMax = 2
)

// Options configures a Client.
type Options struct {
	// BaseURL overrides DefaultBaseURL.
	BaseURL string
	// Token is sent as a bearer token when set.
	Token string
	// Timeout bounds a single request attempt. Defaults to DefaultTimeout.
	Timeout time.Duration
	// RetryMax is the number of retries after the first attempt.
	// Zero means the default, a negative value disables retries.
	RetryMax int
	// Runner executes the curl fallback. Defaults to shell.NewExecRunner().
	Runner shell.Runner
}

// Client talks to the GitHub releases API.
type Client struct {
	baseURL  string
	token    string
	http     *retryablehttp.Client
	download *retryablehttp.Client
	runner   shell.Runner
	hasCurl  func() bool
}

// NewClient builds a Client. The logger stored in ctx receives retry logs.
func NewClient(ctx context.Context, opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	runner := opts.Runner
	if runner == nil {
		runner = shell.NewExecRunner()
	}

	retryMax := opts.RetryMax

	switch {
	case retryMax == 0:
		retryMax = defaultRetryMax
	case retryMax < 0:
		retryMax = 0
	}

	return &Client{
		baseURL:  baseURL,
		token:    opts.Token,
		http:     newRetryClient(ctx, timeout, retryMax),
		download: newRetryClient(ctx, 0, retryMax),
		runner:   runner,
		hasCurl:  func() bool { return shell.LookPath("curl") },
	}
}

// newRetryClient builds the retrying HTTP client. A zero timeout leaves
// requests bounded only by their context.
func newRetryClient(ctx context.Context, timeout time.Duration, retryMax int) *retryablehttp.Client {
	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient = &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			DialContext:         (&net.Dialer{Timeout: ConnectTimeout}).DialContext,
			TLSHandshakeTimeout: ConnectTimeout,
			MaxIdleConns:        4,
			IdleConnTimeout:     30 * time.Second,
		},
	}
	retryClient.RetryMax = retryMax
	retryClient.RetryWaitMin = 500 * time.Millisecond
	retryClient.RetryWaitMax = 3 * time.Second
	retryClient.Logger = logger.NewRetryLogger(ctx)
	// Hand the last response back so 5xx bodies end up in APIError.
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return retryClient
}

// headers returns the request headers sent with every API call.
func (c *Client) headers() map[string]string {
	h := map[string]string{
		"Accept":               acceptJSON,
		"X-GitHub-Api-Version": apiVersion,
		"User-Agent":           version.UserAgent(),
	}

	if c.token != "" {
		h["Authorization"] = "Bearer " + c.token
	}

	return h
}

// getJSON fetches url and returns the raw body of a successful response.
func (c *Client) getJSON(ctx context.Context, url string) ([]byte, error) {
	logger.DebugKV(ctx, "GET", "url", url)

	body, err := c.get(ctx, url)
	if err == nil {
		return body, nil
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) || ctx.Err() != nil {
		return nil, err
	}

	logger.WarnKV(ctx, "GitHub request failed, retrying through curl", "url", url, "error", err)

	body, curlErr := c.getViaCurl(ctx, url)
	if curlErr != nil {
		logger.ErrorKV(ctx, "Curl fallback failed", "url", url, "error", curlErr)

		if errors.Is(curlErr, ErrCurlUnavailable) {
			return nil, fmt.Errorf("GET %s: %w", url, err)
		}

		return nil, curlErr
	}

	return body, nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	for k, v := range c.headers() {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &APIError{URL: url, Status: resp.StatusCode, Body: errorMessage(body)}
	}

	return body, nil
}
