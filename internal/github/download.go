package github

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/schollz/progressbar/v3"

	"github.com/atepart/rns-release/internal/logger"
	"github.com/atepart/rns-release/internal/version"
)

// DownloadOptions tunes Download.
type DownloadOptions struct {
	// Progress renders a progress bar to stderr.
	Progress bool
	// Description labels the progress bar.
	Description string
}

// Download saves the file at url into dest and returns the number of bytes
// written. Downloads are not bounded by the API timeout, only by ctx.
func (c *Client) Download(ctx context.Context, url, dest string, opts DownloadOptions) (n int64, err error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Accept", "application/octet-stream")
	req.Header.Set("User-Agent", version.UserAgent())

	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.download.Do(req)
	if err != nil {
		return 0, fmt.Errorf("GET %s: %w", url, err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodySnippet*4))

		return 0, &APIError{URL: url, Status: resp.StatusCode, Body: errorMessage(body)}
	}

	if err = os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, fmt.Errorf("create download directory: %w", err)
	}

	file, err := os.Create(filepath.Clean(dest))
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", dest, err)
	}

	defer func() {
		if closeErr := file.Close(); err == nil && closeErr != nil {
			err = fmt.Errorf("close %s: %w", dest, closeErr)
		}
	}()

	var w io.Writer = file

	if opts.Progress {
		bar := newProgressBar(resp.ContentLength, opts.Description)
		defer func() {
			_ = bar.Finish()
		}()

		w = io.MultiWriter(file, bar)
	}

	n, err = io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("download %s: %w", url, err)
	}

	logger.DebugKV(ctx, "Downloaded", "url", url, "bytes", n)

	return n, nil
}

// newProgressBar builds a byte progress bar on stderr. An unknown length
// (-1) renders a spinner instead.
func newProgressBar(total int64, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions64(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionThrottle(100),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(os.Stderr, "\n")
		}),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetRenderBlankState(true),
	)
}
