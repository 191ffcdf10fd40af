package github

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"

	"github.com/atepart/rns-release/internal/shell"
)

// curlArgs builds the curl command line for url. The response status is
// printed on its own line after the body.
func curlArgs(url string, headers map[string]string) []string {
	args := []string{
		"-sSL",
		"--connect-timeout", strconv.Itoa(int(ConnectTimeout.Seconds())),
		"--max-time", strconv.Itoa(int(DefaultTimeout.Seconds())),
	}

	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	for _, k := range keys {
		args = append(args, "-H", k+": "+headers[k])
	}

	return append(args, "-w", "\n%{http_code}\n", url)
}

func (c *Client) getViaCurl(ctx context.Context, url string) ([]byte, error) {
	if !c.hasCurl() {
		return nil, ErrCurlUnavailable
	}

	out, err := c.runner.Output(ctx, shell.Command{Name: "curl", Args: curlArgs(url, c.headers())})
	if err != nil {
		body := string(out)

		var cmdErr *shell.CommandError
		if errors.As(err, &cmdErr) && cmdErr.Stderr != "" {
			body = cmdErr.Stderr
		}

		if body == "" {
			body = err.Error()
		}

		return nil, &APIError{URL: url, Body: body}
	}

	body, status := splitStatus(string(out))
	if status >= 400 {
		return nil, &APIError{URL: url, Status: status, Body: errorMessage([]byte(body))}
	}

	return []byte(body), nil
}

// splitStatus separates the trailing status line written by curl -w.
// A missing or unparsable status line yields status 0 and the full output.
func splitStatus(out string) (string, int) {
	trimmed := strings.TrimRight(out, "\n")

	idx := strings.LastIndex(trimmed, "\n")
	if idx < 0 {
		return out, 0
	}

	status, err := strconv.Atoi(strings.TrimSpace(trimmed[idx+1:]))
	if err != nil {
		return out, 0
	}

	return trimmed[:idx], status
}
