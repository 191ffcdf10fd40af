package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/atepart/rns-release/internal/domain/release"
)

// maxPerPage is the largest page size the releases endpoint accepts.
const maxPerPage = 100

// releasePayload is the subset of the GitHub release object we read.
type releasePayload struct {
	TagName     string         `json:"tag_name"`
	Name        string         `json:"name"`
	PublishedAt string         `json:"published_at"`
	Prerelease  bool           `json:"prerelease"`
	Body        string         `json:"body"`
	Assets      []assetPayload `json:"assets"`
}

type assetPayload struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
	Size               int64  `json:"size"`
}

func (p releasePayload) toRelease() release.Release {
	tag := p.TagName
	if tag == "" {
		tag = p.Name
	}

	// Drafts have no publication date; they sort last.
	published, _ := time.Parse(time.RFC3339, p.PublishedAt)

	return release.Release{
		Tag:         tag,
		Name:        p.Name,
		PublishedAt: published,
		Prerelease:  p.Prerelease,
		Body:        p.Body,
		Assets: lo.Map(p.Assets, func(a assetPayload, _ int) release.Asset {
			return release.Asset{Name: a.Name, DownloadURL: a.BrowserDownloadURL, Size: a.Size}
		}),
	}
}

// ListReleases returns up to limit releases of slug, newest publication first.
func (c *Client) ListReleases(ctx context.Context, slug string, limit int) ([]release.Release, error) {
	perPage := max(1, min(limit, maxPerPage))

	endpoint, err := c.releasesURL(slug)
	if err != nil {
		return nil, err
	}

	endpoint += fmt.Sprintf("?per_page=%d", perPage)

	releases, err := c.fetchReleases(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	return release.SortByPublished(releases, perPage), nil
}

// LatestRelease returns the newest release by tag order. The boolean is false
// when no release carries a recognised tag.
func (c *Client) LatestRelease(ctx context.Context, slug string) (release.Release, bool, error) {
	endpoint, err := c.releasesURL(slug)
	if err != nil {
		return release.Release{}, false, err
	}

	releases, err := c.fetchReleases(ctx, endpoint+fmt.Sprintf("?per_page=%d", maxPerPage))
	if err != nil {
		return release.Release{}, false, err
	}

	latest, ok := release.Latest(releases)

	return latest, ok, nil
}

// ReleaseByTag fetches the release published under tag.
func (c *Client) ReleaseByTag(ctx context.Context, slug, tag string) (release.Release, error) {
	endpoint, err := c.releasesURL(slug)
	if err != nil {
		return release.Release{}, err
	}

	endpoint += "/tags/" + url.PathEscape(tag)

	body, err := c.getJSON(ctx, endpoint)
	if err != nil {
		return release.Release{}, err
	}

	var payload releasePayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return release.Release{}, fmt.Errorf("%w: %s: %w", ErrInvalidJSON, endpoint, err)
	}

	return payload.toRelease(), nil
}

func (c *Client) fetchReleases(ctx context.Context, endpoint string) ([]release.Release, error) {
	body, err := c.getJSON(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var payload []releasePayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidJSON, endpoint, err)
	}

	return lo.Map(payload, func(p releasePayload, _ int) release.Release {
		return p.toRelease()
	}), nil
}

func (c *Client) releasesURL(slug string) (string, error) {
	owner, repo, ok := strings.Cut(slug, "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", fmt.Errorf("%w: %q", errInvalidSlug, slug)
	}

	return c.baseURL + "/repos/" + url.PathEscape(owner) + "/" + url.PathEscape(repo) + "/releases", nil
}
