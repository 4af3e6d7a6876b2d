// Package forge talks to the remote forge's REST API: free-text
// repository search and release metadata. The rest of the tool
// consumes both as plain string sequences and stays agnostic to the
// wire format.
package forge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/forgebin/forgebin/internal/errdefs"
	"github.com/forgebin/forgebin/internal/pkginfo"
	"github.com/forgebin/forgebin/internal/utils/logger"
	"github.com/forgebin/forgebin/internal/utils/network"
)

// Release is the slice of release metadata the core needs: the version
// tag and the candidate asset URLs fed to the selector.
type Release struct {
	TagName   string
	AssetURLs []string
}

// Client is the boundary the lifecycle layer depends on; tests swap in
// a fake.
type Client interface {
	// SearchRepositories returns repository URLs for a free-text
	// query, in the forge's relevance order.
	SearchRepositories(ctx context.Context, query string) ([]string, error)

	// LatestRelease returns the newest release for owner/repo. With
	// includePrereleases set, prereleases are considered too.
	LatestRelease(ctx context.Context, owner, repo string, includePrereleases bool) (*Release, error)
}

// HTTPClient implements Client against the real API.
type HTTPClient struct {
	hc        *http.Client
	apiBase   string
	userAgent string
}

// NewClient builds a Client for the given site.
func NewClient(site pkginfo.Site, userAgent string) *HTTPClient {
	return &HTTPClient{
		hc:        network.NewSecureHTTPClient(30 * time.Second),
		apiBase:   site.APIBaseURL(),
		userAgent: userAgent,
	}
}

// NewClientWithBase builds a Client against an arbitrary API base,
// used by tests to point at a local server.
func NewClientWithBase(apiBase, userAgent string) *HTTPClient {
	return &HTTPClient{
		hc:        &http.Client{Timeout: 30 * time.Second},
		apiBase:   strings.TrimSuffix(apiBase, "/"),
		userAgent: userAgent,
	}
}

// JoinURL joins path segments onto a base URL, producing no trailing
// slash.
func JoinURL(base string, parts ...string) string {
	segs := []string{strings.TrimSuffix(base, "/")}
	for _, p := range parts {
		segs = append(segs, strings.Trim(p, "/"))
	}
	return strings.Join(segs, "/")
}

func (c *HTTPClient) getJSON(ctx context.Context, rawurl string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawurl, nil)
	if err != nil {
		return fmt.Errorf("building request for %s: %w", rawurl, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/vnd.github+json")

	logger.Logger().Debugf("GET %s", rawurl)
	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("fetching %s: %w", rawurl, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &errdefs.RemoteAPIError{Status: resp.StatusCode, URL: rawurl}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response from %s: %w", rawurl, err)
	}
	return nil
}

func (c *HTTPClient) SearchRepositories(ctx context.Context, query string) ([]string, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("page", "1")
	endpoint := JoinURL(c.apiBase, "search", "repositories") + "?" + q.Encode()

	var payload struct {
		Items []struct {
			HTMLURL string `json:"html_url"`
		} `json:"items"`
	}
	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		return nil, err
	}
	urls := make([]string, 0, len(payload.Items))
	for _, item := range payload.Items {
		if item.HTMLURL != "" {
			urls = append(urls, item.HTMLURL)
		}
	}
	return urls, nil
}

// releasePayload is the wire shape shared by the latest-release and
// release-list endpoints.
type releasePayload struct {
	TagName    string `json:"tag_name"`
	Prerelease bool   `json:"prerelease"`
	Assets     []struct {
		BrowserDownloadURL string `json:"browser_download_url"`
	} `json:"assets"`
}

func (p *releasePayload) toRelease() *Release {
	rel := &Release{TagName: p.TagName}
	for _, a := range p.Assets {
		if a.BrowserDownloadURL != "" {
			rel.AssetURLs = append(rel.AssetURLs, a.BrowserDownloadURL)
		}
	}
	return rel
}

func (c *HTTPClient) LatestRelease(ctx context.Context, owner, repo string, includePrereleases bool) (*Release, error) {
	if !includePrereleases {
		endpoint := JoinURL(c.apiBase, "repos", owner, repo, "releases", "latest")
		var payload releasePayload
		if err := c.getJSON(ctx, endpoint, &payload); err != nil {
			return nil, err
		}
		return payload.toRelease(), nil
	}

	// The latest endpoint never reports prereleases, so list recent
	// releases and take the newest one.
	endpoint := JoinURL(c.apiBase, "repos", owner, repo, "releases") + "?per_page=10"
	var payload []releasePayload
	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		return nil, err
	}
	if len(payload) == 0 {
		return nil, fmt.Errorf("no releases published for %s/%s", owner, repo)
	}
	return payload[0].toRelease(), nil
}
