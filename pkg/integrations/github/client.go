package github

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/matzehuels/buckaroo/pkg/cache"
	"github.com/matzehuels/buckaroo/pkg/integrations"
)

const (
	// DefaultBaseURL is the public GitHub API.
	DefaultBaseURL = "https://api.github.com"
	// DefaultWebURL is the public GitHub site, used for archive downloads.
	DefaultWebURL = "https://github.com"

	perPage  = 100
	maxPages = 50
)

// Options configures a [Client]. The zero value talks to github.com without
// authentication or caching.
type Options struct {
	Token      string        // personal access token, optional
	Cache      cache.Cache   // response cache, nil disables caching
	TTL        time.Duration // cache lifetime of tag listings
	BaseURL    string        // API root, defaults to DefaultBaseURL
	WebURL     string        // site root, defaults to DefaultWebURL
	HTTPClient *http.Client  // overrides the transport, mainly for tests
}

// Client provides access to the GitHub API for release discovery.
// It handles HTTP requests with caching, automatic retries, and optional authentication.
type Client struct {
	*integrations.Client
	baseURL string
	webURL  string
}

// NewClient creates a GitHub API client.
// Leave opts.Token empty to use unauthenticated requests (lower rate limits).
func NewClient(opts Options) *Client {
	headers := map[string]string{"Accept": "application/vnd.github.v3+json"}
	if opts.Token != "" {
		headers["Authorization"] = "Bearer " + opts.Token
	}

	c := &Client{
		Client:  integrations.NewClient(opts.Cache, "github", opts.TTL, headers),
		baseURL: strings.TrimSuffix(opts.BaseURL, "/"),
		webURL:  strings.TrimSuffix(opts.WebURL, "/"),
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if c.webURL == "" {
		c.webURL = DefaultWebURL
	}
	if opts.HTTPClient != nil {
		c.SetHTTPClient(opts.HTTPClient)
	}
	return c
}

// Tags lists every tag of owner/repo with the commit it points at.
// If refresh is true, cached data is bypassed.
func (c *Client) Tags(ctx context.Context, owner, repo string, refresh bool) ([]integrations.Tag, error) {
	if err := ValidateRepoRef(owner, repo); err != nil {
		return nil, err
	}

	var tags []integrations.Tag
	err := c.Cached(ctx, "tags:"+owner+"/"+repo, refresh, &tags, func() error {
		var err error
		tags, err = c.fetchTags(ctx, owner, repo)
		return err
	})
	if err != nil {
		return nil, err
	}
	return tags, nil
}

func (c *Client) fetchTags(ctx context.Context, owner, repo string) ([]integrations.Tag, error) {
	var tags []integrations.Tag
	for page := 1; page <= maxPages; page++ {
		var data []tagResponse
		url := fmt.Sprintf("%s/repos/%s/%s/tags?per_page=%d&page=%d", c.baseURL, owner, repo, perPage, page)
		if err := c.Get(ctx, url, &data); err != nil {
			if errors.Is(err, integrations.ErrNotFound) {
				return nil, fmt.Errorf("%w: github repo %s/%s", err, owner, repo)
			}
			return nil, err
		}
		for _, t := range data {
			tags = append(tags, integrations.Tag{Name: t.Name, Commit: t.Commit.SHA})
		}
		if len(data) < perPage {
			break
		}
	}
	return tags, nil
}

// RepoURL returns the web URL of owner/repo.
func (c *Client) RepoURL(owner, repo string) string {
	return c.webURL + "/" + owner + "/" + repo
}

// ArchiveURL returns the zip archive URL of repo at commit.
func (c *Client) ArchiveURL(owner, repo, commit string) string {
	return fmt.Sprintf("%s/%s/%s/archive/%s.zip", c.webURL, owner, repo, commit)
}

// ArchiveSubPath returns the single top-level directory GitHub wraps
// archive contents in.
func (c *Client) ArchiveSubPath(repo, commit string) string {
	return repo + "-" + commit
}

// DownloadArchive streams the archive of repo at commit into w.
func (c *Client) DownloadArchive(ctx context.Context, owner, repo, commit string, w io.Writer, progress func(written, total int64)) error {
	return c.Download(ctx, c.ArchiveURL(owner, repo, commit), w, progress)
}

type tagResponse struct {
	Name   string `json:"name"`
	Commit struct {
		SHA string `json:"sha"`
	} `json:"commit"`
}
