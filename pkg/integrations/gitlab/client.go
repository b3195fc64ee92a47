package gitlab

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/matzehuels/buckaroo/pkg/cache"
	"github.com/matzehuels/buckaroo/pkg/integrations"
)

// DefaultBaseURL is gitlab.com. It serves both the API and archives.
const DefaultBaseURL = "https://gitlab.com"

const (
	perPage  = 100
	maxPages = 50
)

var repoURLPattern = regexp.MustCompile(`^https?://gitlab\.com/([^/]+)/([^/]+?)(?:\.git)?/?$`)

// Options configures a [Client].
type Options struct {
	Token      string        // personal access token, optional
	Cache      cache.Cache   // response cache, nil disables caching
	TTL        time.Duration // cache lifetime of tag listings
	BaseURL    string        // instance root, defaults to DefaultBaseURL
	HTTPClient *http.Client  // overrides the transport, mainly for tests
}

// Client provides access to the GitLab API for release discovery.
// It handles HTTP requests with caching, automatic retries, and optional authentication.
//
// All methods are safe for concurrent use by multiple goroutines.
type Client struct {
	*integrations.Client
	baseURL string
}

// NewClient creates a GitLab API client. Leave opts.Token empty for
// unauthenticated access to public projects.
func NewClient(opts Options) *Client {
	var headers map[string]string
	if opts.Token != "" {
		headers = map[string]string{"PRIVATE-TOKEN": opts.Token}
	}

	c := &Client{
		Client:  integrations.NewClient(opts.Cache, "gitlab", opts.TTL, headers),
		baseURL: strings.TrimSuffix(opts.BaseURL, "/"),
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	if opts.HTTPClient != nil {
		c.SetHTTPClient(opts.HTTPClient)
	}
	return c
}

// Tags lists every tag of owner/project with the commit it points at.
// If refresh is true, cached data is bypassed.
func (c *Client) Tags(ctx context.Context, owner, project string, refresh bool) ([]integrations.Tag, error) {
	if owner == "" || project == "" {
		return nil, errors.New("owner and project are required")
	}

	var tags []integrations.Tag
	err := c.Cached(ctx, "tags:"+owner+"/"+project, refresh, &tags, func() error {
		var err error
		tags, err = c.fetchTags(ctx, owner, project)
		return err
	})
	if err != nil {
		return nil, err
	}
	return tags, nil
}

func (c *Client) fetchTags(ctx context.Context, owner, project string) ([]integrations.Tag, error) {
	id := url.PathEscape(owner + "/" + project)
	var tags []integrations.Tag
	for page := 1; page <= maxPages; page++ {
		var data []tagResponse
		u := fmt.Sprintf("%s/api/v4/projects/%s/repository/tags?per_page=%d&page=%d", c.baseURL, id, perPage, page)
		if err := c.Get(ctx, u, &data); err != nil {
			if errors.Is(err, integrations.ErrNotFound) {
				return nil, fmt.Errorf("%w: gitlab project %s/%s", err, owner, project)
			}
			return nil, err
		}
		for _, t := range data {
			tags = append(tags, integrations.Tag{Name: t.Name, Commit: t.Commit.ID})
		}
		if len(data) < perPage {
			break
		}
	}
	return tags, nil
}

// RepoURL returns the web URL of owner/project.
func (c *Client) RepoURL(owner, project string) string {
	return c.baseURL + "/" + owner + "/" + project
}

// ArchiveURL returns the zip archive URL of project at commit.
func (c *Client) ArchiveURL(owner, project, commit string) string {
	return fmt.Sprintf("%s/%s/%s/-/archive/%s/%s-%s.zip", c.baseURL, owner, project, commit, project, commit)
}

// ArchiveSubPath returns the top-level directory of a GitLab archive. GitLab
// names it after the project, the requested ref and the resolved commit;
// requesting by commit repeats it.
func (c *Client) ArchiveSubPath(project, commit string) string {
	return project + "-" + commit + "-" + commit
}

// DownloadArchive streams the archive of project at commit into w.
func (c *Client) DownloadArchive(ctx context.Context, owner, project, commit string, w io.Writer, progress func(written, total int64)) error {
	return c.Download(ctx, c.ArchiveURL(owner, project, commit), w, progress)
}

// ExtractURL returns the owner and project of a gitlab.com URL.
func ExtractURL(u string) (owner, project string, ok bool) {
	m := repoURLPattern.FindStringSubmatch(strings.TrimSpace(u))
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

type tagResponse struct {
	Name   string `json:"name"`
	Commit struct {
		ID string `json:"id"`
	} `json:"commit"`
}
