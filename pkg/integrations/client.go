package integrations

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/matzehuels/buckaroo/pkg/buildinfo"
	"github.com/matzehuels/buckaroo/pkg/cache"
	"github.com/matzehuels/buckaroo/pkg/errors"
	"github.com/matzehuels/buckaroo/pkg/httputil"
	"github.com/matzehuels/buckaroo/pkg/observability"
)

// progressInterval throttles download progress callbacks.
const progressInterval = 100 * time.Millisecond

// Client provides shared HTTP functionality for the hosting-service clients.
// It handles response caching, retry logic, status mapping and common
// request headers.
//
// All methods are safe for concurrent use.
type Client struct {
	http      *http.Client
	download  *http.Client
	cache     cache.Cache
	keyer     cache.Keyer
	namespace string
	ttl       time.Duration
	headers   map[string]string
	retry     httputil.Policy
}

// NewClient creates a Client that caches responses in c under namespace for
// ttl. Headers are applied to all requests made through this client; pass
// nil if none are needed. A nil cache disables caching.
func NewClient(c cache.Cache, namespace string, ttl time.Duration, headers map[string]string) *Client {
	if c == nil {
		c = cache.NewNullCache()
	}
	return &Client{
		http:      NewHTTPClient(),
		download:  NewDownloadClient(),
		cache:     c,
		keyer:     cache.NewDefaultKeyer(),
		namespace: namespace,
		ttl:       ttl,
		headers:   headers,
		retry:     httputil.DefaultPolicy,
	}
}

// SetHTTPClient replaces the transport for both API calls and downloads.
func (c *Client) SetHTTPClient(h *http.Client) {
	c.http = h
	c.download = h
}

// SetKeyer replaces the cache keyer.
func (c *Client) SetKeyer(k cache.Keyer) {
	if k != nil {
		c.keyer = k
	}
}

// SetRetryPolicy replaces the retry policy.
func (c *Client) SetRetryPolicy(p httputil.Policy) { c.retry = p }

// Cached retrieves a value from cache or executes fetch and caches the result.
// If refresh is true, the cache is bypassed and fetch is always called.
// The fetch function should populate v; on success, v is stored in the cache.
// Fetch is retried under the client's retry policy.
func (c *Client) Cached(ctx context.Context, key string, refresh bool, v any, fetch func() error) error {
	k := c.keyer.HTTPKey(c.namespace, key)
	if !refresh {
		if data, ok, _ := c.cache.Get(ctx, k); ok && json.Unmarshal(data, v) == nil {
			observability.Cache().OnCacheHit(ctx, c.namespace)
			return nil
		}
		observability.Cache().OnCacheMiss(ctx, c.namespace)
	}
	if err := c.retry.Do(ctx, fetch); err != nil {
		return err
	}
	if data, err := json.Marshal(v); err == nil {
		_ = c.cache.Set(ctx, k, data, c.ttl)
		observability.Cache().OnCacheSet(ctx, c.namespace, len(data))
	}
	return nil
}

// Get performs an HTTP GET request and JSON-decodes the response into v.
func (c *Client) Get(ctx context.Context, url string, v any) error {
	return c.GetWithHeaders(ctx, url, nil, v)
}

// GetWithHeaders performs an HTTP GET with additional headers merged with defaults.
// Request-specific headers override client defaults for the same key.
func (c *Client) GetWithHeaders(ctx context.Context, url string, headers map[string]string, v any) error {
	resp, err := c.do(ctx, c.http, url, headers)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}

// GetText performs an HTTP GET request and returns the response body as a string.
func (c *Client) GetText(ctx context.Context, url string) (string, error) {
	resp, err := c.do(ctx, c.http, url, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	return string(data), err
}

// Download streams url into w. progress, if non-nil, receives the number of
// bytes written so far and the announced total (-1 if unknown). Transient
// failures before the first byte is written are retried.
func (c *Client) Download(ctx context.Context, url string, w io.Writer, progress func(written, total int64)) error {
	var resp *http.Response
	err := c.retry.Do(ctx, func() error {
		var err error
		resp, err = c.do(ctx, c.download, url, nil)
		return err
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var r io.Reader = resp.Body
	if progress != nil {
		r = httputil.NewProgressReader(resp.Body, resp.ContentLength, progressInterval, progress)
	}
	if _, err := io.Copy(w, r); err != nil {
		return fmt.Errorf("%w: download %s: %v", ErrNetwork, url, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, client *http.Client, url string, headers map[string]string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", buildinfo.UserAgent())
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	hooks := observability.HTTP()
	host, path := req.URL.Host, req.URL.Path
	start := time.Now()
	hooks.OnRequest(ctx, req.Method, host, path)
	resp, err := client.Do(req)
	if err != nil {
		hooks.OnError(ctx, req.Method, host, path, err)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &httputil.RetryableError{Err: fmt.Errorf("%w: %v", ErrNetwork, err)}
	}
	hooks.OnResponse(ctx, req.Method, host, path, resp.StatusCode, time.Since(start))

	if err := checkResponse(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp, nil
}

// checkResponse maps rate-limit responses before falling back to the
// status code mapping.
func checkResponse(resp *http.Response) error {
	limited := resp.StatusCode == http.StatusTooManyRequests ||
		(resp.StatusCode == http.StatusForbidden && resp.Header.Get("X-RateLimit-Remaining") == "0")
	if limited {
		retryAfter, _ := strconv.Atoi(resp.Header.Get("Retry-After"))
		return &errors.RateLimitedError{RetryAfter: retryAfter, Message: resp.Request.URL.Host}
	}
	return checkStatus(resp.StatusCode)
}

func checkStatus(code int) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusNotFound:
		return ErrNotFound
	case code >= 500:
		return &httputil.RetryableError{Err: fmt.Errorf("%w: status %d", ErrNetwork, code)}
	default:
		return fmt.Errorf("%w: status %d", ErrNetwork, code)
	}
}
