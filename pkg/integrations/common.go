package integrations

import (
	"errors"
	"net/http"
	"strings"
	"time"
)

const httpTimeout = 10 * time.Second

var (
	// ErrNotFound is returned when a repository or resource doesn't exist on the host.
	ErrNotFound = errors.New("resource not found")

	// ErrNetwork is returned for HTTP failures (timeouts, connection errors, 5xx responses).
	ErrNetwork = errors.New("network error")
)

// Tag is a named commit of a repository.
type Tag struct {
	Name   string `json:"name"`
	Commit string `json:"commit"`
}

// TagMap returns tags as a name → commit map. Later duplicates win.
func TagMap(tags []Tag) map[string]string {
	m := make(map[string]string, len(tags))
	for _, t := range tags {
		m[t.Name] = t.Commit
	}
	return m
}

// NewHTTPClient creates an HTTP client with a standard timeout for API requests.
func NewHTTPClient() *http.Client {
	return &http.Client{Timeout: httpTimeout}
}

// NewDownloadClient creates an HTTP client without an overall timeout.
// Downloads are bounded by their context instead, since archives can be
// large.
func NewDownloadClient() *http.Client {
	return &http.Client{}
}

var repoURLReplacer = strings.NewReplacer(
	"git@github.com:", "https://github.com/",
	"git://github.com/", "https://github.com/",
	"git@gitlab.com:", "https://gitlab.com/",
)

// NormalizeRepoURL converts various repository URL formats to canonical HTTPS form.
// Handles git@, git://, and git+ prefixes, and removes .git suffixes.
// Returns empty string if raw is empty.
func NormalizeRepoURL(raw string) string {
	if raw == "" {
		return ""
	}
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "git+")
	s = repoURLReplacer.Replace(s)
	return strings.TrimSuffix(s, ".git")
}
