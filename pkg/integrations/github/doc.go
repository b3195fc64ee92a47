// Package github provides an HTTP client for the GitHub API.
//
// # Overview
//
// This package discovers releases of repositories hosted on GitHub
// (https://api.github.com). A release is any tag; the caller decides which
// tag names are versions.
//
// # Usage
//
//	client := github.NewClient(github.Options{Token: token, Cache: c, TTL: time.Hour})
//
//	tags, err := client.Tags(ctx, "buckaroo-pm", "pkg-a", false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, t := range tags {
//	    fmt.Println(t.Name, client.ArchiveURL("buckaroo-pm", "pkg-a", t.Commit))
//	}
//
// # Authentication
//
// A GitHub personal access token is optional but recommended to avoid rate
// limits. Without a token, the client is limited to 60 requests/hour.
// With a token, the limit is 5000 requests/hour.
//
// # Archives
//
// GitHub serves a zip of any commit at {web}/{owner}/{repo}/archive/{commit}.zip.
// Its entries sit below a single directory named "{repo}-{commit}", returned
// by [Client.ArchiveSubPath].
//
// # Caching
//
// Tag listings are cached to reduce API calls. The cache TTL is set when
// creating the client. Pass refresh=true to bypass the cache.
package github
