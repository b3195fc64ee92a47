// Package integrations provides HTTP clients for source hosting APIs.
//
// # Overview
//
// This package contains low-level API clients used to discover package
// releases. Each hosting service has its own subpackage:
//
//   - [github]: GitHub REST API v3
//   - [gitlab]: GitLab REST API v4
//
// # Client Pattern
//
// Hosting clients follow a consistent pattern:
//
//	client := github.NewClient(github.Options{Token: token, Cache: c, TTL: time.Hour})
//	tags, err := client.Tags(ctx, "owner", "repo", false)  // false = use cache
//	url := client.ArchiveURL("owner", "repo", tags[0].Commit)
//
// Clients handle:
//   - HTTP requests with retry and rate limit detection
//   - Response caching through [cache.Cache] with a configurable TTL
//   - Streaming archive downloads with progress reporting
//
// # Shared Infrastructure
//
// The [Client] type provides shared HTTP functionality used by every
// hosting client. Errors are mapped to [ErrNotFound], [ErrNetwork] or a
// rate limit error from pkg/errors; transient failures are wrapped as
// retryable.
//
// [github]: github.com/matzehuels/buckaroo/pkg/integrations/github
// [gitlab]: github.com/matzehuels/buckaroo/pkg/integrations/gitlab
// [cache.Cache]: github.com/matzehuels/buckaroo/pkg/cache.Cache
package integrations
