// Package httputil provides HTTP helpers shared by the hosting-service
// clients and the download task.
//
//   - [Retry]: automatic retry with exponential backoff for transient failures
//   - [ProgressReader]: byte counting for streamed downloads
//
// # Retry
//
// [Retry] re-runs an operation when it fails with a [RetryableError]:
//
//   - Network errors
//   - 5xx server errors
//
// Other errors, including 404 and 403, are returned immediately. Retrying is
// the concern of the transport; the resolver never retries a failed fetch.
//
//	err := httputil.RetryWithBackoff(ctx, func() error {
//	    return client.Get(ctx, url, &v)
//	})
package httputil
