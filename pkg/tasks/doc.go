// Package tasks provides the leaf operations of recipe fetching as
// processes: downloading, hashing, extracting archives and reading
// manifests.
//
// Every task reports its progress through events and works against an
// [afero.Fs], so callers choose where artifacts live: the operating system
// for the shared cache, an in-memory filesystem for throwaway extraction
// workspaces.
//
// Tasks do not limit their own concurrency. Wrap network-bound tasks with
// [process.Limit] to share a worker pool.
//
// [afero.Fs]: https://pkg.go.dev/github.com/spf13/afero#Fs
// [process.Limit]: github.com/matzehuels/buckaroo/pkg/process.Limit
package tasks
