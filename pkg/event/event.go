// Package event defines the progress notifications emitted while recipes are
// fetched and dependencies are resolved.
//
// The set of events is closed: every type in this package implements
// [Event] and no type outside it can. Events are plain values and carry
// enough context (identifier, URL, byte counts, digests) to be rendered
// without further lookups. They never influence control flow: a consumer may
// drop every event without changing the outcome of the work that produced
// them.
package event

import (
	"encoding/json"

	"github.com/matzehuels/buckaroo/pkg/recipe"
	"github.com/matzehuels/buckaroo/pkg/semver"
)

// Event is a progress notification.
type Event interface {
	// Kind returns a stable, machine-readable name for the event type.
	Kind() string
	sealed()
}

// RecipeFetchStarted is emitted when a source starts fetching a recipe.
type RecipeFetchStarted struct {
	Identifier recipe.RecipeIdentifier `json:"identifier"`
}

// ReleasesListed is emitted once the tag listing of a repository is known.
// Versions counts the tags that parse as versions.
type ReleasesListed struct {
	Identifier recipe.RecipeIdentifier `json:"identifier"`
	Tags       int                     `json:"tags"`
	Versions   int                     `json:"versions"`
}

// DownloadProgress reports bytes written to Path so far. Total is -1 when
// the server did not announce a length.
type DownloadProgress struct {
	URL        string `json:"url"`
	Path       string `json:"path"`
	Downloaded int64  `json:"downloaded"`
	Total      int64  `json:"total"`
}

// Percent returns the completed percentage, or -1 if Total is unknown.
func (e DownloadProgress) Percent() int {
	if e.Total <= 0 {
		return -1
	}
	return int(e.Downloaded * 100 / e.Total)
}

// FileDownloaded is emitted when a download is complete. Cached is true
// when the file was already present and nothing was fetched.
type FileDownloaded struct {
	URL    string `json:"url"`
	Path   string `json:"path"`
	Cached bool   `json:"cached"`
}

// FileHashed is emitted after a file digest is computed.
type FileHashed struct {
	Path   string `json:"path"`
	SHA256 string `json:"sha256"`
}

// ArchiveExtracted is emitted after an archive is unpacked.
type ArchiveExtracted struct {
	Archive string `json:"archive"`
	Target  string `json:"target"`
	SubPath string `json:"sub_path,omitempty"`
	Files   int    `json:"files"`
}

// ManifestRead is emitted after a package manifest is parsed.
type ManifestRead struct {
	Path string `json:"path"`
}

// FetchProgress wraps an event raised while fetching the recipe for
// Identifier, so nested download events keep their context.
type FetchProgress struct {
	Identifier recipe.RecipeIdentifier `json:"identifier"`
	Event      Event                   `json:"-"`
}

// MarshalJSON implements json.Marshaler, embedding the wrapped event as an
// envelope.
func (e FetchProgress) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Identifier recipe.RecipeIdentifier `json:"identifier"`
		Event      Envelope                `json:"event"`
	}{e.Identifier, Wrap(e.Event)})
}

// RecipeFetched is emitted when a complete recipe is available.
type RecipeFetched struct {
	Identifier recipe.RecipeIdentifier `json:"identifier"`
	Versions   int                     `json:"versions"`
	Cached     bool                    `json:"cached"`
}

// ResolveStep is emitted each time the resolver selects a version.
// Previous is nil when Identifier had no selection before.
type ResolveStep struct {
	Identifier recipe.RecipeIdentifier `json:"identifier"`
	Range      semver.Range            `json:"range"`
	Version    semver.Version          `json:"version"`
	Previous   *semver.Version         `json:"previous,omitempty"`
}

// ResolveCompleted is emitted once when resolution succeeds.
type ResolveCompleted struct {
	Packages int `json:"packages"`
	Rounds   int `json:"rounds"`
}

func (RecipeFetchStarted) Kind() string { return "recipe_fetch_started" }
func (ReleasesListed) Kind() string     { return "releases_listed" }
func (DownloadProgress) Kind() string   { return "download_progress" }
func (FileDownloaded) Kind() string     { return "file_downloaded" }
func (FileHashed) Kind() string         { return "file_hashed" }
func (ArchiveExtracted) Kind() string   { return "archive_extracted" }
func (ManifestRead) Kind() string       { return "manifest_read" }
func (FetchProgress) Kind() string      { return "fetch_progress" }
func (RecipeFetched) Kind() string      { return "recipe_fetched" }
func (ResolveStep) Kind() string        { return "resolve_step" }
func (ResolveCompleted) Kind() string   { return "resolve_completed" }

func (RecipeFetchStarted) sealed() {}
func (ReleasesListed) sealed()     {}
func (DownloadProgress) sealed()   {}
func (FileDownloaded) sealed()     {}
func (FileHashed) sealed()         {}
func (ArchiveExtracted) sealed()   {}
func (ManifestRead) sealed()       {}
func (FetchProgress) sealed()      {}
func (RecipeFetched) sealed()      {}
func (ResolveStep) sealed()        {}
func (ResolveCompleted) sealed()   {}

// Unwrap strips any [FetchProgress] wrappers and returns the innermost event.
func Unwrap(e Event) Event {
	for {
		fp, ok := e.(FetchProgress)
		if !ok || fp.Event == nil {
			return e
		}
		e = fp.Event
	}
}

// Envelope is the tagged serialized form of an event.
type Envelope struct {
	Type string `json:"type"`
	Data Event  `json:"data"`
}

// Wrap returns the envelope for e.
func Wrap(e Event) Envelope {
	if e == nil {
		return Envelope{}
	}
	return Envelope{Type: e.Kind(), Data: e}
}
