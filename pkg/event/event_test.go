package event

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/matzehuels/buckaroo/pkg/recipe"
	"github.com/matzehuels/buckaroo/pkg/semver"
)

func TestKindsAreUnique(t *testing.T) {
	events := []Event{
		RecipeFetchStarted{},
		ReleasesListed{},
		DownloadProgress{},
		FileDownloaded{},
		FileHashed{},
		ArchiveExtracted{},
		ManifestRead{},
		FetchProgress{},
		RecipeFetched{},
		ResolveStep{},
		ResolveCompleted{},
	}
	seen := make(map[string]bool)
	for _, e := range events {
		if seen[e.Kind()] {
			t.Errorf("duplicate kind %q", e.Kind())
		}
		seen[e.Kind()] = true
	}
}

func TestDownloadProgressPercent(t *testing.T) {
	tests := []struct {
		downloaded, total int64
		want              int
	}{
		{0, 100, 0},
		{50, 200, 25},
		{200, 200, 100},
		{10, -1, -1},
		{10, 0, -1},
	}
	for _, tt := range tests {
		e := DownloadProgress{Downloaded: tt.downloaded, Total: tt.total}
		if got := e.Percent(); got != tt.want {
			t.Errorf("Percent(%d/%d) = %d, want %d", tt.downloaded, tt.total, got, tt.want)
		}
	}
}

func TestUnwrap(t *testing.T) {
	id := recipe.MustRecipeIdentifier("github", "org", "lib")
	inner := FileDownloaded{URL: "https://x", Path: "/tmp/x"}
	wrapped := FetchProgress{Identifier: id, Event: FetchProgress{Identifier: id, Event: inner}}

	if got := Unwrap(wrapped); got != Event(inner) {
		t.Errorf("Unwrap() = %#v, want %#v", got, inner)
	}
	if got := Unwrap(inner); got != Event(inner) {
		t.Errorf("Unwrap(plain) = %#v", got)
	}
}

func TestEnvelopeJSON(t *testing.T) {
	id := recipe.MustRecipeIdentifier("github", "org", "lib")
	prev := semver.New(1, 0)

	tests := []struct {
		name  string
		event Event
		want  []string
	}{
		{
			name:  "resolve step",
			event: ResolveStep{Identifier: id, Range: semver.MustParseRange("^1.0"), Version: semver.New(1, 3), Previous: &prev},
			want:  []string{`"type":"resolve_step"`, `"identifier":"github+org/lib"`, `"range":"^1.0"`, `"version":"1.3"`, `"previous":"1.0"`},
		},
		{
			name:  "nested fetch progress",
			event: FetchProgress{Identifier: id, Event: DownloadProgress{URL: "https://x", Downloaded: 5, Total: 10}},
			want:  []string{`"type":"fetch_progress"`, `"event":{"type":"download_progress"`, `"downloaded":5`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(Wrap(tt.event))
			if err != nil {
				t.Fatalf("Marshal() error: %v", err)
			}
			for _, w := range tt.want {
				if !strings.Contains(string(data), w) {
					t.Errorf("JSON %s missing %s", data, w)
				}
			}
		})
	}
}
