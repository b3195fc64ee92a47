package cli

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/buckaroo/pkg/event"
)

// newLogger creates a new logger with timestamp formatting.
// Timestamps are formatted as "HH:MM:SS.ms" (e.g., "14:32:01.45").
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress tracks the start time of an operation and logs completion with elapsed duration.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg along with the elapsed time since progress was created.
// Example output: "Resolved 42 packages (1.234s)"
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}

type ctxKey int

const loggerKey ctxKey = 0

func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext retrieves the logger from ctx, or log.Default().
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}

// eventLogger turns process events into log lines and keeps counters for
// a one-line status.
type eventLogger struct {
	logger   *log.Logger
	fetched  atomic.Int32
	selected atomic.Int32
}

func newEventLogger(l *log.Logger) *eventLogger {
	return &eventLogger{logger: l}
}

// count updates the counters behind status without logging.
func (l *eventLogger) count(e event.Event) {
	switch event.Unwrap(e).(type) {
	case event.RecipeFetched:
		l.fetched.Add(1)
	case event.ResolveStep:
		l.selected.Add(1)
	}
}

func (l *eventLogger) log(e event.Event) {
	l.count(e)

	var owner []any
	if fp, ok := e.(event.FetchProgress); ok {
		owner = []any{"for", fp.Identifier}
	}

	switch ev := event.Unwrap(e).(type) {
	case event.RecipeFetchStarted:
		l.logger.Debug("fetching recipe", "id", ev.Identifier)
	case event.ReleasesListed:
		l.logger.Debug("listed releases", "id", ev.Identifier, "tags", ev.Tags, "versions", ev.Versions)
	case event.FileDownloaded:
		l.logger.Debug("downloaded", append([]any{"url", ev.URL, "cached", ev.Cached}, owner...)...)
	case event.FileHashed:
		l.logger.Debug("hashed", "path", ev.Path, "sha256", ev.SHA256)
	case event.ArchiveExtracted:
		l.logger.Debug("extracted", append([]any{"archive", ev.Archive, "files", ev.Files}, owner...)...)
	case event.ManifestRead:
		l.logger.Debug("read manifest", append([]any{"path", ev.Path}, owner...)...)
	case event.RecipeFetched:
		l.logger.Info("fetched recipe", "id", ev.Identifier, "versions", ev.Versions, "cached", ev.Cached)
	case event.ResolveStep:
		if ev.Previous != nil {
			l.logger.Info("reselected", "id", ev.Identifier, "from", ev.Previous, "to", ev.Version, "range", ev.Range)
		} else {
			l.logger.Debug("selected", "id", ev.Identifier, "version", ev.Version, "range", ev.Range)
		}
	case event.ResolveCompleted:
		l.logger.Debug("resolution complete", "packages", ev.Packages, "rounds", ev.Rounds)
	}
}

// status summarizes the events seen so far.
func (l *eventLogger) status() string {
	return fmt.Sprintf("Resolving: %d recipes fetched, %d selections", l.fetched.Load(), l.selected.Load())
}
