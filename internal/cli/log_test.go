package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/buckaroo/pkg/event"
	"github.com/matzehuels/buckaroo/pkg/recipe"
	"github.com/matzehuels/buckaroo/pkg/semver"
)

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, log.InfoLevel)

	if logger == nil {
		t.Fatal("newLogger() returned nil")
	}

	logger.Info("test message")

	if buf.Len() == 0 {
		t.Error("logger should have written output")
	}
}

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		name    string
		level   log.Level
		logFunc func(*log.Logger)
		wantLog bool
	}{
		{
			name:    "info at info level",
			level:   log.InfoLevel,
			logFunc: func(l *log.Logger) { l.Info("test") },
			wantLog: true,
		},
		{
			name:    "debug at info level",
			level:   log.InfoLevel,
			logFunc: func(l *log.Logger) { l.Debug("test") },
			wantLog: false,
		},
		{
			name:    "debug at debug level",
			level:   log.DebugLevel,
			logFunc: func(l *log.Logger) { l.Debug("test") },
			wantLog: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := newLogger(&buf, tt.level)
			tt.logFunc(logger)

			gotLog := buf.Len() > 0
			if gotLog != tt.wantLog {
				t.Errorf("got log output = %v, want %v", gotLog, tt.wantLog)
			}
		})
	}
}

func TestProgress(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, log.InfoLevel)

	prog := newProgress(logger)
	if prog == nil {
		t.Fatal("newProgress() returned nil")
	}

	time.Sleep(10 * time.Millisecond)

	prog.done("test completed")

	output := buf.String()
	if output == "" {
		t.Error("progress.done() should produce output")
	}

	if !bytes.Contains(buf.Bytes(), []byte("test completed")) {
		t.Error("progress.done() output should contain message")
	}
}

func TestWithLogger(t *testing.T) {
	ctx := context.Background()
	logger := log.Default()

	ctxWithLogger := withLogger(ctx, logger)

	retrieved := loggerFromContext(ctxWithLogger)
	if retrieved != logger {
		t.Error("loggerFromContext should return the same logger")
	}
}

func TestLoggerFromContextDefault(t *testing.T) {
	ctx := context.Background()

	logger := loggerFromContext(ctx)
	if logger == nil {
		t.Error("loggerFromContext should return default logger when none set")
	}
}

func TestLoggerFromContextWithValue(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	customLogger := newLogger(&buf, log.InfoLevel)

	ctx = withLogger(ctx, customLogger)
	retrieved := loggerFromContext(ctx)

	if retrieved != customLogger {
		t.Error("loggerFromContext should return the custom logger")
	}

	retrieved.Info("test")
	if buf.Len() == 0 {
		t.Error("custom logger should write to buffer")
	}
}

func TestEventLogger(t *testing.T) {
	id := recipe.MustRecipeIdentifier("github", "org", "lib")
	prev := semver.MustParse("1.2.0")

	tests := []struct {
		name  string
		level log.Level
		event event.Event
		want  []string
	}{
		{
			name:  "fetched recipe at info",
			level: log.InfoLevel,
			event: event.RecipeFetched{Identifier: id, Versions: 3},
			want:  []string{"fetched recipe", "github+org/lib"},
		},
		{
			name:  "reselection at info",
			level: log.InfoLevel,
			event: event.ResolveStep{Identifier: id, Range: semver.MustParseRange("<1.2"), Version: semver.MustParse("1.1.0"), Previous: &prev},
			want:  []string{"reselected", "1.2.0", "1.1.0"},
		},
		{
			name:  "first selection hidden at info",
			level: log.InfoLevel,
			event: event.ResolveStep{Identifier: id, Range: semver.Any(), Version: semver.MustParse("1.1.0")},
		},
		{
			name:  "nested download at debug",
			level: log.DebugLevel,
			event: event.FetchProgress{Identifier: id, Event: event.FileDownloaded{URL: "https://example.com/a.zip"}},
			want:  []string{"downloaded", "https://example.com/a.zip", "github+org/lib"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			newEventLogger(newLogger(&buf, tt.level)).log(tt.event)

			got := buf.String()
			if len(tt.want) == 0 && got != "" {
				t.Errorf("expected no output, got %q", got)
			}
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("output %q missing %q", got, w)
				}
			}
		})
	}
}

func TestEventLoggerStatus(t *testing.T) {
	l := newEventLogger(newLogger(&bytes.Buffer{}, log.InfoLevel))
	id := recipe.MustRecipeIdentifier("github", "org", "lib")

	l.log(event.RecipeFetched{Identifier: id})
	l.log(event.FetchProgress{Identifier: id, Event: event.RecipeFetched{Identifier: id}})
	l.log(event.ResolveStep{Identifier: id, Version: semver.MustParse("1.0.0")})

	if got, want := l.status(), "Resolving: 2 recipes fetched, 1 selections"; got != want {
		t.Errorf("status() = %q, want %q", got, want)
	}
}
