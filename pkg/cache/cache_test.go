package cache

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/afero"
)

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	data, hit, err := c.Get(ctx, "key")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if hit || data != nil {
		t.Error("NullCache.Get should always return miss")
	}

	if err := c.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Errorf("Set error: %v", err)
	}
	if _, hit, _ = c.Get(ctx, "key"); hit {
		t.Error("NullCache should not store data")
	}
	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
}

func TestFileCache(t *testing.T) {
	ctx := context.Background()
	c, err := NewFileCacheFs(afero.NewMemMapFs(), "/cache")
	if err != nil {
		t.Fatal(err)
	}

	if _, hit, err := c.Get(ctx, "missing"); hit || err != nil {
		t.Fatalf("Get(missing) = %v, %v", hit, err)
	}

	if err := c.Set(ctx, "k", []byte("v1"), time.Hour); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	data, hit, err := c.Get(ctx, "k")
	if err != nil || !hit || string(data) != "v1" {
		t.Fatalf("Get(k) = %q, %v, %v", data, hit, err)
	}

	if err := c.Set(ctx, "k", []byte("v2"), 0); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	if data, _, _ := c.Get(ctx, "k"); string(data) != "v2" {
		t.Errorf("overwrite: Get(k) = %q, want v2", data)
	}

	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "k"); hit {
		t.Error("Get after Delete should miss")
	}
	if err := c.Delete(ctx, "k"); err != nil {
		t.Errorf("Delete(missing) error: %v", err)
	}
}

func TestFileCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCacheFs(afero.NewMemMapFs(), "/cache")

	if err := c.Set(ctx, "k", []byte("v"), 10*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	time.Sleep(20 * time.Millisecond)
	if _, hit, err := c.Get(ctx, "k"); hit || err != nil {
		t.Errorf("expired Get = %v, %v; want miss", hit, err)
	}
}

func TestFileCacheCorruptEntry(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	c, _ := NewFileCacheFs(fs, "/cache")

	if err := afero.WriteFile(fs, c.path("k"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, hit, err := c.Get(ctx, "k"); hit || err != nil {
		t.Errorf("corrupt Get = %v, %v; want miss", hit, err)
	}
	if ok, _ := afero.Exists(fs, c.path("k")); ok {
		t.Error("corrupt entry was not removed")
	}
}

func TestFileCacheClear(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCacheFs(afero.NewMemMapFs(), "/cache")
	_ = c.Set(ctx, "a", []byte("1"), 0)
	_ = c.Set(ctx, "b", []byte("2"), 0)

	if err := c.Clear(); err != nil {
		t.Fatal(err)
	}
	for _, k := range []string{"a", "b"} {
		if _, hit, _ := c.Get(ctx, k); hit {
			t.Errorf("Get(%s) hit after Clear", k)
		}
	}
}

func TestRedisCache(t *testing.T) {
	url := os.Getenv("BUCKAROO_TEST_REDIS_URL")
	if url == "" {
		t.Skip("BUCKAROO_TEST_REDIS_URL not set")
	}
	ctx := context.Background()
	c, err := NewRedisCache(ctx, url)
	if err != nil {
		t.Fatalf("NewRedisCache error: %v", err)
	}
	defer c.Close()

	key := "buckaroo-test:" + t.Name()
	defer c.Delete(ctx, key)

	if err := c.Set(ctx, key, []byte("v"), time.Minute); err != nil {
		t.Fatal(err)
	}
	data, hit, err := c.Get(ctx, key)
	if err != nil || !hit || string(data) != "v" {
		t.Errorf("Get = %q, %v, %v", data, hit, err)
	}
}

func TestNewRedisCacheBadURL(t *testing.T) {
	if _, err := NewRedisCache(context.Background(), "not-a-url://"); err == nil {
		t.Error("NewRedisCache(bad url) error = nil")
	}
}

func TestHash(t *testing.T) {
	h1 := Hash([]byte("hello"))
	if h1 != Hash([]byte("hello")) {
		t.Error("Hash should be deterministic")
	}
	if h1 == Hash([]byte("world")) {
		t.Error("Different inputs should produce different hashes")
	}
	if len(h1) != 64 {
		t.Errorf("Hash length should be 64, got %d", len(h1))
	}
}

func TestDefaultKeyer(t *testing.T) {
	k := NewDefaultKeyer()

	if got := k.HTTPKey("github", "tags:o/p"); got != "http:github:tags:o/p" {
		t.Errorf("HTTPKey = %s", got)
	}
	if got := k.RecipeKey("github+o/p"); got != "recipe:v1:github+o/p" {
		t.Errorf("RecipeKey = %s", got)
	}
}

func TestScopedKeyer(t *testing.T) {
	scoped := NewScopedKeyer(NewDefaultKeyer(), "staging:")
	if got := scoped.HTTPKey("gitlab", "x"); got != "staging:http:gitlab:x" {
		t.Errorf("HTTPKey = %s", got)
	}
	if got := scoped.RecipeKey("github+o/p"); !strings.HasPrefix(got, "staging:recipe:") {
		t.Errorf("RecipeKey = %s", got)
	}

	if got := NewScopedKeyer(nil, "p:").HTTPKey("n", "k"); got != "p:http:n:k" {
		t.Errorf("nil inner HTTPKey = %s", got)
	}
}

func newArtifacts(t *testing.T) *Artifacts {
	t.Helper()
	a, err := NewArtifacts(afero.NewMemMapFs(), "/artifacts")
	if err != nil {
		t.Fatal(err)
	}
	return a
}

func writeString(s string) Filler {
	return func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, s)
		return err
	}
}

func TestArtifactsPath(t *testing.T) {
	a := newArtifacts(t)
	const url = "https://github.com/o/p/archive/abc.zip"

	p1 := a.Path(url, KindZip)
	if p1 != a.Path(url, KindZip) {
		t.Error("Path should be deterministic")
	}
	if !strings.HasSuffix(p1, ".zip") || !strings.HasPrefix(p1, "/artifacts/") {
		t.Errorf("Path = %s", p1)
	}
	if a.Path(url, KindFile) == p1 {
		t.Error("kind should be part of the path")
	}
	if a.Path(url+"x", KindZip) == p1 {
		t.Error("different locators should produce different paths")
	}
}

func TestArtifactsFetchIsIdempotent(t *testing.T) {
	ctx := context.Background()
	a := newArtifacts(t)
	var fills atomic.Int32
	fill := func(ctx context.Context, w io.Writer) error {
		fills.Add(1)
		return writeString("content")(ctx, w)
	}

	path, cached, err := a.Fetch(ctx, "u", KindFile, fill)
	if err != nil || cached {
		t.Fatalf("first Fetch = %s, %v, %v", path, cached, err)
	}
	again, cached, err := a.Fetch(ctx, "u", KindFile, fill)
	if err != nil || !cached || again != path {
		t.Fatalf("second Fetch = %s, %v, %v", again, cached, err)
	}
	if fills.Load() != 1 {
		t.Errorf("fills = %d, want 1", fills.Load())
	}

	data, _ := afero.ReadFile(a.Fs(), path)
	if string(data) != "content" {
		t.Errorf("content = %q", data)
	}
}

func TestArtifactsFetchCoalescesConcurrentCalls(t *testing.T) {
	ctx := context.Background()
	a := newArtifacts(t)

	var fills atomic.Int32
	release := make(chan struct{})
	fill := func(ctx context.Context, w io.Writer) error {
		fills.Add(1)
		<-release
		return writeString("content")(ctx, w)
	}

	const callers = 16
	var wg sync.WaitGroup
	paths := make([]string, callers)
	errs := make([]error, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			paths[i], _, errs[i] = a.Fetch(ctx, "u", KindZip, fill)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if fills.Load() != 1 {
		t.Errorf("fills = %d, want 1", fills.Load())
	}
	for i := range callers {
		if errs[i] != nil || paths[i] != a.Path("u", KindZip) {
			t.Errorf("caller %d: %s, %v", i, paths[i], errs[i])
		}
	}
}

func TestArtifactsFailedFillLeavesNothing(t *testing.T) {
	ctx := context.Background()
	a := newArtifacts(t)
	boom := errors.New("connection reset")

	_, _, err := a.Fetch(ctx, "u", KindZip, func(_ context.Context, w io.Writer) error {
		_, _ = io.WriteString(w, "trunc")
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("Fetch err = %v, want %v", err, boom)
	}
	if a.Exists("u", KindZip) {
		t.Error("failed fill left an artifact")
	}
	entries, _ := afero.ReadDir(a.Fs(), a.Dir())
	if len(entries) != 0 {
		t.Errorf("failed fill left %d files", len(entries))
	}

	// not poisoned
	path, _, err := a.Fetch(ctx, "u", KindZip, writeString("ok"))
	if err != nil {
		t.Fatalf("retry Fetch err = %v", err)
	}
	data, _ := afero.ReadFile(a.Fs(), path)
	if string(data) != "ok" {
		t.Errorf("content = %q", data)
	}
}

func TestArtifactsAbandonedFill(t *testing.T) {
	a := newArtifacts(t)

	fillCancelled := make(chan struct{})
	fill := func(ctx context.Context, _ io.Writer) error {
		<-ctx.Done()
		close(fillCancelled)
		return ctx.Err()
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, _, err := a.Fetch(ctx, "u", KindFile, fill)
		done <- err
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Fetch err = %v, want context.Canceled", err)
	}
	select {
	case <-fillCancelled:
	case <-time.After(time.Second):
		t.Fatal("fill was not cancelled after its only waiter left")
	}
}

func TestArtifactsFillSurvivesOneWaiterLeaving(t *testing.T) {
	a := newArtifacts(t)
	release := make(chan struct{})
	fill := func(ctx context.Context, w io.Writer) error {
		select {
		case <-release:
		case <-ctx.Done():
			return ctx.Err()
		}
		return writeString("x")(ctx, w)
	}

	leaverCtx, leave := context.WithCancel(context.Background())
	leaverDone := make(chan error, 1)
	go func() {
		_, _, err := a.Fetch(leaverCtx, "u", KindFile, fill)
		leaverDone <- err
	}()
	time.Sleep(10 * time.Millisecond)

	stayerDone := make(chan error, 1)
	go func() {
		_, _, err := a.Fetch(context.Background(), "u", KindFile, fill)
		stayerDone <- err
	}()
	time.Sleep(10 * time.Millisecond)

	leave()
	if err := <-leaverDone; !errors.Is(err, context.Canceled) {
		t.Errorf("leaver err = %v", err)
	}
	close(release)
	if err := <-stayerDone; err != nil {
		t.Errorf("stayer err = %v", err)
	}
	if !a.Exists("u", KindFile) {
		t.Error("artifact missing after shared fill")
	}
}

func TestArtifactsFetchAfterAbandonedFillStartsAfresh(t *testing.T) {
	a := newArtifacts(t)

	// The first fill is slow to notice cancellation, so it is still
	// running when the next caller arrives.
	stuck := make(chan struct{})
	var calls atomic.Int32
	fill := func(ctx context.Context, w io.Writer) error {
		if calls.Add(1) == 1 {
			<-stuck
			return ctx.Err()
		}
		return writeString("fresh")(ctx, w)
	}
	defer close(stuck)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, _, err := a.Fetch(ctx, "u", KindFile, fill)
		done <- err
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled Fetch err = %v", err)
	}

	path, cached, err := a.Fetch(context.Background(), "u", KindFile, fill)
	if err != nil || cached || path != a.Path("u", KindFile) {
		t.Fatalf("Fetch = %q, %v, %v", path, cached, err)
	}
	data, _ := afero.ReadFile(a.Fs(), path)
	if string(data) != "fresh" {
		t.Errorf("content = %q", data)
	}
	if calls.Load() != 2 {
		t.Errorf("fills = %d, want 2", calls.Load())
	}
}
