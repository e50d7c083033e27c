package feed

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sofa-check/sofa-check/internal/cache"
)

const sampleFeed = `{"OSVersions":[{"OSVersion":"15.0"}],"Models":{"Macmini9,1":{"SupportedOS":["15.0"]}}}`

func TestFetchStoresBodyAndValidator(t *testing.T) {
	var sawConditional bool
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-None-Match") != "" {
			sawConditional = true
		}
		if r.Header.Get("User-Agent") != "sofa-check/test" {
			t.Errorf("unexpected user agent: %s", r.Header.Get("User-Agent"))
		}
		w.Header().Set("Etag", `"rev-1"`)
		_, _ = w.Write([]byte(sampleFeed))
	}))
	defer upstream.Close()

	store := newTestStore(t)
	fetcher := newTestFetcher(t, store, upstream.URL)

	result := fetcher.Fetch(context.Background())
	if result.Source != SourceNetwork {
		t.Fatalf("expected network source, got %s", result.Source)
	}
	if string(result.Body) != sampleFeed {
		t.Fatalf("body mismatch: %s", string(result.Body))
	}
	if sawConditional {
		t.Fatalf("first fetch must not carry If-None-Match")
	}

	cached, err := store.Read(context.Background(), cache.ArtifactBody)
	if err != nil {
		t.Fatalf("body should be cached: %v", err)
	}
	if string(cached) != sampleFeed {
		t.Fatalf("cached body mismatch")
	}
	validator, err := store.Read(context.Background(), cache.ArtifactValidator)
	if err != nil {
		t.Fatalf("validator should be cached: %v", err)
	}
	if string(validator) != `"rev-1"` {
		t.Fatalf("validator mismatch: %s", string(validator))
	}
}

func TestFetchNotModifiedReusesCacheWithoutRewrite(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("If-None-Match") != `"rev-1"` {
			t.Errorf("expected conditional request, got %q", r.Header.Get("If-None-Match"))
		}
		w.WriteHeader(http.StatusNotModified)
	}))
	defer upstream.Close()

	store := newTestStore(t)
	seedCache(t, store, sampleFeed, `"rev-1"`)

	before, err := store.Stat(context.Background(), cache.ArtifactBody)
	if err != nil {
		t.Fatalf("stat error: %v", err)
	}

	fetcher := newTestFetcher(t, store, upstream.URL)
	result := fetcher.Fetch(context.Background())
	if result.Source != SourceNotModified {
		t.Fatalf("expected not_modified source, got %s", result.Source)
	}
	if string(result.Body) != sampleFeed {
		t.Fatalf("304 must return cached body byte-for-byte")
	}

	after, err := store.Stat(context.Background(), cache.ArtifactBody)
	if err != nil {
		t.Fatalf("stat error: %v", err)
	}
	if !after.ModTime.Equal(before.ModTime) {
		t.Fatalf("304 must not rewrite the cached body")
	}
}

func TestFetchTransportFailureFallsBackToCache(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	upstream.Close() // 直接关闭，制造连接失败

	store := newTestStore(t)
	seedCache(t, store, sampleFeed, `"rev-1"`)

	fetcher := newTestFetcher(t, store, upstream.URL)
	result := fetcher.Fetch(context.Background())
	if result.Source != SourceStale {
		t.Fatalf("expected stale fallback, got %s", result.Source)
	}
	if string(result.Body) != sampleFeed {
		t.Fatalf("stale body mismatch")
	}
}

func TestFetchTransportFailureWithoutCacheReturnsEmpty(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	upstream.Close()

	store := newTestStore(t)
	fetcher := newTestFetcher(t, store, upstream.URL)

	result := fetcher.Fetch(context.Background())
	if result.Source != SourceNone {
		t.Fatalf("expected empty result, got %s", result.Source)
	}
	if !result.Empty() {
		t.Fatalf("body should be empty without network and cache")
	}
}

func TestFetchServerErrorFallsBackToCache(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer upstream.Close()

	store := newTestStore(t)
	seedCache(t, store, sampleFeed, "")

	fetcher := newTestFetcher(t, store, upstream.URL)
	result := fetcher.Fetch(context.Background())
	if result.Source != SourceStale {
		t.Fatalf("expected stale fallback on 5xx, got %s", result.Source)
	}
}

func TestFetchHonorsContextDeadline(t *testing.T) {
	release := make(chan struct{})
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer func() {
		close(release)
		upstream.Close()
	}()

	store := newTestStore(t)
	seedCache(t, store, sampleFeed, "")

	fetcher := newTestFetcher(t, store, upstream.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	result := fetcher.Fetch(ctx)
	if result.Source != SourceStale {
		t.Fatalf("deadline expiry should take the stale path, got %s", result.Source)
	}
}

func TestFetchUpdatesValidatorWhenChanged(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Etag", `"rev-2"`)
		_, _ = w.Write([]byte(sampleFeed))
	}))
	defer upstream.Close()

	store := newTestStore(t)
	seedCache(t, store, sampleFeed, `"rev-1"`)

	fetcher := newTestFetcher(t, store, upstream.URL)
	if result := fetcher.Fetch(context.Background()); result.Source != SourceNetwork {
		t.Fatalf("expected network source, got %s", result.Source)
	}

	validator, err := store.Read(context.Background(), cache.ArtifactValidator)
	if err != nil {
		t.Fatalf("validator read error: %v", err)
	}
	if string(validator) != `"rev-2"` {
		t.Fatalf("validator should be replaced, got %s", string(validator))
	}
}

func newTestFetcher(t *testing.T, store cache.Store, url string) *Fetcher {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewFetcher(NewClient(2*time.Second), store, logger, url, "sofa-check/test")
}

func newTestStore(t *testing.T) cache.Store {
	t.Helper()
	store, err := cache.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("store error: %v", err)
	}
	return store
}

func seedCache(t *testing.T, store cache.Store, body, validator string) {
	t.Helper()
	if err := store.Write(context.Background(), cache.ArtifactBody, []byte(body)); err != nil {
		t.Fatalf("seed body error: %v", err)
	}
	if validator != "" {
		if err := store.Write(context.Background(), cache.ArtifactValidator, []byte(validator)); err != nil {
			t.Fatalf("seed validator error: %v", err)
		}
	}
}
