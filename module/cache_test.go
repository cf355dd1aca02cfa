package module

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ardnew/zero/lang"
)

// server serves files (path → content) and counts requests per path.
func server(t *testing.T, files map[string]string) (*httptest.Server, *sync.Map) {
	t.Helper()

	var hits sync.Map

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n, _ := hits.LoadOrStore(r.URL.Path, new(atomic.Int64))
		n.(*atomic.Int64).Add(1)

		content, ok := files[r.URL.Path]
		if !ok {
			http.NotFound(w, r)

			return
		}

		time.Sleep(10 * time.Millisecond)

		_, _ = w.Write([]byte(content))
	}))
	t.Cleanup(srv.Close)

	return srv, &hits
}

func hitCount(hits *sync.Map, path string) int64 {
	n, ok := hits.Load(path)
	if !ok {
		return 0
	}

	return n.(*atomic.Int64).Load()
}

func TestCache_RemoteModules(t *testing.T) {
	srv, hits := server(t, map[string]string{
		"/app/main.0": "lib#../lib/lib.0\nu#./util.0\nlib.n + u.one",
		"/app/util.0": "one = 1",
		"/lib/lib.0":  "n = 40 + 1",
	})

	path := filepath.Join(t.TempDir(), "cache", "modules.json")

	v, err := New(NewCache(path)).Value(t.Context(), srv.URL+"/app/main.0")
	if err != nil {
		t.Fatalf("Value: %s", lang.Report(err))
	}

	if v != 42.0 {
		t.Errorf("value = %v, want 42", v)
	}

	if got := hitCount(hits, "/lib/lib.0"); got != 1 {
		t.Errorf("lib.0 fetched %d times, want 1", got)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("cache file: %v", err)
	}

	var entries map[string]string
	if err := json.Unmarshal(data, &entries); err != nil {
		t.Fatalf("cache file: %v", err)
	}

	if len(entries) != 3 || entries[srv.URL+"/lib/lib.0"] != "n = 40 + 1" {
		t.Errorf("cache entries = %v", entries)
	}
}

func TestCache_RemoteNotFound(t *testing.T) {
	srv, _ := server(t, map[string]string{"/main.0": "x#./missing.0\nx"})

	_, err := New(nil).Value(t.Context(), srv.URL+"/main.0")

	var se *lang.SemanticError
	if !errors.As(err, &se) || se.Kind != lang.ModuleNotLoaded {
		t.Fatalf("error = %v, want module not loaded", err)
	}

	if !errors.Is(err, ErrFetch) {
		t.Errorf("error = %v, want ErrFetch", err)
	}
}

func TestCache_PersistsAcrossRuns(t *testing.T) {
	srv, hits := server(t, map[string]string{
		"/main.0": "lib#./lib.0\nlib.n + 1",
		"/lib.0":  "n = 41",
	})

	path := filepath.Join(t.TempDir(), "modules.json")

	first := NewCache(path)
	if err := first.Load(t.Context()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	v, err := New(first).Value(t.Context(), srv.URL+"/main.0")
	if err != nil {
		t.Fatalf("Value: %s", lang.Report(err))
	}

	if v != 42.0 {
		t.Errorf("value = %v, want 42", v)
	}

	if err := first.Flush(t.Context()); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	url := srv.URL
	srv.Close()

	second := NewCache(path)
	if err := second.Load(t.Context()); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if second.Len() != 2 {
		t.Errorf("Len() = %d, want 2", second.Len())
	}

	v, err = New(second).Value(t.Context(), url+"/main.0")
	if err != nil {
		t.Fatalf("Value from cache: %s", lang.Report(err))
	}

	if v != 42.0 {
		t.Errorf("value = %v, want 42", v)
	}

	for _, p := range []string{"/main.0", "/lib.0"} {
		if got := hitCount(hits, p); got != 1 {
			t.Errorf("%s fetched %d times, want 1", p, got)
		}
	}
}

func TestCache_CoalescesFetches(t *testing.T) {
	srv, hits := server(t, map[string]string{"/m.0": "n = 1"})

	cache := NewCache("")

	var wg sync.WaitGroup

	texts := make([]string, 16)
	errs := make([]error, len(texts))

	for i := range texts {
		wg.Go(func() {
			texts[i], errs[i] = cache.Fetch(t.Context(), srv.URL+"/m.0")
		})
	}

	wg.Wait()

	for i := range texts {
		if errs[i] != nil || texts[i] != "n = 1" {
			t.Errorf("Fetch #%d = %q, %v", i, texts[i], errs[i])
		}
	}

	if got := hitCount(hits, "/m.0"); got != 1 {
		t.Errorf("fetched %d times, want 1", got)
	}
}

func TestCache_LocalFilesNotPersisted(t *testing.T) {
	dir := tree(t, map[string]string{"m.0": "n = 1"})
	path := filepath.Join(dir, "modules.json")

	cache := NewCache(path)

	if _, err := cache.Fetch(t.Context(), filepath.Join(dir, "m.0")); err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if err := cache.Flush(t.Context()); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	if cache.Len() != 0 {
		t.Errorf("Len() = %d, want 0", cache.Len())
	}
}

func TestCache_LoadInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "modules.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	if err := NewCache(path).Load(t.Context()); !errors.Is(err, ErrCacheLoad) {
		t.Errorf("Load() = %v, want ErrCacheLoad", err)
	}
}
