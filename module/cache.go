package module

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/klauspost/readahead"
	"github.com/zeebo/xxh3"
	"golang.org/x/sync/singleflight"

	"github.com/ardnew/zero/log"
)

// DefaultTimeout bounds a single remote fetch.
const DefaultTimeout = 30 * time.Second

// Cache holds the content of every module address fetched during a run.
//
// Only remote content is persisted. The JSON cache file maps a URL to its
// text, so a URL is downloaded at most once across runs. Local paths are
// addresses too but never enter the file: they are read once per run, so
// edits to local modules take effect on the next run. Concurrent fetches of
// the same address share one read.
type Cache struct {
	group   singleflight.Group
	logger  log.Logger
	client  *http.Client
	entries map[string]string // persisted remote content
	run     map[string]string // content fetched during this run
	path    string
	timeout time.Duration
	written uint64 // hash of the last file content written or loaded
	mu      sync.Mutex
}

// NewCache returns an empty cache persisted at path. An empty path keeps the
// cache in memory only.
func NewCache(path string, opts ...Option) *Cache {
	cfg := makeConfig(opts...)

	return &Cache{
		logger:  cfg.logger,
		client:  cfg.client,
		timeout: cfg.timeout,
		path:    path,
		entries: make(map[string]string),
		run:     make(map[string]string),
	}
}

// Path returns the file the cache is persisted to.
func (c *Cache) Path() string { return c.path }

// Load reads the persisted cache file. A missing file is not an error.
func (c *Cache) Load(ctx context.Context) error {
	if c.path == "" {
		return nil
	}

	data, err := os.ReadFile(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	if err != nil {
		return ErrCacheLoad.Wrap(err).With(slog.String("path", c.path))
	}

	entries := make(map[string]string)
	if err := json.Unmarshal(data, &entries); err != nil {
		return ErrCacheLoad.Wrap(err).With(slog.String("path", c.path))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for addr, text := range entries {
		c.entries[addr] = text
	}

	c.written = xxh3.Hash(data)

	c.logger.DebugContext(ctx, "loaded module cache",
		slog.String("path", c.path),
		slog.Int("entries", len(entries)),
	)

	return nil
}

// Flush writes the remote entries to the cache file, unless they are
// unchanged since the last load or flush.
func (c *Cache) Flush(ctx context.Context) error {
	if c.path == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		return ErrCacheFlush.Wrap(err)
	}

	hash := xxh3.Hash(data)
	if hash == c.written {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0o700); err != nil {
		return ErrCacheFlush.Wrap(err).With(slog.String("path", c.path))
	}

	tmp, err := os.CreateTemp(filepath.Dir(c.path), filepath.Base(c.path)+".*")
	if err != nil {
		return ErrCacheFlush.Wrap(err).With(slog.String("path", c.path))
	}

	_, err = tmp.Write(data)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}

	if err == nil {
		err = os.Rename(tmp.Name(), c.path)
	}

	if err != nil {
		_ = os.Remove(tmp.Name())

		return ErrCacheFlush.Wrap(err).With(slog.String("path", c.path))
	}

	c.written = hash

	c.logger.DebugContext(ctx, "wrote module cache",
		slog.String("path", c.path),
		slog.Int("entries", len(c.entries)),
	)

	return nil
}

// Len returns the number of persisted entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

func (c *Cache) lookup(address string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if text, ok := c.run[address]; ok {
		return text, true
	}

	text, ok := c.entries[address]

	return text, ok
}

// Fetch returns the content at address, reading it at most once.
func (c *Cache) Fetch(ctx context.Context, address string) (string, error) {
	if text, ok := c.lookup(address); ok {
		return text, nil
	}

	v, err, shared := c.group.Do(address, func() (any, error) {
		if text, ok := c.lookup(address); ok {
			return text, nil
		}

		remote := IsURL(address)

		var (
			text string
			err  error
		)

		if remote {
			text, err = c.download(ctx, address)
		} else {
			text, err = readFile(address)
		}

		if err != nil {
			return "", err
		}

		c.mu.Lock()
		c.run[address] = text

		if remote {
			c.entries[address] = text
		}
		c.mu.Unlock()

		c.logger.DebugContext(ctx, "fetched module",
			slog.String("address", address),
			slog.Int("bytes", len(text)),
			slog.String("hash", strconv.FormatUint(xxh3.HashString(text), 16)),
		)

		if remote {
			return text, c.Flush(ctx)
		}

		return text, nil
	})

	if shared {
		c.logger.TraceContext(ctx, "coalesced fetch", slog.String("address", address))
	}

	text, _ := v.(string)

	return text, err
}

func readFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", ErrFetch.Wrap(err).With(slog.String("address", path))
	}
	defer f.Close()

	ra := readahead.NewReader(f)
	defer ra.Close()

	data, err := io.ReadAll(ra)
	if err != nil {
		return "", ErrFetch.Wrap(err).With(slog.String("address", path))
	}

	return string(data), nil
}

func (c *Cache) download(ctx context.Context, address string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, address, nil)
	if err != nil {
		return "", ErrFetch.Wrap(err).With(slog.String("address", address))
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", ErrFetch.Wrap(err).With(slog.String("address", address))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", ErrFetch.Wrap(errors.New(resp.Status)).With(
			slog.String("address", address),
			slog.Int("status", resp.StatusCode),
		)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", ErrFetch.Wrap(err).With(slog.String("address", address))
	}

	return string(data), nil
}
