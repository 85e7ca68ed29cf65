// Marquee - Digital Signage Fleet Coordination
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package mediacache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/marquee/internal/apperr"
	"github.com/tomtom215/marquee/internal/logging"
	"github.com/tomtom215/marquee/internal/metrics"
	"github.com/tomtom215/marquee/internal/models"
)

const (
	filePrefix = "media_"
	tempPrefix = ".fetch-"
)

// Cache is a directory of downloaded media files.
type Cache struct {
	dir     string
	fetcher Fetcher
	index   Index
	group   singleflight.Group
}

// New creates a Cache rooted at dir, creating the directory if needed. A nil
// index keeps the index in memory.
func New(dir string, fetcher Fetcher, index Index) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create media cache directory: %w", err)
	}
	if index == nil {
		index = NewMemoryIndex()
	}
	return &Cache{dir: dir, fetcher: fetcher, index: index}, nil
}

// Dir returns the cache directory.
func (c *Cache) Dir() string {
	return c.dir
}

// Path returns where m is cached, whether or not it is present.
func (c *Cache) Path(m *models.Media) string {
	return filepath.Join(c.dir, filePrefix+m.ID+"."+m.Extension())
}

// Lookup reports whether m is cached, without network access.
func (c *Cache) Lookup(m *models.Media) (string, bool) {
	p := c.Path(m)
	if fileExists(p) {
		return p, true
	}
	return "", false
}

// Ensure returns the local path of m, downloading it first when it is not
// cached. Callers asking for the same id while a download is running wait for
// that download instead of starting another.
func (c *Cache) Ensure(ctx context.Context, m *models.Media) (string, error) {
	if m == nil || m.ID == "" {
		return "", apperr.E(apperr.ErrValidation, "media is required")
	}
	if p, ok := c.Lookup(m); ok {
		metrics.MediaCacheLookups.WithLabelValues("hit").Inc()
		return p, nil
	}

	// The download outlives any one caller; later callers may still be waiting on it.
	fetchCtx := context.WithoutCancel(ctx)
	v, err, _ := c.group.Do(m.ID, func() (interface{}, error) {
		return c.fetch(fetchCtx, m)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *Cache) fetch(ctx context.Context, m *models.Media) (string, error) {
	final := c.Path(m)
	if fileExists(final) {
		return final, nil
	}
	if m.URL == "" {
		metrics.MediaCacheLookups.WithLabelValues("failed").Inc()
		return "", apperr.E(apperr.ErrPartialFetch, "media %s has no URL", m.ID)
	}

	tmp, err := os.CreateTemp(c.dir, tempPrefix+m.ID+"-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	n, err := c.fetcher.Fetch(ctx, m.URL, tmp)
	if err == nil {
		err = tmp.Sync()
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Rename(tmpName, final)
	}
	if err != nil {
		_ = os.Remove(tmpName)
		metrics.MediaCacheLookups.WithLabelValues("failed").Inc()
		logging.Ctx(ctx).Warn().Err(err).Str("media_id", m.ID).Msg("Media fetch failed")
		return "", apperr.Wrap(apperr.ErrPartialFetch, err, "failed to fetch media %s", m.ID)
	}

	metrics.MediaCacheLookups.WithLabelValues("fetched").Inc()
	metrics.MediaCacheBytes.Add(float64(n))
	metrics.MediaCacheEntries.Inc()
	if err := c.index.Put(m.ID, final); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("media_id", m.ID).Msg("Failed to record cached media")
	}
	logging.Ctx(ctx).Debug().Str("media_id", m.ID).Int64("bytes", n).Msg("Media cached")
	return final, nil
}

// RebuildIndex returns media id -> path for every item whose file is already
// on disk. It never downloads. Index entries whose file has vanished are
// dropped.
func (c *Cache) RebuildIndex(items []models.PlaylistItem) map[string]string {
	out := make(map[string]string)
	for _, it := range items {
		if it.Media == nil {
			continue
		}
		if p, ok := c.Lookup(it.Media); ok {
			out[it.Media.ID] = p
		}
	}

	stored, err := c.index.All()
	if err != nil {
		logging.Warn().Err(err).Msg("Failed to read media cache index")
		return out
	}
	for id, p := range stored {
		if _, ok := out[id]; ok || fileExists(p) {
			continue
		}
		if err := c.index.Delete(id); err != nil {
			logging.Warn().Err(err).Str("media_id", id).Msg("Failed to drop stale cache index entry")
		}
		delete(stored, id)
	}
	for id, p := range out {
		if stored[id] != p {
			if err := c.index.Put(id, p); err != nil {
				logging.Warn().Err(err).Str("media_id", id).Msg("Failed to record cached media")
			}
			stored[id] = p
		}
	}
	metrics.MediaCacheEntries.Set(float64(len(stored)))
	return out
}

// Purge deletes every cached file and clears the index.
func (c *Cache) Purge() error {
	entries, err := os.ReadDir(c.dir)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to read media cache directory: %w", err)
	}
	var errs []error
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !(strings.HasPrefix(name, filePrefix) || strings.HasPrefix(name, tempPrefix)) {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	if err := c.index.Clear(); err != nil {
		errs = append(errs, err)
	}
	metrics.MediaCacheEntries.Set(0)
	return errors.Join(errs...)
}

func fileExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}
