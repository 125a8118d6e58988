// Copyright (c) 2026 The fe-php Authors.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package fephp

import (
	"os"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// staticFileEntry is a cached stat result for one resolved file path: the
// mtime/size pair that feeds both ETag and Last-Modified, plus the wall
// clock time the entry was populated.
//
// This is a supplemented feature: the spec's static backend (§4.3) is
// silent on caching stat results, but the teacher's static handlet
// (hemi/web_handlet_static.go) keeps an Fcache component for exactly this
// reason — avoiding a stat() on every request for hot files. golang-lru/v2
// is the bounded-cache library already present in the retrieval pack
// (dapr-dapr's indirect requirement on hashicorp/golang-lru/v2).
type staticFileEntry struct {
	modTime  time.Time
	size     int64
	etag     string
	cachedAt time.Time
}

// staticFcache wraps an LRU of path -> staticFileEntry. A cached entry is
// trusted for cacheTTL before being revalidated with a fresh os.Stat; this
// never changes the ETag/Last-Modified semantics of spec §4.3 (they are
// still a pure function of mtime and size as observed by the most recent
// stat), it only bounds how often that stat happens for hot files.
type staticFcache struct {
	mu       sync.Mutex
	entries  *lru.Cache[string, staticFileEntry]
	cacheTTL time.Duration
}

func newStaticFcache(size int, ttl time.Duration) *staticFcache {
	c, err := lru.New[string, staticFileEntry](size)
	if err != nil {
		// Only returns an error for size <= 0; NewStaticBackend clamps size to at least 1.
		panic("fephp: static fcache: " + err.Error())
	}
	return &staticFcache{entries: c, cacheTTL: ttl}
}

// stat returns (etag, modTime, size) for path, using the cache when fresh
// and falling back to os.Stat otherwise.
func (c *staticFcache) stat(path string) (etag string, modTime time.Time, size int64, err error) {
	c.mu.Lock()
	if e, ok := c.entries.Get(path); ok && time.Since(e.cachedAt) < c.cacheTTL {
		c.mu.Unlock()
		return e.etag, e.modTime, e.size, nil
	}
	c.mu.Unlock()

	info, statErr := os.Stat(path)
	if statErr != nil {
		return "", time.Time{}, 0, statErr
	}

	entry := staticFileEntry{
		modTime:  info.ModTime(),
		size:     info.Size(),
		etag:     computeETag(info.ModTime(), info.Size()),
		cachedAt: time.Now(),
	}

	c.mu.Lock()
	c.entries.Add(path, entry)
	c.mu.Unlock()

	return entry.etag, entry.modTime, entry.size, nil
}
