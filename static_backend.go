// Copyright (c) 2026 The fe-php Authors.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package fephp

import (
	"encoding/binary"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
)

// StaticBackend serves files under a configured root directory (spec
// §4.3). It is purely I/O: no internal concurrency beyond whatever the
// caller's goroutine/executor already provides.
type StaticBackend struct {
	root       string
	indexFiles []string
	fcache     *staticFcache
}

// StaticConfig configures a StaticBackend.
type StaticConfig struct {
	Root       string
	IndexFiles []string  // tried in order when the resolved path is a directory
	CacheSize  int       // number of stat entries to keep; values <= 0 keep a single entry
	CacheTTL   time.Duration
}

// NewStaticBackend builds a StaticBackend. Root is canonicalized once at
// construction so every request's symlink-safe containment check compares
// against a stable, absolute prefix.
func NewStaticBackend(cfg StaticConfig) (*StaticBackend, error) {
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, err
	}
	root, err = filepath.EvalSymlinks(root)
	if err != nil {
		return nil, err
	}
	index := cfg.IndexFiles
	if len(index) == 0 {
		index = []string{"index.html"}
	}
	size := cfg.CacheSize
	if size <= 0 {
		size = 1
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 2 * time.Second
	}
	return &StaticBackend{root: root, indexFiles: index, fcache: newStaticFcache(size, ttl)}, nil
}

// computeETag is a pure function of (mtime, size): equal inputs always
// produce equal tags (spec §8 invariant 7). The pair is packed into 16
// bytes (8 for nanosecond mtime, 8 for size) and hashed with xxhash/v2 —
// the collision-resistant, non-cryptographic hash already present in the
// retrieval pack's dependency tree (dapr-dapr) and a better fit here than
// a cryptographic hash, since this validator never needs to resist
// deliberate forgery, only accidental collision.
func computeETag(modTime time.Time, size int64) string {
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[0:8], uint64(modTime.UnixNano()))
	binary.BigEndian.PutUint64(buf[8:16], uint64(size))
	sum := xxhash.Sum64(buf[:])
	return `"` + strconv.FormatUint(sum, 16) + `"`
}

// resolvePath implements spec §4.3 steps 1-5: reject traversal lexically,
// join to root, canonicalize, require root as a path-prefix of the
// canonical result (the symlink-safe check), then resolve directories via
// indexFiles.
func (s *StaticBackend) resolvePath(urlPath string) (string, error) {
	if strings.Contains(urlPath, "\x00") {
		return "", newError(KindForbidden, "path contains NUL byte", nil)
	}
	if strings.Contains(urlPath, "\\") {
		return "", newError(KindForbidden, "path contains backslash", nil)
	}
	for _, seg := range strings.Split(urlPath, "/") {
		if seg == ".." {
			return "", newError(KindForbidden, "path escapes root", nil)
		}
	}

	joined := filepath.Join(s.root, filepath.FromSlash(urlPath))

	resolved, err := filepath.EvalSymlinks(joined)
	if err != nil {
		if os.IsNotExist(err) {
			return "", newError(KindNotFound, "not found", nil)
		}
		return "", newError(KindInternalError, "stat failed", err)
	}

	if !isWithinRoot(resolved, s.root) {
		return "", newError(KindForbidden, "path escapes root", nil)
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return "", newError(KindNotFound, "not found", nil)
	}
	if info.IsDir() {
		for _, idx := range s.indexFiles {
			candidate := filepath.Join(resolved, idx)
			if fi, err := os.Stat(candidate); err == nil && !fi.IsDir() {
				if !isWithinRoot(candidate, s.root) {
					return "", newError(KindForbidden, "path escapes root", nil)
				}
				return candidate, nil
			}
		}
		return "", newError(KindNotFound, "no index file", nil)
	}

	return resolved, nil
}

func isWithinRoot(path, root string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Handle implements Backend.
func (s *StaticBackend) Handle(req *Request) (*Response, error) {
	if req.Method != http.MethodGet && req.Method != http.MethodHead {
		resp := &Response{Status: 405, Body: []byte("Method Not Allowed")}
		resp.Headers.Add("Allow", "GET, HEAD")
		resp.Headers.Add("Content-Type", "text/plain; charset=utf-8")
		return resp, nil
	}

	path, err := s.resolvePath(req.Path)
	if err != nil {
		return nil, err
	}

	etag, modTime, size, err := s.fcache.stat(path)
	if err != nil {
		return nil, newError(KindInternalError, "stat failed", err)
	}

	if resp := s.evalPreconditions(req, etag, modTime); resp != nil {
		return resp, nil
	}

	contentType := staticGuessMimeType(path)
	cacheControl := staticCacheControl(path)

	if rangeHeader, ok := req.Headers.Get("Range"); ok {
		if ifRange, has := req.Headers.Get("If-Range"); !has || ifRange == etag {
			br, outcome := parseRange(rangeHeader, size)
			switch outcome {
			case rangeUnsatisfiable:
				resp := &Response{Status: 416}
				resp.Headers.Add("Content-Range", "bytes */"+strconv.FormatInt(size, 10))
				return resp, nil
			case rangeSatisfiable:
				return s.sendRange(path, br, size, contentType, req.Method == http.MethodHead)
			}
		}
	}

	return s.sendFull(path, size, etag, modTime, contentType, cacheControl, req.Method == http.MethodHead)
}

func (s *StaticBackend) evalPreconditions(req *Request, etag string, modTime time.Time) *Response {
	if inm, ok := req.Headers.Get("If-None-Match"); ok {
		for _, candidate := range strings.Split(inm, ",") {
			if strings.TrimSpace(candidate) == etag {
				resp := &Response{Status: 304}
				resp.Headers.Add("ETag", etag)
				return resp
			}
		}
		return nil
	}
	if ims, ok := req.Headers.Get("If-Modified-Since"); ok {
		if t, err := http.ParseTime(ims); err == nil {
			if !modTime.Truncate(time.Second).After(t) {
				resp := &Response{Status: 304}
				resp.Headers.Add("ETag", etag)
				return resp
			}
		}
	}
	return nil
}

func (s *StaticBackend) sendFull(path string, size int64, etag string, modTime time.Time, contentType, cacheControl string, headOnly bool) (*Response, error) {
	resp := &Response{Status: 200}
	resp.Headers.Add("Content-Type", contentType)
	resp.Headers.Add("Content-Length", strconv.FormatInt(size, 10))
	resp.Headers.Add("Last-Modified", modTime.UTC().Format(http.TimeFormat))
	resp.Headers.Add("ETag", etag)
	resp.Headers.Add("Accept-Ranges", "bytes")
	resp.Headers.Add("Cache-Control", cacheControl)

	if headOnly {
		return resp, nil
	}

	body, err := os.ReadFile(path)
	if err != nil {
		return nil, newError(KindInternalError, "read failed", err)
	}
	resp.Body = body
	return resp, nil
}

func (s *StaticBackend) sendRange(path string, br byteRange, size int64, contentType string, headOnly bool) (*Response, error) {
	resp := &Response{Status: 206}
	resp.Headers.Add("Content-Type", contentType)
	resp.Headers.Add("Content-Range", "bytes "+strconv.FormatInt(br.start, 10)+"-"+strconv.FormatInt(br.end, 10)+"/"+strconv.FormatInt(size, 10))
	resp.Headers.Add("Content-Length", strconv.FormatInt(br.length(), 10))
	resp.Headers.Add("Accept-Ranges", "bytes")

	if headOnly {
		return resp, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, newError(KindInternalError, "open failed", err)
	}
	defer f.Close()

	buf := make([]byte, br.length())
	if _, err := f.ReadAt(buf, br.start); err != nil {
		return nil, newError(KindInternalError, "read failed", err)
	}
	resp.Body = buf
	return resp, nil
}
