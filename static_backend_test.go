// Copyright (c) 2026 The fe-php Authors.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package fephp

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestStaticBackend(t *testing.T) (*StaticBackend, string) {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>hi</html>"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "style.css"), []byte("body{color:red}"), 0o644); err != nil {
		t.Fatal(err)
	}
	sb, err := NewStaticBackend(StaticConfig{Root: dir, CacheTTL: time.Minute})
	if err != nil {
		t.Fatalf("NewStaticBackend: %v", err)
	}
	return sb, dir
}

func TestStaticBackendServesFile(t *testing.T) {
	sb, _ := newTestStaticBackend(t)
	resp, err := sb.Handle(&Request{Method: http.MethodGet, Path: "/style.css"})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if resp.Status != 200 || string(resp.Body) != "body{color:red}" {
		t.Errorf("status=%d body=%q", resp.Status, resp.Body)
	}
	if ct, _ := resp.Header("Content-Type"); ct != "text/css; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestStaticBackendIndexFallback(t *testing.T) {
	sb, _ := newTestStaticBackend(t)
	resp, err := sb.Handle(&Request{Method: http.MethodGet, Path: "/"})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if string(resp.Body) != "<html>hi</html>" {
		t.Errorf("body = %q", resp.Body)
	}
}

func TestStaticBackendRejectsTraversal(t *testing.T) {
	sb, _ := newTestStaticBackend(t)
	_, err := sb.Handle(&Request{Method: http.MethodGet, Path: "/../etc/passwd"})
	var be *BackendError
	if !errors.As(err, &be) || be.Kind != KindForbidden {
		t.Errorf("err = %v, want KindForbidden", err)
	}
}

func TestStaticBackendNotFound(t *testing.T) {
	sb, _ := newTestStaticBackend(t)
	_, err := sb.Handle(&Request{Method: http.MethodGet, Path: "/nope.css"})
	var be *BackendError
	if !errors.As(err, &be) || be.Kind != KindNotFound {
		t.Errorf("err = %v, want KindNotFound", err)
	}
}

func TestStaticBackendConditionalGet(t *testing.T) {
	sb, _ := newTestStaticBackend(t)
	first, err := sb.Handle(&Request{Method: http.MethodGet, Path: "/style.css"})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	etag, _ := first.Header("ETag")

	second, err := sb.Handle(&Request{
		Method:  http.MethodGet,
		Path:    "/style.css",
		Headers: Header{{Name: "If-None-Match", Value: etag}},
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if second.Status != 304 {
		t.Errorf("status = %d, want 304", second.Status)
	}
}

func TestStaticBackendRange(t *testing.T) {
	sb, _ := newTestStaticBackend(t)
	resp, err := sb.Handle(&Request{
		Method:  http.MethodGet,
		Path:    "/style.css",
		Headers: Header{{Name: "Range", Value: "bytes=0-3"}},
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if resp.Status != 206 || string(resp.Body) != "body" {
		t.Errorf("status=%d body=%q", resp.Status, resp.Body)
	}
}

func TestStaticBackendRangeUnsatisfiable(t *testing.T) {
	sb, _ := newTestStaticBackend(t)
	resp, err := sb.Handle(&Request{
		Method:  http.MethodGet,
		Path:    "/style.css",
		Headers: Header{{Name: "Range", Value: "bytes=9999-10000"}},
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if resp.Status != 416 {
		t.Errorf("status = %d, want 416", resp.Status)
	}
}

func TestComputeETagIsPureFunctionOfMtimeAndSize(t *testing.T) {
	mt := time.Unix(1700000000, 0)
	a := computeETag(mt, 123)
	b := computeETag(mt, 123)
	c := computeETag(mt, 124)
	if a != b {
		t.Errorf("equal inputs produced different etags: %q vs %q", a, b)
	}
	if a == c {
		t.Errorf("different sizes produced the same etag: %q", a)
	}
}
