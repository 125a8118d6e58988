// Copyright (c) 2026 The fe-php Authors.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package fephp

import (
	"bytes"
	"testing"
)

func TestNameValueLengthRoundTrip(t *testing.T) {
	for _, n := range []int{0, 1, 127, 128, 255, 65535, 1 << 20, 1<<31 - 1} {
		var buf bytes.Buffer
		encodeNameValueLength(&buf, n)
		got, consumed, ok := decodeNameValueLength(buf.Bytes())
		if !ok {
			t.Fatalf("decodeNameValueLength failed for n=%d", n)
		}
		if got != n {
			t.Errorf("n=%d round-tripped to %d", n, got)
		}
		if consumed != len(buf.Bytes()) {
			t.Errorf("n=%d: consumed %d, expected all %d bytes", n, consumed, len(buf.Bytes()))
		}
	}
}

func TestParamsRoundTrip(t *testing.T) {
	params := []HeaderField{
		{Name: "REQUEST_METHOD", Value: "GET"},
		{Name: "SCRIPT_FILENAME", Value: "/var/www/html/index.php"},
		{Name: "HTTP_USER_AGENT", Value: "go-test"},
	}
	encoded := encodeParams(params)
	decoded, ok := decodeParams(encoded)
	if !ok {
		t.Fatal("decodeParams failed")
	}
	if len(decoded) != len(params) {
		t.Fatalf("got %d params, want %d", len(decoded), len(params))
	}
	for i, p := range params {
		if decoded[i] != p {
			t.Errorf("param %d: got %+v, want %+v", i, decoded[i], p)
		}
	}
}

func TestBuildCGIParamsIncludesHTTPPrefixedHeaders(t *testing.T) {
	req := &Request{
		Method: "GET",
		Path:   "/index.php",
		Query:  "a=1",
		Headers: Header{
			{Name: "Content-Type", Value: "application/json"},
			{Name: "X-Custom-Header", Value: "v"},
		},
		Body:       []byte("{}"),
		RemoteAddr: "10.0.0.1:1234",
	}
	params := buildCGIParams(req, "/var/www/html/index.php", "/index.php", "/var/www/html", "example.com", 80)

	find := func(name string) (string, bool) {
		for _, p := range params {
			if p.Name == name {
				return p.Value, true
			}
		}
		return "", false
	}

	if v, ok := find("REQUEST_URI"); !ok || v != "/index.php?a=1" {
		t.Errorf("REQUEST_URI = %q", v)
	}
	if v, ok := find("CONTENT_TYPE"); !ok || v != "application/json" {
		t.Errorf("CONTENT_TYPE = %q", v)
	}
	if v, ok := find("HTTP_X_CUSTOM_HEADER"); !ok || v != "v" {
		t.Errorf("HTTP_X_CUSTOM_HEADER = %q", v)
	}
	if _, ok := find("HTTP_CONTENT_TYPE"); ok {
		t.Error("HTTP_CONTENT_TYPE should not be duplicated")
	}
	if v, ok := find("CONTENT_LENGTH"); !ok || v != "2" {
		t.Errorf("CONTENT_LENGTH = %q", v)
	}
}

func TestParseCGIResponseWithStatusLine(t *testing.T) {
	raw := "Status: 404 Not Found\r\nContent-Type: text/plain\r\n\r\nnope"
	resp := parseCGIResponse([]byte(raw))
	if resp.status != 404 {
		t.Errorf("status = %d, want 404", resp.status)
	}
	if ct, _ := resp.headers.Get("Content-Type"); ct != "text/plain" {
		t.Errorf("Content-Type = %q", ct)
	}
	if string(resp.body) != "nope" {
		t.Errorf("body = %q", resp.body)
	}
}

func TestParseCGIResponseDefaultsStatusAndContentType(t *testing.T) {
	raw := "X-Foo: bar\n\nhello"
	resp := parseCGIResponse([]byte(raw))
	if resp.status != 200 {
		t.Errorf("status = %d, want 200", resp.status)
	}
	if ct, _ := resp.headers.Get("Content-Type"); ct != "text/html; charset=UTF-8" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestParseCGIResponseNoHeaderBoundaryIsAllBody(t *testing.T) {
	resp := parseCGIResponse([]byte("just some bytes, no header block"))
	if string(resp.body) != "just some bytes, no header block" {
		t.Errorf("body = %q", resp.body)
	}
}
