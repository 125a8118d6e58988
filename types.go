// Copyright (c) 2026 The fe-php Authors.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Package fephp implements the core of a hybrid PHP application server:
// a priority-ordered router dispatching to an embedded PHP worker pool, a
// FastCGI proxy, or a static file responder.
package fephp

import "strings"

// Request is a fully-parsed HTTP request handed to the core by the HTTP
// layer. The HTTP layer owns TLS, HTTP/1.1 and HTTP/2 framing, and body
// size enforcement (Body is already bounded by max_body_size by the time
// it reaches here).
type Request struct {
	Method     string
	Path       string // URL-decoded, NOT normalized: no "//" collapsing beyond what the HTTP parser already did
	Query      string
	Headers    Header
	Body       []byte
	RemoteAddr string
	Scheme     string // "http" or "https"
}

// Header is an ordered list of name/value pairs. Lookups are
// case-insensitive on name; insertion order is preserved for iteration
// (CGI/FastCGI param building needs a stable, repeatable order).
type Header []HeaderField

// HeaderField is one name/value pair of a Header.
type HeaderField struct {
	Name  string
	Value string
}

// Get returns the first value for name (case-insensitive), and whether it
// was present at all.
func (h Header) Get(name string) (string, bool) {
	for _, f := range h {
		if strings.EqualFold(f.Name, name) {
			return f.Value, true
		}
	}
	return "", false
}

// Add appends a header field, preserving insertion order.
func (h *Header) Add(name, value string) {
	*h = append(*h, HeaderField{Name: name, Value: value})
}

// Response is what a Backend produces for the Dispatcher. Status must be
// set before the body is considered committed; Content-Length and
// Transfer-Encoding are never both present in Headers (backends build one
// or the other, never both).
type Response struct {
	Status  int
	Headers Header
	Body    []byte
}

// Header is a convenience accessor mirroring Request.Headers.Get.
func (r *Response) Header(name string) (string, bool) {
	return r.Headers.Get(name)
}

// SetHeader replaces (or adds) a header by name, case-insensitively.
func (r *Response) SetHeader(name, value string) {
	for i := range r.Headers {
		if strings.EqualFold(r.Headers[i].Name, name) {
			r.Headers[i].Value = value
			return
		}
	}
	r.Headers.Add(name, value)
}

// BackendID identifies one of the three backends a RoutingRule can select.
type BackendID string

const (
	BackendEmbedded BackendID = "embedded"
	BackendFastCGI  BackendID = "fastcgi"
	BackendStatic   BackendID = "static"
)

// Backend is the uniform contract all three backends expose (spec §4.9).
// The Dispatcher treats all three identically.
type Backend interface {
	Handle(req *Request) (*Response, error)
}
