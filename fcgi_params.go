// Copyright (c) 2026 The fe-php Authors.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package fephp

import (
	"bytes"
	"encoding/binary"
	"strconv"
	"strings"
)

// encodeNameValueLength appends the FastCGI variable-length length
// encoding of n to buf: one byte if n < 128, else four bytes big-endian
// with the top bit set (spec §4.4). This is exercised across the 0, 127,
// 128, 2^31-1 boundaries by the codec tests (spec §8 invariant 6).
func encodeNameValueLength(buf *bytes.Buffer, n int) {
	if n < 128 {
		buf.WriteByte(byte(n))
		return
	}
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(n)|0x80000000)
	buf.Write(b[:])
}

// decodeNameValueLength reads one FastCGI variable-length length from the
// front of data, returning the value and the number of bytes consumed.
func decodeNameValueLength(data []byte) (n int, consumed int, ok bool) {
	if len(data) == 0 {
		return 0, 0, false
	}
	if data[0]&0x80 == 0 {
		return int(data[0]), 1, true
	}
	if len(data) < 4 {
		return 0, 0, false
	}
	v := binary.BigEndian.Uint32(data[:4]) &^ 0x80000000
	return int(v), 4, true
}

// encodeParams serializes an ordered list of name/value pairs into the
// FastCGI PARAMS byte stream (spec §4.4).
func encodeParams(params []HeaderField) []byte {
	var buf bytes.Buffer
	for _, p := range params {
		encodeNameValueLength(&buf, len(p.Name))
		encodeNameValueLength(&buf, len(p.Value))
		buf.WriteString(p.Name)
		buf.WriteString(p.Value)
	}
	return buf.Bytes()
}

// decodeParams parses a PARAMS byte stream back into name/value pairs.
// Used by the codec round-trip tests (spec §8 invariant 5/6), not by the
// request path (this side of the wire only ever encodes PARAMS, never
// decodes them — FPM is the one that decodes).
func decodeParams(data []byte) ([]HeaderField, bool) {
	var out []HeaderField
	for len(data) > 0 {
		nameLen, n1, ok := decodeNameValueLength(data)
		if !ok {
			return nil, false
		}
		data = data[n1:]
		valueLen, n2, ok := decodeNameValueLength(data)
		if !ok {
			return nil, false
		}
		data = data[n2:]
		if len(data) < nameLen+valueLen {
			return nil, false
		}
		name := string(data[:nameLen])
		value := string(data[nameLen : nameLen+valueLen])
		data = data[nameLen+valueLen:]
		out = append(out, HeaderField{Name: name, Value: value})
	}
	return out, true
}

// buildCGIParams constructs the standard CGI-equivalent param set for one
// request (spec §4.5), given the script path already resolved to a file
// under documentRoot.
func buildCGIParams(req *Request, scriptPath, scriptName, documentRoot, serverName string, serverPort int) []HeaderField {
	var params []HeaderField
	add := func(name, value string) { params = append(params, HeaderField{Name: name, Value: value}) }

	requestURI := req.Path
	if req.Query != "" {
		requestURI += "?" + req.Query
	}

	add("GATEWAY_INTERFACE", "CGI/1.1")
	add("SERVER_PROTOCOL", "HTTP/1.1")
	add("REQUEST_METHOD", req.Method)
	add("REQUEST_URI", requestURI)
	add("QUERY_STRING", req.Query)
	add("DOCUMENT_ROOT", documentRoot)
	add("SCRIPT_FILENAME", scriptPath)
	add("SCRIPT_NAME", scriptName)
	if ct, ok := req.Headers.Get("Content-Type"); ok {
		add("CONTENT_TYPE", ct)
	}
	add("CONTENT_LENGTH", strconv.Itoa(len(req.Body)))
	add("REMOTE_ADDR", req.RemoteAddr)
	add("SERVER_NAME", serverName)
	add("SERVER_PORT", strconv.Itoa(serverPort))
	if req.Scheme == "https" {
		add("HTTPS", "on")
	}

	for _, h := range req.Headers {
		upper := strings.ToUpper(h.Name)
		upper = strings.ReplaceAll(upper, "-", "_")
		if upper == "CONTENT_TYPE" || upper == "CONTENT_LENGTH" {
			continue // already added above without the HTTP_ prefix
		}
		add("HTTP_"+upper, h.Value)
	}

	return params
}

// cgiResponse is the result of parsing a CGI-style STDOUT payload.
type cgiResponse struct {
	status  int
	headers Header
	body    []byte
}

// parseCGIResponse parses a CGI-style header block (terminated by a blank
// line, LF or CRLF) followed by a raw body (spec §4.5/§4.8). The first
// Status header (if any) sets the response status; Content-Type defaults
// to text/html; charset=UTF-8 if never set.
func parseCGIResponse(data []byte) cgiResponse {
	resp := cgiResponse{status: 200}

	sep, headerEnd, bodyStart := findHeaderBoundary(data)
	if bodyStart < 0 {
		resp.headers.Add("Content-Type", "text/html; charset=UTF-8")
		resp.body = data
		return resp
	}

	headerBlock := data[:headerEnd]
	for _, line := range strings.Split(string(headerBlock), sep) {
		if line == "" {
			continue
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		value = strings.TrimSpace(value)
		if name == "" {
			continue
		}
		if strings.EqualFold(name, "Status") {
			fields := strings.Fields(value)
			if len(fields) > 0 {
				if code, err := strconv.Atoi(fields[0]); err == nil {
					resp.status = code
				}
			}
			continue
		}
		resp.headers.Add(name, value)
	}

	if _, ok := resp.headers.Get("Content-Type"); !ok {
		resp.headers.Add("Content-Type", "text/html; charset=UTF-8")
	}

	if bodyStart < len(data) {
		resp.body = data[bodyStart:]
	}
	return resp
}

// findHeaderBoundary locates the first blank-line header/body boundary,
// supporting both "\r\n\r\n" and "\n\n" terminators, and returns the line
// separator used, the offset where the header block ends, and the offset
// of the body's first byte. Returns ("", -1, -1) if no boundary is found
// (the whole payload is then treated as body with no headers, matching the
// original implementation's fallback).
//
// This uses stdlib bytes.Index rather than a SIMD byte-search library: no SIMD string-search
// library appears anywhere in the retrieval pack (the spec's own "SIMD
// byte-search" language describes an internal implementation detail of
// the original Rust program's memchr dependency, not a Go library this
// module could reasonably adopt), and stdlib bytes.Index already compiles
// to a well-vectorized substring search on amd64/arm64, so hand-rolling or
// importing a SIMD-specific matcher would not change the byte-for-byte
// result this function must produce (spec §9: "correctness must match a
// byte-by-byte implementation exactly").
func findHeaderBoundary(data []byte) (sep string, headerEnd int, bodyStart int) {
	crlf := bytes.Index(data, []byte("\r\n\r\n"))
	lf := bytes.Index(data, []byte("\n\n"))
	if crlf >= 0 && (lf < 0 || crlf < lf) {
		return "\r\n", crlf, crlf + 4
	}
	if lf >= 0 {
		return "\n", lf, lf + 2
	}
	return "", -1, -1
}
