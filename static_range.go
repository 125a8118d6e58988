// Copyright (c) 2026 The fe-php Authors.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package fephp

import (
	"strconv"
	"strings"
)

// byteRange is a single resolved, in-bounds byte range [start, end]
// (inclusive), as produced by parseRange against a known resource size.
type byteRange struct {
	start, end int64 // inclusive
}

// rangeOutcome tells the static backend how to respond to a Range header.
type rangeOutcome int

const (
	rangeNone          rangeOutcome = iota // no Range header, or multi-range (serve whole body, 200)
	rangeSatisfiable                       // single range resolved, serve 206
	rangeUnsatisfiable                     // single range entirely out of bounds, serve 416
)

// parseRange parses a `Range: bytes=...` header value against a resource
// of the given size. Only a single range is supported, in the forms
// "a-b", "a-", "-n" (spec §4.3); multiple comma-separated ranges are an
// explicitly allowed simplification and fall back to rangeNone (whole
// body, 200).
func parseRange(header string, size int64) (byteRange, rangeOutcome) {
	const prefix = "bytes="
	if !strings.HasPrefix(header, prefix) {
		return byteRange{}, rangeNone
	}
	spec := strings.TrimPrefix(header, prefix)
	if strings.Contains(spec, ",") {
		return byteRange{}, rangeNone
	}
	spec = strings.TrimSpace(spec)

	dash := strings.IndexByte(spec, '-')
	if dash < 0 {
		return byteRange{}, rangeNone
	}
	startStr, endStr := spec[:dash], spec[dash+1:]

	var start, end int64
	switch {
	case startStr == "" && endStr != "": // "-n": last n bytes
		n, err := strconv.ParseInt(endStr, 10, 64)
		if err != nil || n <= 0 {
			return byteRange{}, rangeNone
		}
		if n > size {
			n = size
		}
		start = size - n
		end = size - 1
	case startStr != "" && endStr == "": // "a-": from a to EOF
		a, err := strconv.ParseInt(startStr, 10, 64)
		if err != nil {
			return byteRange{}, rangeNone
		}
		start = a
		end = size - 1
	case startStr != "" && endStr != "": // "a-b"
		a, err1 := strconv.ParseInt(startStr, 10, 64)
		b, err2 := strconv.ParseInt(endStr, 10, 64)
		if err1 != nil || err2 != nil {
			return byteRange{}, rangeNone
		}
		start, end = a, b
	default:
		return byteRange{}, rangeNone
	}

	if start > end || start < 0 || start >= size {
		return byteRange{}, rangeUnsatisfiable
	}
	if end >= size {
		end = size - 1
	}
	return byteRange{start: start, end: end}, rangeSatisfiable
}

func (br byteRange) length() int64 { return br.end - br.start + 1 }
