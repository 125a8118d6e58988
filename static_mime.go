// Copyright (c) 2026 The fe-php Authors.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package fephp

import "strings"

// staticMimeTypes is the extension table of spec §4.3. Unknown extensions
// fall back to application/octet-stream.
var staticMimeTypes = map[string]string{
	"html":  "text/html; charset=utf-8",
	"htm":   "text/html; charset=utf-8",
	"css":   "text/css; charset=utf-8",
	"js":    "application/javascript; charset=utf-8",
	"mjs":   "application/javascript; charset=utf-8",
	"json":  "application/json; charset=utf-8",
	"xml":   "application/xml; charset=utf-8",
	"svg":   "image/svg+xml",
	"png":   "image/png",
	"jpg":   "image/jpeg",
	"jpeg":  "image/jpeg",
	"gif":   "image/gif",
	"webp":  "image/webp",
	"woff":  "font/woff",
	"woff2": "font/woff2",
	"ttf":   "font/ttf",
	"pdf":   "application/pdf",
}

const staticDefaultMimeType = "application/octet-stream"

func staticGuessMimeType(name string) string {
	ext := strings.TrimPrefix(strings.ToLower(extOf(name)), ".")
	if mt, ok := staticMimeTypes[ext]; ok {
		return mt
	}
	return staticDefaultMimeType
}

func extOf(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i:]
	}
	return ""
}

// staticExtClass buckets extensions into the Cache-Control classes of
// spec §4.3.
type staticExtClass int

const (
	classOther staticExtClass = iota
	classFont
	classImage
	classCSSJS
	classHTML
)

func staticClassOf(name string) staticExtClass {
	switch strings.TrimPrefix(strings.ToLower(extOf(name)), ".") {
	case "woff", "woff2", "ttf":
		return classFont
	case "png", "jpg", "jpeg", "gif", "webp":
		return classImage
	case "css", "js", "mjs":
		return classCSSJS
	case "html", "htm":
		return classHTML
	default:
		return classOther
	}
}

func staticCacheControl(name string) string {
	switch staticClassOf(name) {
	case classFont:
		return "public, max-age=31536000, immutable"
	case classImage:
		return "public, max-age=86400"
	case classCSSJS:
		return "public, max-age=3600"
	case classHTML:
		return "no-cache"
	default:
		return "no-cache"
	}
}
