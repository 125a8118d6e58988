// Copyright (c) 2026 The fe-php Authors.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package fephp

import (
	"regexp"
	"strings"
)

// PatternKind tags the four pattern variants a RoutingRule can hold.
type PatternKind int

const (
	PatternExact PatternKind = iota
	PatternPrefix
	PatternSuffix
	PatternRegex
)

// Pattern is a tagged variant of {Exact, Prefix, Suffix, Regex}. Compiled
// regexes are immutable after rule load; Pattern itself carries no mutable
// state, so a Pattern can be freely shared across goroutines once built.
//
// There is no library in the retrieval pack offering path-pattern
// matching beyond what stdlib regexp already does; Exact/Prefix/Suffix are
// plain string comparisons, and Regex composes directly on
// regexp.Regexp, so this file is intentionally stdlib-only.
type Pattern struct {
	kind  PatternKind
	value string         // used by Exact, Prefix, Suffix
	regex *regexp.Regexp // used by Regex
}

// NewExactPattern builds an Exact(s) pattern.
func NewExactPattern(s string) Pattern { return Pattern{kind: PatternExact, value: s} }

// NewPrefixPattern builds a Prefix(s) pattern.
func NewPrefixPattern(s string) Pattern { return Pattern{kind: PatternPrefix, value: s} }

// NewSuffixPattern builds a Suffix(s) pattern.
func NewSuffixPattern(s string) Pattern { return Pattern{kind: PatternSuffix, value: s} }

// NewRegexPattern compiles s as a full-text-match regex pattern. Compile
// failures are surfaced here, at rule-load time, not at match time.
func NewRegexPattern(s string) (Pattern, error) {
	re, err := regexp.Compile(`^(?:` + s + `)$`)
	if err != nil {
		return Pattern{}, err
	}
	return Pattern{kind: PatternRegex, regex: re}, nil
}

// Matches evaluates the pattern against a raw request path. The query
// string is never part of path; the router does not normalize path
// further (no "//" collapsing, no extra decoding) — that is intentional
// and must hold at this boundary: whatever the HTTP layer already decoded
// is what gets matched here, verbatim.
func (p Pattern) Matches(path string) bool {
	switch p.kind {
	case PatternExact:
		return path == p.value
	case PatternPrefix:
		return strings.HasPrefix(path, p.value)
	case PatternSuffix:
		return strings.HasSuffix(path, p.value)
	case PatternRegex:
		return p.regex.MatchString(path)
	default:
		return false
	}
}

// String describes the pattern for logging/diagnostics.
func (p Pattern) String() string {
	switch p.kind {
	case PatternExact:
		return "exact:" + p.value
	case PatternPrefix:
		return "prefix:" + p.value
	case PatternSuffix:
		return "suffix:" + p.value
	case PatternRegex:
		return "regex:" + p.regex.String()
	default:
		return "unknown"
	}
}
