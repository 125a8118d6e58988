// Copyright (c) 2026 The fe-php Authors.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package fephp

import "sort"

// RoutingRule is one pattern→backend mapping with a priority. Rules are
// sorted by priority descending at Router construction; ties keep their
// original (insertion) order, matching spec §3's invariant.
type RoutingRule struct {
	Pattern  Pattern
	Backend  BackendID
	Priority int
}

// Router holds an ordered, immutable rule list plus a default backend id.
// Once built by NewRouter, a Router is a pure function of (rules, path):
// concurrent Resolve calls on the same Router always agree, so Router is
// safe to share across any number of goroutines without further locking.
type Router struct {
	rules          []RoutingRule
	defaultBackend BackendID
}

// NewRouter builds a Router from an unordered rule list and a default
// backend. Rules are stable-sorted by priority descending so that ties
// break by insertion order, per spec §3. Router construction never fails
// here — regex compile failures are caught earlier, when the caller builds
// the rules with CompileRoutingRules and gets a ConfigError at that point
// (NewRegexPattern itself returns the plain regexp error) — so that after
// NewRouter returns, Resolve is infallible.
func NewRouter(rules []RoutingRule, defaultBackend BackendID) *Router {
	sorted := make([]RoutingRule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority > sorted[j].Priority
	})
	return &Router{rules: sorted, defaultBackend: defaultBackend}
}

// Resolve returns the backend id for path: the first rule (in stored,
// priority-descending order) whose pattern matches, or the default
// backend if none match. Resolve is total and deterministic (spec §8
// invariant 1): the same Router always returns the same answer for the
// same path, and never returns a rule of strictly lower priority when a
// higher-priority rule also matched (spec §8 invariant 2), because rules
// are tried in stored order and the first match wins.
func (r *Router) Resolve(path string) BackendID {
	for _, rule := range r.rules {
		if rule.Pattern.Matches(path) {
			return rule.Backend
		}
	}
	return r.defaultBackend
}

// Rules returns a read-only snapshot of the stored rule order, useful for
// diagnostics and tests.
func (r *Router) Rules() []RoutingRule {
	out := make([]RoutingRule, len(r.rules))
	copy(out, r.rules)
	return out
}

// DefaultBackend returns the configured fallback backend id.
func (r *Router) DefaultBackend() BackendID { return r.defaultBackend }
