// Copyright (c) 2026 The fe-php Authors.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package fephp

import "testing"

func TestRouterPriorityOrder(t *testing.T) {
	rules := []RoutingRule{
		{Pattern: NewPrefixPattern("/"), Backend: BackendStatic, Priority: 0},
		{Pattern: NewPrefixPattern("/api/"), Backend: BackendEmbedded, Priority: 50},
		{Pattern: NewExactPattern("/api/legacy.php"), Backend: BackendFastCGI, Priority: 100},
	}
	r := NewRouter(rules, BackendStatic)

	tests := []struct {
		path   string
		expect BackendID
	}{
		{"/api/legacy.php", BackendFastCGI}, // highest priority wins over a matching prefix
		{"/api/users", BackendEmbedded},
		{"/index.html", BackendStatic},
		{"/anything", BackendStatic}, // caught by the priority-0 "/" prefix rule
	}
	for idx, test := range tests {
		if got := r.Resolve(test.path); got != test.expect {
			t.Errorf("#%d: Resolve(%q) = %q, want %q", idx, test.path, got, test.expect)
		}
	}
}

func TestRouterStableTiebreak(t *testing.T) {
	rules := []RoutingRule{
		{Pattern: NewPrefixPattern("/x"), Backend: BackendStatic, Priority: 10},
		{Pattern: NewPrefixPattern("/x"), Backend: BackendEmbedded, Priority: 10},
	}
	r := NewRouter(rules, BackendFastCGI)
	// Equal priority: insertion order must break the tie, every time.
	for i := 0; i < 5; i++ {
		if got := r.Resolve("/x1"); got != BackendStatic {
			t.Errorf("iteration %d: Resolve = %q, want %q (first-inserted rule)", i, got, BackendStatic)
		}
	}
}

func TestRouterResolveIsDeterministic(t *testing.T) {
	rules := []RoutingRule{{Pattern: NewPrefixPattern("/a"), Backend: BackendEmbedded, Priority: 1}}
	r := NewRouter(rules, BackendStatic)
	first := r.Resolve("/a/b")
	for i := 0; i < 100; i++ {
		if got := r.Resolve("/a/b"); got != first {
			t.Fatalf("Resolve is not deterministic: got %q then %q", first, got)
		}
	}
}

func TestRouterDefaultBackend(t *testing.T) {
	r := NewRouter(nil, BackendStatic)
	if r.DefaultBackend() != BackendStatic {
		t.Errorf("DefaultBackend() = %q", r.DefaultBackend())
	}
	if got := r.Resolve("/anything"); got != BackendStatic {
		t.Errorf("Resolve with no rules = %q, want default", got)
	}
}
