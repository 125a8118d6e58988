// Copyright (c) 2026 The fe-php Authors.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package fephp

import (
	"testing"
	"time"
)

func TestBreakerDisabledAlwaysAllows(t *testing.T) {
	b := newBreaker(BreakerConfig{Enable: false})
	for i := 0; i < 5; i++ {
		done, err := b.allow()
		if err != nil {
			t.Fatalf("allow() = %v, want nil", err)
		}
		done(false)
	}
}

func TestBreakerOpensAfterFailureThreshold(t *testing.T) {
	b := newBreaker(BreakerConfig{
		Enable:           true,
		FailureThreshold: 3,
		SuccessThreshold: 1,
		Timeout:          time.Minute,
		HalfOpenMax:      1,
	})

	for i := 0; i < 3; i++ {
		done, err := b.allow()
		if err != nil {
			t.Fatalf("allow() #%d = %v, want nil (still closed)", i, err)
		}
		done(false)
	}

	if _, err := b.allow(); err == nil {
		t.Error("expected the breaker to be open after 3 consecutive failures")
	}
}

func TestBreakerRequiresConsecutiveHalfOpenSuccesses(t *testing.T) {
	b := newBreaker(BreakerConfig{
		Enable:           true,
		FailureThreshold: 1,
		SuccessThreshold: 2,
		Timeout:          10 * time.Millisecond,
		HalfOpenMax:      2,
	})

	firstFail, err := b.allow()
	if err != nil {
		t.Fatalf("allow(): %v", err)
	}
	firstFail(false) // trips the breaker open

	time.Sleep(20 * time.Millisecond) // past Timeout: breaker is now half-open

	firstProbe, err := b.allow()
	if err != nil {
		t.Fatalf("allow() while half-open: %v", err)
	}
	firstProbe(true) // one success: not enough to close per SuccessThreshold=2

	secondProbe, err := b.allow()
	if err != nil {
		t.Fatalf("allow() after one half-open success should still be permitted: %v", err)
	}
	secondProbe(true) // second consecutive success: now closes

	if _, err := b.allow(); err != nil {
		t.Fatalf("allow() after breaker closed: %v", err)
	}
}
