// Copyright (c) 2026 The fe-php Authors.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package fephp

import (
	"testing"
	"time"
)

func TestWorkerPoolSubmitAndResult(t *testing.T) {
	pool, err := NewWorkerPool(WorkerPoolConfig{Size: 2}, nil)
	if err != nil {
		t.Fatalf("NewWorkerPool: %v", err)
	}
	defer pool.Close()

	resultCh, err := pool.Submit(&Request{Path: "/nonexistent.php"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	select {
	case res := <-resultCh:
		if res.err == nil {
			t.Error("expected an error for a nonexistent script (no libphp in this build)")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for a worker result")
	}
}

func TestWorkerPoolRecyclesAfterMaxRequests(t *testing.T) {
	pool, err := NewWorkerPool(WorkerPoolConfig{Size: 1, MaxRequests: 2}, nil)
	if err != nil {
		t.Fatalf("NewWorkerPool: %v", err)
	}
	defer pool.Close()

	for i := 0; i < 5; i++ {
		resultCh, err := pool.Submit(&Request{Path: "/x.php"})
		if err != nil {
			t.Fatalf("Submit #%d: %v", i, err)
		}
		select {
		case <-resultCh:
		case <-time.After(time.Second):
			t.Fatalf("job #%d timed out", i)
		}
	}
	// The slot recycles (a fresh goroutine replaces it) every 2 jobs, and
	// must still be serving jobs afterward: reaching this point without a
	// timeout already demonstrates that.
}

func TestWorkerPoolSubmitAfterCloseFails(t *testing.T) {
	pool, err := NewWorkerPool(WorkerPoolConfig{Size: 1}, nil)
	if err != nil {
		t.Fatalf("NewWorkerPool: %v", err)
	}
	pool.Close()

	if _, err := pool.Submit(&Request{Path: "/x.php"}); err == nil {
		t.Error("expected Submit after Close to fail")
	}
}

func TestWorkerPoolQueueFull(t *testing.T) {
	// A pool of size 1 has a jobs channel of capacity 2 (cfg.Size*2). Submit
	// three jobs back to back: each Submit must return at once, either
	// accepting the job or failing with ErrQueueFull, and every accepted
	// job must complete. No job is held busy, so whether the buffer
	// actually fills depends on timing.
	pool, err := NewWorkerPool(WorkerPoolConfig{Size: 1}, nil)
	if err != nil {
		t.Fatalf("NewWorkerPool: %v", err)
	}
	defer pool.Close()

	var chans []<-chan phpJobResult
	for i := 0; i < 3; i++ {
		ch, err := pool.Submit(&Request{Path: "/x.php"})
		if err != nil {
			// Once the buffer is genuinely full this is the expected outcome;
			// draining happens fast in this build (noop runtime), so a full
			// buffer is a timing-dependent outcome rather than guaranteed —
			// either a successful submit or ErrQueueFull is acceptable here.
			if err != ErrQueueFull {
				t.Fatalf("Submit #%d: unexpected error %v", i, err)
			}
			continue
		}
		chans = append(chans, ch)
	}
	for _, ch := range chans {
		select {
		case <-ch:
		case <-time.After(time.Second):
			t.Fatal("job never completed")
		}
	}
}
