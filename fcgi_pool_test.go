// Copyright (c) 2026 The fe-php Authors.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package fephp

import (
	"context"
	"net"
	"testing"
	"time"
)

// startEchoListener spins up a TCP listener that accepts connections and
// holds them open (no protocol behavior needed: these tests only exercise
// pool bookkeeping, not the wire codec).
func startEchoListener(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				buf := make([]byte, 4096)
				for {
					if _, err := conn.Read(buf); err != nil {
						conn.Close()
						return
					}
				}
			}()
		}
	}()
	return ln.Addr().String()
}

func testPoolConfig() PoolConfig {
	return PoolConfig{
		MaxSize:        2,
		MaxIdle:        time.Minute,
		MaxLifetime:    time.Minute,
		ConnectTimeout: time.Second,
		AcquireTimeout: 200 * time.Millisecond,
	}
}

func TestConnPoolAcquireRelease(t *testing.T) {
	addr := startEchoListener(t)
	pool, err := NewConnPool(addr, testPoolConfig())
	if err != nil {
		t.Fatalf("NewConnPool: %v", err)
	}
	defer pool.Close()

	_, release, err := pool.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if pool.InUse() != 1 {
		t.Errorf("InUse() = %d, want 1", pool.InUse())
	}
	release(true)
	if pool.InUse() != 0 {
		t.Errorf("InUse() after release = %d, want 0", pool.InUse())
	}
	if pool.IdleLen() != 1 {
		t.Errorf("IdleLen() = %d, want 1", pool.IdleLen())
	}
}

func TestConnPoolAcquireTimeoutAtMaxSize(t *testing.T) {
	addr := startEchoListener(t)
	pool, err := NewConnPool(addr, testPoolConfig())
	if err != nil {
		t.Fatalf("NewConnPool: %v", err)
	}
	defer pool.Close()

	_, release1, err := pool.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire 1: %v", err)
	}
	_, release2, err := pool.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire 2: %v", err)
	}
	defer release1(true)
	defer release2(true)

	start := time.Now()
	_, _, err = pool.Acquire(context.Background())
	if err != ErrAcquireTimeout {
		t.Errorf("Acquire at max size = %v, want ErrAcquireTimeout", err)
	}
	if elapsed := time.Since(start); elapsed < 150*time.Millisecond {
		t.Errorf("Acquire returned too quickly: %v", elapsed)
	}
}

func TestConnPoolAcquireUnblocksOnRelease(t *testing.T) {
	addr := startEchoListener(t)
	cfg := testPoolConfig()
	cfg.AcquireTimeout = 2 * time.Second
	pool, err := NewConnPool(addr, cfg)
	if err != nil {
		t.Fatalf("NewConnPool: %v", err)
	}
	defer pool.Close()

	_, release1, err := pool.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire 1: %v", err)
	}
	_, release2, err := pool.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire 2: %v", err)
	}

	go func() {
		time.Sleep(50 * time.Millisecond)
		release1(true)
	}()

	start := time.Now()
	_, release3, err := pool.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire 3: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Acquire took too long to notice the release: %v", elapsed)
	}
	release2(true)
	release3(true)
}

func TestConnPoolClosedRejectsAcquire(t *testing.T) {
	addr := startEchoListener(t)
	pool, err := NewConnPool(addr, testPoolConfig())
	if err != nil {
		t.Fatalf("NewConnPool: %v", err)
	}
	pool.Close()

	_, _, err = pool.Acquire(context.Background())
	if err != ErrPoolClosed {
		t.Errorf("Acquire after Close = %v, want ErrPoolClosed", err)
	}
}
