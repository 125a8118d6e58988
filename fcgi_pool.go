// Copyright (c) 2026 The fe-php Authors.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package fephp

import (
	"context"
	"net"
	"strings"
	"sync"
	"time"

	fatihpool "gopkg.in/fatih/pool.v2"
)

// PoolConfig is the connection pool's configuration (spec §3, §6).
type PoolConfig struct {
	MaxSize        int
	MaxIdle        time.Duration
	MaxLifetime    time.Duration
	ConnectTimeout time.Duration
	AcquireTimeout time.Duration
	Breaker        BreakerConfig
}

// connMeta is the bookkeeping spec §3 requires per connection (created_at,
// last_used_at, request_count). fatih/pool.v2 rewraps whatever the factory
// dialed in a fresh *PoolConn on every Get(), so this state cannot live on
// the wrapper handed back to callers; it is kept in ConnPool.meta, keyed by
// the underlying raw net.Conn the factory originally dialed, which
// fatih/pool preserves and reuses across Get()/Close() cycles.
type connMeta struct {
	createdAt    time.Time
	lastUsedAt   time.Time
	requestCount int
}

func (m *connMeta) expired(cfg PoolConfig, now time.Time) bool {
	return now.Sub(m.lastUsedAt) > cfg.MaxIdle || now.Sub(m.createdAt) > cfg.MaxLifetime
}

// ConnPool acquires, releases, and retires FastCGI transport connections
// (spec §4.6). Idle storage and dialing are built on
// gopkg.in/fatih/pool.v2's channel-backed factory pool (already present in
// the retrieval pack via dapr-dapr's dependency tree); ConnPool adds the
// age/idle/lifetime retirement rules, in-use accounting, and circuit
// breaker gating the fatih pool itself does not model.
//
// fatih/pool.v2's contract is "Get() hands you a net.Conn; Close() on it
// returns the connection to the idle set, or MarkUnusable() first if you
// want Close() to discard it instead" — there is no separate Put method.
// A connection is returned to the pool by calling conn.Close(), never by
// round-tripping a custom wrapper type back into the pool.
//
// Concurrency: the in-use counter is guarded by a single mutex; a release
// notification channel stands in for a condition variable with a timeout
// (sync.Cond has no native deadline, and a goroutine-per-wait timer on top
// of Cond.Wait cannot be interrupted cleanly). The lock is held only
// across pointer-shuffling, never across I/O, matching spec §4.6.
type ConnPool struct {
	address string
	cfg     PoolConfig
	breaker *Breaker

	mu       sync.Mutex
	idle     fatihpool.Pool
	meta     map[net.Conn]*connMeta
	inUse    int
	closed   bool
	released chan struct{} // replaced each time a slot frees up, broadcast-style
}

// NewConnPool builds a ConnPool dialing address, which is either
// "host:port" (TCP) or an absolute path / "unix:"-prefixed path for a
// Unix-domain stream socket (spec §6).
func NewConnPool(address string, cfg PoolConfig) (*ConnPool, error) {
	p := &ConnPool{
		address:  address,
		cfg:      cfg,
		breaker:  newBreaker(cfg.Breaker),
		meta:     make(map[net.Conn]*connMeta),
		released: make(chan struct{}),
	}

	factory := func() (net.Conn, error) {
		return dialFastCGI(address, cfg.ConnectTimeout)
	}
	idle, err := fatihpool.NewChannelPool(0, cfg.MaxSize, factory)
	if err != nil {
		return nil, err
	}
	p.idle = idle
	return p, nil
}

func dialFastCGI(address string, timeout time.Duration) (net.Conn, error) {
	if strings.HasPrefix(address, "unix:") {
		return net.DialTimeout("unix", strings.TrimPrefix(address, "unix:"), timeout)
	}
	if strings.HasPrefix(address, "/") {
		return net.DialTimeout("unix", address, timeout)
	}
	return net.DialTimeout("tcp", address, timeout)
}

// rawConn unwraps a connection handed back by fatih/pool.v2's Get() down to
// the underlying net.Conn the factory dialed. The *PoolConn wrapper itself
// is a fresh value on every Get() call and cannot carry state between
// acquisitions, but the net.Conn it embeds is the same one throughout that
// connection's life, so it is the only stable key for ConnPool.meta.
func rawConn(c net.Conn) net.Conn {
	if pc, ok := c.(*fatihpool.PoolConn); ok {
		return pc.Conn
	}
	return c
}

// markUnusable tells fatih/pool.v2 to discard a connection on its next
// Close() instead of returning it to the idle set.
func markUnusable(c net.Conn) {
	if u, ok := c.(interface{ MarkUnusable() }); ok {
		u.MarkUnusable()
	}
}

// wakeWaiters closes and replaces the release channel, unblocking every
// goroutine currently selecting on it. Must be called without p.mu held.
func (p *ConnPool) wakeWaiters() {
	p.mu.Lock()
	old := p.released
	p.released = make(chan struct{})
	p.mu.Unlock()
	close(old)
}

// Acquire implements spec §4.6's acquire algorithm: consult the breaker,
// wait for an in-use slot under max_size (fatih/pool.v2's own maxCap only
// bounds its idle buffer, not concurrent checkouts, so ConnPool enforces
// max_size itself), then pull a fresh idle connection or dial one,
// retiring any that have aged out of max_idle/max_lifetime along the way.
func (p *ConnPool) Acquire(ctx context.Context) (net.Conn, func(success bool), error) {
	breakerDone, err := p.breaker.allow()
	if err != nil {
		return nil, nil, ErrCircuitOpen
	}

	deadline := time.Now().Add(p.cfg.AcquireTimeout)
	for {
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			breakerDone(false)
			return nil, nil, ErrPoolClosed
		}

		if p.inUse >= p.cfg.MaxSize {
			wakeup := p.released
			p.mu.Unlock()

			remaining := time.Until(deadline)
			if remaining <= 0 {
				breakerDone(false)
				return nil, nil, ErrAcquireTimeout
			}
			select {
			case <-wakeup:
				// a slot may have freed up; loop and retry
				continue
			case <-time.After(remaining):
				breakerDone(false)
				return nil, nil, ErrAcquireTimeout
			case <-ctx.Done():
				breakerDone(false)
				return nil, nil, ctx.Err()
			}
		}

		p.inUse++
		p.mu.Unlock()

		conn, err := p.acquireFresh()
		if err != nil {
			p.mu.Lock()
			p.inUse--
			p.mu.Unlock()
			breakerDone(false)
			return nil, nil, err
		}
		return conn, p.releaseFunc(conn, breakerDone), nil
	}
}

// acquireFresh pulls one usable connection out of fatih/pool.v2 (which
// dials through the factory itself whenever its idle buffer is empty),
// retiring any idle connection that has aged past max_idle/max_lifetime
// and trying again rather than handing back a stale one.
func (p *ConnPool) acquireFresh() (net.Conn, error) {
	for {
		wrapped, err := p.idle.Get()
		if err != nil {
			return nil, newError(KindGatewayTimeout, "fastcgi: connect failed", err)
		}

		raw := rawConn(wrapped)
		p.mu.Lock()
		meta, known := p.meta[raw]
		if !known {
			meta = &connMeta{createdAt: time.Now(), lastUsedAt: time.Now()}
			p.meta[raw] = meta
			p.mu.Unlock()
			return wrapped, nil
		}
		stale := meta.expired(p.cfg, time.Now())
		if stale {
			delete(p.meta, raw)
		}
		p.mu.Unlock()

		if stale {
			markUnusable(wrapped)
			wrapped.Close()
			continue
		}
		return wrapped, nil
	}
}

// releaseFunc returns the function the caller invokes exactly once to give
// the connection back (spec §4.6's release(conn, outcome)). A successful,
// still-fresh connection is simply Close()'d, which fatih/pool.v2 returns
// to its idle set; a failed or aged-out connection is MarkUnusable()'d
// first so the same Close() call discards it instead.
func (p *ConnPool) releaseFunc(conn net.Conn, breakerDone func(success bool)) func(success bool) {
	var once sync.Once
	return func(success bool) {
		once.Do(func() {
			breakerDone(success)

			raw := rawConn(conn)
			p.mu.Lock()
			p.inUse--
			meta := p.meta[raw]
			discard := !success
			if success && meta != nil {
				meta.requestCount++
				meta.lastUsedAt = time.Now()
				if meta.expired(p.cfg, meta.lastUsedAt) {
					discard = true
				}
			}
			if discard {
				delete(p.meta, raw)
			}
			p.mu.Unlock()

			if discard {
				markUnusable(conn)
			}
			conn.Close()
			p.wakeWaiters()
		})
	}
}

// Close shuts the pool down: further Acquire calls fail with
// ErrPoolClosed, and the idle set is drained and closed.
func (p *ConnPool) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.wakeWaiters()
	p.idle.Close()
}

// InUse returns the current number of checked-out connections (spec §8
// invariant 3: idle.count + in_use.count <= max_size).
func (p *ConnPool) InUse() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inUse
}

// IdleLen returns the current idle-set size.
func (p *ConnPool) IdleLen() int { return p.idle.Len() }
