// Copyright (c) 2026 The fe-php Authors.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package fephp

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/hashicorp/go-hclog"
)

// WorkerPoolConfig configures the embedded worker pool (spec §4.8, §6).
type WorkerPoolConfig struct {
	Size        int
	MaxRequests int // 0 means unbounded: a worker never recycles on its own
	Php         PhpConfig
}

// WorkerPool owns the process-wide PhpRuntime and a fixed set of worker
// goroutines pulling phpJobs off a shared bounded channel (spec §3's
// Worker, grounded on original_source/src/php/worker.rs's WorkerPool:
// php_module_startup is called exactly once before any worker starts,
// each worker calls only the per-thread init, and a worker that reaches
// worker_max_requests recycles itself rather than running forever). The
// Rust version's async_channel + tokio::task::spawn_blocking becomes a
// buffered Go channel plus one goroutine per worker slot.
type WorkerPool struct {
	cfg     WorkerPoolConfig
	runtime PhpRuntime
	log     hclog.Logger

	jobs   chan phpJob
	states []atomic.Int32 // one WorkerState per slot, for introspection

	closed   atomic.Bool
	wg       sync.WaitGroup
	shutdown chan struct{}
	closeOne sync.Once
}

// NewWorkerPool starts cfg.Size worker goroutines after initializing the
// process-wide PHP module exactly once.
func NewWorkerPool(cfg WorkerPoolConfig, log hclog.Logger) (*WorkerPool, error) {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	if cfg.Size <= 0 {
		cfg.Size = 1
	}

	runtime := newPhpRuntime()
	if err := runtime.ModuleStartup(cfg.Php); err != nil {
		return nil, newError(KindInternalError, "php module startup failed", err)
	}

	p := &WorkerPool{
		cfg:      cfg,
		runtime:  runtime,
		log:      log.Named("embedded"),
		jobs:     make(chan phpJob, cfg.Size*2),
		states:   make([]atomic.Int32, cfg.Size),
		shutdown: make(chan struct{}),
	}

	for slot := 0; slot < cfg.Size; slot++ {
		p.states[slot].Store(int32(WorkerInitializing))
		p.wg.Add(1)
		go p.runSlot(slot)
	}

	return p, nil
}

// Submit enqueues a job and returns its result channel; it never blocks
// the caller past the queue's capacity check — a full queue fails fast
// with ErrQueueFull rather than piling up unbounded latency (spec §4.8).
func (p *WorkerPool) Submit(req *Request) (<-chan phpJobResult, error) {
	if p.closed.Load() {
		return nil, ErrRuntimeNotReady
	}
	ch := make(chan phpJobResult, 1)
	select {
	case p.jobs <- phpJob{req: req, responseCh: ch}:
		return ch, nil
	default:
		return nil, ErrQueueFull
	}
}

// runSlot is one worker goroutine's lifetime: it recycles itself (a fresh
// goroutine takes the same slot) after cfg.MaxRequests jobs, bounding the
// lifetime of whatever per-request state a long-lived PHP worker might
// accumulate (spec §4.8's recycling rule).
func (p *WorkerPool) runSlot(slot int) {
	defer p.wg.Done()

	if err := p.runtime.PerThreadInit(); err != nil {
		p.log.Error("worker init failed", "slot", slot, "error", err)
		p.states[slot].Store(int32(WorkerDying))
		return
	}
	p.states[slot].Store(int32(WorkerIdle))

	handled := 0
	for {
		select {
		case <-p.shutdown:
			p.states[slot].Store(int32(WorkerDying))
			return
		case job, ok := <-p.jobs:
			if !ok {
				p.states[slot].Store(int32(WorkerDying))
				return
			}
			p.states[slot].Store(int32(WorkerRunning))
			p.runJob(slot, job)
			handled++

			if p.cfg.MaxRequests > 0 && handled >= p.cfg.MaxRequests {
				p.log.Debug("worker recycling", "slot", slot, "handled", handled)
				p.states[slot].Store(int32(WorkerDying))
				p.wg.Add(1)
				go p.runSlot(slot)
				return
			}
			p.states[slot].Store(int32(WorkerIdle))
		}
	}
}

// runJob executes one job and always delivers exactly one result,
// recovering from any panic inside Execute so one bad request cannot
// take the worker slot down with it (spec §4.8's panic/fatal containment).
func (p *WorkerPool) runJob(slot int, job phpJob) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("worker panic recovered", "slot", slot, "panic", r)
			job.responseCh <- phpJobResult{err: newExecuteFailed(fmt.Sprintf("%v", r), nil)}
		}
	}()

	resp, err := p.runtime.Execute(job.req, job.req.Path, nil)
	job.responseCh <- phpJobResult{resp: resp, err: err}
}

// Close stops accepting new submissions, signals every worker to exit
// once its current job (if any) finishes, waits for all of them, and
// shuts the PHP module down exactly once (spec §9: shutdown_once, never
// while a worker is alive). The jobs channel itself is never closed —
// only p.shutdown is — so a Submit racing with Close can never panic
// sending on a closed channel; it instead observes the closed flag and
// fails with ErrRuntimeNotReady.
func (p *WorkerPool) Close() {
	p.closeOne.Do(func() {
		p.closed.Store(true)
		close(p.shutdown)
		p.wg.Wait()
		p.runtime.ModuleShutdown()
	})
}

// State reports a worker slot's current lifecycle state.
func (p *WorkerPool) State(slot int) WorkerState {
	return WorkerState(p.states[slot].Load())
}
