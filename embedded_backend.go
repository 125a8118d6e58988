// Copyright (c) 2026 The fe-php Authors.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package fephp

import (
	"context"
	"time"

	"github.com/hashicorp/go-hclog"
)

// EmbeddedConfig configures the EmbeddedBackend (spec §4.8, §6).
type EmbeddedConfig struct {
	Pool       WorkerPoolConfig
	RequestTTL time.Duration // 0 means no deadline beyond the pool's own blocking
}

// EmbeddedBackend is the async façade handing requests to a WorkerPool and
// awaiting the one-shot result (spec §4.8). Submission never blocks a
// worker goroutine on an abandoned caller: if the caller times out or is
// canceled first, the worker's send into responseCh still succeeds
// because the channel is buffered by one (spec §5's embedded cancellation
// rule).
type EmbeddedBackend struct {
	pool       *WorkerPool
	requestTTL time.Duration
}

// NewEmbeddedBackend builds an EmbeddedBackend with its own WorkerPool.
func NewEmbeddedBackend(cfg EmbeddedConfig, log hclog.Logger) (*EmbeddedBackend, error) {
	pool, err := NewWorkerPool(cfg.Pool, log)
	if err != nil {
		return nil, err
	}
	return &EmbeddedBackend{pool: pool, requestTTL: cfg.RequestTTL}, nil
}

// Close shuts the underlying worker pool down.
func (b *EmbeddedBackend) Close() { b.pool.Close() }

// Handle implements Backend.
func (b *EmbeddedBackend) Handle(req *Request) (*Response, error) {
	resultCh, err := b.pool.Submit(req)
	if err != nil {
		return nil, err
	}

	if b.requestTTL <= 0 {
		res := <-resultCh
		if res.err != nil {
			return nil, res.err
		}
		return res.resp, nil
	}

	select {
	case res := <-resultCh:
		if res.err != nil {
			return nil, res.err
		}
		return res.resp, nil
	case <-time.After(b.requestTTL):
		return nil, newError(KindGatewayTimeout, "embedded: request timed out", context.DeadlineExceeded)
	}
}
