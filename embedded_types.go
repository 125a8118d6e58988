// Copyright (c) 2026 The fe-php Authors.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package fephp

// WorkerState is a worker slot's lifecycle state (spec §3).
type WorkerState int

const (
	WorkerInitializing WorkerState = iota
	WorkerIdle
	WorkerRunning
	WorkerDying
)

func (s WorkerState) String() string {
	switch s {
	case WorkerInitializing:
		return "initializing"
	case WorkerIdle:
		return "idle"
	case WorkerRunning:
		return "running"
	case WorkerDying:
		return "dying"
	default:
		return "unknown"
	}
}

// phpJob is one unit of work handed from the async façade to a worker
// (spec §3's PhpJob). responseCh is a one-shot channel: exactly one value
// is ever sent, and the worker never blocks if nobody is listening — the
// send is always non-blocking via a buffer of 1, so a caller that has
// abandoned the request (dropped its context, stopped reading) never
// stalls the worker (spec §5's cancellation rule for the embedded
// backend: "workers must not block awaiting the receiver").
type phpJob struct {
	req        *Request
	responseCh chan phpJobResult
}

type phpJobResult struct {
	resp *Response
	err  error
}
