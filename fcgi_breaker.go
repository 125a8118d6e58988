// Copyright (c) 2026 The fe-php Authors.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package fephp

import (
	"time"

	"github.com/sony/gobreaker"
)

// BreakerConfig configures the circuit breaker (spec §4.7, §6).
type BreakerConfig struct {
	Enable           bool
	FailureThreshold uint32
	SuccessThreshold uint32
	Timeout          time.Duration
	HalfOpenMax      uint32
}

// Breaker gates pool acquisition based on observed failures (spec §4.7).
// It is built on github.com/sony/gobreaker's TwoStepCircuitBreaker rather
// than a hand-rolled state machine: TwoStepCircuitBreaker already splits
// "may I proceed" from "here's how it went" into two calls (Allow()
// returns a done(bool) closure), which is exactly the acquire/release
// shape ConnPool needs.
//
// gobreaker's Settings.MaxRequests does double duty as both the cap on
// concurrent Half-Open probes and the number of consecutive Half-Open
// successes required to close again (onSuccess closes once
// ConsecutiveSuccesses >= MaxRequests) — there is no separate knob for
// the two. An earlier version of this file tried to layer a second,
// independent success-streak counter on top by reporting an
// insufficient streak as done(false); that is wrong: gobreaker's
// onFailure unconditionally reopens the circuit on ANY Half-Open
// failure, so a genuine (but not-yet-sufficient) success reported as
// failure would reopen the circuit instead of keeping it Half-Open for
// further probes. MaxRequests is therefore set to the larger of
// SuccessThreshold and HalfOpenMax (at least 1), and that one number is
// both the Half-Open probe cap and the count of consecutive successes
// that closes the circuit again: when HalfOpenMax is larger, closing takes
// HalfOpenMax successes, and when SuccessThreshold is larger, Half-Open
// admits SuccessThreshold probes rather than HalfOpenMax.
type Breaker struct {
	cb *gobreaker.TwoStepCircuitBreaker
}

func newBreaker(cfg BreakerConfig) *Breaker {
	if !cfg.Enable {
		return &Breaker{cb: nil}
	}
	maxRequests := cfg.SuccessThreshold
	if cfg.HalfOpenMax > maxRequests {
		maxRequests = cfg.HalfOpenMax
	}
	if maxRequests == 0 {
		maxRequests = 1
	}
	settings := gobreaker.Settings{
		Name:        "fcgi",
		MaxRequests: maxRequests,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
	}
	cb := gobreaker.NewTwoStepCircuitBreaker(settings)
	return &Breaker{cb: cb}
}

// allow returns a done(success bool) callback to invoke exactly once when
// the caller knows the outcome, or gobreaker's own error (ErrOpenState, or
// ErrTooManyRequests when Half-Open has no probe slots left); ConnPool.Acquire
// reports either as ErrCircuitOpen.
func (b *Breaker) allow() (func(success bool), error) {
	if b.cb == nil {
		return func(bool) {}, nil
	}

	done, err := b.cb.Allow()
	if err != nil {
		return nil, err
	}
	return done, nil
}
