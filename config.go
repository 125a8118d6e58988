// Copyright (c) 2026 The fe-php Authors.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package fephp

import "time"

// Config is the fully-resolved, typed configuration tree used to build a
// Dispatcher (spec §6). internal/config unmarshals YAML into this same
// shape; nothing in this package depends on YAML directly.
type Config struct {
	Backend   BackendConfig
	FpmSocket string
	Pool      PoolSecondsConfig
	Php       PhpSecondsConfig
	Log       LogConfig
}

// BackendConfig is the routing half of Config (spec §3's RoutingRule,
// spec §6's backend.* keys).
type BackendConfig struct {
	EnableHybrid   bool
	DefaultBackend BackendID
	RoutingRules   []RoutingRuleConfig
	StaticFiles    StaticConfig
}

// RoutingRuleConfig is one YAML routing rule entry before pattern
// compilation (spec §4.1).
type RoutingRuleConfig struct {
	Pattern  PatternConfig
	Backend  BackendID
	Priority int
}

// PatternConfig names a pattern kind and its value, mirroring the YAML
// shape ({type: prefix, value: /api/}) rather than Pattern's compiled form.
type PatternConfig struct {
	Type  string // "exact", "prefix", "suffix", "regex"
	Value string
}

// PoolSecondsConfig mirrors spec §6's pool.* keys, expressed in whole
// seconds as YAML documents do, converted to PoolConfig's time.Duration
// fields by ToPoolConfig.
type PoolSecondsConfig struct {
	MaxSize            int
	MaxIdleSecs        int
	MaxLifetimeSecs    int
	ConnectTimeoutSecs int
	AcquireTimeoutSecs int
	CircuitBreaker     BreakerSecondsConfig
}

// BreakerSecondsConfig mirrors spec §6's pool.circuitBreaker.* keys.
type BreakerSecondsConfig struct {
	Enable              bool
	FailureThreshold    uint32
	SuccessThreshold    uint32
	TimeoutSeconds      int
	HalfOpenMaxRequests uint32
}

// PhpSecondsConfig mirrors spec §6's php.* keys.
type PhpSecondsConfig struct {
	LibraryPath       string
	DocumentRoot      string
	WorkerPoolSize    int
	WorkerMaxRequests int
	UseFpm            bool
}

// ToPoolConfig converts the YAML-shaped seconds fields to the core's
// PoolConfig (spec §3).
func (c PoolSecondsConfig) ToPoolConfig() PoolConfig {
	return PoolConfig{
		MaxSize:        c.MaxSize,
		MaxIdle:        time.Duration(c.MaxIdleSecs) * time.Second,
		MaxLifetime:    time.Duration(c.MaxLifetimeSecs) * time.Second,
		ConnectTimeout: time.Duration(c.ConnectTimeoutSecs) * time.Second,
		AcquireTimeout: time.Duration(c.AcquireTimeoutSecs) * time.Second,
		Breaker: BreakerConfig{
			Enable:           c.CircuitBreaker.Enable,
			FailureThreshold: c.CircuitBreaker.FailureThreshold,
			SuccessThreshold: c.CircuitBreaker.SuccessThreshold,
			Timeout:          time.Duration(c.CircuitBreaker.TimeoutSeconds) * time.Second,
			HalfOpenMax:      c.CircuitBreaker.HalfOpenMaxRequests,
		},
	}
}

// ToPhpConfig converts the YAML-shaped php.* fields to the core's
// PhpConfig (spec §4.8).
func (c PhpSecondsConfig) ToPhpConfig() PhpConfig {
	return PhpConfig{
		LibraryPath:       c.LibraryPath,
		DocumentRoot:      c.DocumentRoot,
		WorkerPoolSize:    c.WorkerPoolSize,
		WorkerMaxRequests: c.WorkerMaxRequests,
	}
}

// CompilePattern builds a Pattern from a PatternConfig (spec §4.1).
func CompilePattern(pc PatternConfig) (Pattern, error) {
	switch pc.Type {
	case "exact":
		return NewExactPattern(pc.Value), nil
	case "prefix":
		return NewPrefixPattern(pc.Value), nil
	case "suffix":
		return NewSuffixPattern(pc.Value), nil
	case "regex":
		return NewRegexPattern(pc.Value)
	default:
		return Pattern{}, &ConfigError{Message: "unknown pattern type: " + pc.Type}
	}
}

// CompileRoutingRules converts the YAML rule list into RoutingRules,
// compiling and validating every pattern (spec §4.1: "construction can
// fail; Resolve is subsequently infallible").
func CompileRoutingRules(rules []RoutingRuleConfig) ([]RoutingRule, error) {
	out := make([]RoutingRule, 0, len(rules))
	for _, r := range rules {
		pat, err := CompilePattern(r.Pattern)
		if err != nil {
			return nil, &ConfigError{Message: "invalid routing rule pattern", Cause: err}
		}
		out = append(out, RoutingRule{Pattern: pat, Backend: r.Backend, Priority: r.Priority})
	}
	return out, nil
}
