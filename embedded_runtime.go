// Copyright (c) 2026 The fe-php Authors.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package fephp

import "sync"

// PhpRuntime is the per-process PHP module lifecycle plus per-request
// execute (spec §4.8). Exactly one PhpRuntime exists per process; it is
// initialized once by the WorkerPool's constructor and shut down once by
// its destructor. Workers never call ModuleStartup/ModuleShutdown
// themselves — only PerThreadInit and Execute.
type PhpRuntime interface {
	// ModuleStartup loads the PHP library and calls php_module_startup.
	// Must be called exactly once per process, before any worker thread
	// starts. Re-entry is forbidden (spec §9).
	ModuleStartup(cfg PhpConfig) error

	// ModuleShutdown calls php_module_shutdown. Must be called exactly
	// once, after every worker thread has exited, never while any worker
	// is alive (spec §9).
	ModuleShutdown()

	// PerThreadInit performs thread-local SAPI setup for one worker
	// thread. Called once by each worker thread at startup, never calls
	// ModuleStartup.
	PerThreadInit() error

	// Execute runs one PHP request inside the calling (worker) thread:
	// php_request_startup, populate server vars, run the script, capture
	// output via ub_write, php_request_shutdown. Must never be called
	// concurrently with ModuleShutdown.
	Execute(req *Request, scriptPath string, serverVars []HeaderField) (*Response, error)
}

// phpLifecycle enforces the init side of spec §9's init_once rule around
// any PhpRuntime implementation: markInitialized panics on re-init, and
// requireInitialized panics when a worker starts before ModuleStartup. It
// does not guard shutdown; WorkerPool.Close is what runs ModuleShutdown
// once, after every worker has exited.
type phpLifecycle struct {
	once        sync.Once
	shutdownOne sync.Once
	initialized bool
	mu          sync.Mutex
}

func (l *phpLifecycle) markInitialized() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.initialized {
		panic("fephp: php module already initialized; re-entry is forbidden")
	}
	l.initialized = true
}

func (l *phpLifecycle) requireInitialized() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.initialized {
		panic("fephp: php module not initialized; worker started before ModuleStartup")
	}
}

// PhpConfig configures the PHP runtime (spec §4.8, §6).
type PhpConfig struct {
	LibraryPath       string
	DocumentRoot      string
	WorkerPoolSize    int
	WorkerMaxRequests int
	OpcacheEnabled    bool
	IniOverrides      map[string]string
}
