// Copyright (c) 2026 The fe-php Authors.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

//go:build !fephp_embed

package fephp

import "os"

// noopRuntime is the default PhpRuntime when the binary is built without
// the fephp_embed tag. It still exercises the full worker pool lifecycle —
// init_once, per-thread setup, recycling, shutdown_once — without a real
// libphp present. Execute returns an InternalError-kind error wrapping
// ErrRuntimeNotReady (or NotFound when the script path does not exist);
// the Dispatcher does not fall back to another backend. This mirrors original_source/src/php/ffi.rs's own eval_code,
// which never got past a stub returning "use_fpm=true" either.
type noopRuntime struct {
	lifecycle phpLifecycle
}

func newPhpRuntime() PhpRuntime {
	return &noopRuntime{}
}

func (r *noopRuntime) ModuleStartup(cfg PhpConfig) error {
	r.lifecycle.markInitialized()
	return nil
}

func (r *noopRuntime) ModuleShutdown() {}

func (r *noopRuntime) PerThreadInit() error {
	r.lifecycle.requireInitialized()
	return nil
}

func (r *noopRuntime) Execute(req *Request, scriptPath string, serverVars []HeaderField) (*Response, error) {
	r.lifecycle.requireInitialized()
	if _, err := os.Stat(scriptPath); err != nil {
		return nil, newError(KindNotFound, "script not found", err)
	}
	return nil, newError(KindInternalError,
		"embedded php runtime not built (rebuild with -tags fephp_embed, or set php.useFpm: true)",
		ErrRuntimeNotReady)
}
