// Copyright (c) 2026 The fe-php Authors.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package fephp

import (
	"errors"

	"github.com/hashicorp/go-hclog"
)

// Dispatcher is the single entry point: (Request) -> Backend -> Response.
// It consults the Router once per request and never retries — retrying
// across backends would silently mask a configuration mistake (spec §4.2),
// so a backend error is mapped straight to a Response and returned.
type Dispatcher struct {
	router   *Router
	backends map[BackendID]Backend
	log      hclog.Logger
}

// NewDispatcher builds a Dispatcher over router and the given backend
// table. It panics if router's default backend is missing from backends:
// that is a wiring bug in the caller, not a request-time condition. Rule
// backends are not checked here; a rule that resolves to an unregistered
// backend makes Dispatch answer 500.
func NewDispatcher(router *Router, backends map[BackendID]Backend, log hclog.Logger) *Dispatcher {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	if _, ok := backends[router.DefaultBackend()]; !ok {
		panic("fephp: default backend " + string(router.DefaultBackend()) + " not registered")
	}
	return &Dispatcher{router: router, backends: backends, log: log.Named("dispatcher")}
}

// Dispatch resolves req's backend, runs it, and converts any error into a
// Response per spec §7. It never panics on a backend error and never
// partially commits a response: backends fully buffer headers and body
// before returning, so there is nothing to roll back here.
func (d *Dispatcher) Dispatch(req *Request) *Response {
	id := d.router.Resolve(req.Path)
	backend, ok := d.backends[id]
	if !ok {
		// Router resolved to a backend id nothing registered; this is a
		// wiring mistake, not a request-time condition, but must never
		// take the process down mid-request.
		return errorResponse(newError(KindInternalError, "no backend registered for "+string(id), nil))
	}

	resp, err := backend.Handle(req)
	if err != nil {
		var be *BackendError
		if !errors.As(err, &be) {
			be = newError(KindInternalError, err.Error(), err)
		}
		d.log.Debug("backend error", "backend", id, "path", req.Path, "kind", be.Kind, "error", be.Error())
		return errorResponse(be)
	}
	return resp
}

// errorResponse renders a BackendError as a minimal Response.
func errorResponse(be *BackendError) *Response {
	status := be.Kind.httpStatus()
	// Content-Range for a 416 is resource-size-specific; the static backend
	// sets it itself and returns its *Response directly rather than through
	// this generic error path, so nothing further is needed here.
	resp := &Response{Status: status, Body: []byte(be.Message)}
	resp.Headers.Add("Content-Type", "text/plain; charset=utf-8")
	return resp
}
