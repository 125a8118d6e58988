// Copyright (c) 2026 The fe-php Authors.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package main

import (
	"github.com/hashicorp/go-hclog"

	fephp "github.com/nzsys/fe-php"
)

// buildServer turns a loaded fephp.Config into a running server: the
// static and FastCGI backends always build (they hold no long-lived
// process-wide state beyond a connection pool), the embedded backend
// builds only when php.useFpm is false, since it owns the one-per-process
// PHP module lifecycle (spec §9).
func buildServer(cfg fephp.Config, log hclog.Logger) (*server, error) {
	rules, err := fephp.CompileRoutingRules(cfg.Backend.RoutingRules)
	if err != nil {
		return nil, err
	}
	router := fephp.NewRouter(rules, cfg.Backend.DefaultBackend)

	backends := make(map[fephp.BackendID]fephp.Backend)
	var closers []interface{ Close() }

	staticBackend, err := fephp.NewStaticBackend(cfg.Backend.StaticFiles)
	if err != nil {
		return nil, err
	}
	backends[fephp.BackendStatic] = staticBackend

	fcgiBackend, err := fephp.NewFastCGIBackend(fephp.FastCGIConfig{
		Socket:       cfg.FpmSocket,
		DocumentRoot: cfg.Php.DocumentRoot,
		Pool:         cfg.Pool.ToPoolConfig(),
	})
	if err != nil {
		return nil, err
	}
	backends[fephp.BackendFastCGI] = fcgiBackend
	closers = append(closers, fcgiBackend)

	if !cfg.Php.UseFpm {
		embeddedBackend, err := fephp.NewEmbeddedBackend(fephp.EmbeddedConfig{
			Pool: fephp.WorkerPoolConfig{
				Size:        cfg.Php.WorkerPoolSize,
				MaxRequests: cfg.Php.WorkerMaxRequests,
				Php:         cfg.Php.ToPhpConfig(),
			},
		}, log)
		if err != nil {
			return nil, err
		}
		backends[fephp.BackendEmbedded] = embeddedBackend
		closers = append(closers, embeddedBackend)
	}

	dispatcher := fephp.NewDispatcher(router, backends, log)
	return &server{dispatcher: dispatcher, closers: closers}, nil
}
