// Copyright (c) 2026 The fe-php Authors.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// Command fephpd runs the hybrid PHP application server core behind a
// chi-routed HTTP entrypoint.
package main

import (
	"flag"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	fephp "github.com/nzsys/fe-php"
	"github.com/nzsys/fe-php/internal/config"
)

func main() {
	configPath := flag.String("config", "/etc/fephp/fephp.yaml", "path to the YAML configuration document")
	listenAddr := flag.String("listen", ":8080", "HTTP listen address")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		os.Stderr.WriteString("fephpd: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := fephp.NewLogger(cfg.Log)

	server, err := buildServer(cfg, log.Named("core"))
	if err != nil {
		log.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer server.Close()

	router := chi.NewRouter()
	router.Use(middleware.RealIP)
	router.Use(requestIDMiddleware)
	router.HandleFunc("/*", server.serveHTTP)

	httpServer := &http.Server{Addr: *listenAddr, Handler: router}

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		log.Info("shutting down")
		httpServer.Close()
	}()

	log.Info("listening", "addr", *listenAddr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

// requestIDMiddleware stamps every request with a correlation id (spec's
// ambient logging concern), following the same one-uuid-per-request
// pattern chi's own middleware.RequestID uses, but with a real UUID
// (google/uuid, already present in the retrieval pack via dapr-dapr's
// dependency tree) instead of chi's process-local counter, so ids stay
// unique across restarts and across the fleet.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r)
	})
}

// server adapts net/http to fephp.Dispatcher.
type server struct {
	dispatcher *fephp.Dispatcher
	closers    []interface{ Close() }
}

func (s *server) Close() {
	for _, c := range s.closers {
		c.Close()
	}
}

func (s *server) serveHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	req := &fephp.Request{
		Method:     r.Method,
		Path:       r.URL.Path,
		Query:      r.URL.RawQuery,
		Body:       body,
		RemoteAddr: r.RemoteAddr,
		Scheme:     schemeOf(r),
	}
	for name, values := range r.Header {
		for _, v := range values {
			req.Headers.Add(name, v)
		}
	}

	resp := s.dispatcher.Dispatch(req)

	for _, f := range resp.Headers {
		w.Header().Add(f.Name, f.Value)
	}
	w.WriteHeader(resp.Status)
	w.Write(resp.Body)
}

func schemeOf(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	return "http"
}
