// Copyright (c) 2026 The fe-php Authors.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package fephp

import (
	"context"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/valyala/bytebufferpool"
)

// FastCGIConfig configures a FastCGIBackend (spec §4.5, §6).
type FastCGIConfig struct {
	Socket       string // fpm_socket: "host:port" or an absolute/"unix:" path
	DocumentRoot string
	IndexFiles   []string
	ServerName   string
	ServerPort   int
	ReadTimeout  time.Duration
	Pool         PoolConfig
}

// FastCGIBackend orchestrates one request: params + stdin -> response
// (spec §4.5).
type FastCGIBackend struct {
	cfg  FastCGIConfig
	pool *ConnPool
}

// NewFastCGIBackend builds a FastCGIBackend with its own connection pool.
func NewFastCGIBackend(cfg FastCGIConfig) (*FastCGIBackend, error) {
	if len(cfg.IndexFiles) == 0 {
		cfg.IndexFiles = []string{"index.php"}
	}
	pool, err := NewConnPool(cfg.Socket, cfg.Pool)
	if err != nil {
		return nil, err
	}
	return &FastCGIBackend{cfg: cfg, pool: pool}, nil
}

// Close releases the backend's connection pool.
func (b *FastCGIBackend) Close() { b.pool.Close() }

// resolveScript maps a request path to a file under document_root (spec
// §4.5): a trailing "/" gets the first index file appended; if the
// resolved file does not exist but its parent directory does, the path is
// returned unchanged so the upstream PHP-FPM can 404 it itself. Path
// escape rules mirror the static backend's (spec §4.3).
func (b *FastCGIBackend) resolveScript(urlPath string) (scriptPath, scriptName string, err error) {
	if strings.Contains(urlPath, "\x00") || strings.Contains(urlPath, "\\") {
		return "", "", newError(KindForbidden, "invalid path", nil)
	}
	for _, seg := range strings.Split(urlPath, "/") {
		if seg == ".." {
			return "", "", newError(KindForbidden, "path escapes document root", nil)
		}
	}

	scriptName = urlPath
	if strings.HasSuffix(scriptName, "/") {
		scriptName += b.cfg.IndexFiles[0]
	}

	full := filepath.Join(b.cfg.DocumentRoot, filepath.FromSlash(scriptName))
	root, err := filepath.Abs(b.cfg.DocumentRoot)
	if err != nil {
		return "", "", newError(KindInternalError, "bad document root", err)
	}
	if !isWithinRoot(full, root) {
		return "", "", newError(KindForbidden, "path escapes document root", nil)
	}

	if _, statErr := os.Stat(full); statErr != nil {
		if parentInfo, parentErr := os.Stat(filepath.Dir(full)); parentErr == nil && parentInfo.IsDir() {
			return full, scriptName, nil // let PHP-FPM 404 it
		}
		return "", "", newError(KindNotFound, "script not found", nil)
	}

	return full, scriptName, nil
}

// Handle implements Backend.
func (b *FastCGIBackend) Handle(req *Request) (*Response, error) {
	scriptPath, scriptName, err := b.resolveScript(req.Path)
	if err != nil {
		return nil, err
	}

	params := buildCGIParams(req, scriptPath, scriptName, b.cfg.DocumentRoot, b.cfg.ServerName, b.cfg.ServerPort)

	ctx, cancel := context.WithTimeout(context.Background(), b.cfg.Pool.AcquireTimeout)
	defer cancel()

	stdout, err := b.roundTrip(ctx, params, req.Body)
	if err != nil {
		return nil, err
	}

	cgi := parseCGIResponse(stdout)
	return &Response{Status: cgi.status, Headers: cgi.headers, Body: cgi.body}, nil
}

// roundTrip acquires a connection, sends one full FastCGI request, and
// reads the response (spec §4.5's wire sequence). A failed acquire or a
// failed write is retried once, with backoff/v4's
// WithMaxRetries(NewConstantBackOff(0), 1); a write failure is retried
// even when part of the request had already been written to the failed
// connection. Once the whole request has been written, attemptOnce marks
// any failure backoff.Permanent, so a request that reached the upstream
// is never sent a second time.
func (b *FastCGIBackend) roundTrip(ctx context.Context, params []HeaderField, body []byte) ([]byte, error) {
	var stdout []byte
	op := func() error {
		out, err := b.attemptOnce(ctx, params, body)
		if err != nil {
			return err
		}
		stdout = out
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(0), 1), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		if be, ok := err.(*BackendError); ok {
			return nil, be
		}
		return nil, newError(KindBadGateway, "fastcgi round trip failed", err)
	}
	return stdout, nil
}

func (b *FastCGIBackend) attemptOnce(ctx context.Context, params []HeaderField, body []byte) ([]byte, error) {
	conn, release, err := b.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	ok := false
	defer func() { release(ok) }()

	if b.cfg.ReadTimeout > 0 {
		conn.SetDeadline(time.Now().Add(b.cfg.ReadTimeout))
	}

	if err := writeRequest(conn, params, body); err != nil {
		return nil, newError(KindBadGateway, "fastcgi write failed", err)
	}

	// The request has now been sent. Per spec §5, if the caller abandons
	// this call from here on, we send ABORT_REQUEST best-effort and retire
	// the connection rather than returning it to the pool.
	type result struct {
		stdout, stderr []byte
		err            error
	}
	done := make(chan result, 1)
	go func() {
		stdout, stderr, err := readResponse(conn)
		done <- result{stdout, stderr, err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			if ne, is := res.err.(net.Error); is && ne.Timeout() {
				return nil, backoff.Permanent(newError(KindGatewayTimeout, "fastcgi read timed out", res.err))
			}
			return nil, backoff.Permanent(newError(KindBadGateway, "fastcgi read failed", res.err))
		}
		_ = res.stderr // surfaced to logs by the caller's collaborator, not by this backend
		ok = true
		return res.stdout, nil
	case <-ctx.Done():
		abort := buildRecord(fcgiTypeAbortRequest, fcgiRequestID, nil)
		conn.Write(abort.Bytes()) // best-effort; connection is retired regardless
		bytebufferpool.Put(abort)
		return nil, backoff.Permanent(newError(KindGatewayTimeout, "fastcgi request cancelled", ctx.Err()))
	}
}

// writeRequest sends BEGIN_REQUEST, PARAMS (+ terminator), and STDIN (+
// terminator) in order (spec §4.5's wire sequence).
func writeRequest(conn net.Conn, params []HeaderField, body []byte) error {
	begin := buildBeginRequest(fcgiRequestID, true)
	defer bytebufferpool.Put(begin)
	if _, err := conn.Write(begin.Bytes()); err != nil {
		return err
	}

	encoded := encodeParams(params)
	for _, rec := range splitIntoRecords(fcgiTypeParams, fcgiRequestID, encoded) {
		_, err := conn.Write(rec.Bytes())
		bytebufferpool.Put(rec)
		if err != nil {
			return err
		}
	}
	empty := buildRecord(fcgiTypeParams, fcgiRequestID, nil)
	_, err := conn.Write(empty.Bytes())
	bytebufferpool.Put(empty)
	if err != nil {
		return err
	}

	// splitIntoRecords turns empty data into a zero-content record, so the
	// body loop runs only for a non-empty body; the terminator below is
	// then the one and only zero-content STDIN record.
	if len(body) > 0 {
		for _, rec := range splitIntoRecords(fcgiTypeStdin, fcgiRequestID, body) {
			_, err := conn.Write(rec.Bytes())
			bytebufferpool.Put(rec)
			if err != nil {
				return err
			}
		}
	}
	// The zero-content STDIN record terminates the stream and must be sent
	// even for a bodyless request: PHP-FPM waits for it before executing
	// the script, body or not.
	emptyStdin := buildRecord(fcgiTypeStdin, fcgiRequestID, nil)
	_, err = conn.Write(emptyStdin.Bytes())
	bytebufferpool.Put(emptyStdin)
	if err != nil {
		return err
	}

	return nil
}

// readResponse accumulates STDOUT until END_REQUEST, collecting STDERR
// separately (spec §4.4's decoding rules).
func readResponse(conn net.Conn) (stdout, stderr []byte, err error) {
	header := make([]byte, fcgiHeaderSize)
	for {
		if _, err = io.ReadFull(conn, header); err != nil {
			return nil, nil, err
		}
		h := decodeHeader(header)

		content := make([]byte, h.contentLength)
		if h.contentLength > 0 {
			if _, err = io.ReadFull(conn, content); err != nil {
				return nil, nil, err
			}
		}
		if h.paddingLength > 0 {
			padding := make([]byte, h.paddingLength)
			if _, err = io.ReadFull(conn, padding); err != nil {
				return nil, nil, err
			}
		}

		switch h.recType {
		case fcgiTypeStdout:
			stdout = append(stdout, content...)
		case fcgiTypeStderr:
			stderr = append(stderr, content...)
		case fcgiTypeEndRequest:
			return stdout, stderr, nil
		}
	}
}

