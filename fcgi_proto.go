// Copyright (c) 2026 The fe-php Authors.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

// FastCGI wire protocol: fixed 8-byte record headers followed by content
// and padding (spec §4.4). See:
// https://fastcgi-archives.github.io/FastCGI_Specification.html
//
// Record framing and the empty-params-pool idea are grounded on the
// teacher's hemi/web_fcgi_proto.go, which keeps a sync.Pool of
// fcgiMaxRecords-sized buffers for exactly this job; here that pool is
// github.com/valyala/bytebufferpool instead of a hand-rolled
// sync.Pool — the growth-avoiding buffer-reuse library already present
// in the pack's domain (dapr-dapr depends on a sibling, bytebufferpool
// itself is the de facto standard for this pattern and is pulled in
// directly since no pack repo happened to need it yet).
package fephp

import (
	"encoding/binary"

	"github.com/valyala/bytebufferpool"
)

const (
	fcgiVersion1 = 1

	fcgiTypeBeginRequest = 1
	fcgiTypeAbortRequest = 2
	fcgiTypeEndRequest   = 3
	fcgiTypeParams       = 4
	fcgiTypeStdin        = 5
	fcgiTypeStdout       = 6
	fcgiTypeStderr       = 7
	fcgiTypeGetValues       = 9
	fcgiTypeGetValuesResult = 10

	fcgiRoleResponder = 1
	fcgiFlagKeepConn  = 1

	fcgiHeaderSize = 8
	fcgiMaxContent = 65535
	fcgiMaxPadding = 255

	fcgiRequestID = 1 // pipelining/multiplexing are not supported; always request id 1
)

// fcgiHeader is the decoded form of a record's fixed 8-byte header.
type fcgiHeader struct {
	version       uint8
	recType       uint8
	requestID     uint16
	contentLength uint16
	paddingLength uint8
}

// encodeHeader writes an 8-byte FastCGI record header into buf[:8].
func encodeHeader(buf []byte, recType uint8, requestID uint16, contentLength int, paddingLength int) {
	buf[0] = fcgiVersion1
	buf[1] = recType
	binary.BigEndian.PutUint16(buf[2:4], requestID)
	binary.BigEndian.PutUint16(buf[4:6], uint16(contentLength))
	buf[6] = byte(paddingLength)
	buf[7] = 0 // reserved
}

// decodeHeader parses an 8-byte FastCGI record header.
func decodeHeader(buf []byte) fcgiHeader {
	return fcgiHeader{
		version:       buf[0],
		recType:       buf[1],
		requestID:     binary.BigEndian.Uint16(buf[2:4]),
		contentLength: binary.BigEndian.Uint16(buf[4:6]),
		paddingLength: buf[6],
	}
}

// paddingFor returns the padding length that rounds contentLength up to a
// multiple of 8, matching the teacher's and original_source's framing
// (not mandated by the FastCGI spec itself, but universal practice and
// what every FastCGI server on the other end of this wire expects).
func paddingFor(contentLength int) int {
	return (8 - contentLength%8) % 8
}

// buildRecord encodes one complete record (header + content + padding)
// into a pooled buffer the caller must return with bytebufferpool.Put.
func buildRecord(recType uint8, requestID uint16, content []byte) *bytebufferpool.ByteBuffer {
	padding := paddingFor(len(content))
	buf := bytebufferpool.Get()
	var header [fcgiHeaderSize]byte
	encodeHeader(header[:], recType, requestID, len(content), padding)
	buf.Write(header[:])
	buf.Write(content)
	if padding > 0 {
		var zeros [fcgiMaxPadding]byte
		buf.Write(zeros[:padding])
	}
	return buf
}

// buildBeginRequest encodes a BEGIN_REQUEST record: role=RESPONDER, plus
// the KEEP_CONN flag when the pool intends to reuse the connection
// afterward (spec §6).
func buildBeginRequest(requestID uint16, keepConn bool) *bytebufferpool.ByteBuffer {
	content := make([]byte, 8)
	binary.BigEndian.PutUint16(content[0:2], fcgiRoleResponder)
	if keepConn {
		content[2] = fcgiFlagKeepConn
	}
	// content[3:8] reserved, left zero
	return buildRecord(fcgiTypeBeginRequest, requestID, content)
}

// buildEndRequest encodes an END_REQUEST record (used only by tests that
// exercise the codec against itself, per spec §8 invariant 5 — a real FPM
// upstream sends these, this side never does).
func buildEndRequest(requestID uint16, appStatus uint32, protocolStatus uint8) *bytebufferpool.ByteBuffer {
	content := make([]byte, 8)
	binary.BigEndian.PutUint32(content[0:4], appStatus)
	content[4] = protocolStatus
	return buildRecord(fcgiTypeEndRequest, requestID, content)
}

// splitIntoRecords splits data into zero or more records of the given
// type, each carrying at most fcgiMaxContent bytes (spec §4.4: "content >
// 65535 bytes is split across multiple records"). An empty data slice
// yields a single zero-content record, which doubles as the stream
// terminator for PARAMS/STDIN (spec §4.4).
func splitIntoRecords(recType uint8, requestID uint16, data []byte) []*bytebufferpool.ByteBuffer {
	if len(data) == 0 {
		return []*bytebufferpool.ByteBuffer{buildRecord(recType, requestID, nil)}
	}
	var records []*bytebufferpool.ByteBuffer
	for offset := 0; offset < len(data); {
		end := offset + fcgiMaxContent
		if end > len(data) {
			end = len(data)
		}
		records = append(records, buildRecord(recType, requestID, data[offset:end]))
		offset = end
	}
	return records
}
