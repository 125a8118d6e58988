// Copyright (c) 2026 The fe-php Authors.
// Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.

package fephp

import "testing"

func TestHeaderRoundTrip(t *testing.T) {
	var buf [fcgiHeaderSize]byte
	encodeHeader(buf[:], fcgiTypeStdout, 1, 300, 4)
	h := decodeHeader(buf[:])
	if h.version != fcgiVersion1 || h.recType != fcgiTypeStdout || h.requestID != 1 || h.contentLength != 300 || h.paddingLength != 4 {
		t.Errorf("decoded header mismatch: %+v", h)
	}
}

func TestPaddingFor(t *testing.T) {
	tests := []struct{ in, want int }{
		{0, 0}, {1, 7}, {7, 1}, {8, 0}, {9, 7}, {65535, 1},
	}
	for _, test := range tests {
		if got := paddingFor(test.in); got != test.want {
			t.Errorf("paddingFor(%d) = %d, want %d", test.in, got, test.want)
		}
	}
}

func TestSplitIntoRecordsEmptyIsTerminator(t *testing.T) {
	recs := splitIntoRecords(fcgiTypeStdin, 1, nil)
	if len(recs) != 1 {
		t.Fatalf("expected exactly one terminator record for empty data, got %d", len(recs))
	}
	h := decodeHeader(recs[0].Bytes()[:fcgiHeaderSize])
	if h.contentLength != 0 {
		t.Errorf("terminator record content length = %d, want 0", h.contentLength)
	}
}

func TestSplitIntoRecordsRespectsMaxContent(t *testing.T) {
	data := make([]byte, fcgiMaxContent+10)
	recs := splitIntoRecords(fcgiTypeStdin, 1, data)
	if len(recs) != 2 {
		t.Fatalf("expected 2 records for %d bytes, got %d", len(data), len(recs))
	}
	first := decodeHeader(recs[0].Bytes()[:fcgiHeaderSize])
	second := decodeHeader(recs[1].Bytes()[:fcgiHeaderSize])
	if int(first.contentLength) != fcgiMaxContent {
		t.Errorf("first record content length = %d, want %d", first.contentLength, fcgiMaxContent)
	}
	if int(second.contentLength) != 10 {
		t.Errorf("second record content length = %d, want 10", second.contentLength)
	}
}

func TestBuildRecordPadsToMultipleOfEight(t *testing.T) {
	rec := buildRecord(fcgiTypeStdin, 1, []byte("abc"))
	total := len(rec.Bytes()) - fcgiHeaderSize
	if total%8 != 0 {
		t.Errorf("record body length %d is not a multiple of 8", total)
	}
}
