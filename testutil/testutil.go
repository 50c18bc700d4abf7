// Package testutil provides the round-trip harness shared by every package
// that proves C6's Compress/Decompress pair is lossless, replacing the
// teacher's testutil.RunTest (which drove a DDL-apply/dump/compare cycle
// against a live database) with a compress/decompress/compare cycle over
// CAST's own container format.
package testutil

import (
	"bytes"
	"testing"

	"github.com/k0kubun/cast/backend"
	"github.com/k0kubun/cast/backend/identity"
	"github.com/k0kubun/cast/config"
	"github.com/k0kubun/cast/container"
	"github.com/k0kubun/cast/stream"
)

// RoundTrip compresses input with be and tunables, decompresses it back
// (optionally restricted to [rowStart, rowEnd], container.NoRowFilter for
// the open end), and returns the reconstructed bytes.
func RoundTrip(t *testing.T, input []byte, be backend.Backend, tunables config.Tunables, rowStart, rowEnd int) []byte {
	t.Helper()
	var compressed bytes.Buffer
	if err := stream.Compress(bytes.NewReader(input), &compressed, be, tunables); err != nil {
		t.Fatalf("testutil.RoundTrip: Compress: %v", err)
	}
	data := compressed.Bytes()
	var out bytes.Buffer
	if err := stream.Decompress(bytes.NewReader(data), int64(len(data)), &out, be, rowStart, rowEnd); err != nil {
		t.Fatalf("testutil.RoundTrip: Decompress: %v", err)
	}
	return out.Bytes()
}

// AssertRoundTrip round-trips input through the identity backend and fails
// the test if the reconstructed text doesn't match byte for byte. This is
// the harness most _test.go files in this tree want: a full line-oriented
// string in, the same string expected out.
func AssertRoundTrip(t *testing.T, input string, tunables config.Tunables) string {
	t.Helper()
	got := RoundTrip(t, []byte(input), identity.New(), tunables, container.NoRowFilter, container.NoRowFilter)
	if string(got) != input {
		t.Fatalf("testutil.AssertRoundTrip: mismatch:\n got: %q\nwant: %q", got, input)
	}
	return string(got)
}
