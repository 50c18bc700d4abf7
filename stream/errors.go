// Package stream implements the CAST Streaming Pipeline (C6): the
// Accumulating/Flushing/BinaryPassthrough state machine that drives C1-C5
// and the container format over a plain io.Reader/io.Writer pair, the way
// database/concurrent.go drives independent adapter calls without owning
// their internals. Compress and Decompress are this package's only public
// entry points; everything else is line buffering and block bookkeeping.
package stream

import "errors"

// ErrCRCMismatch is returned when a decoded row-group's reconstructed
// bytes don't match the CRC32 recorded for it at compression time (spec §7).
var ErrCRCMismatch = errors.New("stream: crc32 mismatch")
