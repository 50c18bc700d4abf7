// Package backend defines CAST's entropy-codec contract (§6): a pair of
// pure, synchronous operations, Compress and Decompress, that the core
// transform treats as an opaque collaborator. It plays the role that
// database.Database plays for sqldef's schema adapters — one small
// interface, several interchangeable implementations selected at runtime
// by a config/flag value instead of compile-time wiring.
package backend

import "fmt"

// Backend is the entropy codec contract from spec §6. Both operations are
// synchronous and must be safe to call concurrently on independent byte
// slices: the core relies on this to fan out Split-layout compression and
// decompression with errgroup (see stream.flushTextBlock and
// stream.Decompress).
type Backend interface {
	// Name identifies the backend for logging and --verbose dumps.
	Name() string
	// Compress is lossless; an empty input may return empty output.
	Compress(data []byte) ([]byte, error)
	// Decompress is Compress's inverse; empty input must return empty output.
	Decompress(data []byte) ([]byte, error)
}

// Kind selects a Backend implementation, mirroring the original's
// RuntimeLzmaCompressor tagged union (native in-process xz vs. an external
// 7-Zip subprocess).
type Kind string

const (
	// Native runs LZMA2/XZ in-process via backend/native.
	Native Kind = "native"
	// SevenZip shells out to a 7z/7za executable via backend/sevenzip.
	SevenZip Kind = "7zip"
	// Auto picks SevenZip if a 7z executable is found on PATH, else Native.
	Auto Kind = "auto"
)

// Config configures backend construction, independent of which Kind is chosen.
type Config struct {
	DictSize    uint32
	Multithread bool
}

// Factory constructs a Backend for a resolved Kind. Implementations live in
// backend/native and backend/sevenzip; wiring them here (rather than
// importing both unconditionally from this package) keeps the os/exec
// dependency optional for callers that never need it, the same separation
// database/mysql and database/postgres keep from the shared database package.
type Factory func(Config) (Backend, error)

// Resolve picks a concrete Kind given a requested one and whether a 7-Zip
// executable was found, mirroring the original's try_find_7zip_path fallback.
func Resolve(requested Kind, sevenZipAvailable bool) Kind {
	switch requested {
	case SevenZip:
		if sevenZipAvailable {
			return SevenZip
		}
		return Native
	case Native:
		return Native
	default: // Auto or empty
		if sevenZipAvailable {
			return SevenZip
		}
		return Native
	}
}

// ErrUnknownKind is returned by a Factory dispatcher for an unrecognized Kind.
func ErrUnknownKind(k Kind) error {
	return fmt.Errorf("backend: unknown kind %q", k)
}
