// Package identity provides a deterministic no-op Backend used only by
// tests, the way database/file's FileDatabase stands in for a real
// database connection so schema-diffing logic can be exercised without
// one. It performs no entropy coding at all, which makes unit tests that
// care about CAST's framing (not about LZMA2 itself) fast and exact.
package identity

// Backend implements backend.Backend as the identity function.
type Backend struct{}

// New returns a Backend.
func New() Backend { return Backend{} }

func (Backend) Name() string { return "identity (test double)" }

func (Backend) Compress(data []byte) ([]byte, error) {
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (Backend) Decompress(data []byte) ([]byte, error) {
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}
