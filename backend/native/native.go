// Package native implements backend.Backend in-process using a pure-Go
// LZMA2/XZ codec, the way database/mysql implements database.Database on
// top of a real driver package instead of shelling out.
package native

import (
	"bytes"
	"fmt"
	"io"

	"github.com/ulikunitz/xz"

	"github.com/k0kubun/cast/backend"
)

// Backend compresses with the XZ container format (LZMA2 filter, CRC32
// integrity check), matching spec §6's backend contract: preset-9-extreme
// equivalent compression with a configurable dictionary size, default
// 128 MiB.
type Backend struct {
	dictCap int
}

// New constructs a native XZ Backend from cfg. DictSize of 0 falls back to
// a 128 MiB dictionary capacity.
func New(cfg backend.Config) (*Backend, error) {
	dictCap := int(cfg.DictSize)
	if dictCap <= 0 {
		dictCap = 128 * 1024 * 1024
	}
	if dictCap > xz.MaxDictCap {
		dictCap = xz.MaxDictCap
	}
	return &Backend{dictCap: dictCap}, nil
}

func (b *Backend) Name() string { return "native (xz/lzma2)" }

func (b *Backend) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var out bytes.Buffer
	cfg := xz.WriterConfig{
		DictCap:      b.dictCap,
		CheckSum:     xz.CRC32,
		SizeHint:     int64(len(data)),
	}
	w, err := cfg.NewWriter(&out)
	if err != nil {
		return nil, fmt.Errorf("native backend: opening writer: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return nil, fmt.Errorf("native backend: compressing: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("native backend: finishing stream: %w", err)
	}
	return out.Bytes(), nil
}

func (b *Backend) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	r, err := xz.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("native backend: opening reader: %w", err)
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("native backend: decompressing: %w", err)
	}
	return out, nil
}
