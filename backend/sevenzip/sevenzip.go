// Package sevenzip implements backend.Backend by shelling out to an
// external 7z/7za executable, the external-process counterpart to
// backend/native. This mirrors the original's SevenZipBackend and
// try_find_7zip_path: CAST's core never requires 7-Zip, but will use it
// when present because it tends to out-compress the pure-Go codec on
// highly repetitive columnar data.
package sevenzip

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/k0kubun/cast/backend"
)

// Backend drives a 7z-compatible executable as a subprocess. Each call
// round-trips through a temporary directory because 7z's archive formats
// are not naturally streamable over stdin/stdout for both a and x.
type Backend struct {
	exe      string
	dictSize uint32
}

// New constructs a Backend bound to exe (as resolved by Find).
func New(cfg backend.Config, exe string) (*Backend, error) {
	if exe == "" {
		return nil, fmt.Errorf("sevenzip backend: no executable given")
	}
	return &Backend{exe: exe, dictSize: cfg.DictSize}, nil
}

func (b *Backend) Name() string { return fmt.Sprintf("7zip (%s)", filepath.Base(b.exe)) }

// Find looks for a 7z/7za executable on PATH, mirroring try_find_7zip_path.
func Find() (string, bool) {
	for _, candidate := range []string{"7zz", "7z", "7za"} {
		if path, err := exec.LookPath(candidate); err == nil {
			return path, true
		}
	}
	return "", false
}

func (b *Backend) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	dir, err := os.MkdirTemp("", "cast-7z-")
	if err != nil {
		return nil, fmt.Errorf("sevenzip backend: temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	inPath := filepath.Join(dir, "block.bin")
	outPath := filepath.Join(dir, "block.xz")
	if err := os.WriteFile(inPath, data, 0o600); err != nil {
		return nil, fmt.Errorf("sevenzip backend: writing input: %w", err)
	}

	args := []string{"a", "-txz", "-mx=9", "-bd", "-y"}
	if b.dictSize > 0 {
		args = append(args, fmt.Sprintf("-m0=lzma2:d=%d", b.dictSize))
	}
	args = append(args, outPath, inPath)

	cmd := exec.Command(b.exe, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("sevenzip backend: %s: %w: %s", b.exe, err, stderr.String())
	}

	out, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("sevenzip backend: reading output: %w", err)
	}
	return out, nil
}

func (b *Backend) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	dir, err := os.MkdirTemp("", "cast-7z-")
	if err != nil {
		return nil, fmt.Errorf("sevenzip backend: temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	inPath := filepath.Join(dir, "block.xz")
	if err := os.WriteFile(inPath, data, 0o600); err != nil {
		return nil, fmt.Errorf("sevenzip backend: writing input: %w", err)
	}

	cmd := exec.Command(b.exe, "e", "-y", "-o"+dir, inPath)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("sevenzip backend: %s: %w: %s", b.exe, err, stderr.String())
	}

	out, err := os.ReadFile(filepath.Join(dir, "block.bin"))
	if err != nil {
		return nil, fmt.Errorf("sevenzip backend: reading output: %w", err)
	}
	return out, nil
}
