// Command cast implements the CAST CLI (spec §6): a compress/decompress
// front end over the stream package, in the same "thin command wiring
// config/database/parser together" shape as cmd/mysqldef/mysqldef.go.
package main

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/k0kubun/pp/v3"

	"github.com/k0kubun/cast/backend"
	"github.com/k0kubun/cast/backend/native"
	"github.com/k0kubun/cast/backend/sevenzip"
	"github.com/k0kubun/cast/config"
	"github.com/k0kubun/cast/container"
	"github.com/k0kubun/cast/stream"
	"github.com/k0kubun/cast/util"
)

// chunkSizeSampleLines is how many leading lines SPEC_FULL.md's --chunk-size
// algorithm samples to estimate the average line length.
const chunkSizeSampleLines = 1000

func main() {
	util.InitSlog()
	opts := parseOptions(os.Args[1:])

	tunables, err := config.Load(opts.Config)
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}
	chunkBytes, err := parseChunkSize(opts.ChunkSize)
	if err != nil {
		slog.Error("parsing --chunk-size", "error", err)
		os.Exit(1)
	}
	if opts.DictSize > 0 {
		tunables.DictSize = uint32(opts.DictSize)
	}

	be, err := resolveBackend(opts, tunables)
	if err != nil {
		slog.Error("resolving backend", "error", err)
		os.Exit(1)
	}
	if opts.Verbose {
		slog.Info("selected backend", "name", be.Name())
		pp.Fprintln(os.Stderr, tunables)
	}

	var input io.Reader = os.Stdin
	if opts.File != "" && opts.Compress {
		f, err := os.Open(opts.File)
		if err != nil {
			slog.Error("opening input file", "error", err)
			os.Exit(1)
		}
		defer f.Close()
		input = f
	}

	if opts.Compress {
		if chunkBytes > 0 {
			sample, rest := sampleLeadingLines(input, chunkSizeSampleLines)
			tunables.RowBudget = rowBudgetForChunkSize(chunkBytes, sample)
			input = io.MultiReader(bytes.NewReader(sample), rest)
			if opts.Verbose {
				slog.Info("derived row budget from --chunk-size", "chunk_bytes", chunkBytes, "row_budget", tunables.RowBudget)
			}
		}
		if err := stream.Compress(input, os.Stdout, be, tunables); err != nil {
			slog.Error("compress failed", "error", err)
			os.Exit(1)
		}
		return
	}

	if opts.Verify != "" {
		f, err := os.Open(opts.Verify)
		if err != nil {
			slog.Error("opening file to verify", "error", err)
			os.Exit(1)
		}
		defer f.Close()
		info, err := f.Stat()
		if err != nil {
			slog.Error("stating file to verify", "error", err)
			os.Exit(1)
		}
		err = stream.Decompress(f, info.Size(), io.Discard, be, container.NoRowFilter, container.NoRowFilter)
		if err != nil {
			if errors.Is(err, stream.ErrCRCMismatch) || errors.Is(err, container.ErrCorrupted) {
				slog.Error("verify failed: archive is corrupted", "file", opts.Verify, "error", err)
			} else {
				slog.Error("verify failed", "file", opts.Verify, "error", err)
			}
			os.Exit(1)
		}
		slog.Info("verify OK", "file", opts.Verify)
		return
	}

	start, end, err := parseRowRange(opts.Rows)
	if err != nil {
		slog.Error("parsing --rows", "error", err)
		os.Exit(1)
	}

	ra, size, closeFn, err := openReaderAt(opts)
	if err != nil {
		slog.Error("opening compressed input", "error", err)
		os.Exit(1)
	}
	defer closeFn()

	if opts.Verbose {
		if entries, finalLineUnterminated, err := container.ReadFooter(ra, size); err == nil {
			pp.Fprintln(os.Stderr, entries)
			slog.Info("footer", "row_groups", len(entries), "final_line_unterminated", finalLineUnterminated)
		}
	}

	if err := stream.Decompress(ra, size, os.Stdout, be, start, end); err != nil {
		slog.Error("decompress failed", "error", err)
		os.Exit(1)
	}
}

// openReaderAt provides random access to the compressed input, which the
// container footer requires (spec §4.7: "the footer is read first, from
// the end of the file"). A real file is opened directly; stdin is buffered
// into memory first since os.Stdin has no ReadAt.
func openReaderAt(opts *options) (io.ReaderAt, int64, func() error, error) {
	if opts.File != "" {
		f, err := os.Open(opts.File)
		if err != nil {
			return nil, 0, nil, err
		}
		info, err := f.Stat()
		if err != nil {
			f.Close()
			return nil, 0, nil, err
		}
		return f, info.Size(), f.Close, nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return nil, 0, nil, err
	}
	r := bytes.NewReader(data)
	return r, int64(len(data)), func() error { return nil }, nil
}

// sampleLeadingLines reads up to n lines from r, returning the exact bytes
// consumed (so they can be replayed ahead of the rest of the stream) and a
// reader that continues exactly where the sample left off.
func sampleLeadingLines(r io.Reader, n int) (sample []byte, rest io.Reader) {
	br := bufio.NewReaderSize(r, 64*1024)
	var buf bytes.Buffer
	for i := 0; i < n; i++ {
		line, err := br.ReadBytes('\n')
		buf.Write(line)
		if err != nil {
			break
		}
	}
	return buf.Bytes(), br
}

// rowBudgetForChunkSize implements SPEC_FULL.md's --chunk-size algorithm:
// rows = max(100, chunkBytes / avgLineLen), where avgLineLen is sampled from
// the leading lines of the input.
func rowBudgetForChunkSize(chunkBytes uint64, sample []byte) int {
	lines := bytes.Split(bytes.TrimSuffix(sample, []byte{'\n'}), []byte{'\n'})
	if len(lines) == 0 || (len(lines) == 1 && len(lines[0]) == 0) {
		return 100
	}
	lengths := util.TransformSlice(lines, func(l []byte) int { return len(l) + 1 })
	avg := util.SumSlice(lengths) / len(lengths)
	if avg < 1 {
		avg = 1
	}
	rows := int(chunkBytes) / avg
	if rows < 100 {
		rows = 100
	}
	return rows
}

// resolveBackend picks and constructs a backend.Backend per --mode,
// mirroring the original's try_find_7zip_path/RuntimeLzmaCompressor choice.
func resolveBackend(opts *options, t config.Tunables) (backend.Backend, error) {
	exe, found := sevenzip.Find()
	kind := backend.Resolve(opts.backendKind(), found)

	cfg := backend.Config{DictSize: t.DictSize, Multithread: opts.Multithread}
	switch kind {
	case backend.SevenZip:
		return sevenzip.New(cfg, exe)
	case backend.Native:
		return native.New(cfg)
	default:
		return nil, fmt.Errorf("unresolved backend kind %q", kind)
	}
}
