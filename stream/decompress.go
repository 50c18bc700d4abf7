package stream

import (
	"bytes"
	"fmt"
	"hash/crc32"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/k0kubun/cast/backend"
	"github.com/k0kubun/cast/block"
	"github.com/k0kubun/cast/container"
	"github.com/k0kubun/cast/util"
)

// Decompress reads the CAST container format from ra (size bytes long) and
// writes the reconstructed original lines to w, optionally restricted to a
// 1-based inclusive [rowStart, rowEnd] line range (container.NoRowFilter for
// either bound selects the open end of the range). be must match the
// backend used at compression time.
func Decompress(ra io.ReaderAt, size int64, w io.Writer, be backend.Backend, rowStart, rowEnd int) error {
	entries, finalLineUnterminated, err := container.ReadFooter(ra, size)
	if err != nil {
		return err
	}

	var rowCounts []int
	for _, e := range entries {
		if e.Kind == container.KindPassthrough && e.Rows == 0 {
			continue
		}
		rowCounts = append(rowCounts, int(e.Rows))
	}
	totalRows := util.SumSlice(rowCounts)

	start0, end0 := container.NoRowFilter, container.NoRowFilter
	if rowStart != container.NoRowFilter || rowEnd != container.NoRowFilter {
		start0 = 0
		if rowStart != container.NoRowFilter {
			start0 = rowStart - 1
		}
		end0 = totalRows - 1
		if rowEnd != container.NoRowFilter {
			end0 = rowEnd - 1
		}
	}

	selected, globalStart := container.RowRange(entries, start0, end0)

	var out bytes.Buffer
	coversLastRow := end0 == container.NoRowFilter || end0 >= totalRows-1

	for i, e := range selected {
		raw := make([]byte, e.Size)
		if _, err := ra.ReadAt(raw, int64(e.Start)); err != nil {
			return fmt.Errorf("stream: reading row-group: %w", err)
		}

		switch e.Kind {
		case container.KindPassthrough:
			decompressed, err := be.Decompress(raw)
			if err != nil {
				return err
			}
			if crc32.ChecksumIEEE(decompressed) != e.CRC32 {
				return ErrCRCMismatch
			}
			if e.Rows == 0 {
				out.Write(decompressed)
				continue
			}
			if err := writeFilteredLines(&out, decompressed, int(e.Rows), globalStart[i], start0, end0); err != nil {
				return err
			}

		case container.KindUnified:
			decompressed, err := be.Decompress(raw)
			if err != nil {
				return err
			}
			decoded, err := block.DecodeUnified(decompressed)
			if err != nil {
				return err
			}
			if err := verifyCRC(decoded, e.CRC32); err != nil {
				return err
			}
			if err := decoded.WriteLines(&out, globalStart[i], start0Or(start0), end0Or(end0)); err != nil {
				return err
			}

		case container.KindSplit:
			if uint64(e.RegistrySize)+uint64(e.IDSize) > uint64(len(raw)) {
				return fmt.Errorf("stream: %w: split sizes exceed row-group size", container.ErrCorrupted)
			}
			cRegistry := raw[:e.RegistrySize]
			cIDs := raw[e.RegistrySize : e.RegistrySize+e.IDSize]
			cVars := raw[e.RegistrySize+e.IDSize:]

			var registry, ids, vars []byte
			var g errgroup.Group
			g.Go(func() (err error) { registry, err = be.Decompress(cRegistry); return })
			g.Go(func() (err error) { ids, err = be.Decompress(cIDs); return })
			g.Go(func() (err error) { vars, err = be.Decompress(cVars); return })
			if err := g.Wait(); err != nil {
				return err
			}

			decoded, err := block.DecodeSplit(e.Flag, registry, ids, vars, int(e.Rows))
			if err != nil {
				return err
			}
			if err := verifyCRC(decoded, e.CRC32); err != nil {
				return err
			}
			if err := decoded.WriteLines(&out, globalStart[i], start0Or(start0), end0Or(end0)); err != nil {
				return err
			}

		default:
			return fmt.Errorf("stream: %w: unknown row-group kind %d", container.ErrCorrupted, e.Kind)
		}
	}

	result := out.Bytes()
	if finalLineUnterminated && coversLastRow && len(result) > 0 && result[len(result)-1] == '\n' {
		result = result[:len(result)-1]
	}
	_, err = w.Write(result)
	return err
}

// start0Or/end0Or translate the sentinel NoRowFilter into the wide-open
// bounds block.Decoded.WriteLines expects (it has no sentinel of its own).
func start0Or(v int) int {
	if v == container.NoRowFilter {
		return 0
	}
	return v
}

func end0Or(v int) int {
	if v == container.NoRowFilter {
		return int(^uint(0) >> 1) // max int
	}
	return v
}

func verifyCRC(decoded *block.Decoded, want uint32) error {
	var full bytes.Buffer
	if err := decoded.WriteLines(&full, 0, 0, decoded.Rows-1); err != nil {
		return err
	}
	if crc32.ChecksumIEEE(full.Bytes()) != want {
		return ErrCRCMismatch
	}
	return nil
}

// writeFilteredLines splits a passthrough row-group's reconstructed bytes
// back into lines and writes only those whose global index falls within
// [rowStart, rowEnd] (NoRowFilter bounds select everything).
func writeFilteredLines(out *bytes.Buffer, decompressed []byte, rows int, globalStart int, rowStart, rowEnd int) error {
	lines := bytes.SplitAfter(decompressed, []byte{'\n'})
	if len(lines) > 0 && len(lines[len(lines)-1]) == 0 {
		lines = lines[:len(lines)-1]
	}
	if len(lines) != rows {
		return fmt.Errorf("stream: %w: passthrough line count mismatch", container.ErrCorrupted)
	}
	for i, line := range lines {
		global := globalStart + i
		if rowStart != container.NoRowFilter && global < rowStart {
			continue
		}
		if rowEnd != container.NoRowFilter && global > rowEnd {
			continue
		}
		out.Write(line)
	}
	return nil
}
