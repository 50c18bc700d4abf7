// Package container implements CAST's Container Format (C7): row-group
// framing and the trailing footer that makes random-access decompression
// possible (spec §3, §4.7). It owns no transform logic of its own — it is
// the self-describing envelope block and stream bytes live inside, the way
// database/file.FileDatabase wraps raw SQL text without interpreting it.
package container

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Kind identifies how a row-group's bytes were produced.
type Kind uint8

const (
	// KindUnified is a CAST-encoded block using the Unified layout (block.EncodeUnified).
	KindUnified Kind = 0
	// KindPassthrough stores the original bytes compressed by the backend directly.
	KindPassthrough Kind = 1
	// KindSplit is a CAST-encoded block using the Split layout (block.EncodeSplit):
	// three independently-compressed blobs concatenated in Entry.Size.
	KindSplit Kind = 2
)

// magic identifies the container format version (spec §6: "the 5-byte
// magic 'C','A','S','T',0x01 identifies the version").
var magic = [5]byte{'C', 'A', 'S', 'T', 0x01}

// Entry is one row-group's footer record. The wire layout extends spec §3's
// literal (start, size, rows, kind) with the fields SPEC_FULL's CRC32 and
// Split-layout decisions require: CRC32 (§3 invariant 6, made explicit),
// and, for KindSplit, Flag/RegistrySize/IDSize so the decoder can split the
// concatenated blob back into its three parts without a Unified header.
type Entry struct {
	Start uint64 // byte offset of this row-group in the file
	Size  uint64 // byte length of this row-group's (possibly multi-blob) data
	Rows  uint64 // number of input lines this row-group covers (0 for binary passthrough chunks)
	CRC32 uint32 // CRC32 of the row-group's reconstructed original bytes
	Kind  Kind

	// Flag is block.MakeFlag's output; meaningful only for KindSplit (a
	// Unified block carries its flag in its own header and leaves this 0).
	Flag byte
	// RegistrySize and IDSize are the compressed blob sizes for KindSplit;
	// the variables blob size is Size - RegistrySize - IDSize.
	RegistrySize uint32
	IDSize       uint32
}

const entrySize = 8 + 8 + 8 + 4 + 1 + 1 + 4 + 4 // 38 bytes

// footerTrailerSize is the u64 footer_start plus the 5-byte magic.
const footerTrailerSize = 8 + len(magic)

func writeEntry(w io.Writer, e Entry) error {
	var buf [entrySize]byte
	binary.LittleEndian.PutUint64(buf[0:8], e.Start)
	binary.LittleEndian.PutUint64(buf[8:16], e.Size)
	binary.LittleEndian.PutUint64(buf[16:24], e.Rows)
	binary.LittleEndian.PutUint32(buf[24:28], e.CRC32)
	buf[28] = byte(e.Kind)
	buf[29] = e.Flag
	binary.LittleEndian.PutUint32(buf[30:34], e.RegistrySize)
	binary.LittleEndian.PutUint32(buf[34:38], e.IDSize)
	_, err := w.Write(buf[:])
	return err
}

func readEntry(data []byte) (Entry, error) {
	if len(data) < entrySize {
		return Entry{}, fmt.Errorf("container: %w: truncated footer entry", ErrCorrupted)
	}
	return Entry{
		Start:        binary.LittleEndian.Uint64(data[0:8]),
		Size:         binary.LittleEndian.Uint64(data[8:16]),
		Rows:         binary.LittleEndian.Uint64(data[16:24]),
		CRC32:        binary.LittleEndian.Uint32(data[24:28]),
		Kind:         Kind(data[28]),
		Flag:         data[29],
		RegistrySize: binary.LittleEndian.Uint32(data[30:34]),
		IDSize:       binary.LittleEndian.Uint32(data[34:38]),
	}, nil
}

// ErrCorrupted is the sentinel for malformed container framing: bad magic,
// a footer_start outside the file, or a truncated entry table.
var ErrCorrupted = errors.New("container: corrupted")

// WriteFooter appends the footer for entries to w, per spec §3/§4.6:
// u32 count, count x Entry, u64 footer_start, 5-byte magic. footerStart is
// the byte offset w is currently positioned at (the caller tracks this,
// since w may be an unbuffered io.Writer with no Seek).
//
// finalLineUnterminated extends the count field with a single flag byte:
// spec §4.5 always emits \n after a reconstructed line, which conflicts
// with §8's requirement that round-trip hold for an unterminated last
// line. SPEC_FULL resolves this with one sticky bit recording whether the
// stream's very last line lacked a trailing newline; ReadFooter's caller
// trims it back off only when the requested row range covers that row.
func WriteFooter(w io.Writer, entries []Entry, footerStart uint64, finalLineUnterminated bool) error {
	bw := bufio.NewWriter(w)
	var countBuf [4]byte
	binary.LittleEndian.PutUint32(countBuf[:], uint32(len(entries)))
	if _, err := bw.Write(countBuf[:]); err != nil {
		return err
	}
	var finalFlag [1]byte
	if finalLineUnterminated {
		finalFlag[0] = 1
	}
	if _, err := bw.Write(finalFlag[:]); err != nil {
		return err
	}
	for _, e := range entries {
		if err := writeEntry(bw, e); err != nil {
			return err
		}
	}
	var tailBuf [footerTrailerSize]byte
	binary.LittleEndian.PutUint64(tailBuf[0:8], footerStart)
	copy(tailBuf[8:], magic[:])
	if _, err := bw.Write(tailBuf[:]); err != nil {
		return err
	}
	return bw.Flush()
}

// ReadFooter locates and parses the footer of a file accessed through r,
// using size as the total file length. It returns the row-group entries in
// on-disk order plus the finalLineUnterminated flag WriteFooter recorded.
func ReadFooter(r io.ReaderAt, size int64) ([]Entry, bool, error) {
	if size < int64(footerTrailerSize) {
		return nil, false, fmt.Errorf("container: %w: file too small for a footer trailer", ErrCorrupted)
	}

	var tail [footerTrailerSize]byte
	if _, err := r.ReadAt(tail[:], size-int64(footerTrailerSize)); err != nil {
		return nil, false, fmt.Errorf("container: reading footer trailer: %w", err)
	}
	if !bytesEqual(tail[8:], magic[:]) {
		return nil, false, fmt.Errorf("container: %w: bad magic", ErrCorrupted)
	}
	footerStart := binary.LittleEndian.Uint64(tail[0:8])
	if int64(footerStart) < 0 || int64(footerStart) > size-int64(footerTrailerSize) {
		return nil, false, fmt.Errorf("container: %w: footer_start out of range", ErrCorrupted)
	}

	countAndEntries := size - int64(footerStart) - int64(footerTrailerSize)
	if countAndEntries < 5 {
		return nil, false, fmt.Errorf("container: %w: truncated entry count", ErrCorrupted)
	}
	buf := make([]byte, countAndEntries)
	if _, err := r.ReadAt(buf, int64(footerStart)); err != nil {
		return nil, false, fmt.Errorf("container: reading footer body: %w", err)
	}
	count := binary.LittleEndian.Uint32(buf[0:4])
	finalLineUnterminated := buf[4] != 0
	buf = buf[5:]

	if uint64(len(buf)) != uint64(count)*entrySize {
		return nil, false, fmt.Errorf("container: %w: entry table size mismatch", ErrCorrupted)
	}

	entries := make([]Entry, count)
	for i := range entries {
		e, err := readEntry(buf[i*entrySize:])
		if err != nil {
			return nil, false, err
		}
		entries[i] = e
	}

	var prevEnd uint64
	for i, e := range entries {
		if e.Start < prevEnd {
			return nil, false, fmt.Errorf("container: %w: entry %d overlaps the previous group", ErrCorrupted, i)
		}
		end := e.Start + e.Size
		if end > footerStart {
			return nil, false, fmt.Errorf("container: %w: entry %d extends past footer_start", ErrCorrupted, i)
		}
		prevEnd = end
	}

	return entries, finalLineUnterminated, nil
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// NoRowFilter, passed as rowStart, requests every row-group (no --rows
// filtering at the container level; C5 still emits every row it decodes).
const NoRowFilter = -1

// RowRange selects the entries whose global row span intersects the
// 0-based inclusive range [rowStart, rowEnd] (the caller translates
// spec §6's 1-based --rows flag before calling), returning them alongside
// the global 0-based row index each selected entry's first row occupies.
// Passthrough entries (Rows == 0, binary chunks) are always selected, since
// row-range filtering only applies to CAST-encoded text blocks.
func RowRange(entries []Entry, rowStart, rowEnd int) (selected []Entry, globalStart []int) {
	global := 0
	for _, e := range entries {
		rows := int(e.Rows)
		switch {
		case e.Kind == KindPassthrough && rows == 0:
			selected = append(selected, e)
			globalStart = append(globalStart, global)
		case rowStart == NoRowFilter:
			selected = append(selected, e)
			globalStart = append(globalStart, global)
		case global+rows-1 >= rowStart && global <= rowEnd:
			selected = append(selected, e)
			globalStart = append(globalStart, global)
		}
		global += rows
	}
	return selected, globalStart
}
