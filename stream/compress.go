package stream

import (
	"bytes"
	"hash/crc32"
	"io"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/k0kubun/cast/backend"
	"github.com/k0kubun/cast/block"
	"github.com/k0kubun/cast/config"
	"github.com/k0kubun/cast/container"
	"github.com/k0kubun/cast/strategy"
	"github.com/k0kubun/cast/template"
	"github.com/k0kubun/cast/tokenize"
)

// writer accumulates entries and tracks the byte offset written so far,
// mirroring the way database/concurrent.go's runner tracks per-adapter
// progress without owning the underlying transport.
type writer struct {
	w       io.Writer
	entries []container.Entry
	offset  uint64
}

func (cw *writer) write(p []byte) error {
	n, err := cw.w.Write(p)
	cw.offset += uint64(n)
	return err
}

// Compress reads r line by line and writes the CAST container format to w,
// driving C1-C5 one row-group at a time (spec §4.6, the Accumulating state).
// be performs entropy coding; t controls every sampling/threshold decision.
func Compress(r io.Reader, w io.Writer, be backend.Backend, t config.Tunables) error {
	preread := make([]byte, t.PrereadBytes)
	n, rerr := io.ReadFull(r, preread)
	preread = preread[:n]
	if rerr != nil && rerr != io.EOF && rerr != io.ErrUnexpectedEOF {
		return rerr
	}
	rest := r

	cw := &writer{w: w}

	if strategy.IsBinary(preread, t) {
		return compressBinaryPassthrough(preread, rest, cw, be, t)
	}

	lr := newLineReader(io.MultiReader(bytes.NewReader(preread), rest))

	var mode tokenize.Mode
	modeDecided := false
	var sampleLines [][]byte
	var pending [][]byte
	lastTerminated := true
	sawAnyLine := false

	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		if !modeDecided {
			mode = strategy.SelectMode(sampleLines, t)
			modeDecided = true
		}
		if err := flushTextBlock(pending, mode, t, be, cw); err != nil {
			return err
		}
		pending = pending[:0]
		return nil
	}

	for {
		line, terminated, err := lr.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		sawAnyLine = true
		lastTerminated = terminated

		if !modeDecided && len(sampleLines) < t.ModeSampleLines {
			cp := append([]byte(nil), line...)
			sampleLines = append(sampleLines, cp)
		}
		pending = append(pending, append([]byte(nil), line...))

		if len(pending) >= t.RowBudget {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}

	finalLineUnterminated := sawAnyLine && !lastTerminated
	return container.WriteFooter(w, cw.entries, cw.offset, finalLineUnterminated)
}

// flushTextBlock tokenizes lines into a fresh Template Registry, chooses a
// layout, and writes one row-group. A tokenizer collision (a reserved
// codepoint) or an entropy bailout mid-block degrades the whole block to
// binary passthrough: spec §4.3 says the stream restarts as "a single
// binary block" on collision, which this streaming pipeline scopes to the
// current row-group rather than un-writing already-flushed earlier blocks,
// to keep memory bounded for multi-million-line inputs (see DESIGN.md).
func flushTextBlock(lines [][]byte, mode tokenize.Mode, t config.Tunables, be backend.Backend, cw *writer) error {
	isLatin1 := false
	for _, line := range lines {
		if !utf8.Valid(line) {
			isLatin1 = true
			break
		}
	}

	reg := template.New()
	ids := make([]uint32, 0, len(lines))
	nextID := 0

	for i, raw := range lines {
		line := raw
		if isLatin1 {
			line = []byte(block.Latin1ToUTF8(raw))
		}
		res, ok := tokenize.Line(line, mode)
		if !ok {
			return flushPassthroughLines(lines, be, cw)
		}
		id, created := reg.Intern(res.Skeleton)
		reg.PushRow(id, res.Variables)
		ids = append(ids, id)
		if created {
			nextID++
		}
		if strategy.EntropyBailout(nextID, i+1, mode, t) {
			return flushPassthroughLines(lines, be, cw)
		}
	}

	layout, err := strategy.SelectLayout(reg, t, be)
	if err != nil {
		return err
	}

	crc := crc32.NewIEEE()
	for _, line := range lines {
		crc.Write(line)
		crc.Write([]byte{'\n'})
	}

	if layout == strategy.Unified {
		remapped, remappedIDs := block.RemapUnified(reg, ids)
		payload := block.EncodeUnified(remapped, remappedIDs, isLatin1)
		compressed, err := be.Compress(payload)
		if err != nil {
			return err
		}
		entry := container.Entry{
			Start: cw.offset,
			Size:  uint64(len(compressed)),
			Rows:  uint64(len(lines)),
			CRC32: crc.Sum32(),
			Kind:  container.KindUnified,
		}
		if err := cw.write(compressed); err != nil {
			return err
		}
		cw.entries = append(cw.entries, entry)
		return nil
	}

	flag, registry, idBytes, vars := block.EncodeSplit(reg, ids, isLatin1)
	var cRegistry, cIDs, cVars []byte
	var g errgroup.Group
	g.Go(func() (err error) { cRegistry, err = be.Compress(registry); return })
	g.Go(func() (err error) { cIDs, err = be.Compress(idBytes); return })
	g.Go(func() (err error) { cVars, err = be.Compress(vars); return })
	if err := g.Wait(); err != nil {
		return err
	}

	entry := container.Entry{
		Start:        cw.offset,
		Size:         uint64(len(cRegistry) + len(cIDs) + len(cVars)),
		Rows:         uint64(len(lines)),
		CRC32:        crc.Sum32(),
		Kind:         container.KindSplit,
		Flag:         flag,
		RegistrySize: uint32(len(cRegistry)),
		IDSize:       uint32(len(cIDs)),
	}
	if err := cw.write(cRegistry); err != nil {
		return err
	}
	if err := cw.write(cIDs); err != nil {
		return err
	}
	if err := cw.write(cVars); err != nil {
		return err
	}
	cw.entries = append(cw.entries, entry)
	return nil
}

// flushPassthroughLines writes lines as a single compressed binary
// row-group whose Rows is non-zero, so row-range filtering still works.
func flushPassthroughLines(lines [][]byte, be backend.Backend, cw *writer) error {
	var raw bytes.Buffer
	crc := crc32.NewIEEE()
	for _, line := range lines {
		raw.Write(line)
		raw.WriteByte('\n')
		crc.Write(line)
		crc.Write([]byte{'\n'})
	}
	compressed, err := be.Compress(raw.Bytes())
	if err != nil {
		return err
	}
	entry := container.Entry{
		Start: cw.offset,
		Size:  uint64(len(compressed)),
		Rows:  uint64(len(lines)),
		CRC32: crc.Sum32(),
		Kind:  container.KindPassthrough,
	}
	if err := cw.write(compressed); err != nil {
		return err
	}
	cw.entries = append(cw.entries, entry)
	return nil
}

// compressBinaryPassthrough handles the binary-guard branch of spec §4.3:
// the input is chunked and compressed without any attempt at tokenization.
// Chunks carry Rows: 0, since there is no line structure to filter on.
func compressBinaryPassthrough(preread []byte, rest io.Reader, cw *writer, be backend.Backend, t config.Tunables) error {
	chunkSize := t.BinaryChunkBytes
	first := make([]byte, chunkSize)
	n := copy(first, preread)
	if n < chunkSize {
		more, err := io.ReadFull(rest, first[n:])
		n += more
		if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
			return err
		}
	}
	first = first[:n]

	writeChunk := func(chunk []byte) error {
		if len(chunk) == 0 {
			return nil
		}
		crc := crc32.ChecksumIEEE(chunk)
		compressed, err := be.Compress(chunk)
		if err != nil {
			return err
		}
		entry := container.Entry{
			Start: cw.offset,
			Size:  uint64(len(compressed)),
			Rows:  0,
			CRC32: crc,
			Kind:  container.KindPassthrough,
		}
		if err := cw.write(compressed); err != nil {
			return err
		}
		cw.entries = append(cw.entries, entry)
		return nil
	}

	if err := writeChunk(first); err != nil {
		return err
	}

	buf := make([]byte, chunkSize)
	for {
		n, err := io.ReadFull(rest, buf)
		if n > 0 {
			if werr := writeChunk(buf[:n]); werr != nil {
				return werr
			}
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			break
		}
		if err != nil {
			return err
		}
	}

	return container.WriteFooter(cw.w, cw.entries, cw.offset, false)
}
