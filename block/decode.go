package block

import (
	"bytes"
	"encoding/binary"
	"unicode/utf8"

	"github.com/k0kubun/cast/tokenize"
)

// Decoded is a fully-parsed block, ready for row-range-filtered
// reconstruction. Columns[t][c] holds template t's column c cells, still
// byte-stuffed; SkeletonParts[t] is the skeleton split on the variable
// placeholder, one more element than NumCols[t].
type Decoded struct {
	IsLatin1      bool
	Skeletons     []string
	SkeletonParts [][]string
	NumCols       []int
	IDs           []uint32 // per-row template ID; empty iff a single template covers every row
	Rows          int
	Columns       [][][][]byte
}

// DecodeUnified parses a Unified-layout block (spec §4.4/§4.5).
func DecodeUnified(data []byte) (*Decoded, error) {
	if len(data) < 9 {
		return nil, corrupted("block shorter than fixed header")
	}
	flagByte := data[0]
	lenReg := binary.LittleEndian.Uint32(data[1:5])
	lenIDsOrRowCount := binary.LittleEndian.Uint32(data[5:9])
	rest := data[9:]

	if uint64(lenReg) > uint64(len(rest)) {
		return nil, corrupted("registry length exceeds block size")
	}
	registryBytes := rest[:lenReg]
	rest = rest[lenReg:]

	idFlag, isLatin1 := SplitFlag(flagByte)

	var idBytes []byte
	var headerRowCount int
	if idFlag == FlagSingleTemplate {
		headerRowCount = int(lenIDsOrRowCount)
	} else {
		size := idFlag.elemSize()
		idLen := uint64(lenIDsOrRowCount)
		if idLen > uint64(len(rest)) {
			return nil, corrupted("id stream length exceeds block size")
		}
		if size == 0 || idLen%uint64(size) != 0 {
			return nil, corrupted("id stream length not divisible by element size")
		}
		idBytes = rest[:idLen]
		rest = rest[idLen:]
	}
	varBytes := rest

	return assemble(idFlag, isLatin1, registryBytes, idBytes, headerRowCount, varBytes)
}

// DecodeSplit parses the three independently-compressed blobs of a
// Split-layout block. rows is the row-group's total row count, sourced
// from the container entry (Split never writes a Unified-style header, so
// the single-template row count has nowhere else to live).
func DecodeSplit(flagByte byte, registryBytes, idBytes, varBytes []byte, rows int) (*Decoded, error) {
	idFlag, isLatin1 := SplitFlag(flagByte)
	return assemble(idFlag, isLatin1, registryBytes, idBytes, rows, varBytes)
}

func assemble(idFlag IDFlag, isLatin1 bool, registryBytes, idBytes []byte, headerRowCount int, varBytes []byte) (*Decoded, error) {
	if !utf8.Valid(registryBytes) {
		return nil, corrupted("registry is not valid utf-8")
	}
	skeletons := tokenize.SplitRegistry(string(registryBytes))

	numCols := make([]int, len(skeletons))
	skeletonParts := make([][]string, len(skeletons))
	totalCols := 0
	for i, s := range skeletons {
		numCols[i] = tokenize.CountVariables(s)
		skeletonParts[i] = tokenize.SplitSkeleton(s)
		totalCols += numCols[i]
	}

	flatColumns := splitColumns(varBytes, totalCols)
	if len(flatColumns) != totalCols {
		return nil, corrupted("variable payload column count mismatch")
	}

	columns := make([][][][]byte, len(skeletons))
	cursor := 0
	for t, n := range numCols {
		columns[t] = make([][][]byte, n)
		for c := 0; c < n; c++ {
			columns[t][c] = splitEscaped(flatColumns[cursor+c], sepRow)
		}
		cursor += n
	}

	var ids []uint32
	var rows int
	if idFlag == FlagSingleTemplate {
		rows = headerRowCount
	} else {
		size := idFlag.elemSize()
		ids = make([]uint32, len(idBytes)/size)
		for i := range ids {
			switch idFlag {
			case FlagOneByte:
				ids[i] = uint32(idBytes[i])
			case FlagTwoByte:
				ids[i] = uint32(binary.LittleEndian.Uint16(idBytes[i*2:]))
			case FlagFourByte:
				ids[i] = binary.LittleEndian.Uint32(idBytes[i*4:])
			}
			if int(ids[i]) >= len(skeletons) {
				return nil, corrupted("id stream references unknown template")
			}
		}
		rows = len(ids)
	}

	return &Decoded{
		IsLatin1:      isLatin1,
		Skeletons:     skeletons,
		SkeletonParts: skeletonParts,
		NumCols:       numCols,
		IDs:           ids,
		Rows:          rows,
		Columns:       columns,
	}, nil
}

// splitColumns splits the variable region into exactly expectedCols column
// spans on unescaped sepCol bytes. A well-formed payload ends each column
// (including the last) with a trailing separator, so the final segment
// produced by splitEscaped is always empty and is dropped.
func splitColumns(data []byte, expectedCols int) [][]byte {
	if len(data) == 0 && expectedCols == 0 {
		return nil
	}
	segments := splitEscaped(data, sepCol)
	if len(segments) > 0 && len(segments[len(segments)-1]) == 0 {
		segments = segments[:len(segments)-1]
	}
	return segments
}

// WriteLines reconstructs this block's lines into w, emitting only rows
// whose global index (globalRowStart-based) falls within [rowStart, rowEnd]
// inclusive, while still consuming every column queue in order to keep
// per-template column alignment intact for subsequent rows (spec §4.5's
// row-range filtering rule).
func (d *Decoded) WriteLines(w *bytes.Buffer, globalRowStart, rowStart, rowEnd int) error {
	consumed := make([][]int, len(d.Columns))
	for t := range d.Columns {
		consumed[t] = make([]int, len(d.Columns[t]))
	}

	singleTemplate := d.IDs == nil

	for i := 0; i < d.Rows; i++ {
		var tid uint32
		if singleTemplate {
			tid = 0
		} else {
			tid = d.IDs[i]
		}

		global := globalRowStart + i
		inRange := global >= rowStart && global <= rowEnd

		cols := d.Columns[tid]
		parts := d.SkeletonParts[tid]

		var line *bytes.Buffer
		if inRange {
			line = &bytes.Buffer{}
		}

		for ci, part := range parts {
			if inRange {
				line.WriteString(part)
			}
			if ci >= len(cols) {
				continue
			}
			idx := consumed[tid][ci]
			if idx >= len(cols[ci]) {
				return corrupted("column underflow during reconstruction")
			}
			consumed[tid][ci]++
			if !inRange {
				continue
			}
			cell, err := unescape(cols[ci][idx])
			if err != nil {
				return err
			}
			line.Write(cell)
		}

		if !inRange {
			continue
		}

		if d.IsLatin1 {
			raw, err := UTF8ToLatin1(line.Bytes())
			if err != nil {
				return err
			}
			w.Write(raw)
		} else {
			w.Write(line.Bytes())
		}
		w.WriteByte('\n')
	}
	return nil
}
