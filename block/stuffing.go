package block

import "bytes"

// Separator and escape bytes for the variable payload framing (spec §4.4).
const (
	sepRow    byte = 0x00 // between cells of one column
	escPrefix byte = 0x01 // escape prefix
	sepCol    byte = 0x02 // between columns, and after the last column of a template
)

// writeEscaped appends data to buf with 0x00, 0x01, and 0x02 bytes escaped
// so the row/column separators remain unambiguous.
func writeEscaped(buf *bytes.Buffer, data []byte) {
	buf.Grow(len(data))
	for _, b := range data {
		switch b {
		case sepRow:
			buf.WriteByte(escPrefix)
			buf.WriteByte(0x00)
		case escPrefix:
			buf.WriteByte(escPrefix)
			buf.WriteByte(0x01)
		case sepCol:
			buf.WriteByte(escPrefix)
			buf.WriteByte(0x03)
		default:
			buf.WriteByte(b)
		}
	}
}

// unescape reverses writeEscaped, per the mapping in spec §4.4: 01 01 -> 01,
// 01 00 -> 00, 01 03 -> 02. Any other byte is copied literally.
func unescape(data []byte) ([]byte, error) {
	out := make([]byte, 0, len(data))
	i := 0
	for i < len(data) {
		b := data[i]
		if b != escPrefix {
			out = append(out, b)
			i++
			continue
		}
		if i+1 >= len(data) {
			return nil, corrupted("truncated escape sequence")
		}
		switch data[i+1] {
		case 0x01:
			out = append(out, escPrefix)
		case 0x00:
			out = append(out, sepRow)
		case 0x03:
			out = append(out, sepCol)
		default:
			return nil, corrupted("invalid escape sequence")
		}
		i += 2
	}
	return out, nil
}

// splitEscaped splits data on unescaped occurrences of sep, leaving escape
// sequences intact (still escaped) in the returned segments. Callers must
// unescape each segment afterward.
func splitEscaped(data []byte, sep byte) [][]byte {
	var out [][]byte
	start := 0
	i := 0
	for i < len(data) {
		b := data[i]
		if b == escPrefix {
			if i+1 < len(data) {
				i += 2
				continue
			}
			i++
			continue
		}
		if b == sep {
			out = append(out, data[start:i])
			i++
			start = i
			continue
		}
		i++
	}
	out = append(out, data[start:])
	return out
}
