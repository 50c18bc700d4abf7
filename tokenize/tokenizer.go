// Package tokenize implements the CAST line tokenizer (C1): splitting one
// input line into a skeleton string and an ordered slice of variable byte
// slices, the way parser.Tokenizer splits a SQL statement into lexical
// tokens except the "grammar" here is a pair of generic token classes
// instead of SQL keywords.
package tokenize

import "bytes"

// Mode selects which token classes the scanner recognizes.
type Mode int

const (
	// Strict recognizes hex/decimal numbers and quoted strings.
	Strict Mode = iota
	// Aggressive recognizes maximal runs of identifier-like bytes and quoted strings.
	Aggressive
)

func (m Mode) String() string {
	if m == Aggressive {
		return "Aggressive"
	}
	return "Strict"
}

const (
	// placeholderVar is U+E000 UTF-8 encoded: the in-skeleton variable marker.
	placeholderVar = ""
	// placeholderSep is U+E001 UTF-8 encoded: the registry skeleton separator.
	placeholderSep = ""
)

var (
	placeholderVarBytes = []byte(placeholderVar)
	placeholderSepBytes = []byte(placeholderSep)
)

// HasReservedCodepoint reports whether line contains either placeholder
// codepoint, U+E000 or U+E001. The caller must treat this as a collision
// and fall back to passthrough; stream.Compress does so for the row-group
// that contains the line, not for the whole input.
func HasReservedCodepoint(line []byte) bool {
	return bytes.Contains(line, placeholderVarBytes) || bytes.Contains(line, placeholderSepBytes)
}

// Result is the outcome of tokenizing a single line.
type Result struct {
	Skeleton  string
	Variables [][]byte
}

// Line tokenizes a single line (without its trailing newline) under mode m.
// ok is false iff the line contains a reserved placeholder codepoint; the
// caller must then discard Result and fall back to passthrough, per the
// collision guard in spec §4.1; stream.Compress scopes that fallback to the
// current row-group, not the entire stream.
func Line(line []byte, mode Mode) (result Result, ok bool) {
	if HasReservedCodepoint(line) {
		return Result{}, false
	}
	return tokenizeLine(line, mode), true
}

// Sample tokenizes a line purely to obtain its skeleton for strategy
// sampling. Unlike Line, it never reports a collision: the oracle only
// inspects skeleton diversity and must not abort on reserved codepoints
// found in a sample (spec §4.1, "must not trigger the collision guard").
func Sample(line []byte, mode Mode) string {
	return tokenizeLine(line, mode).Skeleton
}

func tokenizeLine(line []byte, mode Mode) Result {
	var skeleton bytes.Buffer
	skeleton.Grow(len(line))
	vars := make([][]byte, 0, 8)

	i := 0
	n := len(line)
	structStart := 0

	flushStructural := func(end int) {
		if end > structStart {
			skeleton.Write(line[structStart:end])
		}
	}

	for i < n {
		b := line[i]
		if b == '"' {
			content, consumed, closed := scanQuoted(line[i:])
			if closed {
				flushStructural(i)
				vars = append(vars, content)
				skeleton.WriteByte('"')
				skeleton.WriteString(placeholderVar)
				skeleton.WriteByte('"')
				i += consumed
				structStart = i
				continue
			}
			// Unterminated quote: the opening quote stays structural.
			i++
			continue
		}

		var tokLen int
		switch mode {
		case Strict:
			tokLen = scanStrict(line[i:])
		case Aggressive:
			tokLen = scanAggressive(line[i:])
		}
		if tokLen > 0 {
			flushStructural(i)
			vars = append(vars, line[i:i+tokLen])
			skeleton.WriteString(placeholderVar)
			i += tokLen
			structStart = i
			continue
		}

		i++
	}
	flushStructural(n)

	return Result{Skeleton: skeleton.String(), Variables: vars}
}

// scanQuoted scans a quoted string starting at s[0] == '"'. It returns the
// unquoted content, the number of bytes consumed (including both quotes),
// and whether the string was properly closed. `""` is a literal quote that
// does not close the string; `\x` consumes the following byte
// unconditionally (without interpreting it).
func scanQuoted(s []byte) (content []byte, consumed int, closed bool) {
	var buf bytes.Buffer
	i := 1 // skip opening quote
	n := len(s)
	for i < n {
		switch s[i] {
		case '\\':
			if i+1 < n {
				buf.WriteByte(s[i])
				buf.WriteByte(s[i+1])
				i += 2
				continue
			}
			// Trailing lone backslash: unterminated.
			return nil, 0, false
		case '"':
			if i+1 < n && s[i+1] == '"' {
				buf.WriteByte('"')
				buf.WriteByte('"')
				i += 2
				continue
			}
			return buf.Bytes(), i + 1, true
		default:
			buf.WriteByte(s[i])
			i++
		}
	}
	return nil, 0, false
}

// scanStrict returns the length of a Strict-mode number/hex token starting
// at s[0], or 0 if none matches.
func scanStrict(s []byte) int {
	n := len(s)
	i := 0

	// 0x + hex digits, total length >= 3.
	if n >= 3 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		j := 2
		for j < n && isHexDigit(s[j]) {
			j++
		}
		if j >= 3 {
			return j
		}
	}

	// Signed decimal with optional fractional part.
	if s[0] == '-' {
		i = 1
	}
	digitsStart := i
	for i < n && isDigit(s[i]) {
		i++
	}
	if i == digitsStart {
		return 0
	}
	if i < n && s[i] == '.' {
		j := i + 1
		k := j
		for k < n && isDigit(s[k]) {
			k++
		}
		if k > j {
			i = k
		}
	}
	return i
}

// scanAggressive returns the length of the maximal run of
// [A-Za-z0-9_.\-:] starting at s[0], or 0 if s[0] doesn't match.
func scanAggressive(s []byte) int {
	i := 0
	for i < len(s) && isAggressiveByte(s[i]) {
		i++
	}
	return i
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func isHexDigit(b byte) bool {
	return isDigit(b) || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

func isAggressiveByte(b byte) bool {
	switch {
	case b >= 'A' && b <= 'Z', b >= 'a' && b <= 'z', b >= '0' && b <= '9':
		return true
	case b == '_' || b == '.' || b == '-' || b == ':':
		return true
	}
	return false
}

// CountVariables returns the number of placeholder-var occurrences in a
// skeleton, which equals the column count of the template it belongs to.
func CountVariables(skeleton string) int {
	return bytes.Count([]byte(skeleton), placeholderVarBytes)
}

// SplitSkeleton splits a skeleton on the variable placeholder, returning the
// literal parts to interleave with reconstructed variable cells.
func SplitSkeleton(skeleton string) []string {
	return splitOnPlaceholder(skeleton, placeholderVar)
}

// JoinRegistry joins skeletons with the registry separator codepoint.
func JoinRegistry(skeletons []string) string {
	out := make([]byte, 0, len(skeletons)*8)
	for i, s := range skeletons {
		if i > 0 {
			out = append(out, placeholderSepBytes...)
		}
		out = append(out, s...)
	}
	return string(out)
}

// SplitRegistry splits a joined registry string back into its skeletons.
func SplitRegistry(registry string) []string {
	return splitOnPlaceholder(registry, placeholderSep)
}

func splitOnPlaceholder(s, sep string) []string {
	if s == "" {
		return []string{""}
	}
	out := make([]string, 0, bytes.Count([]byte(s), []byte(sep))+1)
	for {
		idx := indexString(s, sep)
		if idx < 0 {
			out = append(out, s)
			return out
		}
		out = append(out, s[:idx])
		s = s[idx+len(sep):]
	}
}

func indexString(s, sep string) int {
	return bytes.Index([]byte(s), []byte(sep))
}
