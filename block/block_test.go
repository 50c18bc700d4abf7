package block

import (
	"bytes"
	"testing"

	"github.com/k0kubun/cast/template"
	"github.com/k0kubun/cast/tokenize"
)

// buildRegistry tokenizes lines in Strict mode and returns the populated
// registry plus the raw (insertion-order) per-row template ID stream.
func buildRegistry(t *testing.T, lines []string) (*template.Registry, []uint32) {
	t.Helper()
	reg := template.New()
	ids := make([]uint32, 0, len(lines))
	for _, line := range lines {
		res, ok := tokenize.Line([]byte(line), tokenize.Strict)
		if !ok {
			t.Fatalf("unexpected collision for line %q", line)
		}
		id, _ := reg.Intern(res.Skeleton)
		reg.PushRow(id, res.Variables)
		ids = append(ids, id)
	}
	return reg, ids
}

func reconstruct(t *testing.T, d *Decoded, rows int) string {
	t.Helper()
	var out bytes.Buffer
	if err := d.WriteLines(&out, 0, 0, rows-1); err != nil {
		t.Fatalf("WriteLines: %v", err)
	}
	return out.String()
}

func TestUnifiedRoundTripSingleTemplate(t *testing.T) {
	lines := []string{"GET /index HTML 200", "GET /index HTML 200", "GET /index HTML 200"}
	reg, ids := buildRegistry(t, lines)
	remapped, remappedIDs := RemapUnified(reg, ids)

	if remapped.NumTemplates() != 1 {
		t.Fatalf("expected 1 template, got %d", remapped.NumTemplates())
	}

	encoded := EncodeUnified(remapped, remappedIDs, false)
	flag, _ := SplitFlag(encoded[0])
	if flag != FlagSingleTemplate {
		t.Fatalf("expected FlagSingleTemplate, got %v", flag)
	}

	decoded, err := DecodeUnified(encoded)
	if err != nil {
		t.Fatalf("DecodeUnified: %v", err)
	}

	got := reconstruct(t, decoded, len(lines))
	want := "GET /index HTML 200\nGET /index HTML 200\nGET /index HTML 200\n"
	if got != want {
		t.Fatalf("round-trip mismatch:\n got: %q\nwant: %q", got, want)
	}
}

func TestUnifiedRoundTripMultiTemplate(t *testing.T) {
	lines := []string{
		`user=42 ts=1700000001`,
		`user=43 ts=1700000002`,
		`connected from 10.0.0.1 port 8080`,
		`user=44 ts=1700000003`,
		`connected from 10.0.0.2 port 9090`,
	}
	reg, ids := buildRegistry(t, lines)
	remapped, remappedIDs := RemapUnified(reg, ids)

	encoded := EncodeUnified(remapped, remappedIDs, false)
	decoded, err := DecodeUnified(encoded)
	if err != nil {
		t.Fatalf("DecodeUnified: %v", err)
	}

	got := reconstruct(t, decoded, len(lines))
	want := ""
	for _, l := range lines {
		want += l + "\n"
	}
	if got != want {
		t.Fatalf("round-trip mismatch:\n got: %q\nwant: %q", got, want)
	}
}

func TestUnifiedRemapMonotonicity(t *testing.T) {
	lines := []string{"a 1", "b 2", "a 3", "a 4", "c 5", "a 6", "b 7"}
	reg, ids := buildRegistry(t, lines)
	remapped, remappedIDs := RemapUnified(reg, ids)

	freq := make([]int, remapped.NumTemplates())
	for _, id := range remappedIDs {
		freq[id]++
	}
	for i := 1; i < len(freq); i++ {
		if freq[i] > freq[i-1] {
			t.Fatalf("frequency not monotonically non-increasing: freq[%d]=%d > freq[%d]=%d", i, freq[i], i-1, freq[i-1])
		}
	}
	if freq[0] == 0 || freq[0] < freq[len(freq)-1] {
		t.Fatalf("template 0 is not the most frequent: freq=%v", freq)
	}
}

func TestSplitRoundTrip(t *testing.T) {
	lines := []string{
		`level=info msg="hello world"`,
		`level=warn msg="disk low"`,
		`level=info msg="hello again"`,
	}
	reg, ids := buildRegistry(t, lines)

	flag, registry, idBytes, vars := EncodeSplit(reg, ids, false)
	decoded, err := DecodeSplit(flag, registry, idBytes, vars, len(lines))
	if err != nil {
		t.Fatalf("DecodeSplit: %v", err)
	}

	got := reconstruct(t, decoded, len(lines))
	want := ""
	for _, l := range lines {
		want += l + "\n"
	}
	if got != want {
		t.Fatalf("split round-trip mismatch:\n got: %q\nwant: %q", got, want)
	}
}

func TestQuotedStringWithDoubledQuote(t *testing.T) {
	lines := []string{`field="a""b" done`}
	reg, ids := buildRegistry(t, lines)

	if reg.NumTemplates() != 1 {
		t.Fatalf("expected 1 template, got %d", reg.NumTemplates())
	}
	cell := reg.Column(0, 0)[0]
	if string(cell) != `a""b` {
		t.Fatalf("expected variable %q, got %q", `a""b`, cell)
	}

	encoded := EncodeUnified(reg, ids, false)
	decoded, err := DecodeUnified(encoded)
	if err != nil {
		t.Fatalf("DecodeUnified: %v", err)
	}
	got := reconstruct(t, decoded, len(lines))
	if got != lines[0]+"\n" {
		t.Fatalf("round-trip mismatch:\n got: %q\nwant: %q", got, lines[0]+"\n")
	}
}

func TestVariablesContainingSeparatorBytes(t *testing.T) {
	res, ok := tokenize.Line([]byte("a b"), tokenize.Aggressive)
	if !ok {
		t.Fatalf("unexpected collision")
	}
	reg := template.New()
	id, _ := reg.Intern(res.Skeleton)
	// Push synthetic variable bytes containing every separator/escape byte,
	// independent of what the tokenizer actually extracted from "a b".
	reg.PushRow(id, [][]byte{{0x00, 0x01, 0x02, 'x'}, []byte("plain")})
	ids := []uint32{id}

	encoded := EncodeUnified(reg, ids, false)
	decoded, err := DecodeUnified(encoded)
	if err != nil {
		t.Fatalf("DecodeUnified: %v", err)
	}
	if len(decoded.Columns) != 1 || len(decoded.Columns[0]) != 2 {
		t.Fatalf("unexpected column shape: %+v", decoded.Columns)
	}
	cell0, err := unescape(decoded.Columns[0][0][0])
	if err != nil {
		t.Fatalf("unescape: %v", err)
	}
	if !bytes.Equal(cell0, []byte{0x00, 0x01, 0x02, 'x'}) {
		t.Fatalf("cell0 mismatch: %x", cell0)
	}
}

func TestRowRangeFiltering(t *testing.T) {
	lines := make([]string, 10)
	for i := range lines {
		lines[i] = "row " + string(rune('a'+i))
	}
	reg, ids := buildRegistry(t, lines)
	remapped, remappedIDs := RemapUnified(reg, ids)
	encoded := EncodeUnified(remapped, remappedIDs, false)
	decoded, err := DecodeUnified(encoded)
	if err != nil {
		t.Fatalf("DecodeUnified: %v", err)
	}

	var out bytes.Buffer
	if err := decoded.WriteLines(&out, 0, 3, 5); err != nil {
		t.Fatalf("WriteLines: %v", err)
	}
	want := "row d\nrow e\nrow f\n"
	if out.String() != want {
		t.Fatalf("row-range mismatch:\n got: %q\nwant: %q", out.String(), want)
	}
}

func TestLatin1RoundTrip(t *testing.T) {
	raw := []byte{'x', '=', 0xE9, 0xFF, '\n'} // non-UTF-8 bytes
	pseudo := Latin1ToUTF8(raw[:len(raw)-1])

	res, ok := tokenize.Line([]byte(pseudo), tokenize.Strict)
	if !ok {
		t.Fatalf("unexpected collision")
	}
	reg := template.New()
	id, _ := reg.Intern(res.Skeleton)
	reg.PushRow(id, res.Variables)

	encoded := EncodeUnified(reg, []uint32{id}, true)
	decoded, err := DecodeUnified(encoded)
	if err != nil {
		t.Fatalf("DecodeUnified: %v", err)
	}
	var out bytes.Buffer
	if err := decoded.WriteLines(&out, 0, 0, 0); err != nil {
		t.Fatalf("WriteLines: %v", err)
	}
	got := out.Bytes()
	want := append(append([]byte{}, raw[:len(raw)-1]...), '\n')
	if !bytes.Equal(got, want) {
		t.Fatalf("latin1 round-trip mismatch: got %x want %x", got, want)
	}
}
