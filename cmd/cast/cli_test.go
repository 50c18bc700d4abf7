package main

import (
	"testing"

	"github.com/k0kubun/cast/backend"
	"github.com/k0kubun/cast/container"
)

func TestParseRowRange(t *testing.T) {
	start, end, err := parseRowRange("")
	if err != nil || start != container.NoRowFilter || end != container.NoRowFilter {
		t.Fatalf("empty range: got (%d, %d, %v)", start, end, err)
	}

	start, end, err = parseRowRange("10-20")
	if err != nil || start != 10 || end != 20 {
		t.Fatalf("10-20: got (%d, %d, %v)", start, end, err)
	}

	if _, _, err := parseRowRange("20-10"); err == nil {
		t.Fatalf("expected error for reversed range")
	}
	if _, _, err := parseRowRange("not-a-range"); err == nil {
		t.Fatalf("expected error for non-numeric range")
	}
	if _, _, err := parseRowRange("5"); err == nil {
		t.Fatalf("expected error for missing dash")
	}
}

func TestBackendKind(t *testing.T) {
	cases := map[string]backend.Kind{
		"native": backend.Native,
		"NATIVE": backend.Native,
		"7zip":   backend.SevenZip,
		"":       backend.Auto,
		"auto":   backend.Auto,
		"bogus":  backend.Auto,
	}
	for mode, want := range cases {
		o := &options{Mode: mode}
		if got := o.backendKind(); got != want {
			t.Fatalf("mode %q: got %v want %v", mode, got, want)
		}
	}
}

func TestParseChunkSize(t *testing.T) {
	cases := map[string]uint64{
		"":      0,
		"0":     0,
		"512":   512,
		"64B":   64,
		"2K":    2 << 10,
		"8m":    8 << 20,
		"1G":    1 << 30,
		" 4M ":  4 << 20,
	}
	for in, want := range cases {
		got, err := parseChunkSize(in)
		if err != nil {
			t.Fatalf("parseChunkSize(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("parseChunkSize(%q): got %d want %d", in, got, want)
		}
	}

	if _, err := parseChunkSize("not-a-size"); err == nil {
		t.Fatalf("expected error for non-numeric chunk size")
	}
	if _, err := parseChunkSize("1T"); err == nil {
		t.Fatalf("expected error for unsupported suffix")
	}
}
