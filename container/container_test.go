package container

import (
	"bytes"
	"errors"
	"testing"
)

func TestFooterRoundTrip(t *testing.T) {
	var body bytes.Buffer
	body.WriteString("group-zero-bytes")
	start0 := uint64(0)
	body.WriteString("group-one-bytes!!")
	start1 := uint64(len("group-zero-bytes"))
	footerStart := uint64(body.Len())

	entries := []Entry{
		{Start: start0, Size: uint64(len("group-zero-bytes")), Rows: 3, CRC32: 0xdead, Kind: KindUnified, Flag: 0x02},
		{Start: start1, Size: uint64(len("group-one-bytes!!")), Rows: 5, CRC32: 0xbeef, Kind: KindSplit, Flag: 0x81, RegistrySize: 4, IDSize: 6},
	}

	if err := WriteFooter(&body, entries, footerStart, true); err != nil {
		t.Fatalf("WriteFooter: %v", err)
	}

	data := body.Bytes()
	got, finalLineUnterminated, err := ReadFooter(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("ReadFooter: %v", err)
	}
	if !finalLineUnterminated {
		t.Fatalf("expected finalLineUnterminated to round-trip as true")
	}
	if len(got) != len(entries) {
		t.Fatalf("expected %d entries, got %d", len(entries), len(got))
	}
	for i, want := range entries {
		if got[i] != want {
			t.Fatalf("entry %d mismatch: got %+v want %+v", i, got[i], want)
		}
	}
}

func TestFooterBadMagic(t *testing.T) {
	var body bytes.Buffer
	body.Write(make([]byte, 20))
	data := body.Bytes()
	_, _, err := ReadFooter(bytes.NewReader(data), int64(len(data)))
	if !errors.Is(err, ErrCorrupted) {
		t.Fatalf("expected ErrCorrupted, got %v", err)
	}
}

func TestRowRangeSelectsOverlappingGroups(t *testing.T) {
	entries := []Entry{
		{Rows: 100, Kind: KindUnified},
		{Rows: 100, Kind: KindUnified},
		{Rows: 100, Kind: KindUnified},
	}
	selected, globalStart := RowRange(entries, 150, 250)
	if len(selected) != 2 {
		t.Fatalf("expected 2 groups selected, got %d", len(selected))
	}
	if globalStart[0] != 100 || globalStart[1] != 200 {
		t.Fatalf("unexpected globalStart: %v", globalStart)
	}
}

func TestRowRangeNoFilterSelectsAll(t *testing.T) {
	entries := []Entry{{Rows: 10}, {Rows: 20}}
	selected, _ := RowRange(entries, NoRowFilter, NoRowFilter)
	if len(selected) != 2 {
		t.Fatalf("expected all groups selected, got %d", len(selected))
	}
}

func TestRowRangeAlwaysSelectsPassthrough(t *testing.T) {
	entries := []Entry{
		{Rows: 0, Kind: KindPassthrough},
		{Rows: 100, Kind: KindUnified},
	}
	selected, _ := RowRange(entries, 500, 600)
	if len(selected) != 1 || selected[0].Kind != KindPassthrough {
		t.Fatalf("expected only the passthrough group selected, got %+v", selected)
	}
}
