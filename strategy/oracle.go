// Package strategy implements the CAST Strategy Oracle (C3): the
// sample-based heuristics that pick a binary guard, a tokenizer Mode, a
// block serialization Layout, and an entropy bailout threshold. Each
// decision is a small, independently testable function rather than a
// monolithic "decide everything" call, the way schema.Generator's
// decision points (column type compatibility, index equivalence, ...) are
// each their own function over plain data.
package strategy

import (
	"bytes"

	"github.com/k0kubun/cast/backend"
	"github.com/k0kubun/cast/config"
	"github.com/k0kubun/cast/template"
	"github.com/k0kubun/cast/tokenize"
)

// Layout is the block serialization layout chosen per row-group (spec §4.3).
type Layout int

const (
	// Unified concatenates the registry, ID stream, and variable payload
	// into one buffer compressed as a single unit.
	Unified Layout = iota
	// Split compresses the registry, ID stream, and variable payload as
	// three independent streams.
	Split
)

func (l Layout) String() string {
	if l == Split {
		return "Split"
	}
	return "Unified"
}

// IsBinary runs the binary guard over up to t.BinaryGuardSampleBytes
// leading bytes of data. A byte is "bad" if b<9 or (b>13 and b<32); if the
// bad-byte ratio exceeds t.BinaryGuardRatio, the whole input must be
// passed through untransformed (spec §4.3).
func IsBinary(data []byte, t config.Tunables) bool {
	n := len(data)
	if n > t.BinaryGuardSampleBytes {
		n = t.BinaryGuardSampleBytes
	}
	if n == 0 {
		return false
	}
	bad := 0
	for _, b := range data[:n] {
		if b < 9 || (b > 13 && b < 32) {
			bad++
		}
	}
	return float64(bad)/float64(n) > t.BinaryGuardRatio
}

// SelectMode samples up to t.ModeSampleLines leading lines (each truncated
// to t.ModeSampleLineCap bytes) with Strict tokenization and counts
// distinct skeletons. If distinct/lines exceeds t.ModeAggressiveRatio,
// Aggressive mode is selected for the rest of the input; otherwise Strict.
// This decision is made once per stream, before any output is produced.
func SelectMode(lines [][]byte, t config.Tunables) tokenize.Mode {
	sampleCount := len(lines)
	if sampleCount > t.ModeSampleLines {
		sampleCount = t.ModeSampleLines
	}
	if sampleCount == 0 {
		return tokenize.Strict
	}

	seen := make(map[string]struct{}, sampleCount)
	for _, line := range lines[:sampleCount] {
		if len(line) > t.ModeSampleLineCap {
			line = line[:t.ModeSampleLineCap]
		}
		skel := tokenize.Sample(line, tokenize.Strict)
		seen[skel] = struct{}{}
	}

	ratio := float64(len(seen)) / float64(sampleCount)
	if ratio > t.ModeAggressiveRatio {
		return tokenize.Aggressive
	}
	return tokenize.Strict
}

// EntropyBailout reports whether the template count has grown fast enough,
// relative to rows processed so far, to abandon CAST for this row-group
// (spec §4.3). mode selects which fraction applies.
func EntropyBailout(nextID int, rowsSoFar int, mode tokenize.Mode, t config.Tunables) bool {
	if nextID <= t.EntropyBailoutMinTemplates {
		return false
	}
	ratio := t.EntropyBailoutStrictRatio
	if mode == tokenize.Aggressive {
		ratio = t.EntropyBailoutAggressiveRatio
	}
	limit := float64(rowsSoFar) * ratio
	return float64(nextID) > limit
}

// SelectLayout samples cells from the first few templates, compresses the
// sample with be, and chooses Split when the sample doesn't compress well
// (the tokens alone lack redundancy the entropy coder can exploit without
// CAST's columnar regrouping), Unified otherwise (spec §4.3). Registries
// with t.LayoutSampleMaxTemplates templates or more always use Unified,
// since sampling that many distinct skeletons is not representative.
func SelectLayout(reg *template.Registry, t config.Tunables, be backend.Backend) (Layout, error) {
	numTemplates := reg.NumTemplates()
	if numTemplates == 0 || numTemplates >= t.LayoutSampleMaxTemplates {
		return Unified, nil
	}

	var sample bytes.Buffer
	collected := 0
	sampleTemplates := t.LayoutSampleTemplates
	if sampleTemplates > numTemplates {
		sampleTemplates = numTemplates
	}

outer:
	for tid := 0; tid < sampleTemplates; tid++ {
		id := uint32(tid)
		for col := 0; col < reg.NumColumns(id); col++ {
			cells := reg.Column(id, col)
			limit := len(cells)
			if limit > t.LayoutSampleCellsPerColumn {
				limit = t.LayoutSampleCellsPerColumn
			}
			for _, cell := range cells[:limit] {
				sample.Write(cell)
				collected++
			}
			if collected > t.LayoutSampleMaxBytes {
				break outer
			}
		}
		if collected > t.LayoutSampleMaxBytes {
			break
		}
	}

	if sample.Len() == 0 {
		return Unified, nil
	}

	compressed, err := be.Compress(sample.Bytes())
	if err != nil {
		return Unified, err
	}
	if len(compressed) == 0 {
		return Unified, nil
	}

	ratio := float64(sample.Len()) / float64(len(compressed))
	if ratio < t.LayoutSplitRatioThreshold {
		return Split, nil
	}
	return Unified, nil
}
