// Package config holds the tunable constants behind CAST's strategy
// heuristics, loaded the way database.ParseGeneratorConfig loads a YAML
// override file: sensible defaults baked in, optionally overridden by a
// user-supplied YAML document. Per spec §9, these are empirical constants,
// not part of the on-disk contract, so callers are free to override them
// without touching the container format.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Tunables collects every empirical constant named in spec §4.3 and §4.6.
type Tunables struct {
	// RowBudget is the default number of lines per row-group (R).
	RowBudget int `yaml:"row_budget"`

	// BinaryGuardSampleBytes is how many leading bytes the binary guard inspects.
	BinaryGuardSampleBytes int `yaml:"binary_guard_sample_bytes"`
	// BinaryGuardRatio is the bad-byte ratio above which input is treated as binary.
	BinaryGuardRatio float64 `yaml:"binary_guard_ratio"`

	// ModeSampleLines is how many leading lines are sampled for Strict/Aggressive selection.
	ModeSampleLines int `yaml:"mode_sample_lines"`
	// ModeSampleLineCap truncates each sampled line to this many bytes.
	ModeSampleLineCap int `yaml:"mode_sample_line_cap"`
	// ModeAggressiveRatio is the distinct/lines ratio above which Aggressive mode is chosen.
	ModeAggressiveRatio float64 `yaml:"mode_aggressive_ratio"`

	// EntropyBailoutStrictRatio bounds next_id/lines in Strict mode.
	EntropyBailoutStrictRatio float64 `yaml:"entropy_bailout_strict_ratio"`
	// EntropyBailoutAggressiveRatio bounds next_id/lines in Aggressive mode.
	EntropyBailoutAggressiveRatio float64 `yaml:"entropy_bailout_aggressive_ratio"`
	// EntropyBailoutMinTemplates is the minimum template count before the ratio bailout can fire.
	EntropyBailoutMinTemplates int `yaml:"entropy_bailout_min_templates"`

	// LayoutSampleMaxTemplates bounds the template count eligible for layout sampling.
	LayoutSampleMaxTemplates int `yaml:"layout_sample_max_templates"`
	// LayoutSampleTemplates is how many leading templates are sampled.
	LayoutSampleTemplates int `yaml:"layout_sample_templates"`
	// LayoutSampleCellsPerColumn caps sampled cells per column.
	LayoutSampleCellsPerColumn int `yaml:"layout_sample_cells_per_column"`
	// LayoutSampleMaxBytes caps the total number of sampled cells (not bytes).
	LayoutSampleMaxBytes int `yaml:"layout_sample_max_bytes"`
	// LayoutSplitRatioThreshold is the sample compression ratio below which Split is chosen.
	LayoutSplitRatioThreshold float64 `yaml:"layout_split_ratio_threshold"`

	// DictSize is the default LZMA2 dictionary size in bytes.
	DictSize uint32 `yaml:"dict_size"`
	// PrereadBytes is how many leading bytes are buffered before the binary guard runs.
	PrereadBytes int `yaml:"preread_bytes"`
	// BinaryChunkBytes is the chunk size used when streaming a binary-guarded passthrough.
	BinaryChunkBytes int `yaml:"binary_chunk_bytes"`
	// MaxPreallocBytes is loaded and defaulted like the other fields, but no
	// code reads it: decompression does not cap its buffer allocations by it.
	MaxPreallocBytes int64 `yaml:"max_prealloc_bytes"`
}

// Default returns the tunables spec.md specifies inline.
func Default() Tunables {
	return Tunables{
		RowBudget: 200_000,

		BinaryGuardSampleBytes: 4096,
		BinaryGuardRatio:       0.01,

		ModeSampleLines:     1000,
		ModeSampleLineCap:   16 * 1024,
		ModeAggressiveRatio: 0.10,

		EntropyBailoutStrictRatio:     0.25,
		EntropyBailoutAggressiveRatio: 0.40,
		EntropyBailoutMinTemplates:    100,

		LayoutSampleMaxTemplates:   256,
		LayoutSampleTemplates:      5,
		LayoutSampleCellsPerColumn: 50,
		LayoutSampleMaxBytes:       2000,
		LayoutSplitRatioThreshold:  3.0,

		DictSize:         128 * 1024 * 1024,
		PrereadBytes:     4096,
		BinaryChunkBytes: 16 * 1024 * 1024,
		MaxPreallocBytes: 2 * 1024 * 1024 * 1024,
	}
}

// Load reads a YAML file and applies any fields it sets on top of Default().
// An empty path returns Default() unchanged.
func Load(path string) (Tunables, error) {
	t := Default()
	if path == "" {
		return t, nil
	}
	buf, err := os.ReadFile(path)
	if err != nil {
		return t, fmt.Errorf("reading config %q: %w", path, err)
	}
	if err := yaml.Unmarshal(buf, &t); err != nil {
		return t, fmt.Errorf("parsing config %q: %w", path, err)
	}
	return t, nil
}
