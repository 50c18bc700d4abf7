package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/jessevdk/go-flags"

	"github.com/k0kubun/cast/backend"
	"github.com/k0kubun/cast/container"
)

var version string

// options is the parsed command line, mirroring mysqldef's go-flags struct
// (cmd/mysqldef/mysqldef.go) but over CAST's compress/decompress verbs
// instead of a database connection.
type options struct {
	Compress    bool   `short:"c" long:"compress" description:"Compress stdin (or --file) to stdout"`
	Decompress  bool   `short:"d" long:"decompress" description:"Decompress stdin (or --file) to stdout"`
	Verify      string `short:"v" long:"verify" description:"Decompress this file to a null sink and report any corruption" value-name:"path"`
	File        string `short:"f" long:"file" description:"Read from this file instead of stdin" value-name:"path"`
	Mode        string `long:"mode" description:"Entropy backend: native, 7zip, or auto" value-name:"mode" default:"auto"`
	ChunkSize   string `long:"chunk-size" description:"Row-group target size, e.g. 64K, 8M, 1G (sampled against average line length)" value-name:"size"`
	DictSize    uint   `long:"dict-size" description:"LZMA2 dictionary size in bytes" value-name:"bytes"`
	Multithread bool   `long:"multithread" description:"Allow the backend to use multiple threads where supported"`
	Rows        string `long:"rows" description:"1-based inclusive row range to decompress, e.g. 100-200" value-name:"start-end"`
	Config      string `long:"config" description:"YAML file overriding the strategy oracle's tunables" value-name:"path"`
	Verbose     bool   `short:"V" long:"verbose" description:"Print the chosen backend and row-group summary to stderr"`
	Help        bool   `long:"help" description:"Show this help"`
	Version     bool   `long:"version" description:"Show this version"`
}

// parseOptions parses args the way cmd/mysqldef/mysqldef.go's parseOptions
// does, but CAST has no database target: the only positional concept is the
// compress/decompress/verify mode flag, which is mutually exclusive.
func parseOptions(args []string) *options {
	var opts options
	parser := flags.NewParser(&opts, flags.None)
	parser.Usage = "-c|-d|-v [options]"
	if _, err := parser.ParseArgs(args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if opts.Help {
		parser.WriteHelp(os.Stdout)
		os.Exit(0)
	}
	if opts.Version {
		fmt.Println(version)
		os.Exit(0)
	}
	modes := 0
	for _, set := range []bool{opts.Compress, opts.Decompress, opts.Verify != ""} {
		if set {
			modes++
		}
	}
	if modes != 1 {
		fmt.Fprintln(os.Stderr, "exactly one of -c/--compress, -d/--decompress, or -v/--verify is required")
		parser.WriteHelp(os.Stderr)
		os.Exit(1)
	}
	return &opts
}

// parseChunkSize parses a byte-size string with an optional B/K/M/G suffix
// (spec §6's --chunk-size), returning 0 when s is empty.
func parseChunkSize(s string) (uint64, error) {
	if s == "" {
		return 0, nil
	}
	upper := strings.ToUpper(strings.TrimSpace(s))
	mult := uint64(1)
	switch {
	case strings.HasSuffix(upper, "G"):
		mult, upper = 1<<30, strings.TrimSuffix(upper, "G")
	case strings.HasSuffix(upper, "M"):
		mult, upper = 1<<20, strings.TrimSuffix(upper, "M")
	case strings.HasSuffix(upper, "K"):
		mult, upper = 1<<10, strings.TrimSuffix(upper, "K")
	case strings.HasSuffix(upper, "B"):
		upper = strings.TrimSuffix(upper, "B")
	}
	n, err := strconv.ParseUint(strings.TrimSpace(upper), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid --chunk-size %q: %w", s, err)
	}
	return n * mult, nil
}

// backendKind resolves the --mode flag to a backend.Kind, defaulting to
// backend.Auto's try-7zip-then-native fallback (spec §6).
func (o *options) backendKind() backend.Kind {
	switch strings.ToLower(o.Mode) {
	case "native":
		return backend.Native
	case "7zip":
		return backend.SevenZip
	default:
		return backend.Auto
	}
}

// parseRowRange parses "start-end" into 1-based inclusive bounds, or
// (container.NoRowFilter, container.NoRowFilter) when unset.
func parseRowRange(s string) (start, end int, err error) {
	if s == "" {
		return container.NoRowFilter, container.NoRowFilter, nil
	}
	parts := strings.SplitN(s, "-", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid --rows %q: expected start-end", s)
	}
	start, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid --rows %q: %w", s, err)
	}
	end, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid --rows %q: %w", s, err)
	}
	if start < 1 || end < start {
		return 0, 0, fmt.Errorf("invalid --rows %q: start must be >=1 and <= end", s)
	}
	return start, end, nil
}
