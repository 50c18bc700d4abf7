// Command castgen writes a synthetic line-oriented log file exercising
// every template shape CAST's strategy oracle has to decide between: dense
// repeating JSON records, CRLF-terminated sentences, and high-cardinality
// one-off lines. It is the Go counterpart of original_source's
// create_chaotic_log demo generator, structured as a thin CLI the way
// cmd/fix-tests/main.go wraps its own single-purpose routine.
package main

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"

	"github.com/jessevdk/go-flags"

	"github.com/k0kubun/cast/util"
)

var users = [...]string{"admin", "guest", "service_bot", "deploy_agent"}
var actions = [...]string{"LOGIN", "LOGOUT", "PURCHASE", "VIEW", "ERROR_CHECK"}

type options struct {
	Output string `short:"o" long:"output" description:"Output file path" value-name:"path" default:"chaotic.log"`
	Lines  uint   `short:"n" long:"lines" description:"Number of lines to generate" value-name:"count" default:"100000"`
}

func main() {
	util.InitSlog()

	var opts options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		os.Exit(1)
	}

	if err := run(opts); err != nil {
		slog.Error("castgen failed", "error", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	f, err := os.Create(opts.Output)
	if err != nil {
		return fmt.Errorf("creating %q: %w", opts.Output, err)
	}
	defer f.Close()

	w := bufio.NewWriterSize(f, 256*1024)
	for i := uint(0); i < opts.Lines; i++ {
		writeLine(w, i)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("writing %q: %w", opts.Output, err)
	}

	slog.Info("generated demo log", "path", opts.Output, "lines", opts.Lines)
	return nil
}

// writeLine emits one of three template shapes depending on i%10, matching
// create_chaotic_log's 60/20/20 split: dense JSON records dominate (the
// case CAST's columnar remapping is built for), a CRLF-terminated sentence
// form exercises \r\n normalization, and a high-cardinality form varies its
// values (not its skeleton) on every line, so it does not trigger the
// entropy bailout.
func writeLine(w *bufio.Writer, i uint) {
	user := users[i%uint(len(users))]
	action := actions[i%uint(len(actions))]
	mode := i % 10

	switch {
	case mode < 6:
		fmt.Fprintf(w, `{"ts": %d, "u": "%s", "act": "%s", "lat": %d}`+"\n",
			i, user, action, 10+(i%100))
	case mode < 8:
		fmt.Fprintf(w, "2023-12-20 [INFO] User %s performed %s\r\n", user, action)
	default:
		fmt.Fprintf(w, "CRITICAL FAILURE at module_%d.c: line %d (Code: %d)\n",
			i%5, i%100, i*7)
	}
}
