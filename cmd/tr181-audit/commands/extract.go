package commands

import (
	"flag"
	"fmt"
	"io"

	"github.com/tr181-tools/tr181-go/pkg/extract"
)

// runExtract extracts a device data model and saves it as a document.
// The file extension picks the encoding, .yaml/.yml or .json.
func runExtract(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("extract", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var o liveOptions
	o.register(fs)
	output := fs.String("o", "", "output document path, .json or .yaml (required)")
	description := fs.String("description", "", "description stored in the document metadata")
	fs.Usage = func() {
		fmt.Fprint(stderr, `Extract the data model from a configured device into a document.

Usage: tr181-audit extract [options] -o <file> <config>

Options:
`)
		fs.PrintDefaults()
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 1 {
		return failUsage(stderr, fs, "device configuration name required")
	}
	if *output == "" {
		return failUsage(stderr, fs, "-o is required")
	}

	ctx, cancel := commandContext(o.timeout)
	defer cancel()

	store, err := openStore(o.configDir)
	if err != nil {
		return fail(stderr, err)
	}
	logger, closeLog, err := setupLogger(o.protocolLog)
	if err != nil {
		return fail(stderr, err)
	}
	defer closeLog()

	d, err := openDevice(store, fs.Arg(0), logger)
	if err != nil {
		return fail(stderr, err)
	}
	nodes, err := d.extract(ctx, o, stderr)
	if err != nil {
		return fail(stderr, err)
	}

	doc := extract.NewFileStore(*output)
	if err := doc.SetNodes(nodes); err != nil {
		return fail(stderr, err)
	}
	if *description != "" {
		if err := doc.SetDescription(*description); err != nil {
			return fail(stderr, err)
		}
	}
	if err := doc.Save(); err != nil {
		return fail(stderr, err)
	}

	fmt.Fprintf(stdout, "Extracted %d nodes from %q to %s\n", len(nodes), fs.Arg(0), *output)
	reportFaults(o, stderr)
	return ExitOK
}
