package commands

import (
	"flag"
	"fmt"
	"io"

	"github.com/tr181-tools/tr181-go/cmd/tr181-audit/interactive"
	"github.com/tr181-tools/tr181-go/pkg/datamodel"
)

// runShell opens an interactive browser over a data model, extracted live
// from a configured device or loaded from a saved document.
func runShell(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("shell", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var o liveOptions
	o.register(fs)
	file := fs.String("file", "", "browse a saved document instead of a live device")
	fs.Usage = func() {
		fmt.Fprint(stderr, `Browse a data model interactively.

The model comes from a live extraction of the named device configuration,
or with -file from a saved document.

Usage: tr181-audit shell [options] <config>
       tr181-audit shell -file <document>

Options:
`)
		fs.PrintDefaults()
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if *file != "" && fs.NArg() > 0 {
		return failUsage(stderr, fs, "give a device configuration name or -file, not both")
	}
	if *file == "" && fs.NArg() != 1 {
		return failUsage(stderr, fs, "device configuration name or -file required")
	}

	ctx, cancel := commandContext(o.timeout)
	defer cancel()

	var (
		nodes []*datamodel.Node
		label string
	)
	if *file != "" {
		label = *file
		var err error
		nodes, err = loadDocument(ctx, *file)
		if err != nil {
			return fail(stderr, err)
		}
	} else {
		label = fs.Arg(0)
		store, err := openStore(o.configDir)
		if err != nil {
			return fail(stderr, err)
		}
		logger, closeLog, err := setupLogger(o.protocolLog)
		if err != nil {
			return fail(stderr, err)
		}
		defer closeLog()
		d, err := openDevice(store, label, logger)
		if err != nil {
			return fail(stderr, err)
		}
		nodes, err = d.extract(ctx, o, stderr)
		if err != nil {
			return fail(stderr, err)
		}
	}

	sh, err := interactive.New(nodes, label)
	if err != nil {
		return fail(stderr, err)
	}
	sh.Run(ctx)
	reportFaults(o, stderr)
	return ExitOK
}
