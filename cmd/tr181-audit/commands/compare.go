package commands

import (
	"flag"
	"fmt"
	"io"
	"sync"

	"github.com/tr181-tools/tr181-go/pkg/compare"
	"github.com/tr181-tools/tr181-go/pkg/datamodel"
	"github.com/tr181-tools/tr181-go/pkg/report"
)

// runCWMPVsRequirement extracts the model from a configured device and
// compares it against a requirement document. The device is source 1.
func runCWMPVsRequirement(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("cwmp-vs-operator-requirement", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var o liveOptions
	o.register(fs)
	format := fs.String("format", report.FormatText, "output format: text, json, or xml")
	output := fs.String("o", "", "write the report to this file instead of stdout")
	fs.Usage = func() {
		fmt.Fprint(stderr, `Compare a live device data model against an operator requirement document.

Usage: tr181-audit cwmp-vs-operator-requirement [options] <config> <requirement-file>

Options:
`)
		fs.PrintDefaults()
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 2 {
		return failUsage(stderr, fs, "device configuration name and requirement file required")
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
	deviceNodes, err := d.extract(ctx, o, stderr)
	if err != nil {
		return fail(stderr, err)
	}
	fileNodes, err := loadDocument(ctx, fs.Arg(1))
	if err != nil {
		return fail(stderr, err)
	}

	result := compare.Compare(deviceNodes, fileNodes)
	if err := writeComparison(result, *format, *output, o.verbose, stdout); err != nil {
		return fail(stderr, err)
	}
	reportFaults(o, stderr)
	return ExitOK
}

// runRequirementVsDevice audits a device against a requirement document
// with per-node validation. The document is the reference, the device the
// audited side. With -live, declared events and functions are exercised
// against the device after extraction.
func runRequirementVsDevice(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("operator-requirement-vs-device", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var o liveOptions
	o.register(fs)
	format := fs.String("format", report.FormatText, "output format: text, json, or xml")
	output := fs.String("o", "", "write the report to this file instead of stdout")
	live := fs.Bool("live", false, "exercise declared events and functions against the device")
	fs.Usage = func() {
		fmt.Fprint(stderr, `Audit a device against an operator requirement document.

Runs the comparison, validates every observed value against the document's
node definitions, and with -live subscribes to declared events and calls
declared functions on the device.

Usage: tr181-audit operator-requirement-vs-device [options] <requirement-file> <config>

Options:
`)
		fs.PrintDefaults()
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 2 {
		return failUsage(stderr, fs, "requirement file and device configuration name required")
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

	reference, err := loadDocument(ctx, fs.Arg(0))
	if err != nil {
		return fail(stderr, err)
	}
	d, err := openDevice(store, fs.Arg(1), logger)
	if err != nil {
		return fail(stderr, err)
	}
	actual, err := d.extract(ctx, o, stderr)
	if err != nil {
		return fail(stderr, err)
	}

	// Extraction disconnects when it finishes, so the live tests need
	// their own connection.
	var liveDev compare.LiveDevice
	if *live {
		if err := d.hook.Connect(ctx, d.cfg.Normalized()); err != nil {
			return fail(stderr, err)
		}
		defer d.hook.Disconnect()
		liveDev = d.hook
	}

	result := compare.CompareWithValidation(ctx, reference, actual, liveDev)
	if err := writeEnhanced(result, *format, *output, o.verbose, stdout); err != nil {
		return fail(stderr, err)
	}
	reportFaults(o, stderr)
	return ExitOK
}

// runDeviceVsDevice extracts from two configured devices in parallel and
// compares the results. The first configuration is source 1.
func runDeviceVsDevice(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("device-vs-device", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var o liveOptions
	o.register(fs)
	format := fs.String("format", report.FormatText, "output format: text, json, or xml")
	output := fs.String("o", "", "write the report to this file instead of stdout")
	fs.Usage = func() {
		fmt.Fprint(stderr, `Compare the data models of two live devices.

Both extractions run in parallel; with -protocol-log the traffic of both
devices lands in the same file, distinguished by connection ID.

Usage: tr181-audit device-vs-device [options] <config1> <config2>

Options:
`)
		fs.PrintDefaults()
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 2 {
		return failUsage(stderr, fs, "two device configuration names required")
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

	names := [2]string{fs.Arg(0), fs.Arg(1)}
	var devices [2]*device
	for i, name := range names {
		d, err := openDevice(store, name, logger)
		if err != nil {
			return fail(stderr, err)
		}
		devices[i] = d
	}

	var (
		nodes [2][]*datamodel.Node
		errs  [2]error
		wg    sync.WaitGroup
	)
	for i := range devices {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			nodes[i], errs[i] = devices[i].extract(ctx, o, stderr)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return fail(stderr, fmt.Errorf("extraction from %q failed: %w", names[i], err))
		}
	}

	result := compare.Compare(nodes[0], nodes[1])
	if err := writeComparison(result, *format, *output, o.verbose, stdout); err != nil {
		return fail(stderr, err)
	}
	reportFaults(o, stderr)
	return ExitOK
}
