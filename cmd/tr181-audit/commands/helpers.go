package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tr181-tools/tr181-go/pkg/compare"
	"github.com/tr181-tools/tr181-go/pkg/config"
	"github.com/tr181-tools/tr181-go/pkg/datamodel"
	"github.com/tr181-tools/tr181-go/pkg/extract"
	"github.com/tr181-tools/tr181-go/pkg/faults"
	"github.com/tr181-tools/tr181-go/pkg/hook"
	tr181log "github.com/tr181-tools/tr181-go/pkg/log"
	"github.com/tr181-tools/tr181-go/pkg/report"
)

// reporter collects faults from all hooks and extractors run by one
// command invocation.
var reporter = faults.NewReporter(0)

// liveOptions are the flags shared by every command that talks to a
// configured device.
type liveOptions struct {
	configDir   string
	protocolLog string
	verbose     bool
	timeout     time.Duration
	showFaults  bool
}

func (o *liveOptions) register(fs *flag.FlagSet) {
	fs.StringVar(&o.configDir, "config-dir", "", "device configuration directory (default: user config dir)")
	fs.StringVar(&o.protocolLog, "protocol-log", "", "write protocol events to this file (view with tr181-log)")
	fs.BoolVar(&o.verbose, "verbose", false, "log extraction progress to stderr")
	fs.DurationVar(&o.timeout, "timeout", 0, "overall command timeout (0 = none)")
	fs.BoolVar(&o.showFaults, "show-faults", false, "list faults recorded during the run")
}

// commandContext returns a context cancelled by SIGINT or SIGTERM and,
// when timeout is positive, by a deadline.
func commandContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	if timeout <= 0 {
		return ctx, stop
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

// openStore resolves the configuration store, falling back to the
// per-user default directory when none was given.
func openStore(dir string) (*config.Store, error) {
	if dir == "" {
		var err error
		dir, err = config.DefaultDir()
		if err != nil {
			return nil, err
		}
	}
	return config.NewStore(dir), nil
}

// setupLogger opens the protocol capture log for -protocol-log. The
// returned interface stays nil when no path was requested so hooks never
// see a typed nil logger.
func setupLogger(path string) (tr181log.Logger, func(), error) {
	if path == "" {
		return nil, func() {}, nil
	}
	fl, err := tr181log.NewFileLogger(path)
	if err != nil {
		return nil, nil, err
	}
	return fl, func() { _ = fl.Close() }, nil
}

// parseFlags parses args. The second return is false when parsing ended
// the command, with the exit code to use.
func parseFlags(fs *flag.FlagSet, args []string) (int, bool) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitOK, false
		}
		return ExitError, false
	}
	return ExitOK, true
}

// device bundles a stored configuration with its instantiated hook.
type device struct {
	cfg  hook.DeviceConfig
	hook hook.Hook
}

// openDevice loads the named configuration and builds its hook. A non-nil
// logger is installed on hooks that support protocol capture.
func openDevice(store *config.Store, name string, logger tr181log.Logger) (*device, error) {
	cfg, err := store.Load(name)
	if err != nil {
		return nil, err
	}
	h, err := hook.New(cfg)
	if err != nil {
		return nil, err
	}
	if logger != nil {
		if pl, ok := h.(interface{ SetLogger(tr181log.Logger) }); ok {
			pl.SetLogger(logger)
		}
	}
	return &device{cfg: cfg, hook: h}, nil
}

// extractor picks the extractor family for the device type. REST
// endpoints serve a flat listing with contractual types checked strictly;
// CWMP and SNMP namespaces are walked recursively with lenient typing.
func (d *device) extractor(opts extract.Options) extract.Extractor {
	if d.cfg.Type == "rest" {
		opts.Strict = true
		return extract.NewFlatExtractor(d.hook, d.cfg, opts)
	}
	return extract.NewRecursiveExtractor(d.hook, d.cfg, opts)
}

// extract runs a full extraction against the device.
func (d *device) extract(ctx context.Context, o liveOptions, stderr io.Writer) ([]*datamodel.Node, error) {
	opts := extract.Options{Reporter: reporter}
	if o.verbose {
		opts.Logger = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return d.extractor(opts).Extract(ctx)
}

// loadDocument reads a stored data model document.
func loadDocument(ctx context.Context, path string) ([]*datamodel.Node, error) {
	return extract.NewFileStore(path).Extract(ctx)
}

// openOutput returns stdout or a created -o file plus its close function.
func openOutput(path string, stdout io.Writer) (io.Writer, func() error, error) {
	if path == "" {
		return stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, faults.Configuration(fmt.Sprintf("cannot create output file %s", path), err)
	}
	return f, f.Close, nil
}

// writeComparison renders the result in the requested format, to stdout
// or the -o file.
func writeComparison(result *compare.ComparisonResult, format, output string, verbose bool, stdout io.Writer) error {
	w, closeOut, err := openOutput(output, stdout)
	if err != nil {
		return err
	}
	rw, err := newReportWriter(format, w, verbose)
	if err != nil {
		_ = closeOut()
		return err
	}
	if err := rw.WriteComparison(result); err != nil {
		_ = closeOut()
		return err
	}
	return closeOut()
}

// writeEnhanced is writeComparison for enhanced results.
func writeEnhanced(result *compare.EnhancedComparisonResult, format, output string, verbose bool, stdout io.Writer) error {
	w, closeOut, err := openOutput(output, stdout)
	if err != nil {
		return err
	}
	rw, err := newReportWriter(format, w, verbose)
	if err != nil {
		_ = closeOut()
		return err
	}
	if err := rw.WriteEnhanced(result); err != nil {
		_ = closeOut()
		return err
	}
	return closeOut()
}

// newReportWriter builds the report writer, honoring -verbose for the
// text format.
func newReportWriter(format string, w io.Writer, verbose bool) (report.Writer, error) {
	if format == report.FormatText {
		return report.NewTextWriter(w, verbose), nil
	}
	return report.NewWriter(format, w)
}

// reportFaults lists the recorded faults when -show-faults was given.
func reportFaults(o liveOptions, stderr io.Writer) {
	if !o.showFaults || reporter.Total() == 0 {
		return
	}
	entries := reporter.Recent(0)
	fmt.Fprintf(stderr, "\n%d fault(s) recorded:\n", reporter.Total())
	for _, e := range entries {
		fmt.Fprintf(stderr, "  [%s] %s: %s\n", e.Code, e.Category, e.Message)
	}
}

// fail prints the error and returns the error exit code. Faults are
// rendered with their recovery suggestions.
func fail(stderr io.Writer, err error) int {
	var f *faults.Fault
	if errors.As(err, &f) {
		fmt.Fprintf(stderr, "Error: %s\n", faults.FormatForUser(f))
	} else {
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	return ExitError
}

// failUsage prints a usage error for the command and returns the error
// exit code.
func failUsage(stderr io.Writer, fs *flag.FlagSet, msg string) int {
	fmt.Fprintf(stderr, "Error: %s\n", msg)
	fs.Usage()
	return ExitError
}
