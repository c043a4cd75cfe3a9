package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/tr181-tools/tr181-go/pkg/validate"
)

// runValidateRequirement checks a requirement document for structural
// problems. Errors make the exit code non-zero, warnings do not.
func runValidateRequirement(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("validate-operator-requirement", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprint(stderr, `Validate an operator requirement document.

Checks for duplicate paths, malformed paths, naming convention breaks and
unresolved parent or child references.

Usage: tr181-audit validate-operator-requirement <requirement-file>
`)
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 1 {
		return failUsage(stderr, fs, "requirement file required")
	}

	path := fs.Arg(0)
	nodes, err := loadDocument(context.Background(), path)
	if err != nil {
		return fail(stderr, err)
	}

	result := validate.Collection(nodes)

	fmt.Fprintf(stdout, "%s: %d nodes, %d errors, %d warnings\n",
		path, len(nodes), len(result.Errors), len(result.Warnings))
	for _, issue := range result.Errors {
		fmt.Fprintf(stdout, "  error: %s\n", issue)
	}
	for _, issue := range result.Warnings {
		fmt.Fprintf(stdout, "  warning: %s\n", issue)
	}

	if !result.Valid {
		return ExitError
	}
	return ExitOK
}
