// Package commands implements the tr181-audit CLI commands.
package commands

import (
	"fmt"
	"io"

	"github.com/tr181-tools/tr181-go/pkg/version"
)

// Exit codes returned by Run.
const (
	ExitOK    = 0
	ExitError = 1
)

const usage = `tr181-audit - TR-181 Data Model Audit Tool

Usage:
  tr181-audit <command> [options] [arguments]

Comparison commands:
  cwmp-vs-operator-requirement <config> <file>    Compare a live device against a requirement document
  operator-requirement-vs-device <file> <config>  Audit a device against a requirement document
  device-vs-device <config1> <config2>            Compare two live devices

Device commands:
  extract -o <file> <config>                      Extract a device data model to a document
  discover                                        Discover devices via mDNS
  shell [<config> | -file <file>]                 Browse a data model interactively

Document commands:
  validate-operator-requirement <file>            Validate a requirement document

Configuration commands:
  list-configs                                    List stored device configurations
  create-config [options] <name>                  Create a device configuration

Other commands:
  version                                         Show version information
  help                                            Show this help

Use "tr181-audit <command> -h" for command options.
`

// deprecated maps retired command names to their replacements. The old
// names keep working with a warning.
var deprecated = map[string]string{
	"subset-vs-device": "operator-requirement-vs-device",
	"validate-subset":  "validate-operator-requirement",
}

// Run dispatches to the named subcommand and returns the process exit
// code. All output goes to the given writers so tests can capture it.
func Run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		fmt.Fprint(stderr, usage)
		return ExitError
	}

	name := args[0]
	if replacement, ok := deprecated[name]; ok {
		fmt.Fprintf(stderr, "Warning: %q is deprecated, use %q\n", name, replacement)
		name = replacement
	}

	switch name {
	case "cwmp-vs-operator-requirement":
		return runCWMPVsRequirement(args[1:], stdout, stderr)
	case "operator-requirement-vs-device":
		return runRequirementVsDevice(args[1:], stdout, stderr)
	case "device-vs-device":
		return runDeviceVsDevice(args[1:], stdout, stderr)
	case "extract":
		return runExtract(args[1:], stdout, stderr)
	case "validate-operator-requirement":
		return runValidateRequirement(args[1:], stdout, stderr)
	case "list-configs":
		return runListConfigs(args[1:], stdout, stderr)
	case "create-config":
		return runCreateConfig(args[1:], stdout, stderr)
	case "discover":
		return runDiscover(args[1:], stdout, stderr)
	case "shell":
		return runShell(args[1:], stdout, stderr)
	case "version", "-version", "--version":
		fmt.Fprintln(stdout, version.String("tr181-audit"))
		return ExitOK
	case "help", "-h", "-help", "--help":
		fmt.Fprint(stdout, usage)
		return ExitOK
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n\n", name)
		fmt.Fprint(stderr, usage)
		return ExitError
	}
}
