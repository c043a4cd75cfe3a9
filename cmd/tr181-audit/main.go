// Command tr181-audit extracts TR-181 data models from managed devices and
// compares them against operator requirement documents or other devices.
//
// Devices are reached through configurable transport hooks (CWMP, REST,
// SNMP); configurations are stored by name under the user configuration
// directory. Extracted models can be saved as versioned JSON or YAML
// documents and fed back into later comparisons.
//
// Usage:
//
//	tr181-audit extract -o model.json gw-lab
//	tr181-audit cwmp-vs-operator-requirement gw-lab requirement.yaml
//	tr181-audit operator-requirement-vs-device -live requirement.yaml gw-lab
//	tr181-audit device-vs-device gw-lab gw-field
//	tr181-audit validate-operator-requirement requirement.yaml
//	tr181-audit discover -timeout 5s
//	tr181-audit shell gw-lab
//
// Run "tr181-audit help" for the full command list.
package main

import (
	"os"

	"github.com/tr181-tools/tr181-go/cmd/tr181-audit/commands"

	// Register the protocol hooks.
	_ "github.com/tr181-tools/tr181-go/pkg/hook/cwmp"
	_ "github.com/tr181-tools/tr181-go/pkg/hook/rest"
	_ "github.com/tr181-tools/tr181-go/pkg/hook/snmp"
)

func main() {
	os.Exit(commands.Run(os.Args[1:], os.Stdout, os.Stderr))
}
