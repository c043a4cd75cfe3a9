package commands

import (
	"flag"
	"fmt"
	"io"

	"github.com/tr181-tools/tr181-go/pkg/discovery"
	"github.com/tr181-tools/tr181-go/pkg/faults"
)

// runDiscover browses for managed devices via mDNS and optionally saves
// one as a device configuration.
func runDiscover(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("discover", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configDir := fs.String("config-dir", "", "device configuration directory (default: user config dir)")
	timeout := fs.Duration("timeout", discovery.BrowseTimeout, "how long to browse")
	typeFilter := fs.String("type", "", "only list endpoints of this hook type (cwmp, rest, snmp)")
	save := fs.String("save", "", "save the endpoint with this instance name as a configuration")
	saveName := fs.String("name", "", "configuration name to save under (default: advertised name)")
	iface := fs.String("interface", "", "network interface to browse on (default: all)")
	fs.Usage = func() {
		fmt.Fprint(stderr, `Discover managed devices announced via mDNS.

Usage: tr181-audit discover [options]

Options:
`)
		fs.PrintDefaults()
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	ctx, cancel := commandContext(*timeout)
	defer cancel()

	cfg := discovery.DefaultBrowserConfig()
	cfg.BrowseTimeout = *timeout
	cfg.Interface = *iface
	browser, err := discovery.NewMDNSBrowser(cfg)
	if err != nil {
		return fail(stderr, err)
	}
	defer browser.Stop()

	ch, err := browser.Browse(ctx)
	if err != nil {
		return fail(stderr, err)
	}
	if *typeFilter != "" {
		ch = discovery.FilterBrowseResults(ch, discovery.FilterByType(*typeFilter))
	}

	fmt.Fprintf(stdout, "Browsing for %s services...\n", discovery.ServiceTypeManagement)
	var found []*discovery.DiscoveredEndpoint
	for ep := range ch {
		found = append(found, ep)
		fmt.Fprintf(stdout, "  %d. %s (type: %s, endpoint: %s%s)\n",
			len(found), ep.InstanceName, ep.Type, ep.DeviceConfig().Endpoint, versionSuffix(ep))
	}
	fmt.Fprintf(stdout, "\nFound %d device(s)\n", len(found))

	if *save == "" {
		return ExitOK
	}
	var target *discovery.DiscoveredEndpoint
	for _, ep := range found {
		if ep.InstanceName == *save {
			target = ep
			break
		}
	}
	if target == nil {
		return fail(stderr, faults.Validation(
			fmt.Sprintf("instance %q was not discovered", *save), discovery.ErrNotFound))
	}

	devCfg := target.DeviceConfig()
	if *saveName != "" {
		devCfg.Name = *saveName
	}
	store, err := openStore(*configDir)
	if err != nil {
		return fail(stderr, err)
	}
	if err := store.Save(devCfg); err != nil {
		return fail(stderr, err)
	}
	fmt.Fprintf(stdout, "Saved configuration %q to %s\n", devCfg.Name, store.Path(devCfg.Name))
	return ExitOK
}

func versionSuffix(ep *discovery.DiscoveredEndpoint) string {
	if ep.Version == "" {
		return ""
	}
	return fmt.Sprintf(", version: %s", ep.Version)
}
