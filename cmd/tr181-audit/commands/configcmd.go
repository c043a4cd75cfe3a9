package commands

import (
	"flag"
	"fmt"
	"io"

	"github.com/tr181-tools/tr181-go/pkg/hook"
)

// runListConfigs lists the stored device configurations.
func runListConfigs(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("list-configs", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configDir := fs.String("config-dir", "", "device configuration directory (default: user config dir)")
	fs.Usage = func() {
		fmt.Fprint(stderr, `List stored device configurations.

Usage: tr181-audit list-configs [options]

Options:
`)
		fs.PrintDefaults()
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}

	store, err := openStore(*configDir)
	if err != nil {
		return fail(stderr, err)
	}
	configs, err := store.List()
	if err != nil {
		return fail(stderr, err)
	}
	if len(configs) == 0 {
		fmt.Fprintf(stdout, "No device configurations found in %s\n", store.Dir())
		return ExitOK
	}

	fmt.Fprintf(stdout, "Device configurations in %s:\n\n", store.Dir())
	fmt.Fprintf(stdout, "  %-20s %-6s %s\n", "NAME", "TYPE", "ENDPOINT")
	for _, cfg := range configs {
		fmt.Fprintf(stdout, "  %-20s %-6s %s\n", cfg.Name, cfg.Type, cfg.Endpoint)
	}
	return ExitOK
}

// runCreateConfig writes a new device configuration to the store.
func runCreateConfig(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("create-config", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configDir := fs.String("config-dir", "", "device configuration directory (default: user config dir)")
	typ := fs.String("type", "", fmt.Sprintf("device type, one of %v (required)", hook.Types()))
	endpoint := fs.String("endpoint", "", "device endpoint, host:port or URL (required)")
	username := fs.String("username", "", "username for CWMP or REST authentication")
	password := fs.String("password", "", "password for CWMP or REST authentication")
	token := fs.String("token", "", "bearer token for REST authentication")
	community := fs.String("community", "", "SNMP community string")
	timeout := fs.Int("timeout", hook.DefaultTimeout, "request timeout in seconds")
	retryCount := fs.Int("retry-count", hook.DefaultRetryCount, "retry attempts per request")
	insecure := fs.Bool("insecure", false, "skip TLS certificate verification")
	caFile := fs.String("ca-file", "", "CA certificate file for TLS")
	certFile := fs.String("cert-file", "", "client certificate file for TLS")
	keyFile := fs.String("key-file", "", "client key file for TLS")
	fs.Usage = func() {
		fmt.Fprint(stderr, `Create a device configuration.

Usage: tr181-audit create-config [options] -type <type> -endpoint <endpoint> <name>

Options:
`)
		fs.PrintDefaults()
	}
	if code, ok := parseFlags(fs, args); !ok {
		return code
	}
	if fs.NArg() != 1 {
		return failUsage(stderr, fs, "configuration name required")
	}
	if *typ == "" || *endpoint == "" {
		return failUsage(stderr, fs, "-type and -endpoint are required")
	}

	cfg := hook.DeviceConfig{
		Name:       fs.Arg(0),
		Type:       *typ,
		Endpoint:   *endpoint,
		Timeout:    *timeout,
		RetryCount: *retryCount,
	}
	auth := map[string]any{}
	if *username != "" {
		auth["username"] = *username
	}
	if *password != "" {
		auth["password"] = *password
	}
	if *token != "" {
		auth["token"] = *token
	}
	if *community != "" {
		auth["community"] = *community
	}
	if len(auth) > 0 {
		cfg.Authentication = auth
	}
	if *insecure || *caFile != "" || *certFile != "" || *keyFile != "" {
		cfg.TLS = &hook.TLSSettings{
			CAFile:             *caFile,
			CertFile:           *certFile,
			KeyFile:            *keyFile,
			InsecureSkipVerify: *insecure,
		}
	}

	// Reject unknown types here rather than at first use.
	if _, err := hook.New(cfg); err != nil {
		return fail(stderr, err)
	}

	store, err := openStore(*configDir)
	if err != nil {
		return fail(stderr, err)
	}
	if err := store.Save(cfg); err != nil {
		return fail(stderr, err)
	}
	fmt.Fprintf(stdout, "Saved configuration %q to %s\n", cfg.Name, store.Path(cfg.Name))
	return ExitOK
}
