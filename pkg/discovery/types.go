package discovery

import (
	"errors"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/tr181-tools/tr181-go/pkg/hook"
)

// Service constants for mDNS.
const (
	// ServiceTypeManagement is the service type announced by managed devices.
	ServiceTypeManagement = "_tr181-mgmt._tcp"

	// Domain is the mDNS domain.
	Domain = "local"

	// BrowseTimeout is the default timeout for mDNS browsing.
	BrowseTimeout = 10 * time.Second
)

// TXT record key constants.
const (
	TXTKeyType    = "type" // Hook type: cwmp, rest, or snmp (required)
	TXTKeyVersion = "ver"  // Advertised data model version (optional)
	TXTKeyPath    = "path" // URL path prefix for HTTP transports (optional)
	TXTKeyName    = "name" // Human readable device name (optional)
)

// Limits.
const (
	// MaxInstanceNameLen is the DNS label limit.
	MaxInstanceNameLen = 63

	// MaxTXTRecordSize is the maximum total TXT record size.
	MaxTXTRecordSize = 400
)

// Discovery errors.
var (
	ErrInvalidTXTRecord    = errors.New("invalid TXT record format")
	ErrMissingRequired     = errors.New("missing required field")
	ErrInstanceNameTooLong = errors.New("instance name exceeds 63 characters")
	ErrNotFound            = errors.New("service not found")
)

// EndpointInfo contains information for announcing a managed device.
type EndpointInfo struct {
	// InstanceName is the mDNS instance name.
	InstanceName string

	// Type is the hook type clients should connect with (cwmp, rest, snmp).
	Type string

	// Version is the advertised data model version. Optional.
	Version string

	// Path is the URL path prefix for HTTP transports. Optional.
	Path string

	// Name is a human readable device name. Optional.
	Name string

	// Port is the service port.
	Port uint16

	// Host is the hostname to advertise.
	Host string
}

// DiscoveredEndpoint represents a managed device found via mDNS.
type DiscoveredEndpoint struct {
	// InstanceName is the mDNS instance name.
	InstanceName string

	// Host is the hostname (e.g. "gw-1.local.").
	Host string

	// Port is the service port.
	Port uint16

	// Addresses contains resolved IP addresses.
	Addresses []string

	// Type is the hook type (from TXT "type").
	Type string

	// Version is the advertised data model version (from TXT "ver").
	Version string

	// Path is the URL path prefix (from TXT "path").
	Path string

	// Name is the human readable device name (from TXT "name").
	Name string

	// TXT carries the raw TXT records.
	TXT TXTRecordMap
}

// DeviceConfig derives a ready-to-save device configuration from the
// endpoint. A resolved address is preferred over the mDNS hostname so the
// configuration keeps working without multicast DNS; HTTP endpoints fold
// the announced path prefix into the URL.
func (e *DiscoveredEndpoint) DeviceConfig() hook.DeviceConfig {
	host := strings.TrimSuffix(e.Host, ".")
	if len(e.Addresses) > 0 {
		host = e.Addresses[0]
	}

	endpoint := net.JoinHostPort(host, strconv.FormatUint(uint64(e.Port), 10))
	if e.Type == "rest" {
		endpoint = "https://" + endpoint + e.Path
	}

	name := e.Name
	if name == "" {
		name = e.InstanceName
	}

	return hook.DeviceConfig{
		Name:     name,
		Type:     e.Type,
		Endpoint: endpoint,
	}
}
