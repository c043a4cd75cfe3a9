// Package discovery implements mDNS/DNS-SD discovery of managed devices.
//
// Devices that expose a TR-181 management endpoint announce one service:
//
// # Management Discovery (_tr181-mgmt._tcp)
//
// The instance name identifies the device on the LAN. TXT records include:
// type (the hook type clients should connect with: cwmp, rest, or snmp),
// and optionally ver (advertised data model version), path (URL path prefix
// for HTTP transports), and name (human readable device name).
//
// Browsing aggregates answers from all network interfaces into one
// DiscoveredEndpoint per instance name. A discovered endpoint can be turned
// into a ready-to-save device configuration with DeviceConfig.
package discovery
