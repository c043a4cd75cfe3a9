package discovery

import (
	"context"
	"time"
)

// Advertiser provides mDNS announcement capabilities for managed devices.
type Advertiser interface {
	// Announce starts advertising a management service. Announcing an
	// instance name that is already active replaces the previous record.
	Announce(ctx context.Context, info *EndpointInfo) error

	// Update replaces the TXT records of an active announcement.
	Update(instanceName string, info *EndpointInfo) error

	// Stop withdraws the announcement for a specific instance.
	Stop(instanceName string) error

	// StopAll withdraws all announcements.
	StopAll()
}

// Browser provides mDNS service browsing for managed devices.
type Browser interface {
	// Browse searches for managed devices. The channel delivers each
	// instance once and is closed when the context is cancelled.
	Browse(ctx context.Context) (<-chan *DiscoveredEndpoint, error)

	// FindByInstance searches for a specific device.
	// Returns when found or when the context is cancelled.
	FindByInstance(ctx context.Context, instanceName string) (*DiscoveredEndpoint, error)

	// Stop stops all active browsing operations.
	Stop()
}

// AdvertiserConfig configures advertiser behavior.
type AdvertiserConfig struct {
	// Interface specifies which network interface to use.
	// Empty string means all interfaces.
	Interface string

	// TTL is the DNS record TTL.
	// Default: 120 seconds.
	TTL time.Duration
}

// DefaultAdvertiserConfig returns the default advertiser configuration.
func DefaultAdvertiserConfig() AdvertiserConfig {
	return AdvertiserConfig{
		Interface: "",
		TTL:       120 * time.Second,
	}
}

// BrowserConfig configures browser behavior.
type BrowserConfig struct {
	// BrowseTimeout is the default timeout for browse operations.
	// Default: 10 seconds.
	BrowseTimeout time.Duration

	// Interface specifies which network interface to use.
	// Empty string means all interfaces.
	Interface string
}

// DefaultBrowserConfig returns the default browser configuration.
func DefaultBrowserConfig() BrowserConfig {
	return BrowserConfig{
		BrowseTimeout: BrowseTimeout,
		Interface:     "",
	}
}

// FilterFunc is a function that filters browse results.
type FilterFunc func(*DiscoveredEndpoint) bool

// FilterByType returns a filter that matches endpoints announcing any of
// the given hook types.
func FilterByType(types ...string) FilterFunc {
	typeSet := make(map[string]struct{})
	for _, t := range types {
		typeSet[t] = struct{}{}
	}

	return func(ep *DiscoveredEndpoint) bool {
		_, ok := typeSet[ep.Type]
		return ok
	}
}

// FilterBrowseResults filters a channel of discovered endpoints.
func FilterBrowseResults(in <-chan *DiscoveredEndpoint, filter FilterFunc) <-chan *DiscoveredEndpoint {
	out := make(chan *DiscoveredEndpoint)
	go func() {
		defer close(out)
		for ep := range in {
			if filter(ep) {
				out <- ep
			}
		}
	}()
	return out
}

// ServiceEntry holds raw mDNS answer data in a transport-neutral form.
// This is a helper for Browser implementations.
type ServiceEntry struct {
	Instance string
	Service  string
	Domain   string
	Host     string
	Port     uint16
	Text     []string
	Addrs    []string
}

// ToEndpoint converts a ServiceEntry to a DiscoveredEndpoint.
func (e *ServiceEntry) ToEndpoint() (*DiscoveredEndpoint, error) {
	txt := StringsToTXTRecords(e.Text)
	info, err := DecodeManagementTXT(txt)
	if err != nil {
		return nil, err
	}

	return &DiscoveredEndpoint{
		InstanceName: e.Instance,
		Host:         e.Host,
		Port:         e.Port,
		Addresses:    append([]string(nil), e.Addrs...),
		Type:         info.Type,
		Version:      info.Version,
		Path:         info.Path,
		Name:         info.Name,
		TXT:          txt,
	}, nil
}
