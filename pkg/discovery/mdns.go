package discovery

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/enbility/zeroconf/v3"
)

// MDNSAdvertiser implements the Advertiser interface using zeroconf.
type MDNSAdvertiser struct {
	config AdvertiserConfig

	mu      sync.Mutex
	servers map[string]*zeroconf.Server // keyed by instance name
}

// NewMDNSAdvertiser creates a new mDNS advertiser.
func NewMDNSAdvertiser(config AdvertiserConfig) (*MDNSAdvertiser, error) {
	return &MDNSAdvertiser{
		config:  config,
		servers: make(map[string]*zeroconf.Server),
	}, nil
}

// getInterfaces returns the network interfaces to use for advertising.
// Returns nil to use all interfaces.
func (a *MDNSAdvertiser) getInterfaces() []net.Interface {
	if a.config.Interface == "" {
		return nil
	}

	iface, err := net.InterfaceByName(a.config.Interface)
	if err != nil {
		return nil
	}
	return []net.Interface{*iface}
}

// Announce starts advertising a management service.
func (a *MDNSAdvertiser) Announce(ctx context.Context, info *EndpointInfo) error {
	if err := ValidateInstanceName(info.InstanceName); err != nil {
		return err
	}
	if info.Type == "" {
		return fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyType)
	}
	if info.Port == 0 {
		return fmt.Errorf("%w: port", ErrMissingRequired)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	// Replace existing announcement for this instance if any
	if server, exists := a.servers[info.InstanceName]; exists {
		server.Shutdown()
		delete(a.servers, info.InstanceName)
	}

	txtStrings := TXTRecordsToStrings(EncodeManagementTXT(info))

	var opts []zeroconf.ServerOption
	if a.config.TTL > 0 {
		opts = append(opts, zeroconf.TTL(uint32(a.config.TTL.Seconds())))
	}

	server, err := zeroconf.Register(
		info.InstanceName,
		ServiceTypeManagement,
		Domain,
		int(info.Port),
		txtStrings,
		a.getInterfaces(),
		opts...,
	)
	if err != nil {
		return fmt.Errorf("failed to register management service: %w", err)
	}

	a.servers[info.InstanceName] = server
	return nil
}

// Update replaces TXT records for an active announcement.
func (a *MDNSAdvertiser) Update(instanceName string, info *EndpointInfo) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	server, exists := a.servers[instanceName]
	if !exists {
		return ErrNotFound
	}

	server.SetText(TXTRecordsToStrings(EncodeManagementTXT(info)))
	return nil
}

// Stop withdraws the announcement for a specific instance.
func (a *MDNSAdvertiser) Stop(instanceName string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	server, exists := a.servers[instanceName]
	if !exists {
		return ErrNotFound
	}

	server.Shutdown()
	delete(a.servers, instanceName)
	return nil
}

// StopAll withdraws all announcements.
func (a *MDNSAdvertiser) StopAll() {
	a.mu.Lock()
	defer a.mu.Unlock()

	for name, server := range a.servers {
		server.Shutdown()
		delete(a.servers, name)
	}
}

// MDNSBrowser implements the Browser interface using zeroconf.
type MDNSBrowser struct {
	config BrowserConfig

	mu      sync.Mutex
	cancels []context.CancelFunc
}

// NewMDNSBrowser creates a new mDNS browser.
func NewMDNSBrowser(config BrowserConfig) (*MDNSBrowser, error) {
	return &MDNSBrowser{
		config: config,
	}, nil
}

// Browse searches for managed devices. Answers are aggregated by instance
// name, so addresses seen on multiple interfaces are combined into a single
// endpoint and each instance is delivered once.
func (b *MDNSBrowser) Browse(ctx context.Context) (<-chan *DiscoveredEndpoint, error) {
	ctx, cancel := context.WithCancel(ctx)
	b.mu.Lock()
	b.cancels = append(b.cancels, cancel)
	b.mu.Unlock()

	out := make(chan *DiscoveredEndpoint)
	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)

	// Process entries with aggregation
	go func() {
		defer close(out)

		agg := newAggregator()
		for {
			select {
			case entry, ok := <-entries:
				if !ok {
					return
				}
				ep := agg.add(fromZeroconfEntry(entry))
				if ep == nil {
					continue
				}
				select {
				case out <- ep:
				case <-ctx.Done():
					return
				}

			case entry, ok := <-removed:
				if !ok {
					continue
				}
				agg.remove(fromZeroconfEntry(entry))

			case <-ctx.Done():
				return
			}
		}
	}()

	// Start browsing in background
	go func() {
		_ = zeroconf.Browse(ctx, ServiceTypeManagement, Domain, entries, removed, b.browserOptions()...)
	}()

	return out, nil
}

// FindByInstance searches for a specific device.
func (b *MDNSBrowser) FindByInstance(ctx context.Context, instanceName string) (*DiscoveredEndpoint, error) {
	results, err := b.Browse(ctx)
	if err != nil {
		return nil, err
	}

	for {
		select {
		case ep, ok := <-results:
			if !ok {
				return nil, ErrNotFound
			}
			if ep.InstanceName == instanceName {
				return ep, nil
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Stop stops all active browsing operations.
func (b *MDNSBrowser) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, cancel := range b.cancels {
		cancel()
	}
	b.cancels = nil
}

// browserOptions returns zeroconf client options based on config.
func (b *MDNSBrowser) browserOptions() []zeroconf.ClientOption {
	var opts []zeroconf.ClientOption

	// Select specific interface if configured
	if b.config.Interface != "" {
		iface, err := net.InterfaceByName(b.config.Interface)
		if err == nil {
			opts = append(opts, zeroconf.SelectIfaces([]net.Interface{*iface}))
		}
	}

	return opts
}

// aggregator merges per-interface mDNS answers into one endpoint per
// instance name.
type aggregator struct {
	services map[string]*DiscoveredEndpoint
}

func newAggregator() *aggregator {
	return &aggregator{services: make(map[string]*DiscoveredEndpoint)}
}

// add records an entry and returns the endpoint when the instance is new.
// Entries with undecodable TXT records are dropped; repeats of a known
// instance only merge their addresses.
func (a *aggregator) add(entry *ServiceEntry) *DiscoveredEndpoint {
	if entry == nil {
		return nil
	}
	ep, err := entry.ToEndpoint()
	if err != nil {
		return nil
	}

	if existing, found := a.services[ep.InstanceName]; found {
		existing.Addresses = mergeAddresses(existing.Addresses, ep.Addresses)
		return nil
	}

	a.services[ep.InstanceName] = ep
	return ep
}

// remove drops the entry's addresses. When none remain the instance is
// forgotten, so a later announcement is delivered again.
func (a *aggregator) remove(entry *ServiceEntry) {
	if entry == nil {
		return
	}
	existing, found := a.services[entry.Instance]
	if !found {
		return
	}

	existing.Addresses = removeAddresses(existing.Addresses, entry.Addrs)
	if len(existing.Addresses) == 0 {
		delete(a.services, entry.Instance)
	}
}

// fromZeroconfEntry converts a zeroconf entry into the transport-neutral form.
func fromZeroconfEntry(entry *zeroconf.ServiceEntry) *ServiceEntry {
	if entry == nil {
		return nil
	}

	addrs := make([]string, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	for _, ip := range entry.AddrIPv4 {
		addrs = append(addrs, ip.String())
	}
	for _, ip := range entry.AddrIPv6 {
		addrs = append(addrs, ip.String())
	}

	return &ServiceEntry{
		Instance: entry.Instance,
		Service:  entry.Service,
		Domain:   entry.Domain,
		Host:     entry.HostName,
		Port:     uint16(entry.Port),
		Text:     entry.Text,
		Addrs:    addrs,
	}
}

// mergeAddresses adds new addresses to the existing list, avoiding duplicates.
func mergeAddresses(existing, incoming []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, addr := range existing {
		seen[addr] = true
	}

	for _, addr := range incoming {
		if !seen[addr] {
			existing = append(existing, addr)
			seen[addr] = true
		}
	}
	return existing
}

// removeAddresses filters the given addresses out of the list.
func removeAddresses(addresses, gone []string) []string {
	toRemove := make(map[string]bool, len(gone))
	for _, addr := range gone {
		toRemove[addr] = true
	}

	result := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		if !toRemove[addr] {
			result = append(result, addr)
		}
	}
	return result
}

// Ensure MDNSAdvertiser implements Advertiser interface.
var _ Advertiser = (*MDNSAdvertiser)(nil)

// Ensure MDNSBrowser implements Browser interface.
var _ Browser = (*MDNSBrowser)(nil)
