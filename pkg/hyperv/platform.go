package hyperv

import "context"

// Platform is the narrow capability set the migration engine needs from the
// host's virtualization and networking stack. The engine never reaches
// around it: every read and mutation of host state goes through here, which
// is what makes the teardown/rebuild pipeline testable against a fake host.
type Platform interface {
	// Switches returns all virtual switches on the host.
	Switches(ctx context.Context) ([]Switch, error)

	// TeamByInterfaceDescription resolves an uplink interface description to
	// its owning LBFO team, or ErrNotFound-wrapped error when the interface
	// does not belong to a team.
	TeamByInterfaceDescription(ctx context.Context, desc string) (*Team, error)

	// ManagementAdapters returns the management-OS adapters bound to a switch.
	// An unbound switch yields an empty slice, not an error.
	ManagementAdapters(ctx context.Context, switchName string) ([]ManagementAdapter, error)

	// AdapterIPAddresses returns the manually assigned (static) IP addresses
	// of an interface. DHCP and autoconfigured addresses are excluded.
	AdapterIPAddresses(ctx context.Context, ifIndex int) ([]IPAddress, error)

	// AdapterRoutes returns the manually configured gateway routes owned by
	// an interface.
	AdapterRoutes(ctx context.Context, ifIndex int) ([]Route, error)

	// AdapterDNS returns the DNS/WINS/NetBIOS configuration of an interface.
	AdapterDNS(ctx context.Context, ifIndex int) (DNSConfig, error)

	// AdapterAdvancedProperties returns all advanced driver properties of an
	// adapter, including ones still at their driver default.
	AdapterAdvancedProperties(ctx context.Context, adapterName string) ([]AdvancedProperty, error)

	// GuestAdapters returns the VM network adapters connected to a switch.
	GuestAdapters(ctx context.Context, switchName string) ([]GuestAdapter, error)

	// DisconnectGuestAdapter detaches a VM adapter from its switch.
	DisconnectGuestAdapter(ctx context.Context, a GuestAdapter) error

	// ConnectGuestAdapter attaches a VM adapter to the named switch.
	ConnectGuestAdapter(ctx context.Context, a GuestAdapter, switchName string) error

	// RemoveManagementAdapter removes a management-OS adapter from a switch.
	RemoveManagementAdapter(ctx context.Context, switchName, adapterName string) error

	// RemoveSwitch forcibly removes a virtual switch by name.
	RemoveSwitch(ctx context.Context, name string) error

	// RemoveTeam removes a legacy LBFO team by name without confirmation.
	RemoveTeam(ctx context.Context, name string) error

	// CreateSwitch creates a new virtual switch per spec.
	CreateSwitch(ctx context.Context, spec CreateSwitchSpec) error

	// SetSwitchTeamAlgorithm sets the SET load-balancing algorithm on a
	// switch's embedded team.
	SetSwitchTeamAlgorithm(ctx context.Context, switchName string, alg SETAlgorithm) error

	// AddManagementAdapter creates a management-OS adapter on a switch with
	// the given name and static MAC address, returning the created adapter.
	AddManagementAdapter(ctx context.Context, switchName, name, mac string) (*ManagementAdapter, error)

	// SetAdapterMinimumBandwidthAbsolute sets an absolute min-bandwidth
	// reservation (bits/second) on a management adapter.
	SetAdapterMinimumBandwidthAbsolute(ctx context.Context, adapterName string, bps uint64) error

	// SetAdapterMinimumBandwidthWeight sets a weighted min-bandwidth
	// reservation on a management adapter.
	SetAdapterMinimumBandwidthWeight(ctx context.Context, adapterName string, weight uint64) error

	// SetAdapterMaximumBandwidth caps a management adapter's bandwidth.
	SetAdapterMaximumBandwidth(ctx context.Context, adapterName string, bps uint64) error

	// SetAdapterVLAN puts a management adapter in access mode on the VLAN.
	SetAdapterVLAN(ctx context.Context, adapterName string, vlanID int) error

	// AddIPAddress adds an IP address to an interface.
	AddIPAddress(ctx context.Context, ifIndex int, addr IPAddress) error

	// AddRoute adds a gateway route to an interface. A non-zero status code
	// with a nil error is a platform warning the caller records and moves on.
	AddRoute(ctx context.Context, ifIndex int, route Route) (uint32, error)

	// SetDNSRegistration applies dynamic-DNS registration flags to an
	// interface. Returns the platform status code (0 = success).
	SetDNSRegistration(ctx context.Context, ifIndex int, register, useSuffix bool) (uint32, error)

	// SetDNSDomain sets the connection-specific DNS domain.
	SetDNSDomain(ctx context.Context, ifIndex int, domain string) (uint32, error)

	// SetDNSServers sets the interface's DNS server search order.
	SetDNSServers(ctx context.Context, ifIndex int, servers []string) (uint32, error)

	// SetWINSServers sets the interface's WINS servers.
	SetWINSServers(ctx context.Context, ifIndex int, servers []string) (uint32, error)

	// SetNetBIOS sets the interface's NetBIOS-over-TCP/IP mode.
	SetNetBIOS(ctx context.Context, ifIndex int, option int) (uint32, error)

	// SetAdvancedProperty writes one advanced driver property by registry
	// keyword. Returns the platform status code (0 = success).
	SetAdvancedProperty(ctx context.Context, adapterName, keyword, value string) (uint32, error)
}

// Cluster is the failover-cluster membership capability. Resolved once at
// run start; the coordinator never re-detects membership mid-run.
type Cluster interface {
	// Node returns the local cluster node name and whether the host is a
	// cluster member at all.
	Node(ctx context.Context) (name string, clustered bool, err error)

	// Drain suspends the node and begins draining its workloads.
	Drain(ctx context.Context, node string) error

	// Resume resumes the node, failing workloads back to it.
	Resume(ctx context.Context, node string) error

	// Status reports the node's current drain status.
	Status(ctx context.Context, node string) (DrainStatus, error)
}
