// Package hyperv defines the capability boundary to a Hyper-V host's
// networking stack: virtual switches, legacy LBFO teams, management-OS and
// guest adapters, and failover-cluster membership. The migration engine in
// pkg/migrate consumes these interfaces; the PowerShell implementation in
// this package drives a real host over SSH.
package hyperv

import "fmt"

// SwitchType is the Hyper-V virtual switch type.
type SwitchType int

const (
	SwitchTypePrivate  SwitchType = 0
	SwitchTypeInternal SwitchType = 1
	SwitchTypeExternal SwitchType = 2
)

func (t SwitchType) String() string {
	switch t {
	case SwitchTypePrivate:
		return "private"
	case SwitchTypeInternal:
		return "internal"
	case SwitchTypeExternal:
		return "external"
	}
	return fmt.Sprintf("unknown(%d)", int(t))
}

// BandwidthMode is the switch-wide minimum-bandwidth reservation mode.
type BandwidthMode int

const (
	BandwidthModeDefault  BandwidthMode = 0
	BandwidthModeWeight   BandwidthMode = 1
	BandwidthModeAbsolute BandwidthMode = 2
	BandwidthModeNone     BandwidthMode = 3
)

func (m BandwidthMode) String() string {
	switch m {
	case BandwidthModeDefault:
		return "default"
	case BandwidthModeWeight:
		return "weight"
	case BandwidthModeAbsolute:
		return "absolute"
	case BandwidthModeNone:
		return "none"
	}
	return fmt.Sprintf("unknown(%d)", int(m))
}

// ParseBandwidthMode maps a user-supplied mode name to a BandwidthMode.
func ParseBandwidthMode(s string) (BandwidthMode, error) {
	switch s {
	case "default":
		return BandwidthModeDefault, nil
	case "weight":
		return BandwidthModeWeight, nil
	case "absolute":
		return BandwidthModeAbsolute, nil
	case "none":
		return BandwidthModeNone, nil
	}
	return 0, fmt.Errorf("unknown bandwidth mode %q (want default, weight, absolute, or none)", s)
}

// TeamAlgorithm is the legacy LBFO team load-balancing algorithm.
type TeamAlgorithm int

const (
	TeamAlgorithmTransportPorts TeamAlgorithm = 0
	TeamAlgorithmIPAddresses    TeamAlgorithm = 2
	TeamAlgorithmMACAddresses   TeamAlgorithm = 3
	TeamAlgorithmHyperVPort     TeamAlgorithm = 4
	TeamAlgorithmDynamic        TeamAlgorithm = 5
)

func (a TeamAlgorithm) String() string {
	switch a {
	case TeamAlgorithmTransportPorts:
		return "TransportPorts"
	case TeamAlgorithmIPAddresses:
		return "IPAddresses"
	case TeamAlgorithmMACAddresses:
		return "MacAddresses"
	case TeamAlgorithmHyperVPort:
		return "HyperVPort"
	case TeamAlgorithmDynamic:
		return "Dynamic"
	}
	return fmt.Sprintf("unknown(%d)", int(a))
}

// SETAlgorithm is the switch-embedded-teaming load-balancing algorithm.
// SET supports only these two; the hash-based LBFO modes have no equivalent.
type SETAlgorithm int

const (
	SETAlgorithmHyperVPort SETAlgorithm = 4
	SETAlgorithmDynamic    SETAlgorithm = 5
)

func (a SETAlgorithm) String() string {
	switch a {
	case SETAlgorithmHyperVPort:
		return "HyperVPort"
	case SETAlgorithmDynamic:
		return "Dynamic"
	}
	return fmt.Sprintf("unknown(%d)", int(a))
}

// ParseSETAlgorithm maps a user-supplied algorithm name to a SETAlgorithm.
func ParseSETAlgorithm(s string) (SETAlgorithm, error) {
	switch s {
	case "HyperVPort", "hypervport":
		return SETAlgorithmHyperVPort, nil
	case "Dynamic", "dynamic":
		return SETAlgorithmDynamic, nil
	}
	return 0, fmt.Errorf("unknown load-balancing algorithm %q (want HyperVPort or Dynamic)", s)
}

// DrainStatus is the cluster node drain state as reported by the cluster service.
type DrainStatus int

const (
	DrainNotInitiated DrainStatus = 0
	DrainInProgress   DrainStatus = 1
	DrainCompleted    DrainStatus = 2
	DrainFailed       DrainStatus = 3
)

func (s DrainStatus) String() string {
	switch s {
	case DrainNotInitiated:
		return "NotInitiated"
	case DrainInProgress:
		return "InProgress"
	case DrainCompleted:
		return "Completed"
	case DrainFailed:
		return "Failed"
	}
	return fmt.Sprintf("unknown(%d)", int(s))
}

// Switch describes a Hyper-V virtual switch.
type Switch struct {
	ID                          string
	Name                        string
	Type                        SwitchType
	EmbeddedTeamingEnabled      bool
	BandwidthMode               BandwidthMode
	DefaultFlowMinimumBandwidth uint64
	// NetAdapterInterfaceDescription identifies the bound uplink NIC
	// (for an LBFO-backed switch this is the team's multiplexor interface).
	NetAdapterInterfaceDescription string
}

// Team describes a legacy LBFO team.
type Team struct {
	Name      string
	Members   []string // physical adapter names
	Algorithm TeamAlgorithm
	// VLANID is the VLAN tag on the default team interface, 0 when untagged.
	VLANID int
}

// ManagementAdapter describes a management-OS virtual adapter bound to a switch.
type ManagementAdapter struct {
	Name           string
	SwitchName     string
	MACAddress     string
	InterfaceIndex int
	// Minimum-bandwidth reservation; which of the two carries meaning
	// depends on the owning switch's BandwidthMode.
	MinimumBandwidthAbsolute uint64
	MinimumBandwidthWeight   uint64
	MaximumBandwidth         uint64
	VLANID                   int // 0 = untagged
}

// GuestAdapter describes a virtual-machine network adapter bound to a switch.
type GuestAdapter struct {
	VMName     string
	Name       string
	SwitchName string
}

// IPAddress is one IP assignment on an interface.
type IPAddress struct {
	Address      string
	PrefixLength int
	SkipAsSource bool
}

// Route is one gateway route owned by an interface.
type Route struct {
	DestinationPrefix string
	NextHop           string
	Metric            int
}

// DNSConfig is the DNS/WINS/NetBIOS configuration of an interface.
type DNSConfig struct {
	Domain                   string
	Servers                  []string
	RegisterThisConnection   bool
	UseSuffixWhenRegistering bool
	WINSServers              []string
	// NetBIOSOption: 0 = via DHCP, 1 = enabled, 2 = disabled.
	NetBIOSOption int
}

// AdvancedProperty is one advanced driver property (registry keyword) of an
// adapter. Value and DefaultValue are the registry-style string encodings.
type AdvancedProperty struct {
	Name         string // registry keyword, e.g. "*JumboPacket"
	DisplayName  string
	Value        string
	DefaultValue string
}

// CreateSwitchSpec describes the new SET-backed switch to create.
type CreateSwitchSpec struct {
	Name                        string
	TeamMembers                 []string // physical adapter names to bind
	AllowManagementOS           bool
	EnableEmbeddedTeaming       bool
	BandwidthMode               *BandwidthMode // nil = platform default
	DefaultFlowMinimumBandwidth uint64         // applied only when > 0
	Notes                       string
}
