package testutil

import "github.com/lattisimo/posher-v/pkg/hyperv"

// ConvergedHost builds a fake host with one eligible LBFO-backed external
// switch, two management adapters carrying a realistic converged-networking
// configuration, and one connected guest, mirroring the common
// single-team-per-host layout these migrations target.
func ConvergedHost() *FakePlatform {
	f := NewFakePlatform()

	f.SwitchList = []hyperv.Switch{{
		ID:                             "c6ee1a50-74f6-4f22-a68a-0c4a8f0111a1",
		Name:                           "ConvergedSwitch",
		Type:                           hyperv.SwitchTypeExternal,
		BandwidthMode:                  hyperv.BandwidthModeWeight,
		DefaultFlowMinimumBandwidth:    10,
		NetAdapterInterfaceDescription: "Microsoft Network Adapter Multiplexor Driver",
	}}
	f.Teams["Microsoft Network Adapter Multiplexor Driver"] = &hyperv.Team{
		Name:      "HostTeam",
		Members:   []string{"NIC1", "NIC2"},
		Algorithm: hyperv.TeamAlgorithmDynamic,
	}

	f.Mgmt["ConvergedSwitch"] = []hyperv.ManagementAdapter{
		{
			Name:                   "Management",
			SwitchName:             "ConvergedSwitch",
			MACAddress:             "00155D010200",
			InterfaceIndex:         11,
			MinimumBandwidthWeight: 30,
			VLANID:                 0,
		},
		{
			Name:                   "Cluster",
			SwitchName:             "ConvergedSwitch",
			MACAddress:             "00155D010201",
			InterfaceIndex:         12,
			MinimumBandwidthWeight: 20,
			MaximumBandwidth:       2_000_000_000,
			VLANID:                 100,
		},
	}

	f.IPs[11] = []hyperv.IPAddress{{Address: "10.0.10.21", PrefixLength: 24}}
	f.IPs[12] = []hyperv.IPAddress{
		{Address: "10.0.20.21", PrefixLength: 24},
		{Address: "10.0.20.121", PrefixLength: 24, SkipAsSource: true},
	}
	f.RouteSet[11] = []hyperv.Route{{DestinationPrefix: "0.0.0.0/0", NextHop: "10.0.10.1", Metric: 256}}
	f.DNSSet[11] = hyperv.DNSConfig{
		Domain:                 "corp.example.net",
		Servers:                []string{"10.0.10.53", "10.0.10.54"},
		RegisterThisConnection: true,
	}
	f.Props["Management"] = []hyperv.AdvancedProperty{
		{Name: "*JumboPacket", DisplayName: "Jumbo Packet", Value: "9014", DefaultValue: "1514"},
		{Name: "*RSS", DisplayName: "Receive Side Scaling", Value: "1", DefaultValue: "1"},
	}
	f.NewAdapterProps = []hyperv.AdvancedProperty{
		{Name: "*JumboPacket", DisplayName: "Jumbo Packet", Value: "1514", DefaultValue: "1514"},
		{Name: "*RSS", DisplayName: "Receive Side Scaling", Value: "1", DefaultValue: "1"},
	}

	f.Guests["ConvergedSwitch"] = []hyperv.GuestAdapter{
		{VMName: "web01", Name: "Network Adapter", SwitchName: "ConvergedSwitch"},
	}
	return f
}
