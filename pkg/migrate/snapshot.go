// Package migrate implements the LBFO-to-SET migration engine: eligibility
// validation, point-in-time snapshot capture, the per-switch teardown and
// rebuild state machine, and best-effort configuration replay onto the new
// switch. Everything here drives the host through the hyperv.Platform and
// hyperv.Cluster capability interfaces; no host state is touched directly.
package migrate

import (
	"context"
	"fmt"

	"github.com/lattisimo/posher-v/pkg/hyperv"
)

// AdapterSnapshot is the captured state of one management-OS adapter at
// inventory time. It is immutable once constructed: a single point-in-time
// read that is never refreshed, because the adapter it describes is removed
// during teardown.
type AdapterSnapshot struct {
	Name       string `json:"name"`
	MACAddress string `json:"mac_address"`

	MinimumBandwidthAbsolute uint64 `json:"minimum_bandwidth_absolute,omitempty"`
	MinimumBandwidthWeight   uint64 `json:"minimum_bandwidth_weight,omitempty"`
	MaximumBandwidth         uint64 `json:"maximum_bandwidth,omitempty"`
	VLANID                   int    `json:"vlan_id,omitempty"` // 0 = untagged

	IPAddresses []hyperv.IPAddress `json:"ip_addresses,omitempty"`
	Routes      []hyperv.Route     `json:"routes,omitempty"`
	DNS         hyperv.DNSConfig   `json:"dns"`

	// AdvancedProperties holds only properties whose value differs from the
	// driver default. Reapplying defaults would be wasteful and, for some
	// drivers, disruptive.
	AdvancedProperties []hyperv.AdvancedProperty `json:"advanced_properties,omitempty"`
}

// SwitchSnapshot is the captured state of one virtual switch and its legacy
// team. After teardown begins it is the only source of truth for the
// rebuild: the original switch no longer exists to be re-read.
type SwitchSnapshot struct {
	SwitchID   string            `json:"switch_id"`
	SwitchName string            `json:"switch_name"`
	Type       hyperv.SwitchType `json:"switch_type"`

	BandwidthMode               hyperv.BandwidthMode `json:"bandwidth_mode"`
	DefaultFlowMinimumBandwidth uint64               `json:"default_flow_minimum_bandwidth,omitempty"`

	TeamName    string               `json:"team_name"`
	TeamMembers []string             `json:"team_members"`
	Algorithm   hyperv.TeamAlgorithm `json:"load_balancing_algorithm"`

	Adapters []AdapterSnapshot `json:"adapters,omitempty"`
}

// CaptureSwitch builds the snapshot of a validated switch. It is a pure
// read: no mutation of host state, and empty adapter, address, or route
// sets come back as empty slices rather than errors.
func CaptureSwitch(ctx context.Context, p hyperv.Platform, sw hyperv.Switch, team *hyperv.Team) (*SwitchSnapshot, error) {
	snap := &SwitchSnapshot{
		SwitchID:                    sw.ID,
		SwitchName:                  sw.Name,
		Type:                        sw.Type,
		BandwidthMode:               sw.BandwidthMode,
		DefaultFlowMinimumBandwidth: sw.DefaultFlowMinimumBandwidth,
		TeamName:                    team.Name,
		TeamMembers:                 append([]string(nil), team.Members...),
		Algorithm:                   team.Algorithm,
	}

	adapters, err := p.ManagementAdapters(ctx, sw.Name)
	if err != nil {
		return nil, fmt.Errorf("enumerate management adapters on %q: %w", sw.Name, err)
	}

	for _, a := range adapters {
		as, err := captureAdapter(ctx, p, a)
		if err != nil {
			return nil, fmt.Errorf("capture adapter %q: %w", a.Name, err)
		}
		snap.Adapters = append(snap.Adapters, *as)
	}
	return snap, nil
}

func captureAdapter(ctx context.Context, p hyperv.Platform, a hyperv.ManagementAdapter) (*AdapterSnapshot, error) {
	as := &AdapterSnapshot{
		Name:                     a.Name,
		MACAddress:               a.MACAddress,
		MinimumBandwidthAbsolute: a.MinimumBandwidthAbsolute,
		MinimumBandwidthWeight:   a.MinimumBandwidthWeight,
		MaximumBandwidth:         a.MaximumBandwidth,
		VLANID:                   a.VLANID,
	}

	addrs, err := p.AdapterIPAddresses(ctx, a.InterfaceIndex)
	if err != nil {
		return nil, fmt.Errorf("read IP addresses: %w", err)
	}
	as.IPAddresses = addrs

	routes, err := p.AdapterRoutes(ctx, a.InterfaceIndex)
	if err != nil {
		return nil, fmt.Errorf("read routes: %w", err)
	}
	as.Routes = routes

	dns, err := p.AdapterDNS(ctx, a.InterfaceIndex)
	if err != nil {
		return nil, fmt.Errorf("read DNS configuration: %w", err)
	}
	as.DNS = dns

	props, err := p.AdapterAdvancedProperties(ctx, a.Name)
	if err != nil {
		return nil, fmt.Errorf("read advanced properties: %w", err)
	}
	as.AdvancedProperties = NonDefaultProperties(props)

	return as, nil
}

// NonDefaultProperties filters an advanced-property set down to entries
// whose current value differs from the driver default.
func NonDefaultProperties(props []hyperv.AdvancedProperty) []hyperv.AdvancedProperty {
	var out []hyperv.AdvancedProperty
	for _, p := range props {
		if p.Value != p.DefaultValue {
			out = append(out, p)
		}
	}
	return out
}
