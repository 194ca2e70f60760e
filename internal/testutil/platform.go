// Package testutil provides an in-memory fake Hyper-V host for exercising
// the migration engine without a real platform behind it.
package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/lattisimo/posher-v/pkg/hyperv"
	"github.com/lattisimo/posher-v/pkg/util"
)

// FakePlatform implements hyperv.Platform against in-memory state. Every
// mutating call is appended to Calls as "Op target" so tests can assert
// exactly which mutations were issued and in what order. FailOn maps an op
// name (optionally "Op target") to an error injected on that call; StatusOn
// does the same for status-code returning ops.
type FakePlatform struct {
	mu sync.Mutex

	SwitchList []hyperv.Switch
	Teams      map[string]*hyperv.Team               // by interface description
	Mgmt       map[string][]hyperv.ManagementAdapter // by switch name
	IPs        map[int][]hyperv.IPAddress            // by interface index
	RouteSet   map[int][]hyperv.Route                // by interface index
	DNSSet     map[int]hyperv.DNSConfig              // by interface index
	Props      map[string][]hyperv.AdvancedProperty  // by adapter name
	Guests     map[string][]hyperv.GuestAdapter      // by switch name

	// NewAdapterProps seeds the advanced-property set a freshly created
	// adapter exposes (the "new driver" side of the replay join).
	NewAdapterProps []hyperv.AdvancedProperty

	Calls    []string
	FailOn   map[string]error
	StatusOn map[string]uint32

	CreatedSwitches []hyperv.CreateSwitchSpec
	CreatedAdapters []hyperv.ManagementAdapter
	AddedIPs        map[int][]hyperv.IPAddress
	AddedRoutes     map[int][]hyperv.Route
	SetProps        map[string]map[string]string // adapter -> keyword -> value

	nextIfIndex int
}

// NewFakePlatform returns an empty fake host.
func NewFakePlatform() *FakePlatform {
	return &FakePlatform{
		Teams:       make(map[string]*hyperv.Team),
		Mgmt:        make(map[string][]hyperv.ManagementAdapter),
		IPs:         make(map[int][]hyperv.IPAddress),
		RouteSet:    make(map[int][]hyperv.Route),
		DNSSet:      make(map[int]hyperv.DNSConfig),
		Props:       make(map[string][]hyperv.AdvancedProperty),
		Guests:      make(map[string][]hyperv.GuestAdapter),
		FailOn:      make(map[string]error),
		StatusOn:    make(map[string]uint32),
		AddedIPs:    make(map[int][]hyperv.IPAddress),
		AddedRoutes: make(map[int][]hyperv.Route),
		SetProps:    make(map[string]map[string]string),
		nextIfIndex: 100,
	}
}

// MutatingCalls returns the recorded mutation log.
func (f *FakePlatform) MutatingCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.Calls...)
}

// MutationsFor returns recorded mutations whose target contains needle.
func (f *FakePlatform) MutationsFor(needle string) []string {
	var out []string
	for _, c := range f.MutatingCalls() {
		if strings.Contains(c, needle) {
			out = append(out, c)
		}
	}
	return out
}

func (f *FakePlatform) mutate(op, target string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, op+" "+target)
	if err, ok := f.FailOn[op+" "+target]; ok {
		return err
	}
	if err, ok := f.FailOn[op]; ok {
		return err
	}
	return nil
}

func (f *FakePlatform) status(op, target string) (uint32, error) {
	if err := f.mutate(op, target); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if code, ok := f.StatusOn[op+" "+target]; ok {
		return code, nil
	}
	if code, ok := f.StatusOn[op]; ok {
		return code, nil
	}
	return 0, nil
}

func (f *FakePlatform) readErr(op, target string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.FailOn[op+" "+target]; ok {
		return err
	}
	if err, ok := f.FailOn[op]; ok {
		return err
	}
	return nil
}

// Switches implements hyperv.Platform.
func (f *FakePlatform) Switches(ctx context.Context) ([]hyperv.Switch, error) {
	if err := f.readErr("Switches", ""); err != nil {
		return nil, err
	}
	return append([]hyperv.Switch(nil), f.SwitchList...), nil
}

// TeamByInterfaceDescription implements hyperv.Platform.
func (f *FakePlatform) TeamByInterfaceDescription(ctx context.Context, desc string) (*hyperv.Team, error) {
	if err := f.readErr("TeamByInterfaceDescription", desc); err != nil {
		return nil, err
	}
	team, ok := f.Teams[desc]
	if !ok {
		return nil, fmt.Errorf("interface %q: %w", desc, util.ErrNotFound)
	}
	cp := *team
	return &cp, nil
}

// ManagementAdapters implements hyperv.Platform.
func (f *FakePlatform) ManagementAdapters(ctx context.Context, switchName string) ([]hyperv.ManagementAdapter, error) {
	if err := f.readErr("ManagementAdapters", switchName); err != nil {
		return nil, err
	}
	return append([]hyperv.ManagementAdapter(nil), f.Mgmt[switchName]...), nil
}

// AdapterIPAddresses implements hyperv.Platform.
func (f *FakePlatform) AdapterIPAddresses(ctx context.Context, ifIndex int) ([]hyperv.IPAddress, error) {
	if err := f.readErr("AdapterIPAddresses", fmt.Sprintf("%d", ifIndex)); err != nil {
		return nil, err
	}
	return append([]hyperv.IPAddress(nil), f.IPs[ifIndex]...), nil
}

// AdapterRoutes implements hyperv.Platform.
func (f *FakePlatform) AdapterRoutes(ctx context.Context, ifIndex int) ([]hyperv.Route, error) {
	if err := f.readErr("AdapterRoutes", fmt.Sprintf("%d", ifIndex)); err != nil {
		return nil, err
	}
	return append([]hyperv.Route(nil), f.RouteSet[ifIndex]...), nil
}

// AdapterDNS implements hyperv.Platform.
func (f *FakePlatform) AdapterDNS(ctx context.Context, ifIndex int) (hyperv.DNSConfig, error) {
	if err := f.readErr("AdapterDNS", fmt.Sprintf("%d", ifIndex)); err != nil {
		return hyperv.DNSConfig{}, err
	}
	return f.DNSSet[ifIndex], nil
}

// AdapterAdvancedProperties implements hyperv.Platform.
func (f *FakePlatform) AdapterAdvancedProperties(ctx context.Context, adapterName string) ([]hyperv.AdvancedProperty, error) {
	if err := f.readErr("AdapterAdvancedProperties", adapterName); err != nil {
		return nil, err
	}
	return append([]hyperv.AdvancedProperty(nil), f.Props[adapterName]...), nil
}

// GuestAdapters implements hyperv.Platform.
func (f *FakePlatform) GuestAdapters(ctx context.Context, switchName string) ([]hyperv.GuestAdapter, error) {
	if err := f.readErr("GuestAdapters", switchName); err != nil {
		return nil, err
	}
	return append([]hyperv.GuestAdapter(nil), f.Guests[switchName]...), nil
}

// DisconnectGuestAdapter implements hyperv.Platform.
func (f *FakePlatform) DisconnectGuestAdapter(ctx context.Context, a hyperv.GuestAdapter) error {
	return f.mutate("DisconnectGuestAdapter", a.VMName+"/"+a.Name)
}

// ConnectGuestAdapter implements hyperv.Platform.
func (f *FakePlatform) ConnectGuestAdapter(ctx context.Context, a hyperv.GuestAdapter, switchName string) error {
	return f.mutate("ConnectGuestAdapter", a.VMName+"/"+a.Name+"->"+switchName)
}

// RemoveManagementAdapter implements hyperv.Platform.
func (f *FakePlatform) RemoveManagementAdapter(ctx context.Context, switchName, adapterName string) error {
	return f.mutate("RemoveManagementAdapter", adapterName)
}

// RemoveSwitch implements hyperv.Platform.
func (f *FakePlatform) RemoveSwitch(ctx context.Context, name string) error {
	return f.mutate("RemoveSwitch", name)
}

// RemoveTeam implements hyperv.Platform.
func (f *FakePlatform) RemoveTeam(ctx context.Context, name string) error {
	return f.mutate("RemoveTeam", name)
}

// CreateSwitch implements hyperv.Platform.
func (f *FakePlatform) CreateSwitch(ctx context.Context, spec hyperv.CreateSwitchSpec) error {
	if err := f.mutate("CreateSwitch", spec.Name); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CreatedSwitches = append(f.CreatedSwitches, spec)
	return nil
}

// SetSwitchTeamAlgorithm implements hyperv.Platform.
func (f *FakePlatform) SetSwitchTeamAlgorithm(ctx context.Context, switchName string, alg hyperv.SETAlgorithm) error {
	return f.mutate("SetSwitchTeamAlgorithm", switchName+"="+alg.String())
}

// AddManagementAdapter implements hyperv.Platform.
func (f *FakePlatform) AddManagementAdapter(ctx context.Context, switchName, name, mac string) (*hyperv.ManagementAdapter, error) {
	if err := f.mutate("AddManagementAdapter", name); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextIfIndex++
	adapter := hyperv.ManagementAdapter{
		Name:           name,
		SwitchName:     switchName,
		MACAddress:     mac,
		InterfaceIndex: f.nextIfIndex,
	}
	f.CreatedAdapters = append(f.CreatedAdapters, adapter)
	f.Props[name] = append([]hyperv.AdvancedProperty(nil), f.NewAdapterProps...)
	return &adapter, nil
}

// SetAdapterMinimumBandwidthAbsolute implements hyperv.Platform.
func (f *FakePlatform) SetAdapterMinimumBandwidthAbsolute(ctx context.Context, adapterName string, bps uint64) error {
	return f.mutate("SetAdapterMinimumBandwidthAbsolute", fmt.Sprintf("%s=%d", adapterName, bps))
}

// SetAdapterMinimumBandwidthWeight implements hyperv.Platform.
func (f *FakePlatform) SetAdapterMinimumBandwidthWeight(ctx context.Context, adapterName string, weight uint64) error {
	return f.mutate("SetAdapterMinimumBandwidthWeight", fmt.Sprintf("%s=%d", adapterName, weight))
}

// SetAdapterMaximumBandwidth implements hyperv.Platform.
func (f *FakePlatform) SetAdapterMaximumBandwidth(ctx context.Context, adapterName string, bps uint64) error {
	return f.mutate("SetAdapterMaximumBandwidth", fmt.Sprintf("%s=%d", adapterName, bps))
}

// SetAdapterVLAN implements hyperv.Platform.
func (f *FakePlatform) SetAdapterVLAN(ctx context.Context, adapterName string, vlanID int) error {
	return f.mutate("SetAdapterVLAN", fmt.Sprintf("%s=%d", adapterName, vlanID))
}

// AddIPAddress implements hyperv.Platform.
func (f *FakePlatform) AddIPAddress(ctx context.Context, ifIndex int, addr hyperv.IPAddress) error {
	if err := f.mutate("AddIPAddress", addr.Address); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.AddedIPs[ifIndex] = append(f.AddedIPs[ifIndex], addr)
	return nil
}

// AddRoute implements hyperv.Platform.
func (f *FakePlatform) AddRoute(ctx context.Context, ifIndex int, route hyperv.Route) (uint32, error) {
	code, err := f.status("AddRoute", route.DestinationPrefix)
	if err != nil || code != 0 {
		return code, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.AddedRoutes[ifIndex] = append(f.AddedRoutes[ifIndex], route)
	return 0, nil
}

// SetDNSRegistration implements hyperv.Platform.
func (f *FakePlatform) SetDNSRegistration(ctx context.Context, ifIndex int, register, useSuffix bool) (uint32, error) {
	return f.status("SetDNSRegistration", fmt.Sprintf("%d", ifIndex))
}

// SetDNSDomain implements hyperv.Platform.
func (f *FakePlatform) SetDNSDomain(ctx context.Context, ifIndex int, domain string) (uint32, error) {
	return f.status("SetDNSDomain", domain)
}

// SetDNSServers implements hyperv.Platform.
func (f *FakePlatform) SetDNSServers(ctx context.Context, ifIndex int, servers []string) (uint32, error) {
	return f.status("SetDNSServers", fmt.Sprintf("%d", ifIndex))
}

// SetWINSServers implements hyperv.Platform.
func (f *FakePlatform) SetWINSServers(ctx context.Context, ifIndex int, servers []string) (uint32, error) {
	return f.status("SetWINSServers", fmt.Sprintf("%d", ifIndex))
}

// SetNetBIOS implements hyperv.Platform.
func (f *FakePlatform) SetNetBIOS(ctx context.Context, ifIndex int, option int) (uint32, error) {
	return f.status("SetNetBIOS", fmt.Sprintf("%d=%d", ifIndex, option))
}

// SetAdvancedProperty implements hyperv.Platform.
func (f *FakePlatform) SetAdvancedProperty(ctx context.Context, adapterName, keyword, value string) (uint32, error) {
	code, err := f.status("SetAdvancedProperty", adapterName+"/"+keyword)
	if err != nil || code != 0 {
		return code, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SetProps[adapterName] == nil {
		f.SetProps[adapterName] = make(map[string]string)
	}
	f.SetProps[adapterName][keyword] = value
	return 0, nil
}
