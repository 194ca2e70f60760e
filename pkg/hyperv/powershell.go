package hyperv

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/lattisimo/posher-v/pkg/util"
)

// PowerShellPlatform implements Platform and Cluster by rendering PowerShell
// pipelines, executing them through a Runner, and decoding their
// ConvertTo-Json output.
type PowerShellPlatform struct {
	r Runner
}

// NewPowerShellPlatform creates a platform bound to the given runner.
func NewPowerShellPlatform(r Runner) *PowerShellPlatform {
	return &PowerShellPlatform{r: r}
}

// psq single-quotes s for PowerShell, doubling embedded quotes.
func psq(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// psqList renders a comma-separated list of single-quoted strings.
func psqList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = psq(s)
	}
	return strings.Join(quoted, ",")
}

// decodeList decodes ConvertTo-Json output that may be empty (no results),
// a single object, or an array. PowerShell collapses one-element pipelines
// to a bare object, and emits nothing at all for zero results; both must
// come back as valid (possibly empty) slices, never as errors.
func decodeList[T any](out []byte) ([]T, error) {
	out = bytes.TrimSpace(out)
	if len(out) == 0 {
		return nil, nil
	}
	if out[0] == '[' {
		var list []T
		if err := json.Unmarshal(out, &list); err != nil {
			return nil, fmt.Errorf("decode json array: %w", err)
		}
		return list, nil
	}
	var one T
	if err := json.Unmarshal(out, &one); err != nil {
		return nil, fmt.Errorf("decode json object: %w", err)
	}
	return []T{one}, nil
}

// runList executes script and decodes its output as a list of T.
func runList[T any](ctx context.Context, p *PowerShellPlatform, op, target, script string) ([]T, error) {
	out, err := p.r.Run(ctx, script)
	if err != nil {
		return nil, util.NewPlatformError(op, target, err)
	}
	list, err := decodeList[T](out)
	if err != nil {
		return nil, util.NewPlatformError(op, target, err)
	}
	return list, nil
}

// runVoid executes a script whose output is discarded.
func (p *PowerShellPlatform) runVoid(ctx context.Context, op, target, script string) error {
	if _, err := p.r.Run(ctx, script); err != nil {
		return util.NewPlatformError(op, target, err)
	}
	return nil
}

// runReturnValue executes a WMI method-style script that prints a single
// numeric ReturnValue (0 = success, positive = platform error code).
func (p *PowerShellPlatform) runReturnValue(ctx context.Context, op, target, script string) (uint32, error) {
	out, err := p.r.Run(ctx, script)
	if err != nil {
		return 0, util.NewPlatformError(op, target, err)
	}
	text := strings.TrimSpace(string(out))
	if text == "" {
		return 0, nil
	}
	code, err := strconv.ParseUint(text, 10, 32)
	if err != nil {
		return 0, util.NewPlatformError(op, target, fmt.Errorf("unexpected return value %q", text))
	}
	return uint32(code), nil
}

type switchWire struct {
	ID                             string `json:"Id"`
	Name                           string `json:"Name"`
	SwitchType                     int    `json:"SwitchType"`
	EmbeddedTeamingEnabled         bool   `json:"EmbeddedTeamingEnabled"`
	BandwidthReservationMode       int    `json:"BandwidthReservationMode"`
	DefaultFlowMinimumBandwidthAbs uint64 `json:"DefaultFlowMinimumBandwidthAbsolute"`
	DefaultFlowMinimumBandwidthWgt uint64 `json:"DefaultFlowMinimumBandwidthWeight"`
	NetAdapterInterfaceDescription string `json:"NetAdapterInterfaceDescription"`
}

// Switches implements Platform.
func (p *PowerShellPlatform) Switches(ctx context.Context) ([]Switch, error) {
	script := `Get-VMSwitch | ForEach-Object { [pscustomobject]@{` +
		` Id=[string]$_.Id; Name=$_.Name; SwitchType=[int]$_.SwitchType;` +
		` EmbeddedTeamingEnabled=[bool]$_.EmbeddedTeamingEnabled;` +
		` BandwidthReservationMode=[int]$_.BandwidthReservationMode;` +
		` DefaultFlowMinimumBandwidthAbsolute=[uint64]$_.DefaultFlowMinimumBandwidthAbsolute;` +
		` DefaultFlowMinimumBandwidthWeight=[uint64]$_.DefaultFlowMinimumBandwidthWeight;` +
		` NetAdapterInterfaceDescription=[string]$_.NetAdapterInterfaceDescription } } | ConvertTo-Json -Depth 3`
	wires, err := runList[switchWire](ctx, p, "Get-VMSwitch", "", script)
	if err != nil {
		return nil, err
	}
	switches := make([]Switch, 0, len(wires))
	for _, w := range wires {
		mode := BandwidthMode(w.BandwidthReservationMode)
		var flow uint64
		switch mode {
		case BandwidthModeAbsolute:
			flow = w.DefaultFlowMinimumBandwidthAbs
		case BandwidthModeWeight, BandwidthModeDefault:
			flow = w.DefaultFlowMinimumBandwidthWgt
		}
		switches = append(switches, Switch{
			ID:                             w.ID,
			Name:                           w.Name,
			Type:                           SwitchType(w.SwitchType),
			EmbeddedTeamingEnabled:         w.EmbeddedTeamingEnabled,
			BandwidthMode:                  mode,
			DefaultFlowMinimumBandwidth:    flow,
			NetAdapterInterfaceDescription: w.NetAdapterInterfaceDescription,
		})
	}
	return switches, nil
}

type teamWire struct {
	Name                   string   `json:"Name"`
	Members                []string `json:"Members"`
	LoadBalancingAlgorithm int      `json:"LoadBalancingAlgorithm"`
	VlanID                 int      `json:"VlanID"`
}

// TeamByInterfaceDescription implements Platform.
func (p *PowerShellPlatform) TeamByInterfaceDescription(ctx context.Context, desc string) (*Team, error) {
	script := `$nic = Get-NetLbfoTeamNic -ErrorAction SilentlyContinue | Where-Object { $_.InterfaceDescription -eq ` + psq(desc) + ` };` +
		` if ($nic) { $team = Get-NetLbfoTeam -Name $nic.Team;` +
		` [pscustomobject]@{ Name=$team.Name; Members=@($team.Members);` +
		` LoadBalancingAlgorithm=[int]$team.LoadBalancingAlgorithm; VlanID=[int]$nic.VlanID } | ConvertTo-Json -Depth 3 }`
	teams, err := runList[teamWire](ctx, p, "Get-NetLbfoTeamNic", desc, script)
	if err != nil {
		return nil, err
	}
	if len(teams) == 0 {
		return nil, fmt.Errorf("interface %q: %w", desc, util.ErrNotFound)
	}
	w := teams[0]
	return &Team{
		Name:      w.Name,
		Members:   w.Members,
		Algorithm: TeamAlgorithm(w.LoadBalancingAlgorithm),
		VLANID:    w.VlanID,
	}, nil
}

type mgmtAdapterWire struct {
	Name                     string `json:"Name"`
	SwitchName               string `json:"SwitchName"`
	MacAddress               string `json:"MacAddress"`
	InterfaceIndex           int    `json:"InterfaceIndex"`
	MinimumBandwidthAbsolute uint64 `json:"MinimumBandwidthAbsolute"`
	MinimumBandwidthWeight   uint64 `json:"MinimumBandwidthWeight"`
	MaximumBandwidth         uint64 `json:"MaximumBandwidth"`
	VlanID                   int    `json:"VlanID"`
}

func (w mgmtAdapterWire) toAdapter() ManagementAdapter {
	return ManagementAdapter{
		Name:                     w.Name,
		SwitchName:               w.SwitchName,
		MACAddress:               w.MacAddress,
		InterfaceIndex:           w.InterfaceIndex,
		MinimumBandwidthAbsolute: w.MinimumBandwidthAbsolute,
		MinimumBandwidthWeight:   w.MinimumBandwidthWeight,
		MaximumBandwidth:         w.MaximumBandwidth,
		VLANID:                   w.VlanID,
	}
}

// mgmtAdapterProject is the PS fragment projecting one management adapter
// (pipeline variable $_) into the wire shape, joining in its host-side
// interface index and VLAN.
const mgmtAdapterProject = `$net = Get-NetAdapter -Name ("vEthernet (" + $_.Name + ")") -ErrorAction SilentlyContinue;` +
	` $vlan = Get-VMNetworkAdapterVlan -ManagementOS -VMNetworkAdapterName $_.Name -ErrorAction SilentlyContinue;` +
	` $bw = $_.BandwidthSetting;` +
	` [pscustomobject]@{ Name=$_.Name; SwitchName=$_.SwitchName; MacAddress=$_.MacAddress;` +
	` InterfaceIndex=[int]$net.InterfaceIndex;` +
	` MinimumBandwidthAbsolute=[uint64]$bw.MinimumBandwidthAbsolute;` +
	` MinimumBandwidthWeight=[uint64]$bw.MinimumBandwidthWeight;` +
	` MaximumBandwidth=[uint64]$bw.MaximumBandwidth;` +
	` VlanID=[int]$vlan.AccessVlanId }`

// ManagementAdapters implements Platform.
func (p *PowerShellPlatform) ManagementAdapters(ctx context.Context, switchName string) ([]ManagementAdapter, error) {
	script := `Get-VMNetworkAdapter -ManagementOS -ErrorAction SilentlyContinue | Where-Object { $_.SwitchName -eq ` + psq(switchName) + ` } | ForEach-Object { ` +
		mgmtAdapterProject + ` } | ConvertTo-Json -Depth 4`
	wires, err := runList[mgmtAdapterWire](ctx, p, "Get-VMNetworkAdapter", switchName, script)
	if err != nil {
		return nil, err
	}
	adapters := make([]ManagementAdapter, 0, len(wires))
	for _, w := range wires {
		adapters = append(adapters, w.toAdapter())
	}
	return adapters, nil
}

type ipAddressWire struct {
	IPAddress    string `json:"IPAddress"`
	PrefixLength int    `json:"PrefixLength"`
	SkipAsSource bool   `json:"SkipAsSource"`
}

// AdapterIPAddresses implements Platform. Only manually assigned addresses
// are returned; DHCP and autoconfigured addresses stay with their origin.
func (p *PowerShellPlatform) AdapterIPAddresses(ctx context.Context, ifIndex int) ([]IPAddress, error) {
	script := fmt.Sprintf(`Get-NetIPAddress -InterfaceIndex %d -PrefixOrigin Manual -ErrorAction SilentlyContinue | ForEach-Object {`+
		` [pscustomobject]@{ IPAddress=$_.IPAddress; PrefixLength=[int]$_.PrefixLength; SkipAsSource=[bool]$_.SkipAsSource } } | ConvertTo-Json -Depth 3`, ifIndex)
	wires, err := runList[ipAddressWire](ctx, p, "Get-NetIPAddress", strconv.Itoa(ifIndex), script)
	if err != nil {
		return nil, err
	}
	addrs := make([]IPAddress, 0, len(wires))
	for _, w := range wires {
		addrs = append(addrs, IPAddress{Address: w.IPAddress, PrefixLength: w.PrefixLength, SkipAsSource: w.SkipAsSource})
	}
	return addrs, nil
}

type routeWire struct {
	DestinationPrefix string `json:"DestinationPrefix"`
	NextHop           string `json:"NextHop"`
	RouteMetric       int    `json:"RouteMetric"`
}

// AdapterRoutes implements Platform. Only routes owned by the NetMgmt
// protocol (manually configured) are returned.
func (p *PowerShellPlatform) AdapterRoutes(ctx context.Context, ifIndex int) ([]Route, error) {
	script := fmt.Sprintf(`Get-NetRoute -InterfaceIndex %d -ErrorAction SilentlyContinue | Where-Object { $_.Protocol -eq 'NetMgmt' } | ForEach-Object {`+
		` [pscustomobject]@{ DestinationPrefix=$_.DestinationPrefix; NextHop=$_.NextHop; RouteMetric=[int]$_.RouteMetric } } | ConvertTo-Json -Depth 3`, ifIndex)
	wires, err := runList[routeWire](ctx, p, "Get-NetRoute", strconv.Itoa(ifIndex), script)
	if err != nil {
		return nil, err
	}
	routes := make([]Route, 0, len(wires))
	for _, w := range wires {
		routes = append(routes, Route{DestinationPrefix: w.DestinationPrefix, NextHop: w.NextHop, Metric: w.RouteMetric})
	}
	return routes, nil
}

type dnsWire struct {
	Domain                   string   `json:"Domain"`
	Servers                  []string `json:"Servers"`
	RegisterThisConnection   bool     `json:"RegisterThisConnection"`
	UseSuffixWhenRegistering bool     `json:"UseSuffixWhenRegistering"`
	WINSServers              []string `json:"WINSServers"`
	NetBIOSOption            int      `json:"NetBIOSOption"`
}

// AdapterDNS implements Platform.
func (p *PowerShellPlatform) AdapterDNS(ctx context.Context, ifIndex int) (DNSConfig, error) {
	script := fmt.Sprintf(`$dns = Get-DnsClient -InterfaceIndex %[1]d -ErrorAction SilentlyContinue;`+
		` $srv = Get-DnsClientServerAddress -InterfaceIndex %[1]d -AddressFamily IPv4 -ErrorAction SilentlyContinue;`+
		` $wmi = Get-CimInstance Win32_NetworkAdapterConfiguration -Filter 'InterfaceIndex=%[1]d' -ErrorAction SilentlyContinue;`+
		` $wins = @(); if ($wmi.WINSPrimaryServer) { $wins += $wmi.WINSPrimaryServer }; if ($wmi.WINSSecondaryServer) { $wins += $wmi.WINSSecondaryServer };`+
		` [pscustomobject]@{ Domain=[string]$dns.ConnectionSpecificSuffix; Servers=@($srv.ServerAddresses);`+
		` RegisterThisConnection=[bool]$dns.RegisterThisConnectionsAddress; UseSuffixWhenRegistering=[bool]$dns.UseSuffixWhenRegistering;`+
		` WINSServers=@($wins); NetBIOSOption=[int]$wmi.TcpipNetbiosOptions } | ConvertTo-Json -Depth 3`, ifIndex)
	wires, err := runList[dnsWire](ctx, p, "Get-DnsClient", strconv.Itoa(ifIndex), script)
	if err != nil {
		return DNSConfig{}, err
	}
	if len(wires) == 0 {
		return DNSConfig{}, nil
	}
	w := wires[0]
	return DNSConfig{
		Domain:                   w.Domain,
		Servers:                  w.Servers,
		RegisterThisConnection:   w.RegisterThisConnection,
		UseSuffixWhenRegistering: w.UseSuffixWhenRegistering,
		WINSServers:              w.WINSServers,
		NetBIOSOption:            w.NetBIOSOption,
	}, nil
}

type advPropWire struct {
	RegistryKeyword      string `json:"RegistryKeyword"`
	DisplayName          string `json:"DisplayName"`
	RegistryValue        string `json:"RegistryValue"`
	DefaultRegistryValue string `json:"DefaultRegistryValue"`
}

// AdapterAdvancedProperties implements Platform.
func (p *PowerShellPlatform) AdapterAdvancedProperties(ctx context.Context, adapterName string) ([]AdvancedProperty, error) {
	script := `Get-NetAdapterAdvancedProperty -Name ` + psq("vEthernet ("+adapterName+")") + ` -ErrorAction SilentlyContinue | ForEach-Object {` +
		` [pscustomobject]@{ RegistryKeyword=[string]$_.RegistryKeyword; DisplayName=[string]$_.DisplayName;` +
		` RegistryValue=[string]($_.RegistryValue -join ','); DefaultRegistryValue=[string]$_.DefaultRegistryValue } } | ConvertTo-Json -Depth 3`
	wires, err := runList[advPropWire](ctx, p, "Get-NetAdapterAdvancedProperty", adapterName, script)
	if err != nil {
		return nil, err
	}
	props := make([]AdvancedProperty, 0, len(wires))
	for _, w := range wires {
		props = append(props, AdvancedProperty{
			Name:         w.RegistryKeyword,
			DisplayName:  w.DisplayName,
			Value:        w.RegistryValue,
			DefaultValue: w.DefaultRegistryValue,
		})
	}
	return props, nil
}

type guestAdapterWire struct {
	VMName     string `json:"VMName"`
	Name       string `json:"Name"`
	SwitchName string `json:"SwitchName"`
}

// GuestAdapters implements Platform.
func (p *PowerShellPlatform) GuestAdapters(ctx context.Context, switchName string) ([]GuestAdapter, error) {
	script := `Get-VMNetworkAdapter -VMName * -ErrorAction SilentlyContinue | Where-Object { $_.SwitchName -eq ` + psq(switchName) + ` } | ForEach-Object {` +
		` [pscustomobject]@{ VMName=$_.VMName; Name=$_.Name; SwitchName=$_.SwitchName } } | ConvertTo-Json -Depth 3`
	wires, err := runList[guestAdapterWire](ctx, p, "Get-VMNetworkAdapter", switchName, script)
	if err != nil {
		return nil, err
	}
	guests := make([]GuestAdapter, 0, len(wires))
	for _, w := range wires {
		guests = append(guests, GuestAdapter{VMName: w.VMName, Name: w.Name, SwitchName: w.SwitchName})
	}
	return guests, nil
}

// DisconnectGuestAdapter implements Platform.
func (p *PowerShellPlatform) DisconnectGuestAdapter(ctx context.Context, a GuestAdapter) error {
	script := `Disconnect-VMNetworkAdapter -VMName ` + psq(a.VMName) + ` -Name ` + psq(a.Name)
	return p.runVoid(ctx, "Disconnect-VMNetworkAdapter", a.VMName+"/"+a.Name, script)
}

// ConnectGuestAdapter implements Platform.
func (p *PowerShellPlatform) ConnectGuestAdapter(ctx context.Context, a GuestAdapter, switchName string) error {
	script := `Connect-VMNetworkAdapter -VMName ` + psq(a.VMName) + ` -Name ` + psq(a.Name) + ` -SwitchName ` + psq(switchName)
	return p.runVoid(ctx, "Connect-VMNetworkAdapter", a.VMName+"/"+a.Name, script)
}

// RemoveManagementAdapter implements Platform.
func (p *PowerShellPlatform) RemoveManagementAdapter(ctx context.Context, switchName, adapterName string) error {
	script := `Remove-VMNetworkAdapter -ManagementOS -SwitchName ` + psq(switchName) + ` -Name ` + psq(adapterName)
	return p.runVoid(ctx, "Remove-VMNetworkAdapter", adapterName, script)
}

// RemoveSwitch implements Platform.
func (p *PowerShellPlatform) RemoveSwitch(ctx context.Context, name string) error {
	script := `Remove-VMSwitch -Name ` + psq(name) + ` -Force`
	return p.runVoid(ctx, "Remove-VMSwitch", name, script)
}

// RemoveTeam implements Platform.
func (p *PowerShellPlatform) RemoveTeam(ctx context.Context, name string) error {
	script := `Remove-NetLbfoTeam -Name ` + psq(name) + ` -Confirm:$false`
	return p.runVoid(ctx, "Remove-NetLbfoTeam", name, script)
}

// CreateSwitch implements Platform.
func (p *PowerShellPlatform) CreateSwitch(ctx context.Context, spec CreateSwitchSpec) error {
	var b strings.Builder
	b.WriteString(`New-VMSwitch -Name ` + psq(spec.Name))
	b.WriteString(` -NetAdapterName ` + psqList(spec.TeamMembers))
	b.WriteString(fmt.Sprintf(` -AllowManagementOS:$%t`, spec.AllowManagementOS))
	if spec.EnableEmbeddedTeaming {
		b.WriteString(` -EnableEmbeddedTeaming $true`)
	}
	if spec.BandwidthMode != nil {
		b.WriteString(` -MinimumBandwidthMode ` + bandwidthModeParam(*spec.BandwidthMode))
	}
	if spec.Notes != "" {
		b.WriteString(` -Notes ` + psq(spec.Notes))
	}
	b.WriteString(` | Out-Null`)
	if spec.DefaultFlowMinimumBandwidth > 0 && spec.BandwidthMode != nil {
		switch *spec.BandwidthMode {
		case BandwidthModeAbsolute:
			b.WriteString(fmt.Sprintf(`; Set-VMSwitch -Name %s -DefaultFlowMinimumBandwidthAbsolute %d`, psq(spec.Name), spec.DefaultFlowMinimumBandwidth))
		case BandwidthModeWeight:
			b.WriteString(fmt.Sprintf(`; Set-VMSwitch -Name %s -DefaultFlowMinimumBandwidthWeight %d`, psq(spec.Name), spec.DefaultFlowMinimumBandwidth))
		}
	}
	return p.runVoid(ctx, "New-VMSwitch", spec.Name, b.String())
}

func bandwidthModeParam(m BandwidthMode) string {
	switch m {
	case BandwidthModeAbsolute:
		return "Absolute"
	case BandwidthModeWeight:
		return "Weight"
	case BandwidthModeNone:
		return "None"
	default:
		return "Default"
	}
}

// SetSwitchTeamAlgorithm implements Platform.
func (p *PowerShellPlatform) SetSwitchTeamAlgorithm(ctx context.Context, switchName string, alg SETAlgorithm) error {
	script := `Set-VMSwitchTeam -Name ` + psq(switchName) + ` -LoadBalancingAlgorithm ` + alg.String()
	return p.runVoid(ctx, "Set-VMSwitchTeam", switchName, script)
}

// AddManagementAdapter implements Platform.
func (p *PowerShellPlatform) AddManagementAdapter(ctx context.Context, switchName, name, mac string) (*ManagementAdapter, error) {
	script := `Add-VMNetworkAdapter -ManagementOS -SwitchName ` + psq(switchName) + ` -Name ` + psq(name)
	if mac != "" {
		script += ` -StaticMacAddress ` + psq(mac)
	}
	script += `; Get-VMNetworkAdapter -ManagementOS -Name ` + psq(name) + ` | ForEach-Object { ` + mgmtAdapterProject + ` } | ConvertTo-Json -Depth 4`
	wires, err := runList[mgmtAdapterWire](ctx, p, "Add-VMNetworkAdapter", name, script)
	if err != nil {
		return nil, err
	}
	if len(wires) == 0 {
		return nil, util.NewPlatformError("Add-VMNetworkAdapter", name, fmt.Errorf("adapter not visible after creation"))
	}
	adapter := wires[0].toAdapter()
	return &adapter, nil
}

// SetAdapterMinimumBandwidthAbsolute implements Platform.
func (p *PowerShellPlatform) SetAdapterMinimumBandwidthAbsolute(ctx context.Context, adapterName string, bps uint64) error {
	script := fmt.Sprintf(`Set-VMNetworkAdapter -ManagementOS -Name %s -MinimumBandwidthAbsolute %d`, psq(adapterName), bps)
	return p.runVoid(ctx, "Set-VMNetworkAdapter", adapterName, script)
}

// SetAdapterMinimumBandwidthWeight implements Platform.
func (p *PowerShellPlatform) SetAdapterMinimumBandwidthWeight(ctx context.Context, adapterName string, weight uint64) error {
	script := fmt.Sprintf(`Set-VMNetworkAdapter -ManagementOS -Name %s -MinimumBandwidthWeight %d`, psq(adapterName), weight)
	return p.runVoid(ctx, "Set-VMNetworkAdapter", adapterName, script)
}

// SetAdapterMaximumBandwidth implements Platform.
func (p *PowerShellPlatform) SetAdapterMaximumBandwidth(ctx context.Context, adapterName string, bps uint64) error {
	script := fmt.Sprintf(`Set-VMNetworkAdapter -ManagementOS -Name %s -MaximumBandwidth %d`, psq(adapterName), bps)
	return p.runVoid(ctx, "Set-VMNetworkAdapter", adapterName, script)
}

// SetAdapterVLAN implements Platform.
func (p *PowerShellPlatform) SetAdapterVLAN(ctx context.Context, adapterName string, vlanID int) error {
	script := fmt.Sprintf(`Set-VMNetworkAdapterVlan -ManagementOS -VMNetworkAdapterName %s -Access -VlanId %d`, psq(adapterName), vlanID)
	return p.runVoid(ctx, "Set-VMNetworkAdapterVlan", adapterName, script)
}

// AddIPAddress implements Platform.
func (p *PowerShellPlatform) AddIPAddress(ctx context.Context, ifIndex int, addr IPAddress) error {
	script := fmt.Sprintf(`New-NetIPAddress -InterfaceIndex %d -IPAddress %s -PrefixLength %d -SkipAsSource:$%t | Out-Null`,
		ifIndex, psq(addr.Address), addr.PrefixLength, addr.SkipAsSource)
	return p.runVoid(ctx, "New-NetIPAddress", addr.Address, script)
}

// AddRoute implements Platform.
func (p *PowerShellPlatform) AddRoute(ctx context.Context, ifIndex int, route Route) (uint32, error) {
	metric := route.Metric
	if metric <= 0 {
		metric = 256
	}
	script := fmt.Sprintf(`New-NetRoute -InterfaceIndex %d -DestinationPrefix %s -NextHop %s -RouteMetric %d | Out-Null; 0`,
		ifIndex, psq(route.DestinationPrefix), psq(route.NextHop), metric)
	return p.runReturnValue(ctx, "New-NetRoute", route.DestinationPrefix, script)
}

// wmiMethod renders an Invoke-CimMethod call against the interface's
// Win32_NetworkAdapterConfiguration instance, printing only ReturnValue.
func wmiMethod(ifIndex int, method, arguments string) string {
	return fmt.Sprintf(`$cfg = Get-CimInstance Win32_NetworkAdapterConfiguration -Filter 'InterfaceIndex=%d';`+
		` (Invoke-CimMethod -InputObject $cfg -MethodName %s -Arguments @{%s}).ReturnValue`, ifIndex, method, arguments)
}

// SetDNSRegistration implements Platform.
func (p *PowerShellPlatform) SetDNSRegistration(ctx context.Context, ifIndex int, register, useSuffix bool) (uint32, error) {
	args := fmt.Sprintf(`FullDNSRegistrationEnabled=$%t; DomainDNSRegistrationEnabled=$%t`, register, useSuffix)
	return p.runReturnValue(ctx, "SetDynamicDNSRegistration", strconv.Itoa(ifIndex), wmiMethod(ifIndex, "SetDynamicDNSRegistration", args))
}

// SetDNSDomain implements Platform.
func (p *PowerShellPlatform) SetDNSDomain(ctx context.Context, ifIndex int, domain string) (uint32, error) {
	args := `DNSDomain=` + psq(domain)
	return p.runReturnValue(ctx, "SetDNSDomain", strconv.Itoa(ifIndex), wmiMethod(ifIndex, "SetDNSDomain", args))
}

// SetDNSServers implements Platform.
func (p *PowerShellPlatform) SetDNSServers(ctx context.Context, ifIndex int, servers []string) (uint32, error) {
	args := `DNSServerSearchOrder=@(` + psqList(servers) + `)`
	return p.runReturnValue(ctx, "SetDNSServerSearchOrder", strconv.Itoa(ifIndex), wmiMethod(ifIndex, "SetDNSServerSearchOrder", args))
}

// SetWINSServers implements Platform.
func (p *PowerShellPlatform) SetWINSServers(ctx context.Context, ifIndex int, servers []string) (uint32, error) {
	primary, secondary := "''", "''"
	if len(servers) > 0 {
		primary = psq(servers[0])
	}
	if len(servers) > 1 {
		secondary = psq(servers[1])
	}
	args := `WINSPrimaryServer=` + primary + `; WINSSecondaryServer=` + secondary
	return p.runReturnValue(ctx, "SetWINSServer", strconv.Itoa(ifIndex), wmiMethod(ifIndex, "SetWINSServer", args))
}

// SetNetBIOS implements Platform.
func (p *PowerShellPlatform) SetNetBIOS(ctx context.Context, ifIndex int, option int) (uint32, error) {
	args := fmt.Sprintf(`TcpipNetbiosOptions=[uint32]%d`, option)
	return p.runReturnValue(ctx, "SetTcpipNetbios", strconv.Itoa(ifIndex), wmiMethod(ifIndex, "SetTcpipNetbios", args))
}

// SetAdvancedProperty implements Platform.
func (p *PowerShellPlatform) SetAdvancedProperty(ctx context.Context, adapterName, keyword, value string) (uint32, error) {
	script := `Set-NetAdapterAdvancedProperty -Name ` + psq("vEthernet ("+adapterName+")") +
		` -RegistryKeyword ` + psq(keyword) + ` -RegistryValue ` + psq(value) + ` -NoRestart; 0`
	return p.runReturnValue(ctx, "Set-NetAdapterAdvancedProperty", adapterName, script)
}
