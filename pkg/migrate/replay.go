package migrate

import (
	"context"

	"github.com/lattisimo/posher-v/pkg/hyperv"
	"github.com/lattisimo/posher-v/pkg/util"
)

// ReplayResult counts per-property outcomes for one adapter.
type ReplayResult struct {
	Replayed int
	Failed   int
}

func (r *ReplayResult) ok()   { r.Replayed++ }
func (r *ReplayResult) fail() { r.Failed++ }

// Replayer reapplies a captured adapter configuration to its freshly
// created counterpart: IP addresses, gateway routes, DNS/WINS/NetBIOS
// settings, and non-default advanced driver properties. Replay is
// best-effort per property — a failed call is logged as a warning and
// counted, never escalated to an adapter-level failure.
type Replayer struct {
	platform hyperv.Platform
}

// NewReplayer creates a replayer over the platform.
func NewReplayer(p hyperv.Platform) *Replayer {
	return &Replayer{platform: p}
}

// Replay applies everything in snap not already covered by switch- and
// team-level settings onto the new adapter.
func (r *Replayer) Replay(ctx context.Context, snap *AdapterSnapshot, created *hyperv.ManagementAdapter) ReplayResult {
	var res ReplayResult
	log := util.WithAdapter(snap.Name)

	for _, addr := range snap.IPAddresses {
		if err := r.platform.AddIPAddress(ctx, created.InterfaceIndex, addr); err != nil {
			log.Warnf("re-adding IP address %s/%d: %v", addr.Address, addr.PrefixLength, err)
			res.fail()
			continue
		}
		res.ok()
	}

	// Registration flags are part of the adapter's DNS identity and are
	// reapplied unconditionally.
	r.call(log, &res, "DNS registration", func() (uint32, error) {
		return r.platform.SetDNSRegistration(ctx, created.InterfaceIndex, snap.DNS.RegisterThisConnection, snap.DNS.UseSuffixWhenRegistering)
	})

	for _, route := range snap.Routes {
		route := route
		r.call(log, &res, "route "+route.DestinationPrefix, func() (uint32, error) {
			return r.platform.AddRoute(ctx, created.InterfaceIndex, route)
		})
	}

	if snap.DNS.Domain != "" {
		r.call(log, &res, "DNS domain", func() (uint32, error) {
			return r.platform.SetDNSDomain(ctx, created.InterfaceIndex, snap.DNS.Domain)
		})
	}
	if len(snap.DNS.Servers) > 0 {
		r.call(log, &res, "DNS servers", func() (uint32, error) {
			return r.platform.SetDNSServers(ctx, created.InterfaceIndex, snap.DNS.Servers)
		})
	}
	if len(snap.DNS.WINSServers) > 0 {
		r.call(log, &res, "WINS servers", func() (uint32, error) {
			return r.platform.SetWINSServers(ctx, created.InterfaceIndex, snap.DNS.WINSServers)
		})
	}
	if snap.DNS.NetBIOSOption != 0 {
		r.call(log, &res, "NetBIOS mode", func() (uint32, error) {
			return r.platform.SetNetBIOS(ctx, created.InterfaceIndex, snap.DNS.NetBIOSOption)
		})
	}

	r.replayAdvancedProperties(ctx, snap, created, &res)
	return res
}

// replayAdvancedProperties joins the captured property set against the new
// adapter's current set by registry keyword and writes only matched pairs.
// A captured property the new driver does not expose is dropped silently:
// there is nothing to set it on.
func (r *Replayer) replayAdvancedProperties(ctx context.Context, snap *AdapterSnapshot, created *hyperv.ManagementAdapter, res *ReplayResult) {
	if len(snap.AdvancedProperties) == 0 {
		return
	}
	log := util.WithAdapter(snap.Name)

	current, err := r.platform.AdapterAdvancedProperties(ctx, created.Name)
	if err != nil {
		log.Warnf("enumerating advanced properties on new adapter: %v", err)
		res.Failed += len(snap.AdvancedProperties)
		return
	}
	exposed := make(map[string]struct{}, len(current))
	for _, p := range current {
		exposed[p.Name] = struct{}{}
	}

	for _, p := range snap.AdvancedProperties {
		if _, ok := exposed[p.Name]; !ok {
			log.Debugf("advanced property %s not exposed by new driver, skipping", p.Name)
			continue
		}
		p := p
		r.call(log, res, "advanced property "+p.Name, func() (uint32, error) {
			return r.platform.SetAdvancedProperty(ctx, created.Name, p.Name, p.Value)
		})
	}
}

// call invokes a status-code-returning platform operation and records the
// outcome. A non-zero code and a transport error are both warnings.
func (r *Replayer) call(log interface{ Warnf(string, ...interface{}) }, res *ReplayResult, what string, fn func() (uint32, error)) {
	code, err := fn()
	if err != nil {
		log.Warnf("replaying %s: %v", what, err)
		res.fail()
		return
	}
	if code != 0 {
		log.Warnf("replaying %s: platform returned status %d", what, code)
		res.fail()
		return
	}
	res.ok()
}
