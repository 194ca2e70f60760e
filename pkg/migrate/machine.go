package migrate

import (
	"context"
	"fmt"
	"time"

	"github.com/lattisimo/posher-v/pkg/hyperv"
	"github.com/lattisimo/posher-v/pkg/util"
)

// DefaultSettleDelay is the pause inserted after each destructive platform
// mutation. Immediately chaining mutations after a remove is unreliable on
// the real platform, so the pause is a correctness requirement, not an
// optimization.
const DefaultSettleDelay = 3 * time.Second

// defaultSETAlgorithm is what the platform gives a new embedded team when
// no algorithm is set explicitly.
const defaultSETAlgorithm = hyperv.SETAlgorithmHyperVPort

// Machine executes the teardown/rebuild pipeline for a single switch
// snapshot. Every state is a hard commit point: there is no rollback, and
// once the legacy switch and team are destroyed the only path back to a
// working network is completing the rebuild. Machines run strictly
// sequentially; one switch finishes (or fails) before the next begins.
type Machine struct {
	platform hyperv.Platform
	replayer *Replayer
	request  *Request
	settle   time.Duration

	// sleep is swapped out by tests.
	sleep func(time.Duration)
}

// NewMachine creates a state machine for one run. settle <= 0 selects
// DefaultSettleDelay.
func NewMachine(p hyperv.Platform, req *Request, settle time.Duration) *Machine {
	if settle <= 0 {
		settle = DefaultSettleDelay
	}
	return &Machine{
		platform: p,
		replayer: NewReplayer(p),
		request:  req,
		settle:   settle,
		sleep:    time.Sleep,
	}
}

// Run migrates one switch. newName is the resolved display name for the
// rebuilt switch (usually the original name). The returned outcome is
// always terminal: Success, Partial, or Failed.
func (m *Machine) Run(ctx context.Context, snap *SwitchSnapshot, newName string) Outcome {
	out := Outcome{SwitchName: snap.SwitchName, NewName: newName}
	log := util.WithSwitch(snap.SwitchName)

	// State 1: disconnect guest adapters. The list is retained for
	// reconnection in state 8. Any failure leaves the switch untouched
	// enough to abandon safely.
	guests, err := m.platform.GuestAdapters(ctx, snap.SwitchName)
	if err != nil {
		return failed(out, fmt.Sprintf("enumerating guest adapters: %v", err))
	}
	for _, g := range guests {
		if err := m.platform.DisconnectGuestAdapter(ctx, g); err != nil {
			return failed(out, fmt.Sprintf("disconnecting guest adapter %s/%s: %v", g.VMName, g.Name, err))
		}
	}
	if len(guests) > 0 {
		log.Infof("disconnected %d guest adapters", len(guests))
	}

	// State 2: remove management-OS adapters recorded in the snapshot.
	if len(snap.Adapters) > 0 {
		for _, a := range snap.Adapters {
			if err := m.platform.RemoveManagementAdapter(ctx, snap.SwitchName, a.Name); err != nil {
				return failed(out, fmt.Sprintf("removing management adapter %q: %v", a.Name, err))
			}
		}
		m.sleep(m.settle)
	}

	// State 3: remove the old switch.
	log.Info("removing legacy switch")
	if err := m.platform.RemoveSwitch(ctx, snap.SwitchName); err != nil {
		return failed(out, fmt.Sprintf("removing switch: %v", err))
	}
	m.sleep(m.settle)

	// State 4: remove the legacy team, releasing the physical adapters.
	log.Infof("removing LBFO team %q", snap.TeamName)
	if err := m.platform.RemoveTeam(ctx, snap.TeamName); err != nil {
		return failed(out, fmt.Sprintf("removing team %q: %v", snap.TeamName, err))
	}
	m.sleep(m.settle)

	// State 5: create the SET switch on the released physical adapters.
	// The legacy constructs are gone; a failure here is the operation's
	// single point of irreversible risk.
	alg, explicit := m.request.ResolveAlgorithm(snap)
	spec := hyperv.CreateSwitchSpec{
		Name:                  newName,
		TeamMembers:           snap.TeamMembers,
		AllowManagementOS:     false,
		EnableEmbeddedTeaming: true,
		BandwidthMode:         m.request.ResolveBandwidthMode(snap),
		Notes:                 m.request.Notes,
	}
	if !m.request.UseDefaults {
		spec.DefaultFlowMinimumBandwidth = snap.DefaultFlowMinimumBandwidth
	}
	log.Infof("creating SET switch %q on members %v", newName, snap.TeamMembers)
	if err := m.platform.CreateSwitch(ctx, spec); err != nil {
		util.Errorf("switch %q: SET switch creation failed with the legacy switch and team already destroyed; host uplink is down until recreated manually: %v", snap.SwitchName, err)
		return failed(out, fmt.Sprintf("creating SET switch (legacy constructs already removed): %v", err))
	}

	// State 6: apply the team algorithm when it differs from the default.
	if explicit && alg != defaultSETAlgorithm {
		if err := m.platform.SetSwitchTeamAlgorithm(ctx, newName, alg); err != nil {
			log.Warnf("setting load-balancing algorithm %s: %v", alg, err)
			out.PropertiesFailed++
		}
	}

	// State 7: rebuild management adapters in original order. Per-adapter
	// failures do not abort the remaining adapters or the switch.
	effectiveMode := m.request.ResolveBandwidthMode(snap)
	for i := range snap.Adapters {
		a := &snap.Adapters[i]
		created, err := m.platform.AddManagementAdapter(ctx, newName, a.Name, a.MACAddress)
		if err != nil {
			log.Errorf("recreating management adapter %q: %v", a.Name, err)
			out.AdaptersFailed++
			continue
		}
		out.AdaptersReplayed++

		m.applyBandwidth(ctx, a, effectiveMode, &out)

		if a.VLANID != 0 {
			if err := m.platform.SetAdapterVLAN(ctx, a.Name, a.VLANID); err != nil {
				log.Warnf("re-tagging adapter %q to VLAN %d: %v", a.Name, a.VLANID, err)
				out.PropertiesFailed++
			} else {
				out.PropertiesReplayed++
			}
		}

		res := m.replayer.Replay(ctx, a, created)
		out.PropertiesReplayed += res.Replayed
		out.PropertiesFailed += res.Failed
	}

	// State 8: reconnect the guest adapters captured in state 1.
	for _, g := range guests {
		if err := m.platform.ConnectGuestAdapter(ctx, g, newName); err != nil {
			log.Warnf("reconnecting guest adapter %s/%s: %v", g.VMName, g.Name, err)
			out.GuestsFailed++
			continue
		}
		out.GuestsReconnected++
	}

	if out.AdaptersFailed > 0 || out.PropertiesFailed > 0 || out.GuestsFailed > 0 {
		out.Status = StatusPartial
		out.Reason = "switch rebuilt, some settings failed to replay"
		return out
	}
	out.Status = StatusSuccess
	return out
}

// applyBandwidth applies min/max bandwidth settings compatible with the
// resolved reservation mode. Minimum reservations are suppressed entirely
// under UseDefaults; the maximum cap is part of the adapter's identity and
// is applied whenever present.
func (m *Machine) applyBandwidth(ctx context.Context, a *AdapterSnapshot, mode *hyperv.BandwidthMode, out *Outcome) {
	log := util.WithAdapter(a.Name)

	if !m.request.UseDefaults && mode != nil {
		switch *mode {
		case hyperv.BandwidthModeAbsolute:
			if a.MinimumBandwidthAbsolute > 0 {
				if err := m.platform.SetAdapterMinimumBandwidthAbsolute(ctx, a.Name, a.MinimumBandwidthAbsolute); err != nil {
					log.Warnf("restoring absolute bandwidth reservation: %v", err)
					out.PropertiesFailed++
				} else {
					out.PropertiesReplayed++
				}
			}
		case hyperv.BandwidthModeWeight, hyperv.BandwidthModeDefault:
			if a.MinimumBandwidthWeight > 0 {
				if err := m.platform.SetAdapterMinimumBandwidthWeight(ctx, a.Name, a.MinimumBandwidthWeight); err != nil {
					log.Warnf("restoring bandwidth weight: %v", err)
					out.PropertiesFailed++
				} else {
					out.PropertiesReplayed++
				}
			}
		}
	}

	if a.MaximumBandwidth > 0 {
		if err := m.platform.SetAdapterMaximumBandwidth(ctx, a.Name, a.MaximumBandwidth); err != nil {
			log.Warnf("restoring maximum bandwidth cap: %v", err)
			out.PropertiesFailed++
		} else {
			out.PropertiesReplayed++
		}
	}
}

func failed(out Outcome, reason string) Outcome {
	out.Status = StatusFailed
	out.Reason = reason
	return out
}
