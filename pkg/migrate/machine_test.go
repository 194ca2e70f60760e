package migrate

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/lattisimo/posher-v/internal/testutil"
	"github.com/lattisimo/posher-v/pkg/hyperv"
)

func captureFixture(t *testing.T, f *testutil.FakePlatform) *SwitchSnapshot {
	t.Helper()
	ctx := context.Background()
	sw := f.SwitchList[0]
	e := CheckEligibility(ctx, f, sw)
	if e.State != Eligible {
		t.Fatalf("fixture switch not eligible: %s", e.Reason)
	}
	snap, err := CaptureSwitch(ctx, f, sw, e.Team)
	if err != nil {
		t.Fatalf("CaptureSwitch: %v", err)
	}
	return snap
}

func newTestMachine(p hyperv.Platform, req *Request) *Machine {
	m := NewMachine(p, req, time.Nanosecond)
	m.sleep = func(time.Duration) {}
	return m
}

// firstCall returns the position of the first recorded call starting with
// prefix, or -1.
func firstCall(calls []string, prefix string) int {
	for i, c := range calls {
		if strings.HasPrefix(c, prefix) {
			return i
		}
	}
	return -1
}

func TestMachineRunSuccess(t *testing.T) {
	f := testutil.ConvergedHost()
	snap := captureFixture(t, f)
	m := newTestMachine(f, &Request{})

	out := m.Run(context.Background(), snap, snap.SwitchName)

	if out.Status != StatusSuccess {
		t.Fatalf("status = %s (%s), want success", out.Status, out.Reason)
	}
	if out.AdaptersReplayed != 2 || out.AdaptersFailed != 0 {
		t.Errorf("adapters = %d replayed / %d failed, want 2/0", out.AdaptersReplayed, out.AdaptersFailed)
	}
	if out.GuestsReconnected != 1 || out.GuestsFailed != 0 {
		t.Errorf("guests = %d reconnected / %d failed, want 1/0", out.GuestsReconnected, out.GuestsFailed)
	}
	if out.PropertiesFailed != 0 {
		t.Errorf("PropertiesFailed = %d, want 0", out.PropertiesFailed)
	}

	if len(f.CreatedSwitches) != 1 {
		t.Fatalf("created %d switches, want 1", len(f.CreatedSwitches))
	}
	spec := f.CreatedSwitches[0]
	if !spec.EnableEmbeddedTeaming {
		t.Error("new switch not created with embedded teaming")
	}
	if spec.AllowManagementOS {
		t.Error("new switch must not get an implicit management adapter")
	}
	if len(spec.TeamMembers) != 2 {
		t.Errorf("TeamMembers = %v, want the 2 released physical adapters", spec.TeamMembers)
	}
	if spec.BandwidthMode == nil || *spec.BandwidthMode != hyperv.BandwidthModeWeight {
		t.Errorf("BandwidthMode = %v, want weight carried from snapshot", spec.BandwidthMode)
	}
	if spec.DefaultFlowMinimumBandwidth != 10 {
		t.Errorf("DefaultFlowMinimumBandwidth = %d, want 10", spec.DefaultFlowMinimumBandwidth)
	}

	// Legacy Dynamic maps to SET Dynamic, which differs from the platform
	// default and must be applied explicitly.
	if n := len(f.MutationsFor("SetSwitchTeamAlgorithm")); n != 1 {
		t.Errorf("SetSwitchTeamAlgorithm called %d times, want 1", n)
	}

	// Non-default advanced property replays; the at-default one does not.
	if got := f.SetProps["Management"]["*JumboPacket"]; got != "9014" {
		t.Errorf("*JumboPacket replayed as %q, want 9014", got)
	}
	if _, ok := f.SetProps["Management"]["*RSS"]; ok {
		t.Error("*RSS was at its default and must not be rewritten")
	}

	// All three captured addresses land on the rebuilt adapters.
	var ips int
	for _, addrs := range f.AddedIPs {
		ips += len(addrs)
	}
	if ips != 3 {
		t.Errorf("replayed %d IP addresses, want 3", ips)
	}
	if n := len(f.MutationsFor("SetAdapterVLAN Cluster=100")); n != 1 {
		t.Errorf("Cluster VLAN re-tag issued %d times, want 1", n)
	}
}

func TestMachineRunOrdering(t *testing.T) {
	f := testutil.ConvergedHost()
	snap := captureFixture(t, f)
	m := newTestMachine(f, &Request{})

	if out := m.Run(context.Background(), snap, snap.SwitchName); out.Status != StatusSuccess {
		t.Fatalf("status = %s (%s), want success", out.Status, out.Reason)
	}

	calls := f.MutatingCalls()
	order := []string{
		"DisconnectGuestAdapter",
		"RemoveManagementAdapter",
		"RemoveSwitch",
		"RemoveTeam",
		"CreateSwitch",
		"AddManagementAdapter",
		"ConnectGuestAdapter",
	}
	prev := -1
	for _, op := range order {
		idx := firstCall(calls, op)
		if idx < 0 {
			t.Fatalf("%s never issued; calls: %v", op, calls)
		}
		if idx < prev {
			t.Errorf("%s issued out of order at %d; calls: %v", op, idx, calls)
		}
		prev = idx
	}
}

func TestMachineGuestDisconnectFailureAbandons(t *testing.T) {
	f := testutil.ConvergedHost()
	snap := captureFixture(t, f)
	f.FailOn["DisconnectGuestAdapter"] = errors.New("vm locked")
	m := newTestMachine(f, &Request{})

	out := m.Run(context.Background(), snap, snap.SwitchName)

	if out.Status != StatusFailed {
		t.Fatalf("status = %s, want failed", out.Status)
	}
	if firstCall(f.MutatingCalls(), "RemoveSwitch") != -1 {
		t.Error("teardown proceeded after disconnect failure; the switch should stay untouched")
	}
}

func TestMachineCreateSwitchFailure(t *testing.T) {
	f := testutil.ConvergedHost()
	snap := captureFixture(t, f)
	f.FailOn["CreateSwitch"] = errors.New("team member busy")
	m := newTestMachine(f, &Request{})

	out := m.Run(context.Background(), snap, snap.SwitchName)

	if out.Status != StatusFailed {
		t.Fatalf("status = %s, want failed", out.Status)
	}
	if !strings.Contains(out.Reason, "already removed") {
		t.Errorf("reason %q should flag that the legacy constructs are gone", out.Reason)
	}
	if firstCall(f.MutatingCalls(), "AddManagementAdapter") != -1 {
		t.Error("rebuild continued after switch creation failed")
	}
}

func TestMachinePartialOnAdapterFailure(t *testing.T) {
	f := testutil.ConvergedHost()
	snap := captureFixture(t, f)
	f.FailOn["AddManagementAdapter Management"] = errors.New("name conflict")
	m := newTestMachine(f, &Request{})

	out := m.Run(context.Background(), snap, snap.SwitchName)

	if out.Status != StatusPartial {
		t.Fatalf("status = %s, want partial", out.Status)
	}
	if out.AdaptersFailed != 1 || out.AdaptersReplayed != 1 {
		t.Errorf("adapters = %d replayed / %d failed, want 1/1 (second adapter must still rebuild)",
			out.AdaptersReplayed, out.AdaptersFailed)
	}
	if out.GuestsReconnected != 1 {
		t.Errorf("guests reconnected = %d, want 1 (reconnect runs despite adapter failure)", out.GuestsReconnected)
	}
}

func TestMachineUseDefaults(t *testing.T) {
	f := testutil.ConvergedHost()
	snap := captureFixture(t, f)
	m := newTestMachine(f, &Request{UseDefaults: true})

	out := m.Run(context.Background(), snap, snap.SwitchName)

	if out.Status != StatusSuccess {
		t.Fatalf("status = %s (%s), want success", out.Status, out.Reason)
	}
	spec := f.CreatedSwitches[0]
	if spec.BandwidthMode != nil {
		t.Errorf("BandwidthMode = %v, want nil (platform default)", *spec.BandwidthMode)
	}
	if spec.DefaultFlowMinimumBandwidth != 0 {
		t.Errorf("DefaultFlowMinimumBandwidth = %d, want 0 under defaults", spec.DefaultFlowMinimumBandwidth)
	}
	if n := len(f.MutationsFor("SetSwitchTeamAlgorithm")); n != 0 {
		t.Errorf("algorithm applied %d times under defaults, want 0", n)
	}
	if n := len(f.MutationsFor("SetAdapterMinimumBandwidthWeight")); n != 0 {
		t.Errorf("bandwidth reservations applied %d times under defaults, want 0", n)
	}

	// Identity still comes back: the max cap, VLAN tag, and addresses.
	if n := len(f.MutationsFor("SetAdapterMaximumBandwidth")); n != 1 {
		t.Errorf("maximum bandwidth cap applied %d times, want 1", n)
	}
	if n := len(f.MutationsFor("SetAdapterVLAN")); n != 1 {
		t.Errorf("VLAN re-tag applied %d times, want 1", n)
	}
	var ips int
	for _, addrs := range f.AddedIPs {
		ips += len(addrs)
	}
	if ips != 3 {
		t.Errorf("replayed %d IP addresses, want 3", ips)
	}
}

func TestMachineAlgorithmOverride(t *testing.T) {
	f := testutil.ConvergedHost()
	snap := captureFixture(t, f)
	alg := hyperv.SETAlgorithmHyperVPort
	m := newTestMachine(f, &Request{Algorithm: &alg})

	if out := m.Run(context.Background(), snap, snap.SwitchName); out.Status != StatusSuccess {
		t.Fatalf("status = %s (%s), want success", out.Status, out.Reason)
	}
	// Explicit choice matching the platform default is not re-applied.
	if n := len(f.MutationsFor("SetSwitchTeamAlgorithm")); n != 0 {
		t.Errorf("SetSwitchTeamAlgorithm called %d times for the default algorithm, want 0", n)
	}
}

func TestMachineRename(t *testing.T) {
	f := testutil.ConvergedHost()
	snap := captureFixture(t, f)
	m := newTestMachine(f, &Request{})

	out := m.Run(context.Background(), snap, "ConvergedSwitch-SET")

	if out.Status != StatusSuccess {
		t.Fatalf("status = %s (%s), want success", out.Status, out.Reason)
	}
	if f.CreatedSwitches[0].Name != "ConvergedSwitch-SET" {
		t.Errorf("created switch %q, want the rename", f.CreatedSwitches[0].Name)
	}
	if n := len(f.MutationsFor("->ConvergedSwitch-SET")); n != 1 {
		t.Errorf("guest reconnected to renamed switch %d times, want 1", n)
	}
	if out.NewName != "ConvergedSwitch-SET" {
		t.Errorf("outcome NewName = %q", out.NewName)
	}
}

func TestMachineSettlesAfterDestructiveStates(t *testing.T) {
	f := testutil.ConvergedHost()
	snap := captureFixture(t, f)
	m := NewMachine(f, &Request{}, 5*time.Second)
	var sleeps []time.Duration
	m.sleep = func(d time.Duration) { sleeps = append(sleeps, d) }

	if out := m.Run(context.Background(), snap, snap.SwitchName); out.Status != StatusSuccess {
		t.Fatalf("status = %s (%s), want success", out.Status, out.Reason)
	}
	// One settle after adapter removal, one after switch removal, one after
	// team removal.
	if len(sleeps) != 3 {
		t.Fatalf("settled %d times, want 3", len(sleeps))
	}
	for _, d := range sleeps {
		if d != 5*time.Second {
			t.Errorf("settle duration = %s, want 5s", d)
		}
	}
}

func TestMachineAbsoluteBandwidthMode(t *testing.T) {
	f := testutil.ConvergedHost()
	f.SwitchList[0].BandwidthMode = hyperv.BandwidthModeAbsolute
	f.Mgmt["ConvergedSwitch"] = []hyperv.ManagementAdapter{{
		Name:                     "Management",
		SwitchName:               "ConvergedSwitch",
		MACAddress:               "00155D010200",
		InterfaceIndex:           11,
		MinimumBandwidthAbsolute: 500_000_000,
	}}
	snap := captureFixture(t, f)
	m := newTestMachine(f, &Request{})

	if out := m.Run(context.Background(), snap, snap.SwitchName); out.Status != StatusSuccess {
		t.Fatalf("status = %s (%s), want success", out.Status, out.Reason)
	}
	if n := len(f.MutationsFor("SetAdapterMinimumBandwidthAbsolute Management=500000000")); n != 1 {
		t.Errorf("absolute reservation applied %d times, want 1", n)
	}
	if n := len(f.MutationsFor("SetAdapterMinimumBandwidthWeight")); n != 0 {
		t.Errorf("weight applied %d times in absolute mode, want 0", n)
	}
}
