package migrate

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/lattisimo/posher-v/internal/testutil"
	"github.com/lattisimo/posher-v/pkg/hyperv"
)

func TestCheckEligibility(t *testing.T) {
	teamedDesc := "Microsoft Network Adapter Multiplexor Driver"
	plainDesc := "Intel(R) Ethernet Converged Network Adapter X710"

	tests := []struct {
		name      string
		sw        hyperv.Switch
		team      *hyperv.Team
		wantState EligibilityState
		wantIn    string // substring expected in the reason
	}{
		{
			name:      "internal switch skipped",
			sw:        hyperv.Switch{Name: "Isolated", Type: hyperv.SwitchTypeInternal},
			wantState: Skipped,
			wantIn:    "internal",
		},
		{
			name:      "private switch skipped",
			sw:        hyperv.Switch{Name: "Backplane", Type: hyperv.SwitchTypePrivate},
			wantState: Skipped,
			wantIn:    "private",
		},
		{
			name: "already SET skipped",
			sw: hyperv.Switch{
				Name: "Modern", Type: hyperv.SwitchTypeExternal,
				EmbeddedTeamingEnabled: true,
			},
			wantState: Skipped,
			wantIn:    "embedded teaming",
		},
		{
			name: "plain NIC uplink skipped",
			sw: hyperv.Switch{
				Name: "DirectAttach", Type: hyperv.SwitchTypeExternal,
				NetAdapterInterfaceDescription: plainDesc,
			},
			wantState: Skipped,
			wantIn:    "not an LBFO team",
		},
		{
			name: "tagged team interface skipped",
			sw: hyperv.Switch{
				Name: "Tagged", Type: hyperv.SwitchTypeExternal,
				NetAdapterInterfaceDescription: teamedDesc,
			},
			team:      &hyperv.Team{Name: "TaggedTeam", VLANID: 215},
			wantState: Skipped,
			wantIn:    "VLAN 215",
		},
		{
			name: "LBFO-backed external switch eligible",
			sw: hyperv.Switch{
				Name: "Converged", Type: hyperv.SwitchTypeExternal,
				NetAdapterInterfaceDescription: teamedDesc,
			},
			team:      &hyperv.Team{Name: "HostTeam", Members: []string{"NIC1", "NIC2"}},
			wantState: Eligible,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := testutil.NewFakePlatform()
			if tt.team != nil {
				f.Teams[tt.sw.NetAdapterInterfaceDescription] = tt.team
			}
			e := CheckEligibility(context.Background(), f, tt.sw)
			if e.State != tt.wantState {
				t.Fatalf("state = %s (%s), want %s", e.State, e.Reason, tt.wantState)
			}
			if tt.wantIn != "" && !strings.Contains(e.Reason, tt.wantIn) {
				t.Errorf("reason %q does not mention %q", e.Reason, tt.wantIn)
			}
			if tt.wantState == Eligible && e.Team == nil {
				t.Error("eligible result carries no resolved team")
			}
		})
	}
}

func TestCheckEligibilityInspectionError(t *testing.T) {
	f := testutil.NewFakePlatform()
	f.FailOn["TeamByInterfaceDescription"] = errors.New("ssh channel closed")
	sw := hyperv.Switch{
		Name: "Flaky", Type: hyperv.SwitchTypeExternal,
		NetAdapterInterfaceDescription: "whatever",
	}

	e := CheckEligibility(context.Background(), f, sw)
	if e.State != EligibilityFailed {
		t.Fatalf("state = %s, want failed: an unexpected error is not a skip", e.State)
	}
}

func TestCheckEligibilityChecksAreOrdered(t *testing.T) {
	// A non-external switch never triggers team resolution, even when that
	// resolution would error.
	f := testutil.NewFakePlatform()
	f.FailOn["TeamByInterfaceDescription"] = errors.New("unreachable")
	sw := hyperv.Switch{Name: "Isolated", Type: hyperv.SwitchTypeInternal}

	if e := CheckEligibility(context.Background(), f, sw); e.State != Skipped {
		t.Fatalf("state = %s, want skipped before team resolution", e.State)
	}
}
