package migrate

import (
	"context"
	"errors"
	"fmt"

	"github.com/lattisimo/posher-v/pkg/hyperv"
	"github.com/lattisimo/posher-v/pkg/util"
)

// EligibilityState classifies a candidate switch.
type EligibilityState int

const (
	// Eligible means the switch can be migrated.
	Eligible EligibilityState = iota
	// Skipped means the switch is not a migration candidate; not an error.
	Skipped
	// EligibilityFailed means inspection itself failed; the switch is
	// excluded from the run but the batch continues.
	EligibilityFailed
)

func (s EligibilityState) String() string {
	switch s {
	case Eligible:
		return "eligible"
	case Skipped:
		return "skipped"
	case EligibilityFailed:
		return "failed"
	}
	return fmt.Sprintf("unknown(%d)", int(s))
}

// Eligibility is the outcome of validating one candidate switch. For an
// eligible switch, Team carries the resolved legacy team so the caller does
// not have to resolve it a second time during capture.
type Eligibility struct {
	State  EligibilityState
	Reason string
	Team   *hyperv.Team
}

// CheckEligibility runs the ordered eligibility checks for one switch,
// short-circuiting on the first disqualifier:
//
//  1. the switch must be external (bound to a physical uplink);
//  2. it must not already use embedded teaming;
//  3. its uplink must resolve to a legacy LBFO team;
//  4. the team's default interface must carry no VLAN tag — SET cannot be
//     substituted underneath a tagged team interface.
//
// Unexpected inspection errors classify as EligibilityFailed, which excludes
// the switch without aborting the batch.
func CheckEligibility(ctx context.Context, p hyperv.Platform, sw hyperv.Switch) Eligibility {
	if sw.Type != hyperv.SwitchTypeExternal {
		return Eligibility{State: Skipped, Reason: fmt.Sprintf("switch type is %s, only external switches have an uplink team", sw.Type)}
	}
	if sw.EmbeddedTeamingEnabled {
		return Eligibility{State: Skipped, Reason: "switch already uses switch-embedded teaming"}
	}

	team, err := p.TeamByInterfaceDescription(ctx, sw.NetAdapterInterfaceDescription)
	if err != nil {
		if errors.Is(err, util.ErrNotFound) {
			return Eligibility{State: Skipped, Reason: "bound interface is not an LBFO team adapter"}
		}
		return Eligibility{State: EligibilityFailed, Reason: fmt.Sprintf("resolving uplink team: %v", err)}
	}

	if team.VLANID != 0 {
		return Eligibility{State: Skipped, Reason: fmt.Sprintf("team interface carries VLAN %d; tagged team interfaces need a separate migration path", team.VLANID)}
	}

	return Eligibility{State: Eligible, Team: team}
}
