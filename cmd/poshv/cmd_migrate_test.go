package main

import (
	"errors"
	"testing"

	"github.com/lattisimo/posher-v/pkg/migrate"
	"github.com/lattisimo/posher-v/pkg/util"
)

func TestExitCodeFor(t *testing.T) {
	noneEligible := &migrate.Report{
		EligibleCount: 0,
		Outcomes: []migrate.Outcome{
			{SwitchName: "Isolated", Status: migrate.StatusSkipped},
		},
	}
	if got := exitCodeFor(noneEligible); got != 2 {
		t.Errorf("exitCodeFor(none eligible) = %d, want 2", got)
	}

	withFailures := &migrate.Report{
		EligibleCount: 2,
		Outcomes: []migrate.Outcome{
			{SwitchName: "A", Status: migrate.StatusSuccess},
			{SwitchName: "B", Status: migrate.StatusFailed},
		},
	}
	if got := exitCodeFor(withFailures); got != 0 {
		t.Errorf("exitCodeFor(per-switch failures) = %d, want 0", got)
	}
}

func TestConnectRequiresHost(t *testing.T) {
	saved := hostName
	hostName = ""
	defer func() { hostName = saved }()

	_, _, _, err := connect()
	if !errors.Is(err, util.ErrNotConnected) {
		t.Errorf("err = %v, want not-connected", err)
	}
}
