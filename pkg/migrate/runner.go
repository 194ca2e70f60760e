package migrate

import (
	"context"
	"fmt"
	"time"

	"github.com/lattisimo/posher-v/pkg/hyperv"
	"github.com/lattisimo/posher-v/pkg/util"
)

// Recorder receives durable run records. The runner journals every captured
// snapshot before its switch is torn down — there is no rollback, so the
// snapshot is the only forensic record of what the host looked like — and
// every terminal outcome afterwards.
type Recorder interface {
	RecordSnapshot(host string, snap *SwitchSnapshot) error
	RecordOutcome(host string, out Outcome) error
}

// Runner orchestrates one migration batch: selection, eligibility,
// inventory, a single cluster drain, the sequential per-switch state
// machines, and the unconditional cluster resume.
type Runner struct {
	Platform hyperv.Platform
	Cluster  hyperv.Cluster
	Request  *Request

	// Host names the target in logs and journal records.
	Host string

	// Poll controls the drain status loop; zero value selects defaults.
	Poll PollPolicy

	// Settle is the wait-after-mutation delay; <= 0 selects the default.
	Settle time.Duration

	// Journal is optional; nil disables run recording.
	Journal Recorder
}

// Run executes the batch and returns the aggregated report. A nil error
// with a report containing failures is the normal shape for per-switch
// trouble; a non-nil error means the run aborted on a fatal condition
// before or during the batch.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	if len(r.Request.SwitchNames) > 0 && len(r.Request.SwitchIDs) > 0 {
		return nil, util.NewValidationError("switch names and switch ids are mutually exclusive selectors")
	}

	switches, err := r.Platform.Switches(ctx)
	if err != nil {
		return nil, fmt.Errorf("enumerating switches: %w", err)
	}
	selected := selectSwitches(switches, r.Request)
	if len(selected) == 0 {
		return nil, fmt.Errorf("no switches matched the selection: %w", util.ErrNotFound)
	}

	report := &Report{Host: r.Host}

	// Eligibility pass: read-only, classifies every selected switch.
	type candidate struct {
		sw   hyperv.Switch
		team *hyperv.Team
	}
	var eligible []candidate
	for _, sw := range selected {
		e := CheckEligibility(ctx, r.Platform, sw)
		switch e.State {
		case Eligible:
			eligible = append(eligible, candidate{sw: sw, team: e.Team})
		case Skipped:
			util.WithSwitch(sw.Name).Infof("skipped: %s", e.Reason)
			report.Outcomes = append(report.Outcomes, Outcome{SwitchName: sw.Name, Status: StatusSkipped, Reason: e.Reason})
		case EligibilityFailed:
			util.WithSwitch(sw.Name).Errorf("eligibility inspection failed: %s", e.Reason)
			report.Outcomes = append(report.Outcomes, Outcome{SwitchName: sw.Name, Status: StatusFailed, Reason: e.Reason})
		}
	}
	report.EligibleCount = len(eligible)
	if len(eligible) == 0 {
		return report, nil
	}

	// The rename list must line up one-to-one with the eligible switches;
	// a mismatch aborts before any mutation is issued.
	if n := len(r.Request.Renames); n > 0 && n != len(eligible) {
		return nil, util.NewPreconditionError("migrate", r.Host, "rename count must match eligible switch count",
			fmt.Sprintf("%d renames for %d eligible switches", n, len(eligible)))
	}

	// Inventory pass: pure reads. A capture failure excludes that switch
	// from the rebuild phase but the batch continues. Renames are bound to
	// their eligible switch here, before any exclusion can shift positions;
	// resolving them later against the surviving snapshots would hand a
	// rename to the wrong switch.
	type workItem struct {
		snap    *SwitchSnapshot
		newName string
	}
	var batch []workItem
	for i, c := range eligible {
		snap, err := CaptureSwitch(ctx, r.Platform, c.sw, c.team)
		if err != nil {
			util.WithSwitch(c.sw.Name).Errorf("inventory failed: %v", err)
			report.Outcomes = append(report.Outcomes, Outcome{SwitchName: c.sw.Name, Status: StatusFailed, Reason: fmt.Sprintf("inventory: %v", err)})
			continue
		}
		batch = append(batch, workItem{snap: snap, newName: r.Request.ResolveName(snap, i)})
	}
	if len(batch) == 0 {
		return report, nil
	}

	for _, w := range batch {
		snap := w.snap
		r.record(func() error { return r.Journal.RecordSnapshot(r.Host, snap) })
	}

	coord, err := NewCoordinator(ctx, r.Cluster, r.Poll)
	if err != nil {
		return nil, err
	}
	if err := coord.DrainIfClustered(ctx); err != nil {
		// Resume is always attempted once drain was requested; roles must
		// not stay off the node because the drain went sideways.
		if resumeErr := coord.ResumeIfClustered(ctx); resumeErr != nil {
			util.Errorf("resume after failed drain: %v", resumeErr)
		}
		return nil, err
	}

	machine := NewMachine(r.Platform, r.Request, r.Settle)
	for _, w := range batch {
		out := machine.Run(ctx, w.snap, w.newName)
		report.Outcomes = append(report.Outcomes, out)
		r.record(func() error { return r.Journal.RecordOutcome(r.Host, out) })

		entry := util.WithSwitch(w.snap.SwitchName)
		switch out.Status {
		case StatusFailed:
			entry.Errorf("%s", out.Summary())
		case StatusPartial:
			entry.Warnf("%s", out.Summary())
		default:
			entry.Infof("%s", out.Summary())
		}
	}

	if err := coord.ResumeIfClustered(ctx); err != nil {
		util.Errorf("%v", err)
		report.ResumeError = err.Error()
	}
	return report, nil
}

func (r *Runner) record(fn func() error) {
	if r.Journal == nil {
		return
	}
	if err := fn(); err != nil {
		util.Warnf("journal: %v", err)
	}
}

// selectSwitches filters the host's switches by the request's selectors.
// An empty selection matches every switch.
func selectSwitches(switches []hyperv.Switch, req *Request) []hyperv.Switch {
	if len(req.SwitchNames) == 0 && len(req.SwitchIDs) == 0 {
		return switches
	}
	want := make(map[string]bool)
	byID := len(req.SwitchIDs) > 0
	if byID {
		for _, id := range req.SwitchIDs {
			want[id] = true
		}
	} else {
		for _, name := range req.SwitchNames {
			want[name] = true
		}
	}
	var out []hyperv.Switch
	for _, sw := range switches {
		key := sw.Name
		if byID {
			key = sw.ID
		}
		if want[key] {
			out = append(out, sw)
		}
	}
	return out
}
