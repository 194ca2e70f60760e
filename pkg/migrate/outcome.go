package migrate

import "fmt"

// Status is the terminal outcome of one switch's migration.
type Status string

const (
	// StatusSuccess: every step completed and every setting replayed.
	StatusSuccess Status = "success"
	// StatusPartial: the switch was rebuilt but some adapters or
	// properties failed to replay. Processed, not retried.
	StatusPartial Status = "partial"
	// StatusSkipped: the switch never entered the pipeline.
	StatusSkipped Status = "skipped"
	// StatusFailed: a fatal step aborted the switch, or (worst case)
	// switch creation failed after the legacy constructs were destroyed.
	StatusFailed Status = "failed"
)

// Outcome is the per-switch migration result.
type Outcome struct {
	SwitchName string `json:"switch_name"`
	NewName    string `json:"new_name,omitempty"`
	Status     Status `json:"status"`
	Reason     string `json:"reason,omitempty"`

	AdaptersReplayed   int `json:"adapters_replayed"`
	AdaptersFailed     int `json:"adapters_failed"`
	PropertiesReplayed int `json:"properties_replayed"`
	PropertiesFailed   int `json:"properties_failed"`

	GuestsReconnected int `json:"guests_reconnected"`
	GuestsFailed      int `json:"guests_failed"`
}

// Summary renders a one-line human-readable outcome.
func (o *Outcome) Summary() string {
	switch o.Status {
	case StatusSuccess:
		return fmt.Sprintf("%s: migrated (%d adapters, %d properties)", o.SwitchName, o.AdaptersReplayed, o.PropertiesReplayed)
	case StatusPartial:
		return fmt.Sprintf("%s: migrated with warnings (%d/%d adapters, %d/%d properties replayed)",
			o.SwitchName, o.AdaptersReplayed, o.AdaptersReplayed+o.AdaptersFailed,
			o.PropertiesReplayed, o.PropertiesReplayed+o.PropertiesFailed)
	case StatusSkipped:
		return fmt.Sprintf("%s: skipped: %s", o.SwitchName, o.Reason)
	default:
		return fmt.Sprintf("%s: FAILED: %s", o.SwitchName, o.Reason)
	}
}

// Report aggregates a run's outcomes.
type Report struct {
	Host string `json:"host,omitempty"`
	// EligibleCount is how many selected switches passed eligibility.
	// Zero with a populated Outcomes slice means everything matched the
	// selection but nothing was migratable.
	EligibleCount int       `json:"eligible_count"`
	Outcomes      []Outcome `json:"outcomes"`
	// ResumeError records a failed cluster resume; the resume is always
	// attempted but its failure must still reach the operator.
	ResumeError string `json:"resume_error,omitempty"`
}

// Counts returns the number of outcomes per terminal status.
func (r *Report) Counts() (succeeded, partial, skipped, failed int) {
	for _, o := range r.Outcomes {
		switch o.Status {
		case StatusSuccess:
			succeeded++
		case StatusPartial:
			partial++
		case StatusSkipped:
			skipped++
		case StatusFailed:
			failed++
		}
	}
	return
}

// AnyMigrated reports whether at least one switch was rebuilt.
func (r *Report) AnyMigrated() bool {
	for _, o := range r.Outcomes {
		if o.Status == StatusSuccess || o.Status == StatusPartial {
			return true
		}
	}
	return false
}
