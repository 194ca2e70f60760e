// Package journal records migration runs durably: every captured switch
// snapshot is written before its teardown begins (the migration has no
// rollback, so the snapshot is the only record of the pre-migration host),
// and every terminal outcome is written after. Stores are append-only.
package journal

import (
	"time"

	"github.com/google/uuid"

	"github.com/lattisimo/posher-v/pkg/migrate"
)

// Kind distinguishes record types within one run.
type Kind string

const (
	// KindSnapshot is a pre-teardown switch snapshot.
	KindSnapshot Kind = "snapshot"
	// KindOutcome is a per-switch terminal outcome.
	KindOutcome Kind = "outcome"
)

// Record is one journal entry.
type Record struct {
	RunID     string                  `json:"run_id"`
	Timestamp time.Time               `json:"timestamp"`
	Host      string                  `json:"host"`
	Kind      Kind                    `json:"kind"`
	Switch    string                  `json:"switch"`
	Snapshot  *migrate.SwitchSnapshot `json:"snapshot,omitempty"`
	Outcome   *migrate.Outcome        `json:"outcome,omitempty"`
}

// Filter selects records when querying a store.
type Filter struct {
	RunID  string
	Host   string
	Switch string
	Kind   Kind
	Limit  int
}

// Store is a journal backend.
type Store interface {
	Append(rec Record) error
	Query(filter Filter) ([]Record, error)
	Close() error
}

// Journal stamps records with a run id and writes them to a store. It
// implements migrate.Recorder.
type Journal struct {
	store Store
	runID string
}

// New creates a journal for one run.
func New(store Store) *Journal {
	return &Journal{store: store, runID: uuid.NewString()}
}

// RunID returns this run's identifier.
func (j *Journal) RunID() string {
	return j.runID
}

// RecordSnapshot implements migrate.Recorder.
func (j *Journal) RecordSnapshot(host string, snap *migrate.SwitchSnapshot) error {
	return j.store.Append(Record{
		RunID:     j.runID,
		Timestamp: time.Now(),
		Host:      host,
		Kind:      KindSnapshot,
		Switch:    snap.SwitchName,
		Snapshot:  snap,
	})
}

// RecordOutcome implements migrate.Recorder.
func (j *Journal) RecordOutcome(host string, out migrate.Outcome) error {
	return j.store.Append(Record{
		RunID:     j.runID,
		Timestamp: time.Now(),
		Host:      host,
		Kind:      KindOutcome,
		Switch:    out.SwitchName,
		Outcome:   &out,
	})
}

// Close closes the underlying store.
func (j *Journal) Close() error {
	return j.store.Close()
}

func matches(rec *Record, f Filter) bool {
	if f.RunID != "" && rec.RunID != f.RunID {
		return false
	}
	if f.Host != "" && rec.Host != f.Host {
		return false
	}
	if f.Switch != "" && rec.Switch != f.Switch {
		return false
	}
	if f.Kind != "" && rec.Kind != f.Kind {
		return false
	}
	return true
}
