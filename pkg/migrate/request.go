package migrate

import (
	"github.com/lattisimo/posher-v/pkg/hyperv"
)

// Request holds the per-run migration options. Precedence when resolving a
// setting: explicit override > snapshot-derived value > platform default,
// except that UseDefaults suppresses snapshot-derived values entirely.
type Request struct {
	// SwitchNames / SwitchIDs select target switches; mutually exclusive.
	// Empty selection means all switches on the host.
	SwitchNames []string
	SwitchIDs   []string

	// Renames, when non-empty, supplies new display names for the eligible
	// switches in selection order. Its length must equal the number of
	// eligible switches or the run aborts before any mutation.
	Renames []string

	// UseDefaults discards snapshot-derived teaming and bandwidth policy,
	// taking platform defaults instead. Network identity (addresses,
	// routes, VLANs, DNS, advanced properties) is still restored.
	UseDefaults bool

	// Algorithm, when set, overrides both the snapshot-derived and default
	// load-balancing algorithm.
	Algorithm *hyperv.SETAlgorithm

	// BandwidthMode, when set, overrides the snapshot's reservation mode.
	BandwidthMode *hyperv.BandwidthMode

	// Notes is free text stamped on the new switch.
	Notes string

	// Force skips the interactive confirmation.
	Force bool
}

// MapAlgorithm translates a legacy LBFO load-balancing algorithm to its SET
// counterpart. Dynamic maps to Dynamic; every other legacy algorithm maps to
// HyperVPort, because SET has no hash-based modes and a deliberate
// non-dynamic choice is assumed intentional.
func MapAlgorithm(legacy hyperv.TeamAlgorithm) hyperv.SETAlgorithm {
	if legacy == hyperv.TeamAlgorithmDynamic {
		return hyperv.SETAlgorithmDynamic
	}
	return hyperv.SETAlgorithmHyperVPort
}

// ResolveAlgorithm returns the load-balancing algorithm for the new switch
// and whether it was explicitly chosen (from the request or the snapshot, as
// opposed to falling back to the platform default). The rebuild only issues
// a set call for an explicit choice that differs from the platform default;
// switch creation already leaves the default in place.
func (r *Request) ResolveAlgorithm(snap *SwitchSnapshot) (alg hyperv.SETAlgorithm, explicit bool) {
	if r.Algorithm != nil {
		return *r.Algorithm, true
	}
	if !r.UseDefaults {
		return MapAlgorithm(snap.Algorithm), true
	}
	return hyperv.SETAlgorithmHyperVPort, false
}

// ResolveBandwidthMode returns the reservation mode for the new switch, or
// nil to take the platform default.
func (r *Request) ResolveBandwidthMode(snap *SwitchSnapshot) *hyperv.BandwidthMode {
	if r.BandwidthMode != nil {
		return r.BandwidthMode
	}
	if !r.UseDefaults {
		mode := snap.BandwidthMode
		return &mode
	}
	return nil
}

// ResolveName returns the display name for the rebuilt switch: the rename
// assigned to position idx when a rename list was given, else the original.
func (r *Request) ResolveName(snap *SwitchSnapshot, idx int) string {
	if idx < len(r.Renames) && r.Renames[idx] != "" {
		return r.Renames[idx]
	}
	return snap.SwitchName
}
