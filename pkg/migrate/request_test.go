package migrate

import (
	"testing"

	"github.com/lattisimo/posher-v/pkg/hyperv"
)

func TestMapAlgorithm(t *testing.T) {
	tests := []struct {
		legacy hyperv.TeamAlgorithm
		want   hyperv.SETAlgorithm
	}{
		{hyperv.TeamAlgorithmTransportPorts, hyperv.SETAlgorithmHyperVPort},
		{hyperv.TeamAlgorithmIPAddresses, hyperv.SETAlgorithmHyperVPort},
		{hyperv.TeamAlgorithmMACAddresses, hyperv.SETAlgorithmHyperVPort},
		{hyperv.TeamAlgorithmHyperVPort, hyperv.SETAlgorithmHyperVPort},
		{hyperv.TeamAlgorithmDynamic, hyperv.SETAlgorithmDynamic},
	}
	for _, tt := range tests {
		if got := MapAlgorithm(tt.legacy); got != tt.want {
			t.Errorf("MapAlgorithm(%s) = %s, want %s", tt.legacy, got, tt.want)
		}
	}
}

func TestResolveAlgorithmPrecedence(t *testing.T) {
	snap := &SwitchSnapshot{Algorithm: hyperv.TeamAlgorithmDynamic}
	override := hyperv.SETAlgorithmHyperVPort

	t.Run("explicit override wins", func(t *testing.T) {
		r := &Request{Algorithm: &override, UseDefaults: true}
		alg, explicit := r.ResolveAlgorithm(snap)
		if alg != hyperv.SETAlgorithmHyperVPort || !explicit {
			t.Errorf("got %s explicit=%v, want override HyperVPort explicit", alg, explicit)
		}
	})
	t.Run("snapshot value otherwise", func(t *testing.T) {
		r := &Request{}
		alg, explicit := r.ResolveAlgorithm(snap)
		if alg != hyperv.SETAlgorithmDynamic || !explicit {
			t.Errorf("got %s explicit=%v, want mapped Dynamic explicit", alg, explicit)
		}
	})
	t.Run("defaults suppress snapshot", func(t *testing.T) {
		r := &Request{UseDefaults: true}
		alg, explicit := r.ResolveAlgorithm(snap)
		if alg != hyperv.SETAlgorithmHyperVPort || explicit {
			t.Errorf("got %s explicit=%v, want platform default non-explicit", alg, explicit)
		}
	})
}

func TestResolveBandwidthMode(t *testing.T) {
	snap := &SwitchSnapshot{BandwidthMode: hyperv.BandwidthModeWeight}
	override := hyperv.BandwidthModeAbsolute

	t.Run("explicit override wins", func(t *testing.T) {
		r := &Request{BandwidthMode: &override, UseDefaults: true}
		if got := r.ResolveBandwidthMode(snap); got == nil || *got != hyperv.BandwidthModeAbsolute {
			t.Errorf("got %v, want absolute", got)
		}
	})
	t.Run("snapshot value otherwise", func(t *testing.T) {
		r := &Request{}
		if got := r.ResolveBandwidthMode(snap); got == nil || *got != hyperv.BandwidthModeWeight {
			t.Errorf("got %v, want weight", got)
		}
	})
	t.Run("defaults yield nil", func(t *testing.T) {
		r := &Request{UseDefaults: true}
		if got := r.ResolveBandwidthMode(snap); got != nil {
			t.Errorf("got %v, want nil for platform default", *got)
		}
	})
}

func TestResolveName(t *testing.T) {
	snap := &SwitchSnapshot{SwitchName: "Original"}
	tests := []struct {
		name    string
		renames []string
		idx     int
		want    string
	}{
		{"no renames", nil, 0, "Original"},
		{"rename at position", []string{"First", "Second"}, 1, "Second"},
		{"blank rename keeps original", []string{""}, 0, "Original"},
		{"index past rename list", []string{"First"}, 3, "Original"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Request{Renames: tt.renames}
			if got := r.ResolveName(snap, tt.idx); got != tt.want {
				t.Errorf("ResolveName = %q, want %q", got, tt.want)
			}
		})
	}
}
