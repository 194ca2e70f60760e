package migrate

import (
	"context"
	"errors"
	"testing"

	"github.com/lattisimo/posher-v/internal/testutil"
	"github.com/lattisimo/posher-v/pkg/hyperv"
)

func TestReplayFullConfiguration(t *testing.T) {
	f := testutil.NewFakePlatform()
	f.NewAdapterProps = []hyperv.AdvancedProperty{
		{Name: "*JumboPacket", Value: "1514", DefaultValue: "1514"},
	}
	created, err := f.AddManagementAdapter(context.Background(), "NewSwitch", "Management", "00155D010200")
	if err != nil {
		t.Fatalf("AddManagementAdapter: %v", err)
	}

	snap := &AdapterSnapshot{
		Name: "Management",
		IPAddresses: []hyperv.IPAddress{
			{Address: "10.0.10.21", PrefixLength: 24},
			{Address: "10.0.10.121", PrefixLength: 24, SkipAsSource: true},
		},
		Routes: []hyperv.Route{{DestinationPrefix: "0.0.0.0/0", NextHop: "10.0.10.1", Metric: 256}},
		DNS: hyperv.DNSConfig{
			Domain:                 "corp.example.net",
			Servers:                []string{"10.0.10.53"},
			WINSServers:            []string{"10.0.10.60"},
			RegisterThisConnection: true,
			NetBIOSOption:          2,
		},
		AdvancedProperties: []hyperv.AdvancedProperty{
			{Name: "*JumboPacket", Value: "9014", DefaultValue: "1514"},
		},
	}

	res := NewReplayer(f).Replay(context.Background(), snap, created)
	if res.Failed != 0 {
		t.Fatalf("Failed = %d, want 0; calls: %v", res.Failed, f.MutatingCalls())
	}
	// 2 IPs + registration + 1 route + domain + servers + WINS + NetBIOS +
	// 1 advanced property.
	if res.Replayed != 9 {
		t.Errorf("Replayed = %d, want 9", res.Replayed)
	}

	if got := f.AddedIPs[created.InterfaceIndex]; len(got) != 2 || !got[1].SkipAsSource {
		t.Errorf("replayed addresses = %+v, want both with SkipAsSource preserved", got)
	}
	if got := f.AddedRoutes[created.InterfaceIndex]; len(got) != 1 || got[0].NextHop != "10.0.10.1" {
		t.Errorf("replayed routes = %+v", got)
	}
	if got := f.SetProps["Management"]["*JumboPacket"]; got != "9014" {
		t.Errorf("*JumboPacket = %q, want 9014", got)
	}
}

func TestReplayMinimalConfiguration(t *testing.T) {
	f := testutil.NewFakePlatform()
	created, err := f.AddManagementAdapter(context.Background(), "NewSwitch", "Bare", "00155D010299")
	if err != nil {
		t.Fatalf("AddManagementAdapter: %v", err)
	}
	pre := len(f.MutatingCalls())

	res := NewReplayer(f).Replay(context.Background(), &AdapterSnapshot{Name: "Bare"}, created)
	if res.Failed != 0 {
		t.Fatalf("Failed = %d, want 0", res.Failed)
	}
	// Only the unconditional DNS registration flags are written for an
	// adapter with no addresses, routes, or DNS settings.
	calls := f.MutatingCalls()[pre:]
	if len(calls) != 1 || calls[0][:18] != "SetDNSRegistration" {
		t.Errorf("calls = %v, want only SetDNSRegistration", calls)
	}
}

func TestReplayCountsTransportErrors(t *testing.T) {
	f := testutil.NewFakePlatform()
	created, _ := f.AddManagementAdapter(context.Background(), "NewSwitch", "Management", "00155D010200")
	f.FailOn["AddIPAddress"] = errors.New("address in use")

	snap := &AdapterSnapshot{
		Name: "Management",
		IPAddresses: []hyperv.IPAddress{
			{Address: "10.0.10.21", PrefixLength: 24},
			{Address: "10.0.10.22", PrefixLength: 24},
		},
	}
	res := NewReplayer(f).Replay(context.Background(), snap, created)
	if res.Failed != 2 {
		t.Errorf("Failed = %d, want 2 (one per address)", res.Failed)
	}
	if res.Replayed != 1 {
		t.Errorf("Replayed = %d, want 1 (registration flags)", res.Replayed)
	}
}

func TestReplayCountsNonZeroStatus(t *testing.T) {
	f := testutil.NewFakePlatform()
	created, _ := f.AddManagementAdapter(context.Background(), "NewSwitch", "Management", "00155D010200")
	f.StatusOn["SetDNSDomain"] = 91 // WMI: access denied

	snap := &AdapterSnapshot{
		Name: "Management",
		DNS:  hyperv.DNSConfig{Domain: "corp.example.net"},
	}
	res := NewReplayer(f).Replay(context.Background(), snap, created)
	if res.Failed != 1 {
		t.Errorf("Failed = %d, want 1: non-zero platform status counts as a failure", res.Failed)
	}
}

func TestReplaySkipsPropertiesNewDriverLacks(t *testing.T) {
	f := testutil.NewFakePlatform()
	f.NewAdapterProps = []hyperv.AdvancedProperty{
		{Name: "*RSS", Value: "1", DefaultValue: "1"},
	}
	created, _ := f.AddManagementAdapter(context.Background(), "NewSwitch", "Management", "00155D010200")

	snap := &AdapterSnapshot{
		Name: "Management",
		AdvancedProperties: []hyperv.AdvancedProperty{
			{Name: "*VendorMagic", Value: "7", DefaultValue: "0"},
		},
	}
	res := NewReplayer(f).Replay(context.Background(), snap, created)
	// The new driver does not expose the keyword: dropped, not failed.
	if res.Failed != 0 {
		t.Errorf("Failed = %d, want 0", res.Failed)
	}
	if len(f.SetProps["Management"]) != 0 {
		t.Errorf("properties written: %v, want none", f.SetProps["Management"])
	}
}

func TestReplayPropertyEnumerationFailure(t *testing.T) {
	f := testutil.NewFakePlatform()
	created, _ := f.AddManagementAdapter(context.Background(), "NewSwitch", "Management", "00155D010200")
	f.FailOn["AdapterAdvancedProperties"] = errors.New("cim timeout")

	snap := &AdapterSnapshot{
		Name: "Management",
		AdvancedProperties: []hyperv.AdvancedProperty{
			{Name: "*JumboPacket", Value: "9014", DefaultValue: "1514"},
			{Name: "*LsoV2IPv4", Value: "0", DefaultValue: "1"},
		},
	}
	res := NewReplayer(f).Replay(context.Background(), snap, created)
	if res.Failed != 2 {
		t.Errorf("Failed = %d, want 2: unverifiable properties count as failed", res.Failed)
	}
}
