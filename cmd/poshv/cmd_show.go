package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lattisimo/posher-v/pkg/migrate"
	"github.com/lattisimo/posher-v/pkg/util"
)

var showCmd = &cobra.Command{
	Use:   "show <switch-name>",
	Short: "Capture and display a switch's migration snapshot",
	Long: `Show the full snapshot poshv would capture for a switch before
migrating it: team membership, bandwidth policy, and every management
adapter's IP, DNS, VLAN, and non-default advanced-property state.

Read-only: no host state is modified.

Examples:
  poshv -H hv-03 show ConvergedSwitch
  poshv -H hv-03 show ConvergedSwitch --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		switchName := args[0]

		ctx := context.Background()
		session, platform, _, err := connect()
		if err != nil {
			return err
		}
		defer session.Close()

		switches, err := platform.Switches(ctx)
		if err != nil {
			return err
		}
		var snap *migrate.SwitchSnapshot
		for _, sw := range switches {
			if sw.Name != switchName {
				continue
			}
			e := migrate.CheckEligibility(ctx, platform, sw)
			if e.State != migrate.Eligible {
				return fmt.Errorf("switch %q is not migratable: %s", switchName, e.Reason)
			}
			snap, err = migrate.CaptureSwitch(ctx, platform, sw, e.Team)
			if err != nil {
				return err
			}
			break
		}
		if snap == nil {
			return fmt.Errorf("switch %q: %w", switchName, util.ErrNotFound)
		}

		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(snap)
		}

		printSnapshot(snap)
		return nil
	},
}

func printSnapshot(snap *migrate.SwitchSnapshot) {
	fmt.Printf("Switch: %s\n", bold(snap.SwitchName))
	fmt.Printf("Bandwidth Mode: %s", snap.BandwidthMode)
	if snap.DefaultFlowMinimumBandwidth > 0 {
		fmt.Printf(" (default flow %d)", snap.DefaultFlowMinimumBandwidth)
	}
	fmt.Println()
	fmt.Printf("LBFO Team: %s [%s] algorithm %s\n", snap.TeamName, strings.Join(snap.TeamMembers, ", "), snap.Algorithm)
	fmt.Printf("SET algorithm after migration: %s\n", migrate.MapAlgorithm(snap.Algorithm))

	if len(snap.Adapters) == 0 {
		fmt.Println("Management adapters: (none)")
		return
	}
	for i := range snap.Adapters {
		a := &snap.Adapters[i]
		fmt.Printf("\nAdapter: %s (%s)\n", bold(a.Name), a.MACAddress)
		if a.VLANID != 0 {
			fmt.Printf("  VLAN: %d\n", a.VLANID)
		}
		if a.MinimumBandwidthWeight > 0 {
			fmt.Printf("  Min bandwidth weight: %d\n", a.MinimumBandwidthWeight)
		}
		if a.MinimumBandwidthAbsolute > 0 {
			fmt.Printf("  Min bandwidth: %d bps\n", a.MinimumBandwidthAbsolute)
		}
		if a.MaximumBandwidth > 0 {
			fmt.Printf("  Max bandwidth: %d bps\n", a.MaximumBandwidth)
		}
		for _, ip := range a.IPAddresses {
			suffix := ""
			if ip.SkipAsSource {
				suffix = " (skip-as-source)"
			}
			fmt.Printf("  IP: %s/%d%s\n", ip.Address, ip.PrefixLength, suffix)
		}
		for _, rt := range a.Routes {
			fmt.Printf("  Route: %s via %s metric %d\n", rt.DestinationPrefix, rt.NextHop, rt.Metric)
		}
		if a.DNS.Domain != "" {
			fmt.Printf("  DNS domain: %s\n", a.DNS.Domain)
		}
		if len(a.DNS.Servers) > 0 {
			fmt.Printf("  DNS servers: %s\n", strings.Join(a.DNS.Servers, ", "))
		}
		if len(a.DNS.WINSServers) > 0 {
			fmt.Printf("  WINS servers: %s\n", strings.Join(a.DNS.WINSServers, ", "))
		}
		for _, p := range a.AdvancedProperties {
			fmt.Printf("  Advanced: %s = %s (default %s)\n", p.Name, p.Value, p.DefaultValue)
		}
	}
}
