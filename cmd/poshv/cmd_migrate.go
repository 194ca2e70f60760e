package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/lattisimo/posher-v/pkg/cli"
	"github.com/lattisimo/posher-v/pkg/hyperv"
	"github.com/lattisimo/posher-v/pkg/journal"
	"github.com/lattisimo/posher-v/pkg/migrate"
	"github.com/lattisimo/posher-v/pkg/util"
)

var (
	migrateSwitchNames []string
	migrateSwitchIDs   []string
	migrateRenames     []string
	migrateUseDefaults bool
	migrateAlgorithm   string
	migrateBandwidth   string
	migrateNotes       string
	migrateForce       bool
	migratePlanFile    string
	migrateSettle      time.Duration
	migrateDrainWait   time.Duration
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate LBFO-backed switches to switch-embedded teaming",
	Long: `Migrate the selected switches from legacy LBFO team uplinks to
switch-embedded teaming (SET).

Per switch: guest adapters are disconnected, management adapters and the
old switch and team are removed, a SET switch is created on the released
physical adapters, and every captured setting is replayed. Host and guest
connectivity through the switch is DOWN between teardown and rebuild.

THERE IS NO ROLLBACK. A failure after team removal leaves the uplink down
until the rebuild completes or the operator intervenes. Snapshots are
journaled before teardown.

When the host is a failover-cluster member, the node is drained first and
resumed afterwards regardless of per-switch outcomes.

Examples:
  poshv -H hv-03 migrate --switch-name ConvergedSwitch
  poshv -H hv-03 migrate --switch-name SwA --switch-name SwB --rename NewA --rename NewB
  poshv -H hv-03 migrate --plan plan.yaml --force
  poshv -H hv-03 migrate --switch-id c6ee1a50-... --use-defaults --algorithm Dynamic`,
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := buildRequest()
		if err != nil {
			return err
		}

		if !req.Force && !confirmMigration() {
			fmt.Println("Aborted.")
			return nil
		}

		session, platform, cluster, err := connect()
		if err != nil {
			return err
		}
		defer session.Close()

		store, err := openJournal()
		if err != nil {
			return fmt.Errorf("opening journal: %w", err)
		}
		jnl := journal.New(store)
		defer jnl.Close()

		runner := &migrate.Runner{
			Platform: platform,
			Cluster:  cluster,
			Request:  req,
			Host:     hostName,
			Poll:     migrate.PollPolicy{Interval: time.Second, Timeout: migrateDrainWait},
			Settle:   migrateSettle,
			Journal:  jnl,
		}

		util.Infof("migration run %s starting on %s", jnl.RunID(), hostName)
		report, err := runner.Run(context.Background())
		if err != nil {
			return err
		}

		printReport(report)

		// The deferred session and journal closes must still run, so the
		// code is handed to main instead of exiting here.
		if exitCode = exitCodeFor(report); exitCode != 0 {
			fmt.Println(yellow("No eligible switches to migrate."))
		}
		return nil
	},
}

// exitCodeFor distinguishes "matched but none eligible" (2) from a run
// whose per-switch failures are reported without changing the exit code.
func exitCodeFor(report *migrate.Report) int {
	if report.EligibleCount == 0 {
		return 2
	}
	return 0
}

func init() {
	flags := migrateCmd.Flags()
	flags.StringArrayVar(&migrateSwitchNames, "switch-name", nil, "Target switch by name (repeatable; exclusive with --switch-id)")
	flags.StringArrayVar(&migrateSwitchIDs, "switch-id", nil, "Target switch by id (repeatable; exclusive with --switch-name)")
	flags.StringArrayVar(&migrateRenames, "rename", nil, "New display name per eligible switch, in order (count must match)")
	flags.BoolVar(&migrateUseDefaults, "use-defaults", false, "Take platform defaults for teaming/bandwidth policy instead of snapshot values")
	flags.StringVar(&migrateAlgorithm, "algorithm", "", "Load-balancing algorithm override (HyperVPort or Dynamic)")
	flags.StringVar(&migrateBandwidth, "bandwidth-mode", "", "Bandwidth reservation mode override (default, weight, absolute, none)")
	flags.StringVar(&migrateNotes, "notes", "", "Free-text notes stamped on the new switch")
	flags.BoolVarP(&migrateForce, "force", "f", false, "Skip the confirmation prompt")
	flags.StringVar(&migratePlanFile, "plan", "", "YAML migration plan file")
	flags.DurationVar(&migrateSettle, "settle", migrate.DefaultSettleDelay, "Pause after each destructive platform operation")
	flags.DurationVar(&migrateDrainWait, "drain-timeout", migrate.DefaultPollPolicy.Timeout, "Give up if a cluster drain runs longer than this (0 = wait forever)")
}

// buildRequest merges the plan file (when given) with command-line flags;
// flags win over plan values.
func buildRequest() (*migrate.Request, error) {
	req := &migrate.Request{}
	if migratePlanFile != "" {
		plan, err := migrate.LoadPlan(migratePlanFile)
		if err != nil {
			return nil, err
		}
		req, err = plan.ToRequest()
		if err != nil {
			return nil, err
		}
		if plan.Host != "" && hostName == "" {
			hostName = plan.Host
		}
	}

	if len(migrateSwitchNames) > 0 {
		req.SwitchNames = migrateSwitchNames
	}
	if len(migrateSwitchIDs) > 0 {
		req.SwitchIDs = migrateSwitchIDs
	}
	if len(migrateRenames) > 0 {
		req.Renames = migrateRenames
	}
	if migrateUseDefaults {
		req.UseDefaults = true
	}
	if migrateNotes != "" {
		req.Notes = migrateNotes
	}
	req.Force = migrateForce

	if migrateAlgorithm != "" {
		alg, err := hyperv.ParseSETAlgorithm(migrateAlgorithm)
		if err != nil {
			return nil, err
		}
		req.Algorithm = &alg
	}
	if migrateBandwidth != "" {
		mode, err := hyperv.ParseBandwidthMode(migrateBandwidth)
		if err != nil {
			return nil, err
		}
		req.BandwidthMode = &mode
	}
	return req, nil
}

func confirmMigration() bool {
	fmt.Println(yellow("This migration tears down the selected switches and their LBFO teams."))
	fmt.Println(yellow("Network connectivity through each switch is down until its rebuild completes."))
	fmt.Println(yellow("There is no rollback."))
	fmt.Print("Continue? [y/N] ")

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func printReport(report *migrate.Report) {
	t := cli.NewTable("SWITCH", "STATUS", "ADAPTERS", "PROPERTIES", "GUESTS", "REASON")
	for _, o := range report.Outcomes {
		t.Row(
			o.SwitchName,
			formatStatus(o.Status),
			fmt.Sprintf("%d/%d", o.AdaptersReplayed, o.AdaptersReplayed+o.AdaptersFailed),
			fmt.Sprintf("%d/%d", o.PropertiesReplayed, o.PropertiesReplayed+o.PropertiesFailed),
			fmt.Sprintf("%d/%d", o.GuestsReconnected, o.GuestsReconnected+o.GuestsFailed),
			o.Reason,
		)
	}
	t.Flush()

	succeeded, partial, skipped, failedCount := report.Counts()
	fmt.Printf("\n%d migrated, %d partial, %d skipped, %d failed\n", succeeded, partial, skipped, failedCount)
	if report.ResumeError != "" {
		fmt.Println(red("cluster resume failed: " + report.ResumeError))
	}
}

func formatStatus(s migrate.Status) string {
	switch s {
	case migrate.StatusSuccess:
		return green(string(s))
	case migrate.StatusPartial:
		return yellow(string(s))
	case migrate.StatusFailed:
		return red(string(s))
	default:
		return string(s)
	}
}
