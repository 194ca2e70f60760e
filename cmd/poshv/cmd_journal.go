package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/lattisimo/posher-v/pkg/cli"
	"github.com/lattisimo/posher-v/pkg/journal"
	"github.com/lattisimo/posher-v/pkg/migrate"
)

var (
	journalRun    string
	journalHost   string
	journalSwitch string
	journalKind   string
	journalLimit  int
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Show records from past migration runs",
	Long: `Show journaled migration records: the switch snapshots captured before
teardown and the per-switch outcomes written after.

Examples:
  poshv journal                          # recent records
  poshv journal --host hv-03 --kind outcome
  poshv journal --run 7f3c... --json     # full snapshots for one run`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openJournal()
		if err != nil {
			return fmt.Errorf("opening journal: %w", err)
		}
		defer store.Close()

		records, err := store.Query(journal.Filter{
			RunID:  journalRun,
			Host:   journalHost,
			Switch: journalSwitch,
			Kind:   journal.Kind(journalKind),
			Limit:  journalLimit,
		})
		if err != nil {
			return err
		}

		if jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(records)
		}

		if len(records) == 0 {
			fmt.Println("No journal records match.")
			return nil
		}

		t := cli.NewTable("TIME", "RUN", "HOST", "SWITCH", "KIND", "DETAIL")
		for _, rec := range records {
			t.Row(
				rec.Timestamp.Format(time.RFC3339),
				shortRunID(rec.RunID),
				rec.Host,
				rec.Switch,
				string(rec.Kind),
				recordDetail(&rec),
			)
		}
		t.Flush()
		return nil
	},
}

func init() {
	flags := journalCmd.Flags()
	flags.StringVar(&journalRun, "run", "", "Filter by run id")
	flags.StringVar(&journalHost, "host-filter", "", "Filter by host name")
	flags.StringVar(&journalSwitch, "switch", "", "Filter by switch name")
	flags.StringVar(&journalKind, "kind", "", "Filter by record kind (snapshot or outcome)")
	flags.IntVar(&journalLimit, "limit", 50, "Show at most this many records (0 = all)")
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func recordDetail(rec *journal.Record) string {
	switch {
	case rec.Snapshot != nil:
		return strconv.Itoa(len(rec.Snapshot.Adapters)) + " adapters, team " + rec.Snapshot.TeamName
	case rec.Outcome != nil:
		return formatOutcomeDetail(rec.Outcome)
	}
	return ""
}

func formatOutcomeDetail(o *migrate.Outcome) string {
	s := formatStatus(o.Status)
	if o.Reason != "" {
		s += ": " + o.Reason
	}
	return s
}
