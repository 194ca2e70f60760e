package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lattisimo/posher-v/pkg/cli"
	"github.com/lattisimo/posher-v/pkg/migrate"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the host's virtual switches with migration eligibility",
	Long: `List every virtual switch on the host and classify it:

  eligible  external switch backed by an untagged LBFO team
  skipped   not a migration candidate (with the reason)
  failed    eligibility inspection failed

Read-only: no host state is modified.

Examples:
  poshv -H hv-03 list
  poshv -H hv-03 list --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
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

		type row struct {
			Name        string `json:"name"`
			ID          string `json:"id"`
			Type        string `json:"type"`
			Team        string `json:"team,omitempty"`
			Eligibility string `json:"eligibility"`
			Reason      string `json:"reason,omitempty"`
		}
		var rows []row
		for _, sw := range switches {
			e := migrate.CheckEligibility(ctx, platform, sw)
			r := row{
				Name:        sw.Name,
				ID:          sw.ID,
				Type:        sw.Type.String(),
				Eligibility: e.State.String(),
				Reason:      e.Reason,
			}
			if e.Team != nil {
				r.Team = fmt.Sprintf("%s (%s)", e.Team.Name, strings.Join(e.Team.Members, ","))
			}
			rows = append(rows, r)
		}

		if jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(rows)
		}

		if len(rows) == 0 {
			fmt.Println("No virtual switches on host")
			return nil
		}

		t := cli.NewTable("SWITCH", "TYPE", "TEAM", "ELIGIBILITY", "REASON")
		for _, r := range rows {
			t.Row(r.Name, r.Type, r.Team, formatEligibility(r.Eligibility), r.Reason)
		}
		t.Flush()
		return nil
	},
}

func formatEligibility(state string) string {
	switch state {
	case "eligible":
		return green(state)
	case "failed":
		return red(state)
	default:
		return yellow(state)
	}
}
