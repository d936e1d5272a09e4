package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/jepsonlabs/immich-monitor/pkg/models"
)

var immichCmd = &cobra.Command{
	Use:   "immich",
	Short: "Show Immich library metrics",
	Long:  `Retrieve upload activity, user counts and library health from the monitor daemon.`,
	RunE:  runImmich,
}

func init() {
	rootCmd.AddCommand(immichCmd)
}

func runImmich(cmd *cobra.Command, args []string) error {
	var m models.ImmichMetrics
	if err := fetchJSON("/immich", &m); err != nil {
		return err
	}

	if IsJSONOutput() {
		return printJSON(m)
	}

	if m.Error != "" {
		fmt.Printf("Collection failed: %s\n", m.Error)
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Metric", "Value")

	table.Append("Total Assets", fmt.Sprintf("%d", m.TotalAssets))
	table.Append("Uploads (1h)", fmt.Sprintf("%d", m.Uploads.Last1h))
	table.Append("Uploads (24h)", fmt.Sprintf("%d", m.Uploads.Last24h))
	table.Append("Uploads (7d)", fmt.Sprintf("%d", m.Uploads.Last7d))
	table.Append("Uploads (30d)", fmt.Sprintf("%d", m.Uploads.Last30d))
	table.Append("Upload Rate", fmt.Sprintf("%.1f/hour", m.Uploads.RatePerHour))
	table.Append("Users", fmt.Sprintf("%d (%d admin)", m.Users.Total, m.Users.Admins))
	table.Append("Active Users (24h)", fmt.Sprintf("%d", m.Users.Active24h))

	if m.LastUpload.Timestamp != nil {
		table.Append("Last Upload", m.LastUpload.Timestamp.Format(time.RFC3339))
		if m.LastUpload.MinutesAgo != nil {
			table.Append("Minutes Since Upload", fmt.Sprintf("%d", *m.LastUpload.MinutesAgo))
		}
	} else {
		table.Append("Last Upload", "never")
	}

	activity := "inactive"
	if m.Health.IsActive {
		activity = "active"
	}
	table.Append("Library Activity", activity)

	table.Render()
	return nil
}
