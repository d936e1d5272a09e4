package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/jepsonlabs/immich-monitor/pkg/models"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent metric snapshots",
	Long:  `Retrieve the most recent persisted metric snapshots, newest first.`,
	RunE:  runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVar(&historyLimit, "limit", 24, "Maximum number of snapshots to fetch")
}

type historyResponse struct {
	Snapshots []models.Snapshot `json:"snapshots"`
	Count     int               `json:"count"`
}

func runHistory(cmd *cobra.Command, args []string) error {
	var resp historyResponse
	if err := fetchJSON(fmt.Sprintf("/history?limit=%d", historyLimit), &resp); err != nil {
		return err
	}

	if IsJSONOutput() {
		return printJSON(resp)
	}

	if resp.Count == 0 {
		fmt.Println("No snapshots recorded yet")
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Captured", "Assets", "Uploads 24h", "CF Requests 24h", "Threats", "Active")

	for _, snap := range resp.Snapshots {
		assets, uploads, active := "-", "-", "-"
		if im := snap.Metrics.Immich; im != nil && im.Error == "" {
			assets = fmt.Sprintf("%d", im.TotalAssets)
			uploads = fmt.Sprintf("%d", im.Uploads.Last24h)
			active = fmt.Sprintf("%v", im.Health.IsActive)
		}

		requests, threats := "-", "-"
		if cf := snap.Metrics.Cloudflare; cf != nil && cf.Error == "" {
			requests = fmt.Sprintf("%d", cf.Requests24h.Total)
			threats = fmt.Sprintf("%d", cf.Security.ThreatsBlocked)
		}

		table.Append(
			snap.CapturedAt.Format(time.RFC3339),
			assets,
			uploads,
			requests,
			threats,
			active,
		)
	}

	table.Render()
	fmt.Printf("\nTotal snapshots: %d\n", resp.Count)
	return nil
}
