package cmd

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/jepsonlabs/immich-monitor/pkg/models"
)

var cloudflareCmd = &cobra.Command{
	Use:   "cloudflare",
	Short: "Show CloudFlare zone metrics",
	Long:  `Retrieve 24-hour request, bandwidth and threat metrics for the monitored CloudFlare zone.`,
	RunE:  runCloudflare,
}

func init() {
	rootCmd.AddCommand(cloudflareCmd)
}

func runCloudflare(cmd *cobra.Command, args []string) error {
	var m models.CloudflareMetrics
	if err := fetchJSON("/cloudflare", &m); err != nil {
		return err
	}

	if IsJSONOutput() {
		return printJSON(m)
	}

	if m.Error != "" {
		fmt.Printf("Collection failed: %s\n", m.Error)
		if !m.Configured {
			fmt.Println("Set CF_ZONE_ID and CF_API_KEY on the daemon to enable CloudFlare metrics")
		}
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Metric", "Value")

	table.Append("Zone", m.Zone.Name)
	table.Append("Zone Status", m.Zone.Status)
	table.Append("Plan", m.Zone.Plan)
	table.Append("Requests (24h)", fmt.Sprintf("%d", m.Requests24h.Total))
	table.Append("Cached Requests", fmt.Sprintf("%d", m.Requests24h.Cached))
	table.Append("Cache Hit Ratio", fmt.Sprintf("%.2f%%", m.Requests24h.CacheHitRatio))
	table.Append("Bandwidth (24h)", fmt.Sprintf("%.2f GB", m.Bandwidth.TotalGB))
	table.Append("Threats Blocked", fmt.Sprintf("%d", m.Security.ThreatsBlocked))

	table.Render()

	if m.Note != "" {
		fmt.Printf("\nNote: %s\n", m.Note)
	}
	return nil
}
