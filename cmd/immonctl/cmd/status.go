package cmd

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/jepsonlabs/immich-monitor/pkg/models"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show service health",
	Long:  `Retrieve the liveness status and the detailed probe report from the monitor daemon.`,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	var healthResp models.HealthResponse
	if err := fetchJSON("/health", &healthResp); err != nil {
		return err
	}

	var report map[string]interface{}
	if err := fetchJSON("/health/report", &report); err != nil {
		return err
	}

	if IsJSONOutput() {
		return printJSON(map[string]interface{}{
			"health": healthResp,
			"report": report,
		})
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Property", "Value")
	table.Append("Liveness", healthResp.Status)
	table.Append("Uptime", fmt.Sprintf("%ds", healthResp.UptimeSeconds))

	for _, key := range []string{
		"status", "status_duration", "in_grace_period",
		"consecutive_failures", "failure_budget",
		"total_failures", "total_probes", "last_error",
	} {
		if v, ok := report[key]; ok {
			table.Append(key, fmt.Sprintf("%v", v))
		}
	}

	table.Render()
	return nil
}
