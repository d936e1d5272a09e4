package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jepsonlabs/immich-monitor/pkg/models"
)

var watchInterval time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Continuously display combined metrics",
	Long: `Fetches the combined metrics document on an interval and redraws the
summary, in the manner of watch(1).

Example:
  immonctl watch
  immonctl watch --interval 10s`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 30*time.Second, "Refresh interval")
}

func runWatch(cmd *cobra.Command, args []string) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	ticker := time.NewTicker(watchInterval)
	defer ticker.Stop()

	if err := drawCombined(); err != nil {
		return err
	}

	for {
		select {
		case <-sigChan:
			return nil
		case <-ticker.C:
			if err := drawCombined(); err != nil {
				fmt.Fprintf(os.Stderr, "Refresh failed: %v\n", err)
			}
		}
	}
}

func drawCombined() error {
	var m models.CombinedMetrics
	if err := fetchJSON("/all", &m); err != nil {
		return err
	}

	// JSON mode streams one document per refresh instead of redrawing
	if IsJSONOutput() {
		return printJSON(m)
	}

	// Clear screen and move cursor home
	fmt.Print("\033[2J\033[H")

	fmt.Printf("immich-monitor @ %s  (refresh %s)\n\n", m.Timestamp.Format(time.RFC3339), watchInterval)

	if im := m.Immich; im != nil {
		if im.Error != "" {
			fmt.Printf("Immich:     ERROR: %s\n", im.Error)
		} else {
			state := "ACTIVE"
			if !im.Health.IsActive {
				state = "IDLE"
			}
			fmt.Printf("Immich:     %d assets, %d uploads/24h (%.1f/hour), %d users  [%s]\n",
				im.TotalAssets, im.Uploads.Last24h, im.Uploads.RatePerHour, im.Users.Total, state)
		}
	}

	if cf := m.Cloudflare; cf != nil {
		if cf.Error != "" {
			fmt.Printf("CloudFlare: ERROR: %s\n", cf.Error)
		} else {
			fmt.Printf("CloudFlare: %s [%s], %d requests/24h, %.2f GB, %d threats, %.2f%% cached\n",
				cf.Zone.Name, cf.Zone.Status, cf.Requests24h.Total,
				cf.Bandwidth.TotalGB, cf.Security.ThreatsBlocked, cf.Requests24h.CacheHitRatio)
		}
	}

	return nil
}
