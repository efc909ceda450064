package cmd

import (
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show today's focused time and the latest session",
	RunE: func(cmd *cobra.Command, args []string) error {
		now := time.Now()
		tr, err := todayTracker(now)
		if err != nil {
			return err
		}

		latest := tr.LatestHighlights(now, 1)
		if len(latest) == 0 {
			cmd.Println("no sessions recorded today")
			return nil
		}

		s := latest[0]
		cmd.Printf("Focused today: %s\n", tr.TotalFocusedTime(now).Round(time.Second))
		cmd.Printf("Sessions: %d\n", len(tr.Today()))
		cmd.Printf("Latest: %s\n", describe(s))
		cmd.Printf("Duration: %s\n", s.Duration(now).Round(time.Second))
		if s.EndDate != nil {
			cmd.Printf("Ended: %s\n", humanize.RelTime(*s.EndDate, now, "ago", "from now"))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
