package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/focustrail/internal/aggregate"
	"github.com/fakeyudi/focustrail/internal/evaluator"
	"github.com/fakeyudi/focustrail/internal/session"
)

var summarizeSince time.Duration

var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Summarize the sessions logged in a recent window",
	RunE: func(cmd *cobra.Command, args []string) error {
		if summarizeSince <= 0 {
			return fmt.Errorf("--since must be positive, got %s", summarizeSince)
		}
		store, err := openStore(nil)
		if err != nil {
			return err
		}
		defer store.Close()

		all, err := store.ReadAll()
		if err != nil {
			return err
		}
		now := time.Now()
		start := now.Add(-summarizeSince)
		record := aggregate.NewFocusRecord(start, summarizeSince, "")
		for _, s := range session.FilterSince(all, start) {
			record.Add(&s)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Last %s: %d sessions\n\n", summarizeSince, len(record.Sessions))
		if len(record.Sessions) == 0 {
			return nil
		}

		b := aggregate.Analyze(record, now, aggregate.DefaultTopicLimit)
		fmt.Fprintln(out, "## Applications")
		for _, a := range b.Apps {
			fmt.Fprintf(out, "  %-24s %10s  %5.1f%%\n", a.AppName, a.Total.Round(time.Second), a.Share*100)
		}
		fmt.Fprintln(out)

		fmt.Fprintln(out, "## Topics")
		for _, tp := range b.Topics {
			title := tp.WindowTitle
			if title == "" {
				title = "(untitled)"
			}
			fmt.Fprintf(out, "  [%s] %s  %s (%.1f%%)\n", tp.AppName, title, tp.Total.Round(time.Second), tp.Share*100)
		}
		fmt.Fprintln(out)

		ev := evaluator.New(newGenerator(), logger)
		fmt.Fprintln(out, "## Summary")
		fmt.Fprintf(out, "  %s\n", ev.Summary(cmd.Context(), record, now))
		return nil
	},
}

func init() {
	summarizeCmd.Flags().DurationVar(&summarizeSince, "since", time.Hour, "window to summarize, counted back from now")
	rootCmd.AddCommand(summarizeCmd)
}
