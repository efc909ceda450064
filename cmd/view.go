package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/focustrail/internal/report"
	"github.com/fakeyudi/focustrail/internal/tui"
)

var plainOutput bool

var viewCmd = &cobra.Command{
	Use:   "view <file>",
	Short: "View a focus report file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]

		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return fmt.Errorf("file not found: %s", path)
			}
			return err
		}

		r, err := report.ParserFor(path).Parse(data)
		if err != nil {
			return err
		}

		if plainOutput {
			printReport(cmd.OutOrStdout(), r)
			return nil
		}
		return tui.Run(r, path)
	},
}

// printReport writes a plain-text rendition of r to w.
func printReport(w io.Writer, r *report.FocusReport) {
	b := r.Block
	fmt.Fprintln(w, "## Summary")
	if b.Goal != "" {
		fmt.Fprintf(w, "  Goal:      %s\n", b.Goal)
	}
	fmt.Fprintf(w, "  Started:   %s\n", b.StartTime.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(w, "  Ended:     %s\n", b.EndTime.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(w, "  Duration:  %s (target %s)\n", b.Duration, b.Target)
	if b.Author != "" {
		fmt.Fprintf(w, "  Author:    %s\n", b.Author)
	}
	if r.Summary != "" {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "  %s\n", r.Summary)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "## Applications")
	if len(r.Apps) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for _, a := range r.Apps {
		fmt.Fprintf(w, "  %-24s %10s  %5.1f%%\n", a.AppName, a.Total.Round(time.Second), a.Share*100)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "## Topics")
	if len(r.Topics) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for _, tp := range r.Topics {
		fmt.Fprintf(w, "  [%s] %s  %s\n", tp.AppName, untitled(tp.WindowTitle), tp.Total.Round(time.Second))
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "## Alerts")
	if len(r.Alerts) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for _, a := range r.Alerts {
		fmt.Fprintf(w, "  [%s] (%s) %s %s\n", a.At.Format("15:04:05"), a.Kind, a.AppName, a.WindowTitle)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "## Sessions")
	if len(r.Sessions) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for _, s := range r.Sessions {
		fmt.Fprintf(w, "  %s  %9s  %s\n", s.StartDate.Format("15:04:05"), s.Duration(b.EndTime).Round(time.Second), describe(s))
	}
	fmt.Fprintln(w)
}

func untitled(title string) string {
	if title == "" {
		return "(untitled)"
	}
	return title
}

func init() {
	viewCmd.Flags().BoolVar(&plainOutput, "plain", false, "plain text output instead of TUI")
	rootCmd.AddCommand(viewCmd)
}
