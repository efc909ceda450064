package report

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

const (
	versionSentinel = "<!-- focustrail-report-version: 1 -->"
	dataPrefix      = "<!-- focustrail-data: "
	dataSuffix      = " -->"
)

// Renderer serializes a FocusReport to bytes.
type Renderer interface {
	Render(report *FocusReport) ([]byte, error)
}

// RendererFor returns the renderer and file extension for format
// ("markdown" or "json").
func RendererFor(format string) (Renderer, string, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "markdown", "md":
		return &MarkdownRenderer{}, ".md", nil
	case "json":
		return &JSONRenderer{}, ".json", nil
	default:
		return nil, "", fmt.Errorf("unknown report format %q (want markdown or json)", format)
	}
}

// JSONRenderer renders a FocusReport as indented JSON.
type JSONRenderer struct{}

func (r *JSONRenderer) Render(report *FocusReport) ([]byte, error) {
	return json.MarshalIndent(report, "", "  ")
}

// MarkdownRenderer renders a FocusReport as human-readable Markdown with
// an embedded base64 JSON payload for lossless round-trip parsing.
type MarkdownRenderer struct{}

func (r *MarkdownRenderer) Render(report *FocusReport) ([]byte, error) {
	jsonBytes, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}
	encoded := base64.StdEncoding.EncodeToString(jsonBytes)

	var sb strings.Builder

	// Sentinel and embedded payload.
	sb.WriteString(versionSentinel + "\n")
	fmt.Fprintf(&sb, "%s%s%s\n\n", dataPrefix, encoded, dataSuffix)

	fmt.Fprintf(&sb, "# Focus block — %s\n\n", report.Block.EndTime.Format("2006-01-02 15:04 MST"))

	// ## Summary
	sb.WriteString("## Summary\n\n")
	if report.Block.Goal != "" {
		fmt.Fprintf(&sb, "- Goal: %s\n", report.Block.Goal)
	}
	fmt.Fprintf(&sb, "- Duration: %s (target %s)\n", report.Block.Duration, report.Block.Target)
	fmt.Fprintf(&sb, "- Sessions: %d\n", len(report.Sessions))
	if report.Block.Author != "" {
		fmt.Fprintf(&sb, "- Author: %s\n", report.Block.Author)
	}
	if report.Summary != "" {
		fmt.Fprintf(&sb, "\n%s\n", report.Summary)
	}
	sb.WriteString("\n")

	// ## Applications
	sb.WriteString("## Applications\n\n")
	if len(report.Apps) == 0 {
		sb.WriteString("_No activity recorded._\n")
	} else {
		sb.WriteString("| Application | Time | Share |\n")
		sb.WriteString("|-------------|------|-------|\n")
		for _, a := range report.Apps {
			fmt.Fprintf(&sb, "| %s | %s | %s%% |\n",
				cell(a.AppName), a.Total.Round(time.Second), humanize.FtoaWithDigits(a.Share*100, 1))
		}
	}
	sb.WriteString("\n")

	// ## Topics
	sb.WriteString("## Topics\n\n")
	if len(report.Topics) == 0 {
		sb.WriteString("_No topics recorded._\n")
	} else {
		for _, tp := range report.Topics {
			fmt.Fprintf(&sb, "- **%s** — %s", tp.AppName, orUntitled(tp.WindowTitle))
			if tp.URL != "" {
				fmt.Fprintf(&sb, " <%s>", tp.URL)
			}
			if tp.DocumentPath != "" {
				fmt.Fprintf(&sb, " `%s`", tp.DocumentPath)
			}
			fmt.Fprintf(&sb, " (%s, %s%%)\n", tp.Total.Round(time.Second), humanize.FtoaWithDigits(tp.Share*100, 1))
		}
	}
	sb.WriteString("\n")

	// ## Alerts
	sb.WriteString("## Alerts\n\n")
	if len(report.Alerts) == 0 {
		sb.WriteString("_No alerts._\n")
	} else {
		for _, a := range report.Alerts {
			fmt.Fprintf(&sb, "- [%s] %s: %s %s\n",
				a.At.Format("15:04:05"), a.Kind, a.AppName, orUntitled(a.WindowTitle))
		}
	}
	sb.WriteString("\n")

	// ## Sessions
	sb.WriteString("## Sessions\n\n")
	if len(report.Sessions) == 0 {
		sb.WriteString("_No sessions recorded._\n")
	} else {
		sb.WriteString("| Start | Duration | Application | Window |\n")
		sb.WriteString("|-------|----------|-------------|--------|\n")
		for i := range report.Sessions {
			s := &report.Sessions[i]
			title := ""
			if c, ok := s.LatestContext(); ok {
				title = c.WindowTitle
			}
			fmt.Fprintf(&sb, "| %s | %s | %s | %s |\n",
				s.StartDate.Format("15:04:05"),
				s.Duration(report.Block.EndTime).Round(time.Second),
				cell(s.AppName),
				cell(orUntitled(title)),
			)
		}
	}
	sb.WriteString("\n")

	return []byte(sb.String()), nil
}

// cell escapes text for a Markdown table cell.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.Join(strings.Fields(s), " ")
}

func orUntitled(title string) string {
	if strings.TrimSpace(title) == "" {
		return "(untitled)"
	}
	return title
}
