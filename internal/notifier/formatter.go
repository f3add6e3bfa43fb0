package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"
)

// RunSummary is the subset of a run shown in chat messages.
type RunSummary struct {
	RunID      string
	Trigger    time.Time
	ReportDate string
	Status     string
	Attempts   int
	OutputPath string
	Error      string
}

// FormatRunFailure formats the alert sent when a report run fails.
func FormatRunFailure(run RunSummary, loc *time.Location) string {
	var b strings.Builder
	b.WriteString("⚠️ <b>PowerPosition report failed</b>\n\n")
	b.WriteString(fmt.Sprintf("Trigger: %s\n", run.Trigger.In(loc).Format("2006-01-02 15:04 MST")))
	b.WriteString(fmt.Sprintf("Report date: %s\n", run.ReportDate))
	b.WriteString(fmt.Sprintf("Attempts: %d\n", run.Attempts))
	b.WriteString(fmt.Sprintf("Run: <code>%s</code>\n", run.RunID))
	b.WriteString(fmt.Sprintf("\nError: %s", html.EscapeString(run.Error)))
	return b.String()
}

// FormatRecentRuns formats a run list, newest first, for the /runs command.
func FormatRecentRuns(runs []RunSummary, loc *time.Location) string {
	if len(runs) == 0 {
		return "No runs recorded yet."
	}
	var b strings.Builder
	b.WriteString("📋 <b>Recent runs</b>\n\n")
	for _, r := range runs {
		mark := "✅"
		if r.Status != "SUCCESS" {
			mark = "❌"
		}
		b.WriteString(fmt.Sprintf("%s %s | %s | attempts %d\n",
			mark, r.Trigger.In(loc).Format("2006-01-02 15:04"), r.ReportDate, r.Attempts))
	}
	return b.String()
}
