package job

import (
	"fmt"
	"strings"
	"time"

	"PowerPosition/internal/clock"
	"PowerPosition/internal/notifier"
	"PowerPosition/internal/recorder"
)

const recentRunsLimit = 10

// Commands answers chat commands about the report runs.
type Commands struct {
	Recorder recorder.Recorder
	Next     func(time.Time) time.Time
	Clock    clock.Clock
	Location *time.Location
}

// Handle implements notifier.CommandHandler.
func (c *Commands) Handle(command string) string {
	name, _, _ := strings.Cut(strings.TrimSpace(command), " ")
	// Group chats append the bot name, e.g. /runs@power_bot.
	name, _, _ = strings.Cut(name, "@")

	switch name {
	case "/runs":
		runs, err := c.Recorder.RecentRuns(recentRunsLimit)
		if err != nil {
			return fmt.Sprintf("Failed to load runs: %v", err)
		}
		summaries := make([]notifier.RunSummary, len(runs))
		for i, r := range runs {
			summaries[i] = Summary(r)
		}
		return notifier.FormatRecentRuns(summaries, c.Location)
	case "/next":
		next := c.Next(c.Clock.Now())
		if next.IsZero() {
			return "No future run is scheduled."
		}
		return "Next run: " + next.In(c.Location).Format("2006-01-02 15:04 MST")
	case "/help", "/start":
		return "Commands:\n/runs - recent report runs\n/next - next scheduled run"
	default:
		return ""
	}
}
