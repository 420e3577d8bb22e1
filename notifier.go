package sitewatch

import (
	"context"
	"strings"
	"time"
)

// maxMessageDiffLines caps how much of a diff goes into a notification.
const maxMessageDiffLines = 20

// Notifier delivers a text message to the user.
type Notifier interface {
	// Send delivers text. Delivery failures return ENOTIFY.
	Send(ctx context.Context, text string) error
}

// FormatChangeMessage formats the notification body for a detected change.
// Only the first 20 lines of diff are included; longer diffs end with a
// truncation marker.
func FormatChangeMessage(site *Site, diff string, at time.Time) string {
	lines := splitLines(diff)
	truncated := len(lines) > maxMessageDiffLines

	var b strings.Builder
	b.WriteString("Change detected!\n\n")
	b.WriteString("Site: " + site.Name + "\n")
	b.WriteString("URL: " + site.URL + "\n")
	b.WriteString("Time: " + at.UTC().Format("2006-01-02 15:04:05") + " UTC\n\n")
	b.WriteString("Changes:\n")
	b.WriteString(strings.Join(head(lines, maxMessageDiffLines), "\n"))
	if truncated {
		b.WriteString("\n\n... (truncated)")
	}
	return b.String()
}
