package main

import (
	"fmt"
	"strings"

	"github.com/fwojciec/sitewatch"
)

// Run executes the history command.
func (c *HistoryCmd) Run(deps *Dependencies) error {
	filter := sitewatch.ChangeFilter{Limit: c.Limit}
	if c.Site != "" {
		site, err := findSite(deps, c.Site)
		if err != nil {
			return err
		}
		filter.SiteID = &site.ID
	}

	changes, err := deps.Changes.FindChanges(deps.Ctx, filter)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", sitewatch.ErrorMessage(err))
		return err
	}

	if len(changes) == 0 {
		fmt.Fprintln(deps.Stdout, "No changes recorded.")
		return nil
	}

	for _, change := range changes {
		fmt.Fprintf(deps.Stdout, "%s  %s  %s\n", formatTimestamp(change.DetectedAt), change.SiteID, change.URL)
		if c.Full {
			for _, line := range strings.Split(strings.TrimRight(change.Diff, "\n"), "\n") {
				fmt.Fprintf(deps.Stdout, "    %s\n", line)
			}
		} else {
			fmt.Fprintf(deps.Stdout, "    %s\n", truncateRunes(change.Diff, 100))
		}
	}
	return nil
}
