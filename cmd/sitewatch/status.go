package main

import (
	"fmt"

	"github.com/fwojciec/sitewatch"
)

// Run executes the status command.
func (c *StatusCmd) Run(deps *Dependencies) error {
	sites, err := deps.Sites.FindSites(deps.Ctx, sitewatch.SiteFilter{})
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", sitewatch.ErrorMessage(err))
		return err
	}
	enabled := 0
	for _, site := range sites {
		if site.Enabled {
			enabled++
		}
	}

	cfg := deps.Config
	fmt.Fprintln(deps.Stdout, "sitewatch status")
	fmt.Fprintf(deps.Stdout, "Telegram token:   %s\n", setOrNot(cfg.HasToken))
	fmt.Fprintf(deps.Stdout, "Telegram chat ID: %s\n", setOrNot(cfg.HasChatID))
	fmt.Fprintf(deps.Stdout, "Check interval:   %s\n", cfg.Interval)
	fmt.Fprintf(deps.Stdout, "Concurrency:      %d\n", cfg.Concurrency)
	fmt.Fprintf(deps.Stdout, "Watched sites:    %d (%d enabled)\n", len(sites), enabled)
	fmt.Fprintf(deps.Stdout, "Store:            %s (%s)\n", cfg.Store, cfg.Location)
	fmt.Fprintf(deps.Stdout, "Data dir:         %s\n", cfg.DataDir)
	return nil
}

func setOrNot(ok bool) string {
	if ok {
		return "✓ set"
	}
	return "✗ not set"
}
