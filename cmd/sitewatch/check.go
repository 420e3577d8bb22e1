package main

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fwojciec/sitewatch"
	"github.com/fwojciec/sitewatch/monitor"
)

// Run executes the check command.
func (c *CheckCmd) Run(deps *Dependencies) error {
	s := newScheduler(deps)

	events, err := s.Tick(deps.Ctx)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", sitewatch.ErrorMessage(err))
		return err
	}

	if len(events) == 0 {
		fmt.Fprintln(deps.Stdout, "No enabled sites to check.")
		return nil
	}

	names, err := siteNames(deps)
	if err != nil {
		return err
	}
	for _, ev := range events {
		printEvent(deps.Stdout, names[ev.SiteID], ev)
	}
	return nil
}

// Run executes the run command.
func (c *RunCmd) Run(deps *Dependencies) error {
	queue := monitor.NewEventQueue(c.QueueSize)
	s := newScheduler(deps)
	s.Events = queue

	if !deps.Config.HasToken || !deps.Config.HasChatID {
		fmt.Fprintln(deps.Stderr, "warning: Telegram is not configured; changes will not be sent. Run 'sitewatch telegram-setup'.")
	}
	fmt.Fprintf(deps.Stdout, "Watching sites every %s. Press Ctrl+C to stop.\n", s.Interval)

	// Events keep draining after cancellation, so lookups outlive deps.Ctx.
	lookupCtx := context.WithoutCancel(deps.Ctx)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for ev := range queue.Events() {
			// Names may change while running; fall back to the ID.
			name := ev.SiteID
			if site, err := deps.Sites.FindSiteByID(lookupCtx, ev.SiteID); err == nil {
				name = site.Name
			}
			printEvent(deps.Stdout, name, ev)
		}
	}()

	err := s.Run(deps.Ctx)
	queue.Close()
	wg.Wait()

	if n := queue.Dropped(); n > 0 {
		deps.Logger.Warn("events dropped", "count", n)
	}
	fmt.Fprintln(deps.Stdout, "Stopped.")
	return err
}

func newScheduler(deps *Dependencies) *monitor.Scheduler {
	return &monitor.Scheduler{
		Sites:       deps.Sites,
		Checker:     deps.Checker,
		Notifier:    deps.Notifier,
		Changes:     deps.Changes,
		Interval:    deps.Config.Interval,
		Concurrency: deps.Config.Concurrency,
		Logger:      deps.Logger,
	}
}

func siteNames(deps *Dependencies) (map[string]string, error) {
	sites, err := deps.Sites.FindSites(deps.Ctx, sitewatch.SiteFilter{})
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", sitewatch.ErrorMessage(err))
		return nil, err
	}
	names := make(map[string]string, len(sites))
	for _, site := range sites {
		names[site.ID] = site.Name
	}
	return names, nil
}

func printEvent(w io.Writer, name string, ev sitewatch.Event) {
	if name == "" {
		name = ev.SiteID
	}
	switch ev.Type {
	case sitewatch.EventChanged:
		fmt.Fprintf(w, "Changed: %s - %s\n", name, truncateRunes(ev.Diff, 100))
	case sitewatch.EventUnchanged:
		fmt.Fprintf(w, "No change: %s\n", name)
	case sitewatch.EventError:
		fmt.Fprintf(w, "Error checking %s: %s\n", name, ev.Message)
	}
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "Never"
	}
	return t.UTC().Format("2006-01-02 15:04:05") + " UTC"
}
