package monitor

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/fwojciec/sitewatch"
	"golang.org/x/sync/errgroup"
)

// Scheduler defaults.
const (
	DefaultInterval    = 180 * time.Second
	DefaultConcurrency = 4
)

// State is the lifecycle state of a Scheduler.
type State int32

const (
	// StateRunning is the state of a Scheduler from construction until Run
	// returns.
	StateRunning State = iota
	// StateStopped is terminal; it is reached only through cancellation.
	StateStopped
)

func (s State) String() string {
	if s == StateStopped {
		return "stopped"
	}
	return "running"
}

// Scheduler drives the Checker across all enabled sites on a fixed interval.
type Scheduler struct {
	Sites   sitewatch.SiteService
	Checker *Checker

	// Notifier receives a message for every detected change. Optional.
	Notifier sitewatch.Notifier

	// Changes records every detected change. Optional.
	Changes sitewatch.ChangeService

	// Events receives every check outcome. Optional.
	Events *EventQueue

	Interval    time.Duration
	Concurrency int
	Logger      *slog.Logger

	state atomic.Int32
}

// State returns the current lifecycle state.
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// Run ticks immediately and then once per Interval until ctx is cancelled.
// Each tick completes before the next one starts, so a site is never checked
// twice concurrently. Ticks missed while a tick is running are coalesced.
func (s *Scheduler) Run(ctx context.Context) error {
	defer s.state.Store(int32(StateStopped))

	interval := s.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger().Info("scheduler started", "interval", interval)
	for ctx.Err() == nil {
		if _, err := s.Tick(ctx); err != nil && ctx.Err() == nil {
			s.logger().Error("tick failed", "err", err)
		}

		select {
		case <-ctx.Done():
		case <-ticker.C:
		}
	}
	s.logger().Info("scheduler stopped")
	return nil
}

// Tick checks every enabled site once and returns the resulting events in
// site order. A failing site produces an error event and never prevents the
// other sites from being checked. Sites not started before ctx is cancelled
// are skipped.
func (s *Scheduler) Tick(ctx context.Context) ([]sitewatch.Event, error) {
	enabled := true
	sites, err := s.Sites.FindSites(ctx, sitewatch.SiteFilter{Enabled: &enabled})
	if err != nil {
		return nil, err
	}

	concurrency := s.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	results := make([]*sitewatch.Event, len(sites))

	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, site := range sites {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			ev := s.checkSite(ctx, site)
			// Failures caused by shutdown are not reported.
			if ev.Type == sitewatch.EventError && ctx.Err() != nil {
				return nil
			}
			results[i] = &ev
			if s.Events != nil {
				s.Events.Publish(ev)
			}
			return nil
		})
	}
	_ = g.Wait()

	events := make([]sitewatch.Event, 0, len(results))
	for _, ev := range results {
		if ev != nil {
			events = append(events, *ev)
		}
	}
	return events, nil
}

// checkSite runs the checker for one site, persists its monitoring state and
// forwards a detected change. A site removed during the check has its new
// snapshot discarded and its change dropped. Panics are converted to error
// events.
func (s *Scheduler) checkSite(ctx context.Context, site *sitewatch.Site) (ev sitewatch.Event) {
	defer func() {
		if r := recover(); r != nil {
			ev = sitewatch.ErrorEvent(site.ID, sitewatch.Errorf(sitewatch.EINTERNAL, "panic while checking %s: %v", site.URL, r), s.Checker.now())
		}
	}()

	before := *site
	ev = s.Checker.Check(ctx, site)

	// A finished check is persisted even when shutdown is underway.
	wctx := context.WithoutCancel(ctx)

	// Only the monitoring state is written back; name, selector and enabled
	// may have been edited while the check ran.
	if *site != before {
		stored, err := s.Sites.UpdateSite(wctx, site.ID, sitewatch.StateUpdate(site))
		switch {
		case sitewatch.ErrorCode(err) == sitewatch.ENOTFOUND:
			s.logger().Info("site removed during check", "site", site.ID)
			if err := s.Checker.Snapshots.DeleteSnapshot(wctx, site.ID); err != nil {
				s.logger().Error("delete snapshot", "site", site.ID, "err", err)
			}
			return ev
		case err != nil:
			s.logger().Error("persist site", "site", site.ID, "err", err)
		default:
			site = stored
		}
	}

	switch ev.Type {
	case sitewatch.EventChanged:
		s.logger().Info("change detected", "site", site.ID, "url", site.URL)
		s.recordChange(wctx, site, ev)
		s.notify(wctx, site, ev)
	case sitewatch.EventError:
		if ctx.Err() == nil {
			s.logger().Warn("check failed", "site", site.ID, "url", site.URL, "code", ev.Code, "err", ev.Message)
		}
	}
	return ev
}

func (s *Scheduler) recordChange(ctx context.Context, site *sitewatch.Site, ev sitewatch.Event) {
	if s.Changes == nil {
		return
	}
	change := &sitewatch.Change{
		SiteID:     site.ID,
		URL:        site.URL,
		Diff:       ev.Diff,
		DetectedAt: ev.At,
	}
	if err := s.Changes.CreateChange(ctx, change); err != nil {
		s.logger().Error("record change", "site", site.ID, "err", err)
	}
}

// notify sends the change message once. Failures are logged and not retried.
// ctx is not cancelled by shutdown; the transport timeout bounds the send.
func (s *Scheduler) notify(ctx context.Context, site *sitewatch.Site, ev sitewatch.Event) {
	if s.Notifier == nil {
		return
	}
	msg := sitewatch.FormatChangeMessage(site, ev.Diff, ev.At)
	if err := s.Notifier.Send(ctx, msg); err != nil {
		s.logger().Error("notification failed", "site", site.ID, "code", sitewatch.ErrorCode(err), "err", err)
	}
}

func (s *Scheduler) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
