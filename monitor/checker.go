// Package monitor runs site checks and schedules them on an interval.
package monitor

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/sitewatch"
)

// Checker performs a single check of a site: fetch, extract, filter, hash,
// compare against the stored snapshot and report the outcome as an event.
type Checker struct {
	Fetcher   sitewatch.Fetcher
	Extractor sitewatch.Extractor
	Snapshots sitewatch.SnapshotStore

	// RetryDelays are the backoff delays between fetch attempts.
	// Empty means a failed fetch is reported immediately.
	RetryDelays []time.Duration

	// Now returns the current time. Defaults to time.Now in UTC.
	Now func() time.Time

	// Logger receives retry messages. Defaults to slog.Default().
	Logger *slog.Logger
}

// Check runs one check of site and returns the resulting event.
//
// Check mutates site: LastChecked is set once content has been retrieved and
// hashed, and LastHash/LastChange advance only after the new snapshot has been
// saved. If the snapshot cannot be saved the hash is left unchanged so the
// next diff is still computed against the last persisted snapshot.
// Errors never escape Check; they are reported as EventError.
func (c *Checker) Check(ctx context.Context, site *sitewatch.Site) sitewatch.Event {
	body, err := fetchWithRetry(ctx, c.Fetcher, site.URL, c.RetryDelays, c.logger())
	if err != nil {
		return sitewatch.ErrorEvent(site.ID, withCode(err, sitewatch.ENETWORK), c.now())
	}

	extracted, err := c.Extractor.Extract(body, site.CSSSelector)
	if err != nil {
		return sitewatch.ErrorEvent(site.ID, withCode(err, sitewatch.EPARSE), c.now())
	}

	normalized := sitewatch.FilterNoise(extracted)
	hash := sitewatch.ContentHash(normalized)

	now := c.now()
	site.LastChecked = now

	// First observation is the baseline.
	if site.LastHash == "" {
		if err := c.Snapshots.SaveSnapshot(ctx, site.ID, normalized); err != nil {
			return sitewatch.ErrorEvent(site.ID, withCode(err, sitewatch.ESTORAGE), now)
		}
		site.LastHash = hash
		return sitewatch.UnchangedEvent(site.ID, now)
	}

	if hash == site.LastHash {
		return sitewatch.UnchangedEvent(site.ID, now)
	}

	// Load before overwrite so the diff is against the prior snapshot.
	old, err := c.Snapshots.FindSnapshot(ctx, site.ID)
	if err != nil {
		return sitewatch.ErrorEvent(site.ID, withCode(err, sitewatch.ESTORAGE), now)
	}
	report := sitewatch.ComputeDiff(old, normalized)

	if err := c.Snapshots.SaveSnapshot(ctx, site.ID, normalized); err != nil {
		return sitewatch.ErrorEvent(site.ID, withCode(err, sitewatch.ESTORAGE), now)
	}
	site.LastHash = hash
	site.LastChange = now

	return sitewatch.ChangedEvent(site.ID, report, now)
}

func (c *Checker) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now().UTC()
}

func (c *Checker) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// withCode returns err unchanged if it already carries an application error
// code, otherwise wraps it in an Error with the given code.
func withCode(err error, code string) error {
	if sitewatch.ErrorCode(err) != sitewatch.EINTERNAL {
		return err
	}
	return sitewatch.Errorf(code, "%v", err)
}
