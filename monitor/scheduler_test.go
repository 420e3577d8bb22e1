package monitor_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fwojciec/sitewatch"
	"github.com/fwojciec/sitewatch/mock"
	"github.com/fwojciec/sitewatch/monitor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memSites is an in-memory site list that records updates.
type memSites struct {
	mu      sync.Mutex
	sites   []*sitewatch.Site
	updates map[string]int
}

func newMemSites(sites ...*sitewatch.Site) *memSites {
	return &memSites{sites: sites, updates: make(map[string]int)}
}

func (m *memSites) service() *mock.SiteService {
	return &mock.SiteService{
		FindSitesFn: func(_ context.Context, filter sitewatch.SiteFilter) ([]*sitewatch.Site, error) {
			m.mu.Lock()
			defer m.mu.Unlock()
			var out []*sitewatch.Site
			for _, s := range m.sites {
				if filter.Match(s) {
					cp := *s
					out = append(out, &cp)
				}
			}
			return out, nil
		},
		UpdateSiteFn: func(_ context.Context, id string, upd sitewatch.SiteUpdate) (*sitewatch.Site, error) {
			m.mu.Lock()
			defer m.mu.Unlock()
			for _, s := range m.sites {
				if s.ID == id {
					upd.Apply(s)
					m.updates[id]++
					cp := *s
					return &cp, nil
				}
			}
			return nil, sitewatch.Errorf(sitewatch.ENOTFOUND, "site not found")
		},
	}
}

// edit changes a stored site the way another process would.
func (m *memSites) edit(id string, fn func(*sitewatch.Site)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sites {
		if s.ID == id {
			fn(s)
		}
	}
}

func (m *memSites) remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, s := range m.sites {
		if s.ID == id {
			m.sites = append(m.sites[:i], m.sites[i+1:]...)
			return
		}
	}
}

// blockingFetcher holds each fetch until release is closed.
func blockingFetcher(body string, started chan<- struct{}, release <-chan struct{}) *mock.Fetcher {
	return &mock.Fetcher{
		FetchFn: func(_ context.Context, _ string) (string, error) {
			started <- struct{}{}
			<-release
			return body, nil
		},
		CloseFn: func() error { return nil },
	}
}

func (m *memSites) get(id string) sitewatch.Site {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sites {
		if s.ID == id {
			return *s
		}
	}
	return sitewatch.Site{}
}

func (m *memSites) updateCount(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updates[id]
}

func TestScheduler_Tick(t *testing.T) {
	t.Parallel()

	t.Run("a failing site does not stop the others", func(t *testing.T) {
		t.Parallel()

		siteA := newSite("https://a.example.com")
		siteB := newSite("https://b.example.com")
		sites := newMemSites(siteA, siteB)

		src := &staticFetcher{}
		src.set(siteA.URL, "Alpha line")
		src.fail(siteB.URL, errors.New("no such host"))

		s := &monitor.Scheduler{
			Sites: sites.service(),
			Checker: &monitor.Checker{
				Fetcher:   src.fetcher(),
				Extractor: passthrough(),
				Snapshots: newMemSnapshots().store(),
			},
			Concurrency: 2,
		}

		events, err := s.Tick(context.Background())

		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, siteA.ID, events[0].SiteID)
		assert.Equal(t, sitewatch.EventUnchanged, events[0].Type)
		assert.Equal(t, siteB.ID, events[1].SiteID)
		assert.Equal(t, sitewatch.EventError, events[1].Type)
		assert.Equal(t, sitewatch.ENETWORK, events[1].Code)

		assert.NotEmpty(t, sites.get(siteA.ID).LastHash)
		assert.Equal(t, 1, sites.updateCount(siteA.ID))
		assert.Equal(t, 0, sites.updateCount(siteB.ID))
	})

	t.Run("a change on one site is reported while another fails", func(t *testing.T) {
		t.Parallel()

		siteA := newSite("https://a.example.com")
		siteB := newSite("https://b.example.com")
		sites := newMemSites(siteA, siteB)

		src := &staticFetcher{}
		src.set(siteA.URL, "Alpha line")
		src.set(siteB.URL, "Beta line")

		s := &monitor.Scheduler{
			Sites: sites.service(),
			Checker: &monitor.Checker{
				Fetcher:   src.fetcher(),
				Extractor: passthrough(),
				Snapshots: newMemSnapshots().store(),
			},
		}
		_, err := s.Tick(context.Background())
		require.NoError(t, err)

		src.set(siteA.URL, "Alpha line\nNew paragraph")
		src.fail(siteB.URL, errors.New("timeout"))
		events, err := s.Tick(context.Background())

		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, sitewatch.EventChanged, events[0].Type)
		assert.Equal(t, "Added:\n+ New paragraph\n", events[0].Diff)
		assert.Equal(t, sitewatch.EventError, events[1].Type)
	})

	t.Run("skips disabled sites", func(t *testing.T) {
		t.Parallel()

		enabled := newSite("https://a.example.com")
		disabled := newSite("https://b.example.com")
		disabled.Enabled = false
		sites := newMemSites(enabled, disabled)

		src := &staticFetcher{}
		src.set(enabled.URL, "Alpha line")

		s := &monitor.Scheduler{
			Sites: sites.service(),
			Checker: &monitor.Checker{
				Fetcher:   src.fetcher(),
				Extractor: passthrough(),
				Snapshots: newMemSnapshots().store(),
			},
		}

		events, err := s.Tick(context.Background())

		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, enabled.ID, events[0].SiteID)
	})

	t.Run("records, notifies and publishes a change", func(t *testing.T) {
		t.Parallel()

		site := newSite("https://a.example.com")
		site.Name = "Site A"
		sites := newMemSites(site)

		src := &staticFetcher{}
		src.set(site.URL, "Alpha line")

		var mu sync.Mutex
		var changes []*sitewatch.Change
		var messages []string
		queue := monitor.NewEventQueue(10)

		s := &monitor.Scheduler{
			Sites: sites.service(),
			Checker: &monitor.Checker{
				Fetcher:   src.fetcher(),
				Extractor: passthrough(),
				Snapshots: newMemSnapshots().store(),
				Now:       func() time.Time { return fixedNow },
			},
			Changes: &mock.ChangeService{
				CreateChangeFn: func(_ context.Context, c *sitewatch.Change) error {
					mu.Lock()
					defer mu.Unlock()
					changes = append(changes, c)
					return nil
				},
			},
			Notifier: &mock.Notifier{
				SendFn: func(_ context.Context, text string) error {
					mu.Lock()
					defer mu.Unlock()
					messages = append(messages, text)
					return nil
				},
			},
			Events: queue,
		}

		_, err := s.Tick(context.Background())
		require.NoError(t, err)
		src.set(site.URL, "Beta line")
		_, err = s.Tick(context.Background())
		require.NoError(t, err)

		mu.Lock()
		defer mu.Unlock()
		require.Len(t, changes, 1)
		assert.Equal(t, site.ID, changes[0].SiteID)
		assert.Equal(t, site.URL, changes[0].URL)
		assert.Equal(t, fixedNow, changes[0].DetectedAt)
		assert.Contains(t, changes[0].Diff, "+ Beta line")

		require.Len(t, messages, 1)
		assert.Contains(t, messages[0], "Site: Site A")
		assert.Contains(t, messages[0], "Time: 2024-03-01 12:00:00 UTC")

		first := <-queue.Events()
		second := <-queue.Events()
		assert.Equal(t, sitewatch.EventUnchanged, first.Type)
		assert.Equal(t, sitewatch.EventChanged, second.Type)

		stored := sites.get(site.ID)
		assert.Equal(t, fixedNow, stored.LastChange)
		assert.Equal(t, sitewatch.ContentHash("Beta line"), stored.LastHash)
	})

	t.Run("keeps a rename and disable made during the check", func(t *testing.T) {
		t.Parallel()

		site := newSite("https://a.example.com")
		site.Name = "a"
		sites := newMemSites(site)
		started := make(chan struct{}, 1)
		release := make(chan struct{})

		s := &monitor.Scheduler{
			Sites: sites.service(),
			Checker: &monitor.Checker{
				Fetcher:   blockingFetcher("Alpha line", started, release),
				Extractor: passthrough(),
				Snapshots: newMemSnapshots().store(),
			},
		}

		done := make(chan struct{})
		go func() {
			defer close(done)
			_, _ = s.Tick(context.Background())
		}()

		<-started
		sites.edit(site.ID, func(stored *sitewatch.Site) {
			stored.Name = "renamed"
			stored.Enabled = false
		})
		close(release)
		<-done

		stored := sites.get(site.ID)
		assert.Equal(t, "renamed", stored.Name)
		assert.False(t, stored.Enabled)
		assert.Equal(t, sitewatch.ContentHash("Alpha line"), stored.LastHash)
	})

	t.Run("discards the snapshot of a site removed during the check", func(t *testing.T) {
		t.Parallel()

		site := newSite("https://a.example.com")
		sites := newMemSites(site)
		snaps := newMemSnapshots()
		started := make(chan struct{}, 1)
		release := make(chan struct{})
		var recorded bool

		s := &monitor.Scheduler{
			Sites: sites.service(),
			Checker: &monitor.Checker{
				Fetcher:   blockingFetcher("Alpha line", started, release),
				Extractor: passthrough(),
				Snapshots: snaps.store(),
			},
			Changes: &mock.ChangeService{
				CreateChangeFn: func(context.Context, *sitewatch.Change) error {
					recorded = true
					return nil
				},
			},
		}

		done := make(chan struct{})
		go func() {
			defer close(done)
			_, _ = s.Tick(context.Background())
		}()

		<-started
		sites.remove(site.ID)
		close(release)
		<-done

		assert.Empty(t, snaps.get(site.ID))
		assert.Equal(t, 1, snaps.writeCount())
		assert.False(t, recorded)
	})

	t.Run("notifies a change detected while shutting down", func(t *testing.T) {
		t.Parallel()

		site := newSite("https://a.example.com")
		site.LastHash = sitewatch.ContentHash("Alpha line")
		sites := newMemSites(site)
		snaps := newMemSnapshots()
		require.NoError(t, snaps.store().SaveSnapshot(context.Background(), site.ID, "Alpha line"))

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		var sent bool
		var sendErr error
		s := &monitor.Scheduler{
			Sites: sites.service(),
			Checker: &monitor.Checker{
				Fetcher: &mock.Fetcher{
					FetchFn: func(context.Context, string) (string, error) {
						cancel()
						return "Beta line", nil
					},
					CloseFn: func() error { return nil },
				},
				Extractor: passthrough(),
				Snapshots: snaps.store(),
			},
			Notifier: &mock.Notifier{
				SendFn: func(ctx context.Context, _ string) error {
					sent = true
					sendErr = ctx.Err()
					return nil
				},
			},
		}

		events, err := s.Tick(ctx)

		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, sitewatch.EventChanged, events[0].Type)
		assert.True(t, sent)
		assert.NoError(t, sendErr)
	})

	t.Run("notification failure does not roll back state", func(t *testing.T) {
		t.Parallel()

		site := newSite("https://a.example.com")
		sites := newMemSites(site)

		src := &staticFetcher{}
		src.set(site.URL, "Alpha line")

		var sends int
		s := &monitor.Scheduler{
			Sites: sites.service(),
			Checker: &monitor.Checker{
				Fetcher:   src.fetcher(),
				Extractor: passthrough(),
				Snapshots: newMemSnapshots().store(),
			},
			Notifier: &mock.Notifier{
				SendFn: func(_ context.Context, _ string) error {
					sends++
					return sitewatch.Errorf(sitewatch.ENOTIFY, "telegram unavailable")
				},
			},
		}

		_, err := s.Tick(context.Background())
		require.NoError(t, err)
		src.set(site.URL, "Beta line")
		events, err := s.Tick(context.Background())
		require.NoError(t, err)
		_, err = s.Tick(context.Background())
		require.NoError(t, err)

		require.Len(t, events, 1)
		assert.Equal(t, sitewatch.EventChanged, events[0].Type)
		assert.Equal(t, sitewatch.ContentHash("Beta line"), sites.get(site.ID).LastHash)
		assert.Equal(t, 1, sends)
	})

	t.Run("recovers a panicking check", func(t *testing.T) {
		t.Parallel()

		siteA := newSite("https://a.example.com")
		siteB := newSite("https://b.example.com")
		sites := newMemSites(siteA, siteB)

		s := &monitor.Scheduler{
			Sites: sites.service(),
			Checker: &monitor.Checker{
				Fetcher: &mock.Fetcher{
					FetchFn: func(_ context.Context, url string) (string, error) {
						if url == siteA.URL {
							panic("boom")
						}
						return "Beta line", nil
					},
				},
				Extractor: passthrough(),
				Snapshots: newMemSnapshots().store(),
			},
		}

		events, err := s.Tick(context.Background())

		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, sitewatch.EventError, events[0].Type)
		assert.Equal(t, sitewatch.EINTERNAL, events[0].Code)
		assert.Contains(t, events[0].Message, "boom")
		assert.Equal(t, sitewatch.EventUnchanged, events[1].Type)
	})

	t.Run("returns error when sites cannot be loaded", func(t *testing.T) {
		t.Parallel()

		s := &monitor.Scheduler{
			Sites: &mock.SiteService{
				FindSitesFn: func(_ context.Context, _ sitewatch.SiteFilter) ([]*sitewatch.Site, error) {
					return nil, errors.New("database locked")
				},
			},
			Checker: &monitor.Checker{},
		}

		_, err := s.Tick(context.Background())

		assert.EqualError(t, err, "database locked")
	})

	t.Run("checks at most Concurrency sites at once", func(t *testing.T) {
		t.Parallel()

		var list []*sitewatch.Site
		for _, host := range []string{"a", "b", "c", "d", "e", "f"} {
			list = append(list, newSite("https://"+host+".example.com"))
		}
		sites := newMemSites(list...)

		var mu sync.Mutex
		var active, peak int
		s := &monitor.Scheduler{
			Sites: sites.service(),
			Checker: &monitor.Checker{
				Fetcher: &mock.Fetcher{
					FetchFn: func(_ context.Context, _ string) (string, error) {
						mu.Lock()
						active++
						peak = max(peak, active)
						mu.Unlock()

						time.Sleep(5 * time.Millisecond)

						mu.Lock()
						active--
						mu.Unlock()
						return "Alpha line", nil
					},
				},
				Extractor: passthrough(),
				Snapshots: newMemSnapshots().store(),
			},
			Concurrency: 2,
		}

		events, err := s.Tick(context.Background())

		require.NoError(t, err)
		assert.Len(t, events, 6)
		assert.LessOrEqual(t, peak, 2)
	})
}

func TestScheduler_Run(t *testing.T) {
	t.Parallel()

	t.Run("ticks immediately and stops on cancellation", func(t *testing.T) {
		t.Parallel()

		site := newSite("https://a.example.com")
		sites := newMemSites(site)
		fetched := make(chan struct{}, 10)

		s := &monitor.Scheduler{
			Sites: sites.service(),
			Checker: &monitor.Checker{
				Fetcher: &mock.Fetcher{
					FetchFn: func(_ context.Context, _ string) (string, error) {
						fetched <- struct{}{}
						return "Alpha line", nil
					},
				},
				Extractor: passthrough(),
				Snapshots: newMemSnapshots().store(),
			},
			Interval: time.Hour,
		}
		assert.Equal(t, monitor.StateRunning, s.State())

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- s.Run(ctx) }()

		select {
		case <-fetched:
		case <-time.After(5 * time.Second):
			t.Fatal("first tick did not run")
		}
		cancel()

		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("scheduler did not stop")
		}
		assert.Equal(t, monitor.StateStopped, s.State())
	})

	t.Run("ticks again after the interval", func(t *testing.T) {
		t.Parallel()

		site := newSite("https://a.example.com")
		sites := newMemSites(site)
		fetched := make(chan struct{}, 100)

		s := &monitor.Scheduler{
			Sites: sites.service(),
			Checker: &monitor.Checker{
				Fetcher: &mock.Fetcher{
					FetchFn: func(_ context.Context, _ string) (string, error) {
						fetched <- struct{}{}
						return "Alpha line", nil
					},
				},
				Extractor: passthrough(),
				Snapshots: newMemSnapshots().store(),
			},
			Interval: 10 * time.Millisecond,
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		done := make(chan error, 1)
		go func() { done <- s.Run(ctx) }()

		for i := 0; i < 3; i++ {
			select {
			case <-fetched:
			case <-time.After(5 * time.Second):
				t.Fatalf("tick %d did not run", i+1)
			}
		}
		cancel()
		require.NoError(t, <-done)
	})

	t.Run("does not report errors caused by shutdown", func(t *testing.T) {
		t.Parallel()

		site := newSite("https://a.example.com")
		sites := newMemSites(site)
		started := make(chan struct{})
		queue := monitor.NewEventQueue(10)

		s := &monitor.Scheduler{
			Sites: sites.service(),
			Checker: &monitor.Checker{
				Fetcher: &mock.Fetcher{
					FetchFn: func(ctx context.Context, _ string) (string, error) {
						close(started)
						<-ctx.Done()
						return "", ctx.Err()
					},
				},
				Extractor: passthrough(),
				Snapshots: newMemSnapshots().store(),
			},
			Events:   queue,
			Interval: time.Hour,
		}

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- s.Run(ctx) }()

		<-started
		cancel()
		require.NoError(t, <-done)

		queue.Close()
		var events []sitewatch.Event
		for ev := range queue.Events() {
			events = append(events, ev)
		}
		assert.Empty(t, events)
		assert.Equal(t, 0, sites.updateCount(site.ID))
	})
}
