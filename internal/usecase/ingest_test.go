package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"HackathonScanner/internal/adapter"
	"HackathonScanner/internal/dedup"
	"HackathonScanner/internal/domain"
	"HackathonScanner/internal/fetcher"
	"HackathonScanner/internal/normalize"
)

// memoryStore is an in-memory ports.EventStore for orchestrator tests.
type memoryStore struct {
	events  map[string]*domain.StoredEvent
	nextID  int
	failing bool
}

func newMemoryStore() *memoryStore {
	return &memoryStore{events: map[string]*domain.StoredEvent{}}
}

func (m *memoryStore) FindByCanonicalURL(_ context.Context, url string) (*domain.StoredEvent, error) {
	if m.failing {
		return nil, errors.New("store unavailable")
	}
	for _, stored := range m.events {
		if stored.WebsiteURL != "" && normalize.CanonicalURL(stored.WebsiteURL) == url {
			copied := *stored
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *memoryStore) FindUpcoming(_ context.Context, limit int) ([]domain.StoredEvent, error) {
	if m.failing {
		return nil, errors.New("store unavailable")
	}
	now := time.Now().UTC()
	var upcoming []domain.StoredEvent
	for _, stored := range m.events {
		if stored.EndsAt.After(now) {
			upcoming = append(upcoming, *stored)
		}
	}
	sort.Slice(upcoming, func(i, j int) bool { return upcoming[i].StartsAt.Before(upcoming[j].StartsAt) })
	if len(upcoming) > limit {
		upcoming = upcoming[:limit]
	}
	return upcoming, nil
}

func (m *memoryStore) Create(_ context.Context, event domain.Event) (domain.StoredEvent, error) {
	if m.failing {
		return domain.StoredEvent{}, errors.New("store unavailable")
	}
	m.nextID++
	stored := domain.StoredEvent{
		Event:     event,
		ID:        fmt.Sprintf("evt-%d", m.nextID),
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	m.events[stored.ID] = &stored
	return stored, nil
}

func (m *memoryStore) Update(_ context.Context, id string, event domain.Event) (*domain.StoredEvent, error) {
	if m.failing {
		return nil, errors.New("store unavailable")
	}
	stored, ok := m.events[id]
	if !ok {
		return nil, fmt.Errorf("event %s not found", id)
	}
	stored.Event = event
	stored.UpdatedAt = time.Now().UTC()
	copied := *stored
	return &copied, nil
}

// stubAdapter returns a fixed candidate batch and records whether
// Scrape was ever invoked.
type stubAdapter struct {
	source      domain.Source
	name        string
	baseURL     string
	paths       []string
	events      []domain.Event
	scrapeCalls int
}

func (s *stubAdapter) Source() domain.Source   { return s.source }
func (s *stubAdapter) Name() string            { return s.name }
func (s *stubAdapter) BaseURL() string         { return s.baseURL }
func (s *stubAdapter) RequiredPaths() []string { return s.paths }
func (s *stubAdapter) Scrape(context.Context) ([]domain.Event, error) {
	s.scrapeCalls++
	return s.events, nil
}

func robotsTestServer(t *testing.T, robots string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" && robots != "" {
			_, _ = w.Write([]byte(robots))
			return
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(server.Close)
	return server
}

func testFetcher() *fetcher.Fetcher {
	return fetcher.New(fetcher.Config{
		Timeout:     2 * time.Second,
		MaxRetries:  1,
		RetryDelay:  time.Millisecond,
		MinInterval: time.Millisecond,
	}, nil)
}

func upcomingWindow(daysFromNow int) (time.Time, time.Time) {
	start := time.Now().UTC().Truncate(24 * time.Hour).AddDate(0, 0, daysFromNow)
	return start, start.AddDate(0, 0, 2)
}

func candidate(title, url string, source domain.Source, start, end time.Time) domain.Event {
	return domain.Event{
		Title:      title,
		StartsAt:   start,
		EndsAt:     end,
		Location:   "Online",
		Online:     true,
		WebsiteURL: url,
		Source:     source,
	}
}

func TestRunOnceCreatesUpdatesAndCollapsesDuplicates(t *testing.T) {
	t.Parallel()

	server := robotsTestServer(t, "")
	store := newMemoryStore()
	start, end := upcomingWindow(10)

	// Pre-existing record matched by canonical URL.
	_, err := store.Create(context.Background(),
		candidate("Existing Hack", "https://www.example.com/existing/", domain.SourceDevpost, start, end))
	require.NoError(t, err)

	batch := []domain.Event{
		candidate("AI Hack 2024", "https://a.example.com/ai", domain.SourceDevpost, start, end),
		candidate("AI Hackathon 2024", "https://b.example.com/ai", domain.SourceDevpost, start, end),
		candidate("Existing Hack", "https://example.com/existing?utm_source=feed", domain.SourceDevpost, start, end),
		candidate("Quantum Jam", "https://example.com/quantum", domain.SourceDevpost, start.AddDate(0, 1, 0), end.AddDate(0, 1, 0)),
		candidate("Marine Robotics Week", "https://example.com/marine", domain.SourceDevpost, start.AddDate(0, 2, 0), end.AddDate(0, 2, 0)),
	}

	src := &stubAdapter{
		source:  domain.SourceDevpost,
		name:    "stub",
		baseURL: server.URL,
		paths:   []string{"/hackathons"},
		events:  batch,
	}
	registry := adapter.NewRegistry()
	registry.Register(src)

	orchestrator := NewOrchestrator(Deps{
		Registry: registry,
		Fetcher:  testFetcher(),
		Store:    store,
		Config:   Config{DedupThreshold: dedup.DefaultThreshold},
	})

	report, err := orchestrator.RunOnce(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Sources, 1)

	got := report.Sources[0]
	assert.Equal(t, 5, got.Found)
	assert.Equal(t, 5, got.Processed)
	// AI Hack, Quantum, Marine are fresh; the second AI candidate merges
	// into the first, and Existing Hack matches by canonical URL.
	assert.Equal(t, 3, got.Created)
	assert.Equal(t, 2, got.Updated)
	assert.Empty(t, got.Errors)
	assert.Len(t, store.events, 4)
}

func TestRunOnceIdempotent(t *testing.T) {
	t.Parallel()

	server := robotsTestServer(t, "")
	store := newMemoryStore()
	start, end := upcomingWindow(5)

	src := &stubAdapter{
		source:  domain.SourceMLH,
		name:    "stub",
		baseURL: server.URL,
		paths:   []string{"/events"},
		events: []domain.Event{
			candidate("Hack the North", "https://example.com/htn", domain.SourceMLH, start, end),
			candidate("Hack the Valley", "https://example.com/htv", domain.SourceMLH, start.AddDate(0, 0, 20), end.AddDate(0, 0, 20)),
		},
	}
	registry := adapter.NewRegistry()
	registry.Register(src)

	orchestrator := NewOrchestrator(Deps{Registry: registry, Fetcher: testFetcher(), Store: store})

	first, err := orchestrator.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, first.Sources[0].Created)

	second, err := orchestrator.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second.Sources[0].Created)
	assert.Equal(t, 2, second.Sources[0].Updated)
	assert.Len(t, store.events, 2)
}

func TestOverlappingTriggerIsSkipped(t *testing.T) {
	t.Parallel()

	orchestrator := NewOrchestrator(Deps{Registry: adapter.NewRegistry(), Fetcher: testFetcher(), Store: newMemoryStore()})
	orchestrator.running.Store(true)

	_, err := orchestrator.RunOnce(context.Background())
	assert.ErrorIs(t, err, ErrRunInProgress)
}

func TestPolitenessAbortsOneAdapterRunContinues(t *testing.T) {
	t.Parallel()

	blocked := robotsTestServer(t, "User-agent: *\nDisallow: /hackathons\n")
	open := robotsTestServer(t, "")
	store := newMemoryStore()
	start, end := upcomingWindow(7)

	forbidden := &stubAdapter{
		source:  domain.SourceDevpost,
		name:    "blocked",
		baseURL: blocked.URL,
		paths:   []string{"/hackathons"},
		events:  []domain.Event{candidate("Hidden Hack", "https://example.com/hidden", domain.SourceDevpost, start, end)},
	}
	allowed := &stubAdapter{
		source:  domain.SourceMLH,
		name:    "open",
		baseURL: open.URL,
		paths:   []string{"/events"},
		events:  []domain.Event{candidate("Open Hack", "https://example.com/open", domain.SourceMLH, start, end)},
	}

	registry := adapter.NewRegistry()
	registry.Register(forbidden)
	registry.Register(allowed)

	orchestrator := NewOrchestrator(Deps{Registry: registry, Fetcher: testFetcher(), Store: store})

	report, err := orchestrator.RunOnce(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Sources, 2)

	assert.Equal(t, 0, forbidden.scrapeCalls, "politeness failure must abort before any scrape")
	assert.NotEmpty(t, report.Sources[0].Errors)
	assert.Equal(t, 1, report.Sources[1].Created)
	assert.Len(t, store.events, 1)
}

func TestStoreFailureAbortsRun(t *testing.T) {
	t.Parallel()

	server := robotsTestServer(t, "")
	store := newMemoryStore()
	store.failing = true
	start, end := upcomingWindow(3)

	src := &stubAdapter{
		source:  domain.SourceDevpost,
		name:    "stub",
		baseURL: server.URL,
		paths:   []string{"/hackathons"},
		events:  []domain.Event{candidate("Doomed Hack", "https://example.com/doomed", domain.SourceDevpost, start, end)},
	}
	registry := adapter.NewRegistry()
	registry.Register(src)

	orchestrator := NewOrchestrator(Deps{Registry: registry, Fetcher: testFetcher(), Store: store})

	_, err := orchestrator.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store unavailable")
}

func TestRunReportSummaryListsSources(t *testing.T) {
	t.Parallel()

	report := &RunReport{
		StartedAt: time.Date(2024, time.October, 1, 3, 0, 0, 0, time.UTC),
		Duration:  1500 * time.Millisecond,
		Sources: []SourceReport{
			{Source: domain.SourceDevpost, Found: 4, Processed: 4, Created: 2, Updated: 2},
			{Source: domain.SourceMLH, Errors: []string{"listing fetch failed"}},
		},
	}

	summary := report.Summary()
	assert.Contains(t, summary, "devpost")
	assert.Contains(t, summary, "created=2")
	assert.Contains(t, summary, "listing fetch failed")
}
