// Package usecase orchestrates ingestion runs: adapters are visited in
// registration order, their candidates are deduplicated against the
// store, and each candidate becomes a create or an update.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"HackathonScanner/internal/adapter"
	"HackathonScanner/internal/dedup"
	"HackathonScanner/internal/domain"
	"HackathonScanner/internal/fetcher"
	"HackathonScanner/internal/normalize"
	"HackathonScanner/internal/ports"
)

const (
	defaultDedupWindow = 100
)

// SourceReport summarizes one adapter's contribution to a run.
type SourceReport struct {
	Source    domain.Source `json:"source"`
	Found     int           `json:"found"`
	Processed int           `json:"processed"`
	Created   int           `json:"created"`
	Updated   int           `json:"updated"`
	Errors    []string      `json:"errors"`
	Duration  time.Duration `json:"duration"`
}

// RunReport is the machine-readable summary of one ingestion run.
type RunReport struct {
	StartedAt time.Time      `json:"startedAt"`
	Duration  time.Duration  `json:"duration"`
	Sources   []SourceReport `json:"sources"`
}

// Summary renders the report for the log and the notifier channel.
func (r *RunReport) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "ingestion run %s (%s)\n", r.StartedAt.Format(time.RFC3339), r.Duration.Round(time.Millisecond))
	for _, src := range r.Sources {
		fmt.Fprintf(&b, "- %s: found=%d processed=%d created=%d updated=%d errors=%d (%s)\n",
			src.Source, src.Found, src.Processed, src.Created, src.Updated, len(src.Errors), src.Duration.Round(time.Millisecond))
		for _, msg := range src.Errors {
			fmt.Fprintf(&b, "    error: %s\n", msg)
		}
	}
	return b.String()
}

// ErrRunInProgress is returned when a trigger arrives while a run is
// already in flight; the trigger is skipped, never queued.
var ErrRunInProgress = errors.New("ingestion run already in progress")

// Config carries the orchestrator knobs.
type Config struct {
	DedupThreshold float64
	DedupWindow    int
}

// Deps wires the orchestrator's collaborators.
type Deps struct {
	Registry *adapter.Registry
	Fetcher  *fetcher.Fetcher
	Store    ports.EventStore
	Notifier ports.Notifier
	Logger   *slog.Logger
	Config   Config
}

// Orchestrator runs the ingestion pipeline with at most one run in
// flight at a time.
type Orchestrator struct {
	registry  *adapter.Registry
	fetcher   *fetcher.Fetcher
	store     ports.EventStore
	notifier  ports.Notifier
	logger    *slog.Logger
	threshold float64
	window    int
	running   atomic.Bool
}

// NewOrchestrator builds the orchestration component.
func NewOrchestrator(deps Deps) *Orchestrator {
	threshold := deps.Config.DedupThreshold
	if threshold <= 0 {
		threshold = dedup.DefaultThreshold
	}
	window := deps.Config.DedupWindow
	if window <= 0 {
		window = defaultDedupWindow
	}
	return &Orchestrator{
		registry:  deps.Registry,
		fetcher:   deps.Fetcher,
		store:     deps.Store,
		notifier:  deps.Notifier,
		logger:    deps.Logger,
		threshold: threshold,
		window:    window,
	}
}

// RunOnce executes a full ingestion pass. A concurrent trigger returns
// ErrRunInProgress and does nothing. Store failures abort the run;
// everything narrower is recorded per source and processing continues.
func (o *Orchestrator) RunOnce(ctx context.Context) (*RunReport, error) {
	if !o.running.CompareAndSwap(false, true) {
		o.info("run trigger skipped, run already in flight")
		return nil, ErrRunInProgress
	}
	defer o.running.Store(false)

	report := &RunReport{StartedAt: time.Now().UTC()}
	started := time.Now()

	for _, source := range o.registry.All() {
		sourceReport, err := o.runAdapter(ctx, source)
		report.Sources = append(report.Sources, sourceReport)
		if err != nil {
			report.Duration = time.Since(started)
			return report, fmt.Errorf("run aborted at %s: %w", source.Name(), err)
		}
	}

	report.Duration = time.Since(started)
	o.info("ingestion run complete", "duration", report.Duration, "sources", len(report.Sources))

	if o.notifier != nil {
		if err := o.notifier.PublishReport(ctx, report.Summary()); err != nil {
			o.warn("publish run report failed", "error", err)
		}
	}

	return report, nil
}

// runAdapter runs one adapter: politeness check, scrape, then one
// create-or-update decision per candidate in the order the adapter
// returned them. The returned error is non-nil only for store
// failures, which abort the whole run.
func (o *Orchestrator) runAdapter(ctx context.Context, source adapter.Adapter) (SourceReport, error) {
	report := SourceReport{Source: source.Source()}
	started := time.Now()
	defer func() { report.Duration = time.Since(started) }()

	if err := o.fetcher.CheckPaths(ctx, source.BaseURL(), source.Source(), source.RequiredPaths()); err != nil {
		o.warn("politeness check failed, skipping adapter", "adapter", source.Name(), "error", err)
		report.Errors = append(report.Errors, err.Error())
		return report, nil
	}

	events, err := source.Scrape(ctx)
	if err != nil {
		o.warn("scrape failed", "adapter", source.Name(), "error", err)
		report.Errors = append(report.Errors, err.Error())
		return report, nil
	}
	report.Found = len(events)

	for _, event := range events {
		outcome, err := o.processEvent(ctx, event)
		if err != nil {
			if isStoreFailure(err) {
				return report, err
			}
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", event.Title, err))
			continue
		}

		report.Processed++
		switch outcome {
		case outcomeCreated:
			report.Created++
		case outcomeUpdated:
			report.Updated++
		}
	}

	o.info("adapter processed",
		"adapter", source.Name(),
		"found", report.Found,
		"created", report.Created,
		"updated", report.Updated,
		"errors", len(report.Errors))

	return report, nil
}

type outcome int

const (
	outcomeCreated outcome = iota
	outcomeUpdated
)

// storeError wraps failures from the event store so runAdapter can
// tell fatal persistence problems apart from per-record issues.
type storeError struct{ err error }

func (e *storeError) Error() string { return e.err.Error() }
func (e *storeError) Unwrap() error { return e.err }

func isStoreFailure(err error) bool {
	var se *storeError
	return errors.As(err, &se)
}

// processEvent makes the create-or-update decision for one candidate:
// canonical URL match first, then a dedup pass against the upcoming
// window, and only then a fresh create.
func (o *Orchestrator) processEvent(ctx context.Context, event domain.Event) (outcome, error) {
	if err := event.Validate(); err != nil {
		return 0, err
	}

	if event.WebsiteURL != "" {
		canonical := normalize.CanonicalURL(event.WebsiteURL)
		existing, err := o.store.FindByCanonicalURL(ctx, canonical)
		if err != nil {
			return 0, &storeError{fmt.Errorf("lookup by url: %w", err)}
		}
		if existing != nil {
			if _, err := o.store.Update(ctx, existing.ID, event); err != nil {
				return 0, &storeError{fmt.Errorf("update %s: %w", existing.ID, err)}
			}
			return outcomeUpdated, nil
		}
	}

	upcoming, err := o.store.FindUpcoming(ctx, o.window)
	if err != nil {
		return 0, &storeError{fmt.Errorf("load upcoming window: %w", err)}
	}

	// Pool layout: stored events first, the candidate last, so a group
	// containing the candidate can be mapped back to its stored twin.
	pool := make([]domain.Event, 0, len(upcoming)+1)
	for _, stored := range upcoming {
		pool = append(pool, stored.Event)
	}
	pool = append(pool, event)
	candidateIdx := len(pool) - 1

	for _, group := range dedup.FindDuplicateGroups(pool, o.threshold) {
		storedIdx, hasCandidate := -1, false
		for _, member := range group.Members {
			if member == candidateIdx {
				hasCandidate = true
			} else if storedIdx == -1 {
				storedIdx = member
			}
		}
		if !hasCandidate || storedIdx == -1 {
			continue
		}

		merged := dedup.Merge(pool, group)
		target := upcoming[storedIdx]
		if _, err := o.store.Update(ctx, target.ID, merged); err != nil {
			return 0, &storeError{fmt.Errorf("merge update %s: %w", target.ID, err)}
		}
		o.info("merged duplicate", "title", event.Title, "into", target.ID, "source", event.Source)
		return outcomeUpdated, nil
	}

	if _, err := o.store.Create(ctx, event); err != nil {
		return 0, &storeError{fmt.Errorf("create: %w", err)}
	}
	return outcomeCreated, nil
}

func (o *Orchestrator) info(msg string, args ...any) {
	if o.logger != nil {
		o.logger.Info(msg, args...)
	}
}

func (o *Orchestrator) warn(msg string, args ...any) {
	if o.logger != nil {
		o.logger.Warn(msg, args...)
	}
}
