// Package adapter defines the per-source scraping contract and the
// registry the orchestrator iterates over.
package adapter

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/PuerkitoBio/goquery"

	"HackathonScanner/internal/domain"
)

// Adapter scrapes one origin site into candidate events. Scrape is
// allowed to fail partially: a bad listing item is skipped, not fatal.
type Adapter interface {
	Source() domain.Source
	Name() string
	BaseURL() string
	// RequiredPaths lists the paths the adapter intends to crawl; the
	// politeness check runs against them before any content fetch.
	RequiredPaths() []string
	Scrape(ctx context.Context) ([]domain.Event, error)
}

// Strategy is one extraction attempt over a fetched listing document.
// Strategies are pure (document in, candidates out) and are tried in
// priority order until one yields at least one plausible record. This
// tiered fallback is what keeps adapters alive through markup drift.
type Strategy struct {
	Name    string
	Extract func(doc *goquery.Document) []domain.Event
}

// RunStrategies applies strategies in order and returns the first
// non-empty result along with the winning strategy's name.
func RunStrategies(doc *goquery.Document, strategies []Strategy) ([]domain.Event, string) {
	for _, strategy := range strategies {
		if events := strategy.Extract(doc); len(events) > 0 {
			return events, strategy.Name
		}
	}
	return nil, ""
}

// FilterValid drops candidates that fail validation, logging each
// violation. The error stays scoped to the one record.
func FilterValid(events []domain.Event, logger *slog.Logger) []domain.Event {
	valid := make([]domain.Event, 0, len(events))
	for _, event := range events {
		if err := event.Validate(); err != nil {
			if logger != nil {
				logger.Warn("dropping invalid candidate", "title", event.Title, "source", event.Source, "error", err)
			}
			continue
		}
		valid = append(valid, event)
	}
	return valid
}

// Registry keeps adapters by name and preserves registration order,
// which is also the order adapters run within one ingestion pass.
type Registry struct {
	byName map[string]Adapter
	order  []Adapter
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: map[string]Adapter{}}
}

// Register adds an adapter; re-registering a name replaces it in place.
func (r *Registry) Register(a Adapter) {
	if _, exists := r.byName[a.Name()]; exists {
		for i, existing := range r.order {
			if existing.Name() == a.Name() {
				r.order[i] = a
				break
			}
		}
	} else {
		r.order = append(r.order, a)
	}
	r.byName[a.Name()] = a
}

// Resolve returns an adapter by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Adapter, error) {
	if a, ok := r.byName[name]; ok {
		return a, nil
	}
	return nil, fmt.Errorf("adapter %s is not registered", name)
}

// All returns adapters in registration order.
func (r *Registry) All() []Adapter {
	return r.order
}
