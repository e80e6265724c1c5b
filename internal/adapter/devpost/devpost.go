// Package devpost scrapes hackathon listings from devpost.com.
package devpost

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"HackathonScanner/internal/adapter"
	"HackathonScanner/internal/domain"
	"HackathonScanner/internal/fetcher"
	"HackathonScanner/internal/normalize"
)

const (
	defaultBaseURL = "https://devpost.com"
	listingPath    = "/hackathons"
)

// Scanner crawls the Devpost hackathon listing and enriches candidates
// with detail-page descriptions where reachable.
type Scanner struct {
	fetcher *fetcher.Fetcher
	baseURL string
	logger  *slog.Logger
	now     func() time.Time
}

var _ adapter.Adapter = (*Scanner)(nil)

// New wires the shared fetcher; baseURL is overridable for tests.
func New(f *fetcher.Fetcher, baseURL string, logger *slog.Logger) *Scanner {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Scanner{
		fetcher: f,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		logger:  logger,
		now:     time.Now,
	}
}

func (s *Scanner) Source() domain.Source { return domain.SourceDevpost }

func (s *Scanner) Name() string { return "Devpost" }

func (s *Scanner) BaseURL() string { return s.baseURL }

func (s *Scanner) RequiredPaths() []string { return []string{listingPath} }

// Scrape fetches the listing page, runs the extraction strategies in
// priority order, and validates every candidate before returning it.
// A listing fetch failure aborts the run; a detail fetch failure only
// costs the description.
func (s *Scanner) Scrape(ctx context.Context) ([]domain.Event, error) {
	body, err := s.fetcher.Fetch(ctx, s.baseURL+listingPath, s.Source())
	if err != nil {
		return nil, fmt.Errorf("devpost listing: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse devpost listing: %w", err)
	}

	events, strategyName := adapter.RunStrategies(doc, []adapter.Strategy{
		{Name: "structured-data", Extract: s.extractStructured},
		{Name: "tiles", Extract: s.extractTiles},
		{Name: "link-harvest", Extract: s.extractLinks},
	})
	if s.logger != nil {
		s.logger.Debug("devpost extraction", "strategy", strategyName, "candidates", len(events))
	}

	s.enrichDescriptions(ctx, events)

	return adapter.FilterValid(events, s.logger), nil
}

// ldEvent mirrors the schema.org Event entries Devpost embeds.
type ldEvent struct {
	Type      string `json:"@type"`
	Name      string `json:"name"`
	URL       string `json:"url"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	Location  struct {
		Name string `json:"name"`
	} `json:"location"`
	Description string `json:"description"`
}

func (s *Scanner) extractStructured(doc *goquery.Document) []domain.Event {
	var events []domain.Event

	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, script *goquery.Selection) {
		raw := strings.TrimSpace(script.Text())
		if raw == "" {
			return
		}

		var entries []ldEvent
		if strings.HasPrefix(raw, "[") {
			if err := json.Unmarshal([]byte(raw), &entries); err != nil {
				return
			}
		} else {
			var single ldEvent
			if err := json.Unmarshal([]byte(raw), &single); err != nil {
				return
			}
			entries = append(entries, single)
		}

		for _, entry := range entries {
			if !strings.EqualFold(entry.Type, "Event") || entry.Name == "" {
				continue
			}
			start, startErr := time.Parse("2006-01-02", entry.StartDate)
			end, endErr := time.Parse("2006-01-02", entry.EndDate)
			if startErr != nil || endErr != nil {
				continue
			}
			location, online := normalize.Location(entry.Location.Name)
			events = append(events, domain.Event{
				Title:       normalize.CleanText(entry.Name),
				Description: normalize.CleanText(entry.Description),
				StartsAt:    start,
				EndsAt:      end,
				Location:    location,
				Online:      online,
				WebsiteURL:  entry.URL,
				Source:      s.Source(),
			})
		}
	})

	return events
}

func (s *Scanner) extractTiles(doc *goquery.Document) []domain.Event {
	var events []domain.Event

	doc.Find("div.hackathon-tile").Each(func(_ int, tile *goquery.Selection) {
		title := normalize.CleanText(tile.Find(".challenge-title, h3.title").First().Text())
		if title == "" {
			return
		}

		href, _ := tile.Find("a.tile-anchor").First().Attr("href")
		if href == "" {
			href, _ = tile.Find("a").First().Attr("href")
		}

		dateText := tile.Find(".submission-period").First().Text()
		start, end, parsed := normalize.ParseDateRange(dateText, s.now())
		synthesized := false
		if !parsed {
			start, end = placeholderWindow(s.now())
			synthesized = true
		}

		location, online := normalize.Location(tile.Find(".challenge-location, .info .location").First().Text())

		events = append(events, domain.Event{
			Title:            title,
			Description:      normalize.CleanText(tile.Find(".challenge-description").First().Text()),
			StartsAt:         start,
			EndsAt:           end,
			Location:         location,
			Online:           online,
			WebsiteURL:       absoluteURL(s.baseURL, href),
			Source:           s.Source(),
			DatesSynthesized: synthesized,
		})
	})

	return events
}

// extractLinks is the last-ditch harvest: any anchor pointing at a
// *.devpost.com subdomain becomes a candidate with a placeholder
// window, flagged as synthesized.
func (s *Scanner) extractLinks(doc *goquery.Document) []domain.Event {
	var events []domain.Event
	seen := map[string]struct{}{}

	doc.Find(`a[href*=".devpost.com"]`).Each(func(_ int, link *goquery.Selection) {
		href, _ := link.Attr("href")
		title := normalize.CleanText(link.Text())
		if href == "" || title == "" {
			return
		}
		if _, dup := seen[href]; dup {
			return
		}
		seen[href] = struct{}{}

		start, end := placeholderWindow(s.now())
		events = append(events, domain.Event{
			Title:            title,
			StartsAt:         start,
			EndsAt:           end,
			Location:         "Online",
			Online:           true,
			WebsiteURL:       href,
			Source:           s.Source(),
			DatesSynthesized: true,
		})
	})

	return events
}

// enrichDescriptions fetches detail pages for candidates missing a
// description. Failures degrade to summary-only data.
func (s *Scanner) enrichDescriptions(ctx context.Context, events []domain.Event) {
	for i := range events {
		if events[i].Description != "" || events[i].WebsiteURL == "" {
			continue
		}

		body, err := s.fetcher.Fetch(ctx, events[i].WebsiteURL, s.Source())
		if err != nil {
			if s.logger != nil {
				s.logger.Warn("detail enrichment failed, keeping summary", "url", events[i].WebsiteURL, "error", err)
			}
			continue
		}

		detail, err := goquery.NewDocumentFromReader(strings.NewReader(body))
		if err != nil {
			continue
		}

		if desc, ok := detail.Find(`meta[name="description"]`).Attr("content"); ok {
			events[i].Description = normalize.CleanText(desc)
		}
		if reg, ok := detail.Find(`a[href*="register"]`).First().Attr("href"); ok {
			events[i].RegistrationURL = absoluteURL(events[i].WebsiteURL, reg)
		}
	}
}

func placeholderWindow(now time.Time) (time.Time, time.Time) {
	start := now.UTC().Truncate(24 * time.Hour)
	return start, start.AddDate(0, 0, 30)
}

func absoluteURL(base, href string) string {
	if href == "" || strings.HasPrefix(href, "http") {
		return href
	}
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(href, "/")
}
