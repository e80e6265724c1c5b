// Package mlh scrapes the Major League Hacking season calendar.
package mlh

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
	defaultBaseURL = "https://mlh.io"
	listingPath    = "/seasons/2026/events"
)

// Scanner crawls the MLH season events page.
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

func (s *Scanner) Source() domain.Source { return domain.SourceMLH }

func (s *Scanner) Name() string { return "Major League Hacking" }

func (s *Scanner) BaseURL() string { return s.baseURL }

func (s *Scanner) RequiredPaths() []string { return []string{listingPath} }

// Scrape fetches the season calendar and extracts one candidate per
// event card, falling back through strategies on markup drift.
func (s *Scanner) Scrape(ctx context.Context) ([]domain.Event, error) {
	body, err := s.fetcher.Fetch(ctx, s.baseURL+listingPath, s.Source())
	if err != nil {
		return nil, fmt.Errorf("mlh listing: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse mlh listing: %w", err)
	}

	events, strategyName := adapter.RunStrategies(doc, []adapter.Strategy{
		{Name: "structured-data", Extract: s.extractStructured},
		{Name: "event-cards", Extract: s.extractCards},
		{Name: "link-harvest", Extract: s.extractLinks},
	})
	if s.logger != nil {
		s.logger.Debug("mlh extraction", "strategy", strategyName, "candidates", len(events))
	}

	return adapter.FilterValid(events, s.logger), nil
}

type ldEvent struct {
	Type      string `json:"@type"`
	Name      string `json:"name"`
	URL       string `json:"url"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	Location  struct {
		Name    string `json:"name"`
		Address struct {
			AddressLocality string `json:"addressLocality"`
			AddressRegion   string `json:"addressRegion"`
		} `json:"address"`
	} `json:"location"`
}

func (s *Scanner) extractStructured(doc *goquery.Document) []domain.Event {
	var events []domain.Event

	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, script *goquery.Selection) {
		var entries []ldEvent
		raw := strings.TrimSpace(script.Text())
		if raw == "" {
			return
		}
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

			rawLocation := entry.Location.Name
			if rawLocation == "" && entry.Location.Address.AddressLocality != "" {
				rawLocation = entry.Location.Address.AddressLocality
				if entry.Location.Address.AddressRegion != "" {
					rawLocation += ", " + entry.Location.Address.AddressRegion
				}
			}
			location, online := normalize.Location(rawLocation)

			events = append(events, domain.Event{
				Title:      normalize.CleanText(entry.Name),
				StartsAt:   start,
				EndsAt:     end,
				Location:   location,
				Online:     online,
				WebsiteURL: entry.URL,
				Source:     s.Source(),
			})
		}
	})

	return events
}

func (s *Scanner) extractCards(doc *goquery.Document) []domain.Event {
	var events []domain.Event

	doc.Find("div.event").Each(func(_ int, card *goquery.Selection) {
		title := normalize.CleanText(card.Find(".event-name, h3").First().Text())
		if title == "" {
			return
		}

		dateText := card.Find(".event-date, p.date").First().Text()
		start, end, parsed := normalize.ParseDateRange(dateText, s.now())
		synthesized := false
		if !parsed {
			start = s.now().UTC().Truncate(24 * time.Hour)
			end = start.AddDate(0, 0, 30)
			synthesized = true
		}

		location, online := normalize.Location(card.Find(".event-location").First().Text())
		// MLH marks hybrid/digital events with an explicit badge.
		if mode := normalize.CleanText(card.Find(".event-hybrid-notes").First().Text()); normalize.IsOnline(mode) {
			online = true
		}

		href, _ := card.Find("a.event-link, a").First().Attr("href")

		events = append(events, domain.Event{
			Title:            title,
			StartsAt:         start,
			EndsAt:           end,
			Location:         location,
			Online:           online,
			WebsiteURL:       href,
			Source:           s.Source(),
			DatesSynthesized: synthesized,
		})
	})

	return events
}

func (s *Scanner) extractLinks(doc *goquery.Document) []domain.Event {
	var events []domain.Event
	seen := map[string]struct{}{}

	doc.Find(`a[href*="hackathons.mlh.io"], a[rel="nofollow"][href^="http"]`).Each(func(_ int, link *goquery.Selection) {
		href, _ := link.Attr("href")
		title := normalize.CleanText(link.Text())
		if href == "" || title == "" {
			return
		}
		if _, dup := seen[href]; dup {
			return
		}
		seen[href] = struct{}{}

		start := s.now().UTC().Truncate(24 * time.Hour)
		events = append(events, domain.Event{
			Title:            title,
			StartsAt:         start,
			EndsAt:           start.AddDate(0, 0, 30),
			Location:         "Online",
			Online:           true,
			WebsiteURL:       href,
			Source:           s.Source(),
			DatesSynthesized: true,
		})
	})

	return events
}
