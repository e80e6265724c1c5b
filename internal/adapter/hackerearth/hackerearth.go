// Package hackerearth scrapes the HackerEarth hackathon challenge list.
package hackerearth

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
	defaultBaseURL = "https://www.hackerearth.com"
	listingPath    = "/challenges/hackathon/"
)

// Scanner crawls the HackerEarth hackathon challenge listing. Most
// HackerEarth events are online-only, so the location handling leans
// on the online default.
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

func (s *Scanner) Source() domain.Source { return domain.SourceHackerEarth }

func (s *Scanner) Name() string { return "HackerEarth" }

func (s *Scanner) BaseURL() string { return s.baseURL }

func (s *Scanner) RequiredPaths() []string { return []string{listingPath} }

// Scrape fetches the challenge listing and extracts candidates with
// the usual tiered fallback.
func (s *Scanner) Scrape(ctx context.Context) ([]domain.Event, error) {
	body, err := s.fetcher.Fetch(ctx, s.baseURL+listingPath, s.Source())
	if err != nil {
		return nil, fmt.Errorf("hackerearth listing: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse hackerearth listing: %w", err)
	}

	events, strategyName := adapter.RunStrategies(doc, []adapter.Strategy{
		{Name: "initial-state", Extract: s.extractInitialState},
		{Name: "challenge-cards", Extract: s.extractCards},
		{Name: "link-harvest", Extract: s.extractLinks},
	})
	if s.logger != nil {
		s.logger.Debug("hackerearth extraction", "strategy", strategyName, "candidates", len(events))
	}

	return adapter.FilterValid(events, s.logger), nil
}

// initialState mirrors the bootstrap JSON HackerEarth ships with the
// listing page.
type initialState struct {
	Challenges []struct {
		Title     string `json:"title"`
		URL       string `json:"url"`
		StartDate string `json:"start_timestamp"`
		EndDate   string `json:"end_timestamp"`
		Venue     string `json:"venue"`
	} `json:"challenges"`
}

func (s *Scanner) extractInitialState(doc *goquery.Document) []domain.Event {
	var events []domain.Event

	doc.Find(`script[type="application/json"][data-role="challenge-state"]`).Each(func(_ int, script *goquery.Selection) {
		var state initialState
		if err := json.Unmarshal([]byte(script.Text()), &state); err != nil {
			return
		}

		for _, challenge := range state.Challenges {
			if challenge.Title == "" {
				continue
			}
			start, startErr := time.Parse(time.RFC3339, challenge.StartDate)
			end, endErr := time.Parse(time.RFC3339, challenge.EndDate)
			if startErr != nil || endErr != nil {
				continue
			}
			location, online := normalize.Location(challenge.Venue)
			events = append(events, domain.Event{
				Title:      normalize.CleanText(challenge.Title),
				StartsAt:   start.UTC(),
				EndsAt:     end.UTC(),
				Location:   location,
				Online:     online,
				WebsiteURL: challenge.URL,
				Source:     s.Source(),
			})
		}
	})

	return events
}

func (s *Scanner) extractCards(doc *goquery.Document) []domain.Event {
	var events []domain.Event

	doc.Find("div.challenge-card-modern").Each(func(_ int, card *goquery.Selection) {
		title := normalize.CleanText(card.Find(".challenge-name, .challenge-list-title").First().Text())
		if title == "" {
			return
		}

		dateText := card.Find(".challenge-date, .date").First().Text()
		start, end, parsed := normalize.ParseDateRange(dateText, s.now())
		synthesized := false
		if !parsed {
			start = s.now().UTC().Truncate(24 * time.Hour)
			end = start.AddDate(0, 0, 30)
			synthesized = true
		}

		location, online := normalize.Location(card.Find(".challenge-venue").First().Text())

		href, _ := card.Find("a.challenge-card-wrapper, a").First().Attr("href")
		if href != "" && !strings.HasPrefix(href, "http") {
			href = s.baseURL + "/" + strings.TrimPrefix(href, "/")
		}

		events = append(events, domain.Event{
			Title:            title,
			Description:      normalize.CleanText(card.Find(".challenge-desc").First().Text()),
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

	doc.Find(`a[href*="/challenges/hackathon/"]`).Each(func(_ int, link *goquery.Selection) {
		href, _ := link.Attr("href")
		title := normalize.CleanText(link.Text())
		if href == "" || title == "" || strings.EqualFold(title, "hackathons") {
			return
		}
		if !strings.HasPrefix(href, "http") {
			href = s.baseURL + "/" + strings.TrimPrefix(href, "/")
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
