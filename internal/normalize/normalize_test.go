package normalize

import (
	"testing"
	"time"
)

func TestParseDateRangeSameMonth(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)

	start, end, ok := ParseDateRange("Oct 15 - 17, 2024", now)
	if !ok {
		t.Fatal("expected date range to parse")
	}
	if !start.Equal(time.Date(2024, time.October, 15, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected start: %v", start)
	}
	if !end.Equal(time.Date(2024, time.October, 17, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected end: %v", end)
	}
}

func TestParseDateRangeSameMonthCompact(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)

	start, end, ok := ParseDateRange("Nov 8-10, 2025", now)
	if !ok {
		t.Fatal("expected date range to parse")
	}
	if start.Day() != 8 || end.Day() != 10 || start.Month() != time.November || start.Year() != 2025 {
		t.Fatalf("unexpected range: %v - %v", start, end)
	}
}

func TestParseDateRangeDistinctMonths(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)

	start, end, ok := ParseDateRange("Sep 30 - Oct 2, 2024", now)
	if !ok {
		t.Fatal("expected date range to parse")
	}
	if !start.Equal(time.Date(2024, time.September, 30, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected start: %v", start)
	}
	if !end.Equal(time.Date(2024, time.October, 2, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected end: %v", end)
	}
}

func TestParseDateRangeDecemberRollover(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)

	start, end, ok := ParseDateRange("Dec 30 - Jan 2", now)
	if !ok {
		t.Fatal("expected date range to parse")
	}
	if start.Year() != 2024 || end.Year() != 2025 {
		t.Fatalf("expected year rollover, got %v - %v", start, end)
	}
}

func TestParseDateRangeISO(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)

	start, end, ok := ParseDateRange("2024-10-15 to 2024-10-17", now)
	if !ok {
		t.Fatal("expected date range to parse")
	}
	if start.Day() != 15 || end.Day() != 17 || start.Month() != time.October {
		t.Fatalf("unexpected range: %v - %v", start, end)
	}
}

func TestParseDateRangeDefaultsYear(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)

	start, _, ok := ParseDateRange("Oct 15-17", now)
	if !ok {
		t.Fatal("expected date range to parse")
	}
	if start.Year() != 2026 {
		t.Fatalf("expected current year default, got %d", start.Year())
	}
}

func TestParseDateRangeSingleDay(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)

	start, end, ok := ParseDateRange("Oct 15, 2024", now)
	if !ok {
		t.Fatal("expected date to parse")
	}
	if !end.After(start) {
		t.Fatalf("single day must still yield end after start: %v - %v", start, end)
	}
}

func TestParseDateRangeUnparseable(t *testing.T) {
	t.Parallel()

	now := time.Now()
	if _, _, ok := ParseDateRange("coming soon", now); ok {
		t.Fatal("expected parse failure")
	}
	if _, _, ok := ParseDateRange("", now); ok {
		t.Fatal("expected parse failure on empty text")
	}
}

func TestIsOnline(t *testing.T) {
	t.Parallel()

	cases := map[string]bool{
		"Online":            true,
		"VIRTUAL":           true,
		"Remote friendly":   true,
		"Worldwide / Web":   true,
		"":                  true,
		"Berlin, Germany":   false,
		"San Francisco, CA": false,
	}

	for location, want := range cases {
		if got := IsOnline(location); got != want {
			t.Fatalf("IsOnline(%q) = %v, want %v", location, got, want)
		}
	}
}

func TestLocationDefaultsToOnline(t *testing.T) {
	t.Parallel()

	location, online := Location("   ")
	if location != "Online" || !online {
		t.Fatalf("expected Online default, got %q/%v", location, online)
	}

	location, online = Location("  Toronto,   Canada ")
	if location != "Toronto, Canada" || online {
		t.Fatalf("unexpected normalization: %q/%v", location, online)
	}
}

func TestCanonicalURL(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"https://www.example.com/hack/?utm_source=x&utm_medium=y": "https://example.com/hack",
		"HTTPS://Example.COM/Hack#section":                        "https://example.com/Hack",
		"https://example.com/hack?ref=tw&id=3":                    "https://example.com/hack?id=3",
		"not a url":                                               "not a url",
	}

	for raw, want := range cases {
		if got := CanonicalURL(raw); got != want {
			t.Fatalf("CanonicalURL(%q) = %q, want %q", raw, got, want)
		}
	}
}
