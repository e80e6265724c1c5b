// Package normalize holds the shared text heuristics every adapter
// uses to turn messy source markup into canonical event fields.
package normalize

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var monthsByName = map[string]time.Month{
	"jan": time.January, "january": time.January,
	"feb": time.February, "february": time.February,
	"mar": time.March, "march": time.March,
	"apr": time.April, "april": time.April,
	"may": time.May,
	"jun": time.June, "june": time.June,
	"jul": time.July, "july": time.July,
	"aug": time.August, "august": time.August,
	"sep": time.September, "sept": time.September, "september": time.September,
	"oct": time.October, "october": time.October,
	"nov": time.November, "november": time.November,
	"dec": time.December, "december": time.December,
}

var (
	// "2024-10-15 to 2024-10-17"
	isoRangeExpr = regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})\s+to\s+(\d{4})-(\d{2})-(\d{2})`)
	// "Oct 15-17, 2024", "Oct 15 - 17, 2024", "Oct 15, 2024"
	sameMonthExpr = regexp.MustCompile(`^([A-Za-z]{3,9})\.?\s+(\d{1,2})(?:\s*[-–—]\s*(\d{1,2}))?(?:,?\s*(\d{4}))?$`)
	// one side of "Mon D[, YYYY] - Mon D[, YYYY]"
	monthDayExpr = regexp.MustCompile(`^([A-Za-z]{3,9})\.?\s+(\d{1,2})(?:,?\s*(\d{4}))?$`)
	rangeSplit   = regexp.MustCompile(`\s*[-–—]\s*|\s+to\s+`)

	spaceExpr = regexp.MustCompile(`\s+`)
)

// ParseDateRange collapses the raw date shapes seen across sources into
// a start/end day pair (midnight UTC). Text with no year defaults to
// now's year. A single day yields a one-day window so the end always
// stays strictly after the start. ok is false when nothing parseable
// was found; callers decide whether to synthesize a placeholder window.
func ParseDateRange(text string, now time.Time) (start, end time.Time, ok bool) {
	text = CleanText(text)
	if text == "" {
		return time.Time{}, time.Time{}, false
	}

	if m := isoRangeExpr.FindStringSubmatch(text); m != nil {
		start = dateFrom(atoi(m[1]), time.Month(atoi(m[2])), atoi(m[3]))
		end = dateFrom(atoi(m[4]), time.Month(atoi(m[5])), atoi(m[6]))
		return orderRange(start, end)
	}

	if m := sameMonthExpr.FindStringSubmatch(text); m != nil {
		month, monthOK := monthsByName[strings.ToLower(m[1])]
		if !monthOK {
			return time.Time{}, time.Time{}, false
		}
		year := now.Year()
		if m[4] != "" {
			year = atoi(m[4])
		}
		start = dateFrom(year, month, atoi(m[2]))
		if m[3] != "" {
			end = dateFrom(year, month, atoi(m[3]))
		} else {
			end = start.AddDate(0, 0, 1)
		}
		return orderRange(start, end)
	}

	if parts := rangeSplit.Split(text, 2); len(parts) == 2 {
		startMatch := monthDayExpr.FindStringSubmatch(strings.TrimSpace(parts[0]))
		endMatch := monthDayExpr.FindStringSubmatch(strings.TrimSpace(parts[1]))
		if startMatch != nil && endMatch != nil {
			startMonth, startOK := monthsByName[strings.ToLower(startMatch[1])]
			endMonth, endOK := monthsByName[strings.ToLower(endMatch[1])]
			if !startOK || !endOK {
				return time.Time{}, time.Time{}, false
			}

			startYear, endYear := atoi(startMatch[3]), atoi(endMatch[3])
			switch {
			case startYear == 0 && endYear != 0:
				startYear = endYear
			case startYear != 0 && endYear == 0:
				endYear = startYear
			case startYear == 0 && endYear == 0:
				startYear, endYear = now.Year(), now.Year()
			}
			// December-to-January ranges roll the end into the next year.
			if endYear == startYear && endMonth < startMonth {
				endYear++
			}

			start = dateFrom(startYear, startMonth, atoi(startMatch[2]))
			end = dateFrom(endYear, endMonth, atoi(endMatch[2]))
			return orderRange(start, end)
		}
	}

	return time.Time{}, time.Time{}, false
}

func orderRange(start, end time.Time) (time.Time, time.Time, bool) {
	if end.Before(start) {
		return time.Time{}, time.Time{}, false
	}
	if end.Equal(start) {
		end = start.AddDate(0, 0, 1)
	}
	return start, end, true
}

func dateFrom(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// onlineKeywords classify a location string as a virtual venue.
var onlineKeywords = []string{
	"online", "virtual", "remote", "digital",
	"worldwide", "global", "web", "internet",
	"everywhere", "anywhere",
}

// IsOnline reports whether a raw location string describes a virtual
// event. An empty location counts as online.
func IsOnline(location string) bool {
	location = strings.ToLower(CleanText(location))
	if location == "" {
		return true
	}
	for _, keyword := range onlineKeywords {
		if strings.Contains(location, keyword) {
			return true
		}
	}
	return false
}

// Location cleans a raw location string, defaulting to "Online" when
// the source provided nothing resolvable.
func Location(raw string) (string, bool) {
	cleaned := CleanText(raw)
	if cleaned == "" {
		return "Online", true
	}
	return cleaned, IsOnline(cleaned)
}

// CleanText collapses runs of whitespace and trims the result.
func CleanText(s string) string {
	return strings.TrimSpace(spaceExpr.ReplaceAllString(s, " "))
}

// trackingParams are stripped from canonical URLs.
var trackingParams = []string{"ref", "fbclid", "gclid", "mc_cid", "mc_eid"}

// CanonicalURL normalizes an event URL for use as the "same listing"
// key: lowercased scheme and host, no www. prefix, no tracking
// parameters, no fragment, no trailing slash.
func CanonicalURL(raw string) string {
	raw = strings.TrimSpace(raw)
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return raw
	}

	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.TrimPrefix(strings.ToLower(parsed.Host), "www.")
	parsed.Fragment = ""

	query := parsed.Query()
	for key := range query {
		if strings.HasPrefix(strings.ToLower(key), "utm_") {
			query.Del(key)
			continue
		}
		for _, tracking := range trackingParams {
			if strings.EqualFold(key, tracking) {
				query.Del(key)
			}
		}
	}
	parsed.RawQuery = query.Encode()
	parsed.Path = strings.TrimSuffix(parsed.Path, "/")

	return parsed.String()
}
