package domain

import (
	"fmt"
	"time"
	"unicode/utf8"
)

// Source tags the origin site an event was scraped from.
type Source string

const (
	SourceDevpost     Source = "devpost"
	SourceMLH         Source = "mlh"
	SourceHackerEarth Source = "hackerearth"
)

// sourcePriority ranks origins for merge conflicts; lower wins.
var sourcePriority = map[Source]int{
	SourceDevpost:     0,
	SourceMLH:         1,
	SourceHackerEarth: 2,
}

// Known reports whether s is one of the registered source tags.
func (s Source) Known() bool {
	_, ok := sourcePriority[s]
	return ok
}

// PriorityRank returns the merge priority of a source; unknown sources
// rank last.
func PriorityRank(s Source) int {
	if rank, ok := sourcePriority[s]; ok {
		return rank
	}
	return len(sourcePriority)
}

const maxTitleLength = 500

// Event is a candidate hackathon record produced by a single adapter
// scrape. Adapters build it once, validate it, and hand it off; it is
// never mutated afterwards.
type Event struct {
	Title                string
	Description          string
	StartsAt             time.Time
	EndsAt               time.Time
	RegistrationDeadline time.Time
	Location             string
	Online               bool
	WebsiteURL           string
	RegistrationURL      string
	Source               Source
	// DatesSynthesized marks events whose dates were substituted with a
	// placeholder window because no parseable date text was found.
	DatesSynthesized bool
}

// StoredEvent is a persisted event. The ID is assigned once, on first
// persistence, and never changes.
type StoredEvent struct {
	Event
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ValidationError reports a single candidate that failed the
// required-field or temporal checks. It is scoped to that one record.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid event: %s %s", e.Field, e.Reason)
}

// Validate checks required fields and the temporal invariant.
func (e Event) Validate() error {
	if e.Title == "" {
		return &ValidationError{Field: "title", Reason: "is empty"}
	}
	if utf8.RuneCountInString(e.Title) > maxTitleLength {
		return &ValidationError{Field: "title", Reason: fmt.Sprintf("exceeds %d characters", maxTitleLength)}
	}
	if e.StartsAt.IsZero() {
		return &ValidationError{Field: "startsAt", Reason: "is missing"}
	}
	if e.EndsAt.IsZero() {
		return &ValidationError{Field: "endsAt", Reason: "is missing"}
	}
	if !e.EndsAt.After(e.StartsAt) {
		return &ValidationError{Field: "endsAt", Reason: "is not after startsAt"}
	}
	if e.Location == "" {
		return &ValidationError{Field: "location", Reason: "is empty"}
	}
	if !e.Source.Known() {
		return &ValidationError{Field: "source", Reason: fmt.Sprintf("%q is not a known source", e.Source)}
	}
	return nil
}
