package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validEvent() Event {
	start := time.Date(2025, time.April, 10, 0, 0, 0, 0, time.UTC)
	return Event{
		Title:    "Spring Hack",
		StartsAt: start,
		EndsAt:   start.AddDate(0, 0, 2),
		Location: "Online",
		Online:   true,
		Source:   SourceDevpost,
	}
}

func TestValidateAcceptsCompleteEvent(t *testing.T) {
	require.NoError(t, validEvent().Validate())
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Event)
		field  string
	}{
		{"empty title", func(e *Event) { e.Title = "" }, "title"},
		{"overlong title", func(e *Event) { e.Title = strings.Repeat("x", 501) }, "title"},
		{"missing start", func(e *Event) { e.StartsAt = time.Time{} }, "startsAt"},
		{"missing end", func(e *Event) { e.EndsAt = time.Time{} }, "endsAt"},
		{"end before start", func(e *Event) { e.EndsAt = e.StartsAt.AddDate(0, 0, -1) }, "endsAt"},
		{"end equals start", func(e *Event) { e.EndsAt = e.StartsAt }, "endsAt"},
		{"empty location", func(e *Event) { e.Location = "" }, "location"},
		{"unknown source", func(e *Event) { e.Source = "producthunt" }, "source"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := validEvent()
			tt.mutate(&event)

			err := event.Validate()
			require.Error(t, err)

			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tt.field, vErr.Field)
		})
	}
}

func TestValidateTitleLengthCountsRunes(t *testing.T) {
	event := validEvent()
	// 500 multi-byte runes are within the limit even though the byte
	// length is far larger.
	event.Title = strings.Repeat("ハ", 500)
	require.NoError(t, event.Validate())

	event.Title = strings.Repeat("ハ", 501)
	require.Error(t, event.Validate())
}

func TestPriorityRank(t *testing.T) {
	assert.Less(t, PriorityRank(SourceDevpost), PriorityRank(SourceMLH))
	assert.Less(t, PriorityRank(SourceMLH), PriorityRank(SourceHackerEarth))
	assert.Equal(t, 3, PriorityRank(Source("unknown")))
}

func TestSourceKnown(t *testing.T) {
	assert.True(t, SourceDevpost.Known())
	assert.True(t, SourceMLH.Known())
	assert.True(t, SourceHackerEarth.Known())
	assert.False(t, Source("meetup").Known())
}
