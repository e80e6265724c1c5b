package ports

import (
	"context"
	"time"

	"HackathonScanner/internal/domain"
)

// EventStore persists deduplicated events and answers the two lookups
// the orchestrator needs: "have we seen this listing URL" and "which
// upcoming events should new candidates be compared against".
type EventStore interface {
	FindByCanonicalURL(ctx context.Context, url string) (*domain.StoredEvent, error)
	FindUpcoming(ctx context.Context, limit int) ([]domain.StoredEvent, error)
	Create(ctx context.Context, event domain.Event) (domain.StoredEvent, error)
	Update(ctx context.Context, id string, event domain.Event) (*domain.StoredEvent, error)
}

// Notifier delivers run summaries to an operator-facing channel.
type Notifier interface {
	PublishReport(ctx context.Context, report string) error
}

// Scheduler controls when ingestion runs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
