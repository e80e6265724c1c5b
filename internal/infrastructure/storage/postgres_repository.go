// Package storage persists deduplicated events in Postgres.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"HackathonScanner/internal/domain"
	"HackathonScanner/internal/normalize"
	"HackathonScanner/internal/ports"
)

const eventsTable = "hackathon_events"

var eventColumns = []string{
	"id", "title", "description",
	"starts_at", "ends_at", "registration_deadline",
	"location", "online", "website_url", "registration_url", "canonical_url",
	"source", "dates_synthesized",
	"created_at", "updated_at",
}

// PostgresRepository implements ports.EventStore on Postgres.
type PostgresRepository struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

var _ ports.EventStore = (*PostgresRepository)(nil)

// NewPostgresRepository wires a sql.DB handle.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Open connects to Postgres and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// FindByCanonicalURL returns the event stored under the canonical
// listing URL, or nil when none exists.
func (r *PostgresRepository) FindByCanonicalURL(ctx context.Context, url string) (*domain.StoredEvent, error) {
	query, args, err := r.sb.
		Select(eventColumns...).
		From(eventsTable).
		Where(sq.Eq{"canonical_url": url}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build url lookup: %w", err)
	}

	stored, err := r.scanOne(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup by canonical url: %w", err)
	}
	return stored, nil
}

// FindUpcoming returns up to limit events that have not yet ended,
// ordered by start date. This is the bounded window new candidates are
// deduplicated against.
func (r *PostgresRepository) FindUpcoming(ctx context.Context, limit int) ([]domain.StoredEvent, error) {
	query, args, err := r.sb.
		Select(eventColumns...).
		From(eventsTable).
		Where(sq.GtOrEq{"ends_at": time.Now().UTC()}).
		OrderBy("starts_at ASC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build upcoming query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query upcoming: %w", err)
	}
	defer rows.Close()

	var events []domain.StoredEvent
	for rows.Next() {
		stored, err := r.scanOne(rows)
		if err != nil {
			return nil, fmt.Errorf("scan upcoming row: %w", err)
		}
		events = append(events, *stored)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate upcoming rows: %w", err)
	}

	return events, nil
}

// Create inserts a new event, assigning its stable identifier.
func (r *PostgresRepository) Create(ctx context.Context, event domain.Event) (domain.StoredEvent, error) {
	now := time.Now().UTC()
	stored := domain.StoredEvent{
		Event:     event,
		ID:        uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
	}

	query, args, err := r.sb.
		Insert(eventsTable).
		Columns(eventColumns...).
		Values(
			stored.ID, stored.Title, stored.Description,
			stored.StartsAt, stored.EndsAt, nullableTime(stored.RegistrationDeadline),
			stored.Location, stored.Online, stored.WebsiteURL, stored.RegistrationURL,
			normalize.CanonicalURL(stored.WebsiteURL),
			string(stored.Source), stored.DatesSynthesized,
			stored.CreatedAt, stored.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return domain.StoredEvent{}, fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return domain.StoredEvent{}, fmt.Errorf("insert event: %w", err)
	}

	return stored, nil
}

// Update replaces an event's fields under an existing identifier. The
// identifier and creation timestamp never change.
func (r *PostgresRepository) Update(ctx context.Context, id string, event domain.Event) (*domain.StoredEvent, error) {
	now := time.Now().UTC()

	query, args, err := r.sb.
		Update(eventsTable).
		SetMap(map[string]any{
			"title":                 event.Title,
			"description":           event.Description,
			"starts_at":             event.StartsAt,
			"ends_at":               event.EndsAt,
			"registration_deadline": nullableTime(event.RegistrationDeadline),
			"location":              event.Location,
			"online":                event.Online,
			"website_url":           event.WebsiteURL,
			"registration_url":      event.RegistrationURL,
			"canonical_url":         normalize.CanonicalURL(event.WebsiteURL),
			"source":                string(event.Source),
			"dates_synthesized":     event.DatesSynthesized,
			"updated_at":            now,
		}).
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING created_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build update: %w", err)
	}

	var createdAt time.Time
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("update event %s: %w", id, err)
	}

	return &domain.StoredEvent{Event: event, ID: id, CreatedAt: createdAt, UpdatedAt: now}, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *PostgresRepository) scanOne(row rowScanner) (*domain.StoredEvent, error) {
	var (
		stored   domain.StoredEvent
		deadline sql.NullTime
		source   string
		// canonical_url is derived from website_url; discard on read.
		canonical string
	)

	err := row.Scan(
		&stored.ID, &stored.Title, &stored.Description,
		&stored.StartsAt, &stored.EndsAt, &deadline,
		&stored.Location, &stored.Online, &stored.WebsiteURL, &stored.RegistrationURL, &canonical,
		&source, &stored.DatesSynthesized,
		&stored.CreatedAt, &stored.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if deadline.Valid {
		stored.RegistrationDeadline = deadline.Time
	}
	stored.Source = domain.Source(source)

	return &stored, nil
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
