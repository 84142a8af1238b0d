// Package outbox records domain events next to the data they describe and
// publishes them to Kafka from a background poller.
package outbox

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	EventOrderPlaced = "order.placed"
)

var ErrUnknownDriver = errors.New("unknown outbox driver")

//go:embed migrations
var migrations embed.FS

// Event is a single outbox row. ProcessedAt is nil until the event has been
// published.
type Event struct {
	ID          string
	AggregateID string
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

// NewEvent encodes payload as JSON and stamps a fresh id.
func NewEvent(aggregateID, eventType string, payload any) (Event, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("encoding %s payload: %w", eventType, err)
	}
	return Event{
		ID:          uuid.NewString(),
		AggregateID: aggregateID,
		EventType:   eventType,
		Payload:     b,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

type Repository struct {
	db     *sql.DB
	driver string
}

// Open connects to the outbox database. driver is "sqlite" or "postgres".
func Open(ctx context.Context, driver, dsn string) (*Repository, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		// sqlite allows one writer; a single connection also keeps :memory: databases alive.
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s: %w", driver, err)
	}

	return &Repository{db: db, driver: driver}, nil
}

// Migrate applies the embedded migrations for the repository's dialect.
func (r *Repository) Migrate() error {
	src, err := iofs.New(migrations, "migrations/"+r.driver)
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	var target database.Driver
	switch r.driver {
	case DriverSQLite:
		target, err = sqlite.WithInstance(r.db, &sqlite.Config{})
	case DriverPostgres:
		target, err = postgres.WithInstance(r.db, &postgres.Config{})
	}
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, r.driver, target)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) Add(ctx context.Context, e Event) error {
	const q = `INSERT INTO outbox_events (id, aggregate_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, q, e.ID, e.AggregateID, e.EventType, string(e.Payload), e.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to insert outbox event: %w", err)
	}
	return nil
}

// Unprocessed returns up to limit pending events, oldest first.
func (r *Repository) Unprocessed(ctx context.Context, limit int) ([]Event, error) {
	const q = `SELECT id, aggregate_id, event_type, payload, created_at
		FROM outbox_events
		WHERE processed_at IS NULL
		ORDER BY created_at, id
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query outbox: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			e       Event
			created int64
		)
		if err := rows.Scan(&e.ID, &e.AggregateID, &e.EventType, &e.Payload, &created); err != nil {
			return nil, fmt.Errorf("failed to scan outbox event: %w", err)
		}
		e.CreatedAt = time.Unix(0, created).UTC()
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *Repository) MarkProcessed(ctx context.Context, id string) error {
	const q = `UPDATE outbox_events SET processed_at = $1 WHERE id = $2 AND processed_at IS NULL`

	if _, err := r.db.ExecContext(ctx, q, time.Now().UTC().UnixNano(), id); err != nil {
		return fmt.Errorf("failed to mark event %s processed: %w", id, err)
	}
	return nil
}
