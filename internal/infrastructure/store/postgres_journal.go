package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const uniqueViolation = "23505"

// PostgresJournal stores events in PostgreSQL. The (aggregate_id, version)
// unique constraint turns racing appends into ErrVersionConflict.
type PostgresJournal struct {
	db        *sql.DB
	publisher Publisher
}

func NewPostgresJournal(db *sql.DB, publisher Publisher) *PostgresJournal {
	return &PostgresJournal{db: db, publisher: publisher}
}

// Append stores an event in PostgreSQL and publishes it.
func (j *PostgresJournal) Append(ctx context.Context, aggregateID, aggregateType, eventType string, data any) (*Event, error) {
	var current int
	err := j.db.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(version), 0) FROM events WHERE aggregate_id = $1",
		aggregateID,
	).Scan(&current)
	if err != nil {
		return nil, fmt.Errorf("read journal version: %w", err)
	}

	event, err := newEvent(uuid.NewString(), aggregateID, aggregateType, eventType, data, current+1, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", eventType, err)
	}

	_, err = j.db.ExecContext(ctx,
		`INSERT INTO events (id, aggregate_id, aggregate_type, event_type, data, version, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		event.ID, event.AggregateID, event.AggregateType, event.EventType,
		[]byte(event.Data), event.Version, event.Timestamp,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, ErrVersionConflict
		}
		return nil, fmt.Errorf("insert event: %w", err)
	}

	if j.publisher != nil {
		if err := j.publisher.Publish(ctx, aggregateID, event); err != nil {
			return &event, fmt.Errorf("publish %s: %w", eventType, err)
		}
	}
	return &event, nil
}

func (j *PostgresJournal) Events(ctx context.Context, aggregateID string) ([]Event, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, aggregate_id, aggregate_type, event_type, data, version, created_at
		 FROM events
		 WHERE aggregate_id = $1
		 ORDER BY version ASC`,
		aggregateID,
	)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.AggregateID, &e.AggregateType, &e.EventType, &e.Data, &e.Version, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// ConnectPostgres opens a pooled connection and verifies it.
func ConnectPostgres(ctx context.Context, connStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}

// MigratePostgres applies the embedded journal migrations.
func MigratePostgres(db *sql.DB) error {
	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}
