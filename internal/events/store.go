package events

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore persists domain events in PostgreSQL.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore constructs the Postgres-backed event store.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// InsertEvent appends one event row and returns the stored record.
func (s *PGStore) InsertEvent(ctx context.Context, topic string, aggregateID uuid.UUID, payload []byte) (Event, error) {
	if s == nil || s.pool == nil {
		return Event{}, errors.New("events store not initialised")
	}
	const query = `
INSERT INTO domain_events (id, topic, aggregate_id, payload)
VALUES ($1, $2, $3, $4)
RETURNING id, topic, aggregate_id, payload, occurred_at`
	var ev Event
	err := s.pool.QueryRow(ctx, query, uuid.New(), topic, aggregateID, payload).Scan(
		&ev.ID, &ev.Topic, &ev.AggregateID, &ev.Payload, &ev.OccurredAt,
	)
	if err != nil {
		return Event{}, err
	}
	return ev, nil
}
