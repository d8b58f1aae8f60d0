package audit

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore persists audit entries in PostgreSQL.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore constructs the Postgres-backed audit store.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// InsertEntry writes one audit row.
func (s *PGStore) InsertEntry(ctx context.Context, e Entry) error {
	if s == nil || s.pool == nil {
		return errors.New("audit store not initialised")
	}
	const query = `
INSERT INTO audit_logs
  (id, owner_id, action, resource_type, resource_id, method, route, ip, request_id, metadata)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, COALESCE($10, '{}'::jsonb))`
	var metadata any
	if len(e.Metadata) > 0 {
		metadata = e.Metadata
	}
	_, err := s.pool.Exec(ctx, query,
		e.ID, e.OwnerID, e.Action, e.ResourceType, e.ResourceID,
		e.Method, e.Route, e.IP, e.RequestID, metadata,
	)
	return err
}

// ListEntries returns the owner's audit rows, newest first.
func (s *PGStore) ListEntries(ctx context.Context, ownerID uuid.UUID, limit, offset int32) ([]Entry, error) {
	if s == nil || s.pool == nil {
		return nil, errors.New("audit store not initialised")
	}
	const query = `
SELECT id, owner_id, action, resource_type, resource_id, method, route, ip, request_id, metadata, occurred_at
FROM audit_logs
WHERE owner_id = $1
ORDER BY occurred_at DESC
LIMIT $2 OFFSET $3`
	rows, err := s.pool.Query(ctx, query, ownerID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.OwnerID, &e.Action, &e.ResourceType, &e.ResourceID,
			&e.Method, &e.Route, &e.IP, &e.RequestID, &e.Metadata, &e.OccurredAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
