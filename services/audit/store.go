package audit

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"

	"seatrail/pkg/db"
)

const maxRecent = 500

// Store persists and lists audit entries.
type Store interface {
	Insert(ctx context.Context, e Entry) error
	Recent(ctx context.Context, limit int) ([]Entry, error)
}

// PGStore reads and writes the audit table through pgx.
type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) (*PGStore, error) {
	if pool == nil {
		return nil, errors.New("database pool is required")
	}
	return &PGStore{pool: pool}, nil
}

func (s *PGStore) Insert(ctx context.Context, e Entry) error {
	details, err := json.Marshal(e.Details)
	if err != nil {
		return err
	}
	_, err = db.Exec(ctx, s.pool, `
INSERT INTO audit (actor, action, obj, details, at)
VALUES ($1, $2, $3, $4::jsonb, $5)
`, e.Actor, e.Action, e.Obj, details, e.At)
	return err
}

// Recent returns the newest entries first.
func (s *PGStore) Recent(ctx context.Context, limit int) ([]Entry, error) {
	limit = clampLimit(limit)
	var out []Entry
	err := db.Select(ctx, s.pool, &out, `
SELECT id, actor, action, obj, details, at
FROM audit
ORDER BY at DESC, id DESC
LIMIT $1
`, limit)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return 50
	case limit > maxRecent:
		return maxRecent
	}
	return limit
}
