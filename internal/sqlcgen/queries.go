package sqlcgen

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX matches the minimal interface needed from pgxpool.Pool or pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgx.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}

const insertSnapshot = `-- name: InsertSnapshot :one
INSERT INTO network_snapshots (
  id,
  reason,
  substations,
  lines,
  dropped,
  partitioned,
  flat
)
VALUES ($1::uuid, $2, $3, $4, $5, $6::jsonb, $7::jsonb)
RETURNING id::text, created_at
`

type InsertSnapshotParams struct {
	ID          string
	Reason      string
	Substations int32
	Lines       int32
	Dropped     int32
	Partitioned []byte
	Flat        []byte
}

type InsertSnapshotRow struct {
	ID        string
	CreatedAt time.Time
}

func (q *Queries) InsertSnapshot(ctx context.Context, arg InsertSnapshotParams) (InsertSnapshotRow, error) {
	row := q.db.QueryRow(ctx, insertSnapshot,
		arg.ID,
		arg.Reason,
		arg.Substations,
		arg.Lines,
		arg.Dropped,
		string(arg.Partitioned),
		string(arg.Flat),
	)
	var i InsertSnapshotRow
	err := row.Scan(&i.ID, &i.CreatedAt)
	return i, err
}

const getLatestSnapshot = `-- name: GetLatestSnapshot :one
SELECT id::text,
       created_at,
       reason,
       substations,
       lines,
       dropped,
       partitioned,
       flat
FROM network_snapshots
ORDER BY created_at DESC
LIMIT 1
`

func (q *Queries) GetLatestSnapshot(ctx context.Context) (NetworkSnapshot, error) {
	row := q.db.QueryRow(ctx, getLatestSnapshot)
	var i NetworkSnapshot
	err := row.Scan(
		&i.ID,
		&i.CreatedAt,
		&i.Reason,
		&i.Substations,
		&i.Lines,
		&i.Dropped,
		&i.Partitioned,
		&i.Flat,
	)
	return i, err
}

const listSnapshots = `-- name: ListSnapshots :many
SELECT id::text,
       created_at,
       reason,
       substations,
       lines,
       dropped
FROM network_snapshots
ORDER BY created_at DESC
LIMIT $1
`

type ListSnapshotsRow struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	Reason      string    `json:"reason"`
	Substations int32     `json:"substations"`
	Lines       int32     `json:"lines"`
	Dropped     int32     `json:"dropped"`
}

func (q *Queries) ListSnapshots(ctx context.Context, limit int32) ([]ListSnapshotsRow, error) {
	rows, err := q.db.Query(ctx, listSnapshots, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ListSnapshotsRow
	for rows.Next() {
		var i ListSnapshotsRow
		if err := rows.Scan(
			&i.ID,
			&i.CreatedAt,
			&i.Reason,
			&i.Substations,
			&i.Lines,
			&i.Dropped,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const pruneSnapshots = `-- name: PruneSnapshots :execrows
DELETE FROM network_snapshots
WHERE id NOT IN (
  SELECT id
  FROM network_snapshots
  ORDER BY created_at DESC
  LIMIT $1
)
`

func (q *Queries) PruneSnapshots(ctx context.Context, keep int32) (int64, error) {
	result, err := q.db.Exec(ctx, pruneSnapshots, keep)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
