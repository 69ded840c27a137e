package sqlcgen

import (
	"context"
	"database/sql"
	"time"
)

// SQLiteDBTX is the database/sql counterpart of DBTX.
type SQLiteDBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLiteQueries runs the snapshot queries against an embedded SQLite file.
// Timestamps are stored as fixed-width UTC text so they sort lexically.
type SQLiteQueries struct {
	db  SQLiteDBTX
	now func() time.Time
}

func NewSQLite(db SQLiteDBTX) *SQLiteQueries {
	return &SQLiteQueries{db: db, now: time.Now}
}

const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

const sqliteInsertSnapshot = `-- name: InsertSnapshot :exec
INSERT INTO network_snapshots (
  id,
  created_at,
  reason,
  substations,
  lines,
  dropped,
  partitioned,
  flat
)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`

func (q *SQLiteQueries) InsertSnapshot(ctx context.Context, arg InsertSnapshotParams) (InsertSnapshotRow, error) {
	created := q.now().UTC()
	_, err := q.db.ExecContext(ctx, sqliteInsertSnapshot,
		arg.ID,
		created.Format(sqliteTimeLayout),
		arg.Reason,
		arg.Substations,
		arg.Lines,
		arg.Dropped,
		string(arg.Partitioned),
		string(arg.Flat),
	)
	if err != nil {
		return InsertSnapshotRow{}, err
	}
	return InsertSnapshotRow{ID: arg.ID, CreatedAt: created}, nil
}

const sqliteGetLatestSnapshot = `-- name: GetLatestSnapshot :one
SELECT id, created_at, reason, substations, lines, dropped, partitioned, flat
FROM network_snapshots
ORDER BY created_at DESC, rowid DESC
LIMIT 1
`

func (q *SQLiteQueries) GetLatestSnapshot(ctx context.Context) (NetworkSnapshot, error) {
	row := q.db.QueryRowContext(ctx, sqliteGetLatestSnapshot)
	var (
		i                 NetworkSnapshot
		created           string
		partitioned, flat string
	)
	if err := row.Scan(&i.ID, &created, &i.Reason, &i.Substations, &i.Lines, &i.Dropped, &partitioned, &flat); err != nil {
		return NetworkSnapshot{}, err
	}
	t, err := time.Parse(sqliteTimeLayout, created)
	if err != nil {
		return NetworkSnapshot{}, err
	}
	i.CreatedAt = t
	i.Partitioned = []byte(partitioned)
	i.Flat = []byte(flat)
	return i, nil
}

const sqliteListSnapshots = `-- name: ListSnapshots :many
SELECT id, created_at, reason, substations, lines, dropped
FROM network_snapshots
ORDER BY created_at DESC, rowid DESC
LIMIT ?
`

func (q *SQLiteQueries) ListSnapshots(ctx context.Context, limit int32) ([]ListSnapshotsRow, error) {
	rows, err := q.db.QueryContext(ctx, sqliteListSnapshots, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ListSnapshotsRow
	for rows.Next() {
		var (
			i       ListSnapshotsRow
			created string
		)
		if err := rows.Scan(&i.ID, &created, &i.Reason, &i.Substations, &i.Lines, &i.Dropped); err != nil {
			return nil, err
		}
		if i.CreatedAt, err = time.Parse(sqliteTimeLayout, created); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const sqlitePruneSnapshots = `-- name: PruneSnapshots :execrows
DELETE FROM network_snapshots
WHERE id NOT IN (
  SELECT id
  FROM network_snapshots
  ORDER BY created_at DESC, rowid DESC
  LIMIT ?
)
`

func (q *SQLiteQueries) PruneSnapshots(ctx context.Context, keep int32) (int64, error) {
	result, err := q.db.ExecContext(ctx, sqlitePruneSnapshots, keep)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
