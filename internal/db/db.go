package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "modernc.org/sqlite"

	"gridmap/internal/sqlcgen"
)

var ErrNoDatabase = errors.New("no database url configured")

// Store is the snapshot query surface shared by the Postgres and SQLite
// backends.
type Store interface {
	InsertSnapshot(ctx context.Context, arg sqlcgen.InsertSnapshotParams) (sqlcgen.InsertSnapshotRow, error)
	GetLatestSnapshot(ctx context.Context) (sqlcgen.NetworkSnapshot, error)
	ListSnapshots(ctx context.Context, limit int32) ([]sqlcgen.ListSnapshotsRow, error)
	PruneSnapshots(ctx context.Context, keep int32) (int64, error)
}

type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverSQLite   Driver = "sqlite"
)

type Pool struct {
	driver  Driver
	pool    *pgxpool.Pool
	sqlite  *sql.DB
	queries Store
}

// Open connects to databaseURL and makes sure the snapshot table exists.
// postgres:// and postgresql:// URLs use pgx; sqlite://<path>, file: DSNs
// and bare *.db paths use the embedded SQLite driver.
func Open(ctx context.Context, databaseURL string) (*Pool, error) {
	databaseURL = strings.TrimSpace(databaseURL)
	if databaseURL == "" {
		return nil, ErrNoDatabase
	}

	driver, dsn, err := parseURL(databaseURL)
	if err != nil {
		return nil, err
	}
	switch driver {
	case DriverPostgres:
		return openPostgres(ctx, dsn)
	default:
		return openSQLite(ctx, dsn)
	}
}

func parseURL(u string) (Driver, string, error) {
	switch {
	case strings.HasPrefix(u, "postgres://"), strings.HasPrefix(u, "postgresql://"):
		return DriverPostgres, u, nil
	case strings.HasPrefix(u, "sqlite://"):
		path := strings.TrimPrefix(u, "sqlite://")
		if path == "" {
			return "", "", fmt.Errorf("sqlite url %q has no path", u)
		}
		return DriverSQLite, path, nil
	case strings.HasPrefix(u, "file:"), strings.HasSuffix(u, ".db"), strings.HasSuffix(u, ".sqlite"):
		return DriverSQLite, u, nil
	default:
		return "", "", fmt.Errorf("unsupported database url %q", u)
	}
}

func openPostgres(ctx context.Context, dsn string) (*Pool, error) {
	p, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}

	// Verify connectivity early.
	if err := p.Ping(ctx); err != nil {
		p.Close()
		return nil, err
	}
	if _, err := p.Exec(ctx, postgresSchema); err != nil {
		p.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return &Pool{driver: DriverPostgres, pool: p, queries: sqlcgen.New(p)}, nil
}

func openSQLite(ctx context.Context, dsn string) (*Pool, error) {
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// SQLite allows a single writer.
	conn.SetMaxOpenConns(1)

	if _, err := conn.ExecContext(ctx, sqliteSchema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	return &Pool{driver: DriverSQLite, sqlite: conn, queries: sqlcgen.NewSQLite(conn)}, nil
}

func (p *Pool) Driver() Driver {
	if p == nil {
		return ""
	}
	return p.driver
}

// Queries returns the backend's snapshot queries, or nil for a nil pool.
func (p *Pool) Queries() Store {
	if p == nil {
		return nil
	}
	return p.queries
}

func (p *Pool) Close() {
	if p == nil {
		return
	}
	if p.pool != nil {
		p.pool.Close()
	}
	if p.sqlite != nil {
		_ = p.sqlite.Close()
	}
}

func (p *Pool) Ping(ctx context.Context) error {
	if p == nil {
		return nil
	}
	if p.pool != nil {
		return p.pool.Ping(ctx)
	}
	if p.sqlite != nil {
		return p.sqlite.PingContext(ctx)
	}
	return nil
}

// IsNotFound reports whether err is the "no rows" error of either backend.
func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows)
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS network_snapshots (
  id uuid PRIMARY KEY,
  created_at timestamptz NOT NULL DEFAULT now(),
  reason text NOT NULL,
  substations integer NOT NULL,
  lines integer NOT NULL,
  dropped integer NOT NULL,
  partitioned jsonb NOT NULL,
  flat jsonb NOT NULL
);
CREATE INDEX IF NOT EXISTS network_snapshots_created_at_idx ON network_snapshots (created_at DESC);
`

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS network_snapshots (
  id TEXT PRIMARY KEY,
  created_at TEXT NOT NULL,
  reason TEXT NOT NULL,
  substations INTEGER NOT NULL,
  lines INTEGER NOT NULL,
  dropped INTEGER NOT NULL,
  partitioned TEXT NOT NULL,
  flat TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_network_snapshots_created_at ON network_snapshots(created_at);
`
