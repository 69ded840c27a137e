package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"gridmap/internal/db"
	"gridmap/internal/ingest"
	"gridmap/internal/refreshworker"
)

func requireTestDatabaseURL(t *testing.T) string {
	t.Helper()
	dsn := strings.TrimSpace(os.Getenv("TEST_DATABASE_URL"))
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping Postgres integration test")
	}
	return dsn
}

func mustDeriveDatabaseURL(t *testing.T, baseURL, dbName string) string {
	t.Helper()

	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		t.Skipf("TEST_DATABASE_URL must be a URL-style DSN (e.g. postgres://...); got %q", baseURL)
	}

	u.Path = "/" + dbName
	return u.String()
}

func newTestDatabaseName() string {
	// Letters, digits and underscores only, so it can be used unquoted.
	return fmt.Sprintf("gridmap_test_%d", time.Now().UnixNano())
}

func createDatabase(ctx context.Context, adminURL, dbName string) error {
	adminConn, err := pgx.Connect(ctx, adminURL)
	if err != nil {
		return err
	}
	defer adminConn.Close(ctx)

	_, err = adminConn.Exec(ctx, "CREATE DATABASE "+dbName)
	return err
}

func dropDatabase(ctx context.Context, adminURL, dbName string) error {
	adminConn, err := pgx.Connect(ctx, adminURL)
	if err != nil {
		return err
	}
	defer adminConn.Close(ctx)

	if _, err := adminConn.Exec(ctx, "DROP DATABASE "+dbName+" WITH (FORCE)"); err == nil {
		return nil
	}
	_, err = adminConn.Exec(ctx, "DROP DATABASE "+dbName)
	return err
}

// exerciseSnapshotStore stores two builds through the refresh worker and
// reads them back through the API.
func exerciseSnapshotStore(t *testing.T, pool *db.Pool) {
	t.Helper()
	ctx := context.Background()

	ds := testDataset()
	builder := datasetBuilder{ds: ds}
	cur := &refreshworker.Current{}
	w := refreshworker.New(zerolog.New(io.Discard), builder, cur, pool.Queries(), nil, nil, refreshworker.Options{Retention: 1})
	for _, reason := range []string{"startup", "manual"} {
		if err := w.Refresh(ctx, reason); err != nil {
			t.Fatalf("refresh %s: %v", reason, err)
		}
	}

	h := NewHandler(zerolog.New(io.Discard), pool, cur, Options{})
	srv := httptest.NewServer(h.Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/snapshots")
	if err != nil {
		t.Fatalf("get snapshots: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body snapshotList
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Snapshots) != 1 {
		t.Fatalf("expected retention to keep 1 snapshot, got %d", len(body.Snapshots))
	}
	if got := body.Snapshots[0]; got.Reason != "manual" || got.Substations != 4 || got.Lines != 1 {
		t.Fatalf("unexpected snapshot: %+v", got)
	}

	latest, err := pool.Queries().GetLatestSnapshot(ctx)
	if err != nil {
		t.Fatalf("latest snapshot: %v", err)
	}
	restored, err := refreshworker.DatasetFromSnapshot(latest)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if restored.Partitioned.Transpower == nil || len(restored.Partitioned.Transpower.Substations) != 3 {
		t.Fatalf("unexpected restored dataset: %+v", restored.Partitioned)
	}

	ready, err := http.Get(srv.URL + "/readyz")
	if err != nil {
		t.Fatalf("readyz: %v", err)
	}
	ready.Body.Close()
	if ready.StatusCode != http.StatusOK {
		t.Fatalf("expected readyz 200, got %d", ready.StatusCode)
	}
}

type datasetBuilder struct {
	ds *ingest.Dataset
}

func (b datasetBuilder) Build(context.Context, ingest.Sources) (*ingest.Dataset, error) {
	return b.ds, nil
}

func TestSnapshots_SQLiteIntegration(t *testing.T) {
	ctx := context.Background()
	pool, err := db.Open(ctx, "sqlite://"+filepath.Join(t.TempDir(), "gridmap.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer pool.Close()

	exerciseSnapshotStore(t, pool)
}

func TestSnapshots_PostgresIntegration(t *testing.T) {
	baseURL := requireTestDatabaseURL(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	dbName := newTestDatabaseName()
	if err := createDatabase(ctx, baseURL, dbName); err != nil {
		t.Fatalf("create database: %v", err)
	}
	t.Cleanup(func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := dropDatabase(cleanupCtx, baseURL, dbName); err != nil {
			t.Logf("drop database %s: %v", dbName, err)
		}
	})

	pool, err := db.Open(ctx, mustDeriveDatabaseURL(t, baseURL, dbName))
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	defer pool.Close()

	exerciseSnapshotStore(t, pool)
}
