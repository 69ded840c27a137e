package refreshworker

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"gridmap/internal/ingest"
	"gridmap/internal/network"
	"gridmap/internal/sqlcgen"
)

// SnapshotParams encodes ds as an insert under a fresh id.
func SnapshotParams(ds *ingest.Dataset, reason string) (sqlcgen.InsertSnapshotParams, error) {
	partitioned, err := json.Marshal(ds.Partitioned)
	if err != nil {
		return sqlcgen.InsertSnapshotParams{}, fmt.Errorf("encode partitioned document: %w", err)
	}
	flat, err := json.Marshal(ds.Flat)
	if err != nil {
		return sqlcgen.InsertSnapshotParams{}, fmt.Errorf("encode flat document: %w", err)
	}
	t := ds.Totals()
	return sqlcgen.InsertSnapshotParams{
		ID:          uuid.NewString(),
		Reason:      reason,
		Substations: int32(t.Substations),
		Lines:       int32(t.Lines),
		Dropped:     int32(t.Dropped),
		Partitioned: partitioned,
		Flat:        flat,
	}, nil
}

// DatasetFromSnapshot restores a stored build. Per-operator dropped counts are
// not stored, so restored stats report zero drops.
func DatasetFromSnapshot(s sqlcgen.NetworkSnapshot) (*ingest.Dataset, error) {
	ds := &ingest.Dataset{
		BuiltAt: s.CreatedAt.UTC(),
		Stats:   map[network.Operator]ingest.Stats{},
	}
	if err := json.Unmarshal(s.Partitioned, &ds.Partitioned); err != nil {
		return nil, fmt.Errorf("decode snapshot %s partitioned document: %w", s.ID, err)
	}
	if err := json.Unmarshal(s.Flat, &ds.Flat); err != nil {
		return nil, fmt.Errorf("decode snapshot %s flat document: %w", s.ID, err)
	}
	for _, op := range network.Operators() {
		sec := ds.Partitioned.Section(op)
		if sec == nil {
			continue
		}
		ds.Stats[op] = ingest.Stats{Substations: len(sec.Substations), Lines: len(sec.Lines)}
	}
	return ds, nil
}
