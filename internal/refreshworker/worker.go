package refreshworker

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"gridmap/internal/ingest"
	"gridmap/internal/metrics"
	"gridmap/internal/network"
	"gridmap/internal/publisher"
	"gridmap/internal/sqlcgen"
)

// Builder produces a dataset from the source files. *ingest.Builder
// satisfies this.
type Builder interface {
	Build(ctx context.Context, src ingest.Sources) (*ingest.Dataset, error)
}

// Queries is the minimal snapshot store the worker needs. db.Store satisfies
// this.
type Queries interface {
	InsertSnapshot(ctx context.Context, arg sqlcgen.InsertSnapshotParams) (sqlcgen.InsertSnapshotRow, error)
	PruneSnapshots(ctx context.Context, keep int32) (int64, error)
}

type Notifier interface {
	PublishSnapshot(n publisher.Notice) error
}

// Current holds the dataset being served. Readers never block the worker.
type Current struct {
	ds atomic.Pointer[ingest.Dataset]
}

// Load returns the served dataset, or nil before the first successful build.
func (c *Current) Load() *ingest.Dataset {
	if c == nil {
		return nil
	}
	return c.ds.Load()
}

func (c *Current) Store(ds *ingest.Dataset) {
	c.ds.Store(ds)
}

type Options struct {
	PollInterval time.Duration
	Sources      ingest.Sources
	// Retention is the number of snapshots kept after each insert; zero
	// keeps everything.
	Retention int
}

type Worker struct {
	log          zerolog.Logger
	builder      Builder
	current      *Current
	q            Queries
	notifier     Notifier
	metrics      *metrics.Metrics
	pollInterval time.Duration
	sources      ingest.Sources
	retention    int

	trigger chan string

	mu          sync.Mutex
	fingerprint string
	status      Status
}

// Status describes the outcome of recent refreshes.
type Status struct {
	LastSuccess         time.Time `json:"last_success,omitempty"`
	LastAttempt         time.Time `json:"last_attempt,omitempty"`
	LastError           string    `json:"last_error,omitempty"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
}

// New wires a worker. q, notifier and m may be nil.
func New(log zerolog.Logger, b Builder, cur *Current, q Queries, notifier Notifier, m *metrics.Metrics, opts Options) *Worker {
	pi := opts.PollInterval
	if pi <= 0 {
		pi = 5 * time.Minute
	}
	retention := opts.Retention
	if retention < 0 {
		retention = 0
	}
	return &Worker{
		log:          log.With().Str("component", "refreshworker").Logger(),
		builder:      b,
		current:      cur,
		q:            q,
		notifier:     notifier,
		metrics:      m,
		pollInterval: pi,
		sources:      opts.Sources,
		retention:    retention,
		trigger:      make(chan string, 1),
	}
}

// Trigger asks Run for a rebuild. It never blocks; false means a rebuild is
// already pending.
func (w *Worker) Trigger(reason string) bool {
	if w == nil {
		return false
	}
	select {
	case w.trigger <- reason:
		return true
	default:
		return false
	}
}

// Run polls the source files until ctx is done, rebuilding when they change
// or when triggered. Failed rebuilds back off and keep the previous dataset.
func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.builder == nil {
		return
	}

	timer := time.NewTimer(w.pollInterval)
	defer timer.Stop()

	var consecutiveFailures int
	for {
		var reason string
		select {
		case <-ctx.Done():
			return
		case reason = <-w.trigger:
		case <-timer.C:
			if w.sourcesChanged() {
				reason = "poll"
			}
		}

		if reason != "" {
			if err := w.Refresh(ctx, reason); err != nil {
				consecutiveFailures++
			} else {
				consecutiveFailures = 0
			}
		}

		timer.Reset(backoffDuration(w.pollInterval, consecutiveFailures))
	}
}

func backoffDuration(base time.Duration, failures int) time.Duration {
	if base <= 0 {
		base = 5 * time.Minute
	}
	if failures <= 0 {
		return base
	}

	// Exponential-ish backoff: base * 2^failures, capped.
	if failures > 6 {
		failures = 6
	}
	d := base * time.Duration(1<<failures)
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

const maxBackoff = time.Hour

// Refresh rebuilds the dataset now. On success the new dataset is served,
// stored as a snapshot and announced; snapshot and notice failures are only
// logged.
func (w *Worker) Refresh(ctx context.Context, reason string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	fp := fingerprint(w.sources)
	start := time.Now()
	w.status.LastAttempt = start.UTC()

	ds, err := w.builder.Build(ctx, w.sources)
	w.metrics.ObserveBuild(err == nil, time.Since(start))
	if err != nil {
		w.status.LastError = err.Error()
		w.status.ConsecutiveFailures++
		w.log.Error().Err(err).Str("reason", reason).Msg("network rebuild failed; keeping previous dataset")
		return fmt.Errorf("rebuild (%s): %w", reason, err)
	}

	w.current.Store(ds)
	w.fingerprint = fp
	w.status.LastSuccess = ds.BuiltAt
	w.status.LastError = ""
	w.status.ConsecutiveFailures = 0

	// Operators absent from this build report zero features.
	for _, op := range network.Operators() {
		s := ds.Stats[op]
		w.metrics.SetFeatures(string(op), s.Substations, s.Lines)
		w.metrics.AddDroppedLines(string(op), s.Dropped)
	}

	id := w.saveSnapshot(ctx, ds, reason)
	w.notify(ds, id, reason)

	w.log.Info().
		Str("reason", reason).
		Str("snapshot_id", id).
		Dur("duration", time.Since(start)).
		Msg("network dataset refreshed")
	return nil
}

func (w *Worker) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status
}

func (w *Worker) saveSnapshot(ctx context.Context, ds *ingest.Dataset, reason string) string {
	if w.q == nil {
		return ""
	}
	params, err := SnapshotParams(ds, reason)
	if err != nil {
		w.log.Error().Err(err).Msg("failed to encode snapshot")
		return ""
	}
	row, err := w.q.InsertSnapshot(ctx, params)
	if err != nil {
		w.log.Error().Err(err).Msg("failed to store snapshot")
		return ""
	}
	if w.retention > 0 {
		if n, err := w.q.PruneSnapshots(ctx, int32(w.retention)); err != nil {
			w.log.Warn().Err(err).Msg("failed to prune snapshots")
		} else if n > 0 {
			w.log.Debug().Int64("pruned", n).Msg("pruned old snapshots")
		}
	}
	return row.ID
}

func (w *Worker) notify(ds *ingest.Dataset, snapshotID, reason string) {
	if w.notifier == nil {
		return
	}
	if err := w.notifier.PublishSnapshot(NoticeFor(ds, snapshotID, reason)); err != nil {
		w.log.Warn().Err(err).Msg("failed to publish snapshot notice")
	}
}

// NoticeFor summarises ds for subscribers.
func NoticeFor(ds *ingest.Dataset, snapshotID, reason string) publisher.Notice {
	t := ds.Totals()
	n := publisher.Notice{
		SnapshotID:  snapshotID,
		Reason:      reason,
		BuiltAt:     ds.BuiltAt,
		Substations: t.Substations,
		Lines:       t.Lines,
		Dropped:     t.Dropped,
		Operators:   make(map[string]publisher.OperatorStat, len(ds.Stats)),
	}
	for op, s := range ds.Stats {
		n.Operators[string(op)] = publisher.OperatorStat{
			Substations: s.Substations,
			Lines:       s.Lines,
			Dropped:     s.Dropped,
		}
	}
	return n
}

func (w *Worker) sourcesChanged() bool {
	fp := fingerprint(w.sources)
	w.mu.Lock()
	defer w.mu.Unlock()
	return fp != w.fingerprint
}

// fingerprint identifies the current state of every source file by size and
// modification time. Missing files are part of the state.
func fingerprint(src ingest.Sources) string {
	var b strings.Builder
	for _, p := range src.Paths() {
		b.WriteString(p)
		b.WriteByte('|')
		fi, err := os.Stat(p)
		if err != nil {
			b.WriteString("missing")
		} else {
			fmt.Fprintf(&b, "%d:%d", fi.Size(), fi.ModTime().UnixNano())
		}
		b.WriteByte('\n')
	}
	return b.String()
}
