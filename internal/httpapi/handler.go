package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"gridmap/internal/db"
	"gridmap/internal/ingest"
	"gridmap/internal/mapview"
	"gridmap/internal/metrics"
	"gridmap/internal/network"
	"gridmap/internal/sqlcgen"
	"gridmap/internal/topology"
)

// DatasetSource returns the dataset currently being served, or nil before the
// first build.
type DatasetSource interface {
	Load() *ingest.Dataset
}

type Reloader interface {
	Trigger(reason string) bool
}

type snapshotQueries interface {
	ListSnapshots(ctx context.Context, limit int32) ([]sqlcgen.ListSnapshotsRow, error)
}

type Options struct {
	Variant  network.Variant
	Map      mapview.Options
	Metrics  *metrics.Metrics
	Reloader Reloader
}

type Handler struct {
	log       zerolog.Logger
	pool      *db.Pool
	snapshots snapshotQueries
	current   DatasetSource
	reloader  Reloader
	metrics   *metrics.Metrics
	variant   network.Variant
	mapOpts   mapview.Options

	graphMu  sync.Mutex
	graphFor *ingest.Dataset
	graph    *topology.Graph
}

// NewHandler wires the HTTP surface. pool and current may be nil.
func NewHandler(log zerolog.Logger, pool *db.Pool, current DatasetSource, opts Options) *Handler {
	h := &Handler{
		log:      log,
		pool:     pool,
		current:  current,
		reloader: opts.Reloader,
		metrics:  opts.Metrics,
		variant:  opts.Variant,
		mapOpts:  opts.Map,
	}
	if h.variant == "" {
		h.variant = network.VariantPartitioned
	}
	if h.mapOpts.Tiles.URL == "" {
		h.mapOpts = mapview.DefaultOptions()
	}
	if pool != nil {
		if q := pool.Queries(); q != nil {
			h.snapshots = q
		}
	}
	return h
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Second))
	r.Use(h.accessLog)

	// Page
	r.Get("/", h.handleIndex)
	r.Handle("/static/*", staticHandler())
	r.Get("/network_data", h.handleNetworkData)

	// Health
	r.Get("/healthz", h.handleHealthz)
	r.Get("/readyz", h.handleReadyZ)
	r.Method(http.MethodGet, "/metrics", h.metrics.Handler())

	// API
	r.Route("/api", func(r chi.Router) {
		r.Route("/v1", func(r chi.Router) {
			r.Get("/view", h.handleGetView)
			r.Get("/substations/{name}", h.handleGetSubstation)
			r.Get("/substations/{name}/path", h.handleGetPath)
			r.Post("/network/reload", h.handleReload)
			r.Get("/snapshots", h.handleListSnapshots)
		})
	})

	return r
}

func (h *Handler) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		h.metrics.ObserveHTTPRequest(r.Method, route, ww.Status(), time.Since(start))

		h.log.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Msg("http_request")
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, msg string, details map[string]any) {
	resp := map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": msg,
		},
	}
	if details != nil {
		resp["error"].(map[string]any)["details"] = details
	}
	h.writeJSON(w, status, resp)
}

func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) handleReadyZ(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	ds := h.dataset()
	if ds == nil {
		h.writeError(w, http.StatusServiceUnavailable, "network_unavailable", "network dataset not built yet", nil)
		return
	}

	database := "none"
	if h.pool != nil {
		if err := h.pool.Ping(ctx); err != nil {
			h.writeError(w, http.StatusServiceUnavailable, "db_unavailable", "database not ready", map[string]any{"error": err.Error()})
			return
		}
		database = string(h.pool.Driver())
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"ready":    true,
		"built_at": ds.BuiltAt,
		"database": database,
	})
}

func (h *Handler) dataset() *ingest.Dataset {
	if h.current == nil {
		return nil
	}
	return h.current.Load()
}

// ensureDataset writes a 503 when nothing has been built yet.
func (h *Handler) ensureDataset(w http.ResponseWriter) (*ingest.Dataset, bool) {
	ds := h.dataset()
	if ds == nil {
		h.writeError(w, http.StatusServiceUnavailable, "network_unavailable", "network dataset not built yet", nil)
		return nil, false
	}
	return ds, true
}

func (h *Handler) parseVariant(w http.ResponseWriter, r *http.Request) (network.Variant, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get("variant"))
	if raw == "" {
		return h.variant, true
	}
	v, err := network.ParseVariant(strings.ToLower(raw))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid variant", map[string]any{"variant": raw})
		return "", false
	}
	return v, true
}

func (h *Handler) handleNetworkData(w http.ResponseWriter, r *http.Request) {
	variant, ok := h.parseVariant(w, r)
	if !ok {
		return
	}
	ds, ok := h.ensureDataset(w)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, ds.Document(variant))
}

func (h *Handler) handleReload(w http.ResponseWriter, r *http.Request) {
	if h.reloader == nil {
		h.writeError(w, http.StatusServiceUnavailable, "network_unavailable", "refresh worker not running", nil)
		return
	}
	status := "accepted"
	if !h.reloader.Trigger("manual") {
		status = "pending"
	}
	h.writeJSON(w, http.StatusAccepted, map[string]any{"status": status})
}

const (
	defaultSnapshotLimit = 20
	maxSnapshotLimit     = 200
)

func parseLimitParam(raw string, def, max int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, strconv.ErrRange
	}
	if n > max {
		n = max
	}
	return n, nil
}

type snapshotList struct {
	Snapshots []sqlcgen.ListSnapshotsRow `json:"snapshots"`
}

func (h *Handler) handleListSnapshots(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimitParam(r.URL.Query().Get("limit"), defaultSnapshotLimit, maxSnapshotLimit)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid limit", map[string]any{"error": err.Error()})
		return
	}
	if h.snapshots == nil {
		h.writeError(w, http.StatusServiceUnavailable, "db_unavailable", "database not configured", nil)
		return
	}

	rows, err := h.snapshots.ListSnapshots(r.Context(), int32(limit))
	if err != nil {
		h.log.Error().Err(err).Msg("list snapshots failed")
		h.writeError(w, http.StatusInternalServerError, "db_error", "failed to list snapshots", nil)
		return
	}
	if rows == nil {
		rows = []sqlcgen.ListSnapshotsRow{}
	}
	h.writeJSON(w, http.StatusOK, snapshotList{Snapshots: rows})
}
