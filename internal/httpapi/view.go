package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"gridmap/internal/ingest"
	"gridmap/internal/loader"
	"gridmap/internal/mapview"
	"gridmap/internal/network"
	"gridmap/internal/topology"
)

type viewResponse struct {
	mapview.Projection
	Summary mapview.LoadSummary `json:"summary"`
}

// handleGetView builds a map view server-side the same way a browser would:
// the current document goes through the loader, hidden layers are switched
// off through their checkboxes and the focused substation is clicked.
func (h *Handler) handleGetView(w http.ResponseWriter, r *http.Request) {
	variant, ok := h.parseVariant(w, r)
	if !ok {
		return
	}
	ds, ok := h.ensureDataset(w)
	if !ok {
		return
	}

	body, err := json.Marshal(ds.Document(variant))
	if err != nil {
		h.log.Error().Err(err).Msg("encode network document failed")
		h.writeError(w, http.StatusInternalServerError, "network_unavailable", "failed to encode network document", nil)
		return
	}

	view, err := mapview.New(variant, h.log, h.mapOpts)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid variant", map[string]any{"variant": string(variant)})
		return
	}
	summary, err := loader.Populate(h.log, view, bytes.NewReader(body))
	if err != nil {
		h.log.Error().Err(err).Msg("populate view failed")
		h.writeError(w, http.StatusInternalServerError, "network_unavailable", "failed to build map view", nil)
		return
	}

	q := r.URL.Query()
	for _, key := range splitList(q.Get("hidden")) {
		if !view.HideLayer(mapview.LayerKey(key)) {
			h.writeError(w, http.StatusBadRequest, "validation_failed", "unknown layer", map[string]any{
				"layer":  key,
				"layers": view.Layers.Keys(),
			})
			return
		}
	}

	if focus := strings.TrimSpace(q.Get("focus")); focus != "" {
		m, found := view.FindMarker(focus)
		if !found {
			h.writeError(w, http.StatusNotFound, "not_found", "substation not found", map[string]any{"name": focus})
			return
		}
		view.Click(m)
	}

	h.writeJSON(w, http.StatusOK, viewResponse{Projection: view.Projection(), Summary: summary})
}

func (h *Handler) handleGetSubstation(w http.ResponseWriter, r *http.Request) {
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil || strings.TrimSpace(name) == "" {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid substation name", nil)
		return
	}

	var op network.Operator
	if raw := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("operator"))); raw != "" {
		op = network.Operator(raw)
		if !isKnownOperator(op) {
			h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid operator", map[string]any{"operator": raw})
			return
		}
	}

	ds, ok := h.ensureDataset(w)
	if !ok {
		return
	}

	summary, err := h.topology(ds).Summary(op, name)
	if err != nil {
		if errors.Is(err, topology.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "not_found", "substation not found", map[string]any{"name": name})
			return
		}
		h.log.Error().Err(err).Str("name", name).Msg("substation summary failed")
		h.writeError(w, http.StatusInternalServerError, "network_unavailable", "failed to summarise substation", nil)
		return
	}
	h.writeJSON(w, http.StatusOK, summary)
}

// topology returns the connectivity graph of ds, rebuilding it only when the
// served dataset has changed.
func (h *Handler) topology(ds *ingest.Dataset) *topology.Graph {
	h.graphMu.Lock()
	defer h.graphMu.Unlock()
	if h.graph == nil || h.graphFor != ds {
		h.graph = topology.Build(ds.Partitioned)
		h.graphFor = ds
	}
	return h.graph
}

func isKnownOperator(op network.Operator) bool {
	for _, known := range network.Operators() {
		if op == known {
			return true
		}
	}
	return false
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

type pathResponse struct {
	Operator network.Operator `json:"operator"`
	Path     []string         `json:"path"`
}

// handleGetPath returns the shortest chain of substations between two
// substations of one operator.
func (h *Handler) handleGetPath(w http.ResponseWriter, r *http.Request) {
	from, err := url.PathUnescape(chi.URLParam(r, "name"))
	to := strings.TrimSpace(r.URL.Query().Get("to"))
	if err != nil || strings.TrimSpace(from) == "" || to == "" {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "from and to substations are required", nil)
		return
	}
	op := network.Operator(strings.ToLower(strings.TrimSpace(r.URL.Query().Get("operator"))))
	if op == "" {
		op = network.Transpower
	}
	if !isKnownOperator(op) {
		h.writeError(w, http.StatusBadRequest, "validation_failed", "invalid operator", map[string]any{"operator": string(op)})
		return
	}

	ds, ok := h.ensureDataset(w)
	if !ok {
		return
	}
	path := h.topology(ds).Path(op, from, to)
	if path == nil {
		h.writeError(w, http.StatusNotFound, "not_found", "no path between substations", map[string]any{"from": from, "to": to})
		return
	}
	h.writeJSON(w, http.StatusOK, pathResponse{Operator: op, Path: path})
}
