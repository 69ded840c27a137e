package mapview

import (
	"fmt"

	"gridmap/internal/network"
)

type LayerKey string

const (
	// LinesLayer holds every line in the flat view.
	LinesLayer LayerKey = "lines"

	KindSubstations = "substations"
	KindLines       = "lines"
)

// OperatorLayer is the key of an operator's substations or lines group.
func OperatorLayer(op network.Operator, kind string) LayerKey {
	return LayerKey(string(op) + "/" + kind)
}

type layer struct {
	features []Feature
	visible  bool
}

// Registry owns the overlay groups of one map view and whether each is
// currently on the map. Keys are fixed when the view is built; passing an
// unknown key is a programming error and panics.
type Registry struct {
	order  []LayerKey
	layers map[LayerKey]*layer
}

func NewRegistry() *Registry {
	return &Registry{layers: make(map[LayerKey]*layer)}
}

// CreateLayers allocates one empty, visible group per key. Keys that already
// exist are left as they are.
func (r *Registry) CreateLayers(keys ...LayerKey) {
	for _, k := range keys {
		if _, ok := r.layers[k]; ok {
			continue
		}
		r.layers[k] = &layer{visible: true}
		r.order = append(r.order, k)
	}
}

func (r *Registry) AddFeature(key LayerKey, f Feature) {
	l := r.mustGet(key)
	l.features = append(l.features, f)
}

// SetVisible adds or removes the group from the map. It reports whether the
// state changed; repeating the current state is a no-op.
func (r *Registry) SetVisible(key LayerKey, visible bool) bool {
	l := r.mustGet(key)
	if l.visible == visible {
		return false
	}
	l.visible = visible
	return true
}

func (r *Registry) Visible(key LayerKey) bool {
	return r.mustGet(key).visible
}

func (r *Registry) Has(key LayerKey) bool {
	_, ok := r.layers[key]
	return ok
}

// Features returns a copy of the group's members regardless of visibility.
func (r *Registry) Features(key LayerKey) []Feature {
	l := r.mustGet(key)
	out := make([]Feature, len(l.features))
	copy(out, l.features)
	return out
}

func (r *Registry) Len(key LayerKey) int {
	return len(r.mustGet(key).features)
}

func (r *Registry) Keys() []LayerKey {
	out := make([]LayerKey, len(r.order))
	copy(out, r.order)
	return out
}

// VisibleFeatures is everything currently drawn on the map, in layer order.
func (r *Registry) VisibleFeatures() []Feature {
	var out []Feature
	for _, k := range r.order {
		l := r.layers[k]
		if !l.visible {
			continue
		}
		out = append(out, l.features...)
	}
	return out
}

func (r *Registry) mustGet(key LayerKey) *layer {
	l, ok := r.layers[key]
	if !ok {
		panic(fmt.Sprintf("mapview: unknown layer %q", key))
	}
	return l
}
