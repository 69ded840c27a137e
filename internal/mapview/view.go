// Package mapview models one rendered network map: its overlay layers, the
// substation info panel and the checkbox-driven visibility rules. Everything
// is driven through typed events so the behaviour can be exercised without a
// browser.
package mapview

import (
	"fmt"

	"github.com/rs/zerolog"

	"gridmap/internal/network"
	"gridmap/internal/voltage"
)

const (
	DefaultTileURL     = "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png"
	DefaultAttribution = "© OpenStreetMap contributors"
)

type TileLayer struct {
	URL         string `json:"url"`
	Attribution string `json:"attribution"`
}

type Options struct {
	Center network.LatLon
	Zoom   int
	Tiles  TileLayer
}

// DefaultOptions centers the map on New Zealand.
func DefaultOptions() Options {
	return Options{
		Center: network.LatLon{Lat: -40.9006, Lon: 174.8860},
		Zoom:   6,
		Tiles:  TileLayer{URL: DefaultTileURL, Attribution: DefaultAttribution},
	}
}

// MapView is the context shared by the loader and the controllers of one map.
// It is not safe for concurrent use; events are expected to arrive one at a
// time.
type MapView struct {
	Variant network.Variant
	Options Options
	Layers  *Registry
	Panel   *InfoPanel
	Events  *Events

	log zerolog.Logger
}

func New(variant network.Variant, log zerolog.Logger, opts Options) (*MapView, error) {
	switch variant {
	case network.VariantFlat:
		return NewFlat(log, opts), nil
	case network.VariantPartitioned:
		return NewPartitioned(log, opts), nil
	default:
		return nil, fmt.Errorf("unknown variant %q", variant)
	}
}

// NewFlat builds the single-set view: one layer per voltage level plus the
// lines layer, with the info panel opened by marker clicks.
func NewFlat(log zerolog.Logger, opts Options) *MapView {
	v := newView(network.VariantFlat, log, opts, NewInfoPanel(FlatPanelID, false))
	for _, level := range voltage.Levels() {
		v.Layers.CreateLayers(LayerKey(level))
	}
	v.Layers.CreateLayers(LinesLayer)
	WireFlatControls(v)
	return v
}

// NewPartitioned builds the per-operator view. A click on the map background
// hides the info panel.
func NewPartitioned(log zerolog.Logger, opts Options) *MapView {
	v := newView(network.VariantPartitioned, log, opts, NewInfoPanel(PartitionedPanelID, true))
	for _, op := range network.Operators() {
		v.Layers.CreateLayers(OperatorLayer(op, KindSubstations), OperatorLayer(op, KindLines))
	}
	WirePartitionedControls(v)
	v.Events.OnMapClicked(func(MapClicked) {
		v.Panel.Hide()
	})
	return v
}

func newView(variant network.Variant, log zerolog.Logger, opts Options, panel *InfoPanel) *MapView {
	v := &MapView{
		Variant: variant,
		Options: opts,
		Layers:  NewRegistry(),
		Panel:   panel,
		Events:  &Events{},
		log:     log.With().Str("component", "mapview").Str("variant", string(variant)).Logger(),
	}
	v.Events.OnMarkerClicked(func(ev MarkerClicked) {
		if ev.Marker == nil {
			return
		}
		v.Panel.Show(ev.Marker.Substation)
	})
	return v
}

// Toggle dispatches a checkbox change.
func (v *MapView) Toggle(ev CheckboxToggled) {
	v.Events.Dispatch(ev)
}

// Click dispatches a marker click.
func (v *MapView) Click(m *Marker) {
	v.Events.Dispatch(MarkerClicked{Marker: m})
}

// ClickMap dispatches a click on the map background.
func (v *MapView) ClickMap(at network.LatLon) {
	v.Events.Dispatch(MapClicked{At: at})
}

// FindMarker returns the first marker whose substation has the given name.
func (v *MapView) FindMarker(name string) (*Marker, bool) {
	for _, k := range v.Layers.Keys() {
		for _, f := range v.Layers.Features(k) {
			m, ok := f.(*Marker)
			if ok && m.Substation.Name == name {
				return m, true
			}
		}
	}
	return nil, false
}

// HideLayer toggles off the control that owns key, so the same rules apply
// as for a user click.
func (v *MapView) HideLayer(key LayerKey) bool {
	if !v.Layers.Has(key) {
		return false
	}
	switch v.Variant {
	case network.VariantFlat:
		if key == LinesLayer {
			v.Toggle(CheckboxToggled{Name: ComponentControl, Value: ComponentLines})
		} else {
			v.Toggle(CheckboxToggled{Name: VoltageControl, Value: string(key)})
		}
	default:
		for _, op := range network.Operators() {
			for _, kind := range []string{KindSubstations, KindLines} {
				if OperatorLayer(op, kind) == key {
					v.Toggle(CheckboxToggled{ID: ControlID(op, kind)})
				}
			}
		}
	}
	return true
}
