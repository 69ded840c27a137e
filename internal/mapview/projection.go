package mapview

import "gridmap/internal/network"

type Projection struct {
	Variant network.Variant   `json:"variant"`
	Center  network.LatLon    `json:"center"`
	Zoom    int               `json:"zoom"`
	Tiles   TileLayer         `json:"tiles"`
	Layers  []LayerProjection `json:"layers"`
	Panel   PanelProjection   `json:"panel"`
}

type LayerProjection struct {
	Key     LayerKey    `json:"key"`
	Visible bool        `json:"visible"`
	Markers []*Marker   `json:"markers"`
	Lines   []*Polyline `json:"lines"`
}

type PanelProjection struct {
	ElementID  string              `json:"element_id"`
	State      string              `json:"state"`
	HTML       string              `json:"html,omitempty"`
	Substation *network.Substation `json:"substation,omitempty"`
}

// Projection snapshots the view for serialization. Hidden layers are kept
// with their features so a client can restore them without refetching.
func (v *MapView) Projection() Projection {
	p := Projection{
		Variant: v.Variant,
		Center:  v.Options.Center,
		Zoom:    v.Options.Zoom,
		Tiles:   v.Options.Tiles,
		Layers:  make([]LayerProjection, 0, len(v.Layers.Keys())),
		Panel: PanelProjection{
			ElementID: v.Panel.ElementID(),
			State:     v.Panel.State().String(),
			HTML:      v.Panel.HTML(),
		},
	}
	if s, ok := v.Panel.Current(); ok {
		p.Panel.Substation = &s
	}

	for _, k := range v.Layers.Keys() {
		lp := LayerProjection{
			Key:     k,
			Visible: v.Layers.Visible(k),
			Markers: []*Marker{},
			Lines:   []*Polyline{},
		}
		for _, f := range v.Layers.Features(k) {
			switch feat := f.(type) {
			case *Marker:
				lp.Markers = append(lp.Markers, feat)
			case *Polyline:
				lp.Lines = append(lp.Lines, feat)
			}
		}
		p.Layers = append(p.Layers, lp)
	}
	return p
}
