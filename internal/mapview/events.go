package mapview

import "gridmap/internal/network"

// Event is one of the typed UI events a map view reacts to.
type Event interface {
	eventName() string
}

// CheckboxToggled mirrors a change event on a layer control. Variant-one
// controls are identified by Name/Value, variant-two controls by ID.
type CheckboxToggled struct {
	ID      string
	Name    string
	Value   string
	Checked bool
}

type MarkerClicked struct {
	Marker *Marker
}

type MapClicked struct {
	At network.LatLon
}

// LoadSummary describes the outcome of one network data load.
type LoadSummary struct {
	Markers int      `json:"markers"`
	Lines   int      `json:"lines"`
	Dropped int      `json:"dropped"`
	Skipped int      `json:"skipped"`
	Missing []string `json:"missing"`
	Err     error    `json:"-"`
}

type FetchCompleted struct {
	Summary LoadSummary
}

func (CheckboxToggled) eventName() string { return "checkbox_toggled" }
func (MarkerClicked) eventName() string   { return "marker_clicked" }
func (MapClicked) eventName() string      { return "map_clicked" }
func (FetchCompleted) eventName() string  { return "fetch_completed" }

// Events is the view's event source. Dispatch is synchronous: handlers run
// in registration order before Dispatch returns.
type Events struct {
	checkbox []func(CheckboxToggled)
	marker   []func(MarkerClicked)
	mapClick []func(MapClicked)
	fetch    []func(FetchCompleted)
}

func (e *Events) OnCheckboxToggled(fn func(CheckboxToggled)) {
	e.checkbox = append(e.checkbox, fn)
}

func (e *Events) OnMarkerClicked(fn func(MarkerClicked)) {
	e.marker = append(e.marker, fn)
}

func (e *Events) OnMapClicked(fn func(MapClicked)) {
	e.mapClick = append(e.mapClick, fn)
}

func (e *Events) OnFetchCompleted(fn func(FetchCompleted)) {
	e.fetch = append(e.fetch, fn)
}

func (e *Events) Dispatch(ev Event) {
	switch v := ev.(type) {
	case CheckboxToggled:
		for _, fn := range e.checkbox {
			fn(v)
		}
	case MarkerClicked:
		for _, fn := range e.marker {
			fn(v)
		}
	case MapClicked:
		for _, fn := range e.mapClick {
			fn(v)
		}
	case FetchCompleted:
		for _, fn := range e.fetch {
			fn(v)
		}
	}
}
