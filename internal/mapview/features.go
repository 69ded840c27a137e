package mapview

import (
	"html"
	"strings"

	"github.com/google/uuid"

	"gridmap/internal/network"
	"gridmap/internal/voltage"
)

type FeatureKind string

const (
	KindMarker   FeatureKind = "marker"
	KindPolyline FeatureKind = "polyline"
)

// Feature is anything that can be placed in a layer.
type Feature interface {
	FeatureID() string
	Kind() FeatureKind
}

type PopupField struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

type Popup struct {
	Title  string       `json:"title"`
	Fields []PopupField `json:"fields,omitempty"`
}

// HTML renders the popup as escaped markup: a bold title followed by one
// "Label: value" row per field.
func (p Popup) HTML() string {
	var sb strings.Builder
	sb.WriteString("<b>")
	sb.WriteString(html.EscapeString(p.Title))
	sb.WriteString("</b>")
	for _, f := range p.Fields {
		sb.WriteString("<br>")
		sb.WriteString(html.EscapeString(f.Label))
		sb.WriteString(": ")
		sb.WriteString(html.EscapeString(f.Value))
	}
	return sb.String()
}

type IconShape string

const (
	IconPin      IconShape = "pin"
	IconTriangle IconShape = "triangle"
)

type Icon struct {
	Shape IconShape `json:"shape"`
	Color string    `json:"color,omitempty"`
	Size  int       `json:"size,omitempty"`
}

// TriangleIcon is the operator marker icon in the partitioned view.
func TriangleIcon(op network.Operator) Icon {
	return Icon{Shape: IconTriangle, Color: voltage.OperatorLineStyle(string(op)).Color, Size: 12}
}

type Marker struct {
	ID         string             `json:"id"`
	Position   network.LatLon     `json:"position"`
	Icon       Icon               `json:"icon"`
	Popup      Popup              `json:"popup"`
	PopupHTML  string             `json:"popup_html"`
	Operator   network.Operator   `json:"operator,omitempty"`
	Substation network.Substation `json:"substation"`
}

func NewMarker(s network.Substation, icon Icon, popup Popup) *Marker {
	return &Marker{
		ID:         uuid.NewString(),
		Position:   s.Position(),
		Icon:       icon,
		Popup:      popup,
		PopupHTML:  popup.HTML(),
		Substation: s,
	}
}

func (m *Marker) FeatureID() string { return m.ID }
func (m *Marker) Kind() FeatureKind { return KindMarker }

type Polyline struct {
	ID        string           `json:"id"`
	Points    []network.LatLon `json:"points"`
	Style     voltage.Style    `json:"style"`
	Popup     Popup            `json:"popup"`
	PopupHTML string           `json:"popup_html"`
	Operator  network.Operator `json:"operator,omitempty"`
	Line      network.Line     `json:"line"`
}

// NewSegment builds the straight two-point line between two substations.
func NewSegment(l network.Line, from, to network.Substation, style voltage.Style, popup Popup) *Polyline {
	return &Polyline{
		ID:        uuid.NewString(),
		Points:    []network.LatLon{from.Position(), to.Position()},
		Style:     style,
		Popup:     popup,
		PopupHTML: popup.HTML(),
		Line:      l,
	}
}

func (p *Polyline) FeatureID() string { return p.ID }
func (p *Polyline) Kind() FeatureKind { return KindPolyline }
