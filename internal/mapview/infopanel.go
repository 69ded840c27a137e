package mapview

import (
	"html"
	"strings"

	"gridmap/internal/network"
)

type PanelState int

const (
	PanelHidden PanelState = iota
	PanelShown
)

func (s PanelState) String() string {
	if s == PanelShown {
		return "shown"
	}
	return "hidden"
}

const (
	FlatPanelID        = "substation-info"
	PartitionedPanelID = "substation-details"
)

// InfoPanel is the side panel showing the last clicked substation. It starts
// hidden; showing another substation while shown replaces the content.
type InfoPanel struct {
	elementID   string
	description bool
	state       PanelState
	current     network.Substation
}

func NewInfoPanel(elementID string, withDescription bool) *InfoPanel {
	return &InfoPanel{elementID: elementID, description: withDescription}
}

func (p *InfoPanel) Show(s network.Substation) {
	p.current = s
	p.state = PanelShown
}

func (p *InfoPanel) Hide() {
	p.state = PanelHidden
}

func (p *InfoPanel) State() PanelState {
	return p.state
}

func (p *InfoPanel) ElementID() string {
	return p.elementID
}

// Current returns the displayed substation while the panel is shown.
func (p *InfoPanel) Current() (network.Substation, bool) {
	if p.state != PanelShown {
		return network.Substation{}, false
	}
	return p.current, true
}

// HTML is the markup rendered into the panel element; empty when hidden.
func (p *InfoPanel) HTML() string {
	s, ok := p.Current()
	if !ok {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("<h3>")
	sb.WriteString(html.EscapeString(s.Name))
	sb.WriteString("</h3>\n<p>Type: ")
	sb.WriteString(html.EscapeString(s.Type))
	sb.WriteString("</p>")
	if p.description {
		sb.WriteString("\n<p>Description: ")
		sb.WriteString(html.EscapeString(s.Description))
		sb.WriteString("</p>")
	}
	return sb.String()
}
