package mapview

import (
	"gridmap/internal/network"
	"gridmap/internal/voltage"
)

// Checkbox names and values of the flat view's layer controls.
const (
	VoltageControl   = "voltage"
	ComponentControl = "component"

	ComponentSubstations = "Substations"
	ComponentLines       = "Lines"
)

// ControlID is the element id of the partitioned view's checkbox for an
// operator's substations or lines, e.g. "vector-lines".
func ControlID(op network.Operator, kind string) string {
	return string(op) + "-" + kind
}

// WireFlatControls subscribes the flat view's checkboxes: each voltage box
// drives its own layer, the aggregate Substations box drives all voltage
// layers at once and the Lines box drives the lines layer.
func WireFlatControls(v *MapView) {
	v.Events.OnCheckboxToggled(func(ev CheckboxToggled) {
		switch ev.Name {
		case VoltageControl:
			key := LayerKey(ev.Value)
			if !voltage.IsKnown(ev.Value) || !v.Layers.Has(key) {
				v.log.Debug().Str("value", ev.Value).Msg("ignoring toggle for unknown voltage layer")
				return
			}
			v.Layers.SetVisible(key, ev.Checked)
		case ComponentControl:
			switch ev.Value {
			case ComponentSubstations:
				for _, level := range voltage.Levels() {
					v.Layers.SetVisible(LayerKey(level), ev.Checked)
				}
			case ComponentLines:
				v.Layers.SetVisible(LinesLayer, ev.Checked)
			default:
				v.log.Debug().Str("value", ev.Value).Msg("ignoring toggle for unknown component")
			}
		default:
			v.log.Debug().Str("name", ev.Name).Str("id", ev.ID).Msg("ignoring toggle for unknown control")
		}
	})
}

// WirePartitionedControls maps the four operator checkboxes one-to-one onto
// their layers.
func WirePartitionedControls(v *MapView) {
	controls := make(map[string]LayerKey)
	for _, op := range network.Operators() {
		for _, kind := range []string{KindSubstations, KindLines} {
			controls[ControlID(op, kind)] = OperatorLayer(op, kind)
		}
	}

	v.Events.OnCheckboxToggled(func(ev CheckboxToggled) {
		key, ok := controls[ev.ID]
		if !ok {
			v.log.Debug().Str("id", ev.ID).Msg("ignoring toggle for unknown control")
			return
		}
		v.Layers.SetVisible(key, ev.Checked)
	})
}
