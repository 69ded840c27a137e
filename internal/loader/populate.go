package loader

import (
	"github.com/rs/zerolog"

	"gridmap/internal/mapview"
	"gridmap/internal/network"
	"gridmap/internal/voltage"
)

// flatSubstationLayer is where the flat view places every substation; the
// flat document carries no per-substation voltage.
const flatSubstationLayer = mapview.LayerKey(voltage.Level110)

// PopulateFlat draws a flat document into v. Lines whose endpoints are not
// both known substations are skipped with a warning.
func PopulateFlat(log zerolog.Logger, v *mapview.MapView, doc network.FlatDocument, rep network.Report) mapview.LoadSummary {
	sum := mapview.LoadSummary{Missing: append([]string{}, rep.Missing...)}
	sum.Skipped = logSkipped(log, rep)
	for _, section := range rep.Missing {
		log.Warn().Str("section", section).Msg("network data section missing")
	}

	subs := doc.FlatSubstations()
	for _, s := range subs {
		m := mapview.NewMarker(s, mapview.Icon{Shape: mapview.IconPin}, mapview.Popup{
			Title:  s.Name,
			Fields: []mapview.PopupField{{Label: "Type", Value: s.Type}},
		})
		v.Layers.AddFeature(flatSubstationLayer, m)
		sum.Markers++
	}

	idx := network.NewIndex(subs)
	for _, l := range doc.Lines {
		from, to, ok := idx.Resolve(l)
		if !ok {
			log.Warn().
				Str("line", l.Name).
				Str("from_bus", l.FromBus).
				Str("to_bus", l.ToBus).
				Msg("could not find substations for line")
			sum.Dropped++
			continue
		}
		seg := mapview.NewSegment(l, from, to, voltage.FlatLineStyle(), mapview.Popup{Title: l.Name})
		v.Layers.AddFeature(mapview.LinesLayer, seg)
		sum.Lines++
	}
	return sum
}

// PopulatePartitioned draws each operator section present in doc into that
// operator's layers. Endpoints are resolved only within the same operator.
func PopulatePartitioned(log zerolog.Logger, v *mapview.MapView, doc network.PartitionedDocument, rep network.Report) mapview.LoadSummary {
	sum := mapview.LoadSummary{Missing: append([]string{}, rep.Missing...)}
	sum.Skipped = logSkipped(log, rep)

	for _, op := range network.Operators() {
		opLog := log.With().Str("operator", string(op)).Logger()
		section := doc.Section(op)
		if section == nil {
			opLog.Warn().Msg("no data for operator")
			continue
		}
		if rep.IsMissing(string(op) + ".lines") {
			opLog.Warn().Msg("no lines data for operator")
		}

		subsLayer := mapview.OperatorLayer(op, mapview.KindSubstations)
		for _, s := range section.Substations {
			m := mapview.NewMarker(s, mapview.TriangleIcon(op), mapview.Popup{
				Title: s.Name,
				Fields: []mapview.PopupField{
					{Label: "Type", Value: s.Type},
					{Label: "Description", Value: s.Description},
				},
			})
			m.Operator = op
			v.Layers.AddFeature(subsLayer, m)
			sum.Markers++
		}

		idx := network.NewIndex(section.Substations)
		linesLayer := mapview.OperatorLayer(op, mapview.KindLines)
		style := voltage.OperatorLineStyle(string(op))
		for _, l := range section.Lines {
			from, to, ok := idx.Resolve(l)
			if !ok {
				opLog.Warn().
					Str("line", l.Name).
					Str("from_bus", l.FromBus).
					Str("to_bus", l.ToBus).
					Msg("could not find substations for line")
				sum.Dropped++
				continue
			}
			seg := mapview.NewSegment(l, from, to, style, mapview.Popup{
				Title: l.Name,
				Fields: []mapview.PopupField{
					{Label: "Voltage", Value: voltage.Normalize(l.Voltage.String())},
					{Label: "From", Value: l.FromBus},
					{Label: "To", Value: l.ToBus},
				},
			})
			seg.Operator = op
			v.Layers.AddFeature(linesLayer, seg)
			sum.Lines++
		}
	}
	return sum
}

func logSkipped(log zerolog.Logger, rep network.Report) int {
	for _, rec := range rep.Skipped {
		log.Warn().Str("record", rec).Msg("skipping network record that could not be decoded")
	}
	return len(rep.Skipped)
}
