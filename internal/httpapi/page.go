package httpapi

import (
	"bytes"
	"embed"
	"encoding/json"
	"html/template"
	"io/fs"
	"net/http"

	"gridmap/internal/mapview"
	"gridmap/internal/network"
	"gridmap/internal/voltage"
)

//go:embed web
var assets embed.FS

var pageTemplate = template.Must(template.New("index.html.tmpl").Funcs(template.FuncMap{
	"toJSON": func(v any) (template.JS, error) {
		b, err := json.Marshal(v)
		return template.JS(b), err
	},
}).ParseFS(assets, "web/index.html.tmpl"))

// checkbox is one layer control in the page shell. Swatch, when set, is
// drawn next to the label as a legend entry.
type checkbox struct {
	ID     string
	Name   string
	Value  string
	Label  string
	Swatch *voltage.Style
}

type pageData struct {
	Variant  network.Variant
	PanelID  string
	Controls []checkbox
	Map      mapview.Options
}

// pageControls lists the checkboxes of variant with the ids, names and values
// the visibility rules listen for.
func pageControls(variant network.Variant) []checkbox {
	if variant == network.VariantFlat {
		var out []checkbox
		for _, level := range voltage.Levels() {
			style := voltage.LevelStyle(level)
			out = append(out, checkbox{Name: mapview.VoltageControl, Value: level, Label: level, Swatch: &style})
		}
		out = append(out,
			checkbox{Name: mapview.ComponentControl, Value: mapview.ComponentSubstations, Label: "Substations"},
			checkbox{Name: mapview.ComponentControl, Value: mapview.ComponentLines, Label: "Lines"},
		)
		return out
	}

	var out []checkbox
	for _, op := range network.Operators() {
		for _, kind := range []string{mapview.KindSubstations, mapview.KindLines} {
			id := mapview.ControlID(op, kind)
			out = append(out, checkbox{ID: id, Label: id})
		}
	}
	return out
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	variant, ok := h.parseVariant(w, r)
	if !ok {
		return
	}
	panelID := mapview.PartitionedPanelID
	if variant == network.VariantFlat {
		panelID = mapview.FlatPanelID
	}

	data := pageData{
		Variant:  variant,
		PanelID:  panelID,
		Controls: pageControls(variant),
		Map:      h.mapOpts,
	}

	// Render into a buffer so a template error still gets a clean 500.
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		h.log.Error().Err(err).Msg("render index failed")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func staticHandler() http.Handler {
	static, err := fs.Sub(assets, "web/static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(static)))
}
