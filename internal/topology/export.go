package topology

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gridmap/internal/ingest"
	"gridmap/internal/network"
)

type NZTMPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Coordinates struct {
	NZTM  NZTMPoint      `json:"nztm"`
	WGS84 network.LatLon `json:"wgs84"`
}

// SubstationFile is the standalone description of one substation written by
// WriteSubstationFiles.
type SubstationFile struct {
	Name           string       `json:"name"`
	Code           string       `json:"code,omitempty"`
	Description    string       `json:"description,omitempty"`
	VoltageKV      float64      `json:"voltage_kv,omitempty"`
	Coordinates    Coordinates  `json:"coordinates"`
	ConnectedLines []Connection `json:"connected_lines"`
	Type           string       `json:"type"`
}

// SubstationFiles describes every substation of op in document order. The
// voltage is the highest rating among the connected lines. NZTM coordinates
// come from the source export, or are projected from WGS84 for substations
// decoded from /network_data.
func (g *Graph) SubstationFiles(op network.Operator) []SubstationFile {
	subs := g.Substations(op)
	out := make([]SubstationFile, 0, len(subs))
	for _, s := range subs {
		conns := g.Connections(op, s.Name)
		if conns == nil {
			conns = []Connection{}
		}
		e, n := s.Easting, s.Northing
		if !s.HasNZTM() {
			e, n = ingest.WGS84ToNZTM(s.Lat, s.Lon)
		}
		out = append(out, SubstationFile{
			Name:        s.Name,
			Code:        s.Code,
			Description: s.Description,
			VoltageKV:   maxVoltage(conns),
			Coordinates: Coordinates{
				NZTM:  NZTMPoint{X: e, Y: n},
				WGS84: s.Position(),
			},
			ConnectedLines: conns,
			Type:           string(op),
		})
	}
	return out
}

func maxVoltage(conns []Connection) float64 {
	var kv float64
	for _, c := range conns {
		v, err := strconv.ParseFloat(strings.TrimSuffix(strings.ToLower(c.Voltage), "kv"), 64)
		if err == nil && v > kv {
			kv = v
		}
	}
	return kv
}

var fileNameReplacer = strings.NewReplacer("/", "_", "\\", "_", ":", "_")

// WriteSubstationFiles writes one indented <name>.json per file into dir,
// creating it if needed, and returns the number written.
func WriteSubstationFiles(dir string, files []SubstationFile) (int, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("creating output directory: %w", err)
	}
	for i, f := range files {
		b, err := json.MarshalIndent(f, "", "  ")
		if err != nil {
			return i, fmt.Errorf("encoding substation %s: %w", f.Name, err)
		}
		path := filepath.Join(dir, fileNameReplacer.Replace(f.Name)+".json")
		if err := os.WriteFile(path, append(b, '\n'), 0o644); err != nil {
			return i, fmt.Errorf("writing substation %s: %w", f.Name, err)
		}
	}
	return len(files), nil
}
