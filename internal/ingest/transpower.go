package ingest

import (
	"github.com/rs/zerolog"

	"gridmap/internal/naming"
)

// Site is one row of the Transpower sites export.
type Site struct {
	Code        string
	Description string
	Type        string
	Easting     float64
	Northing    float64
	Lat         float64
	Lon         float64
}

// DisplayName is the description when present, otherwise the site code.
func (s Site) DisplayName() string {
	if s.Description != "" {
		return s.Description
	}
	return s.Code
}

// TransmissionLine is one circuit from the Transpower lines export. From and
// To are site codes taken from the location, e.g. "AHA-DOB-A".
type TransmissionLine struct {
	Location    string
	From        string
	To          string
	Voltage     float64
	Type        string
	Description string
}

// ReadTranspowerSites parses Sites.csv. Rows without a code or with
// unusable coordinates are logged and skipped.
func ReadTranspowerSites(log zerolog.Logger, path string) ([]Site, error) {
	t, err := readTable(path, "MXLOCATION", "X", "Y")
	if err != nil {
		return nil, err
	}

	sites := make([]Site, 0, len(t.rows))
	for i, row := range t.rows {
		code := t.get(row, "MXLOCATION")
		if code == "" {
			log.Warn().Str("file", path).Int("row", i+2).Msg("site without MXLOCATION")
			continue
		}
		x, errX := t.float(row, "X")
		y, errY := t.float(row, "Y")
		if errX != nil || errY != nil {
			log.Warn().Str("site", code).Int("row", i+2).Msg("could not read coordinates for site")
			continue
		}
		lat, lon, err := NZTMToWGS84(x, y)
		if err != nil {
			log.Warn().Err(err).Str("site", code).Msg("could not convert coordinates for site")
			continue
		}
		sites = append(sites, Site{
			Code:        code,
			Description: naming.Clean(t.get(row, "description")),
			Type:        t.get(row, "type"),
			Easting:     x,
			Northing:    y,
			Lat:         lat,
			Lon:         lon,
		})
	}
	log.Debug().Str("file", path).Int("sites", len(sites)).Int("rows", len(t.rows)).Msg("loaded transpower sites")
	return sites, nil
}

// ReadTransmissionLines parses Transmission_Lines.csv. A missing or
// unparseable designvolt leaves Voltage at zero.
func ReadTransmissionLines(log zerolog.Logger, path string) ([]TransmissionLine, error) {
	t, err := readTable(path, "MXLOCATION")
	if err != nil {
		return nil, err
	}

	lines := make([]TransmissionLine, 0, len(t.rows))
	for i, row := range t.rows {
		loc := t.get(row, "MXLOCATION")
		from, to, ok := naming.SplitLocation(loc)
		if !ok {
			log.Warn().Str("line", loc).Int("row", i+2).Msg("invalid MXLOCATION format for line")
			continue
		}
		kv, _ := t.float(row, "designvolt")
		lines = append(lines, TransmissionLine{
			Location:    loc,
			From:        from,
			To:          to,
			Voltage:     kv,
			Type:        t.get(row, "type"),
			Description: t.get(row, "description"),
		})
	}
	log.Debug().Str("file", path).Int("lines", len(lines)).Msg("loaded transmission lines")
	return lines, nil
}
