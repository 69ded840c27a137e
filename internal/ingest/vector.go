package ingest

import (
	"strings"

	"github.com/rs/zerolog"

	"gridmap/internal/naming"
)

// feederSubstations maps the code prefix of a feeder endpoint to the zone
// substation it leaves from.
var feederSubstations = map[string]string{
	"BKBY":  "BROOKBY 33kV",
	"MARA":  "MARAETAI 33/11kV",
	"CLEV":  "CLEVEDON 33/11kV",
	"TTAK":  "TAKANINI 33/11kV",
	"ORAT":  "ORATIA 33/11KV",
	"LAIN":  "LAINGHOLM 33/11KV",
	"TPTAK": "TP TAKANINI 220/33KV",
	"SPUR":  "SPUR RD 33/11KV",
	"HORS":  "HORSESHOE BUSH",
	"KKAP":  "KAUKAPAKAPA",
	"HELE":  "HELENSVILLE 33/11KV",
	"TWEL":  "TP Wellsford 110/33 kV POS",
	"WARK":  "WARKWORTH 33/11KV",
	"SNEL":  "SNELLS BEACH 33/11KV",
	"WELL":  "WELLSFORD 33/11KV",
	"MTW":   "MT WELLINGTON 33/11kV",
}

// FeederSubstation resolves a feeder code such as "BKBY".
func FeederSubstation(code string) (string, bool) {
	name, ok := feederSubstations[code]
	return name, ok
}

type ZoneSubstation struct {
	ObjectID string
	Name     string
	Voltage  string
	Easting  float64
	Northing float64
	Lat      float64
	Lon      float64
}

// Description is the label shown in the info panel, e.g.
// "Vector 33/11KV Substation".
func (z ZoneSubstation) Description() string {
	return "Vector " + z.Voltage + " Substation"
}

// Feeder is a distribution feeder between two zone substations.
type Feeder struct {
	Name     string
	From     string
	To       string
	Voltage  float64
	LengthKM float64
}

func ReadVectorSubstations(log zerolog.Logger, path string) ([]ZoneSubstation, error) {
	t, err := readTable(path, "Primary Substation Name", "x", "y")
	if err != nil {
		return nil, err
	}

	subs := make([]ZoneSubstation, 0, len(t.rows))
	for i, row := range t.rows {
		name := naming.Clean(t.get(row, "Primary Substation Name"))
		if name == "" {
			log.Warn().Str("file", path).Int("row", i+2).Msg("zone substation without a name")
			continue
		}
		x, errX := t.float(row, "x")
		y, errY := t.float(row, "y")
		if errX != nil || errY != nil {
			log.Warn().Str("site", name).Int("row", i+2).Msg("could not read coordinates for vector site")
			continue
		}
		lat, lon, err := NZTMToWGS84(x, y)
		if err != nil {
			log.Warn().Err(err).Str("site", name).Msg("could not convert coordinates for vector site")
			continue
		}
		subs = append(subs, ZoneSubstation{
			ObjectID: t.get(row, "OBJECTID"),
			Name:     name,
			Voltage:  naming.VoltageFromName(name),
			Easting:  x,
			Northing: y,
			Lat:      lat,
			Lon:      lon,
		})
	}
	log.Debug().Str("file", path).Int("substations", len(subs)).Msg("loaded vector substations")
	return subs, nil
}

// ReadVectorFeeders parses the feeder export. Feeders whose name does not
// follow "CODE xx - CODE yy", or whose codes are not in the feeder table,
// are logged and skipped.
func ReadVectorFeeders(log zerolog.Logger, path string) ([]Feeder, error) {
	t, err := readTable(path, "Feeder Name")
	if err != nil {
		return nil, err
	}

	feeders := make([]Feeder, 0, len(t.rows))
	for _, row := range t.rows {
		name := t.get(row, "Feeder Name")
		fromCode, toCode, ok := naming.FeederEndpoints(name)
		if !ok {
			log.Warn().Str("feeder", name).Msg("invalid feeder name format")
			continue
		}
		from, okFrom := FeederSubstation(fromCode)
		to, okTo := FeederSubstation(toCode)
		if !okFrom || !okTo {
			log.Warn().Str("feeder", name).Str("from", fromCode).Str("to", toCode).Msg("unknown substation code in feeder name")
			continue
		}

		kv := 33.0
		if strings.Contains(t.get(row, "OPVOLTAGE_"), "11") {
			kv = 11
		}
		var km float64
		if m, err := t.float(row, "Shape__Length"); err == nil {
			km = m / 1000
		}
		feeders = append(feeders, Feeder{
			Name:     name,
			From:     naming.Clean(from),
			To:       naming.Clean(to),
			Voltage:  kv,
			LengthKM: km,
		})
	}
	log.Debug().Str("file", path).Int("feeders", len(feeders)).Msg("loaded vector feeders")
	return feeders, nil
}
