// Package ingest builds the network documents served on /network_data from
// the operators' CSV exports.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"gridmap/internal/network"
)

var ErrNoData = errors.New("no operator data could be loaded")

// Sources names the four CSV exports. Relative paths are resolved against
// the data directory.
type Sources struct {
	TranspowerSites   string `yaml:"transpower_sites"`
	TransmissionLines string `yaml:"transmission_lines"`
	VectorSubstations string `yaml:"vector_substations"`
	VectorFeeders     string `yaml:"vector_feeders"`
}

func DefaultSources() Sources {
	return Sources{
		TranspowerSites:   filepath.Join("Transpower", "Sites.csv"),
		TransmissionLines: filepath.Join("Transpower", "Transmission_Lines.csv"),
		VectorSubstations: filepath.Join("Vector", "distribution_feeder_network_and_zone_substations_5064571612058702982.csv"),
		VectorFeeders:     filepath.Join("Vector", "distribution_feeder_network_and_zone_substations_4095785886967079183.csv"),
	}
}

// Resolve returns s with every relative path joined onto dir. Empty entries
// stay empty.
func (s Sources) Resolve(dir string) Sources {
	join := func(p string) string {
		if p == "" || filepath.IsAbs(p) || dir == "" {
			return p
		}
		return filepath.Join(dir, p)
	}
	return Sources{
		TranspowerSites:   join(s.TranspowerSites),
		TransmissionLines: join(s.TransmissionLines),
		VectorSubstations: join(s.VectorSubstations),
		VectorFeeders:     join(s.VectorFeeders),
	}
}

func (s Sources) Paths() []string {
	out := make([]string, 0, 4)
	for _, p := range []string{s.TranspowerSites, s.TransmissionLines, s.VectorSubstations, s.VectorFeeders} {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Stats counts what one operator contributed to a build.
type Stats struct {
	Substations int `json:"substations"`
	Lines       int `json:"lines"`
	Dropped     int `json:"dropped"`
}

// Dataset is one immutable build of both document layouts.
type Dataset struct {
	BuiltAt     time.Time
	Partitioned network.PartitionedDocument
	Flat        network.FlatDocument
	Stats       map[network.Operator]Stats
}

// Document returns the layout for variant.
func (d *Dataset) Document(v network.Variant) any {
	if v == network.VariantFlat {
		return d.Flat
	}
	return d.Partitioned
}

func (d *Dataset) Totals() Stats {
	var t Stats
	for _, s := range d.Stats {
		t.Substations += s.Substations
		t.Lines += s.Lines
		t.Dropped += s.Dropped
	}
	return t
}

type Builder struct {
	log zerolog.Logger
	now func() time.Time
}

func NewBuilder(log zerolog.Logger) *Builder {
	return &Builder{
		log: log.With().Str("component", "ingest").Logger(),
		now: time.Now,
	}
}

// Build reads every source. An operator whose substation file cannot be read
// is left out of the partitioned document; a missing lines file yields an
// empty line list. Build fails only when neither operator has data or ctx is
// done.
func (b *Builder) Build(ctx context.Context, src Sources) (*Dataset, error) {
	ds := &Dataset{
		BuiltAt: b.now().UTC(),
		Flat: network.FlatDocument{
			Substations: map[string]network.Substation{},
			Lines:       []network.Line{},
		},
		Stats: map[network.Operator]Stats{},
	}

	var errs []error

	sites, tpLines, err := b.readTranspower(src)
	if err != nil {
		errs = append(errs, err)
	} else {
		section, stats := buildTranspowerSection(b.log, sites, tpLines)
		ds.Partitioned.Transpower = section
		ds.Stats[network.Transpower] = stats
		ds.Flat = buildFlat(sites, tpLines)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	zones, feeders, err := b.readVector(src)
	if err != nil {
		errs = append(errs, err)
	} else {
		section, stats := buildVectorSection(b.log, zones, feeders)
		ds.Partitioned.Vector = section
		ds.Stats[network.Vector] = stats
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if ds.Partitioned.Transpower == nil && ds.Partitioned.Vector == nil {
		return nil, fmt.Errorf("%w: %w", ErrNoData, errors.Join(errs...))
	}

	t := ds.Totals()
	b.log.Info().
		Int("substations", t.Substations).
		Int("lines", t.Lines).
		Int("dropped", t.Dropped).
		Int("flat_substations", len(ds.Flat.Substations)).
		Msg("network dataset built")
	return ds, nil
}

func (b *Builder) readTranspower(src Sources) ([]Site, []TransmissionLine, error) {
	sites, err := ReadTranspowerSites(b.log, src.TranspowerSites)
	if err != nil {
		b.log.Error().Err(err).Msg("failed to load transpower sites")
		return nil, nil, fmt.Errorf("transpower sites: %w", err)
	}
	lines, err := ReadTransmissionLines(b.log, src.TransmissionLines)
	if err != nil {
		lvl := b.log.Warn()
		if !errors.Is(err, os.ErrNotExist) {
			lvl = b.log.Error()
		}
		lvl.Err(err).Msg("failed to load transmission lines")
	}
	return sites, lines, nil
}

func (b *Builder) readVector(src Sources) ([]ZoneSubstation, []Feeder, error) {
	zones, err := ReadVectorSubstations(b.log, src.VectorSubstations)
	if err != nil {
		b.log.Error().Err(err).Msg("failed to load vector substations")
		return nil, nil, fmt.Errorf("vector substations: %w", err)
	}
	feeders, err := ReadVectorFeeders(b.log, src.VectorFeeders)
	if err != nil {
		lvl := b.log.Warn()
		if !errors.Is(err, os.ErrNotExist) {
			lvl = b.log.Error()
		}
		lvl.Err(err).Msg("failed to load vector feeders")
	}
	return zones, feeders, nil
}

func buildTranspowerSection(log zerolog.Logger, sites []Site, lines []TransmissionLine) (*network.OperatorSection, Stats) {
	section := &network.OperatorSection{
		Substations: make([]network.Substation, 0, len(sites)),
		Lines:       make([]network.Line, 0, len(lines)),
	}
	known := make(map[string]bool, len(sites))
	for _, s := range sites {
		known[s.Code] = true
		section.Substations = append(section.Substations, network.Substation{
			Code:        s.Code,
			Name:        s.Code,
			Type:        s.Type,
			Description: s.Description,
			Lat:         s.Lat,
			Lon:         s.Lon,
			Easting:     s.Easting,
			Northing:    s.Northing,
		})
	}

	var stats Stats
	for _, l := range lines {
		if !known[l.From] || !known[l.To] {
			log.Warn().Str("operator", string(network.Transpower)).Str("line", l.Location).
				Msg("could not find bus indices for line")
			stats.Dropped++
			continue
		}
		section.Lines = append(section.Lines, network.Line{
			Name:        l.Location,
			Voltage:     kilovolts(l.Voltage, defaultTransmissionKV),
			FromBus:     l.From,
			ToBus:       l.To,
			Description: l.Description,
			Electrical:  transmissionElectrical(),
		})
	}
	stats.Substations = len(section.Substations)
	stats.Lines = len(section.Lines)
	return section, stats
}

func buildVectorSection(log zerolog.Logger, zones []ZoneSubstation, feeders []Feeder) (*network.OperatorSection, Stats) {
	section := &network.OperatorSection{
		Substations: make([]network.Substation, 0, len(zones)),
		Lines:       make([]network.Line, 0, len(feeders)),
	}
	known := make(map[string]bool, len(zones))
	for _, z := range zones {
		known[z.Name] = true
		section.Substations = append(section.Substations, network.Substation{
			Code:        z.ObjectID,
			Name:        z.Name,
			Type:        "Substation",
			Description: z.Description(),
			Lat:         z.Lat,
			Lon:         z.Lon,
			Easting:     z.Easting,
			Northing:    z.Northing,
		})
	}

	var stats Stats
	for _, f := range feeders {
		if !known[f.From] || !known[f.To] {
			log.Warn().Str("operator", string(network.Vector)).Str("line", f.Name).
				Str("from_bus", f.From).Str("to_bus", f.To).
				Msg("could not find bus indices for line")
			stats.Dropped++
			continue
		}
		section.Lines = append(section.Lines, network.Line{
			Name:       f.Name,
			Voltage:    kilovolts(f.Voltage, 33),
			FromBus:    f.From,
			ToBus:      f.To,
			Electrical: &network.Electrical{
				LengthKM:  f.LengthKM,
				ROhmPerKM: 0.1,
				XOhmPerKM: 0.3,
				CNFPerKM:  10,
				MaxIKA:    1,
			},
		})
	}
	stats.Substations = len(section.Substations)
	stats.Lines = len(section.Lines)
	return section, stats
}

// buildFlat produces the single-set layout from the Transpower sites: keyed
// by code, named by description, with lines referencing those names.
func buildFlat(sites []Site, lines []TransmissionLine) network.FlatDocument {
	doc := network.FlatDocument{
		Substations: make(map[string]network.Substation, len(sites)),
		Lines:       make([]network.Line, 0, len(lines)),
	}
	for _, s := range sites {
		if _, dup := doc.Substations[s.Code]; dup {
			continue
		}
		doc.Substations[s.Code] = network.Substation{
			Code:     s.Code,
			Name:     s.DisplayName(),
			Type:     s.Type,
			Lat:      s.Lat,
			Lon:      s.Lon,
			Easting:  s.Easting,
			Northing: s.Northing,
		}
	}
	for _, l := range lines {
		from, okFrom := doc.Substations[l.From]
		to, okTo := doc.Substations[l.To]
		if !okFrom || !okTo {
			continue
		}
		doc.Lines = append(doc.Lines, network.Line{
			Name:        l.Location,
			Voltage:     kilovolts(l.Voltage, defaultTransmissionKV),
			FromBus:     from.Name,
			ToBus:       to.Name,
			Description: l.Description,
			Electrical:  transmissionElectrical(),
		})
	}
	return doc
}

const defaultTransmissionKV = 110

// transmissionElectrical is the nominal parameter set for a Transpower
// circuit; the lines export carries no length or impedance.
func transmissionElectrical() *network.Electrical {
	return &network.Electrical{
		LengthKM:  1,
		ROhmPerKM: 0.1,
		XOhmPerKM: 0.1,
		CNFPerKM:  10,
		MaxIKA:    1,
	}
}

func kilovolts(kv, fallback float64) network.Voltage {
	if kv <= 0 {
		kv = fallback
	}
	return network.Voltage(strconv.FormatFloat(kv, 'f', -1, 64))
}
