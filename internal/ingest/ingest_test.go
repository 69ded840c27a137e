package ingest

import (
	"bytes"
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"gridmap/internal/network"
)

const (
	sitesCSV = "\ufeffMXLOCATION,X,Y,description,type\n" +
		"AKL,1757209.25,5920482.81,Auckland,GIS\n" +
		"WLG,1748795.83,5428814.90,Wellington,AIS\n" +
		"BAD,not-a-number,5000000,Broken,AIS\n" +
		"AKL,1600000,5000000,Duplicate,AIS\n"

	linesCSV = "MXLOCATION,designvolt,type,description\n" +
		"AKL-WLG-A,220,TRANSMISSION,Auckland - Wellington A\n" +
		"AKL-WLG-B,,TRANSMISSION,Auckland - Wellington B\n" +
		"AKL-XYZ-A,110,TRANSMISSION,Unknown end\n" +
		"NOPE,110,TRANSMISSION,Malformed\n"

	zonesCSV = "OBJECTID,Primary Substation Name,x,y\n" +
		"1,BROOKBY 33kV,1780000,5900000\n" +
		"2,MARAETAI  33/11kV,1785000,5905000\n" +
		"3,KAUKAPAKAPA,1740000,5950000\n"

	feedersCSV = "Feeder Name,OPVOLTAGE_,Shape__Length\n" +
		"BKBY H02 - MARA H06,11kV,2500\n" +
		"BKBY H03 - KKAP H01,33kV,1000\n" +
		"BKBY H04 - CLEV H01,33kV,1000\n" +
		"ZZZZ H01 - MARA H02,11kV,100\n" +
		"no separator,11kV,100\n"
)

func writeFixtures(t *testing.T, files map[string]string) (string, Sources) {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		p := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir, DefaultSources().Resolve(dir)
}

func allFixtures() map[string]string {
	src := DefaultSources()
	return map[string]string{
		src.TranspowerSites:   sitesCSV,
		src.TransmissionLines: linesCSV,
		src.VectorSubstations: zonesCSV,
		src.VectorFeeders:     feedersCSV,
	}
}

func TestNZTMToWGS84_Origin(t *testing.T) {
	lat, lon, err := NZTMToWGS84(1600000, 10000000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(lat) > 1e-9 || math.Abs(lon-173) > 1e-9 {
		t.Fatalf("expected (0,173), got (%v,%v)", lat, lon)
	}
}

func TestNZTM_RoundTrip(t *testing.T) {
	e, n := WGS84ToNZTM(-36.8485, 174.7633)
	if math.Abs(e-1757209.25) > 1 || math.Abs(n-5920482.81) > 1 {
		t.Fatalf("unexpected projection of Auckland: (%v,%v)", e, n)
	}
	lat, lon, err := NZTMToWGS84(e, n)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(lat+36.8485) > 1e-7 || math.Abs(lon-174.7633) > 1e-7 {
		t.Fatalf("round trip drifted: (%v,%v)", lat, lon)
	}
}

func TestNZTMToWGS84_RejectsNaN(t *testing.T) {
	if _, _, err := NZTMToWGS84(math.NaN(), 1); err == nil {
		t.Fatalf("expected error for NaN easting")
	}
}

func TestReadTranspowerSites_SkipsBadRows(t *testing.T) {
	_, src := writeFixtures(t, allFixtures())
	var buf bytes.Buffer
	sites, err := ReadTranspowerSites(zerolog.New(&buf), src.TranspowerSites)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sites) != 3 {
		t.Fatalf("expected 3 sites (bad row skipped), got %d", len(sites))
	}
	if sites[0].Code != "AKL" || sites[0].DisplayName() != "Auckland" {
		t.Fatalf("unexpected first site: %+v", sites[0])
	}
	if math.Abs(sites[1].Lat+41.278) > 0.01 || math.Abs(sites[1].Lon-174.777) > 0.01 {
		t.Fatalf("unexpected Wellington position: (%v,%v)", sites[1].Lat, sites[1].Lon)
	}
	if !strings.Contains(buf.String(), "could not read coordinates for site") {
		t.Fatalf("expected warning for bad row, got %s", buf.String())
	}
}

func TestReadTable_MissingColumn(t *testing.T) {
	_, err := parseTable("x.csv", strings.NewReader("A,B\n1,2\n"), "MXLOCATION")
	if !errors.Is(err, ErrMissingColumn) {
		t.Fatalf("expected ErrMissingColumn, got %v", err)
	}
}

func TestReadVectorFeeders(t *testing.T) {
	_, src := writeFixtures(t, allFixtures())
	feeders, err := ReadVectorFeeders(zerolog.Nop(), src.VectorFeeders)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(feeders) != 3 {
		t.Fatalf("expected 3 feeders with known codes, got %d", len(feeders))
	}
	f := feeders[0]
	if f.From != "BROOKBY 33kV" || f.To != "MARAETAI 33/11kV" || f.Voltage != 11 || f.LengthKM != 2.5 {
		t.Fatalf("unexpected first feeder: %+v", f)
	}
	if feeders[1].Voltage != 33 {
		t.Fatalf("expected 33kV default, got %v", feeders[1].Voltage)
	}
}

func TestBuild_BothLayouts(t *testing.T) {
	_, src := writeFixtures(t, allFixtures())
	ds, err := NewBuilder(zerolog.Nop()).Build(context.Background(), src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tp := ds.Partitioned.Transpower
	if tp == nil {
		t.Fatalf("expected transpower section")
	}
	if len(tp.Substations) != 3 || len(tp.Lines) != 2 {
		t.Fatalf("expected 3 substations and 2 lines, got %d/%d", len(tp.Substations), len(tp.Lines))
	}
	if tp.Lines[0].Voltage != "220" || tp.Lines[1].Voltage != "110" {
		t.Fatalf("unexpected voltages: %q %q", tp.Lines[0].Voltage, tp.Lines[1].Voltage)
	}
	if tp.Lines[0].FromBus != "AKL" || tp.Lines[0].ToBus != "WLG" {
		t.Fatalf("expected lines keyed by site code, got %+v", tp.Lines[0])
	}
	if got := ds.Stats[network.Transpower].Dropped; got != 1 {
		t.Fatalf("expected 1 dropped transpower line, got %d", got)
	}

	vec := ds.Partitioned.Vector
	if vec == nil || len(vec.Substations) != 3 {
		t.Fatalf("expected 3 vector substations, got %+v", vec)
	}
	if vec.Substations[1].Name != "MARAETAI 33/11kV" || vec.Substations[1].Description != "Vector 33/11kV Substation" {
		t.Fatalf("unexpected vector substation: %+v", vec.Substations[1])
	}
	if vec.Substations[2].Description != "Vector Unknown Substation" {
		t.Fatalf("expected unknown voltage description, got %q", vec.Substations[2].Description)
	}
	if len(vec.Lines) != 2 {
		t.Fatalf("expected 2 vector lines (CLEV not present), got %d", len(vec.Lines))
	}

	if len(ds.Flat.Substations) != 2 {
		t.Fatalf("expected duplicate code collapsed in flat layout, got %d", len(ds.Flat.Substations))
	}
	if ds.Flat.Substations["AKL"].Name != "Auckland" {
		t.Fatalf("expected first AKL row to win, got %+v", ds.Flat.Substations["AKL"])
	}
	if len(ds.Flat.Lines) != 2 || ds.Flat.Lines[0].FromBus != "Auckland" || ds.Flat.Lines[0].ToBus != "Wellington" {
		t.Fatalf("unexpected flat lines: %+v", ds.Flat.Lines)
	}
	if tot := ds.Totals(); tot.Substations != 6 || tot.Lines != 4 {
		t.Fatalf("unexpected totals: %+v", tot)
	}
}

func TestBuild_KeepsSourceCoordinatesAndLineParameters(t *testing.T) {
	_, src := writeFixtures(t, allFixtures())

	ds, err := NewBuilder(zerolog.Nop()).Build(context.Background(), src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	akl := ds.Partitioned.Transpower.Substations[0]
	if akl.Easting != 1757209.25 || akl.Northing != 5920482.81 {
		t.Fatalf("expected source NZTM on transpower substation, got %+v", akl)
	}
	if got := ds.Flat.Substations["AKL"]; got.Easting != 1757209.25 {
		t.Fatalf("expected source NZTM on flat substation, got %+v", got)
	}
	if z := ds.Partitioned.Vector.Substations[0]; z.Easting != 1780000 || z.Northing != 5900000 {
		t.Fatalf("expected source NZTM on vector substation, got %+v", z)
	}

	want := network.Electrical{LengthKM: 1, ROhmPerKM: 0.1, XOhmPerKM: 0.1, CNFPerKM: 10, MaxIKA: 1}
	if e := ds.Partitioned.Transpower.Lines[0].Electrical; e == nil || *e != want {
		t.Fatalf("expected nominal transmission parameters, got %+v", e)
	}
	feeder := ds.Partitioned.Vector.Lines[0].Electrical
	if feeder == nil || feeder.LengthKM != 2.5 || feeder.XOhmPerKM != 0.3 {
		t.Fatalf("expected feeder length and reactance, got %+v", feeder)
	}
}

func TestBuild_MissingOperatorFile(t *testing.T) {
	files := allFixtures()
	delete(files, DefaultSources().VectorSubstations)
	_, src := writeFixtures(t, files)

	ds, err := NewBuilder(zerolog.Nop()).Build(context.Background(), src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ds.Partitioned.Vector != nil {
		t.Fatalf("expected vector section absent")
	}
	if ds.Partitioned.Transpower == nil {
		t.Fatalf("expected transpower section present")
	}
}

func TestBuild_MissingLinesFileKeepsSubstations(t *testing.T) {
	files := allFixtures()
	delete(files, DefaultSources().TransmissionLines)
	_, src := writeFixtures(t, files)

	ds, err := NewBuilder(zerolog.Nop()).Build(context.Background(), src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tp := ds.Partitioned.Transpower
	if tp == nil || len(tp.Substations) != 3 || tp.Lines == nil || len(tp.Lines) != 0 {
		t.Fatalf("expected substations with an empty line list, got %+v", tp)
	}
}

func TestBuild_NoData(t *testing.T) {
	_, src := writeFixtures(t, map[string]string{})
	_, err := NewBuilder(zerolog.Nop()).Build(context.Background(), src)
	if !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected underlying not-exist error, got %v", err)
	}
}

func TestBuild_CanceledContext(t *testing.T) {
	_, src := writeFixtures(t, allFixtures())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewBuilder(zerolog.Nop()).Build(ctx, src); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestSources_Resolve(t *testing.T) {
	s := Sources{TranspowerSites: "a.csv", TransmissionLines: "/abs/b.csv"}.Resolve("/data")
	if s.TranspowerSites != filepath.Join("/data", "a.csv") || s.TransmissionLines != "/abs/b.csv" {
		t.Fatalf("unexpected resolved sources: %+v", s)
	}
	if got := len(s.Paths()); got != 2 {
		t.Fatalf("expected empty entries skipped, got %d paths", got)
	}
}
