package network

import (
	"errors"
	"strings"
	"testing"
)

func TestDecodeFlat_WellFormed(t *testing.T) {
	body := `{"substations":{"A":{"name":"Alpha","type":"GIS","lat":-41,"lon":175}},
		"lines":[{"name":"L1","from_bus":"Alpha","to_bus":"Beta"}]}`

	doc, rep, err := DecodeFlat(strings.NewReader(body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rep.WellFormed() {
		t.Fatalf("expected well-formed report, got missing=%v", rep.Missing)
	}
	if rep.Variant != VariantFlat {
		t.Fatalf("expected flat variant, got %s", rep.Variant)
	}
	alpha, ok := doc.Substations["A"]
	if !ok {
		t.Fatalf("expected substation A")
	}
	if alpha.Code != "A" {
		t.Fatalf("expected code to be filled from key, got %q", alpha.Code)
	}
	if len(doc.Lines) != 1 || doc.Lines[0].ToBus != "Beta" {
		t.Fatalf("unexpected lines: %+v", doc.Lines)
	}
}

func TestDecodeFlat_MissingLinesReported(t *testing.T) {
	doc, rep, err := DecodeFlat(strings.NewReader(`{"substations":{},"lines":"nope"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rep.IsMissing("lines") {
		t.Fatalf("expected lines to be reported missing, got %v", rep.Missing)
	}
	if rep.IsMissing("substations") {
		t.Fatalf("did not expect substations to be missing")
	}
	if len(doc.Lines) != 0 {
		t.Fatalf("expected no lines, got %d", len(doc.Lines))
	}
}

func TestDecodeFlat_NotAnObject(t *testing.T) {
	_, _, err := DecodeFlat(strings.NewReader(`[1,2,3]`))
	if !errors.Is(err, ErrNotObject) {
		t.Fatalf("expected ErrNotObject, got %v", err)
	}

	_, _, err = DecodeFlat(strings.NewReader(`{"substations":`))
	if err == nil {
		t.Fatalf("expected error for truncated body")
	}
}

func TestDecodePartitioned_MissingOperator(t *testing.T) {
	body := `{"transpower":{"substations":[{"name":"S1","type":"T","description":"d","lat":1,"lon":2}],
		"lines":[{"name":"L1","voltage":110,"from_bus":"S1","to_bus":"S1"}]}}`

	doc, rep, err := DecodePartitioned(strings.NewReader(body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Vector != nil {
		t.Fatalf("expected vector section to be absent")
	}
	if !rep.IsMissing("vector") {
		t.Fatalf("expected vector reported missing, got %v", rep.Missing)
	}
	tp := doc.Section(Transpower)
	if tp == nil || len(tp.Substations) != 1 || len(tp.Lines) != 1 {
		t.Fatalf("unexpected transpower section: %+v", tp)
	}
	if tp.Lines[0].Voltage != "110" {
		t.Fatalf("expected numeric voltage to decode as \"110\", got %q", tp.Lines[0].Voltage)
	}
}

func TestDecodePartitioned_SectionWithoutLines(t *testing.T) {
	body := `{"transpower":{"substations":[]},"vector":{"substations":[],"lines":[{"name":"F","voltage":"33.0","from_bus":"a","to_bus":"b"}]}}`

	doc, rep, err := DecodePartitioned(strings.NewReader(body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rep.IsMissing("transpower.lines") {
		t.Fatalf("expected transpower.lines missing, got %v", rep.Missing)
	}
	if got := doc.Vector.Lines[0].Voltage.String(); got != "33.0" {
		t.Fatalf("expected string voltage preserved, got %q", got)
	}
}

func TestDecodeFlat_SkipsUndecodableRecords(t *testing.T) {
	body := `{"substations":{
			"A":{"name":"Alpha","type":"GIS","lat":-41,"lon":175},
			"B":{"name":"Beta","type":3,"lat":-42,"lon":176}},
		"lines":[{"name":"L1","voltage":true,"from_bus":"Alpha","to_bus":"Alpha"},
			{"name":"L2","voltage":"220","from_bus":"Alpha","to_bus":"Alpha"}]}`

	doc, rep, err := DecodeFlat(strings.NewReader(body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := doc.Substations["A"]; !ok || len(doc.Substations) != 1 {
		t.Fatalf("expected only substation A kept, got %+v", doc.Substations)
	}
	if len(doc.Lines) != 1 || doc.Lines[0].Name != "L2" {
		t.Fatalf("expected only L2 kept, got %+v", doc.Lines)
	}
	if len(rep.Skipped) != 2 {
		t.Fatalf("expected 2 skipped records, got %v", rep.Skipped)
	}
	if !strings.HasPrefix(rep.Skipped[0], "substations.B: ") || !strings.HasPrefix(rep.Skipped[1], "lines[0]: ") {
		t.Fatalf("unexpected skipped locations: %v", rep.Skipped)
	}
	if rep.WellFormed() {
		t.Fatalf("expected report with skipped records not to be well-formed")
	}
}

func TestDecodeFlat_KeepsDocumentOrder(t *testing.T) {
	body := `{"substations":{
			"ZZZ":{"name":"X","type":"T","lat":1,"lon":1},
			"AAA":{"name":"X","type":"T","lat":2,"lon":2},
			"MMM":{"name":"Y","type":"T","lat":3,"lon":3}},
		"lines":[{"name":"L","from_bus":"X","to_bus":"Y"}]}`

	doc, _, err := DecodeFlat(strings.NewReader(body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	subs := doc.FlatSubstations()
	if len(subs) != 3 || subs[0].Code != "ZZZ" || subs[1].Code != "AAA" || subs[2].Code != "MMM" {
		t.Fatalf("expected document order ZZZ,AAA,MMM, got %+v", subs)
	}
	from, _, ok := NewIndex(subs).Resolve(doc.Lines[0])
	if !ok || from.Lat != 1 {
		t.Fatalf("expected first substation named X in the document, got %+v ok=%v", from, ok)
	}

	built := FlatDocument{Substations: map[string]Substation{"B": {Code: "B"}, "A": {Code: "A"}}}
	if got := built.FlatSubstations(); got[0].Code != "A" || got[1].Code != "B" {
		t.Fatalf("expected code order for an in-memory document, got %+v", got)
	}
}

func TestDecodePartitioned_BadRecordStaysWithinOperator(t *testing.T) {
	body := `{"transpower":{"substations":[{"name":"S1","type":"T","lat":1,"lon":2}],"lines":[]},
		"vector":{"substations":[{"name":"V1","type":"Z","lat":3,"lon":4},{"name":["bad"]}],
			"lines":[{"name":"F1","voltage":true,"from_bus":"V1","to_bus":"V1"}]}}`

	doc, rep, err := DecodePartitioned(strings.NewReader(body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Transpower.Substations) != 1 {
		t.Fatalf("expected transpower untouched, got %+v", doc.Transpower)
	}
	if len(doc.Vector.Substations) != 1 || len(doc.Vector.Lines) != 0 {
		t.Fatalf("expected bad vector records dropped, got %+v", doc.Vector)
	}
	if len(rep.Skipped) != 2 || !strings.HasPrefix(rep.Skipped[0], "vector.substations[1]: ") ||
		!strings.HasPrefix(rep.Skipped[1], "vector.lines[0]: ") {
		t.Fatalf("unexpected skipped records: %v", rep.Skipped)
	}
}

func TestDecodePartitioned_UndecodableOperatorIsMissing(t *testing.T) {
	body := `{"transpower":{"substations":[{"name":"S1","type":"T","lat":1,"lon":2}],"lines":[]},"vector":42}`

	doc, rep, err := DecodePartitioned(strings.NewReader(body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Vector != nil || !rep.IsMissing("vector") {
		t.Fatalf("expected vector reported missing, got doc=%+v missing=%v", doc.Vector, rep.Missing)
	}
	if doc.Transpower == nil || len(doc.Transpower.Substations) != 1 {
		t.Fatalf("expected transpower kept, got %+v", doc.Transpower)
	}
	if len(rep.Skipped) != 1 || !strings.HasPrefix(rep.Skipped[0], "vector: ") {
		t.Fatalf("expected vector section skipped, got %v", rep.Skipped)
	}
}

func TestIndex_ResolveAndDuplicates(t *testing.T) {
	idx := NewIndex([]Substation{
		{Name: "S1", Lat: 1, Lon: 2},
		{Name: "S2", Lat: 3, Lon: 4},
		{Name: "S1", Lat: 9, Lon: 9},
	})
	if idx.Len() != 2 {
		t.Fatalf("expected 2 names, got %d", idx.Len())
	}

	from, to, ok := idx.Resolve(Line{FromBus: "S1", ToBus: "S2"})
	if !ok {
		t.Fatalf("expected resolve ok")
	}
	if from.Lat != 1 || to.Lat != 3 {
		t.Fatalf("expected first occurrence to win, got from=%+v to=%+v", from, to)
	}

	if _, _, ok := idx.Resolve(Line{FromBus: "S1", ToBus: "missing"}); ok {
		t.Fatalf("expected resolve to fail for unknown endpoint")
	}

	var nilIdx *Index
	if _, ok := nilIdx.Lookup("S1"); ok {
		t.Fatalf("expected nil index lookup to miss")
	}
}

func TestParseVariant(t *testing.T) {
	if v, err := ParseVariant(""); err != nil || v != VariantPartitioned {
		t.Fatalf("expected default partitioned, got %v %v", v, err)
	}
	if v, err := ParseVariant("flat"); err != nil || v != VariantFlat {
		t.Fatalf("expected flat, got %v %v", v, err)
	}
	if _, err := ParseVariant("tiled"); err == nil {
		t.Fatalf("expected error for unknown variant")
	}
}
