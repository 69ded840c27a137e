package network

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
)

type Variant string

const (
	VariantFlat        Variant = "flat"
	VariantPartitioned Variant = "partitioned"
)

func ParseVariant(s string) (Variant, error) {
	switch Variant(s) {
	case VariantFlat:
		return VariantFlat, nil
	case VariantPartitioned, "":
		return VariantPartitioned, nil
	default:
		return "", fmt.Errorf("unknown variant %q", s)
	}
}

var ErrNotObject = errors.New("network document is not a JSON object")

// FlatDocument is the single-set layout: substations keyed by site code,
// lines referencing substations by name.
type FlatDocument struct {
	Substations map[string]Substation `json:"substations"`
	Lines       []Line                `json:"lines"`

	// order holds the substation codes in the order they were decoded.
	order []string
}

// PartitionedDocument is the per-operator layout. Either key may be absent.
type PartitionedDocument struct {
	Transpower *OperatorSection `json:"transpower,omitempty"`
	Vector     *OperatorSection `json:"vector,omitempty"`
}

type OperatorSection struct {
	Substations []Substation `json:"substations"`
	Lines       []Line       `json:"lines"`
}

// Section returns the operator's section, or nil when absent.
func (d PartitionedDocument) Section(op Operator) *OperatorSection {
	switch op {
	case Transpower:
		return d.Transpower
	case Vector:
		return d.Vector
	default:
		return nil
	}
}

// Report classifies a decoded document. Missing lists the optional sections
// that were absent, e.g. "lines" or "vector" or "transpower.lines". Skipped
// lists the records that could not be decoded, prefixed with their location
// such as "substations.B" or "vector.lines[3]".
type Report struct {
	Variant Variant  `json:"variant"`
	Missing []string `json:"missing"`
	Skipped []string `json:"skipped,omitempty"`
}

func (r Report) WellFormed() bool {
	return len(r.Missing) == 0 && len(r.Skipped) == 0
}

func (r Report) IsMissing(section string) bool {
	for _, m := range r.Missing {
		if m == section {
			return true
		}
	}
	return false
}

func (r *Report) skip(at string, err error) {
	r.Skipped = append(r.Skipped, at+": "+err.Error())
}

// DecodeFlat parses a flat document. Only a body that is not a JSON object is
// an error; absent sections are reported and records that do not decode are
// skipped.
func DecodeFlat(r io.Reader) (FlatDocument, Report, error) {
	raw, err := decodeObject(r)
	if err != nil {
		return FlatDocument{}, Report{}, err
	}

	rep := Report{Variant: VariantFlat, Missing: []string{}}
	doc := FlatDocument{Substations: map[string]Substation{}}

	if msg, ok := raw["substations"]; ok && isObject(msg) {
		decodeSubstationMap(msg, &doc, &rep)
	} else {
		rep.Missing = append(rep.Missing, "substations")
	}

	if msg, ok := raw["lines"]; ok && isArray(msg) {
		doc.Lines = decodeLines(msg, "lines", &rep)
	} else {
		rep.Missing = append(rep.Missing, "lines")
	}
	return doc, rep, nil
}

// decodeSubstationMap walks the object token by token so document order is
// kept and one bad record does not lose the others.
func decodeSubstationMap(msg json.RawMessage, doc *FlatDocument, rep *Report) {
	dec := json.NewDecoder(bytes.NewReader(msg))
	if _, err := dec.Token(); err != nil {
		rep.skip("substations", err)
		return
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			rep.skip("substations", err)
			return
		}
		code, _ := tok.(string)
		var elem json.RawMessage
		if err := dec.Decode(&elem); err != nil {
			rep.skip("substations."+code, err)
			return
		}
		var s Substation
		if err := json.Unmarshal(elem, &s); err != nil {
			rep.skip("substations."+code, err)
			continue
		}
		if s.Code == "" {
			s.Code = code
		}
		if _, dup := doc.Substations[code]; !dup {
			doc.order = append(doc.order, code)
		}
		doc.Substations[code] = s
	}
}

func decodeLines(msg json.RawMessage, at string, rep *Report) []Line {
	var elems []json.RawMessage
	if err := json.Unmarshal(msg, &elems); err != nil {
		rep.skip(at, err)
		return []Line{}
	}
	lines := make([]Line, 0, len(elems))
	for i, elem := range elems {
		var l Line
		if err := json.Unmarshal(elem, &l); err != nil {
			rep.skip(fmt.Sprintf("%s[%d]", at, i), err)
			continue
		}
		lines = append(lines, l)
	}
	return lines
}

func decodeSubstationList(msg json.RawMessage, at string, rep *Report) []Substation {
	var elems []json.RawMessage
	if err := json.Unmarshal(msg, &elems); err != nil {
		rep.skip(at, err)
		return []Substation{}
	}
	subs := make([]Substation, 0, len(elems))
	for i, elem := range elems {
		var s Substation
		if err := json.Unmarshal(elem, &s); err != nil {
			rep.skip(fmt.Sprintf("%s[%d]", at, i), err)
			continue
		}
		subs = append(subs, s)
	}
	return subs
}

// DecodePartitioned parses a per-operator document. An operator whose value
// is not an object is reported missing; the other operator is unaffected.
func DecodePartitioned(r io.Reader) (PartitionedDocument, Report, error) {
	raw, err := decodeObject(r)
	if err != nil {
		return PartitionedDocument{}, Report{}, err
	}

	rep := Report{Variant: VariantPartitioned, Missing: []string{}}
	var doc PartitionedDocument

	for _, op := range Operators() {
		msg, ok := raw[string(op)]
		if !ok || isNull(msg) {
			rep.Missing = append(rep.Missing, string(op))
			continue
		}

		var sectionRaw map[string]json.RawMessage
		if err := json.Unmarshal(msg, &sectionRaw); err != nil {
			rep.skip(string(op), err)
			rep.Missing = append(rep.Missing, string(op))
			continue
		}

		section := &OperatorSection{}
		if m, ok := sectionRaw["substations"]; ok && isArray(m) {
			section.Substations = decodeSubstationList(m, string(op)+".substations", &rep)
		} else {
			rep.Missing = append(rep.Missing, string(op)+".substations")
		}
		if m, ok := sectionRaw["lines"]; ok && isArray(m) {
			section.Lines = decodeLines(m, string(op)+".lines", &rep)
		} else {
			rep.Missing = append(rep.Missing, string(op)+".lines")
		}

		switch op {
		case Transpower:
			doc.Transpower = section
		case Vector:
			doc.Vector = section
		}
	}
	return doc, rep, nil
}

func decodeObject(r io.Reader) (map[string]json.RawMessage, error) {
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, ErrNotObject
		}
		return nil, fmt.Errorf("decoding network document: %w", err)
	}
	if raw == nil {
		return nil, ErrNotObject
	}
	return raw, nil
}

func isNull(msg json.RawMessage) bool {
	return len(msg) == 0 || string(msg) == "null"
}

func isArray(msg json.RawMessage) bool {
	return firstByte(msg) == '['
}

func isObject(msg json.RawMessage) bool {
	return firstByte(msg) == '{'
}

func firstByte(msg json.RawMessage) byte {
	for _, c := range msg {
		switch c {
		case ' ', '\t', '\n', '\r':
			continue
		default:
			return c
		}
	}
	return 0
}

// SortedCodes returns the flat document's substation codes in stable order.
func (d FlatDocument) SortedCodes() []string {
	codes := make([]string, 0, len(d.Substations))
	for code := range d.Substations {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
