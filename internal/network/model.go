// Package network holds the substation/line data model and the wire shapes
// of the /network_data document in both of its layouts.
package network

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

type Operator string

const (
	Transpower Operator = "transpower"
	Vector     Operator = "vector"
)

// Operators returns the partition keys in render order.
func Operators() []Operator {
	return []Operator{Transpower, Vector}
}

type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type Substation struct {
	Code        string  `json:"code,omitempty"`
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	Description string  `json:"description,omitempty"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`

	// Easting and Northing are the NZTM2000 coordinates read from the
	// source export. They are not part of /network_data.
	Easting  float64 `json:"-"`
	Northing float64 `json:"-"`
}

// HasNZTM reports whether the source NZTM coordinates are known.
func (s Substation) HasNZTM() bool {
	return s.Easting != 0 || s.Northing != 0
}

func (s Substation) Position() LatLon {
	return LatLon{Lat: s.Lat, Lon: s.Lon}
}

type Line struct {
	Name        string  `json:"name"`
	Voltage     Voltage `json:"voltage,omitempty"`
	FromBus     string  `json:"from_bus"`
	ToBus       string  `json:"to_bus"`
	Description string  `json:"description,omitempty"`

	// Electrical is only set on lines built from the source exports.
	Electrical *Electrical `json:"-"`
}

// Electrical holds a line's length and per-kilometre parameters.
type Electrical struct {
	LengthKM  float64 `json:"length_km"`
	ROhmPerKM float64 `json:"r_ohm_per_km"`
	XOhmPerKM float64 `json:"x_ohm_per_km"`
	CNFPerKM  float64 `json:"c_nf_per_km"`
	MaxIKA    float64 `json:"max_i_ka"`
}

// Voltage is a line's voltage as sent by the backend. The field arrives as a
// JSON number (110) or string ("110.0") depending on the producer.
type Voltage string

func (v *Voltage) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*v = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = Voltage(strings.TrimSpace(s))
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("voltage: %w", err)
	}
	*v = Voltage(strconv.FormatFloat(f, 'f', -1, 64))
	return nil
}

func (v Voltage) String() string {
	return string(v)
}
