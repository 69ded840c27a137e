// Package naming parses the identifiers embedded in operator data: voltage
// suffixes on substation names, feeder endpoint codes and Transpower line
// locations.
package naming

import (
	"strings"
	"unicode"
)

// Unknown is returned when a name carries no voltage suffix.
const Unknown = "Unknown"

// Clean trims and collapses internal runs of whitespace.
func Clean(name string) string {
	return strings.Join(strings.Fields(name), " ")
}

// VoltageFromName returns the last space-separated token of a substation
// name, e.g. "MANUREWA 33/11KV" -> "33/11KV".
func VoltageFromName(name string) string {
	name = Clean(name)
	i := strings.LastIndexByte(name, ' ')
	if i < 0 {
		return Unknown
	}
	return name[i+1:]
}

// FeederCode returns the leading run of upper-case letters of a feeder
// endpoint such as "BKBY H02".
func FeederCode(part string) (string, bool) {
	part = strings.TrimSpace(part)
	end := 0
	for end < len(part) {
		r := rune(part[end])
		if r > unicode.MaxASCII || !unicode.IsUpper(r) {
			break
		}
		end++
	}
	if end == 0 {
		return "", false
	}
	return part[:end], true
}

// FeederEndpoints splits a feeder name of the form "BKBY H02 - MARA H06"
// into its two endpoint codes.
func FeederEndpoints(feeder string) (from, to string, ok bool) {
	parts := strings.Split(feeder, " - ")
	if len(parts) != 2 {
		return "", "", false
	}
	from, okFrom := FeederCode(parts[0])
	to, okTo := FeederCode(parts[1])
	if !okFrom || !okTo {
		return "", "", false
	}
	return from, to, true
}

// SplitLocation extracts both site codes from a line location such as
// "AHA-DOB-A". Anything after the second code is a circuit suffix.
func SplitLocation(location string) (start, end string, ok bool) {
	parts := strings.Split(location, "-")
	if len(parts) < 2 {
		return "", "", false
	}
	start = strings.TrimSpace(parts[0])
	end = strings.TrimSpace(parts[1])
	if start == "" || end == "" {
		return "", "", false
	}
	return start, end, true
}
