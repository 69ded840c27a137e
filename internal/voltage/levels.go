package voltage

import (
	"strconv"
	"strings"
)

const (
	Level220 = "220kV"
	Level110 = "110kV"
	Level66  = "66kV"
	Level50  = "50kV"
	Level33  = "33kV"
	Level22  = "22kV"
	Level11  = "11kV"
)

// allLevels is ordered highest to lowest.
var allLevels = []string{
	Level220,
	Level110,
	Level66,
	Level50,
	Level33,
	Level22,
	Level11,
}

func Levels() []string {
	out := make([]string, len(allLevels))
	copy(out, allLevels)
	return out
}

func IsKnown(label string) bool {
	for _, l := range allLevels {
		if l == label {
			return true
		}
	}
	return false
}

// Normalize maps loosely written labels ("33KV", "33 kV", "33", "33.0") onto
// the canonical form. Values that are not numeric kV ratings are returned
// trimmed but otherwise untouched.
func Normalize(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}

	num := s
	if strings.HasSuffix(strings.ToLower(num), "kv") {
		num = strings.TrimSpace(num[:len(num)-2])
	}

	f, err := strconv.ParseFloat(num, 64)
	if err != nil || f <= 0 {
		return s
	}
	return strconv.FormatFloat(f, 'f', -1, 64) + "kV"
}
