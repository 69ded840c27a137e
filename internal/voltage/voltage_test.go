package voltage

import "testing"

func TestColorAndWeight_KnownLevels(t *testing.T) {
	cases := []struct {
		label  string
		color  string
		weight float64
	}{
		{"220kV", "#FF0000", 5},
		{"110kV", "#FFA500", 4},
		{"66kV", "#FFFF00", 3.5},
		{"50kV", "#00FF00", 3},
		{"33kV", "#00FFFF", 2.5},
		{"22kV", "#0000FF", 2},
		{"11kV", "#800080", 1.5},
	}
	for _, tc := range cases {
		if got := Color(tc.label); got != tc.color {
			t.Fatalf("Color(%q): expected %s, got %s", tc.label, tc.color, got)
		}
		if got := Weight(tc.label); got != tc.weight {
			t.Fatalf("Weight(%q): expected %v, got %v", tc.label, tc.weight, got)
		}
	}
}

func TestColorAndWeight_UnknownFallsBack(t *testing.T) {
	for _, label := range []string{"", "400kV", "110KV", "banana", " 11kV"} {
		if got := Color(label); got != DefaultColor {
			t.Fatalf("Color(%q): expected default %s, got %s", label, DefaultColor, got)
		}
		if got := Weight(label); got != 1 {
			t.Fatalf("Weight(%q): expected 1, got %v", label, got)
		}
	}
}

func TestLevels_OrderedHighestFirst(t *testing.T) {
	levels := Levels()
	if len(levels) != 7 {
		t.Fatalf("expected 7 levels, got %d", len(levels))
	}
	if levels[0] != Level220 || levels[6] != Level11 {
		t.Fatalf("unexpected order: %v", levels)
	}

	levels[0] = "mutated"
	if Levels()[0] != Level220 {
		t.Fatalf("expected Levels to return a copy")
	}
}

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"33KV":    "33kV",
		"33 kV":   "33kV",
		" 110 ":   "110kV",
		"110.0":   "110kV",
		"66kv":    "66kV",
		"":        "",
		"33/11KV": "33/11KV",
		"Unknown": "Unknown",
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Fatalf("Normalize(%q): expected %q, got %q", in, want, got)
		}
	}
}

func TestOperatorLineStyle_DistinctPerOperator(t *testing.T) {
	tp := OperatorLineStyle("transpower")
	vec := OperatorLineStyle("vector")
	if tp.Color == vec.Color {
		t.Fatalf("expected distinct operator colors, both %s", tp.Color)
	}
	if got := OperatorLineStyle("other").Color; got != DefaultColor {
		t.Fatalf("expected default color for unknown operator, got %s", got)
	}
}

func TestFlatLineStyle(t *testing.T) {
	s := FlatLineStyle()
	if s.Color != "#FF0000" || s.Weight != 2 || s.Opacity != 0.8 {
		t.Fatalf("unexpected flat line style: %+v", s)
	}
}

func TestLevelStyle(t *testing.T) {
	s := LevelStyle(Level66)
	if s.Color != "#FFFF00" || s.Weight != 3.5 || s.Opacity != 0.8 {
		t.Fatalf("unexpected 66kV style: %+v", s)
	}
	if got := LevelStyle("400kV"); got.Color != DefaultColor || got.Weight != DefaultWeight {
		t.Fatalf("expected default style for unknown level, got %+v", got)
	}
}
