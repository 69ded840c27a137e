package voltage

const (
	DefaultColor  = "#808080"
	DefaultWeight = 1.0
)

var levelColors = map[string]string{
	Level220: "#FF0000",
	Level110: "#FFA500",
	Level66:  "#FFFF00",
	Level50:  "#00FF00",
	Level33:  "#00FFFF",
	Level22:  "#0000FF",
	Level11:  "#800080",
}

var levelWeights = map[string]float64{
	Level220: 5,
	Level110: 4,
	Level66:  3.5,
	Level50:  3,
	Level33:  2.5,
	Level22:  2,
	Level11:  1.5,
}

// Color returns the display color for a voltage label. Labels are matched
// exactly; callers wanting lenient matching run Normalize first.
func Color(label string) string {
	if c, ok := levelColors[label]; ok {
		return c
	}
	return DefaultColor
}

// Weight returns the stroke weight for a voltage label.
func Weight(label string) float64 {
	if w, ok := levelWeights[label]; ok {
		return w
	}
	return DefaultWeight
}

// Style is the stroke used for a rendered line.
type Style struct {
	Color   string  `json:"color"`
	Weight  float64 `json:"weight"`
	Opacity float64 `json:"opacity"`
}

// LevelStyle combines Color and Weight for a label.
func LevelStyle(label string) Style {
	return Style{Color: Color(label), Weight: Weight(label), Opacity: 0.8}
}

// FlatLineStyle is the fixed stroke for lines in the single-set view.
func FlatLineStyle() Style {
	return Style{Color: "#FF0000", Weight: 2, Opacity: 0.8}
}

var operatorLineColors = map[string]string{
	"transpower": "#FF0000",
	"vector":     "#0000FF",
}

// OperatorLineStyle is the fixed stroke for an operator's lines.
func OperatorLineStyle(operator string) Style {
	c, ok := operatorLineColors[operator]
	if !ok {
		c = DefaultColor
	}
	return Style{Color: c, Weight: 2, Opacity: 0.8}
}
