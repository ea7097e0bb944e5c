package ingest

import (
	"regexp"
	"strconv"
)

var numberPattern = regexp.MustCompile(`\d+(?:\.\d+)?|\.\d+`)

// ParseLine extracts the first unsigned decimal number from a device line.
// Labels, units and surrounding whitespace are ignored; ok is false when the
// line holds no number.
func ParseLine(line string) (value float64, ok bool) {
	m := numberPattern.FindString(line)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
