package session

import "math"

// Verdict is the final determination of a session.
type Verdict struct {
	Safe        bool    `json:"safe"`
	Confidence  float64 `json:"confidence"`
	Explanation string  `json:"explanation"`
}

// ClampConfidence bounds c to the [0,100] percentage range.
func ClampConfidence(c float64) float64 {
	if math.IsNaN(c) {
		return 0
	}
	return math.Max(0, math.Min(100, c))
}
