package collection

import (
	"math"
	"math/rand/v2"

	"github.com/bryanwahyu/ayursense/internal/domain/reading"
)

// Walker is a synthesized auxiliary channel: a bounded random walk.
type Walker struct {
	Channel reading.Channel
	Value   float64
	// Width is the full span of one step; each step moves by a uniform
	// amount in [-Width/2, Width/2).
	Width float64
	Min   float64
	Max   float64
}

// Step advances the walk by one tick and returns the clamped value.
func (w *Walker) Step(r *rand.Rand) float64 {
	next := w.Value + (r.Float64()-0.5)*w.Width
	w.Value = math.Max(w.Min, math.Min(w.Max, next))
	return w.Value
}

// DefaultWalkers returns fresh acidity, redox potential and temperature walks.
func DefaultWalkers() []*Walker {
	return []*Walker{
		{Channel: reading.ChannelPH, Value: 7.0, Width: 0.2, Min: 0, Max: 14},
		{Channel: reading.ChannelORP, Value: 200, Width: 30, Min: -1000, Max: 1000},
		{Channel: reading.ChannelTemperature, Value: 23.5, Width: 0.5, Min: 0, Max: math.Inf(1)},
	}
}
