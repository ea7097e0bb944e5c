package session

import (
	"math"
	"sync"
	"time"

	"github.com/bryanwahyu/ayursense/internal/domain/reading"
)

// Sample is one tick of a collection session. A channel with no known value
// at that tick is absent from Values.
type Sample struct {
	Tick   int                         `json:"tick"`
	At     time.Time                   `json:"at"`
	Values map[reading.Channel]float64 `json:"values"`
}

// Value returns the channel value of this sample.
func (s Sample) Value(ch reading.Channel) (float64, bool) {
	v, ok := s.Values[ch]
	return v, ok
}

// ChannelStats summarises one channel over a window.
type ChannelStats struct {
	Count int     `json:"count"`
	Last  float64 `json:"last"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Mean  float64 `json:"mean"`
}

// SampleWindow is the ordered sample sequence of one session. It is
// append-only until sealed.
type SampleWindow struct {
	mu      sync.RWMutex
	samples []Sample
	sealed  bool
	sealAt  time.Time
}

func NewSampleWindow(capacity int) *SampleWindow {
	return &SampleWindow{samples: make([]Sample, 0, capacity)}
}

// Append adds s to the window. Samples are copied on the way in.
func (w *SampleWindow) Append(s Sample) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.sealed {
		return ErrWindowSealed
	}
	s.Values = cloneValues(s.Values)
	w.samples = append(w.samples, s)
	return nil
}

// Seal makes the window read-only. Sealing twice is a no-op.
func (w *SampleWindow) Seal(at time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.sealed {
		w.sealed = true
		w.sealAt = at
	}
}

func (w *SampleWindow) Sealed() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.sealed
}

func (w *SampleWindow) SealedAt() time.Time {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.sealAt
}

func (w *SampleWindow) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.samples)
}

// Samples returns a copy of the recorded samples.
func (w *SampleWindow) Samples() []Sample {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]Sample, len(w.samples))
	for i, s := range w.samples {
		s.Values = cloneValues(s.Values)
		out[i] = s
	}
	return out
}

// Stats aggregates the known values of ch. ok is false when ch never had one.
func (w *SampleWindow) Stats(ch reading.Channel) (ChannelStats, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	st := ChannelStats{Min: math.Inf(1), Max: math.Inf(-1)}
	var sum float64
	for _, s := range w.samples {
		v, ok := s.Values[ch]
		if !ok {
			continue
		}
		st.Count++
		st.Last = v
		sum += v
		st.Min = math.Min(st.Min, v)
		st.Max = math.Max(st.Max, v)
	}
	if st.Count == 0 {
		return ChannelStats{}, false
	}
	st.Mean = sum / float64(st.Count)
	return st, true
}

func cloneValues(in map[reading.Channel]float64) map[reading.Channel]float64 {
	out := make(map[reading.Channel]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
