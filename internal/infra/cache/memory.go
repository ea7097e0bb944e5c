package cache

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/bryanwahyu/ayursense/internal/domain/reading"
)

// Memory is an in-process reading.Cache. Each channel is a single atomic
// slot; readers never block writers.
type Memory struct {
	mu    sync.RWMutex
	slots map[reading.Channel]*atomic.Pointer[reading.Reading]
}

func NewMemory() *Memory {
	return &Memory{slots: make(map[reading.Channel]*atomic.Pointer[reading.Reading])}
}

func (m *Memory) slot(ch reading.Channel) *atomic.Pointer[reading.Reading] {
	m.mu.RLock()
	s, ok := m.slots[ch]
	m.mu.RUnlock()
	if ok {
		return s
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.slots[ch]; ok {
		return s
	}
	s = new(atomic.Pointer[reading.Reading])
	m.slots[ch] = s
	return s
}

// Set stores value unless at is older than the stored timestamp.
// An equal timestamp overwrites.
func (m *Memory) Set(ch reading.Channel, value float64, at time.Time) bool {
	s := m.slot(ch)
	next := &reading.Reading{Channel: ch, Value: value, ObservedAt: at}
	for {
		cur := s.Load()
		if cur != nil && at.Before(cur.ObservedAt) {
			return false
		}
		if s.CompareAndSwap(cur, next) {
			return true
		}
	}
}

func (m *Memory) Get(ch reading.Channel) reading.Value {
	m.mu.RLock()
	s, ok := m.slots[ch]
	m.mu.RUnlock()
	if !ok {
		return reading.Unknown
	}
	if r := s.Load(); r != nil {
		return reading.Of(*r)
	}
	return reading.Unknown
}

// Reset drops every stored reading. Used on process teardown.
func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slots = make(map[reading.Channel]*atomic.Pointer[reading.Reading])
}
