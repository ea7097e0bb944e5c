package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/ayursense/internal/domain/reading"
)

func TestMemory_GetBeforeSetIsUnknown(t *testing.T) {
	c := NewMemory()
	v := c.Get(reading.ChannelTDS)
	assert.False(t, v.Known)
	assert.Equal(t, reading.Unknown, v)
}

func TestMemory_SetAndGet(t *testing.T) {
	c := NewMemory()
	at := time.Unix(100, 0)
	require.True(t, c.Set(reading.ChannelTDS, 245.3, at))

	v := c.Get(reading.ChannelTDS)
	require.True(t, v.Known)
	assert.Equal(t, 245.3, v.Reading.Value)
	assert.Equal(t, at, v.Reading.ObservedAt)
	assert.Equal(t, reading.ChannelTDS, v.Reading.Channel)
}

func TestMemory_OlderTimestampIsDropped(t *testing.T) {
	c := NewMemory()
	require.True(t, c.Set(reading.ChannelTDS, 10, time.Unix(100, 0)))
	assert.False(t, c.Set(reading.ChannelTDS, 20, time.Unix(99, 0)))

	got, _ := c.Get(reading.ChannelTDS).Float()
	assert.Equal(t, 10.0, got)

	assert.True(t, c.Set(reading.ChannelTDS, 30, time.Unix(100, 0)), "equal timestamp overwrites")
	got, _ = c.Get(reading.ChannelTDS).Float()
	assert.Equal(t, 30.0, got)
}

func TestMemory_ZeroIsKnown(t *testing.T) {
	c := NewMemory()
	c.Set(reading.ChannelTDS, 0, time.Unix(1, 0))
	v, ok := c.Get(reading.ChannelTDS).Float()
	assert.True(t, ok)
	assert.Equal(t, 0.0, v)
}

func TestMemory_ChannelsAreIndependent(t *testing.T) {
	c := NewMemory()
	c.Set(reading.ChannelTDS, 1, time.Unix(10, 0))
	assert.False(t, c.Get(reading.ChannelPH).Known)

	// an older timestamp on another channel is still accepted
	assert.True(t, c.Set(reading.ChannelPH, 7, time.Unix(5, 0)))

	c.Reset()
	assert.False(t, c.Get(reading.ChannelTDS).Known)
}

func TestMemory_ConcurrentSetKeepsLatest(t *testing.T) {
	c := NewMemory()
	base := time.Unix(0, 0)

	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.Set(reading.ChannelTDS, float64(i), base.Add(time.Duration(i)*time.Millisecond))
			_ = c.Get(reading.ChannelTDS)
		}(i)
	}
	wg.Wait()

	v, ok := c.Get(reading.ChannelTDS).Float()
	require.True(t, ok)
	assert.Equal(t, 199.0, v)
}
