package session

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/ayursense/internal/domain/reading"
)

func TestSampleWindow_AppendAndSeal(t *testing.T) {
	w := NewSampleWindow(3)
	now := time.Unix(1700000000, 0)

	require.NoError(t, w.Append(Sample{Tick: 1, At: now, Values: map[reading.Channel]float64{reading.ChannelPH: 7}}))
	require.NoError(t, w.Append(Sample{Tick: 2, At: now.Add(time.Second), Values: map[reading.Channel]float64{reading.ChannelPH: 7.2, reading.ChannelTDS: 240}}))
	assert.False(t, w.Sealed())

	w.Seal(now.Add(2 * time.Second))
	assert.True(t, w.Sealed())
	assert.Equal(t, now.Add(2*time.Second), w.SealedAt())
	require.ErrorIs(t, w.Append(Sample{Tick: 3}), ErrWindowSealed)
	assert.Equal(t, 2, w.Len())

	// a second seal keeps the first timestamp
	w.Seal(now.Add(time.Hour))
	assert.Equal(t, now.Add(2*time.Second), w.SealedAt())
}

func TestSampleWindow_SamplesAreCopies(t *testing.T) {
	w := NewSampleWindow(1)
	vals := map[reading.Channel]float64{reading.ChannelPH: 7}
	require.NoError(t, w.Append(Sample{Tick: 1, Values: vals}))

	vals[reading.ChannelPH] = 1
	got := w.Samples()
	got[0].Values[reading.ChannelPH] = 2

	v, ok := w.Samples()[0].Value(reading.ChannelPH)
	require.True(t, ok)
	assert.Equal(t, 7.0, v)
}

func TestSampleWindow_Stats(t *testing.T) {
	w := NewSampleWindow(4)
	for i, v := range []float64{200, 250, 0, 150} {
		values := map[reading.Channel]float64{reading.ChannelORP: v}
		if i != 2 {
			values[reading.ChannelTDS] = v
		}
		require.NoError(t, w.Append(Sample{Tick: i + 1, Values: values}))
	}

	st, ok := w.Stats(reading.ChannelTDS)
	require.True(t, ok)
	assert.Equal(t, 3, st.Count)
	assert.Equal(t, 150.0, st.Last)
	assert.Equal(t, 150.0, st.Min)
	assert.Equal(t, 250.0, st.Max)
	assert.InDelta(t, 200.0, st.Mean, 1e-9)

	st, ok = w.Stats(reading.ChannelORP)
	require.True(t, ok)
	assert.Equal(t, 0.0, st.Min)

	_, ok = w.Stats(reading.ChannelTemperature)
	assert.False(t, ok)
}

func TestNewCondition(t *testing.T) {
	c, err := NewCondition(ConditionBeeSting, "ignored")
	require.NoError(t, err)
	assert.Equal(t, ConditionBeeSting, c.Kind())
	assert.Empty(t, c.Custom())
	assert.Equal(t, "bee sting", c.Label())

	c, err = NewCondition(ConditionOther, "  mosquito\x00 bite\x07 ")
	require.NoError(t, err)
	assert.Equal(t, "mosquito bite", c.Custom())
	assert.Equal(t, "mosquito bite", c.Label())

	_, err = NewCondition(ConditionOther, "   ")
	require.ErrorIs(t, err, ErrUnknownCondition)

	_, err = NewCondition("sunburn", "")
	require.ErrorIs(t, err, ErrUnknownCondition)

	assert.True(t, Condition{}.IsZero())
	assert.Len(t, Catalogue(), 5)
}

func TestNewCondition_TruncatesOnRuneBoundary(t *testing.T) {
	c, err := NewCondition(ConditionOther, "a"+strings.Repeat("é", 100))
	require.NoError(t, err)
	assert.True(t, utf8.ValidString(c.Custom()))
	assert.LessOrEqual(t, len(c.Custom()), maxCustomLen)
	assert.Equal(t, "a"+strings.Repeat("é", 59), c.Custom())

	c, err = NewCondition(ConditionOther, strings.Repeat("x", 200))
	require.NoError(t, err)
	assert.Len(t, c.Custom(), maxCustomLen)
}

func TestClampConfidence(t *testing.T) {
	assert.Equal(t, 0.0, ClampConfidence(-3))
	assert.Equal(t, 100.0, ClampConfidence(130))
	assert.Equal(t, 91.0, ClampConfidence(91))
}
