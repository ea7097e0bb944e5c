package reading

import (
	"errors"
	"time"
)

// ErrUnknownChannel is returned for a channel the caller does not serve.
var ErrUnknownChannel = errors.New("unknown channel")

// Channel names one scalar measurement stream.
type Channel string

// Live and synthesized channels known to the analyzer.
const (
	ChannelTDS         Channel = "tds"
	ChannelPH          Channel = "ph"
	ChannelORP         Channel = "orp"
	ChannelTemperature Channel = "temperature"
)

// Reading is an immutable snapshot of one observed value.
type Reading struct {
	Channel    Channel   `json:"channel"`
	Value      float64   `json:"value"`
	ObservedAt time.Time `json:"observedAt"`
}

// Value is the latest state of a channel: either a Reading or Unknown.
// The zero Value is Unknown, never a numeric zero.
type Value struct {
	Reading Reading
	Known   bool
}

// Unknown is the state before any successful parse.
var Unknown = Value{}

// Of wraps r as a known Value.
func Of(r Reading) Value {
	return Value{Reading: r, Known: true}
}

// Float returns the numeric value and whether it is known.
func (v Value) Float() (float64, bool) {
	return v.Reading.Value, v.Known
}
