package reading

import "time"

// Cache holds the latest reading per channel.
// Set drops updates whose timestamp is older than the stored one and reports
// whether the update was applied.
type Cache interface {
	Set(ch Channel, value float64, at time.Time) bool
	Get(ch Channel) Value
}

// Publisher mirrors applied readings to an external sink.
type Publisher interface {
	Publish(r Reading) error
}
