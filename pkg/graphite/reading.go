package graphite

// Reading is one averaged temperature/humidity result bound to the instant
// its reporting cycle closed. It is immutable once created; a reading that
// could not be sent is queued as-is and transmitted unchanged later.
type Reading struct {
	Temperature      float64
	RelativeHumidity float64
	Timestamp        int64 // epoch seconds
}
