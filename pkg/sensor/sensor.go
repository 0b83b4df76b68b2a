// Package sensor provides access to the temperature/relative-humidity
// sensor. The real sensor is an SHT-class part behind a serial line bridge;
// a mock implementation backs tests and the --mock flag.
package sensor

// Sample is one raw measurement pair as read from the sensor.
type Sample struct {
	Temperature      float64 // degrees Celsius
	RelativeHumidity float64 // percent
}

// Sensor defines the interface for sensor sources (real or mocked).
type Sensor interface {
	Init() error
	Read() (Sample, error)
	Close() error
}

// Ensure Serial implements Sensor.
var _ Sensor = (*Serial)(nil)

// Ensure Mock implements Sensor.
var _ Sensor = (*Mock)(nil)
