package sensor

import (
	"fmt"
	"math/rand"
	"sync"
)

// Mock simulates the sensor for testing and development.
type Mock struct {
	mu          sync.Mutex
	initialized bool

	// InitFailures makes the first N Init calls fail, to exercise the
	// startup retry path.
	InitFailures int

	// Script, when non-empty, is returned sample by sample; Read fails
	// once it is exhausted. When empty, Read synthesizes samples around
	// the base values below.
	Script []Sample

	// Base values for synthesized samples.
	BaseTemperature float64
	BaseHumidity    float64
	// Noise is the peak-to-peak jitter applied to synthesized samples.
	Noise float64

	rng   *rand.Rand
	reads int
}

// NewMock creates a mocked sensor producing values around a comfortable
// room climate.
func NewMock(seed int64) *Mock {
	return &Mock{
		BaseTemperature: 21.0,
		BaseHumidity:    45.0,
		Noise:           0.4,
		rng:             rand.New(rand.NewSource(seed)),
	}
}

// Init simulates sensor initialization.
func (m *Mock) Init() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.InitFailures > 0 {
		m.InitFailures--
		return fmt.Errorf("sensor not responding")
	}
	if m.initialized {
		return fmt.Errorf("already initialized")
	}
	m.initialized = true
	return nil
}

// Read returns the next scripted or synthesized sample.
func (m *Mock) Read() (Sample, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return Sample{}, fmt.Errorf("not initialized")
	}

	if len(m.Script) > 0 {
		if m.reads >= len(m.Script) {
			return Sample{}, fmt.Errorf("script exhausted after %d reads", len(m.Script))
		}
		s := m.Script[m.reads]
		m.reads++
		return s, nil
	}

	m.reads++
	return Sample{
		Temperature:      m.BaseTemperature + (m.rng.Float64()-0.5)*m.Noise,
		RelativeHumidity: m.BaseHumidity + (m.rng.Float64()-0.5)*m.Noise,
	}, nil
}

// Close resets the mock so Init may be called again.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.initialized = false
	return nil
}

// Reads returns how many samples have been read.
func (m *Mock) Reads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}
