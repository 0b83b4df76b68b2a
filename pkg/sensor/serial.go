package sensor

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chewxy/math32"
	"go.bug.st/serial"
)

const (
	// DefaultBaudRate is the standard baud rate for the sensor bridge.
	DefaultBaudRate = 115200
	// readTimeout bounds one poll of the bridge.
	readTimeout = 2 * time.Second

	// Plausible limits for an SHT-class sensor. Values outside these are
	// bus glitches, not weather.
	minTemperature = -40.0
	maxTemperature = 125.0
	minHumidity    = 0.0
	maxHumidity    = 100.0
)

// pollCommand requests one measurement line from the bridge.
const pollCommand = "R\n"

// Serial reads the sensor through a serial bridge. Each poll writes a
// request and reads back one "<temperature>,<humidity>" line.
type Serial struct {
	port     string
	baudRate int

	mu     sync.Mutex
	conn   serial.Port
	reader *bufio.Reader
}

// NewSerial creates a sensor on the given serial port.
func NewSerial(port string, baudRate int) *Serial {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	return &Serial{
		port:     port,
		baudRate: baudRate,
	}
}

// Init opens the serial port. It may be called again after a failure.
func (s *Serial) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		return fmt.Errorf("already initialized")
	}

	mode := &serial.Mode{
		BaudRate: s.baudRate,
	}

	port, err := serial.Open(s.port, mode)
	if err != nil {
		return fmt.Errorf("failed to open serial port %s: %w", s.port, err)
	}
	if err := port.SetReadTimeout(readTimeout); err != nil {
		port.Close()
		return fmt.Errorf("failed to set read timeout: %w", err)
	}

	s.conn = port
	s.reader = bufio.NewReader(port)
	return nil
}

// Read polls the bridge for one sample.
func (s *Serial) Read() (Sample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return Sample{}, fmt.Errorf("not initialized")
	}

	if _, err := s.conn.Write([]byte(pollCommand)); err != nil {
		return Sample{}, fmt.Errorf("failed to poll sensor: %w", err)
	}

	line, err := s.reader.ReadString('\n')
	if err != nil {
		return Sample{}, fmt.Errorf("failed to read sensor response: %w", err)
	}

	return ParseLine(line)
}

// Close closes the serial port.
func (s *Serial) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	s.reader = nil
	return err
}

// ParseLine parses one measurement line from the bridge.
// Format: temperature,relative_humidity (both decimal).
// Example: 21.37,48.62
func ParseLine(line string) (Sample, error) {
	line = strings.TrimSpace(line)
	parts := strings.Split(line, ",")
	if len(parts) != 2 {
		return Sample{}, fmt.Errorf("invalid line format: expected 2 comma-separated values, got %d", len(parts))
	}

	temperature, err := parseChannel(parts[0], minTemperature, maxTemperature)
	if err != nil {
		return Sample{}, fmt.Errorf("invalid temperature: %w", err)
	}

	humidity, err := parseChannel(parts[1], minHumidity, maxHumidity)
	if err != nil {
		return Sample{}, fmt.Errorf("invalid humidity: %w", err)
	}

	return Sample{
		Temperature:      temperature,
		RelativeHumidity: humidity,
	}, nil
}

// parseChannel parses one field. The bridge reports single-precision
// values, so parse and sanity-check at float32 before widening.
func parseChannel(field string, min, max float64) (float64, error) {
	v64, err := strconv.ParseFloat(strings.TrimSpace(field), 32)
	if err != nil {
		return 0, err
	}

	v := float32(v64)
	if math32.IsNaN(v) || math32.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite value %q", field)
	}
	if float64(v) < min || float64(v) > max {
		return 0, fmt.Errorf("value %v out of range [%v, %v]", v, min, max)
	}

	return float64(v), nil
}
