// Package graphite implements the plaintext line protocol used to report
// readings to a Graphite server: one "<path> <value> <timestamp>" record
// per channel, each record followed by a blank line.
package graphite

import (
	"bufio"
	"fmt"
	"net"
	"strconv"
	"time"
)

// Conn is one open connection to the metrics server.
type Conn interface {
	SendReading(r Reading) error
	Close() error
}

// DialFunc opens a connection to the metrics server. The delivery engine
// depends on this rather than on Client so tests can substitute a fake.
type DialFunc func() (Conn, error)

// Client is a connection to a Graphite server speaking the plaintext
// protocol on the standard port 2003.
type Client struct {
	conn net.Conn
	w    *bufio.Writer

	temperaturePath string
	humidityPath    string
}

var _ Conn = (*Client)(nil)

// Dial connects to the Graphite server within timeout.
func Dial(host string, port int, timeout time.Duration, temperaturePath, humidityPath string) (*Client, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to graphite server %s: %w", addr, err)
	}

	return &Client{
		conn:            conn,
		w:               bufio.NewWriter(conn),
		temperaturePath: temperaturePath,
		humidityPath:    humidityPath,
	}, nil
}

// Dialer returns a DialFunc bound to one server endpoint and metric paths.
func Dialer(host string, port int, timeout time.Duration, temperaturePath, humidityPath string) DialFunc {
	return func() (Conn, error) {
		return Dial(host, port, timeout, temperaturePath, humidityPath)
	}
}

// SendReading transmits both channels of one reading. The reading is only
// considered delivered once the records have been flushed to the socket.
func (c *Client) SendReading(r Reading) error {
	c.writeRecord(c.temperaturePath, r.Temperature, r.Timestamp)
	c.writeRecord(c.humidityPath, r.RelativeHumidity, r.Timestamp)

	if err := c.w.Flush(); err != nil {
		return fmt.Errorf("failed to send reading: %w", err)
	}
	return nil
}

// writeRecord buffers one plaintext record. Write errors surface on Flush.
func (c *Client) writeRecord(path string, value float64, timestamp int64) {
	c.w.WriteString(path)
	c.w.WriteByte(' ')
	c.w.WriteString(strconv.FormatFloat(value, 'f', -1, 64))
	c.w.WriteByte(' ')
	c.w.WriteString(strconv.FormatInt(timestamp, 10))
	c.w.WriteString("\n\n")
}

// Close closes the connection to the server.
func (c *Client) Close() error {
	return c.conn.Close()
}
