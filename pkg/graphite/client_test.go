package graphite

import (
	"bufio"
	"io"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startServer accepts one connection and returns everything written to it
// on the returned channel once the client disconnects.
func startServer(t *testing.T) (addr string, received <-chan string) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	out := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			out <- ""
			return
		}
		defer conn.Close()
		data, _ := io.ReadAll(conn)
		out <- string(data)
	}()

	return ln.Addr().String(), out
}

func splitHostPort(t *testing.T, addr string) (string, int) {
	t.Helper()
	host, portStr, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return host, port
}

func TestDial_Unreachable(t *testing.T) {
	// A closed port on loopback refuses immediately.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	host, port := splitHostPort(t, ln.Addr().String())
	ln.Close()

	client, err := Dial(host, port, 500*time.Millisecond, "t", "h")
	assert.Error(t, err)
	assert.Nil(t, client)
}

func TestSendReading_RecordFormat(t *testing.T) {
	addr, received := startServer(t)
	host, port := splitHostPort(t, addr)

	client, err := Dial(host, port, time.Second, "office.temperature", "office.relative_humidity")
	require.NoError(t, err)

	err = client.SendReading(Reading{
		Temperature:      20.55,
		RelativeHumidity: 45.2,
		Timestamp:        1700000000,
	})
	require.NoError(t, err)
	require.NoError(t, client.Close())

	got := <-received
	want := "office.temperature 20.55 1700000000\n\n" +
		"office.relative_humidity 45.2 1700000000\n\n"
	assert.Equal(t, want, got)
}

func TestSendReading_MultipleReadingsInOrder(t *testing.T) {
	addr, received := startServer(t)
	host, port := splitHostPort(t, addr)

	client, err := Dial(host, port, time.Second, "t", "h")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		err := client.SendReading(Reading{
			Temperature:      float64(20 + i),
			RelativeHumidity: float64(40 + i),
			Timestamp:        int64(1000 + i),
		})
		require.NoError(t, err)
	}
	require.NoError(t, client.Close())

	got := <-received
	scanner := bufio.NewScanner(strings.NewReader(got))
	var lines []string
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			lines = append(lines, line)
		}
	}

	require.Len(t, lines, 6)
	assert.Equal(t, "t 20 1000", lines[0])
	assert.Equal(t, "h 40 1000", lines[1])
	assert.Equal(t, "t 22 1002", lines[4])
	assert.Equal(t, "h 42 1002", lines[5])
}

func TestSendReading_ValueFormatting(t *testing.T) {
	tests := []struct {
		value float64
		want  string
	}{
		{20.0, "20"},
		{20.5, "20.5"},
		{-3.25, "-3.25"},
		{100.125, "100.125"},
	}

	for _, tt := range tests {
		got := strconv.FormatFloat(tt.value, 'f', -1, 64)
		assert.Equal(t, tt.want, got)
	}
}

func TestSendReading_ClosedConnection(t *testing.T) {
	addr, _ := startServer(t)
	host, port := splitHostPort(t, addr)

	client, err := Dial(host, port, time.Second, "t", "h")
	require.NoError(t, err)
	require.NoError(t, client.Close())

	err = client.SendReading(Reading{Temperature: 20, RelativeHumidity: 40, Timestamp: 1})
	assert.Error(t, err)
}

func TestDialer_ReturnsWorkingConn(t *testing.T) {
	addr, received := startServer(t)
	host, port := splitHostPort(t, addr)

	dial := Dialer(host, port, time.Second, "a.t", "a.h")
	conn, err := dial()
	require.NoError(t, err)

	require.NoError(t, conn.SendReading(Reading{Temperature: 1, RelativeHumidity: 2, Timestamp: 3}))
	require.NoError(t, conn.Close())

	got := <-received
	assert.Contains(t, got, "a.t 1 3\n")
	assert.Contains(t, got, "a.h 2 3\n")
}
