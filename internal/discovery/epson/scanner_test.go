package epson

import (
	"bytes"
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"escpos-bridge/internal/discovery"
	"escpos-bridge/internal/discovery/snmp"
)

func reply(serial string) []byte {
	frame := []byte{'E', 'P', 'S', 'O', 'N', 'p', 0x00, 0x00, 0x00, 0x10, 0x00, 0x00, 0x00, 0x20}
	frame = append(frame, 0x00, 0x01)
	frame = append(frame, serial...)
	return append(frame, 0x00, 0x00)
}

// startResponder answers each query with the given replies. Every reply is
// sent from its own socket so the source ports differ.
func startResponder(t *testing.T, replies ...[]byte) (string, *counter) {
	t.Helper()

	conn, err := net.ListenPacket("udp4", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	queries := &counter{}
	go func() {
		buf := make([]byte, 64)
		for {
			n, addr, err := conn.ReadFrom(buf)
			if err != nil {
				return
			}
			if !bytes.Equal(buf[:n], Query) {
				continue
			}
			queries.inc()
			for _, r := range replies {
				out, err := net.ListenPacket("udp4", "127.0.0.1:0")
				if err != nil {
					continue
				}
				_, _ = out.WriteTo(r, addr)
				out.Close()
			}
		}
	}()

	return conn.LocalAddr().String(), queries
}

type counter struct {
	mu sync.Mutex
	n  int
}

func (c *counter) inc() {
	c.mu.Lock()
	c.n++
	c.mu.Unlock()
}

func (c *counter) get() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

type fakeIdentifier struct {
	identity *snmp.Identity
	err      error
	calls    counter
}

func (f *fakeIdentifier) Identify(_ context.Context, host string) (*snmp.Identity, error) {
	f.calls.inc()
	if f.err != nil {
		return nil, f.err
	}
	id := *f.identity
	id.Host = host
	return &id, nil
}

func testScanner(t *testing.T, addr string, identifier discovery.Identifier) *Scanner {
	return NewScanner(Config{
		BroadcastAddress: addr,
		Window:           200 * time.Millisecond,
		Concurrency:      2,
	}, identifier, zaptest.NewLogger(t))
}

func TestScan_DuplicateResponsesCollapse(t *testing.T) {
	addr, queries := startResponder(t, reply("X4NK012345"), reply("X4NK012345"), reply("X4NK012345"))
	identifier := &fakeIdentifier{identity: &snmp.Identity{
		Name:                "TM-T20III",
		Description:         "EPSON Built-in",
		HardwareDescription: "EPSON TM-T20III",
	}}

	devices, err := testScanner(t, addr, identifier).Scan(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, queries.get())
	require.Len(t, devices, 1)

	d := devices[0]
	assert.Equal(t, "127.0.0.1", d.Host)
	assert.Equal(t, 9100, d.Port)
	assert.Equal(t, "X4NK012345", d.Serial)
	assert.Equal(t, 3, d.Responses)
	assert.True(t, d.Identified)
	assert.Equal(t, "EPSON TM-T20III", d.HardwareDescription)
	assert.Equal(t, "x4nk012345", d.PrinterID())
	assert.Equal(t, "TM-T20III", d.Name)
	assert.Equal(t, 1, identifier.calls.get())
}

func TestScan_ResponsesWithoutSerialDedupeByHost(t *testing.T) {
	addr, _ := startResponder(t, []byte("hello"), []byte("again"))

	devices, err := testScanner(t, addr, nil).Scan(context.Background())
	require.NoError(t, err)

	require.Len(t, devices, 1)
	assert.Empty(t, devices[0].Serial)
	assert.Equal(t, "127.0.0.1", devices[0].PrinterID())
	assert.False(t, devices[0].Identified)
}

func TestScan_IdentificationFailureKeepsDevice(t *testing.T) {
	addr, _ := startResponder(t, reply("SERIAL9"))
	identifier := &fakeIdentifier{err: errors.New("timeout")}

	devices, err := testScanner(t, addr, identifier).Scan(context.Background())
	require.NoError(t, err)

	require.Len(t, devices, 1)
	assert.False(t, devices[0].Identified)
	assert.Equal(t, "serial9", devices[0].PrinterID())
}

func TestScan_NoResponses(t *testing.T) {
	conn, err := net.ListenPacket("udp4", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	start := time.Now()
	devices, err := testScanner(t, conn.LocalAddr().String(), nil).Scan(context.Background())
	require.NoError(t, err)
	assert.Empty(t, devices)
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
}

func TestScan_ContextEndsWindowEarly(t *testing.T) {
	conn, err := net.ListenPacket("udp4", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	scanner := NewScanner(Config{BroadcastAddress: conn.LocalAddr().String(), Window: time.Minute}, nil, zaptest.NewLogger(t))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err = scanner.Scan(ctx)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestParseSerial(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
		want    string
	}{
		{"epson frame", reply("X4NK012345"), "X4NK012345"},
		{"short token skipped", append(reply("AB"), []byte("LONGER1")...), "LONGER1"},
		{"not epson", []byte("garbage-but-long-enough-0123456789"), ""},
		{"header only", reply("")[:14], ""},
		{"empty", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseSerial(tt.payload))
		})
	}
}
